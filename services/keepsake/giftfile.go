package keepsake

import (
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"giftwrap/services/api"
)

// GiftFile is the YAML authoring format for a gift: the recipient, the named
// message blocks, and the media timeline referencing files relative to the
// media directory.
type GiftFile struct {
	Recipient string                 `yaml:"recipient"`
	Messages  map[string]GiftMessage `yaml:"messages"`
	Media     []GiftMedia            `yaml:"media"`
}

type GiftMessage struct {
	Short string `yaml:"short"`
	Full  string `yaml:"full"`
	Photo string `yaml:"photo,omitempty"`
}

type GiftMedia struct {
	File    string `yaml:"file"`
	Caption string `yaml:"caption"`
	Date    string `yaml:"date"`
	Note    string `yaml:"note"`
}

var mediaKinds = map[string]string{
	".jpg":  "image",
	".jpeg": "image",
	".png":  "image",
	".gif":  "image",
	".webp": "image",
	".mp4":  "video",
	".mov":  "video",
	".webm": "video",
}

// ParseGiftFile reads and validates a gift authoring file.
func ParseGiftFile(path string) (*GiftFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read gift file: %w", err)
	}

	var gift GiftFile
	if err := yaml.Unmarshal(data, &gift); err != nil {
		return nil, fmt.Errorf("parse gift file: %w", err)
	}
	if err := gift.Validate(); err != nil {
		return nil, err
	}
	return &gift, nil
}

// Validate checks the gift file for the problems import would otherwise hit
// halfway through an upload.
func (g *GiftFile) Validate() error {
	if strings.TrimSpace(g.Recipient) == "" {
		return fmt.Errorf("recipient is required")
	}
	if len(g.Messages) == 0 {
		return fmt.Errorf("at least one message block is required")
	}
	for name, msg := range g.Messages {
		if strings.TrimSpace(msg.Full) == "" {
			return fmt.Errorf("message %q: full text is required", name)
		}
	}

	seen := make(map[string]struct{}, len(g.Media))
	for i, item := range g.Media {
		if item.File == "" {
			return fmt.Errorf("media[%d]: file is required", i)
		}
		if _, err := MediaKind(item.File); err != nil {
			return fmt.Errorf("media[%d]: %w", i, err)
		}
		if _, dup := seen[item.File]; dup {
			return fmt.Errorf("media[%d]: duplicate file %q", i, item.File)
		}
		seen[item.File] = struct{}{}
	}
	return nil
}

// MediaKind classifies a media file name as image or video by extension.
func MediaKind(file string) (string, error) {
	kind, ok := mediaKinds[strings.ToLower(path.Ext(file))]
	if !ok {
		return "", fmt.Errorf("unsupported media extension %q", path.Ext(file))
	}
	return kind, nil
}

// Content converts the gift file into API gift content. urlPrefix is joined
// with each media file name; import passes the bucket-relative prefix so the
// claim handler can presign the links later.
func (g *GiftFile) Content(urlPrefix string) (api.GiftContent, error) {
	content := api.GiftContent{
		RecipientName: g.Recipient,
		Messages:      make(map[string]api.MessageBlock, len(g.Messages)),
	}

	names := make([]string, 0, len(g.Messages))
	for name := range g.Messages {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		msg := g.Messages[name]
		short := msg.Short
		if short == "" {
			short = fmt.Sprintf("A message from %s", name)
		}
		content.Messages[name] = api.MessageBlock{
			ShortMessage: short,
			FullMessage:  msg.Full,
			PhotoURL:     msg.Photo,
		}
	}

	for i, item := range g.Media {
		kind, err := MediaKind(item.File)
		if err != nil {
			return api.GiftContent{}, err
		}
		content.Media = append(content.Media, api.MediaItem{
			ID:      fmt.Sprintf("%d", i+1),
			Type:    kind,
			URL:     strings.TrimSuffix(urlPrefix, "/") + "/" + item.File,
			Caption: item.Caption,
			Date:    item.Date,
			Note:    item.Note,
		})
	}

	return content, nil
}
