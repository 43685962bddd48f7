package api

import (
	"fmt"
	"time"
)

// Choice is the recipient's answer attached to a reply.
type Choice string

const (
	ChoiceYes      Choice = "yes"
	ChoiceNeedTime Choice = "need_time"
)

// ParseChoice validates a raw choice value from a request body.
func ParseChoice(raw string) (Choice, error) {
	switch Choice(raw) {
	case ChoiceYes, ChoiceNeedTime:
		return Choice(raw), nil
	default:
		return "", fmt.Errorf("choice must be %q or %q", ChoiceYes, ChoiceNeedTime)
	}
}

// MediaItem is one entry in a gift's memory timeline.
type MediaItem struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	URL     string `json:"url"`
	Caption string `json:"caption"`
	Date    string `json:"date"`
	Note    string `json:"note"`
}

// MessageBlock is a named free-text message attached to a gift, with an
// optional photo of the sender.
type MessageBlock struct {
	ShortMessage string `json:"shortMessage"`
	FullMessage  string `json:"fullMessage"`
	PhotoURL     string `json:"photoUrl,omitempty"`
}

// GiftContent is the immutable payload revealed when a token is claimed:
// the recipient, an ordered media timeline, and any number of named messages.
type GiftContent struct {
	RecipientName string                  `json:"recipientName"`
	Media         []MediaItem             `json:"media"`
	Messages      map[string]MessageBlock `json:"messages"`
}

// Validate checks the fields a token cannot be created without.
func (c GiftContent) Validate() error {
	if c.RecipientName == "" {
		return fmt.Errorf("recipientName is required")
	}
	for i, item := range c.Media {
		if item.Type != "image" && item.Type != "video" {
			return fmt.Errorf("media[%d]: type must be image or video", i)
		}
		if item.URL == "" {
			return fmt.Errorf("media[%d]: url is required", i)
		}
	}
	return nil
}

// GiftToken is the addressable unit representing one recipient's gift
// instance. OpenedAt is set exactly once, at the first successful claim, and
// is non-nil iff Used is true. ExpiresAt is carried for schema compatibility
// but never enforced.
type GiftToken struct {
	ID        string
	Content   GiftContent
	Used      bool
	CreatedAt time.Time
	OpenedAt  *time.Time
	ExpiresAt *time.Time
}

// Reply is a recipient response appended to a token's reply log. Replies are
// never updated or deleted.
type Reply struct {
	ID        string
	Choice    Choice
	Message   string
	Timestamp time.Time
}
