// Package keepsake builds and imports signed gift archives. A keepsake is a
// tar.zst holding the gift authoring file, its media, and a signed manifest;
// importing one uploads the media to object storage and mints a claim token
// through the API.
package keepsake

import (
	"archive/tar"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"

	"giftwrap/pkg/render"
)

const (
	manifestFileName = "manifest.yaml"
	giftFileName     = "gift.yaml"
	mediaTarPrefix   = "media"

	defaultKeyPrefix = "keepsakes"
)

// Build assembles a keepsake archive from the gift file and its media
// directory and writes the tar.zst to Output.
func Build(ctx context.Context, cfg BuildConfig) (*Manifest, error) {
	if cfg.GiftFile == "" {
		return nil, errors.New("gift file is required")
	}
	if cfg.Output == "" {
		return nil, errors.New("output path is required")
	}
	if cfg.Signer == nil {
		return nil, errors.New("signer is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	gift, err := ParseGiftFile(cfg.GiftFile)
	if err != nil {
		return nil, err
	}

	entries, err := collectMedia(ctx, cfg.MediaDir, gift.Media)
	if err != nil {
		return nil, err
	}

	manifest := &Manifest{
		Version:          "1",
		CreatedAt:        cfg.Now().UTC().Truncate(time.Second),
		Recipient:        gift.Recipient,
		Signer:           cfg.Signer.Recipient(),
		SigningPublicKey: cfg.Signer.PublicKeyBase64(),
		Media:            entries,
	}

	payload, err := manifest.SigningBytes()
	if err != nil {
		return nil, fmt.Errorf("marshal manifest for signing: %w", err)
	}
	sig, err := cfg.Signer.Sign(payload)
	if err != nil {
		return nil, fmt.Errorf("sign manifest: %w", err)
	}
	manifest.Signature = sig

	manifestBytes, err := yaml.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	giftBytes, err := os.ReadFile(cfg.GiftFile)
	if err != nil {
		return nil, fmt.Errorf("read gift file: %w", err)
	}

	if err := writeArchive(cfg.Output, manifestBytes, giftBytes, cfg.MediaDir, entries); err != nil {
		return nil, err
	}

	fmt.Fprintf(cfg.Stdout, "wrote keepsake %s for %s (%d media files)\n", cfg.Output, gift.Recipient, len(entries))
	return manifest, nil
}

// collectMedia hashes exactly the files the gift file references. A referenced
// file missing from the media directory fails the build rather than the
// eventual import.
func collectMedia(ctx context.Context, dir string, media []GiftMedia) ([]ManifestMedia, error) {
	if len(media) == 0 {
		return nil, nil
	}
	if dir == "" {
		return nil, errors.New("media directory is required when the gift references media")
	}

	entries := make([]ManifestMedia, 0, len(media))
	for _, item := range media {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		kind, err := MediaKind(item.File)
		if err != nil {
			return nil, err
		}

		full := filepath.Join(dir, filepath.FromSlash(item.File))
		file, err := os.Open(full)
		if err != nil {
			return nil, fmt.Errorf("open media %q: %w", item.File, err)
		}
		hash := sha256.New()
		size, err := io.Copy(hash, file)
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("hash media %q: %w", item.File, err)
		}

		entries = append(entries, ManifestMedia{
			Path:   item.File,
			Kind:   kind,
			Size:   size,
			SHA256: hex.EncodeToString(hash.Sum(nil)),
		})
	}
	return entries, nil
}

func writeArchive(output string, manifest, gift []byte, mediaDir string, entries []ManifestMedia) error {
	dir := filepath.Dir(output)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil && !errors.Is(err, os.ErrExist) {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	file, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer file.Close()

	encoder, err := zstd.NewWriter(file)
	if err != nil {
		return fmt.Errorf("zstd writer: %w", err)
	}
	defer encoder.Close()

	tw := tar.NewWriter(encoder)
	defer tw.Close()

	if err := writeTarFile(tw, manifestFileName, manifest); err != nil {
		return err
	}
	if err := writeTarFile(tw, giftFileName, gift); err != nil {
		return err
	}

	for _, entry := range entries {
		fullPath := filepath.Join(mediaDir, filepath.FromSlash(entry.Path))
		info, err := os.Stat(fullPath)
		if err != nil {
			return fmt.Errorf("stat %q: %w", entry.Path, err)
		}
		src, err := os.Open(fullPath)
		if err != nil {
			return fmt.Errorf("open %q: %w", entry.Path, err)
		}

		header := &tar.Header{
			Name:     path.Join(mediaTarPrefix, entry.Path),
			Mode:     int64(info.Mode().Perm()),
			Size:     info.Size(),
			ModTime:  info.ModTime(),
			Typeflag: tar.TypeReg,
		}
		if err := tw.WriteHeader(header); err != nil {
			src.Close()
			return fmt.Errorf("write header for %q: %w", entry.Path, err)
		}
		if _, err := io.Copy(tw, src); err != nil {
			src.Close()
			return fmt.Errorf("copy %q: %w", entry.Path, err)
		}
		src.Close()
	}

	return nil
}

func writeTarFile(tw *tar.Writer, name string, data []byte) error {
	header := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(data)),
		ModTime:  time.Now().UTC(),
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("write header for %q: %w", name, err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("write %q: %w", name, err)
	}
	return nil
}

// ImportResult reports what an import produced.
type ImportResult struct {
	Manifest *Manifest
	Token    string
	URL      string
}

// Import extracts and verifies a keepsake, uploads its media to object
// storage, and creates a claim token through the API.
func Import(ctx context.Context, cfg ImportConfig) (*ImportResult, error) {
	if cfg.BundlePath == "" {
		return nil, errors.New("keepsake file is required")
	}
	if cfg.APIBaseURL == "" {
		return nil, errors.New("api base url is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("bucket is required")
	}
	if cfg.Signer == nil {
		return nil, errors.New("signer is required")
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaultKeyPrefix
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	manifest, giftBytes, files, cleanup, err := unpackArchive(ctx, cfg.BundlePath)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	payload, err := manifest.SigningBytes()
	if err != nil {
		return nil, fmt.Errorf("marshal manifest for verification: %w", err)
	}
	if err := cfg.Signer.Verify(payload, manifest.Signature, manifest.SigningPublicKey); err != nil {
		return nil, fmt.Errorf("verify manifest signature: %w", err)
	}

	fmt.Fprintf(cfg.Stdout, "verified manifest signed at %s\n", manifest.CreatedAt.Format(time.RFC3339))

	var gift GiftFile
	if err := yaml.Unmarshal(giftBytes, &gift); err != nil {
		return nil, fmt.Errorf("unmarshal gift file: %w", err)
	}
	if err := gift.Validate(); err != nil {
		return nil, err
	}
	if gift.Recipient != manifest.Recipient {
		return nil, fmt.Errorf("gift recipient %q does not match manifest %q", gift.Recipient, manifest.Recipient)
	}

	keyPrefix := path.Join(cfg.KeyPrefix, slugify(manifest.Recipient))

	if cfg.S3 == nil && len(manifest.Media) > 0 {
		return nil, errors.New("s3 client is required for keepsakes with media")
	}
	for _, entry := range manifest.Media {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tempPath, ok := files[path.Join(mediaTarPrefix, entry.Path)]
		if !ok {
			return nil, fmt.Errorf("media %q missing from archive", entry.Path)
		}
		if err := validateMedia(tempPath, entry); err != nil {
			return nil, err
		}

		src, err := os.Open(tempPath)
		if err != nil {
			return nil, fmt.Errorf("open %q for upload: %w", entry.Path, err)
		}
		key := path.Join(keyPrefix, entry.Path)
		if err := cfg.S3.PutObject(ctx, cfg.Bucket, key, src, entry.Size, entry.SHA256); err != nil {
			src.Close()
			return nil, fmt.Errorf("upload %q: %w", entry.Path, err)
		}
		src.Close()

		fmt.Fprintf(cfg.Stdout, "uploaded %s (%d bytes)\n", entry.Path, entry.Size)
	}

	content, err := gift.Content(keyPrefix)
	if err != nil {
		return nil, err
	}
	token, giftURL, err := CreateToken(ctx, cfg.HTTPClient, cfg.APIBaseURL, content)
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(cfg.Stdout, "created token %s\n%s\n", token, ShareMessage(gift.Recipient, giftURL))
	return &ImportResult{Manifest: manifest, Token: token, URL: giftURL}, nil
}

// ShareMessage renders the text the sender forwards along with the gift link.
func ShareMessage(recipient, url string) string {
	engine, err := render.New()
	if err != nil {
		return url
	}
	msg, err := engine.Render("gift_link", map[string]string{
		"RecipientName": recipient,
		"URL":           url,
	})
	if err != nil {
		return url
	}
	return msg
}

// unpackArchive extracts the archive into a temp dir and returns the parsed
// manifest, the raw gift file, and a map from tar path to extracted path. The
// caller owns cleanup.
func unpackArchive(ctx context.Context, bundlePath string) (*Manifest, []byte, map[string]string, func(), error) {
	bundleFile, err := os.Open(bundlePath)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("open keepsake: %w", err)
	}
	defer bundleFile.Close()

	decoder, err := zstd.NewReader(bundleFile)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer decoder.Close()

	tempDir, err := os.MkdirTemp("", "keepsake-*")
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("temp dir: %w", err)
	}
	cleanup := func() { os.RemoveAll(tempDir) }

	var (
		manifestBytes []byte
		giftBytes     []byte
		files         = map[string]string{}
	)

	tr := tar.NewReader(decoder)
	for {
		if err := ctx.Err(); err != nil {
			cleanup()
			return nil, nil, nil, nil, err
		}
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			cleanup()
			return nil, nil, nil, nil, fmt.Errorf("read tar entry: %w", err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}

		name := path.Clean(header.Name)
		switch name {
		case manifestFileName:
			data, err := io.ReadAll(tr)
			if err != nil {
				cleanup()
				return nil, nil, nil, nil, fmt.Errorf("read manifest: %w", err)
			}
			manifestBytes = data
			continue
		case giftFileName:
			data, err := io.ReadAll(tr)
			if err != nil {
				cleanup()
				return nil, nil, nil, nil, fmt.Errorf("read gift file: %w", err)
			}
			giftBytes = data
			continue
		}

		targetPath := filepath.Join(tempDir, filepath.FromSlash(name))
		if !strings.HasPrefix(targetPath, tempDir+string(os.PathSeparator)) {
			cleanup()
			return nil, nil, nil, nil, fmt.Errorf("invalid entry path %q", name)
		}
		if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
			cleanup()
			return nil, nil, nil, nil, fmt.Errorf("mkdir for %q: %w", name, err)
		}
		target, err := os.Create(targetPath)
		if err != nil {
			cleanup()
			return nil, nil, nil, nil, fmt.Errorf("create temp file for %q: %w", name, err)
		}
		if _, err := io.Copy(target, tr); err != nil {
			target.Close()
			cleanup()
			return nil, nil, nil, nil, fmt.Errorf("write temp file for %q: %w", name, err)
		}
		target.Close()
		files[name] = targetPath
	}

	if len(manifestBytes) == 0 {
		cleanup()
		return nil, nil, nil, nil, errors.New("keepsake missing manifest.yaml")
	}
	if len(giftBytes) == 0 {
		cleanup()
		return nil, nil, nil, nil, errors.New("keepsake missing gift.yaml")
	}

	var manifest Manifest
	if err := yaml.Unmarshal(manifestBytes, &manifest); err != nil {
		cleanup()
		return nil, nil, nil, nil, fmt.Errorf("unmarshal manifest: %w", err)
	}
	if manifest.Version != "1" {
		cleanup()
		return nil, nil, nil, nil, fmt.Errorf("unsupported manifest version %q", manifest.Version)
	}
	if manifest.Signature == "" {
		cleanup()
		return nil, nil, nil, nil, errors.New("manifest missing signature")
	}

	return &manifest, giftBytes, files, cleanup, nil
}

func validateMedia(path string, entry ManifestMedia) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %q: %w", entry.Path, err)
	}
	defer file.Close()

	hash := sha256.New()
	size, err := io.Copy(hash, file)
	if err != nil {
		return fmt.Errorf("hash %q: %w", entry.Path, err)
	}
	if size != entry.Size {
		return fmt.Errorf("size mismatch for %q: expected %d got %d", entry.Path, entry.Size, size)
	}
	computed := hex.EncodeToString(hash.Sum(nil))
	if !strings.EqualFold(computed, entry.SHA256) {
		return fmt.Errorf("sha256 mismatch for %q", entry.Path)
	}
	return nil
}

// CreateToken posts gift content to the API and returns the minted token id
// and shareable link.
func CreateToken(ctx context.Context, client *http.Client, baseURL string, content any) (string, string, error) {
	payload, err := json.Marshal(content)
	if err != nil {
		return "", "", fmt.Errorf("marshal gift content: %w", err)
	}

	endpoint := strings.TrimRight(baseURL, "/") + "/api/create-token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("post gift content: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return "", "", fmt.Errorf("create token failed: %s", strings.TrimSpace(string(data)))
	}

	var response struct {
		Token string `json:"token"`
		URL   string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", "", fmt.Errorf("decode token response: %w", err)
	}
	if response.Token == "" {
		return "", "", errors.New("api response missing token")
	}
	return response.Token, response.URL, nil
}

func slugify(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "gift"
	}
	return slug
}
