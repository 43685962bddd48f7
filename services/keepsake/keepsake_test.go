package keepsake

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"

	"giftwrap/services/api"
)

const mediaFreeGiftYAML = `recipient: Chandrika
messages:
  craig:
    short: A note from Craig
    full: Happy birthday! The full story is inside.
`

func buildKeepsake(t *testing.T, signer *Signer, giftYAML string, media map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	giftPath := filepath.Join(dir, "gift.yaml")
	if err := os.WriteFile(giftPath, []byte(giftYAML), 0o644); err != nil {
		t.Fatalf("write gift file: %v", err)
	}

	mediaDir := ""
	if len(media) > 0 {
		mediaDir = filepath.Join(dir, "media")
		for name, contents := range media {
			full := filepath.Join(mediaDir, filepath.FromSlash(name))
			if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
				t.Fatalf("mkdir media: %v", err)
			}
			if err := os.WriteFile(full, []byte(contents), 0o644); err != nil {
				t.Fatalf("write media %q: %v", name, err)
			}
		}
	}

	output := filepath.Join(dir, "gift.tar.zst")
	if _, err := Build(context.Background(), BuildConfig{
		GiftFile: giftPath,
		MediaDir: mediaDir,
		Output:   output,
		Signer:   signer,
		Stdout:   io.Discard,
	}); err != nil {
		t.Fatalf("Build: %v", err)
	}
	return output
}

func archiveEntries(t *testing.T, path string) map[string]int64 {
	t.Helper()

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer file.Close()

	decoder, err := zstd.NewReader(file)
	if err != nil {
		t.Fatalf("zstd reader: %v", err)
	}
	defer decoder.Close()

	entries := map[string]int64{}
	tr := tar.NewReader(decoder)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("read tar entry: %v", err)
		}
		entries[header.Name] = header.Size
	}
	return entries
}

func TestBuildArchiveLayout(t *testing.T) {
	signer := newTestSigner(t)
	output := buildKeepsake(t, signer, sampleGiftYAML, map[string]string{
		"beach.jpg": "jpeg bytes",
		"toast.mp4": "mp4 bytes",
	})

	entries := archiveEntries(t, output)
	for _, name := range []string{"manifest.yaml", "gift.yaml", "media/beach.jpg", "media/toast.mp4"} {
		if _, ok := entries[name]; !ok {
			t.Errorf("archive missing %q (have %v)", name, entries)
		}
	}
	if size := entries["media/beach.jpg"]; size != int64(len("jpeg bytes")) {
		t.Errorf("beach.jpg size = %d", size)
	}
}

func TestBuildFailsOnMissingMedia(t *testing.T) {
	signer := newTestSigner(t)

	dir := t.TempDir()
	giftPath := filepath.Join(dir, "gift.yaml")
	if err := os.WriteFile(giftPath, []byte(sampleGiftYAML), 0o644); err != nil {
		t.Fatalf("write gift file: %v", err)
	}

	_, err := Build(context.Background(), BuildConfig{
		GiftFile: giftPath,
		MediaDir: t.TempDir(),
		Output:   filepath.Join(dir, "gift.tar.zst"),
		Signer:   signer,
		Stdout:   io.Discard,
	})
	if err == nil || !strings.Contains(err.Error(), "open media") {
		t.Fatalf("Build = %v, want missing-media error", err)
	}
}

func TestImportCreatesToken(t *testing.T) {
	signer := newTestSigner(t)
	output := buildKeepsake(t, signer, mediaFreeGiftYAML, nil)

	var posted api.GiftContent
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/create-token" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&posted); err != nil {
			t.Errorf("decode posted content: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"token": "tok-1",
			"url":   "http://gift.local/?token=tok-1",
		})
	}))
	defer server.Close()

	var out bytes.Buffer
	result, err := Import(context.Background(), ImportConfig{
		BundlePath: output,
		APIBaseURL: server.URL,
		Bucket:     "memories",
		Signer:     signer,
		Stdout:     &out,
	})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if result.Token != "tok-1" {
		t.Errorf("token = %q", result.Token)
	}
	if posted.RecipientName != "Chandrika" {
		t.Errorf("posted recipient = %q", posted.RecipientName)
	}
	if !strings.Contains(out.String(), "created token tok-1") {
		t.Errorf("output = %q", out.String())
	}
	if !strings.Contains(out.String(), "A surprise is waiting for Chandrika") {
		t.Errorf("output missing share message: %q", out.String())
	}
}

func TestImportRejectsForeignSignature(t *testing.T) {
	signer := newTestSigner(t)
	output := buildKeepsake(t, signer, mediaFreeGiftYAML, nil)

	// A verifier pinned to a different key must refuse the archive even
	// though it embeds its own public key.
	other := newTestSigner(t)
	_, err := Import(context.Background(), ImportConfig{
		BundlePath: output,
		APIBaseURL: "http://unused.local",
		Bucket:     "memories",
		Signer:     other,
		Stdout:     io.Discard,
	})
	if err == nil || !strings.Contains(err.Error(), "unexpected key") {
		t.Fatalf("Import = %v, want signature rejection", err)
	}
}

func TestImportRequiresS3ForMedia(t *testing.T) {
	signer := newTestSigner(t)
	output := buildKeepsake(t, signer, sampleGiftYAML, map[string]string{
		"beach.jpg": "jpeg bytes",
		"toast.mp4": "mp4 bytes",
	})

	_, err := Import(context.Background(), ImportConfig{
		BundlePath: output,
		APIBaseURL: "http://unused.local",
		Bucket:     "memories",
		Signer:     signer,
		Stdout:     io.Discard,
	})
	if err == nil || !strings.Contains(err.Error(), "s3 client is required") {
		t.Fatalf("Import = %v, want s3 requirement error", err)
	}
}
