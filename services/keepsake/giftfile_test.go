package keepsake

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleGiftYAML = `recipient: Chandrika
messages:
  craig:
    short: A note from Craig
    full: Happy birthday! The full story is inside.
  simbisai:
    full: Wishing you the best year yet.
media:
  - file: beach.jpg
    caption: That afternoon at the beach
    date: "2024-06-01"
    note: Still my favourite
  - file: toast.mp4
    caption: The toast
    date: "2024-06-02"
    note: Turn the sound up
`

func writeGiftFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gift.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write gift file: %v", err)
	}
	return path
}

func TestParseGiftFile(t *testing.T) {
	gift, err := ParseGiftFile(writeGiftFile(t, sampleGiftYAML))
	if err != nil {
		t.Fatalf("ParseGiftFile: %v", err)
	}
	if gift.Recipient != "Chandrika" {
		t.Errorf("recipient = %q, want Chandrika", gift.Recipient)
	}
	if len(gift.Messages) != 2 {
		t.Errorf("messages = %d, want 2", len(gift.Messages))
	}
	if len(gift.Media) != 2 {
		t.Errorf("media = %d, want 2", len(gift.Media))
	}
}

func TestGiftFileValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*GiftFile)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(g *GiftFile) {},
		},
		{
			name:    "missing recipient",
			mutate:  func(g *GiftFile) { g.Recipient = "  " },
			wantErr: "recipient",
		},
		{
			name:    "no messages",
			mutate:  func(g *GiftFile) { g.Messages = nil },
			wantErr: "message",
		},
		{
			name: "message without full text",
			mutate: func(g *GiftFile) {
				g.Messages["craig"] = GiftMessage{Short: "hi"}
			},
			wantErr: "full text",
		},
		{
			name: "media without file",
			mutate: func(g *GiftFile) {
				g.Media = append(g.Media, GiftMedia{Caption: "lost"})
			},
			wantErr: "file is required",
		},
		{
			name: "unsupported extension",
			mutate: func(g *GiftFile) {
				g.Media = append(g.Media, GiftMedia{File: "notes.txt"})
			},
			wantErr: "unsupported media extension",
		},
		{
			name: "duplicate media file",
			mutate: func(g *GiftFile) {
				g.Media = append(g.Media, GiftMedia{File: "beach.jpg"})
			},
			wantErr: "duplicate",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gift, err := ParseGiftFile(writeGiftFile(t, sampleGiftYAML))
			if err != nil {
				t.Fatalf("ParseGiftFile: %v", err)
			}
			tc.mutate(gift)

			err = gift.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("Validate = %v, want error containing %q", err, tc.wantErr)
			}
		})
	}
}

func TestGiftFileContent(t *testing.T) {
	gift, err := ParseGiftFile(writeGiftFile(t, sampleGiftYAML))
	if err != nil {
		t.Fatalf("ParseGiftFile: %v", err)
	}

	content, err := gift.Content("keepsakes/chandrika/")
	if err != nil {
		t.Fatalf("Content: %v", err)
	}
	if content.RecipientName != "Chandrika" {
		t.Errorf("recipient = %q", content.RecipientName)
	}

	craig := content.Messages["craig"]
	if craig.ShortMessage != "A note from Craig" {
		t.Errorf("craig short = %q", craig.ShortMessage)
	}
	simbisai := content.Messages["simbisai"]
	if simbisai.ShortMessage != "A message from simbisai" {
		t.Errorf("default short = %q", simbisai.ShortMessage)
	}

	if got := content.Media[0].URL; got != "keepsakes/chandrika/beach.jpg" {
		t.Errorf("media url = %q", got)
	}
	if got := content.Media[0].Type; got != "image" {
		t.Errorf("media[0] type = %q", got)
	}
	if got := content.Media[1].Type; got != "video" {
		t.Errorf("media[1] type = %q", got)
	}

	if err := content.Validate(); err != nil {
		t.Fatalf("converted content invalid: %v", err)
	}
}
