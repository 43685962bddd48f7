package notifier

import (
	"context"
	"errors"
	"io"
	"log"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"giftwrap/pkg/render"
)

func TestParseRecipientList(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{
			name:    "empty string",
			input:   "",
			wantErr: true,
		},
		{
			name:  "dedupe and trim",
			input: " +9653686568, +918790813536,+9653686568,,",
			want:  []string{"+9653686568", "+918790813536"},
		},
		{
			name:    "missing plus",
			input:   "9653686568",
			wantErr: true,
		},
		{
			name:    "non-digits",
			input:   "+96536abc68",
			wantErr: true,
		},
		{
			name:    "too short",
			input:   "+12345",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRecipientList(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRecipientList() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("ParseRecipientList() = %v, want %v", got, tt.want)
			}
		})
	}
}

type fakeSender struct {
	mu    sync.Mutex
	sent  []string
	tos   []string
	fail  bool
	calls int
}

func (f *fakeSender) Send(ctx context.Context, to, body string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return "", errors.New("provider unavailable")
	}
	f.tos = append(f.tos, to)
	f.sent = append(f.sent, body)
	return "SM123", nil
}

// fakeDeliveryLog remembers attempts and reports the recipients listed in
// priorSent as already delivered.
type fakeDeliveryLog struct {
	mu        sync.Mutex
	priorSent map[string]bool
	attempts  []attempt
}

func (f *fakeDeliveryLog) delivered(ctx context.Context, replyID, recipient string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.priorSent[replyID+"|"+recipient], nil
}

func (f *fakeDeliveryLog) record(ctx context.Context, att attempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, att)
	return nil
}

func newTestNotifier(t *testing.T, sender Sender) (*Notifier, *fakeDeliveryLog) {
	t.Helper()

	renderer, err := render.New()
	if err != nil {
		t.Fatalf("render.New() error: %v", err)
	}

	audit := &fakeDeliveryLog{priorSent: map[string]bool{}}

	// The bus is only touched by Start/Close; handleReply can be driven
	// directly with a nil subscription.
	n := &Notifier{
		sender:     sender,
		renderer:   renderer,
		recipients: []string{"+9653686568", "+918790813536"},
		audit:      audit,
		logger:     log.New(io.Discard, "", 0),
	}
	return n, audit
}

func replyEventJSON() []byte {
	return []byte(`{
		"reply_id": "9f4c2ab0-0000-0000-0000-000000000001",
		"token_id": "sample-token-123",
		"recipient_name": "Chandrika",
		"choice": "yes",
		"message": "Thank you!",
		"timestamp": "` + time.Now().UTC().Format(time.RFC3339) + `"
	}`)
}

func TestHandleReplySendsToAllRecipients(t *testing.T) {
	sender := &fakeSender{}
	n, audit := newTestNotifier(t, sender)

	if err := n.handleReply(context.Background(), replyEventJSON()); err != nil {
		t.Fatalf("handleReply() error: %v", err)
	}

	if len(sender.tos) != 2 {
		t.Fatalf("sent to %d recipients, want 2", len(sender.tos))
	}
	if len(audit.attempts) != 2 {
		t.Fatalf("recorded %d attempts, want 2", len(audit.attempts))
	}
	for _, att := range audit.attempts {
		if att.Status != "sent" {
			t.Errorf("attempt status = %q, want sent", att.Status)
		}
		if att.ReplyID == "" || att.TokenID != "sample-token-123" {
			t.Errorf("attempt keys = %q/%q", att.ReplyID, att.TokenID)
		}
	}
	for _, body := range sender.sent {
		if !strings.Contains(body, "Chandrika") || !strings.Contains(body, "Thank you!") {
			t.Fatalf("unexpected message body %q", body)
		}
		if !strings.Contains(body, "yes") {
			t.Fatalf("message body %q missing choice", body)
		}
	}
}

func TestHandleReplySwallowsSendFailures(t *testing.T) {
	sender := &fakeSender{fail: true}
	n, audit := newTestNotifier(t, sender)

	// Delivery errors must not bubble up; an error return would nack the
	// message and replay the failure forever.
	if err := n.handleReply(context.Background(), replyEventJSON()); err != nil {
		t.Fatalf("handleReply() error = %v, want nil", err)
	}
	if sender.calls != 2 {
		t.Fatalf("send attempts = %d, want 2 (one per recipient)", sender.calls)
	}
	for _, att := range audit.attempts {
		if att.Status != "failed" {
			t.Errorf("attempt status = %q, want failed", att.Status)
		}
	}
}

func TestHandleReplySkipsDeliveredRecipients(t *testing.T) {
	sender := &fakeSender{}
	n, audit := newTestNotifier(t, sender)

	// A redelivered event must not re-message numbers that already got this
	// reply.
	audit.priorSent["9f4c2ab0-0000-0000-0000-000000000001|+9653686568"] = true

	if err := n.handleReply(context.Background(), replyEventJSON()); err != nil {
		t.Fatalf("handleReply() error: %v", err)
	}
	if sender.calls != 1 {
		t.Fatalf("send attempts = %d, want 1", sender.calls)
	}
	if len(sender.tos) != 1 || sender.tos[0] != "+918790813536" {
		t.Fatalf("sent to %v, want only +918790813536", sender.tos)
	}
	if len(audit.attempts) != 1 {
		t.Fatalf("recorded %d attempts, want 1", len(audit.attempts))
	}
}

func TestHandleReplyRejectsBadEvents(t *testing.T) {
	sender := &fakeSender{}
	n, _ := newTestNotifier(t, sender)

	if err := n.handleReply(context.Background(), []byte("not json")); err == nil {
		t.Fatal("handleReply() accepted undecodable payload")
	}
	if err := n.handleReply(context.Background(), []byte(`{"reply_id":"r1","choice":"yes"}`)); err == nil {
		t.Fatal("handleReply() accepted event without token_id")
	}
	if err := n.handleReply(context.Background(), []byte(`{"token_id":"t1","choice":"yes"}`)); err == nil {
		t.Fatal("handleReply() accepted event without reply_id")
	}
	if sender.calls != 0 {
		t.Fatalf("send attempts = %d, want 0", sender.calls)
	}
}
