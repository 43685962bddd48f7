package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"giftwrap/pkg/bus"
	"giftwrap/pkg/render"
)

const (
	repliesSubject  = "giftwrap.replies.created"
	durableConsumer = "gift-notifier"
	channelWhatsApp = "whatsapp"
)

type replyEvent struct {
	ReplyID       string    `json:"reply_id"`
	TokenID       string    `json:"token_id"`
	RecipientName string    `json:"recipient_name"`
	Choice        string    `json:"choice"`
	Message       string    `json:"message"`
	Timestamp     time.Time `json:"timestamp"`
}

// Sender delivers a rendered notification to one destination and returns the
// provider's message id.
type Sender interface {
	Send(ctx context.Context, to, body string) (string, error)
}

// Notifier consumes reply events from the bus and forwards them to the
// configured WhatsApp numbers. Delivery is best-effort: failures are logged
// and recorded in the notifications audit table, never redelivered. The audit
// table doubles as the dedupe record, so a JetStream redelivery does not
// message the same number twice for one reply.
type Notifier struct {
	bus        *bus.Bus
	sender     Sender
	renderer   *render.Engine
	recipients []string
	audit      deliveryLog
	logger     *log.Logger

	subMu sync.Mutex
	sub   io.Closer
}

// New constructs a Notifier. The database pool is optional; without it both
// the audit trail and redelivery dedupe are skipped.
func New(pool *pgxpool.Pool, eventBus *bus.Bus, sender Sender, renderer *render.Engine, recipients []string, logger *log.Logger) (*Notifier, error) {
	if eventBus == nil {
		return nil, errors.New("bus is required")
	}
	if sender == nil {
		return nil, errors.New("sender is required")
	}
	if renderer == nil {
		return nil, errors.New("renderer is required")
	}
	if len(recipients) == 0 {
		return nil, errors.New("at least one recipient number is required")
	}
	if logger == nil {
		logger = log.Default()
	}

	var audit deliveryLog = nopDeliveryLog{}
	if pool != nil {
		audit = &pgDeliveryLog{pool: pool}
	}

	return &Notifier{
		bus:        eventBus,
		sender:     sender,
		renderer:   renderer,
		recipients: recipients,
		audit:      audit,
		logger:     logger,
	}, nil
}

// Start subscribes to reply events and processes them until ctx is cancelled.
func (n *Notifier) Start(ctx context.Context) error {
	if n == nil {
		return errors.New("nil notifier")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	handler := func(msgCtx context.Context, data []byte) error {
		return n.handleReply(msgCtx, data)
	}

	sub, err := n.bus.Subscribe(ctx, repliesSubject, durableConsumer, handler)
	if err != nil {
		return err
	}

	n.subMu.Lock()
	n.sub = sub
	n.subMu.Unlock()

	return nil
}

// Close stops the underlying subscription if it was created.
func (n *Notifier) Close() error {
	if n == nil {
		return nil
	}

	n.subMu.Lock()
	defer n.subMu.Unlock()

	if n.sub == nil {
		return nil
	}
	err := n.sub.Close()
	n.sub = nil
	return err
}

// handleReply always returns nil for delivery problems: a reply notification
// is fire-and-forget, and nacking the message would only replay the failure.
// Only undecodable events are treated as terminal errors. Recipients with a
// recorded successful delivery for this reply are skipped.
func (n *Notifier) handleReply(ctx context.Context, data []byte) error {
	var evt replyEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return err
	}
	if evt.ReplyID == "" {
		return errors.New("reply_id missing from event")
	}
	if evt.TokenID == "" {
		return errors.New("token_id missing from event")
	}

	body, err := n.renderer.Render("reply_notification", map[string]string{
		"RecipientName": evt.RecipientName,
		"Choice":        evt.Choice,
		"Message":       evt.Message,
	})
	if err != nil {
		n.logger.Printf("ERROR render notification for token %s: %v", evt.TokenID, err)
		return nil
	}

	for _, to := range n.recipients {
		sent, err := n.audit.delivered(ctx, evt.ReplyID, to)
		if err != nil {
			n.logger.Printf("WARN check prior delivery to %s: %v", to, err)
		}
		if sent {
			continue
		}

		status := "sent"
		details := map[string]any{"choice": evt.Choice}

		sid, err := n.sender.Send(ctx, to, body)
		if err != nil {
			status = "failed"
			details["error"] = err.Error()
			n.logger.Printf("ERROR send notification to %s: %v", to, err)
		} else {
			details["provider_sid"] = sid
		}

		att := attempt{
			ReplyID:   evt.ReplyID,
			TokenID:   evt.TokenID,
			Recipient: to,
			Status:    status,
			Details:   details,
		}
		if err := n.audit.record(ctx, att); err != nil {
			n.logger.Printf("ERROR record notification attempt: %v", err)
		}
	}

	return nil
}
