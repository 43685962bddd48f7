package notifier

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"giftwrap/pkg/db"
)

// attempt is one delivery attempt for one recipient.
type attempt struct {
	ReplyID   string
	TokenID   string
	Recipient string
	Status    string
	Details   map[string]any
}

// deliveryLog records notification attempts and answers whether a reply was
// already delivered to a recipient.
type deliveryLog interface {
	delivered(ctx context.Context, replyID, recipient string) (bool, error)
	record(ctx context.Context, att attempt) error
}

type pgDeliveryLog struct {
	pool *pgxpool.Pool
}

func (l *pgDeliveryLog) delivered(ctx context.Context, replyID, recipient string) (bool, error) {
	var sent bool
	err := db.Get(ctx, l.pool, &sent, `
SELECT EXISTS (
	SELECT 1 FROM notifications
	WHERE reply_id = $1 AND recipient = $2 AND status = 'sent'
)
`, replyID, recipient)
	return sent, err
}

// record upserts on (reply_id, recipient) so a retried delivery overwrites the
// earlier failed attempt instead of stacking duplicate audit rows.
func (l *pgDeliveryLog) record(ctx context.Context, att attempt) error {
	detailsBytes, err := json.Marshal(att.Details)
	if err != nil {
		return err
	}

	_, err = db.Exec(ctx, l.pool, `
INSERT INTO notifications (reply_id, token_id, channel, recipient, status, details)
VALUES ($1, $2, $3, $4, $5, $6::jsonb)
ON CONFLICT (reply_id, recipient) DO UPDATE
SET status = EXCLUDED.status, details = EXCLUDED.details, at = now()
`, att.ReplyID, att.TokenID, channelWhatsApp, att.Recipient, att.Status, detailsBytes)
	return err
}

// nopDeliveryLog stands in when no database pool is configured.
type nopDeliveryLog struct{}

func (nopDeliveryLog) delivered(context.Context, string, string) (bool, error) { return false, nil }

func (nopDeliveryLog) record(context.Context, attempt) error { return nil }
