package api

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"
)

// The in-memory token store is authoritative; everything in this file is a
// best-effort mirror into Postgres. Failures are logged and swallowed so the
// caller's success response never depends on collaborator availability.

func (a *API) persistToken(ctx context.Context, token GiftToken) {
	if a.store.ORM == nil {
		return
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	model := toTokenModel(token)
	err := a.store.ORM.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"used", "opened_at"}),
		}).
		Create(&model).Error
	if err != nil {
		a.logger.Printf("WARN persist token %s: %v", token.ID, err)
	}
}

func (a *API) persistReply(ctx context.Context, tokenID string, reply Reply) {
	if a.store.ORM == nil {
		return
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	id, err := uuid.Parse(reply.ID)
	if err != nil {
		id = uuid.New()
	}
	model := replyModel{
		ID:        id,
		TokenID:   tokenID,
		Choice:    string(reply.Choice),
		Message:   reply.Message,
		CreatedAt: reply.Timestamp,
	}
	if err := a.store.ORM.WithContext(ctx).Create(&model).Error; err != nil {
		a.logger.Printf("WARN persist reply for token %s: %v", tokenID, err)
	}
}

// listPersistedReplies reads the reply log from Postgres, newest first. The
// error is returned so the handler can fall back to the in-memory log.
func (a *API) listPersistedReplies(ctx context.Context, tokenID string) ([]Reply, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var models []replyModel
	err := a.store.ORM.WithContext(ctx).
		Where("token_id = ?", tokenID).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	replies := make([]Reply, 0, len(models))
	for _, m := range models {
		replies = append(replies, m.toReply())
	}
	return replies, nil
}
