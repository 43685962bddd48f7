package api

import (
	"time"

	"github.com/google/uuid"
)

type replyModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	TokenID   string    `gorm:"type:text;not null;index"`
	Choice    string    `gorm:"type:text;not null"`
	Message   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
}

func (replyModel) TableName() string { return "replies" }

func (m replyModel) toReply() Reply {
	return Reply{
		ID:        m.ID.String(),
		Choice:    Choice(m.Choice),
		Message:   m.Message,
		Timestamp: m.CreatedAt,
	}
}
