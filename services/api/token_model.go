package api

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type tokenModel struct {
	ID        string            `gorm:"type:text;primaryKey"`
	Content   datatypes.JSONMap `gorm:"type:jsonb"`
	Used      bool              `gorm:"type:boolean;not null;default:false"`
	CreatedAt time.Time         `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	OpenedAt  *time.Time        `gorm:"type:timestamptz"`
	ExpiresAt *time.Time        `gorm:"type:timestamptz"`
}

func (tokenModel) TableName() string { return "gift_tokens" }

func toTokenModel(t GiftToken) tokenModel {
	return tokenModel{
		ID:        t.ID,
		Content:   contentToJSONMap(t.Content),
		Used:      t.Used,
		CreatedAt: t.CreatedAt,
		OpenedAt:  t.OpenedAt,
		ExpiresAt: t.ExpiresAt,
	}
}

func contentToJSONMap(c GiftContent) datatypes.JSONMap {
	raw, err := json.Marshal(c)
	if err != nil {
		return datatypes.JSONMap{}
	}
	out := datatypes.JSONMap{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return datatypes.JSONMap{}
	}
	return out
}
