package migrations

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

func init() {
	goose.AddMigrationContext(upInit, downInit)
}

type GiftToken struct {
	ID        string            `gorm:"type:text;primaryKey"`
	Content   datatypes.JSONMap `gorm:"type:jsonb"`
	Used      bool              `gorm:"type:boolean;not null;default:false"`
	CreatedAt time.Time         `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	OpenedAt  *time.Time        `gorm:"type:timestamptz"`
	ExpiresAt *time.Time        `gorm:"type:timestamptz"`
}

func (GiftToken) TableName() string { return "gift_tokens" }

type Reply struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	TokenID   string    `gorm:"type:text;not null;index"`
	Choice    string    `gorm:"type:text;not null"`
	Message   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	Token     GiftToken `gorm:"foreignKey:TokenID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (Reply) TableName() string { return "replies" }

type Notification struct {
	ID        int64             `gorm:"type:bigserial;primaryKey"`
	ReplyID   string            `gorm:"type:text;not null;uniqueIndex:idx_notifications_reply_recipient"`
	TokenID   string            `gorm:"type:text;not null"`
	Channel   string            `gorm:"type:text;not null"`
	Recipient string            `gorm:"type:text;not null;uniqueIndex:idx_notifications_reply_recipient"`
	Status    string            `gorm:"type:text;not null"`
	Details   datatypes.JSONMap `gorm:"type:jsonb"`
	At        time.Time         `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
}

func (Notification) TableName() string { return "notifications" }

func upInit(ctx context.Context, tx *sql.Tx) error {
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: tx, PreferSimpleProtocol: true}), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{SingularTable: false},
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return err
	}

	if err := gormDB.WithContext(ctx).AutoMigrate(
		&GiftToken{},
		&Reply{},
		&Notification{},
	); err != nil {
		return err
	}

	return gormDB.WithContext(ctx).Migrator().CreateConstraint(&Reply{}, "Token")
}

func downInit(ctx context.Context, tx *sql.Tx) error {
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: tx, PreferSimpleProtocol: true}), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{SingularTable: false},
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return err
	}

	return gormDB.WithContext(ctx).Migrator().DropTable(
		&Notification{},
		&Reply{},
		&GiftToken{},
	)
}
