package api

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/gorm"

	"giftwrap/pkg/bus"
	gos3 "giftwrap/pkg/s3"
)

// Store holds the external collaborators available to the API layer. Every
// field is optional: the in-memory token store is authoritative, and each
// collaborator call is best-effort.
type Store struct {
	DB  *pgxpool.Pool
	ORM *gorm.DB
	S3  *gos3.Client
	Bus *bus.Bus
}
