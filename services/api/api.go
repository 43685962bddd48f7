package api

import (
	"errors"
	"log"
	"time"
)

const (
	repliesTopic = "giftwrap.replies.created"
	claimsTopic  = "giftwrap.tokens.claimed"

	mediaURLTTL = 15 * time.Minute
)

// API wires the token store, collaborators, and configuration for the HTTP
// handlers.
type API struct {
	store   *Store
	config  Config
	tokens  *tokenStore
	logger  *log.Logger
	metrics *metrics
	now     func() time.Time
}

// New initialises the API layer and seeds the well-known gift token.
func New(store *Store, cfg Config, logger *log.Logger) (*API, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if cfg.DefaultToken == "" {
		cfg.DefaultToken = defaultTokenID
	}
	if logger == nil {
		logger = log.Default()
	}

	a := &API{
		store:   store,
		config:  cfg,
		tokens:  newTokenStore(),
		logger:  logger,
		metrics: newMetrics(),
		now:     time.Now,
	}

	seedToken(a.tokens, cfg.DefaultToken, a.now().UTC())
	return a, nil
}
