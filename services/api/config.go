package api

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const defaultTokenID = "sample-token-123"

// Config controls runtime behaviour for the API handlers.
type Config struct {
	// HTTPPort is the listen port for the service binary.
	HTTPPort int
	// SecretWord gates claims and /api/authenticate when RequireSecret is set.
	// Matching is case-insensitive on the trimmed word.
	SecretWord string
	// RequireSecret toggles credential gating. Some deployments serve the
	// gift to anyone holding the link; both behaviours are the same protocol.
	RequireSecret bool
	// DefaultToken is the token id used when a request names none.
	DefaultToken string
	// MediaBucket is the object-store bucket holding memory photos and
	// videos referenced by bucket-relative media URLs.
	MediaBucket string
}

// LoadConfig assembles a Config from GIFT_* environment variables.
func LoadConfig() (Config, error) {
	cfg := Config{}

	cfg.HTTPPort = getEnvInt("GIFT_HTTP_PORT", 8080)
	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		return Config{}, fmt.Errorf("invalid GIFT_HTTP_PORT: %d", cfg.HTTPPort)
	}

	cfg.SecretWord = strings.TrimSpace(getEnv("GIFT_SECRET_WORD", "panda"))
	cfg.RequireSecret = getEnvBool("GIFT_REQUIRE_SECRET", false)
	if cfg.RequireSecret && cfg.SecretWord == "" {
		return Config{}, fmt.Errorf("GIFT_REQUIRE_SECRET is set but GIFT_SECRET_WORD is empty")
	}

	cfg.DefaultToken = getEnv("GIFT_DEFAULT_TOKEN", defaultTokenID)
	cfg.MediaBucket = getEnv("S3_BUCKET", "memories")

	return cfg, nil
}

// secretMatches compares a candidate word against the configured secret,
// ignoring case and surrounding whitespace.
func (c Config) secretMatches(word string) bool {
	return strings.EqualFold(strings.TrimSpace(word), c.SecretWord)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
