package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

func (a *API) handleClaim(w http.ResponseWriter, r *http.Request) {
	if a.config.RequireSecret {
		word := r.URL.Query().Get("word")
		if !a.config.secretMatches(word) {
			respondError(w, http.StatusUnauthorized, errors.New("wrong word, try the one only you two know"))
			return
		}
	}

	id := strings.TrimSpace(r.URL.Query().Get("token"))
	if id == "" {
		id = a.config.DefaultToken
	}

	token, found, opened := a.tokens.claim(id, a.now().UTC())
	if !found {
		respondError(w, http.StatusNotFound, errors.New("token not found"))
		return
	}

	a.metrics.claims.Inc()

	if opened {
		a.persistToken(r.Context(), token)
		a.publishJSON(r.Context(), claimsTopic, map[string]any{
			"token_id":  token.ID,
			"recipient": token.Content.RecipientName,
			"opened_at": token.OpenedAt.Format(time.RFC3339),
		})
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"content":  a.resolveMedia(r.Context(), token.Content),
		"openedAt": token.OpenedAt.UTC().Format(time.RFC3339),
	})
}

// resolveMedia swaps bucket-relative media URLs (the "/memories/..." form the
// authoring tools produce) for presigned links. Items already carrying an
// absolute URL, and all items when no object store is configured, pass
// through untouched.
func (a *API) resolveMedia(ctx context.Context, content GiftContent) GiftContent {
	if a.store.S3 == nil {
		return content
	}

	bucket := a.config.MediaBucket
	resolved := make([]MediaItem, len(content.Media))
	copy(resolved, content.Media)

	for i, item := range resolved {
		if strings.Contains(item.URL, "://") {
			continue
		}
		key := strings.TrimPrefix(item.URL, "/")
		url, err := a.store.S3.PresignGet(ctx, bucket, key, mediaURLTTL)
		if err != nil {
			a.logger.Printf("WARN presign media %s: %v", key, err)
			continue
		}
		resolved[i].URL = url
	}

	content.Media = resolved
	return content
}
