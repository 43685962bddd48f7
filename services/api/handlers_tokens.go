package api

import (
	"fmt"
	"net/http"
	"net/url"
)

// handleCreateToken is the authoring endpoint: it mints a token for the
// posted content and returns a shareable gift link.
func (a *API) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	var content GiftContent
	if err := decodeJSON(r, &content); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if err := content.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	token := a.tokens.create(content, a.now().UTC())
	a.persistToken(r.Context(), token)

	respondJSON(w, http.StatusOK, map[string]any{
		"token": token.ID,
		"url":   a.giftURL(r, token.ID),
	})
}

// giftURL builds the link handed to the gift's sender. The secret word rides
// along as a query parameter when gating is enabled so the recipient lands
// pre-authenticated; otherwise the token id addresses the gift directly.
func (a *API) giftURL(r *http.Request, tokenID string) string {
	proto := r.Header.Get("X-Forwarded-Proto")
	if proto == "" {
		proto = "http"
		if r.TLS != nil {
			proto = "https"
		}
	}

	query := url.Values{}
	if a.config.RequireSecret {
		query.Set("word", a.config.SecretWord)
	}
	query.Set("token", tokenID)

	return fmt.Sprintf("%s://%s/?%s", proto, r.Host, query.Encode())
}
