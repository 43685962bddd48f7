package api

import (
	"errors"
	"net/http"
	"strings"
)

type authenticateRequest struct {
	SecretWord string `json:"secretWord"`
}

func (a *API) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	var req authenticateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	if !a.config.RequireSecret {
		respondJSON(w, http.StatusOK, map[string]any{
			"ok":      true,
			"message": "Authentication successful",
		})
		return
	}

	if strings.TrimSpace(req.SecretWord) == "" {
		respondError(w, http.StatusUnauthorized, errors.New("secret word is required"))
		return
	}
	if !a.config.secretMatches(req.SecretWord) {
		respondError(w, http.StatusUnauthorized, errors.New("wrong word, try the one only you two know"))
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"message": "Authentication successful",
	})
}
