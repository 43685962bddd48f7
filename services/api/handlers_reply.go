package api

import (
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

type replyRequest struct {
	Token   string `json:"token,omitempty"`
	Choice  string `json:"choice"`
	Message string `json:"message"`
}

type replyResponse struct {
	Choice    Choice    `json:"choice"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func (a *API) handleReply(w http.ResponseWriter, r *http.Request) {
	var req replyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	choice, err := ParseChoice(req.Choice)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		respondError(w, http.StatusBadRequest, errors.New("message cannot be empty"))
		return
	}

	id := strings.TrimSpace(req.Token)
	if id == "" {
		id = a.config.DefaultToken
	}

	token, found := a.tokens.get(id)
	if !found {
		respondError(w, http.StatusNotFound, errors.New("token not found"))
		return
	}

	reply := Reply{
		ID:        uuid.New().String(),
		Choice:    choice,
		Message:   message,
		Timestamp: a.now().UTC(),
	}
	if !a.tokens.saveReply(id, reply) {
		respondError(w, http.StatusNotFound, errors.New("token not found"))
		return
	}

	a.metrics.replies.Inc()

	a.persistReply(r.Context(), id, reply)
	a.publishJSON(r.Context(), repliesTopic, replyEventPayload(id, token, reply))

	respondJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// replyEventPayload builds the bus event for a stored reply. The reply id
// rides along so consumers can dedupe redeliveries.
func replyEventPayload(tokenID string, token GiftToken, reply Reply) map[string]any {
	return map[string]any{
		"reply_id":       reply.ID,
		"token_id":       tokenID,
		"recipient_name": token.Content.RecipientName,
		"choice":         string(reply.Choice),
		"message":        reply.Message,
		"timestamp":      reply.Timestamp.Format(time.RFC3339),
	}
}

func (a *API) handleGetReplies(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("token"))
	if id == "" {
		id = a.config.DefaultToken
	}

	replies := a.tokens.replies(id)
	if a.store.ORM != nil {
		persisted, err := a.listPersistedReplies(r.Context(), id)
		if err != nil {
			a.logger.Printf("WARN list replies for token %s: %v", id, err)
		} else {
			replies = mergeReplies(persisted, replies)
		}
	}

	out := make([]replyResponse, 0, len(replies))
	for _, reply := range replies {
		out = append(out, replyResponse{
			Choice:    reply.Choice,
			Message:   reply.Message,
			Timestamp: reply.Timestamp,
		})
	}

	respondJSON(w, http.StatusOK, map[string]any{"ok": true, "replies": out})
}

// mergeReplies unions persisted rows with the in-memory log, deduped by reply
// id and ordered newest-first. A reply accepted while the database was down
// stays visible after the database recovers.
func mergeReplies(persisted, memory []Reply) []Reply {
	merged := make([]Reply, 0, len(persisted)+len(memory))
	seen := make(map[string]struct{}, len(persisted))

	for _, reply := range persisted {
		merged = append(merged, reply)
		seen[reply.ID] = struct{}{}
	}
	for _, reply := range memory {
		if _, dup := seen[reply.ID]; dup {
			continue
		}
		merged = append(merged, reply)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.After(merged[j].Timestamp)
	})
	return merged
}
