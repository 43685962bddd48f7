package api

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

const createdTokenLifetime = 30 * 24 * time.Hour

type tokenRecord struct {
	token   GiftToken
	replies []Reply
}

// tokenStore is the authoritative in-memory home for gift tokens and their
// reply logs. All mutation happens under the store mutex so the
// unopened->opened transition is applied at most once per token: every claim
// racing the first one observes the single openedAt the winner stamped.
type tokenStore struct {
	mu     sync.Mutex
	tokens map[string]*tokenRecord
}

func newTokenStore() *tokenStore {
	return &tokenStore{tokens: make(map[string]*tokenRecord)}
}

// get returns a copy of the token, without side effects.
func (ts *tokenStore) get(id string) (GiftToken, bool) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	rec, ok := ts.tokens[id]
	if !ok {
		return GiftToken{}, false
	}
	return rec.token, true
}

// put installs a fully formed token, used for seeding the well-known gift.
func (ts *tokenStore) put(token GiftToken) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.tokens[token.ID] = &tokenRecord{token: token}
}

// create mints a fresh unopened token for the provided content.
func (ts *tokenStore) create(content GiftContent, now time.Time) GiftToken {
	expires := now.Add(createdTokenLifetime)
	token := GiftToken{
		ID:        uuid.New().String(),
		Content:   content,
		CreatedAt: now,
		ExpiresAt: &expires,
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.tokens[token.ID] = &tokenRecord{token: token}
	return token
}

// claim performs the one-way unopened->opened transition. The first caller
// stamps openedAt=now; every later (or concurrently racing) caller gets the
// token back unchanged with that same openedAt. opened reports whether this
// call was the one that performed the transition.
func (ts *tokenStore) claim(id string, now time.Time) (token GiftToken, found, opened bool) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	rec, ok := ts.tokens[id]
	if !ok {
		return GiftToken{}, false, false
	}

	if !rec.token.Used {
		stamped := now
		rec.token.Used = true
		rec.token.OpenedAt = &stamped
		opened = true
	}

	return rec.token, true, opened
}

// saveReply appends a reply to the token's log. Returns false if the token
// does not exist.
func (ts *tokenStore) saveReply(id string, reply Reply) bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	rec, ok := ts.tokens[id]
	if !ok {
		return false
	}
	rec.replies = append(rec.replies, reply)
	return true
}

// replies returns the token's reply log ordered most recent first. Unknown
// tokens yield an empty slice, never an error.
func (ts *tokenStore) replies(id string) []Reply {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	rec, ok := ts.tokens[id]
	if !ok {
		return nil
	}

	out := make([]Reply, len(rec.replies))
	copy(out, rec.replies)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}
