package api

import (
	"sync"
	"testing"
	"time"
)

func TestClaimAtMostOnce(t *testing.T) {
	ts := newTokenStore()
	seedToken(ts, "tok-1", time.Now().UTC())

	const claimers = 32

	var wg sync.WaitGroup
	openedAts := make([]time.Time, claimers)
	openedFlags := make([]bool, claimers)

	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			token, found, opened := ts.claim("tok-1", time.Now().UTC())
			if !found {
				t.Errorf("claimer %d: token not found", n)
				return
			}
			if token.OpenedAt == nil {
				t.Errorf("claimer %d: nil openedAt after claim", n)
				return
			}
			openedAts[n] = *token.OpenedAt
			openedFlags[n] = opened
		}(i)
	}
	wg.Wait()

	transitions := 0
	for _, opened := range openedFlags {
		if opened {
			transitions++
		}
	}
	if transitions != 1 {
		t.Fatalf("expected exactly 1 unopened->opened transition, got %d", transitions)
	}

	for i := 1; i < claimers; i++ {
		if !openedAts[i].Equal(openedAts[0]) {
			t.Fatalf("claimer %d observed openedAt %v, want %v", i, openedAts[i], openedAts[0])
		}
	}

	token, _ := ts.get("tok-1")
	if !token.Used {
		t.Fatal("token not marked used after claim")
	}
}

func TestClaimIdempotentReRead(t *testing.T) {
	ts := newTokenStore()
	seedToken(ts, "tok-1", time.Now().UTC())

	first, found, opened := ts.claim("tok-1", time.Date(2025, 10, 20, 8, 0, 0, 0, time.UTC))
	if !found || !opened {
		t.Fatalf("first claim: found=%v opened=%v", found, opened)
	}

	second, found, opened := ts.claim("tok-1", time.Date(2025, 10, 21, 9, 0, 0, 0, time.UTC))
	if !found {
		t.Fatal("second claim: token not found")
	}
	if opened {
		t.Fatal("second claim should not transition again")
	}
	if !second.OpenedAt.Equal(*first.OpenedAt) {
		t.Fatalf("second claim openedAt = %v, want %v", second.OpenedAt, first.OpenedAt)
	}
}

func TestClaimUnknownToken(t *testing.T) {
	ts := newTokenStore()
	if _, found, _ := ts.claim("nope", time.Now()); found {
		t.Fatal("claim of unknown token reported found")
	}
}

func TestRepliesOrderedNewestFirst(t *testing.T) {
	ts := newTokenStore()
	seedToken(ts, "tok-1", time.Now().UTC())

	t1 := time.Date(2025, 10, 20, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)
	t3 := t2.Add(time.Minute)

	// Inserted out of order on purpose; listing orders by timestamp.
	for _, reply := range []Reply{
		{ID: "b", Choice: ChoiceYes, Message: "second", Timestamp: t2},
		{ID: "c", Choice: ChoiceNeedTime, Message: "third", Timestamp: t3},
		{ID: "a", Choice: ChoiceYes, Message: "first", Timestamp: t1},
	} {
		if !ts.saveReply("tok-1", reply) {
			t.Fatalf("saveReply(%s) reported token missing", reply.ID)
		}
	}

	got := ts.replies("tok-1")
	if len(got) != 3 {
		t.Fatalf("replies count = %d, want 3", len(got))
	}
	want := []string{"third", "second", "first"}
	for i, reply := range got {
		if reply.Message != want[i] {
			t.Fatalf("replies[%d] = %q, want %q", i, reply.Message, want[i])
		}
	}
}

func TestRepliesUnknownTokenEmpty(t *testing.T) {
	ts := newTokenStore()
	if got := ts.replies("missing"); len(got) != 0 {
		t.Fatalf("replies for unknown token = %v, want empty", got)
	}
}

func TestCreateTokenDefaults(t *testing.T) {
	ts := newTokenStore()
	now := time.Date(2025, 10, 20, 0, 0, 0, 0, time.UTC)

	token := ts.create(GiftContent{RecipientName: "Chandrika"}, now)
	if token.ID == "" {
		t.Fatal("create returned empty id")
	}
	if token.Used {
		t.Fatal("new token already used")
	}
	if token.OpenedAt != nil {
		t.Fatal("new token already has openedAt")
	}
	if token.ExpiresAt == nil || !token.ExpiresAt.Equal(now.Add(createdTokenLifetime)) {
		t.Fatalf("expiresAt = %v, want %v", token.ExpiresAt, now.Add(createdTokenLifetime))
	}
}
