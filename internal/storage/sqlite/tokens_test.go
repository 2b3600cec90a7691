// ABOUTME: Tests for approval token storage and the one-time consumption claim
// ABOUTME: Verifies exactly-one-winner semantics under concurrent redemption
package sqlite

import (
	"sync"
	"testing"
	"time"

	"github.com/harper/engage-standalone/internal/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func saveTestDecision(t *testing.T, db *DB, decisionID, candidateID string) {
	t.Helper()
	store := NewDecisionStore(db)
	err := store.Save(&models.Decision{
		DecisionID:  decisionID,
		CandidateID: candidateID,
		PostID:      "t3_post1",
		Subreddit:   "golang",
		Priority:    models.PriorityNormal,
		Draft:       "a draft reply",
		Status:      models.StatusPending,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Save decision error = %v", err)
	}
}

func TestTokenInsertAndGet(t *testing.T) {
	db := newTestDB(t)
	saveTestDecision(t, db, "dec_1", "cand_1")
	store := NewTokenStore(db)

	issued := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	tok := &models.ApprovalToken{
		TokenHash:  models.HashToken("raw-token"),
		DecisionID: "dec_1",
		IssuedAt:   issued,
		ExpiresAt:  issued.Add(models.TokenTTL),
	}

	if err := store.Insert(tok); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	got, err := store.GetByHash(tok.TokenHash)
	if err != nil {
		t.Fatalf("GetByHash() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetByHash() returned nil")
	}
	if got.DecisionID != "dec_1" {
		t.Errorf("DecisionID = %q, want dec_1", got.DecisionID)
	}
	if got.Consumed() {
		t.Error("fresh token should not be consumed")
	}
	if got.Notified {
		t.Error("fresh token should not be notified")
	}

	// Unknown hash returns nil without error
	missing, err := store.GetByHash(models.HashToken("other"))
	if err != nil {
		t.Fatalf("GetByHash(missing) error = %v", err)
	}
	if missing != nil {
		t.Error("GetByHash(missing) should return nil")
	}
}

func TestTokenConsume_OnlyOnce(t *testing.T) {
	db := newTestDB(t)
	saveTestDecision(t, db, "dec_1", "cand_1")
	store := NewTokenStore(db)

	hash := models.HashToken("raw")
	now := time.Now().UTC()
	err := store.Insert(&models.ApprovalToken{
		TokenHash: hash, DecisionID: "dec_1",
		IssuedAt: now, ExpiresAt: now.Add(models.TokenTTL),
	})
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	ok, err := store.Consume(hash, now)
	if err != nil {
		t.Fatalf("Consume() error = %v", err)
	}
	if !ok {
		t.Fatal("first Consume() should succeed")
	}

	ok, err = store.Consume(hash, now.Add(time.Second))
	if err != nil {
		t.Fatalf("second Consume() error = %v", err)
	}
	if ok {
		t.Error("second Consume() should fail")
	}

	got, err := store.GetByHash(hash)
	if err != nil {
		t.Fatalf("GetByHash() error = %v", err)
	}
	if !got.Consumed() {
		t.Error("token should be consumed")
	}
}

func TestTokenConsume_ConcurrentSingleWinner(t *testing.T) {
	db := newTestDB(t)
	saveTestDecision(t, db, "dec_1", "cand_1")
	store := NewTokenStore(db)

	hash := models.HashToken("raced")
	now := time.Now().UTC()
	if err := store.Insert(&models.ApprovalToken{
		TokenHash: hash, DecisionID: "dec_1",
		IssuedAt: now, ExpiresAt: now.Add(models.TokenTTL),
	}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	const callers = 16
	var wg sync.WaitGroup
	wins := make(chan bool, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.Consume(hash, time.Now().UTC())
			if err != nil {
				t.Errorf("Consume() error = %v", err)
				return
			}
			wins <- ok
		}()
	}
	wg.Wait()
	close(wins)

	winners := 0
	for ok := range wins {
		if ok {
			winners++
		}
	}
	if winners != 1 {
		t.Errorf("winners = %d, want exactly 1", winners)
	}
}

func TestTokenListStaleDecisions(t *testing.T) {
	db := newTestDB(t)
	saveTestDecision(t, db, "dec_old", "cand_old")
	saveTestDecision(t, db, "dec_fresh", "cand_fresh")
	saveTestDecision(t, db, "dec_unnotified", "cand_unnotified")
	store := NewTokenStore(db)

	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)

	// Expired and notified: stale
	old := &models.ApprovalToken{
		TokenHash: models.HashToken("old"), DecisionID: "dec_old",
		IssuedAt: now.Add(-50 * time.Hour), ExpiresAt: now.Add(-2 * time.Hour),
	}
	// Not expired: not stale
	fresh := &models.ApprovalToken{
		TokenHash: models.HashToken("fresh"), DecisionID: "dec_fresh",
		IssuedAt: now, ExpiresAt: now.Add(models.TokenTTL),
	}
	// Expired but never notified: cleaned up separately, not swept
	orphan := &models.ApprovalToken{
		TokenHash: models.HashToken("orphan"), DecisionID: "dec_unnotified",
		IssuedAt: now.Add(-50 * time.Hour), ExpiresAt: now.Add(-2 * time.Hour),
	}

	for _, tok := range []*models.ApprovalToken{old, fresh, orphan} {
		if err := store.Insert(tok); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}
	if err := store.MarkNotified(old.TokenHash); err != nil {
		t.Fatalf("MarkNotified() error = %v", err)
	}
	if err := store.MarkNotified(fresh.TokenHash); err != nil {
		t.Fatalf("MarkNotified() error = %v", err)
	}

	stale, err := store.ListStaleDecisions(now)
	if err != nil {
		t.Fatalf("ListStaleDecisions() error = %v", err)
	}
	if len(stale) != 1 || stale[0] != "dec_old" {
		t.Errorf("stale = %v, want [dec_old]", stale)
	}

	deleted, err := store.DeleteUnnotified(now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("DeleteUnnotified() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("DeleteUnnotified() = %d, want 1", deleted)
	}
}

func TestTokenDelete(t *testing.T) {
	db := newTestDB(t)
	saveTestDecision(t, db, "dec_1", "cand_1")
	store := NewTokenStore(db)

	hash := models.HashToken("doomed")
	now := time.Now().UTC()
	if err := store.Insert(&models.ApprovalToken{
		TokenHash: hash, DecisionID: "dec_1",
		IssuedAt: now, ExpiresAt: now.Add(models.TokenTTL),
	}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	if err := store.Delete(hash); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	got, err := store.GetByHash(hash)
	if err != nil {
		t.Fatalf("GetByHash() error = %v", err)
	}
	if got != nil {
		t.Error("token should be gone after Delete()")
	}
}
