// ABOUTME: Tests for the replay guard store
// ABOUTME: Verifies upsert semantics and disposition retrieval
package sqlite

import (
	"testing"
	"time"

	"github.com/harper/engage-standalone/internal/models"
)

func TestReplayMarkAndGet(t *testing.T) {
	db := newTestDB(t)
	store := NewReplayStore(db)

	at := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	if err := store.Mark("t1_cand", "golang", models.PriorityNormal, models.DispositionPending, at); err != nil {
		t.Fatalf("Mark() error = %v", err)
	}

	rec, err := store.Get("t1_cand")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if rec == nil {
		t.Fatal("Get() returned nil for marked candidate")
	}
	if rec.Disposition != models.DispositionPending {
		t.Errorf("Disposition = %q, want PENDING", rec.Disposition)
	}
	if rec.Priority != models.PriorityNormal {
		t.Errorf("Priority = %q, want normal", rec.Priority)
	}
	if !rec.LastAttempt.Equal(at) {
		t.Errorf("LastAttempt = %v, want %v", rec.LastAttempt, at)
	}
}

func TestReplayMark_UpsertOverwrites(t *testing.T) {
	db := newTestDB(t)
	store := NewReplayStore(db)

	first := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	later := first.Add(2 * time.Hour)

	if err := store.Mark("t1_cand", "golang", models.PriorityInboxReply, models.DispositionFailed, first); err != nil {
		t.Fatalf("Mark() error = %v", err)
	}
	if err := store.Mark("t1_cand", "golang", models.PriorityInboxReply, models.DispositionSuccess, later); err != nil {
		t.Fatalf("Mark() upsert error = %v", err)
	}

	rec, err := store.Get("t1_cand")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if rec.Disposition != models.DispositionSuccess {
		t.Errorf("Disposition = %q, want SUCCESS after upsert", rec.Disposition)
	}
	if !rec.LastAttempt.Equal(later) {
		t.Errorf("LastAttempt = %v, want %v", rec.LastAttempt, later)
	}
}

func TestReplayGet_NeverSeen(t *testing.T) {
	db := newTestDB(t)
	store := NewReplayStore(db)

	rec, err := store.Get("t1_unknown")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if rec != nil {
		t.Errorf("Get(unknown) = %+v, want nil", rec)
	}
}
