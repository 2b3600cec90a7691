// ABOUTME: Replay guard storage for idempotent candidate processing
// ABOUTME: Upserts one record per external candidate id with its last disposition
package sqlite

import (
	"database/sql"
	"time"

	"github.com/harper/engage-standalone/internal/models"
)

// ReplayStore handles idempotency records
type ReplayStore struct {
	db *DB
}

// NewReplayStore creates a new ReplayStore
func NewReplayStore(db *DB) *ReplayStore {
	return &ReplayStore{db: db}
}

// Mark upserts the disposition for a candidate id.
func (s *ReplayStore) Mark(candidateID, subreddit string, priority models.PriorityClass, disposition models.Disposition, at time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO replay_guard (candidate_id, subreddit, priority, disposition, last_attempt)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(candidate_id) DO UPDATE SET
			disposition = excluded.disposition,
			priority = excluded.priority,
			last_attempt = excluded.last_attempt
	`, candidateID, subreddit, string(priority), string(disposition), at.UTC())
	return err
}

// Get retrieves the record for a candidate id, or nil if never seen.
func (s *ReplayStore) Get(candidateID string) (*models.ReplayRecord, error) {
	var (
		r           models.ReplayRecord
		priority    string
		disposition string
	)

	err := s.db.QueryRow(`
		SELECT candidate_id, subreddit, priority, disposition, last_attempt
		FROM replay_guard
		WHERE candidate_id = ?
	`, candidateID).Scan(&r.CandidateID, &r.Subreddit, &priority, &disposition, &r.LastAttempt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	r.Priority = models.PriorityClass(priority)
	r.Disposition = models.Disposition(disposition)
	return &r, nil
}
