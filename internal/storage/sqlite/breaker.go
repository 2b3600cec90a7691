// ABOUTME: Circuit breaker singleton row with atomic failure accounting
// ABOUTME: Opening at the failure threshold happens inside one UPDATE statement
package sqlite

import (
	"database/sql"
	"time"

	"github.com/harper/engage-standalone/internal/models"
)

// BreakerStore handles the breaker_state singleton row
type BreakerStore struct {
	db *DB
}

// NewBreakerStore creates a new BreakerStore
func NewBreakerStore(db *DB) *BreakerStore {
	return &BreakerStore{db: db}
}

func (s *BreakerStore) ensureRow() error {
	_, err := s.db.Exec(`
		INSERT INTO breaker_state (id, open, consecutive_failures) VALUES (1, 0, 0)
		ON CONFLICT(id) DO NOTHING
	`)
	return err
}

// Get returns the current breaker state, creating the row if needed.
func (s *BreakerStore) Get() (*models.BreakerState, error) {
	if err := s.ensureRow(); err != nil {
		return nil, err
	}

	var (
		st        models.BreakerState
		open      int
		openedAt  sql.NullTime
		reason    sql.NullString
		updatedAt sql.NullTime
	)

	err := s.db.QueryRow(`
		SELECT open, opened_at, reason, consecutive_failures, updated_at
		FROM breaker_state WHERE id = 1
	`).Scan(&open, &openedAt, &reason, &st.ConsecutiveFailures, &updatedAt)
	if err != nil {
		return nil, err
	}

	st.Open = open != 0
	if openedAt.Valid {
		st.OpenedAt = openedAt.Time
	}
	st.Reason = reason.String
	if updatedAt.Valid {
		st.UpdatedAt = updatedAt.Time
	}
	return &st, nil
}

// RecordFailure increments the consecutive failure count and opens the
// breaker when the count reaches the threshold, all in one statement.
// Returns the state after the update.
func (s *BreakerStore) RecordFailure(threshold int, at time.Time) (*models.BreakerState, error) {
	if err := s.ensureRow(); err != nil {
		return nil, err
	}

	_, err := s.db.Exec(`
		UPDATE breaker_state
		SET consecutive_failures = consecutive_failures + 1,
		    open = CASE WHEN consecutive_failures + 1 >= ? THEN 1 ELSE open END,
		    opened_at = CASE WHEN open = 0 AND consecutive_failures + 1 >= ? THEN ? ELSE opened_at END,
		    reason = CASE WHEN open = 0 AND consecutive_failures + 1 >= ? THEN ? ELSE reason END,
		    updated_at = ?
		WHERE id = 1
	`, threshold, threshold, at.UTC(), threshold, models.BreakerReasonFailures, at.UTC())
	if err != nil {
		return nil, err
	}
	return s.Get()
}

// RecordSuccess resets the failure count and closes an open breaker.
func (s *BreakerStore) RecordSuccess(at time.Time) error {
	if err := s.ensureRow(); err != nil {
		return err
	}
	_, err := s.db.Exec(`
		UPDATE breaker_state
		SET consecutive_failures = 0, open = 0, reason = NULL, updated_at = ?
		WHERE id = 1
	`, at.UTC())
	return err
}

// Trip opens the breaker immediately with an explicit reason.
func (s *BreakerStore) Trip(reason string, at time.Time) error {
	if err := s.ensureRow(); err != nil {
		return err
	}
	_, err := s.db.Exec(`
		UPDATE breaker_state
		SET open = 1, opened_at = ?, reason = ?, updated_at = ?
		WHERE id = 1
	`, at.UTC(), reason, at.UTC())
	return err
}

// Reset closes the breaker and clears failure accounting (manual override).
func (s *BreakerStore) Reset(at time.Time) error {
	return s.RecordSuccess(at)
}
