// ABOUTME: Approval token storage with the atomic one-time consumption claim
// ABOUTME: Consume is a single UPDATE guarded on consumed_at IS NULL (first writer wins)
package sqlite

import (
	"database/sql"
	"time"

	"github.com/harper/engage-standalone/internal/models"
)

// TokenStore handles approval token persistence
type TokenStore struct {
	db *DB
}

// NewTokenStore creates a new TokenStore
func NewTokenStore(db *DB) *TokenStore {
	return &TokenStore{db: db}
}

// Insert persists a freshly issued token (hash only, not yet notified).
func (s *TokenStore) Insert(t *models.ApprovalToken) error {
	_, err := s.db.Exec(`
		INSERT INTO approval_tokens (token_hash, decision_id, issued_at, expires_at, notified)
		VALUES (?, ?, ?, ?, ?)
	`, t.TokenHash, t.DecisionID, t.IssuedAt.UTC(), t.ExpiresAt.UTC(), boolToInt(t.Notified))
	return err
}

// GetByHash retrieves a token by its hash, or nil when absent.
func (s *TokenStore) GetByHash(hash string) (*models.ApprovalToken, error) {
	var (
		t          models.ApprovalToken
		consumedAt sql.NullTime
		notified   int
	)

	err := s.db.QueryRow(`
		SELECT token_hash, decision_id, issued_at, expires_at, consumed_at, notified
		FROM approval_tokens
		WHERE token_hash = ?
	`, hash).Scan(&t.TokenHash, &t.DecisionID, &t.IssuedAt, &t.ExpiresAt, &consumedAt, &notified)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if consumedAt.Valid {
		c := consumedAt.Time
		t.ConsumedAt = &c
	}
	t.Notified = notified != 0
	return &t, nil
}

// MarkNotified flags the token as dispatched; only notified tokens are redeemable.
func (s *TokenStore) MarkNotified(hash string) error {
	_, err := s.db.Exec(`UPDATE approval_tokens SET notified = 1 WHERE token_hash = ?`, hash)
	return err
}

// Delete removes a token row (used when notification dispatch fails).
func (s *TokenStore) Delete(hash string) error {
	_, err := s.db.Exec(`DELETE FROM approval_tokens WHERE token_hash = ?`, hash)
	return err
}

// Consume claims the token: sets consumed_at iff it is still unset.
// Returns true for the single winning caller; every other caller gets
// false regardless of interleaving.
func (s *TokenStore) Consume(hash string, at time.Time) (bool, error) {
	res, err := s.db.Exec(`
		UPDATE approval_tokens
		SET consumed_at = ?
		WHERE token_hash = ? AND consumed_at IS NULL
	`, at.UTC(), hash)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ListStaleDecisions returns decision ids of notified tokens past their
// TTL that were never consumed, for the expiry sweep.
func (s *TokenStore) ListStaleDecisions(now time.Time) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT decision_id
		FROM approval_tokens
		WHERE notified = 1 AND consumed_at IS NULL AND expires_at < ?
	`, now.UTC())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// DeleteUnnotified removes orphan tokens whose dispatch never completed
// (e.g. a crash between persistence and notification).
func (s *TokenStore) DeleteUnnotified(before time.Time) (int64, error) {
	res, err := s.db.Exec(`
		DELETE FROM approval_tokens
		WHERE notified = 0 AND issued_at < ?
	`, before.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
