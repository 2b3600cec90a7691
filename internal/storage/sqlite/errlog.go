// ABOUTME: Append-only error log for failed collaborator calls and publish errors
// ABOUTME: Entries carry diagnostic context but never raw tokens or credentials
package sqlite

import "time"

// Error types recorded in the log.
const (
	ErrTypeFetch    = "FETCH_FAILED"
	ErrTypeDraft    = "DRAFT_FAILED"
	ErrTypeRisk     = "RISK_FAILED"
	ErrTypeNotify   = "NOTIFY_FAILED"
	ErrTypePublish  = "PUBLISH_FAILED"
	ErrTypeAnomaly  = "ANOMALY_SIGNAL"
	ErrTypeInternal = "INTERNAL"
)

// ErrorEntry is one append-only log row.
type ErrorEntry struct {
	ID        int64
	ItemID    string
	ErrorType string
	Message   string
	CreatedAt time.Time
}

// ErrorLogStore handles the append-only error log
type ErrorLogStore struct {
	db *DB
}

// NewErrorLogStore creates a new ErrorLogStore
func NewErrorLogStore(db *DB) *ErrorLogStore {
	return &ErrorLogStore{db: db}
}

// Append records an error.
func (s *ErrorLogStore) Append(itemID, errorType, message string, at time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO error_log (item_id, error_type, message, created_at)
		VALUES (?, ?, ?, ?)
	`, nullString(itemID), errorType, message, at.UTC())
	return err
}

// Recent returns the newest entries, newest first.
func (s *ErrorLogStore) Recent(limit int) ([]ErrorEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, COALESCE(item_id, ''), error_type, message, created_at
		FROM error_log
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []ErrorEntry
	for rows.Next() {
		var e ErrorEntry
		if err := rows.Scan(&e.ID, &e.ItemID, &e.ErrorType, &e.Message, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
