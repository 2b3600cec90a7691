// ABOUTME: Decision storage operations for SQLite
// ABOUTME: Status transitions are single compare-and-set UPDATE statements
package sqlite

import (
	"database/sql"
	"strings"
	"time"

	"github.com/harper/engage-standalone/internal/models"
)

// DecisionStore handles decision persistence
type DecisionStore struct {
	db *DB
}

// NewDecisionStore creates a new DecisionStore
func NewDecisionStore(db *DB) *DecisionStore {
	return &DecisionStore{db: db}
}

// Save inserts a new decision. Inserting a second decision for the same
// candidate id fails the UNIQUE constraint; callers treat that as a
// duplicate and skip gracefully.
func (s *DecisionStore) Save(d *models.Decision) error {
	createdAt := d.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.Exec(`
		INSERT INTO decisions
			(decision_id, candidate_id, post_id, subreddit, priority, draft,
			 risk_score, quality_score, exploration, status, reason, context_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, d.DecisionID, d.CandidateID, d.PostID, d.Subreddit, string(d.Priority), d.Draft,
		d.RiskScore, d.QualityScore, boolToInt(d.Exploration), string(d.Status),
		nullString(d.Reason), nullString(d.ContextURL), createdAt)

	return err
}

// IsDuplicate reports whether err is the UNIQUE violation from Save.
func IsDuplicate(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// GetByID retrieves a decision by its ID
func (s *DecisionStore) GetByID(decisionID string) (*models.Decision, error) {
	row := s.db.QueryRow(`
		SELECT decision_id, candidate_id, post_id, subreddit, priority, draft,
		       risk_score, quality_score, exploration, status, reason, context_url,
		       comment_id, created_at, approved_at, published_at
		FROM decisions
		WHERE decision_id = ?
	`, decisionID)

	return scanDecision(row)
}

// ListByStatus returns decisions in a given state, oldest first.
func (s *DecisionStore) ListByStatus(status models.DecisionStatus, limit int) ([]models.Decision, error) {
	rows, err := s.db.Query(`
		SELECT decision_id, candidate_id, post_id, subreddit, priority, draft,
		       risk_score, quality_score, exploration, status, reason, context_url,
		       comment_id, created_at, approved_at, published_at
		FROM decisions
		WHERE status = ?
		ORDER BY created_at ASC
		LIMIT ?
	`, string(status), limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.Decision
	for rows.Next() {
		d, err := scanDecisionRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// Transition atomically moves a decision from one status to another.
// Returns false when the decision is not in the expected state or the
// state machine forbids the move; terminal states never transition.
// The single guarded UPDATE makes concurrent transitions race-safe
// (first writer wins).
func (s *DecisionStore) Transition(decisionID string, from, to models.DecisionStatus, reason string) (bool, error) {
	if !from.CanTransitionTo(to) {
		return false, nil
	}
	res, err := s.db.Exec(`
		UPDATE decisions
		SET status = ?, reason = ?
		WHERE decision_id = ? AND status = ?
	`, string(to), nullString(reason), decisionID, string(from))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// SetApproved records the approval timestamp alongside the transition.
func (s *DecisionStore) SetApproved(decisionID string, at time.Time) (bool, error) {
	res, err := s.db.Exec(`
		UPDATE decisions
		SET status = ?, approved_at = ?
		WHERE decision_id = ? AND status = ?
	`, string(models.StatusApproved), at.UTC(), decisionID, string(models.StatusTokenIssued))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// SetPublished records the publish receipt alongside the terminal transition.
func (s *DecisionStore) SetPublished(decisionID, commentID string, at time.Time) (bool, error) {
	res, err := s.db.Exec(`
		UPDATE decisions
		SET status = ?, comment_id = ?, published_at = ?
		WHERE decision_id = ? AND status = ?
	`, string(models.StatusPublished), commentID, at.UTC(), decisionID, string(models.StatusApproved))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// OutcomeCounts returns published and rejected decision counts for a
// subreddit, feeding the historical scoring factor.
func (s *DecisionStore) OutcomeCounts(subreddit string) (published, rejected int, err error) {
	err = s.db.QueryRow(`
		SELECT
			COUNT(CASE WHEN status = ? THEN 1 END),
			COUNT(CASE WHEN status = ? THEN 1 END)
		FROM decisions
		WHERE subreddit = ?
	`, string(models.StatusPublished), string(models.StatusRejected), subreddit).
		Scan(&published, &rejected)
	return published, rejected, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDecision(row *sql.Row) (*models.Decision, error) {
	d, err := scanDecisionRows(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return d, err
}

func scanDecisionRows(row rowScanner) (*models.Decision, error) {
	var (
		d           models.Decision
		priority    string
		status      string
		exploration int
		reason      sql.NullString
		contextURL  sql.NullString
		commentID   sql.NullString
		approvedAt  sql.NullTime
		publishedAt sql.NullTime
	)

	err := row.Scan(&d.DecisionID, &d.CandidateID, &d.PostID, &d.Subreddit, &priority,
		&d.Draft, &d.RiskScore, &d.QualityScore, &exploration, &status, &reason,
		&contextURL, &commentID, &d.CreatedAt, &approvedAt, &publishedAt)
	if err != nil {
		return nil, err
	}

	d.Priority = models.PriorityClass(priority)
	d.Status = models.DecisionStatus(status)
	d.Exploration = exploration != 0
	d.Reason = reason.String
	d.ContextURL = contextURL.String
	d.CommentID = commentID.String
	if approvedAt.Valid {
		t := approvedAt.Time
		d.ApprovedAt = &t
	}
	if publishedAt.Valid {
		t := publishedAt.Time
		d.PublishedAt = &t
	}
	return &d, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
