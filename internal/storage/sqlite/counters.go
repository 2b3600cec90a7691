// ABOUTME: Daily counter storage with ceiling-guarded atomic increments
// ABOUTME: The daily publish ceiling is enforced inside a single UPDATE statement
package sqlite

// CounterStore handles daily publish counters, per-subreddit counters,
// and the per-post reply set. All keys are UTC day strings.
type CounterStore struct {
	db *DB
}

// NewCounterStore creates a new CounterStore
func NewCounterStore(db *DB) *CounterStore {
	return &CounterStore{db: db}
}

// Published returns the publish count for a UTC day.
func (s *CounterStore) Published(day string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COALESCE(SUM(published), 0) FROM daily_stats WHERE day = ?`, day).Scan(&n)
	return n, err
}

// IncrementPublished reserves one publish slot for the day iff the count
// is still below the ceiling. Returns false when the ceiling is reached;
// under concurrent callers the count can never exceed the ceiling.
func (s *CounterStore) IncrementPublished(day string, ceiling int) (bool, error) {
	if _, err := s.db.Exec(`
		INSERT INTO daily_stats (day, published) VALUES (?, 0)
		ON CONFLICT(day) DO NOTHING
	`, day); err != nil {
		return false, err
	}

	res, err := s.db.Exec(`
		UPDATE daily_stats
		SET published = published + 1
		WHERE day = ? AND published < ?
	`, day, ceiling)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ReleasePublished returns a reserved slot after a failed publish.
func (s *CounterStore) ReleasePublished(day string) error {
	_, err := s.db.Exec(`
		UPDATE daily_stats
		SET published = published - 1
		WHERE day = ? AND published > 0
	`, day)
	return err
}

// SubredditCount returns today's publish count for a subreddit.
func (s *CounterStore) SubredditCount(day, subreddit string) (int, error) {
	var n int
	err := s.db.QueryRow(`
		SELECT COALESCE(SUM(published), 0) FROM subreddit_stats WHERE day = ? AND subreddit = ?
	`, day, subreddit).Scan(&n)
	return n, err
}

// IncrementSubreddit bumps the per-subreddit counter for the day.
func (s *CounterStore) IncrementSubreddit(day, subreddit string) error {
	_, err := s.db.Exec(`
		INSERT INTO subreddit_stats (day, subreddit, published) VALUES (?, ?, 1)
		ON CONFLICT(day, subreddit) DO UPDATE SET published = published + 1
	`, day, subreddit)
	return err
}

// HasPostReply reports whether a post already received a reply that day.
func (s *CounterStore) HasPostReply(day, postID string) (bool, error) {
	var n int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM post_replies WHERE day = ? AND post_id = ?
	`, day, postID).Scan(&n)
	return n > 0, err
}

// MarkPostReplied records a post id in the day's replied set. Idempotent.
func (s *CounterStore) MarkPostReplied(day, postID string) error {
	_, err := s.db.Exec(`
		INSERT INTO post_replies (day, post_id) VALUES (?, ?)
		ON CONFLICT(day, post_id) DO NOTHING
	`, day, postID)
	return err
}
