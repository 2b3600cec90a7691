// ABOUTME: ReplayRecord is the idempotency record keyed by external candidate id
// ABOUTME: Dispositions decide whether and when an item may be reconsidered
package models

import "time"

// Disposition is the last recorded outcome for a candidate id.
type Disposition string

const (
	// DispositionPending means a decision for the item is in flight.
	DispositionPending Disposition = "PENDING"
	// DispositionSuccess means a reply was published; never reconsidered.
	DispositionSuccess Disposition = "SUCCESS"
	// DispositionFailed means a transient failure; retried after cooldown.
	DispositionFailed Disposition = "FAILED"
	// DispositionSkipped means a reviewer or quota rejection; never reconsidered.
	DispositionSkipped Disposition = "SKIPPED"
)

// ReplayRecord makes repeated pipeline passes idempotent.
type ReplayRecord struct {
	CandidateID string        `json:"candidate_id"`
	Subreddit   string        `json:"subreddit"`
	Priority    PriorityClass `json:"priority"`
	Disposition Disposition   `json:"disposition"`
	LastAttempt time.Time     `json:"last_attempt"`
}

// DayKey returns the UTC calendar day key used by daily counters.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
