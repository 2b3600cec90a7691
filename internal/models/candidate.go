// ABOUTME: Candidate and ScoredCandidate types for the engagement pipeline
// ABOUTME: Candidates are immutable once fetched; a score is attached by the scorer
package models

import "time"

// PriorityClass tags where a candidate came from; it decides its retry cooldown.
type PriorityClass string

const (
	PriorityInboxReply PriorityClass = "inbox-reply"
	PriorityRising     PriorityClass = "rising-content"
	PriorityNormal     PriorityClass = "normal"
)

// Candidate is an externally discovered item eligible for a reply.
// Immutable once fetched; it lives for exactly one pipeline pass.
type Candidate struct {
	ID           string        `json:"id"`
	PostID       string        `json:"post_id"`
	Subreddit    string        `json:"subreddit"`
	Title        string        `json:"title"`
	Body         string        `json:"body"`
	Author       string        `json:"author"`
	AuthorKarma  int           `json:"author_karma"`
	UpvoteRatio  float64       `json:"upvote_ratio"`
	CommentCount int           `json:"comment_count"`
	Depth        int           `json:"depth"`
	HasQuestion  bool          `json:"has_question"`
	Priority     PriorityClass `json:"priority"`
	ContextURL   string        `json:"context_url"`
	CreatedAt    time.Time     `json:"created_at"`
	// FetchIndex preserves fetch order for stable tie-breaking.
	FetchIndex int `json:"fetch_index"`
}

// ScoredCandidate is a Candidate plus its composite quality score in [0,1].
// Exploration marks candidates admitted past the score threshold to gather
// fresh per-subreddit history.
type ScoredCandidate struct {
	Candidate
	Score       float64 `json:"score"`
	Exploration bool    `json:"exploration"`
}
