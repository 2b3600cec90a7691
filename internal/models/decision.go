// ABOUTME: Decision represents a drafted reply moving through the approval state machine
// ABOUTME: Status transitions are validated here; terminal states never transition again
package models

import "time"

// DecisionStatus is the approval state machine state.
type DecisionStatus string

const (
	StatusPending     DecisionStatus = "PENDING"
	StatusTokenIssued DecisionStatus = "TOKEN_ISSUED"
	StatusApproved    DecisionStatus = "APPROVED"
	StatusPublished   DecisionStatus = "PUBLISHED"
	StatusRejected    DecisionStatus = "REJECTED"
	StatusExpired     DecisionStatus = "EXPIRED"
)

// Rejection reason codes persisted with a decision.
const (
	ReasonReviewerRejected = "rejected_by_reviewer"
	ReasonQuotaAtPublish   = "quota_exceeded_at_publish"
	ReasonTokenExpired     = "token_expired"
)

var allowedTransitions = map[DecisionStatus][]DecisionStatus{
	StatusPending:     {StatusTokenIssued},
	StatusTokenIssued: {StatusApproved, StatusRejected, StatusExpired},
	StatusApproved:    {StatusPublished, StatusRejected},
}

// CanTransitionTo reports whether the state machine allows moving to next.
func (s DecisionStatus) CanTransitionTo(next DecisionStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are allowed.
func (s DecisionStatus) Terminal() bool {
	return len(allowedTransitions[s]) == 0
}

// Decision binds a scored candidate to a generated draft and a risk score.
// It is created once per candidate that survives filtering and destroyed
// (terminally) as PUBLISHED, REJECTED, or EXPIRED.
type Decision struct {
	DecisionID   string         `json:"decision_id"`
	CandidateID  string         `json:"candidate_id"`
	PostID       string         `json:"post_id"`
	Subreddit    string         `json:"subreddit"`
	Priority     PriorityClass  `json:"priority"`
	Draft        string         `json:"draft"`
	RiskScore    float64        `json:"risk_score"`
	QualityScore float64        `json:"quality_score"`
	Exploration  bool           `json:"exploration"`
	Status       DecisionStatus `json:"status"`
	Reason       string         `json:"reason,omitempty"`
	ContextURL   string         `json:"context_url"`
	CommentID    string         `json:"comment_id,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	ApprovedAt   *time.Time     `json:"approved_at,omitempty"`
	PublishedAt  *time.Time     `json:"published_at,omitempty"`
}
