// ABOUTME: Collaborator interfaces the engagement core depends on
// ABOUTME: Implemented by the reddit, llm, and notify adapter packages
package core

import (
	"context"

	"github.com/harper/engage-standalone/internal/models"
)

// CandidateSource fetches engagement candidates from the platform.
type CandidateSource interface {
	// FetchCandidates returns candidates for the given subreddits plus any
	// unread inbox replies, in fetch order.
	FetchCandidates(ctx context.Context, subreddits []string) ([]models.Candidate, error)
}

// DraftGenerator produces a reply draft for a candidate.
type DraftGenerator interface {
	GenerateDraft(ctx context.Context, c models.Candidate) (string, error)
}

// RiskAssessor scores a draft for policy and tone risk in [0.0, 1.0].
type RiskAssessor interface {
	AssessRisk(ctx context.Context, c models.Candidate, draft string) (float64, error)
}

// Notifier delivers an approval request to the human reviewer. The raw
// token must never be logged; it only travels inside the notification.
type Notifier interface {
	NotifyApproval(ctx context.Context, d *models.Decision, rawToken string) error
}

// Publisher posts an approved reply to the platform and returns the
// platform identifier of the created comment.
type Publisher interface {
	PublishReply(ctx context.Context, d *models.Decision) (string, error)
}
