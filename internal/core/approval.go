// ABOUTME: Approval state machine: decision creation, token issuance, redemption
// ABOUTME: Tokens are one-time, hashed at rest, and consumed atomically
package core

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/harper/engage-standalone/internal/config"
	"github.com/harper/engage-standalone/internal/models"
	"github.com/harper/engage-standalone/internal/storage"
	"github.com/harper/engage-standalone/internal/storage/sqlite"
)

// ApprovalService owns the decision lifecycle from PENDING through the
// terminal states. Every transition is a compare-and-set in the store, so
// concurrent redemptions and sweeps cannot double-apply.
type ApprovalService struct {
	cfg       *config.Config
	store     *storage.Storage
	quota     *QuotaEngine
	breaker   *Breaker
	notifier  Notifier
	publisher Publisher
}

func NewApprovalService(cfg *config.Config, store *storage.Storage, quota *QuotaEngine, breaker *Breaker, notifier Notifier, publisher Publisher) *ApprovalService {
	return &ApprovalService{
		cfg:       cfg,
		store:     store,
		quota:     quota,
		breaker:   breaker,
		notifier:  notifier,
		publisher: publisher,
	}
}

// CreateDecision records a drafted candidate as a PENDING decision and
// marks the candidate in the replay guard so later runs skip it. A second
// decision for the same candidate is rejected by the store.
func (s *ApprovalService) CreateDecision(sc models.ScoredCandidate, draft string, riskScore float64, now time.Time) (*models.Decision, error) {
	d := &models.Decision{
		DecisionID:   uuid.New().String(),
		CandidateID:  sc.ID,
		PostID:       sc.PostID,
		Subreddit:    sc.Subreddit,
		Priority:     sc.Priority,
		Draft:        draft,
		RiskScore:    riskScore,
		QualityScore: sc.Score,
		Exploration:  sc.Exploration,
		Status:       models.StatusPending,
		ContextURL:   sc.ContextURL,
		CreatedAt:    now,
	}
	if err := s.store.Decisions.Save(d); err != nil {
		if sqlite.IsDuplicate(err) {
			return nil, fmt.Errorf("candidate %s already has a decision: %w", sc.ID, err)
		}
		return nil, fmt.Errorf("saving decision: %w", err)
	}
	if err := s.store.Replay.Mark(sc.ID, sc.Subreddit, sc.Priority, models.DispositionPending, now); err != nil {
		return nil, fmt.Errorf("marking replay guard: %w", err)
	}
	return d, nil
}

// IssueToken mints a one-time token for a PENDING decision and delivers it
// to the reviewer. Only the SHA-256 hash is stored. The decision moves to
// TOKEN_ISSUED only after delivery succeeds; a failed notification deletes
// the token so the decision can be re-issued on a later pass.
func (s *ApprovalService) IssueToken(ctx context.Context, d *models.Decision, now time.Time) error {
	raw, err := models.NewRawToken()
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}
	token := &models.ApprovalToken{
		TokenHash:  models.HashToken(raw),
		DecisionID: d.DecisionID,
		IssuedAt:   now,
		ExpiresAt:  now.Add(models.TokenTTL),
	}
	if err := s.store.Tokens.Insert(token); err != nil {
		return fmt.Errorf("storing token: %w", err)
	}

	if err := s.notifier.NotifyApproval(ctx, d, raw); err != nil {
		if delErr := s.store.Tokens.Delete(token.TokenHash); delErr != nil {
			log.Printf("[Approval] Failed to delete undelivered token for decision %s: %v", d.DecisionID, delErr)
		}
		s.logError(sqlite.ErrTypeNotify, d.DecisionID, err)
		return fmt.Errorf("notifying reviewer: %w", err)
	}

	if err := s.store.Tokens.MarkNotified(token.TokenHash); err != nil {
		return fmt.Errorf("marking token notified: %w", err)
	}
	ok, err := s.store.Decisions.Transition(d.DecisionID, models.StatusPending, models.StatusTokenIssued, "")
	if err != nil {
		return fmt.Errorf("transitioning decision: %w", err)
	}
	if !ok {
		return fmt.Errorf("decision %s no longer pending", d.DecisionID)
	}
	d.Status = models.StatusTokenIssued
	return nil
}

// IssuePending issues tokens for all PENDING decisions, oldest first.
// Failures are logged and skipped; the decision stays PENDING for retry.
func (s *ApprovalService) IssuePending(ctx context.Context, now time.Time) (int, error) {
	pending, err := s.store.Decisions.ListByStatus(models.StatusPending, s.cfg.MaxPerRun*2)
	if err != nil {
		return 0, fmt.Errorf("listing pending decisions: %w", err)
	}
	issued := 0
	for i := range pending {
		d := &pending[i]
		if err := s.IssueToken(ctx, d, now); err != nil {
			log.Printf("[Approval] Token issue failed for decision %s: %v", d.DecisionID, err)
			continue
		}
		issued++
	}
	return issued, nil
}

// Redeem consumes a raw token and applies the reviewer's verdict. The
// consume step is a single atomic update, so exactly one concurrent
// redemption wins; losers get ErrTokenAlreadyUsed.
func (s *ApprovalService) Redeem(ctx context.Context, rawToken string, approve bool, now time.Time) (*models.Decision, error) {
	token, err := s.store.Tokens.GetByHash(models.HashToken(rawToken))
	if err != nil {
		return nil, fmt.Errorf("loading token: %w", err)
	}
	if token == nil || !token.Notified {
		return nil, ErrTokenNotFound
	}
	if token.Expired(now) {
		// Expiry observed at redemption finalizes the decision the same
		// way the sweep would.
		if _, terr := s.store.Decisions.Transition(token.DecisionID, models.StatusTokenIssued, models.StatusExpired, models.ReasonTokenExpired); terr != nil {
			log.Printf("[Approval] Failed to expire decision %s: %v", token.DecisionID, terr)
		}
		return nil, ErrTokenExpired
	}

	won, err := s.store.Tokens.Consume(token.TokenHash, now)
	if err != nil {
		return nil, fmt.Errorf("consuming token: %w", err)
	}
	if !won {
		return nil, ErrTokenAlreadyUsed
	}

	if !approve {
		ok, err := s.store.Decisions.Transition(token.DecisionID, models.StatusTokenIssued, models.StatusRejected, models.ReasonReviewerRejected)
		if err != nil {
			return nil, fmt.Errorf("rejecting decision: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("decision %s not awaiting review", token.DecisionID)
		}
		d, err := s.store.Decisions.GetByID(token.DecisionID)
		if err != nil {
			return nil, err
		}
		if err := s.store.Replay.Mark(d.CandidateID, d.Subreddit, d.Priority, models.DispositionSkipped, now); err != nil {
			return nil, fmt.Errorf("marking replay guard: %w", err)
		}
		return d, nil
	}

	ok, err := s.store.Decisions.SetApproved(token.DecisionID, now)
	if err != nil {
		return nil, fmt.Errorf("approving decision: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("decision %s not awaiting review", token.DecisionID)
	}
	d, err := s.store.Decisions.GetByID(token.DecisionID)
	if err != nil {
		return nil, err
	}
	if err := s.publishDecision(ctx, d, now); err != nil {
		// Publish failed; the decision stays APPROVED and the backlog
		// retries it on a later pass.
		log.Printf("[Approval] Publish failed for decision %s: %v", d.DecisionID, err)
	}
	refreshed, gerr := s.store.Decisions.GetByID(token.DecisionID)
	if gerr != nil {
		return d, gerr
	}
	return refreshed, nil
}

// publishDecision rechecks quota at publish time, reserves a daily slot,
// and posts the reply. Time can pass between approval and redemption, so
// the quota answer at issuance is not trusted here.
func (s *ApprovalService) publishDecision(ctx context.Context, d *models.Decision, now time.Time) error {
	open, err := s.breaker.Open()
	if err != nil {
		return err
	}
	if open {
		probe, perr := s.breaker.CanProbe(now)
		if perr != nil {
			return perr
		}
		if !probe {
			return fmt.Errorf("breaker open, publish deferred for decision %s", d.DecisionID)
		}
		log.Printf("[Approval] Breaker cooled down, probing with decision %s", d.DecisionID)
	}

	// Time passes between issuance and redemption, and tokens for the
	// same subreddit or post can coexist across passes, so the per-post
	// and per-subreddit rules are re-checked before every publish.
	day := models.DayKey(now)
	replied, err := s.store.Counters.HasPostReply(day, d.PostID)
	if err != nil {
		return fmt.Errorf("loading post reply record: %w", err)
	}
	if replied {
		return s.rejectForQuota(d, now, "post already replied to")
	}
	subCount, err := s.store.Counters.SubredditCount(day, d.Subreddit)
	if err != nil {
		return fmt.Errorf("loading subreddit count: %w", err)
	}
	if subCount >= s.cfg.MaxPerSubreddit && d.QualityScore < s.cfg.DiversityOverride {
		return s.rejectForQuota(d, now, "subreddit limit reached")
	}

	reserved, err := s.store.Counters.IncrementPublished(day, s.cfg.MaxPerDay)
	if err != nil {
		return fmt.Errorf("reserving daily slot: %w", err)
	}
	if !reserved {
		return s.rejectForQuota(d, now, "daily ceiling reached")
	}

	commentID, err := s.publisher.PublishReply(ctx, d)
	if err != nil {
		if relErr := s.store.Counters.ReleasePublished(day); relErr != nil {
			log.Printf("[Approval] Failed to release daily slot: %v", relErr)
		}
		s.logError(sqlite.ErrTypePublish, d.DecisionID, err)
		if merr := s.store.Replay.Mark(d.CandidateID, d.Subreddit, d.Priority, models.DispositionFailed, now); merr != nil {
			log.Printf("[Approval] Failed to mark replay guard: %v", merr)
		}
		if berr := s.breaker.RecordFailure(now); berr != nil {
			log.Printf("[Approval] Failed to record breaker failure: %v", berr)
		}
		return fmt.Errorf("publishing reply: %w", err)
	}

	if _, err := s.store.Decisions.SetPublished(d.DecisionID, commentID, now); err != nil {
		return fmt.Errorf("recording publish: %w", err)
	}
	if err := s.store.Counters.IncrementSubreddit(day, d.Subreddit); err != nil {
		return fmt.Errorf("counting subreddit publish: %w", err)
	}
	if err := s.store.Counters.MarkPostReplied(day, d.PostID); err != nil {
		return fmt.Errorf("marking post replied: %w", err)
	}
	if err := s.store.Replay.Mark(d.CandidateID, d.Subreddit, d.Priority, models.DispositionSuccess, now); err != nil {
		return fmt.Errorf("marking replay guard: %w", err)
	}
	if err := s.breaker.RecordSuccess(now); err != nil {
		return fmt.Errorf("recording breaker success: %w", err)
	}
	log.Printf("[Approval] Published decision %s as comment %s", d.DecisionID, commentID)
	return nil
}

func (s *ApprovalService) rejectForQuota(d *models.Decision, now time.Time, cause string) error {
	ok, err := s.store.Decisions.Transition(d.DecisionID, models.StatusApproved, models.StatusRejected, models.ReasonQuotaAtPublish)
	if err != nil {
		return fmt.Errorf("rejecting for quota: %w", err)
	}
	if ok {
		if merr := s.store.Replay.Mark(d.CandidateID, d.Subreddit, d.Priority, models.DispositionSkipped, now); merr != nil {
			return fmt.Errorf("marking replay guard: %w", merr)
		}
	}
	return fmt.Errorf("%s, decision %s rejected", cause, d.DecisionID)
}

// PublishApproved retries the publish backlog: approved decisions whose
// earlier publish attempt failed. When the breaker is open this doubles as
// its probe path.
func (s *ApprovalService) PublishApproved(ctx context.Context, now time.Time) (int, error) {
	approved, err := s.store.Decisions.ListByStatus(models.StatusApproved, s.cfg.MaxPerRun)
	if err != nil {
		return 0, fmt.Errorf("listing approved decisions: %w", err)
	}
	published := 0
	for i := range approved {
		d := &approved[i]
		if err := s.publishDecision(ctx, d, now); err != nil {
			log.Printf("[Approval] Backlog publish failed for decision %s: %v", d.DecisionID, err)
			continue
		}
		published++
	}
	return published, nil
}

// Sweep expires decisions whose tokens aged out unredeemed and clears
// tokens that were never delivered.
func (s *ApprovalService) Sweep(now time.Time) (int, error) {
	stale, err := s.store.Tokens.ListStaleDecisions(now)
	if err != nil {
		return 0, fmt.Errorf("listing stale tokens: %w", err)
	}
	expired := 0
	for _, decisionID := range stale {
		ok, err := s.store.Decisions.Transition(decisionID, models.StatusTokenIssued, models.StatusExpired, models.ReasonTokenExpired)
		if err != nil {
			return expired, fmt.Errorf("expiring decision %s: %w", decisionID, err)
		}
		if ok {
			expired++
		}
	}
	deleted, err := s.store.Tokens.DeleteUnnotified(now.Add(-time.Hour))
	if err != nil {
		return expired, fmt.Errorf("deleting undelivered tokens: %w", err)
	}
	if deleted > 0 {
		log.Printf("[Approval] Removed %d undelivered tokens", deleted)
	}
	return expired, nil
}

func (s *ApprovalService) logError(errType, itemID string, err error) {
	if lerr := s.store.Errors.Append(itemID, errType, err.Error(), time.Now().UTC()); lerr != nil {
		log.Printf("[Approval] Failed to append error log: %v", lerr)
	}
}
