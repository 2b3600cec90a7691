// ABOUTME: Scheduler that drives one engagement pass end to end
// ABOUTME: Sweeps expired work, gates on the breaker, then drafts and issues tokens
package core

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/harper/engage-standalone/internal/config"
	"github.com/harper/engage-standalone/internal/models"
	"github.com/harper/engage-standalone/internal/storage"
	"github.com/harper/engage-standalone/internal/storage/sqlite"
)

// PassResult summarizes one scheduler pass.
type PassResult struct {
	Fetched      int
	Admitted     int
	Drafted      int
	TokensIssued int
	Expired      int
	Backlog      int
	Skipped      []Skip
	BreakerOpen  bool
}

// Scheduler runs the candidate pipeline on a fixed cadence. It is built
// for a single process; all cross-run state lives in the store.
type Scheduler struct {
	cfg      *config.Config
	store    *storage.Storage
	pipeline *Pipeline
	approval *ApprovalService
	quota    *QuotaEngine
	breaker  *Breaker
	drafter  DraftGenerator
	risk     RiskAssessor
}

func NewScheduler(cfg *config.Config, store *storage.Storage, pipeline *Pipeline, approval *ApprovalService, quota *QuotaEngine, breaker *Breaker, drafter DraftGenerator, risk RiskAssessor) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		store:    store,
		pipeline: pipeline,
		approval: approval,
		quota:    quota,
		breaker:  breaker,
		drafter:  drafter,
		risk:     risk,
	}
}

// RunPass executes one full pass: sweep stale tokens, retry the publish
// backlog, and when quota allows, build a slate and issue approval tokens.
func (s *Scheduler) RunPass(ctx context.Context, now time.Time) (*PassResult, error) {
	result := &PassResult{}

	expired, err := s.approval.Sweep(now)
	if err != nil {
		return result, fmt.Errorf("sweeping stale tokens: %w", err)
	}
	result.Expired = expired

	open, err := s.breaker.Open()
	if err != nil {
		return result, err
	}
	result.BreakerOpen = open
	if open {
		probe, perr := s.breaker.CanProbe(now)
		if perr != nil {
			return result, perr
		}
		if !probe {
			log.Printf("[Scheduler] Breaker open, pass skipped")
			return result, nil
		}
		// One backlog publish serves as the probe; new candidate work
		// stays blocked until the breaker closes.
		published, berr := s.approval.PublishApproved(ctx, now)
		if berr != nil {
			return result, berr
		}
		result.Backlog = published
		return result, nil
	}

	backlog, err := s.approval.PublishApproved(ctx, now)
	if err != nil {
		return result, err
	}
	result.Backlog = backlog

	ok, reason, err := s.quota.CanAdmitNewWork(0, now)
	if err != nil {
		return result, err
	}
	if !ok {
		log.Printf("[Scheduler] No new work admitted: %s", reason)
		return result, nil
	}

	slate, err := s.pipeline.BuildSlate(ctx, now)
	if err != nil {
		s.logError(sqlite.ErrTypeFetch, "", err)
		return result, err
	}
	result.Fetched = slate.Fetched
	result.Admitted = len(slate.Admitted)
	result.Skipped = slate.Skipped

	drafted := s.draftAll(ctx, slate.Admitted, now)
	result.Drafted = len(drafted)

	issued, err := s.approval.IssuePending(ctx, now)
	if err != nil {
		return result, err
	}
	result.TokensIssued = issued

	log.Printf("[Scheduler] Pass complete: fetched=%d admitted=%d drafted=%d issued=%d expired=%d backlog=%d",
		result.Fetched, result.Admitted, result.Drafted, result.TokensIssued, result.Expired, result.Backlog)
	return result, nil
}

type draftOutcome struct {
	candidate models.ScoredCandidate
	draft     string
	risk      float64
	err       error
}

// draftAll generates drafts and risk scores concurrently, then records a
// PENDING decision for each success in slate order.
func (s *Scheduler) draftAll(ctx context.Context, admitted []models.ScoredCandidate, now time.Time) []*models.Decision {
	outcomes := make([]draftOutcome, len(admitted))
	var wg sync.WaitGroup
	for i, sc := range admitted {
		wg.Add(1)
		go func(i int, sc models.ScoredCandidate) {
			defer wg.Done()
			outcomes[i] = s.draftOne(ctx, sc)
		}(i, sc)
	}
	wg.Wait()

	decisions := make([]*models.Decision, 0, len(admitted))
	for _, out := range outcomes {
		if out.err != nil {
			log.Printf("[Scheduler] Draft failed for candidate %s: %v", out.candidate.ID, out.err)
			continue
		}
		d, err := s.approval.CreateDecision(out.candidate, out.draft, out.risk, now)
		if err != nil {
			log.Printf("[Scheduler] Decision create failed for candidate %s: %v", out.candidate.ID, err)
			continue
		}
		decisions = append(decisions, d)
	}
	return decisions
}

func (s *Scheduler) draftOne(ctx context.Context, sc models.ScoredCandidate) draftOutcome {
	out := draftOutcome{candidate: sc}
	draft, err := s.drafter.GenerateDraft(ctx, sc.Candidate)
	if err != nil {
		s.logError(sqlite.ErrTypeDraft, sc.ID, err)
		out.err = fmt.Errorf("generating draft: %w", err)
		return out
	}
	risk, err := s.risk.AssessRisk(ctx, sc.Candidate, draft)
	if err != nil {
		s.logError(sqlite.ErrTypeRisk, sc.ID, err)
		out.err = fmt.Errorf("assessing risk: %w", err)
		return out
	}
	out.draft = draft
	out.risk = risk
	return out
}

// Run loops RunPass on the configured interval until the context ends.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunPass(ctx, time.Now().UTC()); err != nil {
			log.Printf("[Scheduler] Pass error: %v", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) logError(errType, itemID string, err error) {
	if lerr := s.store.Errors.Append(itemID, errType, err.Error(), time.Now().UTC()); lerr != nil {
		log.Printf("[Scheduler] Failed to append error log: %v", lerr)
	}
}
