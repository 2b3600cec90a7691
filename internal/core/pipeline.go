// ABOUTME: Candidate pipeline: fetch, dedupe, score, filter, rank, admit
// ABOUTME: Produces the bounded slate of candidates a run may engage
package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/harper/engage-standalone/internal/config"
	"github.com/harper/engage-standalone/internal/models"
)

// Pipeline turns raw platform candidates into an admitted slate, applying
// scoring, threshold filtering, ranking, and quota checks in order.
type Pipeline struct {
	cfg    *config.Config
	source CandidateSource
	scorer *Scorer
	quota  *QuotaEngine
}

func NewPipeline(cfg *config.Config, source CandidateSource, scorer *Scorer, quota *QuotaEngine) *Pipeline {
	return &Pipeline{cfg: cfg, source: source, scorer: scorer, quota: quota}
}

// Skip records a candidate the pipeline refused and why.
type Skip struct {
	CandidateID string
	Subreddit   string
	Score       float64
	Reason      DenialReason
}

// SlateResult is the outcome of one pipeline pass.
type SlateResult struct {
	Admitted []models.ScoredCandidate
	Skipped  []Skip
	Fetched  int
}

// BuildSlate runs the full pipeline once. A fetch error aborts the pass;
// nothing is admitted on partial data.
func (p *Pipeline) BuildSlate(ctx context.Context, now time.Time) (*SlateResult, error) {
	raw, err := p.source.FetchCandidates(ctx, p.cfg.SubredditsList())
	if err != nil {
		return nil, fmt.Errorf("fetching candidates: %w", err)
	}

	candidates := dedupe(raw)
	scored := p.scorer.ScoreAll(candidates, now)

	result := &SlateResult{Fetched: len(raw)}

	eligible := make([]models.ScoredCandidate, 0, len(scored))
	for _, sc := range scored {
		if sc.Score < p.scorer.Threshold() && !sc.Exploration {
			result.Skipped = append(result.Skipped, Skip{
				CandidateID: sc.ID,
				Subreddit:   sc.Subreddit,
				Score:       sc.Score,
				Reason:      DenyBelowThreshold,
			})
			continue
		}
		eligible = append(eligible, sc)
	}

	// Highest score first; fetch order breaks ties deterministically.
	sort.SliceStable(eligible, func(i, j int) bool {
		if eligible[i].Score != eligible[j].Score {
			return eligible[i].Score > eligible[j].Score
		}
		return eligible[i].FetchIndex < eligible[j].FetchIndex
	})

	remaining, err := p.quota.RemainingToday(now)
	if err != nil {
		return nil, err
	}
	limit := p.cfg.MaxPerRun
	if remaining < limit {
		limit = remaining
	}

	runSubreddits := make(map[string]int)
	runPosts := make(map[string]bool)

	for _, sc := range eligible {
		if len(result.Admitted) >= limit {
			break
		}
		if runPosts[sc.PostID] {
			result.Skipped = append(result.Skipped, Skip{sc.ID, sc.Subreddit, sc.Score, DenyPostReplied})
			continue
		}
		persisted, err := p.quota.store.Counters.SubredditCount(models.DayKey(now), sc.Subreddit)
		if err != nil {
			return nil, fmt.Errorf("loading subreddit count: %w", err)
		}
		if persisted+runSubreddits[sc.Subreddit] >= p.cfg.MaxPerSubreddit && sc.Score < p.cfg.DiversityOverride {
			result.Skipped = append(result.Skipped, Skip{sc.ID, sc.Subreddit, sc.Score, DenySubredditLimit})
			continue
		}
		ok, reason, err := p.quota.CanTarget(sc, now)
		if err != nil {
			return nil, err
		}
		if !ok {
			result.Skipped = append(result.Skipped, Skip{sc.ID, sc.Subreddit, sc.Score, reason})
			continue
		}
		result.Admitted = append(result.Admitted, sc)
		runSubreddits[sc.Subreddit]++
		runPosts[sc.PostID] = true
	}

	return result, nil
}

// dedupe keeps the first occurrence of each candidate ID in fetch order.
func dedupe(candidates []models.Candidate) []models.Candidate {
	seen := make(map[string]bool, len(candidates))
	out := make([]models.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out = append(out, c)
	}
	return out
}
