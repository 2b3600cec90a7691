// ABOUTME: Quota engine enforcing daily, per-run, per-subreddit, and per-post caps
// ABOUTME: Consults the replay guard and circuit breaker before admitting work
package core

import (
	"fmt"
	"time"

	"github.com/harper/engage-standalone/internal/config"
	"github.com/harper/engage-standalone/internal/models"
	"github.com/harper/engage-standalone/internal/storage"
)

// DenialReason explains why a candidate or run was refused.
type DenialReason string

const (
	DenyBreakerOpen     DenialReason = "breaker_open"
	DenyDailyCeiling    DenialReason = "daily_ceiling_reached"
	DenyRunCeiling      DenialReason = "run_ceiling_reached"
	DenyReplayExcluded  DenialReason = "already_handled"
	DenyReplayCooldown  DenialReason = "retry_cooldown_active"
	DenyPostReplied     DenialReason = "post_already_replied"
	DenySubredditLimit  DenialReason = "subreddit_limit_reached"
	DenyBelowThreshold  DenialReason = "score_below_threshold"
)

// QuotaEngine answers admission questions against persisted counters.
type QuotaEngine struct {
	cfg   *config.Config
	store *storage.Storage
}

func NewQuotaEngine(cfg *config.Config, store *storage.Storage) *QuotaEngine {
	return &QuotaEngine{cfg: cfg, store: store}
}

// CanAdmitNewWork gates the start of a run: breaker closed, daily ceiling
// not reached, and per-run ceiling not reached.
func (q *QuotaEngine) CanAdmitNewWork(publishedThisRun int, now time.Time) (bool, DenialReason, error) {
	state, err := q.store.Breaker.Get()
	if err != nil {
		return false, "", fmt.Errorf("loading breaker state: %w", err)
	}
	if state.Open {
		return false, DenyBreakerOpen, nil
	}
	published, err := q.store.Counters.Published(models.DayKey(now))
	if err != nil {
		return false, "", fmt.Errorf("loading daily count: %w", err)
	}
	if published >= q.cfg.MaxPerDay {
		return false, DenyDailyCeiling, nil
	}
	if publishedThisRun >= q.cfg.MaxPerRun {
		return false, DenyRunCeiling, nil
	}
	return true, "", nil
}

// RemainingToday returns how many publish slots the daily ceiling leaves.
func (q *QuotaEngine) RemainingToday(now time.Time) (int, error) {
	published, err := q.store.Counters.Published(models.DayKey(now))
	if err != nil {
		return 0, fmt.Errorf("loading daily count: %w", err)
	}
	remaining := q.cfg.MaxPerDay - published
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// CanTarget decides whether a specific scored candidate may be engaged.
// The per-post rule is strict; the per-subreddit rule yields to a high
// enough quality score.
func (q *QuotaEngine) CanTarget(sc models.ScoredCandidate, now time.Time) (bool, DenialReason, error) {
	rec, err := q.store.Replay.Get(sc.ID)
	if err != nil {
		return false, "", fmt.Errorf("loading replay record: %w", err)
	}
	if rec != nil {
		switch rec.Disposition {
		case models.DispositionSuccess, models.DispositionSkipped, models.DispositionPending:
			return false, DenyReplayExcluded, nil
		case models.DispositionFailed:
			if now.Sub(rec.LastAttempt) < q.cooldownFor(sc.Priority) {
				return false, DenyReplayCooldown, nil
			}
		}
	}

	day := models.DayKey(now)
	replied, err := q.store.Counters.HasPostReply(day, sc.PostID)
	if err != nil {
		return false, "", fmt.Errorf("loading post reply record: %w", err)
	}
	if replied {
		return false, DenyPostReplied, nil
	}

	count, err := q.store.Counters.SubredditCount(day, sc.Subreddit)
	if err != nil {
		return false, "", fmt.Errorf("loading subreddit count: %w", err)
	}
	if count >= q.cfg.MaxPerSubreddit && sc.Score < q.cfg.DiversityOverride {
		return false, DenySubredditLimit, nil
	}
	return true, "", nil
}

func (q *QuotaEngine) cooldownFor(priority models.PriorityClass) time.Duration {
	if priority == models.PriorityInboxReply {
		return q.cfg.InboxCooldown
	}
	return q.cfg.StandardCooldown
}
