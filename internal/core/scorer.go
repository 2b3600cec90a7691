// ABOUTME: Quality scorer that ranks candidates on seven weighted factors
// ABOUTME: Includes epsilon-greedy exploration for borderline candidates
package core

import (
	"math/rand"
	"strings"
	"time"

	"github.com/harper/engage-standalone/internal/config"
	"github.com/harper/engage-standalone/internal/models"
)

var helpKeywords = []string{"help", "how do i", "how to", "advice", "recommend", "suggestion"}

var problemKeywords = []string{"error", "issue", "problem", "broken", "fail", "stuck", "bug"}

// OutcomeHistory supplies per-subreddit publish/reject counts for the
// historical success factor.
type OutcomeHistory interface {
	OutcomeCounts(subreddit string) (published, rejected int, err error)
}

// Scorer computes quality scores in [0.0, 1.0] from engagement signals.
// The rng drives exploration picks and is injectable for deterministic tests.
type Scorer struct {
	weights    config.ScoreWeights
	threshold  float64
	exploreP   float64
	minSamples int
	history    OutcomeHistory
	rng        *rand.Rand
}

func NewScorer(cfg *config.Config, history OutcomeHistory, rng *rand.Rand) *Scorer {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Scorer{
		weights:    cfg.Weights,
		threshold:  cfg.ScoreThreshold,
		exploreP:   cfg.ExplorationRate,
		minSamples: cfg.LearningMinSamples,
		history:    history,
		rng:        rng,
	}
}

// Score computes the weighted quality score for a candidate at the given
// observation time.
func (s *Scorer) Score(c models.Candidate, now time.Time) float64 {
	w := s.weights
	total := w.Upvote + w.Karma + w.Freshness + w.Velocity +
		w.Question + w.Depth + w.Historical
	if total <= 0 {
		return 0
	}

	sum := w.Upvote*upvoteFactor(c.UpvoteRatio) +
		w.Karma*karmaFactor(c.AuthorKarma) +
		w.Freshness*freshnessFactor(now.Sub(c.CreatedAt)) +
		w.Velocity*velocityFactor(c.CommentCount, now.Sub(c.CreatedAt)) +
		w.Question*questionFactor(c) +
		w.Depth*depthFactor(c.Depth) +
		w.Historical*s.historicalFactor(c.Subreddit)

	score := sum / total
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// ScoreAll scores every candidate and flags below-threshold ones selected
// for exploration. Exploration never applies above the threshold.
func (s *Scorer) ScoreAll(candidates []models.Candidate, now time.Time) []models.ScoredCandidate {
	scored := make([]models.ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		sc := models.ScoredCandidate{Candidate: c, Score: s.Score(c, now)}
		if sc.Score < s.threshold && s.rng.Float64() < s.exploreP {
			sc.Exploration = true
		}
		scored = append(scored, sc)
	}
	return scored
}

// Threshold returns the minimum score for non-exploration admission.
func (s *Scorer) Threshold() float64 {
	return s.threshold
}

func upvoteFactor(ratio float64) float64 {
	switch {
	case ratio >= 0.90:
		return 1.0
	case ratio >= 0.75:
		return 0.8
	case ratio >= 0.60:
		return 0.5
	default:
		return 0.2
	}
}

func karmaFactor(karma int) float64 {
	switch {
	case karma >= 10000:
		return 1.0
	case karma >= 1000:
		return 0.8
	case karma >= 100:
		return 0.5
	default:
		return 0.3
	}
}

func freshnessFactor(age time.Duration) float64 {
	switch {
	case age < 15*time.Minute:
		return 1.0
	case age < 30*time.Minute:
		return 0.8
	case age < time.Hour:
		return 0.6
	case age < 2*time.Hour:
		return 0.4
	default:
		return 0.2
	}
}

func velocityFactor(comments int, age time.Duration) float64 {
	minutes := age.Minutes()
	if minutes < 1 {
		minutes = 1
	}
	perMinute := float64(comments) / minutes
	switch {
	case perMinute >= 1.0:
		return 1.0
	case perMinute >= 0.5:
		return 0.8
	case perMinute >= 0.2:
		return 0.6
	case perMinute >= 0.1:
		return 0.4
	default:
		return 0.2
	}
}

// questionFactor rewards explicit questions and help-seeking language.
func questionFactor(c models.Candidate) float64 {
	text := strings.ToLower(c.Title + " " + c.Body)
	score := 0.0
	if c.HasQuestion || strings.Contains(text, "?") {
		score += 0.4
	}
	if containsAny(text, helpKeywords) {
		score += 0.3
	}
	if containsAny(text, problemKeywords) {
		score += 0.3
	}
	if score == 0 {
		return 0.2
	}
	if score > 1.0 {
		return 1.0
	}
	return score
}

func depthFactor(depth int) float64 {
	switch {
	case depth >= 5 && depth <= 15:
		return 1.0
	case depth >= 3 && depth <= 4:
		return 0.8
	case depth >= 16 && depth <= 30:
		return 0.7
	case depth < 3:
		return 0.4
	default:
		return 0.3
	}
}

// historicalFactor is the publish rate in the subreddit, neutral until
// enough outcomes have accumulated.
func (s *Scorer) historicalFactor(subreddit string) float64 {
	if s.history == nil {
		return 0.5
	}
	published, rejected, err := s.history.OutcomeCounts(subreddit)
	if err != nil {
		return 0.5
	}
	total := published + rejected
	if total < s.minSamples {
		return 0.5
	}
	return float64(published) / float64(total)
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
