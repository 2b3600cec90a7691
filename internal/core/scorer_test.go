// ABOUTME: Tests for the seven-factor quality scorer
// ABOUTME: Covers factor bands, historical neutrality, and exploration flagging
package core

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/harper/engage-standalone/internal/models"
)

func TestUpvoteFactorBands(t *testing.T) {
	tests := []struct {
		ratio float64
		want  float64
	}{
		{0.95, 1.0},
		{0.90, 1.0},
		{0.80, 0.8},
		{0.75, 0.8},
		{0.65, 0.5},
		{0.60, 0.5},
		{0.50, 0.2},
	}
	for _, tt := range tests {
		if got := upvoteFactor(tt.ratio); got != tt.want {
			t.Errorf("upvoteFactor(%v) = %v, want %v", tt.ratio, got, tt.want)
		}
	}
}

func TestKarmaFactorBands(t *testing.T) {
	tests := []struct {
		karma int
		want  float64
	}{
		{15000, 1.0},
		{10000, 1.0},
		{5000, 0.8},
		{1000, 0.8},
		{500, 0.5},
		{100, 0.5},
		{50, 0.3},
		{0, 0.3},
	}
	for _, tt := range tests {
		if got := karmaFactor(tt.karma); got != tt.want {
			t.Errorf("karmaFactor(%d) = %v, want %v", tt.karma, got, tt.want)
		}
	}
}

func TestFreshnessFactorBands(t *testing.T) {
	tests := []struct {
		age  time.Duration
		want float64
	}{
		{5 * time.Minute, 1.0},
		{20 * time.Minute, 0.8},
		{45 * time.Minute, 0.6},
		{90 * time.Minute, 0.4},
		{3 * time.Hour, 0.2},
	}
	for _, tt := range tests {
		if got := freshnessFactor(tt.age); got != tt.want {
			t.Errorf("freshnessFactor(%v) = %v, want %v", tt.age, got, tt.want)
		}
	}
}

func TestVelocityFactorBands(t *testing.T) {
	tests := []struct {
		comments int
		age      time.Duration
		want     float64
	}{
		{60, time.Hour, 1.0},  // 1.0/min
		{30, time.Hour, 0.8},  // 0.5/min
		{12, time.Hour, 0.6},  // 0.2/min
		{6, time.Hour, 0.4},   // 0.1/min
		{1, time.Hour, 0.2},   // under 0.1/min
		{5, 10 * time.Second, 1.0}, // sub-minute ages clamp to one minute
	}
	for _, tt := range tests {
		if got := velocityFactor(tt.comments, tt.age); got != tt.want {
			t.Errorf("velocityFactor(%d, %v) = %v, want %v", tt.comments, tt.age, got, tt.want)
		}
	}
}

func TestQuestionFactor(t *testing.T) {
	tests := []struct {
		name string
		c    models.Candidate
		want float64
	}{
		{
			name: "question plus help plus problem caps at 1.0",
			c:    models.Candidate{Title: "Help, how do I fix this error?", HasQuestion: true},
			want: 1.0,
		},
		{
			name: "question mark only",
			c:    models.Candidate{Title: "Is this idiomatic?"},
			want: 0.4,
		},
		{
			name: "help keyword only",
			c:    models.Candidate{Body: "any advice appreciated"},
			want: 0.3,
		},
		{
			name: "problem keyword only",
			c:    models.Candidate{Body: "my build is broken"},
			want: 0.3,
		},
		{
			name: "no signals baseline",
			c:    models.Candidate{Title: "Sharing my weekend project"},
			want: 0.2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := questionFactor(tt.c); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("questionFactor() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDepthFactorBands(t *testing.T) {
	tests := []struct {
		depth int
		want  float64
	}{
		{10, 1.0},
		{5, 1.0},
		{15, 1.0},
		{3, 0.8},
		{4, 0.8},
		{20, 0.7},
		{30, 0.7},
		{1, 0.4},
		{50, 0.3},
	}
	for _, tt := range tests {
		if got := depthFactor(tt.depth); got != tt.want {
			t.Errorf("depthFactor(%d) = %v, want %v", tt.depth, got, tt.want)
		}
	}
}

type stubHistory struct {
	published int
	rejected  int
	err       error
}

func (s *stubHistory) OutcomeCounts(string) (int, int, error) {
	return s.published, s.rejected, s.err
}

func TestHistoricalFactor(t *testing.T) {
	cfg := testConfig()

	tests := []struct {
		name    string
		history OutcomeHistory
		want    float64
	}{
		{"no history source", nil, 0.5},
		{"below min samples", &stubHistory{published: 2, rejected: 1}, 0.5},
		{"at min samples", &stubHistory{published: 4, rejected: 1}, 0.8},
		{"all rejected", &stubHistory{published: 0, rejected: 6}, 0.0},
		{"lookup error is neutral", &stubHistory{err: errors.New("db closed")}, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScorer(cfg, tt.history, testRand())
			if got := s.historicalFactor("golang"); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("historicalFactor() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScoreWeightedSum(t *testing.T) {
	cfg := testConfig()
	s := NewScorer(cfg, nil, testRand())
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	// Every factor at its top band except historical (neutral 0.5):
	// 0.15 + 0.10 + 0.20 + 0.15 + 0.15 + 0.10 + 0.15*0.5 = 0.925
	c := models.Candidate{
		UpvoteRatio:  0.95,
		AuthorKarma:  20000,
		CommentCount: 120,
		Depth:        10,
		Title:        "Help, how do I fix this error?",
		HasQuestion:  true,
		CreatedAt:    now.Add(-5 * time.Minute),
	}
	got := s.Score(c, now)
	if math.Abs(got-0.925) > 1e-9 {
		t.Errorf("Score() = %v, want 0.925", got)
	}
}

func TestScoreStaysInUnitInterval(t *testing.T) {
	cfg := testConfig()
	s := NewScorer(cfg, &stubHistory{published: 100, rejected: 0}, testRand())
	now := time.Now().UTC()

	best := testCandidate("best", func(c *models.Candidate) {
		c.UpvoteRatio = 1.0
		c.AuthorKarma = 100000
		c.CommentCount = 500
		c.CreatedAt = now.Add(-time.Minute)
	})
	worst := testCandidate("worst", func(c *models.Candidate) {
		c.UpvoteRatio = 0.1
		c.AuthorKarma = 0
		c.CommentCount = 0
		c.Depth = 100
		c.Title = "no signals here"
		c.Body = ""
		c.HasQuestion = false
		c.CreatedAt = now.Add(-24 * time.Hour)
	})

	for _, c := range []models.Candidate{best, worst} {
		score := s.Score(c, now)
		if score < 0 || score > 1 {
			t.Errorf("Score(%s) = %v, out of [0,1]", c.ID, score)
		}
	}
}

func TestScoreAllExploration(t *testing.T) {
	cfg := testConfig()
	cfg.ExplorationRate = 1.0
	s := NewScorer(cfg, nil, rand.New(rand.NewSource(7)))
	now := time.Now().UTC()

	low := testCandidate("low", func(c *models.Candidate) {
		c.UpvoteRatio = 0.2
		c.AuthorKarma = 0
		c.CommentCount = 0
		c.Depth = 100
		c.Title = "nothing interesting"
		c.Body = ""
		c.HasQuestion = false
		c.CreatedAt = now.Add(-24 * time.Hour)
	})
	high := testCandidate("high")

	scored := s.ScoreAll([]models.Candidate{low, high}, now)
	if len(scored) != 2 {
		t.Fatalf("ScoreAll() returned %d results, want 2", len(scored))
	}

	for _, sc := range scored {
		belowThreshold := sc.Score < cfg.ScoreThreshold
		if belowThreshold && !sc.Exploration {
			t.Errorf("candidate %s below threshold should be flagged for exploration at rate 1.0", sc.ID)
		}
		if !belowThreshold && sc.Exploration {
			t.Errorf("candidate %s above threshold must never carry the exploration flag", sc.ID)
		}
	}
}

func TestScoreAllNoExplorationAtRateZero(t *testing.T) {
	cfg := testConfig()
	s := NewScorer(cfg, nil, testRand())
	now := time.Now().UTC()

	low := testCandidate("low", func(c *models.Candidate) {
		c.UpvoteRatio = 0.2
		c.AuthorKarma = 0
		c.CommentCount = 0
		c.Depth = 100
		c.Title = "nothing"
		c.Body = ""
		c.HasQuestion = false
		c.CreatedAt = now.Add(-24 * time.Hour)
	})
	scored := s.ScoreAll([]models.Candidate{low}, now)
	if scored[0].Exploration {
		t.Error("exploration rate 0 must never flag candidates")
	}
}
