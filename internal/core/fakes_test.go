// ABOUTME: Shared test fixtures: fake collaborators and config/storage helpers
// ABOUTME: Fakes record calls and fail on demand to exercise error paths
package core

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/harper/engage-standalone/internal/config"
	"github.com/harper/engage-standalone/internal/models"
	"github.com/harper/engage-standalone/internal/storage"
)

func testConfig() *config.Config {
	return &config.Config{
		AllowedSubreddits: "golang,programming,webdev",
		MaxPerDay:         8,
		MaxPerRun:         3,
		MaxPerSubreddit:   2,
		DiversityOverride: 0.75,
		InboxCooldown:     6 * time.Hour,
		StandardCooldown:  24 * time.Hour,
		Weights: config.ScoreWeights{
			Upvote:     0.15,
			Karma:      0.10,
			Freshness:  0.20,
			Velocity:   0.15,
			Question:   0.15,
			Depth:      0.10,
			Historical: 0.15,
		},
		ScoreThreshold:     0.35,
		ExplorationRate:    0, // exploration tests opt in with rate 1.0
		LearningMinSamples: 5,
		BreakerThreshold:   5,
		BreakerCooldown:    6 * time.Hour,
	}
}

func newTestStorage(t *testing.T) *storage.Storage {
	t.Helper()
	store, err := storage.NewStorageInMemory()
	if err != nil {
		t.Fatalf("NewStorageInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testRand() *rand.Rand {
	return rand.New(rand.NewSource(1))
}

func testCandidate(id string, mutate ...func(*models.Candidate)) models.Candidate {
	c := models.Candidate{
		ID:           id,
		PostID:       "t3_" + id,
		Subreddit:    "golang",
		Title:        "How do I structure a worker pool?",
		Body:         "Trying to fan out work but results arrive out of order.",
		Author:       "gopher42",
		AuthorKarma:  5000,
		UpvoteRatio:  0.92,
		CommentCount: 12,
		Depth:        8,
		HasQuestion:  true,
		Priority:     models.PriorityNormal,
		ContextURL:   "https://reddit.example/r/golang/" + id,
		CreatedAt:    time.Now().UTC().Add(-10 * time.Minute),
	}
	for _, m := range mutate {
		m(&c)
	}
	return c
}

type fakeSource struct {
	candidates []models.Candidate
	err        error
	calls      int
}

func (f *fakeSource) FetchCandidates(_ context.Context, _ []string) ([]models.Candidate, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.candidates, nil
}

type fakeDrafter struct {
	err   error
	calls int
	mu    sync.Mutex
}

func (f *fakeDrafter) GenerateDraft(_ context.Context, c models.Candidate) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return "draft reply for " + c.ID, nil
}

type fakeRisk struct {
	score float64
	err   error
}

func (f *fakeRisk) AssessRisk(_ context.Context, _ models.Candidate, _ string) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.score, nil
}

type fakeNotifier struct {
	err    error
	tokens []string
	mu     sync.Mutex
}

func (f *fakeNotifier) NotifyApproval(_ context.Context, _ *models.Decision, rawToken string) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	f.tokens = append(f.tokens, rawToken)
	f.mu.Unlock()
	return nil
}

func (f *fakeNotifier) lastToken(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.tokens) == 0 {
		t.Fatal("no approval token was delivered")
	}
	return f.tokens[len(f.tokens)-1]
}

type fakePublisher struct {
	err   error
	calls int
	mu    sync.Mutex
}

func (f *fakePublisher) PublishReply(_ context.Context, d *models.Decision) (string, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("t1_comment_%s_%d", d.CandidateID, n), nil
}

var errCollaboratorDown = errors.New("collaborator unavailable")

// harness wires a full service stack over in-memory storage.
type harness struct {
	cfg       *config.Config
	store     *storage.Storage
	scorer    *Scorer
	quota     *QuotaEngine
	breaker   *Breaker
	approval  *ApprovalService
	source    *fakeSource
	drafter   *fakeDrafter
	risk      *fakeRisk
	notifier  *fakeNotifier
	publisher *fakePublisher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := testConfig()
	store := newTestStorage(t)
	h := &harness{
		cfg:       cfg,
		store:     store,
		source:    &fakeSource{},
		drafter:   &fakeDrafter{},
		risk:      &fakeRisk{score: 0.1},
		notifier:  &fakeNotifier{},
		publisher: &fakePublisher{},
	}
	h.scorer = NewScorer(cfg, store.Decisions, testRand())
	h.quota = NewQuotaEngine(cfg, store)
	h.breaker = NewBreaker(cfg, store)
	h.approval = NewApprovalService(cfg, store, h.quota, h.breaker, h.notifier, h.publisher)
	return h
}

func (h *harness) pipeline() *Pipeline {
	return NewPipeline(h.cfg, h.source, h.scorer, h.quota)
}

func (h *harness) scheduler() *Scheduler {
	return NewScheduler(h.cfg, h.store, h.pipeline(), h.approval, h.quota, h.breaker, h.drafter, h.risk)
}

// createDecision records a PENDING decision for a fresh candidate.
func (h *harness) createDecision(t *testing.T, id string, now time.Time) *models.Decision {
	t.Helper()
	sc := models.ScoredCandidate{Candidate: testCandidate(id), Score: 0.6}
	d, err := h.approval.CreateDecision(sc, "draft for "+id, 0.1, now)
	if err != nil {
		t.Fatalf("CreateDecision() error = %v", err)
	}
	return d
}

// issueToken creates a decision and issues its token, returning the raw
// token delivered to the notifier.
func (h *harness) issueToken(t *testing.T, id string, now time.Time) (*models.Decision, string) {
	t.Helper()
	return h.issueScored(t, models.ScoredCandidate{Candidate: testCandidate(id), Score: 0.6}, now)
}

// issueScored is issueToken for a caller-prepared candidate, used when a
// test needs a specific subreddit, post, or score.
func (h *harness) issueScored(t *testing.T, sc models.ScoredCandidate, now time.Time) (*models.Decision, string) {
	t.Helper()
	d, err := h.approval.CreateDecision(sc, "draft for "+sc.ID, 0.1, now)
	if err != nil {
		t.Fatalf("CreateDecision() error = %v", err)
	}
	if err := h.approval.IssueToken(context.Background(), d, now); err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	return d, h.notifier.lastToken(t)
}
