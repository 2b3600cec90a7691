// ABOUTME: Shared stack construction for CLI commands
// ABOUTME: Wires config, storage, adapters, and core services in one place
package commands

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/joho/godotenv"

	"github.com/harper/engage-standalone/internal/config"
	"github.com/harper/engage-standalone/internal/core"
	"github.com/harper/engage-standalone/internal/llm"
	"github.com/harper/engage-standalone/internal/models"
	"github.com/harper/engage-standalone/internal/notify"
	"github.com/harper/engage-standalone/internal/reddit"
	"github.com/harper/engage-standalone/internal/storage"
)

// stack bundles everything a command needs. Close the store when done.
type stack struct {
	cfg       *config.Config
	store     *storage.Storage
	quota     *core.QuotaEngine
	breaker   *core.Breaker
	approval  *core.ApprovalService
	scheduler *core.Scheduler
}

func (s *stack) Close() {
	_ = s.store.Close()
}

// buildStack loads config and assembles the full service graph. In dry-run
// mode the publisher prints instead of posting.
func buildStack() (*stack, error) {
	// Load .env for API keys
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	store, err := storage.NewStorage(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}

	client := reddit.NewClient(cfg.RedditBaseURL, cfg.RedditToken, cfg.UserAgent)

	var publisher core.Publisher = client
	if cfg.DryRun {
		publisher = dryRunPublisher{}
	}

	llmClient, err := llm.NewOpenAIClientWithConfig(&llm.ClientConfig{
		APIKey:     cfg.OpenAIKey,
		ChatModel:  cfg.ChatModel,
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("initializing LLM client: %w", err)
	}

	notifier, err := notify.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID, cfg.PublicURL)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("initializing notifier: %w", err)
	}

	quota := core.NewQuotaEngine(cfg, store)
	breaker := core.NewBreaker(cfg, store)
	approval := core.NewApprovalService(cfg, store, quota, breaker, notifier, publisher)
	scorer := core.NewScorer(cfg, store.Decisions, rand.New(rand.NewSource(time.Now().UnixNano())))
	pipeline := core.NewPipeline(cfg, client, scorer, quota)
	scheduler := core.NewScheduler(cfg, store, pipeline, approval, quota, breaker, llmClient, llmClient)

	return &stack{
		cfg:       cfg,
		store:     store,
		quota:     quota,
		breaker:   breaker,
		approval:  approval,
		scheduler: scheduler,
	}, nil
}

// dryRunPublisher satisfies the publish path without touching the platform.
type dryRunPublisher struct{}

func (dryRunPublisher) PublishReply(_ context.Context, d *models.Decision) (string, error) {
	fmt.Printf("[dry-run] would reply to %s in r/%s:\n%s\n", d.CandidateID, d.Subreddit, d.Draft)
	return "dryrun_" + d.DecisionID, nil
}
