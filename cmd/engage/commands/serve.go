// ABOUTME: CLI command to serve the HTTP approval endpoint
// ABOUTME: Optionally runs the scheduler loop in the same process
package commands

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/harper/engage-standalone/internal/api"
)

var (
	serveWithScheduler bool
	serveInterval      time.Duration
)

// NewServeCmd creates the serve command
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the approval redemption endpoint",
		Long: `Start the HTTP server that approval links point at. Reviewers
redeem tokens through it, and /status reports today's counters.

With --with-scheduler the engagement loop runs in the same process.

Examples:
  engage serve
  engage serve --with-scheduler --interval 30m`,
		RunE: runServe,
	}

	cmd.Flags().BoolVar(&serveWithScheduler, "with-scheduler", false, "Run the engagement loop alongside the server")
	cmd.Flags().DurationVar(&serveInterval, "interval", 30*time.Minute, "Scheduler pass interval with --with-scheduler")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	s, err := buildStack()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if serveWithScheduler {
		go func() {
			if err := s.scheduler.Run(ctx, serveInterval); err != nil && err != context.Canceled {
				log.Printf("[Serve] Scheduler stopped: %v", err)
			}
		}()
	}

	server := api.New(s.approval, s.breaker, s.store, s.cfg.ListenAddr)
	return server.Run()
}
