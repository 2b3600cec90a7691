// ABOUTME: CLI command to run engagement passes
// ABOUTME: Runs a single pass by default, or loops on an interval
package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var (
	runLoop     bool
	runInterval time.Duration
)

// NewRunCmd creates the run command
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an engagement pass",
		Long: `Run one engagement pass: sweep stale approvals, retry the publish
backlog, fetch and score candidates, and send approval requests for the
best ones.

Examples:
  engage run
  engage run --loop --interval 30m`,
		RunE: runRun,
	}

	cmd.Flags().BoolVar(&runLoop, "loop", false, "Keep running passes on an interval")
	cmd.Flags().DurationVar(&runInterval, "interval", 30*time.Minute, "Delay between passes with --loop")

	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	s, err := buildStack()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if runLoop {
		err := s.scheduler.Run(ctx, runInterval)
		if err == context.Canceled {
			return nil
		}
		return err
	}

	result, err := s.scheduler.RunPass(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("running pass: %w", err)
	}

	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Fetched:       %d\n", result.Fetched)
		fmt.Fprintf(cmd.OutOrStdout(), "Admitted:      %d\n", result.Admitted)
		fmt.Fprintf(cmd.OutOrStdout(), "Drafted:       %d\n", result.Drafted)
		fmt.Fprintf(cmd.OutOrStdout(), "Tokens issued: %d\n", result.TokensIssued)
		fmt.Fprintf(cmd.OutOrStdout(), "Expired:       %d\n", result.Expired)
		fmt.Fprintf(cmd.OutOrStdout(), "Backlog sent:  %d\n", result.Backlog)
		if result.BreakerOpen {
			fmt.Fprintln(cmd.OutOrStdout(), "Breaker:       OPEN")
		}
		if verbose {
			for _, sk := range result.Skipped {
				fmt.Fprintf(cmd.OutOrStdout(), "skipped %s (r/%s, %.2f): %s\n",
					sk.CandidateID, sk.Subreddit, sk.Score, sk.Reason)
			}
		}
	}
	return nil
}
