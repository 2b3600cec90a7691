// ABOUTME: CLI commands to inspect and override the publish circuit breaker
package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/harper/engage-standalone/internal/models"
)

// NewBreakerCmd creates the breaker command group
func NewBreakerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "breaker",
		Short: "Inspect or override the publish circuit breaker",
	}

	cmd.AddCommand(newBreakerStatusCmd())
	cmd.AddCommand(newBreakerTripCmd())
	cmd.AddCommand(newBreakerResetCmd())

	return cmd
}

func newBreakerStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show breaker state",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := buildStack()
			if err != nil {
				return err
			}
			defer s.Close()

			state, err := s.breaker.State()
			if err != nil {
				return err
			}
			if state.Open {
				fmt.Fprintf(cmd.OutOrStdout(), "Breaker: OPEN since %s (%s)\n",
					state.OpenedAt.Format(time.RFC3339), state.Reason)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Breaker: closed")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Consecutive failures: %d\n", state.ConsecutiveFailures)
			return nil
		},
	}
}

func newBreakerTripCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trip",
		Short: "Open the breaker manually",
		Long: `Open the breaker immediately, stopping all publishing. Use when an
anomaly (suspected shadowban, unusual removals) is spotted by hand.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := buildStack()
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.breaker.Trip(models.BreakerReasonAnomaly, time.Now().UTC()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Breaker opened")
			return nil
		},
	}
}

func newBreakerResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Close the breaker and clear the failure count",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := buildStack()
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.breaker.Reset(time.Now().UTC()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Breaker reset")
			return nil
		},
	}
}
