// ABOUTME: CLI command showing today's publish counters and pending work
package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/harper/engage-standalone/internal/models"
)

// NewStatusCmd creates the status command
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show today's counters and pending approvals",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := buildStack()
			if err != nil {
				return err
			}
			defer s.Close()

			now := time.Now().UTC()
			day := models.DayKey(now)

			published, err := s.store.Counters.Published(day)
			if err != nil {
				return err
			}
			awaiting, err := s.store.Decisions.ListByStatus(models.StatusTokenIssued, 50)
			if err != nil {
				return err
			}
			backlog, err := s.store.Decisions.ListByStatus(models.StatusApproved, 50)
			if err != nil {
				return err
			}
			state, err := s.breaker.State()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Day:              %s\n", day)
			fmt.Fprintf(out, "Published today:  %d / %d\n", published, s.cfg.MaxPerDay)
			fmt.Fprintf(out, "Awaiting review:  %d\n", len(awaiting))
			fmt.Fprintf(out, "Publish backlog:  %d\n", len(backlog))
			if state.Open {
				fmt.Fprintf(out, "Breaker:          OPEN (%s)\n", state.Reason)
			} else {
				fmt.Fprintf(out, "Breaker:          closed\n")
			}

			if verbose {
				for _, d := range awaiting {
					fmt.Fprintf(out, "  pending %s r/%s score %.2f\n", d.DecisionID, d.Subreddit, d.QualityScore)
				}
			}
			return nil
		},
	}
}
