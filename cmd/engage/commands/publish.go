// ABOUTME: CLI command to retry the approved-but-unpublished backlog
package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// NewPublishCmd creates the publish command
func NewPublishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "publish",
		Short: "Retry publishing approved replies",
		Long: `Retry the publish backlog: decisions a reviewer approved whose
earlier publish attempt failed. When the circuit breaker is open and
cooled down, this is also the probe path.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := buildStack()
			if err != nil {
				return err
			}
			defer s.Close()

			n, err := s.approval.PublishApproved(cmd.Context(), time.Now().UTC())
			if err != nil {
				return fmt.Errorf("publishing backlog: %w", err)
			}
			if !quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "Published %d backlog replies\n", n)
			}
			return nil
		},
	}
}
