// ABOUTME: CLI command to expire stale approval tokens
package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// NewSweepCmd creates the sweep command
func NewSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Expire stale approval tokens",
		Long: `Expire decisions whose approval tokens aged past their 48-hour
window without being redeemed, and clean up tokens that were never
delivered. The run command does this automatically each pass.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := buildStack()
			if err != nil {
				return err
			}
			defer s.Close()

			expired, err := s.approval.Sweep(time.Now().UTC())
			if err != nil {
				return fmt.Errorf("sweeping: %w", err)
			}
			if !quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "Expired %d stale decisions\n", expired)
			}
			return nil
		},
	}
}
