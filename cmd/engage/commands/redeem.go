// ABOUTME: CLI command to redeem an approval token by hand
// ABOUTME: Useful when the notification link is unavailable
package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var redeemReject bool

// NewRedeemCmd creates the redeem command
func NewRedeemCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "redeem <token>",
		Short: "Redeem an approval token",
		Long: `Redeem a one-time approval token. Approval publishes the reply
immediately; --reject discards the draft instead.

Examples:
  engage redeem 8f3k...
  engage redeem 8f3k... --reject`,
		Args: cobra.ExactArgs(1),
		RunE: runRedeem,
	}

	cmd.Flags().BoolVar(&redeemReject, "reject", false, "Reject the draft instead of approving")

	return cmd
}

func runRedeem(cmd *cobra.Command, args []string) error {
	s, err := buildStack()
	if err != nil {
		return err
	}
	defer s.Close()

	d, err := s.approval.Redeem(cmd.Context(), args[0], !redeemReject, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("redeeming token: %w", err)
	}

	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Decision %s: %s", d.DecisionID, d.Status)
		if d.Reason != "" {
			fmt.Fprintf(cmd.OutOrStdout(), " (%s)", d.Reason)
		}
		fmt.Fprintln(cmd.OutOrStdout())
	}
	return nil
}
