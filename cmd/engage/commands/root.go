// ABOUTME: Root CLI command wiring all subcommands and global flags
// ABOUTME: Execute is the single entry point used by main
package commands

import (
	"github.com/spf13/cobra"
)

var (
	verbose bool
	quiet   bool
)

const banner = `
███████╗███╗   ██╗ ██████╗  █████╗  ██████╗ ███████╗
██╔════╝████╗  ██║██╔════╝ ██╔══██╗██╔════╝ ██╔════╝
█████╗  ██╔██╗ ██║██║  ███╗███████║██║  ███╗█████╗
██╔══╝  ██║╚██╗██║██║   ██║██╔══██║██║   ██║██╔══╝
███████╗██║ ╚████║╚██████╔╝██║  ██║╚██████╔╝███████╗
╚══════╝╚═╝  ╚═══╝ ╚═════╝ ╚═╝  ╚═╝ ╚═════╝ ╚══════╝`

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "engage",
		Short: "Human-approved community engagement agent",
		Long: banner + `

Engage finds discussion threads worth replying to, drafts replies, and
holds every draft for human approval before anything is published.

Nothing posts without a redeemed approval token.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-error output")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewPublishCmd())
	cmd.AddCommand(NewRedeemCmd())
	cmd.AddCommand(NewSweepCmd())
	cmd.AddCommand(NewBreakerCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewStatusCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
