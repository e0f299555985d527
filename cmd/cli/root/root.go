package root

import (
	"github.com/spf13/cobra"
)

// NewRoot returns the top-level `ledger` command with its persistent flags.
func NewRoot() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ledger",
		Short:         "Personal ledger CLI",
		Long:          "Command line interface for recording and summarizing transactions through the ledger API.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().Bool("json", false, "Output raw JSON instead of tables")
	return cmd
}

// JSONOutput reports whether --json was set on cmd or any parent.
func JSONOutput(cmd *cobra.Command) bool {
	v, err := cmd.Flags().GetBool("json")
	return err == nil && v
}
