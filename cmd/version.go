package cmd

import (
	"fmt"

	"github.com/itsmostafa/paperalchemy/internal/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	// Skip config and logger setup.
	PersistentPreRunE:  func(*cobra.Command, []string) error { return nil },
	PersistentPostRunE: func(*cobra.Command, []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "paperalchemy %s\n", version.String())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
