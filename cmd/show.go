package cmd

import (
	"fmt"

	"github.com/itsmostafa/paperalchemy/internal/ingest"
	"github.com/itsmostafa/paperalchemy/internal/paper"
	"github.com/itsmostafa/paperalchemy/internal/review"
	"github.com/itsmostafa/paperalchemy/internal/store"
	"github.com/spf13/cobra"
)

var showJSON bool

var showCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print a cached structured paper",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := ingest.Stem(args[0])
		results := store.New(cfg.OutputDir, logger)
		p, ok := results.Load(name)
		if !ok {
			return fmt.Errorf("no valid structured paper for %q at %s", name, results.Path(name))
		}
		out := cmd.OutOrStdout()
		if showJSON {
			data, err := paper.Encode(p)
			if err != nil {
				return err
			}
			_, err = out.Write(data)
			return err
		}
		review.FormatSummary(out, p, 0)
		return nil
	},
}

func init() {
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Print the stored JSON")
	rootCmd.AddCommand(showCmd)
}
