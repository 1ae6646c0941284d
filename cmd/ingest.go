package cmd

import (
	"os"
	"os/signal"

	"github.com/itsmostafa/paperalchemy/internal/ingest"
	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <pdf>",
	Short: "Convert a PDF into markdown and an asset manifest",
	Long:  `Extract text, embedded images and per-page snapshots from a PDF without running extraction.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		pdfPath, err := resolveInput(args[0])
		if err != nil {
			return err
		}
		layout := ingest.NewLayout(cfg.OutputDir, pdfPath)
		res, err := ingest.NewPDFIngestor(logger).Ingest(ctx, pdfPath, layout)
		if err != nil {
			return err
		}
		ingest.FormatReport(cmd.OutOrStdout(), res)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
