package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/itsmostafa/paperalchemy/internal/checkpoint"
	"github.com/itsmostafa/paperalchemy/internal/extract"
	"github.com/itsmostafa/paperalchemy/internal/ingest"
	"github.com/itsmostafa/paperalchemy/internal/llm"
	"github.com/itsmostafa/paperalchemy/internal/pipeline"
	"github.com/itsmostafa/paperalchemy/internal/review"
	"github.com/itsmostafa/paperalchemy/internal/store"
	"github.com/spf13/cobra"
)

var readSession string
var readResume bool
var readForceRefresh bool
var readForceIngest bool
var readYes bool
var readMaxRetries int
var readAttemptTimeout string
var readProvider string
var readModel string
var readFast bool

var readCmd = &cobra.Command{
	Use:   "read <pdf>",
	Short: "Ingest, extract and review a paper",
	Long: `Run the full pipeline for a PDF: ingest it when its markdown is missing,
return the cached result when one is valid, and otherwise extract a structured
outline and loop on reviewer feedback until it is approved.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := applyReadFlags(cmd); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		pdfPath, err := resolveInput(args[0])
		if err != nil {
			return err
		}

		provider, err := llm.New(ctx, cfg.LLM, cfg.Network, logger)
		if err != nil {
			return err
		}
		if c, ok := provider.(llm.Closer); ok {
			defer c.Close()
		}

		checkpoints, err := checkpoint.Open(ctx, cfg.Checkpoint.Driver, cfg.Checkpoint.Path)
		if err != nil {
			return err
		}
		defer checkpoints.Close()

		var reviewer review.Reviewer = review.NewPromptReviewer(cmd.InOrStdin(), cmd.OutOrStdout())
		if readYes {
			reviewer = review.AutoApprover{}
		}

		extractor := extract.New(provider, extract.Options{FigureHints: cfg.Extract.FigureHints}, logger)
		workflow := review.NewWorkflow(extractor, reviewer, checkpoints, review.Options{
			MaxRetries:      cfg.Review.MaxRetries,
			AttemptTimeout:  cfg.Review.AttemptTimeout,
			KeepCheckpoints: cfg.Review.KeepCheckpoints,
		}, logger)
		results := store.New(cfg.OutputDir, logger)
		p := pipeline.New(cfg.OutputDir, ingest.NewPDFIngestor(logger), workflow, results, logger)

		res, err := p.Run(ctx, pdfPath, pipeline.Options{
			SessionID:    readSession,
			Resume:       readResume,
			ForceRefresh: readForceRefresh,
			ForceIngest:  readForceIngest,
		})
		if err != nil {
			if errors.Is(err, context.Canceled) && res == nil {
				return fmt.Errorf("interrupted; resume with --session <id> --resume: %w", err)
			}
			return err
		}

		out := cmd.OutOrStdout()
		if res.FromCache {
			review.FormatSummary(out, res.Paper, 0)
		}
		review.FormatApproved(out, res.Paper, results.Path(res.Layout.Name))
		return nil
	},
}

func applyReadFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	if flags.Changed("max-retries") {
		cfg.Review.MaxRetries = readMaxRetries
	}
	if flags.Changed("attempt-timeout") {
		d, err := time.ParseDuration(readAttemptTimeout)
		if err != nil {
			return fmt.Errorf("invalid --attempt-timeout: %w", err)
		}
		cfg.Review.AttemptTimeout = d
	}
	if flags.Changed("provider") {
		cfg.LLM.Provider = readProvider
	}
	if flags.Changed("model") {
		cfg.LLM.Model = readModel
	}
	if flags.Changed("fast") {
		cfg.LLM.Fast = readFast
	}
	return nil
}

// resolveInput accepts a path or a file name inside the configured input
// directory.
func resolveInput(arg string) (string, error) {
	if _, err := os.Stat(arg); err == nil {
		return arg, nil
	}
	if !filepath.IsAbs(arg) && cfg.InputDir != "" {
		candidate := filepath.Join(cfg.InputDir, arg)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	// A missing PDF is fine when its ingestion output already exists.
	if _, err := os.Stat(ingest.NewLayout(cfg.OutputDir, arg).MarkdownPath()); err == nil {
		return arg, nil
	}
	return "", fmt.Errorf("%w: %s", ingest.ErrInputNotFound, arg)
}

func init() {
	readCmd.Flags().StringVar(&readSession, "session", "", "Review session ID (default: random)")
	readCmd.Flags().BoolVar(&readResume, "resume", false, "Resume an existing review session")
	readCmd.Flags().BoolVar(&readForceRefresh, "force-refresh", false, "Ignore a cached structured result")
	readCmd.Flags().BoolVar(&readForceIngest, "force-ingest", false, "Re-run ingestion even when its output exists")
	readCmd.Flags().BoolVarP(&readYes, "yes", "y", false, "Approve the first extraction without prompting")
	readCmd.Flags().IntVar(&readMaxRetries, "max-retries", 0, "Maximum reviewer rejections (0 = unlimited)")
	readCmd.Flags().StringVar(&readAttemptTimeout, "attempt-timeout", "", "Timeout per extraction or review decision, e.g. 10m")
	readCmd.Flags().StringVar(&readProvider, "provider", "", "Model provider (gemini, openai)")
	readCmd.Flags().StringVar(&readModel, "model", "", "Model identifier")
	readCmd.Flags().BoolVar(&readFast, "fast", false, "Use the fast model")

	rootCmd.AddCommand(readCmd)
}
