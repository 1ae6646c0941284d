package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/itsmostafa/paperalchemy/internal/config"
	"github.com/itsmostafa/paperalchemy/internal/logging"
	"github.com/itsmostafa/paperalchemy/internal/version"
	"github.com/spf13/cobra"
)

var configPath string
var logLevel string

// Set by loadRuntime before any subcommand runs.
var cfg *config.Config
var logger *slog.Logger
var logCloser io.Closer

var rootCmd = &cobra.Command{
	Use:   "paperalchemy",
	Short: "Turn research paper PDFs into reviewed, structured JSON",
	Long: `Paper Alchemy ingests a research paper PDF into markdown and an asset
manifest, extracts a structured outline with a language model, and asks a
human reviewer to approve or correct it before caching the result.`,
	SilenceUsage:       true,
	PersistentPreRunE:  loadRuntime,
	PersistentPostRunE: closeRuntime,
}

func init() {
	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate(fmt.Sprintf("paperalchemy %s\n", version.String()))

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ./"+config.DefaultFile+" when present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
}

func loadRuntime(cmd *cobra.Command, args []string) error {
	c, err := config.Load(configPath, os.Getenv)
	if err != nil {
		return err
	}
	if logLevel != "" {
		c.Log.Level = logLevel
	}

	l, closer, err := logging.New(c.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	cfg, logger, logCloser = c, l, closer
	return nil
}

func closeRuntime(cmd *cobra.Command, args []string) error {
	if logCloser != nil {
		return logCloser.Close()
	}
	return nil
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
