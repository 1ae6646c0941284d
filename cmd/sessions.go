package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/itsmostafa/paperalchemy/internal/checkpoint"
	"github.com/itsmostafa/paperalchemy/internal/review"
	"github.com/spf13/cobra"
)

var sessionsDiscard string

var (
	sessionID   = lipgloss.NewStyle().Bold(true)
	sessionDim  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	sessionWarn = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List or discard review checkpoints",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := checkpoint.Open(ctx, cfg.Checkpoint.Driver, cfg.Checkpoint.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		out := cmd.OutOrStdout()
		if sessionsDiscard != "" {
			if err := store.Delete(ctx, sessionsDiscard); err != nil {
				return err
			}
			fmt.Fprintf(out, "Discarded session %s\n", sessionsDiscard)
			return nil
		}

		infos, err := store.List(ctx)
		if err != nil {
			return err
		}
		if len(infos) == 0 {
			fmt.Fprintln(out, sessionDim.Render("No review sessions."))
			return nil
		}
		for _, info := range infos {
			status := "archived"
			if !info.Archived {
				status = sessionStatus(ctx, store, info.SessionID)
			}
			fmt.Fprintf(out, "%s  %s  %s\n",
				sessionID.Render(info.SessionID),
				status,
				sessionDim.Render(info.UpdatedAt.Format(time.DateTime)))
		}
		return nil
	},
}

func sessionStatus(ctx context.Context, store checkpoint.Store, id string) string {
	data, err := store.Load(ctx, id)
	if err != nil {
		return sessionWarn.Render("unreadable")
	}
	state, err := review.DecodeState(data)
	if err != nil {
		return sessionWarn.Render("unreadable")
	}
	return fmt.Sprintf("%s (retries: %d)", state.Stage, state.Retries())
}

func init() {
	sessionsCmd.Flags().StringVar(&sessionsDiscard, "discard", "", "Delete the checkpoint of a session")
	rootCmd.AddCommand(sessionsCmd)
}
