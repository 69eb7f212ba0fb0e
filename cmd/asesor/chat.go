package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"asesor/internal/observability"
	"asesor/internal/tui"
)

// newChatCmd creates the interactive chat subcommand.
func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Open the interactive chat",
		RunE: func(cmd *cobra.Command, args []string) error {
			// The terminal belongs to the UI; logs go to log.file or nowhere.
			var out io.Writer = io.Discard
			if cfg.Log.File != "" {
				f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return fmt.Errorf("open log file: %w", err)
				}
				defer f.Close()
				out = f
			}
			log := observability.NewLogger(observability.LogConfig{
				Level:       cfg.Log.Level,
				Format:      "json",
				Output:      out,
				ServiceName: "asesor-chat",
			})

			a, err := newApp(log)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			companies := a.companies(ctx, log)
			cancel()

			m := tui.New(tui.Options{
				Assistant: a.assistant(log),
				Companies: companies,
				Company:   cfg.Company,
				Profile:   cfg.Profile,
				Timeout:   time.Duration(cfg.Backend.TimeoutSecs+30) * time.Second,
				Logger:    log,
			})
			_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
			return err
		},
	}
}
