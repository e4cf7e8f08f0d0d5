package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/ui"
)

// TUI launches the interactive terminal UI that previews a mix before saving it.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	req, err := r.mixRequest(cmd)
	if err != nil {
		return err
	}

	publish := publishOptions(cmd, len(req.Sources), "mixtape "+time.Now().Format(time.DateOnly))

	// Logs go to a file while the TUI owns the terminal
	fileLogger, logFile, err := shared.NewFileLogger(filepath.Join("tmp", "mixtape-tui.log"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer logFile.Close()
	r.SetLogger(fileLogger)

	model := ui.NewModel(ctx, r.mixEngine(ctx), req, *publish)
	p := tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}

// tuiCommand returns the top-level TUI command for interactive mixing.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Preview a mix interactively before saving it to Spotify",
		Flags:   mixFlags(),
		Action:  r.TUI,
	}
}
