package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/Veraticus/smart-finance/internal/ledger"
	tea "github.com/charmbracelet/bubbletea"
)

// Run shows the dashboard for l until the user quits or ctx is canceled.
// Deletions made in the dashboard are written through the ledger.
func Run(ctx context.Context, l *ledger.Ledger, opts ...Option) error {
	if l == nil {
		return errors.New("ledger is required")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	programOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if cfg.AltScreen {
		programOpts = append(programOpts, tea.WithAltScreen())
	}

	p := tea.NewProgram(newModel(ctx, l, cfg), programOpts...)
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("dashboard failed: %w", err)
	}
	return nil
}
