package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/Veraticus/smart-finance/internal/accounts"
	"github.com/Veraticus/smart-finance/internal/app"
	"github.com/Veraticus/smart-finance/internal/cli"
	"github.com/Veraticus/smart-finance/internal/common"
	"github.com/Veraticus/smart-finance/internal/config"
	"github.com/Veraticus/smart-finance/internal/session"
	"github.com/Veraticus/smart-finance/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// environment bundles what every command needs: resolved settings, the
// record store and the application services built on it.
type environment struct {
	settings *config.Settings
	store    storage.RecordStore
	app      *app.App
}

// openEnvironment loads configuration and opens the stores.
func openEnvironment(ctx context.Context) (*environment, error) {
	settings, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	store, err := storage.Open(ctx, settings.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to open record store: %w", err)
	}

	dir, err := accounts.Open(settings.AccountsPath)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if warning := dir.Warning(); warning != nil {
		slog.Warn("Account directory could not be read", "error", warning)
	}

	sessions := session.NewStore(settings.SessionPath, settings.SessionTTL)

	return &environment{
		settings: settings,
		store:    store,
		app:      app.New(dir, sessions, store),
	}, nil
}

// Close releases the record store.
func (e *environment) Close() {
	if err := e.store.Close(); err != nil {
		slog.Warn("Failed to close record store", "error", err)
	}
}

// requireSession resumes the saved session or explains how to start one.
func (e *environment) requireSession(ctx context.Context, out io.Writer) (*app.State, error) {
	state, err := e.app.Resume(ctx)
	if err != nil {
		if errors.Is(err, common.ErrNotLoggedIn) {
			return nil, common.NewUserError("please log in first (finance login)", err)
		}
		return nil, err
	}
	if warning := state.Ledger.Warning(); warning != nil {
		fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("Records could not be loaded, starting empty: %v", warning)))
	}
	return state, nil
}

// checkpoints returns the checkpoint manager for the active store.
func (e *environment) checkpoints() (*storage.CheckpointManager, error) {
	return storage.NewCheckpointManager(e.store, filepath.Join(e.settings.DataDir, "checkpoints"))
}

// withSession opens the environment, resumes the session and runs fn.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, env *environment, state *app.State) error) error {
	ctx := commandContext(cmd)

	env, err := openEnvironment(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	state, err := env.requireSession(ctx, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	return fn(ctx, env, state)
}

// commandContext returns the command's context, falling back to Background
// when it runs outside ExecuteContext.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func prompter(cmd *cobra.Command) *cli.Prompter {
	return cli.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
}

// printStale reports an operation on a record that no longer exists. It is
// a warning, not a failure.
func printStale(out io.Writer, err error) error {
	if errors.Is(err, common.ErrInvalidIndex) {
		fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("Nothing changed: %v", err)))
		return nil
	}
	return err
}
