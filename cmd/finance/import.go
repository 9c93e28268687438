package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Veraticus/smart-finance/internal/app"
	"github.com/Veraticus/smart-finance/internal/cli"
	"github.com/Veraticus/smart-finance/internal/common"
	"github.com/Veraticus/smart-finance/internal/config"
	"github.com/Veraticus/smart-finance/internal/importer"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// newPlaidFetcher builds the Plaid client; tests replace it.
var newPlaidFetcher = func(cfg importer.PlaidConfig) (importer.TransactionFetcher, error) {
	return importer.NewPlaidClient(cfg)
}

// newSimpleFINFetcher claims or loads SimpleFIN access; tests replace it.
var newSimpleFINFetcher = func(ctx context.Context, token, statePath string) (importer.TransactionFetcher, error) {
	auth, err := importer.LoadOrClaimSimpleFIN(ctx, token, statePath)
	if err != nil {
		return nil, err
	}
	return importer.NewSimpleFINClient(auth.AccessURL)
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import transactions from your bank",
		Long: `Import transactions as ledger records. Money leaving an account becomes an
expense and money arriving becomes income. Transactions imported before are skipped, so the
same statement can be imported twice safely.

An automatic checkpoint is taken before anything is written; restore it with
"finance checkpoint restore" if an import goes wrong.`,
	}

	cmd.AddCommand(importOFXCmd())
	cmd.AddCommand(importPlaidCmd())
	cmd.AddCommand(importSimpleFINCmd())

	return cmd
}

func importOFXCmd() *cobra.Command {
	var noCheckpoint bool

	cmd := &cobra.Command{
		Use:   "ofx <files...>",
		Short: "Import OFX/QFX statement files",
		Example: `  # Import single file
  finance import ofx ~/Downloads/chase_jan_2024.qfx

  # Import every statement in a directory
  finance import ofx ~/Downloads/*.qfx`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := expandFiles(args)
			if err != nil {
				return err
			}

			return withSession(cmd, func(ctx context.Context, env *environment, state *app.State) error {
				out := cmd.OutOrStdout()
				if !noCheckpoint {
					autoCheckpoint(ctx, env, out, "import")
				}

				handler := cli.NewInterruptHandler(out)
				ctx = handler.HandleInterrupts(ctx, "OFX import")

				bar := cli.NewProgressBar(cmd.ErrOrStderr(), len(files), "Importing statements")
				var added, skipped, failed int
				for _, path := range files {
					if ctx.Err() != nil {
						break
					}

					result, err := importer.Import(ctx, state.Ledger, importer.NewOFXFile(path))
					_ = bar.Add(1)
					switch {
					case errors.Is(err, common.ErrNothingToImport):
						common.LogWarn("No transactions found in file", common.Fields{"file": filepath.Base(path)})
					case err != nil:
						failed++
						common.LogError(err, "Failed to import file", common.Fields{"file": path})
					default:
						added += len(result.Added)
						skipped += result.Skipped
					}
				}
				_ = bar.Finish()

				printImportSummary(out, added, skipped)
				if handler.WasInterrupted() {
					return common.NewUserError("import interrupted, files processed so far were saved", context.Canceled)
				}
				if failed > 0 {
					return common.NewUserError(fmt.Sprintf("%d of %d files could not be imported", failed, len(files)), nil)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&noCheckpoint, "no-checkpoint", false, "skip the automatic checkpoint")

	return cmd
}

func importPlaidCmd() *cobra.Command {
	var days int
	var start, end string
	var noCheckpoint bool

	cmd := &cobra.Command{
		Use:   "plaid",
		Short: "Import recent transactions through Plaid",
		Long: `Fetch posted transactions from a linked Plaid item. Credentials come from the
plaid.* configuration keys or the PLAID_CLIENT_ID, PLAID_SECRET, PLAID_ENV and
PLAID_ACCESS_TOKEN environment variables.`,
		Example: `  finance import plaid --days 60
  finance import plaid --start 2024-01-01 --end 2024-03-31`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadPlaidConfig(viper.GetViper())
			if err != nil {
				return common.NewUserError("plaid is not configured", err)
			}

			return withSession(cmd, func(ctx context.Context, env *environment, state *app.State) error {
				window, err := importWindow(env.app.Now(), days, start, end)
				if err != nil {
					return err
				}

				fetcher, err := newPlaidFetcher(*cfg)
				if err != nil {
					return err
				}

				return runRemoteImport(ctx, cmd.OutOrStdout(), env, state, &importer.PlaidSource{
					Fetcher: fetcher,
					Start:   window.start,
					End:     window.end,
				}, noCheckpoint)
			})
		},
	}

	cmd.Flags().IntVar(&days, "days", 30, "number of days to fetch, ending today")
	cmd.Flags().StringVar(&start, "start", "", "first day to fetch (YYYY-MM-DD), overrides --days")
	cmd.Flags().StringVar(&end, "end", "", "last day to fetch (YYYY-MM-DD, default today)")
	cmd.Flags().BoolVar(&noCheckpoint, "no-checkpoint", false, "skip the automatic checkpoint")

	return cmd
}

func importSimpleFINCmd() *cobra.Command {
	var days int
	var start, end, token string
	var noCheckpoint bool

	cmd := &cobra.Command{
		Use:   "simplefin",
		Short: "Import recent transactions through SimpleFIN Bridge",
		Long: `Fetch posted transactions from every account shared through SimpleFIN Bridge.
The first run claims a setup token (--token, the simplefin.token configuration
key or SIMPLEFIN_TOKEN); the access URL it returns is saved in the data
directory and reused afterwards.`,
		Example: `  finance import simplefin --token aHR0cHM6Ly9icmlkZ2Uuc2ltcGxlZmluLm9yZy9jbGFpbS8uLi4=
  finance import simplefin --days 14`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if token == "" {
				token = config.LoadSimpleFINToken(viper.GetViper())
			}

			return withSession(cmd, func(ctx context.Context, env *environment, state *app.State) error {
				window, err := importWindow(env.app.Now(), days, start, end)
				if err != nil {
					return err
				}

				statePath := importer.SimpleFINStatePath(env.settings.DataDir)
				fetcher, err := newSimpleFINFetcher(ctx, token, statePath)
				if errors.Is(err, common.ErrMissingConfig) {
					return common.NewUserError("simplefin is not configured, pass --token with a setup token", err)
				}
				if err != nil {
					return err
				}

				return runRemoteImport(ctx, cmd.OutOrStdout(), env, state, &importer.SimpleFINSource{
					Fetcher: fetcher,
					Start:   window.start,
					End:     window.end,
				}, noCheckpoint)
			})
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "SimpleFIN setup token (only needed once)")
	cmd.Flags().IntVar(&days, "days", 30, "number of days to fetch, ending today")
	cmd.Flags().StringVar(&start, "start", "", "first day to fetch (YYYY-MM-DD), overrides --days")
	cmd.Flags().StringVar(&end, "end", "", "last day to fetch (YYYY-MM-DD, default today)")
	cmd.Flags().BoolVar(&noCheckpoint, "no-checkpoint", false, "skip the automatic checkpoint")

	return cmd
}

// runRemoteImport imports one fetched window into the ledger.
func runRemoteImport(ctx context.Context, out io.Writer, env *environment, state *app.State, src importer.Source, noCheckpoint bool) error {
	if !noCheckpoint {
		autoCheckpoint(ctx, env, out, src.Name())
	}

	result, err := importer.Import(ctx, state.Ledger, src)
	if errors.Is(err, common.ErrNothingToImport) {
		fmt.Fprintln(out, cli.FormatInfo("No transactions in that period."))
		return nil
	}
	if err != nil {
		return err
	}

	printImportSummary(out, len(result.Added), result.Skipped)
	return nil
}

type dateWindow struct {
	start time.Time
	end   time.Time
}

// importWindow resolves the fetch window from --days, --start and --end.
func importWindow(now time.Time, days int, start, end string) (dateWindow, error) {
	w := dateWindow{end: now}
	if end != "" {
		t, err := time.Parse("2006-01-02", end)
		if err != nil {
			return dateWindow{}, common.NewUserError(fmt.Sprintf("invalid --end date %q", end), err)
		}
		w.end = t
	}

	if start != "" {
		t, err := time.Parse("2006-01-02", start)
		if err != nil {
			return dateWindow{}, common.NewUserError(fmt.Sprintf("invalid --start date %q", start), err)
		}
		w.start = t
	} else {
		if days <= 0 {
			return dateWindow{}, common.NewUserError("--days must be positive", nil)
		}
		w.start = w.end.AddDate(0, 0, -days)
	}

	if w.start.After(w.end) {
		return dateWindow{}, common.NewUserError("--start is after --end", nil)
	}
	return w, nil
}

// expandFiles resolves glob patterns, keeping plain paths that exist.
func expandFiles(patterns []string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) > 0 {
			files = append(files, matches...)
			continue
		}
		if _, err := os.Stat(pattern); err == nil {
			files = append(files, pattern)
		} else {
			slog.Warn("No files found matching pattern", "pattern", pattern)
		}
	}

	if len(files) == 0 {
		return nil, common.NewUserError("no files found to import", nil)
	}
	return files, nil
}

// autoCheckpoint snapshots the ledger before an import. Failure is reported
// but does not stop the import.
func autoCheckpoint(ctx context.Context, env *environment, out io.Writer, prefix string) {
	manager, err := env.checkpoints()
	if err != nil {
		fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("Could not create a checkpoint: %v", err)))
		return
	}

	info, err := manager.AutoCheckpoint(ctx, prefix)
	if err != nil {
		fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("Could not create a checkpoint: %v", err)))
		return
	}
	fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Checkpoint %s saved", info.ID)))
}

func printImportSummary(out io.Writer, added, skipped int) {
	msg := fmt.Sprintf("Imported %d new record(s)", added)
	if skipped > 0 {
		msg += fmt.Sprintf(", skipped %d already imported", skipped)
	}
	fmt.Fprintln(out, cli.FormatSuccess(msg))
}
