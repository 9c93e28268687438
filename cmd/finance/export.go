package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/Veraticus/smart-finance/internal/app"
	"github.com/Veraticus/smart-finance/internal/cli"
	"github.com/Veraticus/smart-finance/internal/common"
	"github.com/Veraticus/smart-finance/internal/config"
	"github.com/Veraticus/smart-finance/internal/report"
	"github.com/Veraticus/smart-finance/internal/sheets"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// sheetsExporter is a sheets.ReportWriter that knows where it wrote.
type sheetsExporter interface {
	sheets.ReportWriter
	SpreadsheetID() string
}

// newSheetsWriter builds the Google Sheets writer; tests replace it.
var newSheetsWriter = func(ctx context.Context, cfg sheets.Config) (sheetsExporter, error) {
	return sheets.NewWriter(ctx, cfg, slog.Default())
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the ledger",
	}

	cmd.AddCommand(exportSheetsCmd())

	return cmd
}

func exportSheetsCmd() *cobra.Command {
	var spreadsheetID string

	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Write records and the summary to Google Sheets",
		Long: `Replace the Records and Summary tabs of a Google spreadsheet with the current
ledger. Authenticate with a service account (sheets.service_account_path) or
with OAuth2 credentials; run "finance export sheets auth" once to obtain a
refresh token.

Without sheets.spreadsheet_id a new spreadsheet is created; put the printed ID
in your configuration to keep writing to it.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v := viper.GetViper()
			if spreadsheetID != "" {
				v.Set("sheets.spreadsheet_id", spreadsheetID)
			}
			cfg, err := config.LoadSheetsConfig(v)
			if err != nil {
				return common.NewUserError("google sheets is not configured", err)
			}

			return withSession(cmd, func(ctx context.Context, env *environment, state *app.State) error {
				cfg.Currency = env.settings.Currency

				writer, err := newSheetsWriter(ctx, *cfg)
				if err != nil {
					return err
				}

				records := state.Ledger.Records()
				if err := writer.Write(ctx, records, report.Summarize(records)); err != nil {
					return fmt.Errorf("failed to export to sheets: %w", err)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Exported %d records to Google Sheets", len(records))))
				if id := writer.SpreadsheetID(); id != "" {
					fmt.Fprintf(out, "  https://docs.google.com/spreadsheets/d/%s\n", id)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&spreadsheetID, "spreadsheet-id", "", "spreadsheet to write (overrides sheets.spreadsheet_id)")
	cmd.AddCommand(sheetsAuthCmd())

	return cmd
}

func sheetsAuthCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize Google Sheets access with OAuth2",
		Long: `Run the OAuth2 consent flow for sheets.client_id / sheets.client_secret and
print the refresh token to store as sheets.refresh_token. The token is also
saved under the data directory and reused on the next run.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := commandContext(cmd)
			settings, err := config.Load(viper.GetViper())
			if err != nil {
				return err
			}

			clientID := viper.GetString("sheets.client_id")
			clientSecret := viper.GetString("sheets.client_secret")
			if clientID == "" || clientSecret == "" {
				return common.NewUserError("set sheets.client_id and sheets.client_secret first", common.ErrMissingConfig)
			}

			out := cmd.OutOrStdout()
			token, err := sheets.GetOrCreateToken(ctx, sheets.OAuth2Config{
				ClientID:     clientID,
				ClientSecret: clientSecret,
				TokenFile:    filepath.Join(settings.DataDir, "sheets-token.json"),
				ListenAddr:   listen,
			}, out)
			if err != nil {
				return fmt.Errorf("failed to authorize google sheets: %w", err)
			}

			fmt.Fprintln(out, cli.FormatSuccess("Google Sheets authorized"))
			fmt.Fprintf(out, "Add this to your configuration:\n\n  sheets:\n    refresh_token: %s\n", token.RefreshToken)
			return nil
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "localhost:8080", "address for the OAuth2 callback")

	return cmd
}
