package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/Veraticus/smart-finance/internal/app"
	"github.com/Veraticus/smart-finance/internal/cli"
	"github.com/Veraticus/smart-finance/internal/common"
	"github.com/Veraticus/smart-finance/internal/report"
	"github.com/Veraticus/smart-finance/internal/tui"
	"github.com/Veraticus/smart-finance/internal/tui/themes"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func dashboardCmd() *cobra.Command {
	var interactive bool

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show totals, balance and spending charts",
		Long: `Summarize the ledger: totals per record type, the balance (income minus
expenses minus investments), expenses by category and the monthly trend.

With --interactive the dashboard opens as a full-screen browser where records
can be filtered by type and deleted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, func(ctx context.Context, env *environment, state *app.State) error {
				if !interactive {
					summary := report.Summarize(state.Ledger.Records())
					fmt.Fprint(cmd.OutOrStdout(), cli.RenderSummary(summary, env.settings.Currency))
					return nil
				}

				theme, ok := themes.ByName(env.settings.Theme)
				if !ok {
					return common.NewUserError(fmt.Sprintf("unknown theme %q (available: %s)",
						env.settings.Theme, strings.Join(themes.Names(), ", ")), common.ErrInvalidConfig)
				}

				opts := []tui.Option{
					tui.WithTheme(theme),
					tui.WithCurrency(env.settings.Currency),
				}
				if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
					opts = append(opts, tui.WithSize(w, h))
				}
				return tui.Run(ctx, state.Ledger, opts...)
			})
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "open the interactive dashboard")

	return cmd
}

func reportCmd() *cobra.Command {
	var style string
	var raw bool
	var width int

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a markdown report of the ledger",
		Example: `  # Render in the terminal
  finance report

  # Save plain markdown
  finance report --raw > report.md`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, func(_ context.Context, env *environment, state *app.State) error {
				md := report.Markdown(report.Summarize(state.Ledger.Records()), env.settings.Currency)
				if raw {
					fmt.Fprint(cmd.OutOrStdout(), md)
					return nil
				}

				rendered, err := cli.RenderMarkdown(md, style, width)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), rendered)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&style, "style", "", "glamour style (dark, light, notty); default follows the terminal")
	cmd.Flags().BoolVar(&raw, "raw", false, "print markdown without rendering")
	cmd.Flags().IntVar(&width, "width", 100, "word wrap width")

	return cmd
}
