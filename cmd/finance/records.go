package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/smart-finance/internal/app"
	"github.com/Veraticus/smart-finance/internal/cli"
	"github.com/Veraticus/smart-finance/internal/common"
	"github.com/Veraticus/smart-finance/internal/ledger"
	"github.com/Veraticus/smart-finance/internal/model"
	"github.com/Veraticus/smart-finance/internal/report"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// recordKind describes the command group for one record type.
type recordKind struct {
	Type    model.RecordType
	Use     string
	Short   string
	Example string
}

var recordKinds = []recordKind{
	{
		Type:    model.TypeIncome,
		Use:     "income",
		Short:   "Record and review income",
		Example: `  finance income add --amount 5000 --category Salary --date 2024-01-10`,
	},
	{
		Type:    model.TypeExpense,
		Use:     "expense",
		Short:   "Record and review expenses",
		Example: `  finance expense add --amount 42.50 --category Food --paid-via "Credit Card" --note lunch`,
	},
	{
		Type:    model.TypeInvestment,
		Use:     "investment",
		Short:   "Record and review investments",
		Example: `  finance investment add --units 2 --price 150 --category "Crypto Currency"`,
	},
}

func recordCmd(kind recordKind) *cobra.Command {
	cmd := &cobra.Command{
		Use:     kind.Use,
		Short:   kind.Short,
		Example: kind.Example,
	}

	cmd.AddCommand(addRecordCmd(kind))
	cmd.AddCommand(listRecordsCmd(kind))
	cmd.AddCommand(updateRecordCmd(kind))
	cmd.AddCommand(deleteRecordCmd(kind))

	return cmd
}

// Flag names shared by add and update.
const (
	flagAmount    = "amount"
	flagCategory  = "category"
	flagDate      = "date"
	flagNote      = "note"
	flagPaidVia   = "paid-via"
	flagUnits     = "units"
	flagPrice     = "price"
	flagExtraNote = "extra-note"
)

// recordFlags collects the editable fields of a record from the command line.
type recordFlags struct {
	amount    string
	category  string
	date      string
	note      string
	paidVia   string
	units     string
	price     string
	extraNote string
}

func (f *recordFlags) register(fs *pflag.FlagSet, t model.RecordType) {
	fs.StringVarP(&f.amount, flagAmount, "a", "", "amount")
	fs.StringVarP(&f.category, flagCategory, "c", "", "category")
	fs.StringVarP(&f.date, flagDate, "d", "", "date (YYYY-MM-DD, default today)")
	fs.StringVarP(&f.note, flagNote, "n", "", "free-form note")
	fs.StringVar(&f.extraNote, flagExtraNote, "", "additional note")
	if t == model.TypeExpense {
		fs.StringVar(&f.paidVia, flagPaidVia, "", "payment method")
	}
	if t == model.TypeInvestment {
		fs.StringVar(&f.units, flagUnits, "", "number of units bought")
		fs.StringVar(&f.price, flagPrice, "", "price of a single unit")
	}
}

// apply copies every flag set on fs onto base.
func (f *recordFlags) apply(fs *pflag.FlagSet, base model.Record) (model.Record, error) {
	rec := base

	if fs.Changed(flagAmount) {
		amount, err := decimal.NewFromString(strings.TrimSpace(f.amount))
		if err != nil {
			return model.Record{}, fmt.Errorf("%w: amount %q is not a number", common.ErrInvalidRecord, f.amount)
		}
		rec.Amount = amount
	}
	if fs.Changed(flagCategory) {
		rec.Category = strings.TrimSpace(f.category)
	}
	if fs.Changed(flagDate) {
		date, err := model.ParseDate(f.date)
		if err != nil {
			return model.Record{}, fmt.Errorf("%w: %v", common.ErrInvalidRecord, err)
		}
		rec.Date = date
	}
	if fs.Changed(flagNote) {
		rec.Note = f.note
	}
	if fs.Changed(flagExtraNote) {
		rec.ExtraNote = f.extraNote
	}
	if fs.Changed(flagPaidVia) {
		rec.PaidVia = strings.TrimSpace(f.paidVia)
	}

	if rec.Type == model.TypeInvestment {
		var err error
		if fs.Changed(flagUnits) {
			if rec.Units, err = parseNullDecimal(flagUnits, f.units); err != nil {
				return model.Record{}, err
			}
		}
		if fs.Changed(flagPrice) {
			if rec.SinglePrice, err = parseNullDecimal(flagPrice, f.price); err != nil {
				return model.Record{}, err
			}
		}
		// A zero amount is recomputed from units and price by the ledger.
		if (fs.Changed(flagUnits) || fs.Changed(flagPrice)) && !fs.Changed(flagAmount) {
			if !rec.Units.Valid || !rec.SinglePrice.Valid {
				return model.Record{}, common.NewUserError(
					"--units and --price are both needed to recompute the amount; pass --amount instead", nil)
			}
			rec.Amount = decimal.Zero
		}
	}

	return rec, nil
}

func parseNullDecimal(name, value string) (decimal.NullDecimal, error) {
	if strings.TrimSpace(value) == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("%w: %s %q is not a number", common.ErrInvalidRecord, name, value)
	}
	return decimal.NewNullDecimal(d), nil
}

func addRecordCmd(kind recordKind) *cobra.Command {
	var flags recordFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: fmt.Sprintf("Add a new %s record", strings.ToLower(string(kind.Type))),
		RunE: func(cmd *cobra.Command, _ []string) error {
			fs := cmd.Flags()
			if !fs.Changed(flagAmount) && !(fs.Changed(flagUnits) && fs.Changed(flagPrice)) {
				return common.NewUserError("--amount is required", nil)
			}

			return withSession(cmd, func(ctx context.Context, env *environment, state *app.State) error {
				base := model.Record{Type: kind.Type, Date: env.app.Now()}
				rec, err := flags.apply(fs, base)
				if err != nil {
					return err
				}

				added, err := state.Ledger.Append(ctx, rec)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Saved %s #%d: %s in %s",
					added.Type, added.ID,
					report.FormatAmount(added.Amount, env.settings.Currency),
					displayCategory(added.Category))))
				if added.Category != "" && !model.IsDefaultCategory(added.Type, added.Category) {
					fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("%q is a custom %s category",
						added.Category, strings.ToLower(string(added.Type)))))
				}
				return nil
			})
		},
	}

	flags.register(cmd.Flags(), kind.Type)
	_ = cmd.MarkFlagRequired(flagCategory)

	return cmd
}

func listRecordsCmd(kind recordKind) *cobra.Command {
	var category, month string
	var year int

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   fmt.Sprintf("List %s records", strings.ToLower(string(kind.Type))),
		Example: fmt.Sprintf("  finance %s list --month march --year 2024", kind.Use),
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := ledger.Filter{Type: kind.Type, Category: category, Year: year}
			if month != "" {
				m, err := parseMonth(month)
				if err != nil {
					return common.NewUserError(err.Error(), nil)
				}
				filter.Month = m
			}

			return withSession(cmd, func(_ context.Context, env *environment, state *app.State) error {
				out := cmd.OutOrStdout()
				records := state.Ledger.Filter(filter)
				if len(records) == 0 {
					fmt.Fprintln(out, cli.SubtitleStyle.Render(fmt.Sprintf("No %s records found.", strings.ToLower(string(kind.Type)))))
					return nil
				}

				total := report.TotalsByType(records)[kind.Type]
				fmt.Fprintln(out, cli.RecordTable(records, env.settings.Currency))
				fmt.Fprintf(out, "%s %s (%d records)\n",
					cli.BoldStyle.Render("Total:"),
					report.FormatAmount(total, env.settings.Currency),
					len(records))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "only show this category")
	cmd.Flags().StringVarP(&month, "month", "m", "", "only show this month (name or number)")
	cmd.Flags().IntVarP(&year, "year", "y", 0, "only show this year")

	return cmd
}

func updateRecordCmd(kind recordKind) *cobra.Command {
	var flags recordFlags

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: fmt.Sprintf("Change an existing %s record", strings.ToLower(string(kind.Type))),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			return withSession(cmd, func(ctx context.Context, env *environment, state *app.State) error {
				out := cmd.OutOrStdout()
				current, ok := state.Ledger.Get(id)
				if !ok || current.Type != kind.Type {
					fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("No %s record with ID %d, nothing changed.", strings.ToLower(string(kind.Type)), id)))
					return nil
				}

				rec, err := flags.apply(cmd.Flags(), current)
				if err != nil {
					return err
				}
				updated, err := state.Ledger.Update(ctx, id, rec)
				if err != nil {
					return printStale(out, err)
				}

				fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Updated %s #%d: %s in %s",
					updated.Type, updated.ID,
					report.FormatAmount(updated.Amount, env.settings.Currency),
					displayCategory(updated.Category))))
				return nil
			})
		},
	}

	flags.register(cmd.Flags(), kind.Type)

	return cmd
}

func deleteRecordCmd(kind recordKind) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   fmt.Sprintf("Delete a %s record", strings.ToLower(string(kind.Type))),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			return withSession(cmd, func(ctx context.Context, env *environment, state *app.State) error {
				out := cmd.OutOrStdout()
				if current, ok := state.Ledger.Get(id); ok && current.Type != kind.Type {
					fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("Record %d is %s, not %s; nothing changed.", id, current.Type, kind.Type)))
					return nil
				}

				removed, err := state.Ledger.Remove(ctx, id)
				if err != nil {
					return printStale(out, err)
				}

				fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Deleted %s #%d (%s)",
					removed.Type, removed.ID, report.FormatAmount(removed.Amount, env.settings.Currency))))
				return nil
			})
		},
	}
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(arg), "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, common.NewUserError(fmt.Sprintf("invalid record ID %q", arg), nil)
	}
	return id, nil
}

// parseMonth accepts a month number, a full month name or its first three
// letters, in any case.
func parseMonth(s string) (time.Month, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		if n < 1 || n > 12 {
			return 0, fmt.Errorf("month %d is out of range", n)
		}
		return time.Month(n), nil
	}
	for m := time.January; m <= time.December; m++ {
		name := strings.ToLower(m.String())
		if s == name || (len(s) >= 3 && strings.HasPrefix(name, s)) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown month %q", s)
}

func displayCategory(category string) string {
	if category == "" {
		return model.UncategorizedLabel
	}
	return category
}
