// Package report computes aggregate views of ledger records.
package report

import (
	"sort"
	"strings"
	"time"

	"github.com/Veraticus/smart-finance/internal/model"
	"github.com/shopspring/decimal"
)

// MonthTotal is the sum for one calendar month.
type MonthTotal struct {
	Label  string
	Amount decimal.Decimal
	Month  time.Month
}

// CategoryTotal is the sum for one expense category.
type CategoryTotal struct {
	Category string
	Amount   decimal.Decimal
	Count    int
}

// Summary bundles every aggregate shown on the dashboard.
type Summary struct {
	Totals          map[model.RecordType]decimal.Decimal
	Counts          map[model.RecordType]int
	Balance         decimal.Decimal
	Categories      []CategoryTotal
	ExpenseTrend    []MonthTotal
	IncomeTrend     []MonthTotal
	InvestmentTrend []MonthTotal
	Records         int
	Undated         int
}

// TotalsByType sums Amount per record type. Every known type is present in
// the result, zero when no records exist for it.
func TotalsByType(records []model.Record) map[model.RecordType]decimal.Decimal {
	totals := make(map[model.RecordType]decimal.Decimal, len(model.RecordTypes))
	for _, t := range model.RecordTypes {
		totals[t] = decimal.Zero
	}
	for _, r := range records {
		if !r.Type.Valid() {
			continue
		}
		totals[r.Type] = totals[r.Type].Add(r.Amount)
	}
	return totals
}

// Balance is income minus expenses minus investments.
func Balance(records []model.Record) decimal.Decimal {
	return balanceOf(TotalsByType(records))
}

func balanceOf(totals map[model.RecordType]decimal.Decimal) decimal.Decimal {
	return totals[model.TypeIncome].
		Sub(totals[model.TypeExpense]).
		Sub(totals[model.TypeInvestment])
}

// CountsByType counts records per type, every known type present.
func CountsByType(records []model.Record) map[model.RecordType]int {
	counts := make(map[model.RecordType]int, len(model.RecordTypes))
	for _, t := range model.RecordTypes {
		counts[t] = 0
	}
	for _, r := range records {
		if r.Type.Valid() {
			counts[r.Type]++
		}
	}
	return counts
}

// CategoryBreakdown sums expense amounts per category. Records with a blank
// category are grouped under model.UncategorizedLabel.
func CategoryBreakdown(records []model.Record) map[string]decimal.Decimal {
	breakdown := make(map[string]decimal.Decimal)
	for _, r := range records {
		if r.Type != model.TypeExpense {
			continue
		}
		key := categoryKey(r.Category)
		breakdown[key] = breakdown[key].Add(r.Amount)
	}
	return breakdown
}

// RankedCategories returns the expense breakdown sorted by amount, largest
// first, ties broken by name.
func RankedCategories(records []model.Record) []CategoryTotal {
	index := make(map[string]int)
	ranked := []CategoryTotal{}
	for _, r := range records {
		if r.Type != model.TypeExpense {
			continue
		}
		key := categoryKey(r.Category)
		i, ok := index[key]
		if !ok {
			i = len(ranked)
			index[key] = i
			ranked = append(ranked, CategoryTotal{Category: key})
		}
		ranked[i].Amount = ranked[i].Amount.Add(r.Amount)
		ranked[i].Count++
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if c := ranked[i].Amount.Cmp(ranked[j].Amount); c != 0 {
			return c > 0
		}
		return ranked[i].Category < ranked[j].Category
	})
	return ranked
}

// MonthlyTrend sums records of type t by calendar month across all years.
// The result is ordered January to December, omits months without records
// and excludes records without a valid date.
func MonthlyTrend(records []model.Record, t model.RecordType) []MonthTotal {
	var (
		sums [12]decimal.Decimal
		seen [12]bool
	)
	for _, r := range records {
		if r.Type != t || !r.HasDate() {
			continue
		}
		m := r.Date.Month() - 1
		sums[m] = sums[m].Add(r.Amount)
		seen[m] = true
	}

	trend := []MonthTotal{}
	for i := range sums {
		if !seen[i] {
			continue
		}
		month := time.Month(i + 1)
		trend = append(trend, MonthTotal{
			Month:  month,
			Label:  MonthLabel(month),
			Amount: sums[i],
		})
	}
	return trend
}

// MonthLabel is the short month name used in trend output.
func MonthLabel(m time.Month) string {
	return m.String()[:3]
}

// Summarize computes every aggregate in one pass over the records.
func Summarize(records []model.Record) Summary {
	totals := TotalsByType(records)
	undated := 0
	for _, r := range records {
		if !r.HasDate() {
			undated++
		}
	}

	return Summary{
		Totals:          totals,
		Counts:          CountsByType(records),
		Balance:         balanceOf(totals),
		Categories:      RankedCategories(records),
		ExpenseTrend:    MonthlyTrend(records, model.TypeExpense),
		IncomeTrend:     MonthlyTrend(records, model.TypeIncome),
		InvestmentTrend: MonthlyTrend(records, model.TypeInvestment),
		Records:         len(records),
		Undated:         undated,
	}
}

// Share returns part as a percentage of whole, zero when whole is zero.
func Share(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(decimal.NewFromInt(100)).Round(1)
}

func categoryKey(category string) string {
	category = strings.TrimSpace(category)
	if category == "" {
		return model.UncategorizedLabel
	}
	return category
}
