// Package importer converts bank exports and aggregator feeds into ledger
// records.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/smart-finance/internal/common"
	"github.com/Veraticus/smart-finance/internal/ledger"
	"github.com/Veraticus/smart-finance/internal/model"
)

// markerPrefix tags the ExtraNote of imported records.
const markerPrefix = "import:"

// Source produces records from an external system.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]model.Record, error)
}

// Result summarizes one import run.
type Result struct {
	Source  string
	Added   []model.Record
	Fetched int
	Skipped int
}

// Marker builds the ExtraNote value identifying an imported transaction.
func Marker(source, externalID string) string {
	return markerPrefix + source + ":" + externalID
}

// IsImported reports whether r was created by an importer.
func IsImported(r model.Record) bool {
	return strings.HasPrefix(r.ExtraNote, markerPrefix)
}

// Dedupe drops incoming records whose import marker already appears in
// existing or earlier in incoming. Records without a marker are kept.
func Dedupe(existing, incoming []model.Record) (kept []model.Record, skipped int) {
	seen := make(map[string]bool, len(existing))
	for _, r := range existing {
		if IsImported(r) {
			seen[r.ExtraNote] = true
		}
	}

	kept = make([]model.Record, 0, len(incoming))
	for _, r := range incoming {
		if IsImported(r) {
			if seen[r.ExtraNote] {
				skipped++
				continue
			}
			seen[r.ExtraNote] = true
		}
		kept = append(kept, r)
	}
	return kept, skipped
}

// Import fetches from src and appends the new records to l in one save.
func Import(ctx context.Context, l *ledger.Ledger, src Source) (*Result, error) {
	logger := slog.Default().With("component", "importer", "source", src.Name())

	fetched, err := src.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch from %s: %w", src.Name(), err)
	}
	if len(fetched) == 0 {
		return nil, fmt.Errorf("%w: %s returned no transactions", common.ErrNothingToImport, src.Name())
	}

	fresh, skipped := Dedupe(l.Records(), fetched)
	result := &Result{
		Source:  src.Name(),
		Fetched: len(fetched),
		Skipped: skipped,
		Added:   []model.Record{},
	}

	if len(fresh) > 0 {
		added, err := l.AppendAll(ctx, fresh)
		if err != nil {
			return nil, err
		}
		result.Added = added
	}

	logger.Info("Import finished",
		"fetched", result.Fetched,
		"added", len(result.Added),
		"skipped", result.Skipped)

	return result, nil
}

// categoryKeywords maps substrings of bank descriptions or aggregator
// categories onto the default expense categories.
var categoryKeywords = []struct {
	category string
	keywords []string
}{
	{"Food", []string{"food", "restaurant", "grocer", "coffee", "cafe", "dining", "supermarket"}},
	{"Rent", []string{"rent", "mortgage", "housing", "lease"}},
	{"Transport", []string{"transport", "travel", "taxi", "uber", "lyft", "airline", "fuel", "gas station", "parking", "transit"}},
	{"Entertainment", []string{"entertainment", "recreation", "movie", "cinema", "music", "netflix", "spotify", "games"}},
}

// incomeKeywords maps hints onto the default income categories.
var incomeKeywords = []struct {
	category string
	keywords []string
}{
	{"Salary", []string{"payroll", "salary", "direct deposit", "directdep", "wages"}},
	{"Business", []string{"invoice", "business", "stripe", "paypal transfer"}},
}

// guessCategory picks a default category for t from free-text hints,
// falling back to model.OtherCategory.
func guessCategory(t model.RecordType, hints ...string) string {
	table := categoryKeywords
	if t == model.TypeIncome {
		table = incomeKeywords
	}

	text := strings.ToLower(strings.Join(hints, " "))
	for _, entry := range table {
		for _, kw := range entry.keywords {
			if strings.Contains(text, kw) {
				return entry.category
			}
		}
	}
	return model.OtherCategory
}
