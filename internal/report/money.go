package report

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// FormatAmount renders amount in the given ISO currency using its symbol,
// separators and minor unit precision. Unknown currency codes fall back to
// "CODE 1234.56".
func FormatAmount(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return currency + " " + amount.StringFixed(2)
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}

// CurrencySymbol returns the grapheme for currency, or the code itself.
func CurrencySymbol(currency string) string {
	if cur := money.GetCurrency(currency); cur != nil && cur.Grapheme != "" {
		return cur.Grapheme
	}
	return currency
}
