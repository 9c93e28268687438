package model

import "strings"

// UncategorizedLabel groups expense records that carry no category.
const UncategorizedLabel = "Uncategorized"

// OtherCategory is offered for every record type.
const OtherCategory = "Other"

// DefaultCategories are the categories offered when entering a record.
// Records may still carry any other category string.
var DefaultCategories = map[RecordType][]string{
	TypeIncome:     {"Salary", "Business", OtherCategory},
	TypeExpense:    {"Food", "Rent", "Entertainment", "Transport", OtherCategory},
	TypeInvestment: {"Indian Stock", "Crypto Currency", "Mutual Funds", OtherCategory},
}

// CanonicalCategory returns the default spelling of name for type t when it
// matches one case-insensitively, and the trimmed input otherwise.
func CanonicalCategory(t RecordType, name string) string {
	name = strings.TrimSpace(name)
	for _, c := range DefaultCategories[t] {
		if strings.EqualFold(c, name) {
			return c
		}
	}
	return name
}

// IsDefaultCategory reports whether name is one of the offered categories for t.
func IsDefaultCategory(t RecordType, name string) bool {
	for _, c := range DefaultCategories[t] {
		if c == name {
			return true
		}
	}
	return false
}
