package domain

import (
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Transaction is one normalized row of the canonical transaction schema.
// Amount is signed: positive means money in (income), negative means money
// out (expense).
type Transaction struct {
	Date        civil.Date      // "YYYY-MM-DD"
	Description string          // free text, merchant or memo
	Amount      decimal.Decimal // signed; positive = income, negative = expense
	Category    string          // always one of Categories
}

// Table is the full transaction table. It is never mutated in place; the
// store swaps whole tables on reload.
type Table struct {
	Rows []Transaction
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// Columns is the canonical CSV header, in order.
var Columns = []string{"Date", "Description", "Amount", "Category"}

// Categories is the closed set of labels a transaction may carry.
var Categories = []string{
	"Retail",
	"Travel",
	"Entertainment",
	"Food & Dining",
	"Utilities",
	"Health",
	"Income",
	"Transfer",
	"Other",
	"Groceries",
	"Education",
	"Subscription",
}

// CategoryOther is the catch-all category every unknown label collapses into.
const CategoryOther = "Other"

var categoryIndex = func() map[string]string {
	m := make(map[string]string, len(Categories))
	for _, c := range Categories {
		m[strings.ToLower(c)] = c
	}
	return m
}()

// ValidCategory reports whether name is a member of the fixed category set,
// ignoring case and surrounding whitespace.
func ValidCategory(name string) bool {
	_, ok := categoryIndex[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// CoerceCategory maps an externally supplied label onto the fixed set.
// Known labels are returned in canonical casing; anything else becomes the
// catch-all.
func CoerceCategory(name string) string {
	if canonical, ok := categoryIndex[strings.ToLower(strings.TrimSpace(name))]; ok {
		return canonical
	}
	return CategoryOther
}
