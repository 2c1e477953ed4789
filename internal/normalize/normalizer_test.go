package normalize

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/khimraj/budget-planner/internal/domain"
	"github.com/khimraj/budget-planner/internal/logger"
)

type stubGenerator struct {
	output string
	err    error
	prompt string
}

func (s *stubGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.output, s.err
}

const modelOutput = `[
  {"date": "2024-01-05", "description": "TESCO STORES 3297", "amount": -42.00, "category": "Groceries"},
  {"date": "2024-01-10", "description": "ACME CORP SALARY", "amount": 2000.00, "category": "Income"}
]`

func TestNormalize(t *testing.T) {
	gen := &stubGenerator{output: modelOutput}
	n := newWithGenerator(gen, logger.NewWithWriter(&strings.Builder{}))

	table, err := n.Normalize(context.Background(), "Transaction Date,Details,Debit,Credit\n05/01/2024,TESCO,42.00,\n")
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	if table.Len() != 2 {
		t.Fatalf("rows = %d, want 2", table.Len())
	}
	if got := table.Rows[0].Amount.String(); got != "-42" {
		t.Errorf("amount = %s, want -42", got)
	}
	if got := table.Rows[1].Category; got != "Income" {
		t.Errorf("category = %q, want Income", got)
	}
	if !strings.Contains(gen.prompt, "Groceries") {
		t.Error("prompt should list the fixed categories")
	}
	if !strings.Contains(gen.prompt, "TESCO") {
		t.Error("prompt should embed the raw CSV")
	}
}

func TestNormalize_CoercesUnknownCategory(t *testing.T) {
	gen := &stubGenerator{output: `[{"date": "2024-01-05", "description": "Mystery", "amount": -5, "category": "Cryptids"}]`}
	n := newWithGenerator(gen, logger.NewWithWriter(&strings.Builder{}))

	table, err := n.Normalize(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if got := table.Rows[0].Category; got != domain.CategoryOther {
		t.Errorf("category = %q, want %q", got, domain.CategoryOther)
	}
}

func TestNormalize_Errors(t *testing.T) {
	tests := []struct {
		name   string
		rawCSV string
		output string
		genErr error
	}{
		{"empty upload", "   ", modelOutput, nil},
		{"generator failure", "csv", "", errors.New("unavailable")},
		{"not JSON", "csv", "I could not parse that file.", nil},
		{"empty array", "csv", "[]", nil},
		{"bad date", "csv", `[{"date": "Jan 5", "description": "x", "amount": -1, "category": "Other"}]`, nil},
		{"bad amount", "csv", `[{"date": "2024-01-05", "description": "x", "amount": "lots", "category": "Other"}]`, nil},
		{"missing description", "csv", `[{"date": "2024-01-05", "amount": -1, "category": "Other"}]`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := newWithGenerator(&stubGenerator{output: tt.output, err: tt.genErr}, logger.NewWithWriter(&strings.Builder{}))
			if _, err := n.Normalize(context.Background(), tt.rawCSV); err == nil {
				t.Error("Normalize() error = nil, want error")
			}
		})
	}
}

func TestCleanModelJSON(t *testing.T) {
	const want = `[{"date": "2024-01-05"}]`

	tests := []struct {
		name string
		raw  string
	}{
		{"bare", want},
		{"json fence", "```json\n" + want + "\n```"},
		{"plain fence", "```\n" + want + "\n```"},
		{"leading prose", "Here are the transactions:\n" + want},
		{"surrounding whitespace", "\n  " + want + "  \n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanModelJSON(tt.raw); got != want {
				t.Errorf("cleanModelJSON() = %q, want %q", got, want)
			}
		})
	}
}
