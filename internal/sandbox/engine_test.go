package sandbox

import (
	"context"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/khimraj/budget-planner/internal/domain"
	"github.com/khimraj/budget-planner/internal/logger"
)

func testTable(t *testing.T) domain.Table {
	t.Helper()
	return domain.Table{Rows: []domain.Transaction{
		row(t, "2024-01-05", "Market", "-42.00", "Groceries"),
		row(t, "2024-01-10", "Payroll", "2000.00", "Income"),
		row(t, "2024-01-12", "Cinema", "-15.50", "Entertainment"),
		row(t, "2024-01-20", "Corner shop", "-8.50", "Groceries"),
	}}
}

func row(t *testing.T, date, desc, amount, category string) domain.Transaction {
	t.Helper()
	d, err := civil.ParseDate(date)
	if err != nil {
		t.Fatalf("bad date %q: %v", date, err)
	}
	a, err := decimal.NewFromString(amount)
	if err != nil {
		t.Fatalf("bad amount %q: %v", amount, err)
	}
	return domain.Transaction{Date: d, Description: desc, Amount: a, Category: category}
}

func newEngine() *Engine {
	return NewEngine(logger.NewWithWriter(&strings.Builder{}))
}

func TestExecute_Expressions(t *testing.T) {
	table := testTable(t)
	e := newEngine()

	tests := []struct {
		name    string
		snippet string
		want    string
	}{
		{
			name:    "total expenses as positive magnitude",
			snippet: "result = abs(df[df['Amount']<0]['Amount'].sum())",
			want:    "66.0",
		},
		{
			name:    "category filter sum",
			snippet: "result = abs(df[df['Category'] == 'Groceries']['Amount'].sum())",
			want:    "50.5",
		},
		{
			name:    "income only",
			snippet: "result = df[df['Amount'] > 0]['Amount'].sum()",
			want:    "2000.0",
		},
		{
			name:    "row count",
			snippet: "result = len(df)",
			want:    "4",
		},
		{
			name:    "filtered count",
			snippet: "result = df[df['Amount'] < 0]['Amount'].count()",
			want:    "3",
		},
		{
			name:    "combined filters",
			snippet: "result = abs(df[(df['Amount'] < 0) & (df['Category'] == 'Groceries')]['Amount'].sum())",
			want:    "50.5",
		},
		{
			name:    "or filter",
			snippet: "result = df[(df['Category'] == 'Income') | (df['Category'] == 'Entertainment')]['Amount'].count()",
			want:    "2",
		},
		{
			name:    "groupby sum over expenses",
			snippet: "expenses = df[df['Amount'] < 0]\nresult = expenses.groupby('Category')['Amount'].sum()",
			want:    "{'Entertainment': -15.5, 'Groceries': -50.5}",
		},
		{
			name:    "groupby to_dict",
			snippet: "result = df[df['Amount'] < 0].groupby('Category')['Amount'].sum().to_dict()",
			want:    "{'Entertainment': -15.5, 'Groceries': -50.5}",
		},
		{
			name:    "groupby count",
			snippet: "result = df.groupby('Category')['Amount'].count()",
			want:    "{'Entertainment': 1, 'Groceries': 2, 'Income': 1}",
		},
		{
			name:    "mean expense",
			snippet: "result = abs(df[df['Amount'] < 0]['Amount'].mean())",
			want:    "22.0",
		},
		{
			name:    "min and max via variables",
			snippet: "low = df['Amount'].min()\nresult = low",
			want:    "-42.0",
		},
		{
			name:    "date range filter",
			snippet: "result = df[df['Date'] >= '2024-01-10']['Amount'].count()",
			want:    "3",
		},
		{
			name:    "scale a sum",
			snippet: "result = abs(df[df['Amount'] < 0]['Amount'].sum()) * 2",
			want:    "132.0",
		},
		{
			name:    "round",
			snippet: "result = round(66.666, 1)",
			want:    "66.7",
		},
		{
			name:    "copy does not change results",
			snippet: "d = df.copy()\nresult = d[d['Amount'] < 0]['Amount'].count()",
			want:    "3",
		},
		{
			name:    "nunique categories",
			snippet: "result = df['Category'].nunique()",
			want:    "3",
		},
		{
			name:    "series abs method",
			snippet: "result = df[df['Amount'] < 0]['Amount'].abs().sum()",
			want:    "66.0",
		},
		{
			name:    "semicolon separated statements",
			snippet: "spend = abs(df[df['Amount'] < 0]['Amount'].sum()); result = spend",
			want:    "66.0",
		},
		{
			name:    "unrelated variables do not leak into result",
			snippet: "scratch = df['Amount'].count()\nresult = 7",
			want:    "7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Execute(context.Background(), tt.snippet, table)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExecute_EndToEndScenario(t *testing.T) {
	table := domain.Table{Rows: []domain.Transaction{
		row(t, "2024-01-05", "Market", "-42.00", "Groceries"),
		row(t, "2024-01-10", "Payroll", "2000.00", "Income"),
	}}

	got := newEngine().Execute(context.Background(),
		"result = abs(df[df['Amount']<0]['Amount'].sum())", table)
	assert.Equal(t, "42.0", got)
}

func TestExecute_EmptyTableAggregates(t *testing.T) {
	got := newEngine().Execute(context.Background(),
		"result = abs(df[df['Amount']<0]['Amount'].sum())", domain.Table{})
	assert.Equal(t, "0", got)
}

func TestExecute_NoResultVariable(t *testing.T) {
	got := newEngine().Execute(context.Background(),
		"total = df['Amount'].sum()", testTable(t))
	assert.Equal(t, NoResultMessage, got)
}

func TestExecute_ErrorsBecomeStrings(t *testing.T) {
	table := testTable(t)
	e := newEngine()

	tests := []struct {
		name    string
		snippet string
	}{
		{"syntax error", "result = df[['"},
		{"bare expression", "df['Amount'].sum()"},
		{"unknown column", "result = df['Balance'].sum()"},
		{"undefined name", "result = totals + 1"},
		{"unknown function", "result = exec('rm -rf /')"},
		{"unknown method", "result = df.eval('1')"},
		{"dunder access", "result = __import__('os')"},
		{"attribute chains are rejected", "result = df.groupby"},
		{"string sum", "result = df['Description'].sum()"},
		{"division by zero", "result = 1 / 0"},
		{"empty snippet", "   \n  "},
		{"comparison of mismatched types", "result = df[df['Amount'] == 'abc']['Amount'].sum()"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Execute(context.Background(), tt.snippet, table)
			assert.Truef(t, strings.HasPrefix(got, "Error executing code: "),
				"Execute(%q) = %q, want error string", tt.snippet, got)
		})
	}
}

func TestExecute_SnippetSizeLimit(t *testing.T) {
	huge := "result = " + strings.Repeat("1+", MaxSnippetBytes) + "1"

	got := newEngine().Execute(context.Background(), huge, testTable(t))
	assert.Contains(t, got, "Error executing code:")
}

func TestExecute_StatementLimit(t *testing.T) {
	var b strings.Builder
	for i := 0; i < maxStatements+1; i++ {
		b.WriteString("x = 1\n")
	}

	got := newEngine().Execute(context.Background(), b.String(), testTable(t))
	assert.Contains(t, got, "Error executing code:")
}

func TestExecute_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A snippet busy enough to trip the periodic context check.
	var b strings.Builder
	b.WriteString("x = 0\n")
	for i := 0; i < 30; i++ {
		b.WriteString("x = x + 1+1+1+1+1+1+1+1+1+1+1+1+1+1+1+1+1+1+1+1+1+1+1+1+1+1+1+1+1+1+1+1+1+1+1+1+1+1+1+1\n")
	}
	b.WriteString("result = x\n")

	got := newEngine().Execute(ctx, b.String(), testTable(t))
	assert.Contains(t, got, "Error executing code:")
}
