package capability

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khimraj/budget-planner/internal/logger"
	"github.com/khimraj/budget-planner/internal/sandbox"
	"github.com/khimraj/budget-planner/internal/storage"
	"github.com/khimraj/budget-planner/internal/store"
)

func newAnalyzeRegistry(t *testing.T, csv string) *Registry {
	t.Helper()
	log := logger.NewWithWriter(&strings.Builder{})

	src := storage.NewFileSource(filepath.Join(t.TempDir(), "transactions.csv"))
	if csv != "" {
		require.NoError(t, src.Replace(context.Background(), []byte(csv)))
	}

	s := store.New(src, log)
	return NewRegistry(NewAnalyzeFinances(s, sandbox.NewEngine(log), log))
}

func TestRegistry_Declarations(t *testing.T) {
	r := newAnalyzeRegistry(t, "")

	decls := r.Declarations()
	require.Len(t, decls, 1)
	assert.Equal(t, AnalyzeFinances, decls[0].Name)
	assert.Contains(t, decls[0].Description, "result")
	require.Len(t, decls[0].Parameters, 1)
	assert.Equal(t, "code", decls[0].Parameters[0].Name)
	assert.True(t, decls[0].Parameters[0].Required)
}

func TestRegistry_InvokeUnknown(t *testing.T) {
	r := newAnalyzeRegistry(t, "")

	_, err := r.Invoke(context.Background(), "unknown_tool", nil)
	assert.Error(t, err)
}

func TestAnalyzeFinances_ReloadsBeforeExecute(t *testing.T) {
	csv := "Date,Description,Amount,Category\n2024-01-05,Market,-42.00,Groceries\n"
	r := newAnalyzeRegistry(t, csv)

	got, err := r.Invoke(context.Background(), AnalyzeFinances, map[string]any{
		"code": "result = abs(df[df['Amount']<0]['Amount'].sum())",
	})
	require.NoError(t, err)
	assert.Equal(t, "42.0", got)
}

func TestAnalyzeFinances_MissingSourceYieldsEmptyAggregates(t *testing.T) {
	r := newAnalyzeRegistry(t, "")

	got, err := r.Invoke(context.Background(), AnalyzeFinances, map[string]any{
		"code": "result = abs(df[df['Amount']<0]['Amount'].sum())",
	})
	require.NoError(t, err)
	assert.Equal(t, "0", got)
}

func TestAnalyzeFinances_MalformedSourceFallsBackToEmpty(t *testing.T) {
	// Header mismatch: missing the Category column.
	r := newAnalyzeRegistry(t, "Date,Description,Amount\n2024-01-05,Market,-42.00\n")

	got, err := r.Invoke(context.Background(), AnalyzeFinances, map[string]any{
		"code": "result = len(df)",
	})
	require.NoError(t, err)
	assert.Equal(t, "0", got)
}

func TestAnalyzeFinances_MissingCodeArgument(t *testing.T) {
	r := newAnalyzeRegistry(t, "")

	got, err := r.Invoke(context.Background(), AnalyzeFinances, map[string]any{})
	require.NoError(t, err)
	assert.Contains(t, got, "Error executing code:")
}
