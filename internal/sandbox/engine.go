// Package sandbox evaluates analysis snippets produced by the reasoning
// component against the transaction table. Snippets are untrusted input: the
// language is a closed set of filter/group/aggregate primitives over the
// frozen schema, interpreted here, with no access to anything else in the
// process. There is no escape hatch into real code execution.
package sandbox

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/khimraj/budget-planner/internal/domain"
)

const (
	// MaxSnippetBytes bounds the size of one snippet.
	MaxSnippetBytes = 4096

	// MaxTableRows bounds how many rows a single query may scan.
	MaxTableRows = 50000

	maxStatements = 32

	// ResultVar is the variable a snippet must bind to produce output.
	ResultVar = "result"

	// NoResultMessage is returned when a snippet never binds ResultVar.
	NoResultMessage = "No result variable set."
)

// Engine executes snippets. Stateless and safe for concurrent use.
type Engine struct {
	log zerolog.Logger
}

// NewEngine creates an engine.
func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{log: log}
}

// Execute runs one snippet against the given table and returns the textual
// form of the bound result variable. Failures never surface as Go errors:
// a snippet that cannot be parsed or evaluated yields an error description
// the reasoning component can read and recover from.
func (e *Engine) Execute(ctx context.Context, snippet string, table domain.Table) string {
	if len(snippet) > MaxSnippetBytes {
		return evalErrorString(fmt.Errorf("snippet exceeds %d bytes", MaxSnippetBytes))
	}
	if table.Len() > MaxTableRows {
		return evalErrorString(fmt.Errorf("table exceeds %d rows", MaxTableRows))
	}

	stmts, err := parse(snippet)
	if err != nil {
		e.log.Debug().Err(err).Msg("Snippet rejected by parser")
		return evalErrorString(err)
	}
	if len(stmts) > maxStatements {
		return evalErrorString(fmt.Errorf("snippet exceeds %d statements", maxStatements))
	}

	ev := newEvaluator(ctx, table)
	if err := ev.run(stmts); err != nil {
		e.log.Debug().Err(err).Msg("Snippet failed during evaluation")
		return evalErrorString(err)
	}

	result, ok := ev.env[ResultVar]
	if !ok {
		return NoResultMessage
	}
	return result.format()
}

func evalErrorString(err error) string {
	return fmt.Sprintf("Error executing code: %v", err)
}
