package capability

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/khimraj/budget-planner/internal/domain"
	"github.com/khimraj/budget-planner/internal/sandbox"
	"github.com/khimraj/budget-planner/internal/store"
)

// AnalyzeFinances is the name of the single data-analysis capability.
const AnalyzeFinances = "analyze_finances"

const analyzeDescription = "Run an analysis expression over the transaction table. " +
	"The table is available as 'df' with columns: Date, Description, Amount, Category. " +
	"Supported operations: df[filter] with comparisons combined by & and |, " +
	"df['Column'], .sum(), .mean(), .count(), .min(), .max(), .abs(), .nunique(), " +
	"df.groupby('Column')['Column'].sum(), abs(), round(), len(). " +
	"The expression MUST assign the final answer to a variable named 'result'. " +
	"Example: result = abs(df[df['Category'] == 'Groceries']['Amount'].sum())"

// NewAnalyzeFinances builds the analyze_finances capability over a store and
// a sandbox engine. Every invocation reloads the store first so answers
// reflect the latest upload, even mid-conversation; a load failure falls
// back to the empty table so one bad file cannot kill the exchange.
func NewAnalyzeFinances(s *store.Store, engine *sandbox.Engine, log zerolog.Logger) Capability {
	return Capability{
		Decl: Declaration{
			Name:        AnalyzeFinances,
			Description: analyzeDescription,
			Parameters: []Parameter{
				{
					Name:        "code",
					Type:        "string",
					Description: "Analysis expression binding a 'result' variable",
					Required:    true,
				},
			},
		},
		Run: func(ctx context.Context, args map[string]any) string {
			code, ok := args["code"].(string)
			if !ok || code == "" {
				return "Error executing code: missing 'code' argument"
			}

			table, err := s.Reload(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("Transactions reload failed, analyzing empty table")
				table = domain.Table{}
			}

			result := engine.Execute(ctx, code, table)
			log.Debug().Str("code", code).Str("result", truncate(result, 200)).Msg("Analysis executed")
			return result
		},
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return fmt.Sprintf("%s... (%d bytes)", s[:max], len(s))
}
