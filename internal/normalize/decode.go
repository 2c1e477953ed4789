package normalize

import (
	"encoding/json"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/khimraj/budget-planner/internal/domain"
)

type rawTransaction struct {
	Date        string      `json:"date"`
	Description string      `json:"description"`
	Amount      json.Number `json:"amount"`
	Category    string      `json:"category"`
}

// decodeTransactions parses the model's JSON array into a table. It returns
// how many rows had their category coerced to the catch-all.
func decodeTransactions(raw string) (domain.Table, int, error) {
	clean := cleanModelJSON(raw)

	dec := json.NewDecoder(strings.NewReader(clean))
	dec.UseNumber()

	var items []rawTransaction
	if err := dec.Decode(&items); err != nil {
		return domain.Table{}, 0, fmt.Errorf("unmarshal JSON: %w (raw response: %s)", err, truncate(raw, 400))
	}
	if len(items) == 0 {
		return domain.Table{}, 0, fmt.Errorf("no transactions in model output")
	}

	rows := make([]domain.Transaction, 0, len(items))
	coerced := 0
	for i, item := range items {
		if item.Description == "" {
			return domain.Table{}, 0, fmt.Errorf("transaction %d: missing description", i)
		}

		date, err := civil.ParseDate(item.Date)
		if err != nil {
			return domain.Table{}, 0, fmt.Errorf("transaction %d: invalid date %q: %w", i, item.Date, err)
		}

		amount, err := decimal.NewFromString(item.Amount.String())
		if err != nil {
			return domain.Table{}, 0, fmt.Errorf("transaction %d: invalid amount %q: %w", i, item.Amount, err)
		}

		if !domain.ValidCategory(item.Category) {
			coerced++
		}

		rows = append(rows, domain.Transaction{
			Date:        date,
			Description: item.Description,
			Amount:      amount,
			Category:    domain.CoerceCategory(item.Category),
		})
	}

	return domain.Table{Rows: rows}, coerced, nil
}

// cleanModelJSON strips Markdown fences and surrounding junk when the model
// ignores the strict-JSON instruction.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	// Keep only the outermost JSON array if there is still text around it.
	if start := strings.Index(s, "["); start != -1 {
		if end := strings.LastIndex(s, "]"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
