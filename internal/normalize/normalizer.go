// Package normalize maps an arbitrary uploaded transactions CSV into the
// canonical four-column schema. The column mapping is a single call to a
// text-generation model; everything the model returns is validated here
// before it becomes a table.
package normalize

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/khimraj/budget-planner/internal/domain"
)

// DefaultModelName is the Gemini model used for schema mapping.
const DefaultModelName = "gemini-2.5-flash"

// textGenerator is the minimal surface of the model client, so mapping and
// validation can be tested without the SDK.
type textGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Normalizer converts raw CSV content to the canonical schema.
type Normalizer struct {
	gen textGenerator
	log zerolog.Logger
}

// New creates a normalizer backed by Gemini.
func New(ctx context.Context, model string, log zerolog.Logger) (*Normalizer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if model == "" {
		model = DefaultModelName
	}
	return &Normalizer{gen: &geminiGenerator{client: client, model: model}, log: log}, nil
}

// newWithGenerator is the test seam.
func newWithGenerator(gen textGenerator, log zerolog.Logger) *Normalizer {
	return &Normalizer{gen: gen, log: log}
}

// Normalize maps raw CSV content onto the canonical schema. The model output
// must be a strict JSON array of transactions; each element is validated and
// unknown categories are coerced to the catch-all.
func (n *Normalizer) Normalize(ctx context.Context, rawCSV string) (domain.Table, error) {
	if strings.TrimSpace(rawCSV) == "" {
		return domain.Table{}, fmt.Errorf("empty upload")
	}

	raw, err := n.gen.GenerateText(ctx, buildMappingPrompt(rawCSV))
	if err != nil {
		return domain.Table{}, fmt.Errorf("mapping call: %w", err)
	}

	table, coerced, err := decodeTransactions(raw)
	if err != nil {
		return domain.Table{}, fmt.Errorf("decode model output: %w", err)
	}
	if coerced > 0 {
		n.log.Warn().Int("rows", coerced).Msg("Coerced unknown categories to Other")
	}

	n.log.Info().Int("rows", table.Len()).Msg("Normalized upload")
	return table, nil
}

type geminiGenerator struct {
	client *genai.Client
	model  string
}

func (g *geminiGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return text, nil
}

func buildMappingPrompt(rawCSV string) string {
	var b strings.Builder
	b.WriteString("You are a financial data parser. Convert the CSV below into the canonical transaction schema.\n\n")
	b.WriteString("Each output object must have exactly these fields:\n")
	b.WriteString("- \"date\": string, ISO format \"YYYY-MM-DD\"\n")
	b.WriteString("- \"description\": string (merchant or memo)\n")
	b.WriteString("- \"amount\": number (positive for income/credits, negative for expenses/debits)\n")
	b.WriteString("- \"category\": one of: ")
	b.WriteString(strings.Join(domain.Categories, ", "))
	b.WriteString("\n\nRules:\n")
	b.WriteString("- Identify which input columns hold the date, description and amount.\n")
	b.WriteString("- If there are separate debit/credit columns, combine them into one signed amount (credits positive, debits negative).\n")
	b.WriteString("- Categorize each transaction from its description; when unsure use \"Other\".\n")
	b.WriteString("- Parse ALL rows, not a sample.\n")
	b.WriteString("- Output STRICT JSON only: a JSON array of objects, no comments, no trailing commas, no extra text.\n")
	b.WriteString("- Do NOT wrap the response in code fences. Output must begin with \"[\" and end with \"]\".\n")
	b.WriteString("\nCSV data:\n")
	b.WriteString(rawCSV)
	return b.String()
}
