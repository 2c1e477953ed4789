package agent

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/khimraj/budget-planner/internal/capability"
)

// DefaultModelName is the Gemini model used for reasoning.
const DefaultModelName = "gemini-2.5-flash"

// GeminiReasoner implements Reasoner on the Gemini function-calling API.
// Requires GEMINI_API_KEY or Application Default Credentials.
type GeminiReasoner struct {
	client *genai.Client
	model  string
}

// NewGeminiReasoner creates a reasoner for the given model; an empty model
// means DefaultModelName.
func NewGeminiReasoner(ctx context.Context, model string) (*GeminiReasoner, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiReasoner{client: client, model: model}, nil
}

// Decide implements Reasoner.
func (g *GeminiReasoner) Decide(ctx context.Context, directive string, turns []Turn, decls []capability.Declaration) (Turn, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(directive, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0),
		Tools: []*genai.Tool{
			{FunctionDeclarations: toFunctionDeclarations(decls)},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, toContents(turns), config)
	if err != nil {
		return Turn{}, fmt.Errorf("generate content: %w", err)
	}

	if calls := resp.FunctionCalls(); len(calls) > 0 {
		requests := make([]ToolCall, 0, len(calls))
		for _, fc := range calls {
			id := fc.ID
			if id == "" {
				id = uuid.NewString()
			}
			requests = append(requests, ToolCall{ID: id, Name: fc.Name, Args: fc.Args})
		}
		return Turn{Role: RoleAssistant, Calls: requests}, nil
	}

	text := resp.Text()
	if text == "" {
		return Turn{}, fmt.Errorf("empty response from model")
	}
	return Turn{Role: RoleAssistant, Content: text}, nil
}

func toContents(turns []Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case RoleUser:
			contents = append(contents, genai.NewContentFromText(t.Content, genai.RoleUser))
		case RoleAssistant:
			if len(t.Calls) == 0 {
				contents = append(contents, genai.NewContentFromText(t.Content, genai.RoleModel))
				continue
			}
			parts := make([]*genai.Part, 0, len(t.Calls))
			for _, call := range t.Calls {
				parts = append(parts, genai.NewPartFromFunctionCall(call.Name, call.Args))
			}
			contents = append(contents, genai.NewContentFromParts(parts, genai.RoleModel))
		case RoleTool:
			part := genai.NewPartFromFunctionResponse(t.CallName, map[string]any{
				"output": t.Content,
			})
			contents = append(contents, genai.NewContentFromParts([]*genai.Part{part}, genai.RoleUser))
		}
	}
	return contents
}

func toFunctionDeclarations(decls []capability.Declaration) []*genai.FunctionDeclaration {
	out := make([]*genai.FunctionDeclaration, 0, len(decls))
	for _, d := range decls {
		properties := make(map[string]*genai.Schema, len(d.Parameters))
		var required []string
		for _, p := range d.Parameters {
			properties[p.Name] = &genai.Schema{
				Type:        schemaType(p.Type),
				Description: p.Description,
			}
			if p.Required {
				required = append(required, p.Name)
			}
		}
		out = append(out, &genai.FunctionDeclaration{
			Name:        d.Name,
			Description: d.Description,
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: properties,
				Required:   required,
			},
		})
	}
	return out
}

func schemaType(t string) genai.Type {
	switch t {
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}
