// Package capability declares the actions the reasoning component may
// request. The declarations are transport-neutral so the loop and its tests
// never depend on a particular LLM SDK; the reasoner adapter converts them
// to whatever its provider expects.
package capability

import (
	"context"
	"fmt"
)

// Parameter describes one input of a capability.
type Parameter struct {
	Name        string
	Type        string // "string", "number", ...
	Description string
	Required    bool
}

// Declaration is the schema handed to the reasoning component.
type Declaration struct {
	Name        string
	Description string
	Parameters  []Parameter
}

// Handler executes a capability. Args hold the decoded invocation arguments.
// The returned string is fed back to the reasoning component verbatim, so
// handlers report their own failures as readable text instead of errors.
type Handler func(ctx context.Context, args map[string]any) string

// Capability pairs a declaration with its handler.
type Capability struct {
	Decl Declaration
	Run  Handler
}

// Registry is the complete set of capabilities. Declaration order is stable.
type Registry struct {
	order []string
	caps  map[string]Capability
}

// NewRegistry creates a registry over the given capabilities.
func NewRegistry(caps ...Capability) *Registry {
	r := &Registry{caps: make(map[string]Capability, len(caps))}
	for _, c := range caps {
		r.order = append(r.order, c.Decl.Name)
		r.caps[c.Decl.Name] = c
	}
	return r
}

// Declarations returns every capability schema, in registration order.
func (r *Registry) Declarations() []Declaration {
	decls := make([]Declaration, 0, len(r.order))
	for _, name := range r.order {
		decls = append(decls, r.caps[name].Decl)
	}
	return decls
}

// Invoke dispatches one capability request. An unknown name is an error; the
// loop converts it into a tool-result rather than failing the exchange.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (string, error) {
	c, ok := r.caps[name]
	if !ok {
		return "", fmt.Errorf("unknown capability %q", name)
	}
	return c.Run(ctx, args), nil
}
