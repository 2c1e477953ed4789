package agent

// Role tags one conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is one capability invocation requested by the reasoning component.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// Turn is one role-tagged message in a conversation. Assistant turns carry
// either final text or pending tool calls, never both. Tool turns carry the
// serialized result of the call identified by CallID.
type Turn struct {
	Role    Role
	Content string

	// Calls is set on assistant turns that request capability invocations.
	Calls []ToolCall

	// CallID and CallName identify the originating request on tool turns.
	CallID   string
	CallName string
}

// Final reports whether the turn is an assistant message with no pending
// tool invocation, i.e. a terminal answer.
func (t Turn) Final() bool {
	return t.Role == RoleAssistant && len(t.Calls) == 0
}
