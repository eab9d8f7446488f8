// Package chat defines the provider-agnostic interface workflow bodies use
// to reach a large-language-model completion through a ctx.Call handler
// (spec's node-runtime invariant: every externally observable effect goes
// through the journal, never a directly held client).
package chat

import "context"

// Role names a message's speaker in a Provider conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation sent to a Provider.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ToolSpec describes a function a Provider may choose to invoke, in
// JSON-Schema form, mirroring how Anthropic/OpenAI/Google each accept tool
// declarations alongside a completion request.
type ToolSpec struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Schema      map[string]interface{} `json:"schema,omitempty"`
}

// ToolCall is a single function invocation a Provider asked the caller to
// perform, extracted from its response.
type ToolCall struct {
	Name  string                 `json:"name"`
	Input map[string]interface{} `json:"input"`
}

// Completion is a Provider's response to a conversation: text, zero or more
// tool calls, or both.
type Completion struct {
	Text      string     `json:"text"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// Provider is the common surface every concrete LLM adapter implements, so a
// workflow body can be registered against "anthropic_chat", "openai_chat" or
// "google_chat" interchangeably without knowing which vendor is behind the
// handler name.
type Provider interface {
	Complete(ctx context.Context, messages []Message, tools []ToolSpec) (Completion, error)
}
