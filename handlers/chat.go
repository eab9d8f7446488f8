// Package handlers adapts the runtime's LLM and tool integrations into
// engine.Handler (opaque bytes in, bytes out) so workflow bodies reach them
// through ctx.Call by name instead of holding a typed client reference,
// keeping every externally observable effect routed through the journal
// (spec §4.4).
package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nodegraft/durableflow/chat"
	"github.com/nodegraft/durableflow/engine"
)

// ChatRequest is the wire shape for a chat completion call.
type ChatRequest struct {
	Messages []chat.Message  `json:"messages"`
	Tools    []chat.ToolSpec `json:"tools,omitempty"`
}

// ChatResponse is the wire shape for a chat completion result.
type ChatResponse struct {
	Text      string          `json:"text"`
	ToolCalls []chat.ToolCall `json:"tool_calls,omitempty"`
}

// NewChatHandler wraps a chat.Provider as an engine.Handler, decoding a
// JSON ChatRequest and encoding a JSON ChatResponse.
func NewChatHandler(p chat.Provider) engine.Handler {
	return func(ctx context.Context, request []byte) ([]byte, error) {
		var req ChatRequest
		if err := json.Unmarshal(request, &req); err != nil {
			return nil, fmt.Errorf("handlers: decode chat request: %w", err)
		}
		out, err := p.Complete(ctx, req.Messages, req.Tools)
		if err != nil {
			return nil, fmt.Errorf("handlers: chat: %w", err)
		}
		resp, err := json.Marshal(ChatResponse{Text: out.Text, ToolCalls: out.ToolCalls})
		if err != nil {
			return nil, fmt.Errorf("handlers: encode chat response: %w", err)
		}
		return resp, nil
	}
}
