package handlers

import (
	"github.com/nodegraft/durableflow/calltool"
	"github.com/nodegraft/durableflow/chat"
	"github.com/nodegraft/durableflow/chat/anthropic"
	"github.com/nodegraft/durableflow/chat/google"
	"github.com/nodegraft/durableflow/chat/openai"
	"github.com/nodegraft/durableflow/engine"
)

// ProviderKeys holds the API keys for the chat providers RegisterProviders
// wires up. A blank key skips registering that provider.
type ProviderKeys struct {
	AnthropicAPIKey string
	AnthropicModel  string
	OpenAIAPIKey    string
	OpenAIModel     string
	GoogleAPIKey    string
	GoogleModel     string
}

// RegisterProviders registers a ctx.Call-reachable handler for every
// configured chat provider ("anthropic_chat", "openai_chat", "google_chat")
// plus the built-in HTTP tool ("http_request"), under the names workflow
// bodies reference via Context.Call.
func RegisterProviders(registry *engine.Registry, keys ProviderKeys) {
	if keys.AnthropicAPIKey != "" {
		var p chat.Provider = anthropic.New(keys.AnthropicAPIKey, keys.AnthropicModel)
		registry.Register("anthropic_chat", NewChatHandler(p))
	}
	if keys.OpenAIAPIKey != "" {
		var p chat.Provider = openai.New(keys.OpenAIAPIKey, keys.OpenAIModel)
		registry.Register("openai_chat", NewChatHandler(p))
	}
	if keys.GoogleAPIKey != "" {
		var p chat.Provider = google.New(keys.GoogleAPIKey, keys.GoogleModel)
		registry.Register("google_chat", NewChatHandler(p))
	}

	var httpTool calltool.Tool = calltool.NewHTTPTool()
	registry.Register(httpTool.Name(), NewToolHandler(httpTool))
}
