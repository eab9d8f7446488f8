// Package openai adapts OpenAI's chat completions API to chat.Provider.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nodegraft/durableflow/chat"
	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

const defaultModel = "gpt-4o"

// Provider implements chat.Provider against OpenAI, retrying transient
// failures (rate limits, network blips, 5xx). Rate-limit errors back off
// linearly with the attempt count; other transient errors wait a fixed delay.
type Provider struct {
	modelName  string
	client     openaiClient
	maxRetries int
	retryDelay time.Duration
}

type openaiClient interface {
	createChatCompletion(ctx context.Context, messages []chat.Message, tools []chat.ToolSpec) (chat.Completion, error)
}

// New constructs a Provider for the given API key and model. An empty
// modelName falls back to gpt-4o, and retries default to 3 (up to 4 attempts
// in all) with a one-second base delay.
func New(apiKey, modelName string) *Provider {
	if modelName == "" {
		modelName = defaultModel
	}
	return &Provider{
		modelName:  modelName,
		client:     &defaultClient{apiKey: apiKey, modelName: modelName},
		maxRetries: 3,
		retryDelay: time.Second,
	}
}

func (p *Provider) Complete(ctx context.Context, messages []chat.Message, tools []chat.ToolSpec) (chat.Completion, error) {
	if ctx.Err() != nil {
		return chat.Completion{}, ctx.Err()
	}

	var lastErr error
	attempt := 0
	for ; attempt <= p.maxRetries; attempt++ {
		out, err := p.client.createChatCompletion(ctx, messages, tools)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !isTransientError(err) || attempt >= p.maxRetries {
			break
		}

		delay := p.retryDelay
		if isRateLimitError(err) {
			delay = p.retryDelay * time.Duration(attempt+1)
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return chat.Completion{}, ctx.Err()
		}
	}
	return chat.Completion{}, fmt.Errorf("openai: failed after %d retries: %w", attempt, lastErr)
}

func isTransientError(err error) bool {
	if err == nil {
		return false
	}
	if isRateLimitError(err) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{"timeout", "network", "connection", "temporary", "503", "502", "500"} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

func isRateLimitError(err error) bool {
	var rateLimitErr *rateLimitError
	return errors.As(err, &rateLimitErr)
}

// rateLimitError marks an OpenAI response as rate-limited so Complete can
// apply backoff proportional to the attempt count.
type rateLimitError struct {
	message string
}

func (e *rateLimitError) Error() string { return e.message }

type defaultClient struct {
	apiKey    string
	modelName string
}

func (c *defaultClient) createChatCompletion(ctx context.Context, messages []chat.Message, tools []chat.ToolSpec) (chat.Completion, error) {
	if c.apiKey == "" {
		return chat.Completion{}, errors.New("openai: API key is required")
	}

	client := openaisdk.NewClient(option.WithAPIKey(c.apiKey))

	params := openaisdk.ChatCompletionNewParams{
		Model:    openaisdk.ChatModel(c.modelName),
		Messages: convertMessages(messages),
	}
	if len(tools) > 0 {
		params.Tools = convertTools(tools)
	}

	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return chat.Completion{}, fmt.Errorf("openai: %w", err)
	}
	return convertResponse(resp), nil
}

func convertMessages(messages []chat.Message) []openaisdk.ChatCompletionMessageParamUnion {
	result := make([]openaisdk.ChatCompletionMessageParamUnion, len(messages))
	for i, msg := range messages {
		switch msg.Role {
		case chat.RoleSystem:
			result[i] = openaisdk.SystemMessage(msg.Content)
		case chat.RoleAssistant:
			result[i] = openaisdk.AssistantMessage(msg.Content)
		default:
			result[i] = openaisdk.UserMessage(msg.Content)
		}
	}
	return result
}

func convertTools(tools []chat.ToolSpec) []openaisdk.ChatCompletionToolParam {
	result := make([]openaisdk.ChatCompletionToolParam, len(tools))
	for i, t := range tools {
		result[i] = openaisdk.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openaisdk.String(t.Description),
				Parameters:  shared.FunctionParameters(t.Schema),
			},
		}
	}
	return result
}

func convertResponse(resp *openaisdk.ChatCompletion) chat.Completion {
	out := chat.Completion{}
	if len(resp.Choices) == 0 {
		return out
	}
	msg := resp.Choices[0].Message
	out.Text = msg.Content
	if len(msg.ToolCalls) == 0 {
		return out
	}
	out.ToolCalls = make([]chat.ToolCall, len(msg.ToolCalls))
	for i, tc := range msg.ToolCalls {
		out.ToolCalls[i] = chat.ToolCall{
			Name:  tc.Function.Name,
			Input: parseToolInput(tc.Function.Arguments),
		}
	}
	return out
}

// parseToolInput decodes OpenAI's JSON-encoded function-call arguments into
// a map. A malformed argument string (the model hallucinating invalid JSON)
// degrades to a single "_raw" field instead of failing the whole call.
func parseToolInput(jsonStr string) map[string]interface{} {
	if jsonStr == "" {
		return nil
	}
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return map[string]interface{}{"_raw": jsonStr}
	}
	return result
}
