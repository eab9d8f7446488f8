// Package anthropic adapts Anthropic's Claude API to chat.Provider.
package anthropic

import (
	"context"
	"errors"
	"fmt"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/nodegraft/durableflow/chat"
)

const defaultModel = "claude-sonnet-4-5-20250929"

// Provider implements chat.Provider against Claude. Anthropic takes the
// system prompt as a separate request field rather than as a message with a
// system role, so Complete splits it out before calling the API.
type Provider struct {
	modelName string
	client    anthropicClient
}

// anthropicClient isolates the SDK call so tests can substitute a fake.
type anthropicClient interface {
	createMessage(ctx context.Context, systemPrompt string, messages []chat.Message, tools []chat.ToolSpec) (chat.Completion, error)
}

// New constructs a Provider for the given API key and model. An empty
// modelName falls back to the current Sonnet release.
func New(apiKey, modelName string) *Provider {
	if modelName == "" {
		modelName = defaultModel
	}
	return &Provider{
		modelName: modelName,
		client:    &defaultClient{apiKey: apiKey, modelName: modelName},
	}
}

func (p *Provider) Complete(ctx context.Context, messages []chat.Message, tools []chat.ToolSpec) (chat.Completion, error) {
	if ctx.Err() != nil {
		return chat.Completion{}, ctx.Err()
	}
	systemPrompt, conversation := extractSystemPrompt(messages)
	return p.client.createMessage(ctx, systemPrompt, conversation, tools)
}

func extractSystemPrompt(messages []chat.Message) (string, []chat.Message) {
	var systemPrompt string
	var conversation []chat.Message
	for _, msg := range messages {
		if msg.Role == chat.RoleSystem {
			if systemPrompt != "" {
				systemPrompt += "\n\n"
			}
			systemPrompt += msg.Content
			continue
		}
		conversation = append(conversation, msg)
	}
	return systemPrompt, conversation
}

type defaultClient struct {
	apiKey    string
	modelName string
}

func (c *defaultClient) createMessage(ctx context.Context, systemPrompt string, messages []chat.Message, tools []chat.ToolSpec) (chat.Completion, error) {
	if c.apiKey == "" {
		return chat.Completion{}, errors.New("anthropic: API key is required")
	}

	client := anthropicsdk.NewClient(option.WithAPIKey(c.apiKey))

	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(c.modelName),
		Messages:  convertMessages(messages),
		MaxTokens: 4096,
	}
	if systemPrompt != "" {
		params.System = []anthropicsdk.TextBlockParam{{Text: systemPrompt}}
	}
	if len(tools) > 0 {
		params.Tools = convertTools(tools)
	}

	resp, err := client.Messages.New(ctx, params)
	if err != nil {
		return chat.Completion{}, fmt.Errorf("anthropic: %w", err)
	}
	return convertResponse(resp), nil
}

func convertMessages(messages []chat.Message) []anthropicsdk.MessageParam {
	result := make([]anthropicsdk.MessageParam, len(messages))
	for i, msg := range messages {
		switch msg.Role {
		case chat.RoleAssistant:
			result[i] = anthropicsdk.NewAssistantMessage(anthropicsdk.NewTextBlock(msg.Content))
		default:
			result[i] = anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(msg.Content))
		}
	}
	return result
}

func convertTools(tools []chat.ToolSpec) []anthropicsdk.ToolUnionParam {
	result := make([]anthropicsdk.ToolUnionParam, len(tools))
	for i, t := range tools {
		var properties any
		var required []string
		if t.Schema != nil {
			if props, ok := t.Schema["properties"]; ok {
				properties = props
			}
			switch req := t.Schema["required"].(type) {
			case []string:
				required = req
			case []interface{}:
				required = make([]string, 0, len(req))
				for _, v := range req {
					if s, ok := v.(string); ok {
						required = append(required, s)
					}
				}
			}
		}
		result[i] = anthropicsdk.ToolUnionParam{
			OfTool: &anthropicsdk.ToolParam{
				Name:        t.Name,
				Description: anthropicsdk.String(t.Description),
				InputSchema: anthropicsdk.ToolInputSchemaParam{Properties: properties, Required: required},
			},
		}
	}
	return result
}

func convertResponse(resp *anthropicsdk.Message) chat.Completion {
	out := chat.Completion{}
	for _, block := range resp.Content {
		switch b := block.AsAny().(type) {
		case anthropicsdk.TextBlock:
			if out.Text != "" {
				out.Text += "\n"
			}
			out.Text += b.Text
		case anthropicsdk.ToolUseBlock:
			out.ToolCalls = append(out.ToolCalls, chat.ToolCall{
				Name:  b.Name,
				Input: convertToolInput(b.Input),
			})
		}
	}
	return out
}

func convertToolInput(input interface{}) map[string]interface{} {
	if input == nil {
		return nil
	}
	if m, ok := input.(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{"_raw": input}
}
