// Package google adapts Google's Gemini API to chat.Provider.
package google

import (
	"context"
	"errors"
	"fmt"

	"github.com/nodegraft/durableflow/chat"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultModel = "gemini-2.5-flash"

// Provider implements chat.Provider against Gemini, translating a
// safety-filter block into a typed SafetyBlockedError instead of the SDK's
// generic "empty candidate" response.
type Provider struct {
	modelName string
	client    googleClient
}

type googleClient interface {
	generateContent(ctx context.Context, messages []chat.Message, tools []chat.ToolSpec) (chat.Completion, error)
}

// New constructs a Provider for the given API key and model. An empty
// modelName falls back to gemini-2.5-flash.
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
	return p.client.generateContent(ctx, messages, tools)
}

type defaultClient struct {
	apiKey    string
	modelName string
}

func (c *defaultClient) generateContent(ctx context.Context, messages []chat.Message, tools []chat.ToolSpec) (chat.Completion, error) {
	if c.apiKey == "" {
		return chat.Completion{}, errors.New("google: API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return chat.Completion{}, fmt.Errorf("google: create client: %w", err)
	}
	defer client.Close()

	genModel := client.GenerativeModel(c.modelName)
	if len(tools) > 0 {
		genModel.Tools = convertTools(tools)
	}

	resp, err := genModel.GenerateContent(ctx, convertMessages(messages)...)
	if err != nil {
		return chat.Completion{}, fmt.Errorf("google: %w", err)
	}
	return convertResponse(resp)
}

func convertMessages(messages []chat.Message) []genai.Part {
	var parts []genai.Part
	for _, msg := range messages {
		if msg.Content != "" {
			parts = append(parts, genai.Text(msg.Content))
		}
	}
	return parts
}

func convertTools(tools []chat.ToolSpec) []*genai.Tool {
	declarations := make([]*genai.FunctionDeclaration, len(tools))
	for i, t := range tools {
		declarations[i] = &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  convertSchema(t.Schema),
		}
	}
	return []*genai.Tool{{FunctionDeclarations: declarations}}
}

func convertSchema(schema map[string]interface{}) *genai.Schema {
	if schema == nil {
		return nil
	}
	result := &genai.Schema{Type: genai.TypeObject}

	if props, ok := schema["properties"].(map[string]interface{}); ok {
		properties := make(map[string]*genai.Schema, len(props))
		for key, val := range props {
			propMap, ok := val.(map[string]interface{})
			if !ok {
				continue
			}
			propSchema := &genai.Schema{}
			if typeStr, ok := propMap["type"].(string); ok {
				propSchema.Type = convertTypeString(typeStr)
			}
			if desc, ok := propMap["description"].(string); ok {
				propSchema.Description = desc
			}
			properties[key] = propSchema
		}
		result.Properties = properties
	}

	switch required := schema["required"].(type) {
	case []string:
		result.Required = required
	case []interface{}:
		strs := make([]string, 0, len(required))
		for _, v := range required {
			if s, ok := v.(string); ok {
				strs = append(strs, s)
			}
		}
		result.Required = strs
	}

	return result
}

// convertResponse converts Gemini's response to a Completion, or to a
// SafetyBlockedError if the first candidate was cut short by a safety
// filter rather than finishing normally.
func convertResponse(resp *genai.GenerateContentResponse) (chat.Completion, error) {
	if len(resp.Candidates) == 0 {
		return chat.Completion{}, nil
	}
	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return chat.Completion{}, &SafetyBlockedError{candidate: candidate}
	}
	if candidate.Content == nil {
		return chat.Completion{}, nil
	}

	out := chat.Completion{}
	for _, part := range candidate.Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			if out.Text != "" {
				out.Text += "\n"
			}
			out.Text += string(p)
		case genai.FunctionCall:
			out.ToolCalls = append(out.ToolCalls, chat.ToolCall{Name: p.Name, Input: p.Args})
		}
	}
	return out, nil
}

func convertTypeString(typeStr string) genai.Type {
	switch typeStr {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeUnspecified
	}
}

// SafetyBlockedError reports that Gemini declined to complete a request
// because its safety filter triggered on the first candidate. Check for it
// with errors.As to distinguish a content block from a transport failure.
type SafetyBlockedError struct {
	candidate *genai.Candidate
}

func (e *SafetyBlockedError) Error() string {
	return fmt.Sprintf("google: content blocked by safety filter (finish reason %v)", e.candidate.FinishReason)
}

// SafetyRatings exposes the per-category ratings Gemini attached to the
// blocked candidate, for callers that want to report which category fired.
func (e *SafetyBlockedError) SafetyRatings() []*genai.SafetyRating {
	return e.candidate.SafetyRatings
}
