package google

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/nodegraft/durableflow/chat"
)

type fakeGoogleClient struct {
	out chat.Completion
	err error
}

func (f *fakeGoogleClient) generateContent(ctx context.Context, messages []chat.Message, tools []chat.ToolSpec) (chat.Completion, error) {
	if f.err != nil {
		return chat.Completion{}, f.err
	}
	return f.out, nil
}

func TestNewDefaultsModelName(t *testing.T) {
	p := New("key", "")
	if p.modelName != defaultModel {
		t.Fatalf("modelName = %q, want %q", p.modelName, defaultModel)
	}
}

func TestCompleteReturnsText(t *testing.T) {
	p := &Provider{modelName: defaultModel, client: &fakeGoogleClient{out: chat.Completion{Text: "hi"}}}

	out, err := p.Complete(context.Background(), []chat.Message{{Role: chat.RoleUser, Content: "hi"}}, nil)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out.Text != "hi" {
		t.Fatalf("Text = %q", out.Text)
	}
}

func TestCompletePropagatesClientError(t *testing.T) {
	wantErr := errors.New("gemini unavailable")
	p := &Provider{modelName: defaultModel, client: &fakeGoogleClient{err: wantErr}}

	_, err := p.Complete(context.Background(), nil, nil)
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
}

func TestConvertResponseReturnsSafetyBlockedErrorOnSafetyFinish(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{FinishReason: genai.FinishReasonSafety},
		},
	}
	_, err := convertResponse(resp)
	var safetyErr *SafetyBlockedError
	if !errors.As(err, &safetyErr) {
		t.Fatalf("err = %v, want *SafetyBlockedError", err)
	}
}

func TestConvertResponseReturnsTextForNormalFinish(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				FinishReason: genai.FinishReasonStop,
				Content: &genai.Content{
					Parts: []genai.Part{genai.Text("hello")},
				},
			},
		},
	}
	out, err := convertResponse(resp)
	if err != nil {
		t.Fatalf("convertResponse: %v", err)
	}
	if out.Text != "hello" {
		t.Fatalf("Text = %q", out.Text)
	}
}

func TestConvertSchemaExtractsPropertiesAndRequired(t *testing.T) {
	schema := map[string]interface{}{
		"properties": map[string]interface{}{
			"query": map[string]interface{}{"type": "string", "description": "search text"},
		},
		"required": []interface{}{"query"},
	}
	got := convertSchema(schema)
	if got.Properties["query"].Type != genai.TypeString {
		t.Fatalf("properties = %+v", got.Properties)
	}
	if len(got.Required) != 1 || got.Required[0] != "query" {
		t.Fatalf("required = %+v", got.Required)
	}
}
