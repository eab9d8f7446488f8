package chat

import (
	"context"
	"errors"
	"testing"
)

type staticProvider struct {
	out Completion
	err error
}

func (p *staticProvider) Complete(ctx context.Context, messages []Message, tools []ToolSpec) (Completion, error) {
	if ctx.Err() != nil {
		return Completion{}, ctx.Err()
	}
	if p.err != nil {
		return Completion{}, p.err
	}
	return p.out, nil
}

func TestProviderInterfaceSatisfiedByConcreteType(t *testing.T) {
	var _ Provider = &staticProvider{}
}

func TestProviderCompleteReturnsTextAndToolCalls(t *testing.T) {
	p := &staticProvider{out: Completion{
		Text:      "let me check",
		ToolCalls: []ToolCall{{Name: "search", Input: map[string]interface{}{"query": "go"}}},
	}}

	out, err := p.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, nil)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out.Text != "let me check" {
		t.Fatalf("Text = %q", out.Text)
	}
	if len(out.ToolCalls) != 1 || out.ToolCalls[0].Name != "search" {
		t.Fatalf("ToolCalls = %+v", out.ToolCalls)
	}
}

func TestProviderCompletePropagatesError(t *testing.T) {
	wantErr := errors.New("provider down")
	p := &staticProvider{err: wantErr}

	_, err := p.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, nil)
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
}

func TestRoleConstants(t *testing.T) {
	if RoleSystem != "system" || RoleUser != "user" || RoleAssistant != "assistant" {
		t.Fatalf("unexpected role constants: %q %q %q", RoleSystem, RoleUser, RoleAssistant)
	}
}
