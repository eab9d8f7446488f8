package chat

import (
	"context"
	"errors"
	"testing"
)

func TestMockProviderReturnsResponsesInSequenceThenRepeatsLast(t *testing.T) {
	mock := &MockProvider{Responses: []Completion{{Text: "first"}, {Text: "second"}}}
	messages := []Message{{Role: RoleUser, Content: "hi"}}

	for i, want := range []string{"first", "second", "second"} {
		out, err := mock.Complete(context.Background(), messages, nil)
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if out.Text != want {
			t.Fatalf("call %d: Text = %q, want %q", i, out.Text, want)
		}
	}
	if mock.CallCount() != 3 {
		t.Fatalf("CallCount() = %d, want 3", mock.CallCount())
	}
}

func TestMockProviderErrOverridesResponses(t *testing.T) {
	wantErr := errors.New("simulated failure")
	mock := &MockProvider{Err: wantErr, Responses: []Completion{{Text: "unused"}}}

	_, err := mock.Complete(context.Background(), nil, nil)
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
	if mock.CallCount() != 1 {
		t.Fatalf("expected the failed call to still be recorded")
	}
}

func TestMockProviderRecordsCallHistory(t *testing.T) {
	mock := &MockProvider{Responses: []Completion{{Text: "ok"}}}
	tools := []ToolSpec{{Name: "search"}}

	_, _ = mock.Complete(context.Background(), []Message{{Role: RoleUser, Content: "a"}}, nil)
	_, _ = mock.Complete(context.Background(), []Message{{Role: RoleUser, Content: "b"}}, tools)

	if len(mock.Calls) != 2 {
		t.Fatalf("len(Calls) = %d, want 2", len(mock.Calls))
	}
	if mock.Calls[1].Messages[0].Content != "b" || len(mock.Calls[1].Tools) != 1 {
		t.Fatalf("second call not recorded correctly: %+v", mock.Calls[1])
	}
}

func TestMockProviderReset(t *testing.T) {
	mock := &MockProvider{Responses: []Completion{{Text: "first"}, {Text: "second"}}}
	messages := []Message{{Role: RoleUser, Content: "hi"}}

	_, _ = mock.Complete(context.Background(), messages, nil)
	mock.Reset()

	if mock.CallCount() != 0 {
		t.Fatalf("CallCount() after Reset = %d, want 0", mock.CallCount())
	}
	out, _ := mock.Complete(context.Background(), messages, nil)
	if out.Text != "first" {
		t.Fatalf("Text after Reset = %q, want %q (response index should rewind)", out.Text, "first")
	}
}

func TestMockProviderConcurrentCallsAreRecordedSafely(t *testing.T) {
	mock := &MockProvider{Responses: []Completion{{Text: "ok"}}}
	messages := []Message{{Role: RoleUser, Content: "hi"}}

	const goroutines = 20
	done := make(chan struct{}, goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			_, _ = mock.Complete(context.Background(), messages, nil)
			done <- struct{}{}
		}()
	}
	for i := 0; i < goroutines; i++ {
		<-done
	}
	if mock.CallCount() != goroutines {
		t.Fatalf("CallCount() = %d, want %d", mock.CallCount(), goroutines)
	}
}
