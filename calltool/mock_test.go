package calltool

import (
	"context"
	"errors"
	"testing"
)

func TestMockToolName(t *testing.T) {
	mock := &MockTool{ToolName: "search_web"}
	if mock.Name() != "search_web" {
		t.Fatalf("Name() = %q, want %q", mock.Name(), "search_web")
	}
}

func TestMockToolReturnsResponsesInSequenceThenRepeatsLast(t *testing.T) {
	mock := &MockTool{
		ToolName:  "counter",
		Responses: []map[string]interface{}{{"count": 1}, {"count": 2}},
	}

	for i, want := range []int{1, 2, 2} {
		out, err := mock.Invoke(context.Background(), nil)
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if out["count"] != want {
			t.Fatalf("call %d: count = %v, want %d", i, out["count"], want)
		}
	}
}

func TestMockToolErrOverridesResponses(t *testing.T) {
	wantErr := errors.New("tool execution failed")
	mock := &MockTool{ToolName: "failing", Err: wantErr, Responses: []map[string]interface{}{{"ok": true}}}

	_, err := mock.Invoke(context.Background(), nil)
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
}

func TestMockToolRecordsCallHistory(t *testing.T) {
	mock := &MockTool{ToolName: "tracker", Responses: []map[string]interface{}{{"ok": true}}}

	_, _ = mock.Invoke(context.Background(), map[string]interface{}{"query": "first"})
	_, _ = mock.Invoke(context.Background(), map[string]interface{}{"query": "second"})

	if len(mock.Calls) != 2 {
		t.Fatalf("len(Calls) = %d, want 2", len(mock.Calls))
	}
	if mock.Calls[1].Input["query"] != "second" {
		t.Fatalf("second call input = %+v", mock.Calls[1].Input)
	}
}

func TestMockToolContextCancellationSkipsResponseAndRecording(t *testing.T) {
	mock := &MockTool{ToolName: "cancellable", Responses: []map[string]interface{}{{"should": "not return"}}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := mock.Invoke(ctx, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if mock.CallCount() != 0 {
		t.Fatalf("CallCount() = %d, want 0 (cancelled calls should not be recorded)", mock.CallCount())
	}
}

func TestMockToolReset(t *testing.T) {
	mock := &MockTool{ToolName: "resettable", Responses: []map[string]interface{}{{"value": "first"}, {"value": "second"}}}

	_, _ = mock.Invoke(context.Background(), nil)
	mock.Reset()

	if mock.CallCount() != 0 {
		t.Fatalf("CallCount() after Reset = %d, want 0", mock.CallCount())
	}
	out, _ := mock.Invoke(context.Background(), nil)
	if out["value"] != "first" {
		t.Fatalf("value after Reset = %v, want %q", out["value"], "first")
	}
}

func TestMockToolConcurrentCallsAreRecordedSafely(t *testing.T) {
	mock := &MockTool{ToolName: "concurrent", Responses: []map[string]interface{}{{"ok": true}}}

	const goroutines = 20
	done := make(chan struct{}, goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			_, _ = mock.Invoke(context.Background(), nil)
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
