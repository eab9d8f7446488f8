package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nodegraft/durableflow/calltool"
)

func TestToolHandlerRoundTrips(t *testing.T) {
	mock := &calltool.MockTool{
		ToolName:  "get_weather",
		Responses: []map[string]interface{}{{"temperature": 72.5}},
	}
	h := NewToolHandler(mock)

	req, err := json.Marshal(map[string]interface{}{"location": "SF"})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	out, err := h(context.Background(), req)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(out, &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp["temperature"] != 72.5 {
		t.Fatalf("response = %+v", resp)
	}
	if len(mock.Calls) != 1 {
		t.Fatalf("expected one recorded call, got %d", len(mock.Calls))
	}
}

func TestToolHandlerPropagatesError(t *testing.T) {
	mock := &calltool.MockTool{ToolName: "flaky", Err: errors.New("boom")}
	h := NewToolHandler(mock)

	if _, err := h(context.Background(), []byte(`{}`)); err == nil {
		t.Fatalf("expected handler to propagate the tool error")
	}
}
