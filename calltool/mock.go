package calltool

import (
	"context"
	"sync"
)

// MockTool is a test double for Tool: configurable name, a sequence of
// responses (repeating the last once exhausted) or a configured error, with
// full call-history tracking.
type MockTool struct {
	ToolName  string
	Responses []map[string]interface{}
	Err       error
	Calls     []MockToolCall

	mu    sync.Mutex
	index int
}

// MockToolCall records a single Invoke invocation.
type MockToolCall struct {
	Input map[string]interface{}
}

func (m *MockTool) Name() string { return m.ToolName }

func (m *MockTool) Invoke(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, MockToolCall{Input: input})

	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Responses) == 0 {
		return map[string]interface{}{}, nil
	}

	idx := m.index
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	} else {
		m.index++
	}
	return m.Responses[idx], nil
}

// Reset clears call history and rewinds to the first configured response.
func (m *MockTool) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
	m.index = 0
}

// CallCount returns how many times Invoke has been called.
func (m *MockTool) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
