package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nodegraft/durableflow/calltool"
	"github.com/nodegraft/durableflow/engine"
)

// NewToolHandler wraps a calltool.Tool as an engine.Handler, decoding a
// JSON object into the tool's map[string]interface{} input and encoding its
// map[string]interface{} output back to JSON.
func NewToolHandler(t calltool.Tool) engine.Handler {
	return func(ctx context.Context, request []byte) ([]byte, error) {
		var input map[string]interface{}
		if len(request) > 0 {
			if err := json.Unmarshal(request, &input); err != nil {
				return nil, fmt.Errorf("handlers: decode %s request: %w", t.Name(), err)
			}
		}
		output, err := t.Invoke(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("handlers: %s: %w", t.Name(), err)
		}
		resp, err := json.Marshal(output)
		if err != nil {
			return nil, fmt.Errorf("handlers: encode %s response: %w", t.Name(), err)
		}
		return resp, nil
	}
}
