// Package calltool defines the interface a workflow body invokes through a
// ctx.Call handler to reach an external action (an HTTP request, a search,
// a database lookup) on a Provider's behalf.
package calltool

import "context"

// Tool is something an LLM-directed workflow step can invoke by name, with
// structured input and output so it composes with a chat.ToolCall.
type Tool interface {
	// Name is the identifier registered against the engine and referenced
	// by a chat.ToolSpec's Name field.
	Name() string

	// Invoke runs the tool against input and returns its structured result.
	Invoke(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error)
}
