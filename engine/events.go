package engine

import "github.com/nodegraft/durableflow/emit"

func emitErrorEvent(kind string, err error) emit.Event {
	return emit.Event{Kind: kind, Msg: err.Error()}
}
