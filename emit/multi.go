package emit

import "context"

// MultiEmitter fans one event stream out to several Emitters, e.g. a
// LogEmitter for operators and an OTelEmitter for tracing. Grounded on the
// teacher's examples/tracing demo, which combined a BufferedEmitter and a
// LogEmitter the same way; generalized here into a reusable Emitter rather
// than a one-off demo type.
type MultiEmitter struct {
	emitters []Emitter
}

// NewMultiEmitter fans out to every given emitter, in order.
func NewMultiEmitter(emitters ...Emitter) *MultiEmitter {
	return &MultiEmitter{emitters: emitters}
}

func (m *MultiEmitter) Emit(event Event) {
	for _, e := range m.emitters {
		e.Emit(event)
	}
}

func (m *MultiEmitter) EmitBatch(ctx context.Context, events []Event) error {
	for _, e := range m.emitters {
		if err := e.EmitBatch(ctx, events); err != nil {
			return err
		}
	}
	return nil
}

func (m *MultiEmitter) Flush(ctx context.Context) error {
	for _, e := range m.emitters {
		if err := e.Flush(ctx); err != nil {
			return err
		}
	}
	return nil
}
