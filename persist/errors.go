package persist

import (
	"fmt"

	"github.com/nodegraft/durableflow/durableerr"
)

// storageErr wraps a failure surfaced by the store or a codec in
// durableerr.ErrStorageError, so engine.execute can tell a transient I/O
// failure -- which must leave the workflow Running and safe to retry --
// apart from a terminal error returned by the workflow body itself (spec's
// failure taxonomy: StorageError bubbles up, workflow stays Running; a
// UserError is terminal). op labels the failing call for the error message.
func storageErr(op string, err error) error {
	return fmt.Errorf("persist: %s: %w: %w", op, durableerr.ErrStorageError, err)
}
