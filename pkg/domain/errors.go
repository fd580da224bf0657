package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a node or promise ID cannot be found in the
// experiment registry or in an analysis snapshot.
var ErrNotFound = errors.New("node not found")

// ErrStructuralViolation is returned on attempts to break the tree shape:
// attaching to a handle that does not belong to the graph being mutated, or
// applying an operator with no run procedure.
var ErrStructuralViolation = errors.New("structural violation")

// ErrInitialization is returned by SpawnTree when the root initializer fails.
// The attempted root is discarded, not registered.
var ErrInitialization = errors.New("initialization failed")

// ErrUnresolved is returned when a Function is applied to a target that has
// not been materialized yet (there is no payload to read).
var ErrUnresolved = errors.New("target not resolved")

// ErrPayloadStore wraps persistence failures at node creation/resolution
// boundaries when a payload store is configured.
var ErrPayloadStore = errors.New("payload store")

// ExecError reports a Recipe run procedure failure during batch resolution.
// It is collected into the run Report rather than raised immediately, so
// independent branches still get a chance to resolve.
type ExecError struct {
	// NodeID is the promise whose resolution failed or, for an eager
	// application, the parent node the recipe ran against.
	NodeID string
	// Operator is the name of the recipe that raised.
	Operator string
	// Err is the underlying cause.
	Err error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("operator %q failed at %s: %v", e.Operator, e.NodeID, e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }
