package domain

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Initializer allocates and populates the payload for a new tree root.
// It is passed explicitly to SpawnTree instead of being patched onto a
// shared state class, so per-experiment customization is a value, not
// ambient behavior.
type Initializer func(ctx context.Context) (any, error)

// RecipeRunner is the run procedure of a mutating operator. It receives the
// parent's payload and must return the payload of the new state. Copy-on-write
// versus shared mutation is the author's choice; the engine never diffs
// payloads, it only links the returned state as a child.
type RecipeRunner func(ctx context.Context, payload any) (any, error)

// FunctionRunner is the run procedure of a read-only operator. Its return
// value is handed straight back to the caller and never stored in the graph.
type FunctionRunner func(ctx context.Context, payload any) (any, error)

// Recipe is a mutating transition operator: applying it to a node or promise
// always creates exactly one new child in the graph.
type Recipe struct {
	// Name identifies the operator for provenance and display.
	Name string

	// Params carries arbitrary operator parameters. The engine copies them
	// onto the produced StateNode; DecodeParams turns them back into typed
	// structs.
	Params map[string]any

	// Run is the user-supplied run procedure. Invoked exactly once per
	// resolution, never retried.
	Run RecipeRunner
}

// Function is a non-mutating operator: it computes a value from a node's
// payload and is excluded from the tree entirely.
type Function struct {
	Name string

	Params map[string]any

	Run FunctionRunner
}

// DecodeParams decodes an operator Params map into a typed struct using
// "mapstructure" field tags.
func DecodeParams(params map[string]any, out any) error {
	if err := mapstructure.Decode(params, out); err != nil {
		return fmt.Errorf("failed to decode operator params: %w", err)
	}
	return nil
}
