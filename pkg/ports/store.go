package ports

import "context"

// PayloadStore persists opaque state payloads keyed by node ID.
//
// The engine calls Save only at node creation/resolution boundaries, and
// only when a store is configured. The storage location is configuration of
// the adapter, never part of the graph invariants.
//
// Serializing adapters (file, redis) require payloads to be JSON
// marshalable, and Load returns the generically decoded form
// (map[string]any, []any, float64, ...). The memory adapter stores values
// as-is.
type PayloadStore interface {
	// Save persists the payload for a given node ID, overwriting any
	// previous value.
	Save(ctx context.Context, nodeID string, payload any) error

	// Load retrieves the payload for a given node ID.
	// Returns domain.ErrNotFound if the node has no persisted payload.
	Load(ctx context.Context, nodeID string) (any, error)

	// Delete removes the payload for a given node ID. Deleting an absent
	// node is not an error.
	Delete(ctx context.Context, nodeID string) error

	// List returns the node IDs with persisted payloads.
	List(ctx context.Context) ([]string, error)
}
