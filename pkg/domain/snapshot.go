package domain

// Snapshot is a point-in-time copy of an experiment registry, the input to
// the analysis package. All relations are expressed as identifier references.
//
// Node payloads are shared, not deep-copied: a payload is immutable once its
// node is resolved, so sharing is safe.
type Snapshot struct {
	// Roots lists root node IDs in spawn order.
	Roots []string

	// Nodes indexes every realized StateNode by ID.
	Nodes map[string]*StateNode

	// Children maps a parent ID to its ordered child IDs. Edges to
	// unresolved promises are included.
	Children map[string][]string

	// Unresolved maps every promise ID still in the registry to its status
	// (pending, failed or blocked).
	Unresolved map[string]Status
}
