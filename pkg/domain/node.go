package domain

import "time"

// Status tracks the lifecycle of a registry entry.
type Status string

const (
	// StatusCreated marks a realized StateNode (a root, or an eagerly applied
	// recipe result). Materialized nodes are always in this status.
	StatusCreated Status = "created"
	// StatusPending marks a Promise waiting for its producing recipe to run.
	StatusPending Status = "pending"
	// StatusResolved marks a Promise whose recipe ran and produced a StateNode.
	StatusResolved Status = "resolved"
	// StatusFailed marks a Promise whose recipe returned an error.
	StatusFailed Status = "failed"
	// StatusBlocked marks a Promise that will never run because an ancestor failed.
	StatusBlocked Status = "blocked"
)

// StateNode is an immutable record of "a state at a point in history": either
// a tree root, or the realized result of applying a Recipe to its parent.
//
// A StateNode never changes after creation. Payload mutation, if any, happens
// inside the producing recipe before the node is registered. Child edges are
// kept in the owning graph's registry (identifier references, not embedded
// pointers) and grow append-only as new operators are attached.
type StateNode struct {
	// ID uniquely identifies the node within its experiment. A node produced
	// by resolving a promise inherits the promise's ID, so handles taken
	// before execution stay valid afterwards.
	ID string

	// ParentID references the producing parent. Empty for roots.
	ParentID string

	// Operator is the name of the producing Recipe. Empty for roots.
	Operator string

	// Params echoes the producing Recipe's parameters for provenance.
	Params map[string]any

	// Payload is the opaque experiment state. The engine never inspects it.
	Payload any

	// Seq is the attachment order index, unique and monotonic per experiment.
	// It is the tie-break used for deterministic resolution ordering.
	Seq int

	// ResolvedAt records when the node was materialized.
	ResolvedAt time.Time
}

// Handle identifies a registry entry: either a realized *StateNode or a
// not-yet-resolved *Promise. Both can be targets of Experiment.Apply.
type Handle interface {
	HandleID() string
}

// HandleID implements Handle.
func (n *StateNode) HandleID() string { return n.ID }

// Root reports whether the node is a tree root.
func (n *StateNode) Root() bool { return n.ParentID == "" }
