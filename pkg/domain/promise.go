package domain

// Promise is a placeholder for a StateNode that will exist once its producing
// Recipe has run. Promises can themselves be apply targets, forming a
// forward-looking subtree of intended work that Run later realizes in
// dependency order.
//
// Once resolved, the promise's ID designates the resulting StateNode in the
// registry; the Promise value itself is immutable from then on and is never
// re-executed.
type Promise struct {
	// ID uniquely identifies the promise, and the StateNode it resolves into.
	ID string

	// ParentID references the node or promise this will attach under.
	ParentID string

	// Recipe is the operator that will produce the state.
	Recipe Recipe

	// Status is one of StatusPending, StatusResolved, StatusFailed,
	// StatusBlocked.
	Status Status

	// Seq is the attachment order index (see StateNode.Seq).
	Seq int

	// Err holds the failure cause when Status is StatusFailed, or the
	// upstream cause when StatusBlocked.
	Err error
}

// HandleID implements Handle.
func (p *Promise) HandleID() string { return p.ID }
