package analysis

import (
	"fmt"
	"maps"
	"slices"

	"github.com/aretw0/stemma/pkg/domain"
)

// Tree is an immutable index over the resolved nodes of an experiment
// snapshot. Unresolved promises are excluded from traversal and reported
// through Incomplete.
type Tree struct {
	roots      []string
	nodes      map[string]*domain.StateNode
	children   map[string][]string
	incomplete map[string]domain.Status
}

// FromSnapshot builds a Tree from a registry snapshot. Only realized
// StateNodes are indexed; pending, failed and blocked entries show up in
// Incomplete.
func FromSnapshot(snap domain.Snapshot) *Tree {
	t := &Tree{
		roots:      slices.Clone(snap.Roots),
		nodes:      make(map[string]*domain.StateNode, len(snap.Nodes)),
		children:   make(map[string][]string, len(snap.Children)),
		incomplete: maps.Clone(snap.Unresolved),
	}
	if t.incomplete == nil {
		t.incomplete = make(map[string]domain.Status)
	}
	for id, n := range snap.Nodes {
		t.nodes[id] = n
	}
	// Keep only edges between realized nodes; edges into unresolved
	// promises are dropped from the traversal index.
	for parent, kids := range snap.Children {
		if _, ok := t.nodes[parent]; !ok {
			continue
		}
		for _, kid := range kids {
			if _, ok := t.nodes[kid]; ok {
				t.children[parent] = append(t.children[parent], kid)
			}
		}
	}
	return t
}

// Len returns the number of realized nodes in the snapshot.
func (t *Tree) Len() int { return len(t.nodes) }

// Roots returns the root nodes in spawn order.
func (t *Tree) Roots() []*domain.StateNode {
	roots := make([]*domain.StateNode, 0, len(t.roots))
	for _, id := range t.roots {
		if n, ok := t.nodes[id]; ok {
			roots = append(roots, n)
		}
	}
	return roots
}

// Node looks up a realized node by identifier.
func (t *Tree) Node(id string) (*domain.StateNode, error) {
	n, ok := t.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return n, nil
}

// Children returns the ordered realized children of a node.
func (t *Tree) Children(id string) []*domain.StateNode {
	kids := make([]*domain.StateNode, 0, len(t.children[id]))
	for _, cid := range t.children[id] {
		kids = append(kids, t.nodes[cid])
	}
	return kids
}

// Walk visits every realized node in pre-order from each root, deterministic
// by original attachment order. Returning false from visit stops the walk.
// Walks are restartable: each call re-runs the traversal from scratch.
func (t *Tree) Walk(visit func(*domain.StateNode) bool) {
	for _, id := range t.roots {
		if !t.walk(id, visit) {
			return
		}
	}
}

func (t *Tree) walk(id string, visit func(*domain.StateNode) bool) bool {
	n, ok := t.nodes[id]
	if !ok {
		return true
	}
	if !visit(n) {
		return false
	}
	for _, cid := range t.children[id] {
		if !t.walk(cid, visit) {
			return false
		}
	}
	return true
}

// Filter returns the nodes satisfying pred, in pre-order traversal order.
func (t *Tree) Filter(pred func(*domain.StateNode) bool) []*domain.StateNode {
	var out []*domain.StateNode
	t.Walk(func(n *domain.StateNode) bool {
		if pred(n) {
			out = append(out, n)
		}
		return true
	})
	return out
}

// PathToRoot returns the ancestry of a node from its root down to the node
// itself, parent-first. Fails with ErrNotFound if the node is unknown to
// this snapshot.
func (t *Tree) PathToRoot(id string) ([]*domain.StateNode, error) {
	n, ok := t.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}

	var path []*domain.StateNode
	for n != nil {
		path = append(path, n)
		if n.ParentID == "" {
			break
		}
		parent, ok := t.nodes[n.ParentID]
		if !ok {
			return nil, fmt.Errorf("%w: ancestor %s missing from snapshot", domain.ErrNotFound, n.ParentID)
		}
		n = parent
	}
	slices.Reverse(path)
	return path, nil
}

// Subtree returns a new read-only view rooted at the given node.
func (t *Tree) Subtree(id string) (*Tree, error) {
	root, ok := t.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}

	sub := &Tree{
		roots:      []string{root.ID},
		nodes:      make(map[string]*domain.StateNode),
		children:   make(map[string][]string),
		incomplete: make(map[string]domain.Status),
	}
	t.walk(id, func(n *domain.StateNode) bool {
		sub.nodes[n.ID] = n
		sub.children[n.ID] = slices.Clone(t.children[n.ID])
		return true
	})
	return sub, nil
}

// Incomplete maps every unresolved promise ID in the snapshot to its status.
func (t *Tree) Incomplete() map[string]domain.Status {
	return maps.Clone(t.incomplete)
}
