package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/stemma/pkg/domain"
	"github.com/aretw0/stemma/pkg/ports"
)

// Graph owns the full node/promise registry of a single experiment.
//
// The node/edge structure is a forest of rooted trees: every non-root entry
// has exactly one parent, children are ordered append-only, and there are no
// cycles or merge nodes. All mutation goes through the graph's mutex, so
// independent branches may be resolved by concurrent workers.
type Graph struct {
	mu       sync.Mutex
	nodes    map[string]*domain.StateNode
	promises map[string]*domain.Promise
	children map[string][]string
	roots    []string
	seq      int

	eager   bool
	workers int
	hooks   domain.LifecycleHooks
	logger  *slog.Logger
	store   ports.PayloadStore
}

// Option defines a functional option for configuring the Graph.
type Option func(*Graph)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Graph) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(g *Graph) {
		g.hooks = hooks
	}
}

// WithEagerApply makes Apply execute recipes immediately when the target is
// an already-resolved node. Applying to a promise always defers regardless
// of mode.
func WithEagerApply() Option {
	return func(g *Graph) {
		g.eager = true
	}
}

// WithWorkers sets the number of concurrent resolution workers used by Run.
// The default of 1 resolves promises strictly in attachment order. With more
// workers, only independent branches run in parallel; parent-before-child
// ordering always holds.
func WithWorkers(n int) Option {
	return func(g *Graph) {
		if n > 0 {
			g.workers = n
		}
	}
}

// WithPayloadStore enables payload persistence. The store is invoked at node
// creation/resolution boundaries only.
func WithPayloadStore(store ports.PayloadStore) Option {
	return func(g *Graph) {
		g.store = store
	}
}

// New creates an empty experiment graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		nodes:    make(map[string]*domain.StateNode),
		promises: make(map[string]*domain.Promise),
		children: make(map[string][]string),
		workers:  1,
		logger:   slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// SpawnTree constructs a new root by calling the user-supplied initializer
// against a fresh payload, registers the result as a root node and returns
// it. A failing initializer means the attempted root is discarded, not
// registered.
func (g *Graph) SpawnTree(ctx context.Context, init domain.Initializer) (*domain.StateNode, error) {
	if init == nil {
		return nil, fmt.Errorf("%w: nil initializer", domain.ErrInitialization)
	}

	payload, err := init(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInitialization, err)
	}

	node := &domain.StateNode{
		ID:         uuid.NewString(),
		Payload:    payload,
		ResolvedAt: time.Now(),
	}

	if g.store != nil {
		if err := g.store.Save(ctx, node.ID, payload); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrPayloadStore, err)
		}
	}

	g.mu.Lock()
	node.Seq = g.nextSeqLocked()
	g.nodes[node.ID] = node
	g.roots = append(g.roots, node.ID)
	g.mu.Unlock()

	g.logger.Debug("spawned root", "node_id", node.ID)
	g.emit(ctx, g.hooks.OnSpawn, &domain.NodeEvent{
		Type:   domain.EventSpawn,
		NodeID: node.ID,
	})

	return node, nil
}

// Apply attaches a Recipe under target.
//
// If target is a concrete node and eager mode is configured, the recipe runs
// immediately and the new StateNode is returned. Otherwise a Promise is
// recorded as a child of target and returned; it stays pending until Run.
// Applying to a promise always defers, since the input is not materialized
// yet.
func (g *Graph) Apply(ctx context.Context, r domain.Recipe, target domain.Handle) (domain.Handle, error) {
	if r.Run == nil {
		return nil, fmt.Errorf("%w: recipe %q has no run procedure", domain.ErrStructuralViolation, r.Name)
	}
	if target == nil {
		return nil, fmt.Errorf("%w: nil apply target", domain.ErrStructuralViolation)
	}
	parentID := target.HandleID()

	g.mu.Lock()
	parentNode, isNode := g.nodes[parentID]
	_, isPromise := g.promises[parentID]
	if !isNode && !isPromise {
		g.mu.Unlock()
		return nil, fmt.Errorf("%w: target %s does not belong to this experiment", domain.ErrStructuralViolation, parentID)
	}

	if isNode && g.eager {
		g.mu.Unlock()
		return g.applyEager(ctx, r, parentNode)
	}

	p := &domain.Promise{
		ID:       uuid.NewString(),
		ParentID: parentID,
		Recipe:   r,
		Status:   domain.StatusPending,
		Seq:      g.nextSeqLocked(),
	}
	g.promises[p.ID] = p
	g.children[parentID] = append(g.children[parentID], p.ID)
	g.mu.Unlock()

	g.logger.Debug("deferred recipe", "operator", r.Name, "promise_id", p.ID, "parent_id", parentID)
	g.emit(ctx, g.hooks.OnApply, &domain.NodeEvent{
		Type:     domain.EventApply,
		NodeID:   p.ID,
		ParentID: parentID,
		Operator: r.Name,
	})

	return p, nil
}

// applyEager runs the recipe synchronously against an already-resolved node.
// Failures surface immediately to the caller; nothing is registered.
func (g *Graph) applyEager(ctx context.Context, r domain.Recipe, parent *domain.StateNode) (domain.Handle, error) {
	g.emit(ctx, g.hooks.OnApply, &domain.NodeEvent{
		Type:     domain.EventApply,
		NodeID:   parent.ID,
		Operator: r.Name,
	})

	start := time.Now()
	out, err := r.Run(ctx, parent.Payload)
	elapsed := time.Since(start)
	if err == nil && out == nil {
		err = fmt.Errorf("recipe returned a nil state")
	}
	if err != nil {
		execErr := &domain.ExecError{NodeID: parent.ID, Operator: r.Name, Err: err}
		g.emit(ctx, g.hooks.OnFail, &domain.NodeEvent{
			Type:     domain.EventFail,
			NodeID:   parent.ID,
			Operator: r.Name,
			Duration: elapsed,
			Err:      execErr,
		})
		return nil, execErr
	}

	node := &domain.StateNode{
		ID:         uuid.NewString(),
		ParentID:   parent.ID,
		Operator:   r.Name,
		Params:     r.Params,
		Payload:    out,
		ResolvedAt: time.Now(),
	}

	if g.store != nil {
		if err := g.store.Save(ctx, node.ID, out); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrPayloadStore, err)
		}
	}

	g.mu.Lock()
	node.Seq = g.nextSeqLocked()
	g.nodes[node.ID] = node
	g.children[parent.ID] = append(g.children[parent.ID], node.ID)
	g.mu.Unlock()

	g.logger.Debug("applied recipe eagerly", "operator", r.Name, "node_id", node.ID, "parent_id", parent.ID)
	g.emit(ctx, g.hooks.OnResolve, &domain.NodeEvent{
		Type:     domain.EventResolve,
		NodeID:   node.ID,
		ParentID: parent.ID,
		Operator: r.Name,
		Duration: elapsed,
	})

	return node, nil
}

// Call invokes a Function against the payload of a resolved node and returns
// its value. Functions perform no graph mutation and are excluded from the
// tree entirely. Calling against an unresolved promise returns ErrUnresolved.
func (g *Graph) Call(ctx context.Context, fn domain.Function, target domain.Handle) (any, error) {
	if fn.Run == nil {
		return nil, fmt.Errorf("%w: function %q has no run procedure", domain.ErrStructuralViolation, fn.Name)
	}
	if target == nil {
		return nil, fmt.Errorf("%w: nil call target", domain.ErrStructuralViolation)
	}
	id := target.HandleID()

	g.mu.Lock()
	node, ok := g.nodes[id]
	if !ok {
		_, isPromise := g.promises[id]
		g.mu.Unlock()
		if isPromise {
			return nil, fmt.Errorf("%w: %s is still pending", domain.ErrUnresolved, id)
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	g.mu.Unlock()

	v, err := fn.Run(ctx, node.Payload)
	if err != nil {
		return nil, fmt.Errorf("function %q at %s: %w", fn.Name, id, err)
	}
	return v, nil
}

// Node looks up a registry entry by identifier.
func (g *Graph) Node(id string) (domain.Handle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if n, ok := g.nodes[id]; ok {
		return n, nil
	}
	if p, ok := g.promises[id]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
}

// Roots returns root node IDs in spawn order.
func (g *Graph) Roots() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.roots)
}

// Snapshot copies the registry for read-only analysis. The snapshot reflects
// the graph at the moment of the call; later mutations are not visible
// through it.
func (g *Graph) Snapshot() domain.Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	snap := domain.Snapshot{
		Roots:      slices.Clone(g.roots),
		Nodes:      make(map[string]*domain.StateNode, len(g.nodes)),
		Children:   make(map[string][]string, len(g.children)),
		Unresolved: make(map[string]domain.Status, len(g.promises)),
	}
	for id, n := range g.nodes {
		c := *n
		snap.Nodes[id] = &c
	}
	for id, kids := range g.children {
		snap.Children[id] = slices.Clone(kids)
	}
	for id, p := range g.promises {
		snap.Unresolved[id] = p.Status
	}
	return snap
}

// nextSeqLocked hands out the attachment order index. Callers must hold g.mu.
func (g *Graph) nextSeqLocked() int {
	s := g.seq
	g.seq++
	return s
}

// emit invokes a lifecycle hook if registered, stamping the event time.
func (g *Graph) emit(ctx context.Context, fn func(context.Context, *domain.NodeEvent), ev *domain.NodeEvent) {
	if fn == nil {
		return
	}
	ev.Timestamp = time.Now()
	fn(ctx, ev)
}
