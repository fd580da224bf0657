package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/stemma/pkg/domain"
)

// Run resolves every pending promise reachable from the roots, in a
// topological order consistent with parent-before-child. Promises ready at
// the start (parent already resolved) seed the frontier in attachment order;
// resolving a promise unblocks its direct children. A failing recipe marks
// its promise FAILED and every descendant BLOCKED without aborting sibling
// branches.
//
// Failures are collected into the returned Report, not raised; the error
// return is reserved for context cancellation. Run on a fully resolved graph
// is a no-op returning an empty report.
func (g *Graph) Run(ctx context.Context) (*domain.Report, error) {
	g.mu.Lock()
	var pending []*domain.Promise
	for _, p := range g.promises {
		if p.Status == domain.StatusPending {
			pending = append(pending, p)
		}
	}
	if len(pending) == 0 {
		g.mu.Unlock()
		return &domain.Report{}, nil
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].Seq < pending[j].Seq })

	// Classify the frontier: promises under a resolved node run first;
	// promises under a previously failed or blocked promise will never run.
	type deadPromise struct {
		p     *domain.Promise
		cause error
	}
	var ready []*domain.Promise
	var dead []deadPromise
	for _, p := range pending {
		if _, ok := g.nodes[p.ParentID]; ok {
			ready = append(ready, p)
			continue
		}
		if parent, ok := g.promises[p.ParentID]; ok && parent.Status != domain.StatusPending {
			dead = append(dead, deadPromise{p: p, cause: parent.Err})
		}
	}
	workers := g.workers
	g.mu.Unlock()

	b := &batch{
		graph: g,
		ready: make(chan *domain.Promise, len(pending)),
	}
	b.wg.Add(len(pending))

	for _, d := range dead {
		b.markBlocked(ctx, d.p, fmt.Errorf("upstream failure of %s: %w", d.p.ParentID, d.cause))
	}
	for _, p := range ready {
		b.ready <- p
	}

	g.logger.Debug("starting resolution batch", "pending", len(pending), "ready", len(ready), "workers", workers)
	for i := 0; i < workers; i++ {
		go b.worker(ctx, i)
	}
	b.wg.Wait()
	close(b.ready)

	report := b.report()
	g.logger.Info("resolution batch finished",
		"resolved", len(report.Resolved),
		"failed", len(report.Failed),
		"blocked", len(report.Blocked),
	)
	return report, ctx.Err()
}

// batch tracks the outcome of a single Run invocation.
type batch struct {
	graph *Graph
	ready chan *domain.Promise
	wg    sync.WaitGroup

	mu       sync.Mutex
	resolved []*domain.StateNode
	failed   []*domain.Promise
	blocked  []*domain.Promise
}

// worker is the processing loop of one resolution worker. With a single
// worker, the ready channel's FIFO order makes execution deterministic in
// attachment order.
func (b *batch) worker(ctx context.Context, id int) {
	logger := b.graph.logger.With("worker", id)
	for p := range b.ready {
		if err := ctx.Err(); err != nil {
			logger.Warn("context canceled, failing promise", "promise_id", p.ID)
			b.fail(ctx, p, err, 0)
			continue
		}
		b.resolve(ctx, p, logger)
	}
}

// resolve executes the promise's recipe against its parent's payload and
// replaces the promise with the resulting StateNode under the same ID.
func (b *batch) resolve(ctx context.Context, p *domain.Promise, logger *slog.Logger) {
	g := b.graph

	g.mu.Lock()
	parent := g.nodes[p.ParentID]
	g.mu.Unlock()

	logger.Debug("resolving promise", "promise_id", p.ID, "operator", p.Recipe.Name)
	start := time.Now()
	out, err := p.Recipe.Run(ctx, parent.Payload)
	elapsed := time.Since(start)

	if err == nil && out == nil {
		err = fmt.Errorf("recipe returned a nil state")
	}
	if err == nil && g.store != nil {
		if serr := g.store.Save(ctx, p.ID, out); serr != nil {
			err = fmt.Errorf("%w: %w", domain.ErrPayloadStore, serr)
		}
	}
	if err != nil {
		b.fail(ctx, p, err, elapsed)
		return
	}

	node := &domain.StateNode{
		ID:         p.ID,
		ParentID:   p.ParentID,
		Operator:   p.Recipe.Name,
		Params:     p.Recipe.Params,
		Payload:    out,
		Seq:        p.Seq,
		ResolvedAt: time.Now(),
	}

	g.mu.Lock()
	p.Status = domain.StatusResolved
	delete(g.promises, p.ID)
	g.nodes[node.ID] = node
	var unblocked []*domain.Promise
	for _, cid := range g.children[p.ID] {
		if c, ok := g.promises[cid]; ok && c.Status == domain.StatusPending {
			unblocked = append(unblocked, c)
		}
	}
	g.mu.Unlock()

	b.mu.Lock()
	b.resolved = append(b.resolved, node)
	b.mu.Unlock()

	g.emit(ctx, g.hooks.OnResolve, &domain.NodeEvent{
		Type:     domain.EventResolve,
		NodeID:   node.ID,
		ParentID: node.ParentID,
		Operator: node.Operator,
		Duration: elapsed,
	})

	for _, c := range unblocked {
		b.ready <- c
	}
	b.wg.Done()
}

// fail marks the promise FAILED, records the cause and cascades BLOCKED onto
// its pending descendants. Sibling branches are untouched.
func (b *batch) fail(ctx context.Context, p *domain.Promise, cause error, elapsed time.Duration) {
	g := b.graph
	execErr := &domain.ExecError{NodeID: p.ID, Operator: p.Recipe.Name, Err: cause}

	g.mu.Lock()
	p.Status = domain.StatusFailed
	p.Err = execErr
	kids := slices.Clone(g.children[p.ID])
	g.mu.Unlock()

	b.mu.Lock()
	b.failed = append(b.failed, p)
	b.mu.Unlock()

	g.logger.Warn("promise failed", "promise_id", p.ID, "operator", p.Recipe.Name, "err", cause)
	g.emit(ctx, g.hooks.OnFail, &domain.NodeEvent{
		Type:     domain.EventFail,
		NodeID:   p.ID,
		ParentID: p.ParentID,
		Operator: p.Recipe.Name,
		Duration: elapsed,
		Err:      execErr,
	})

	b.wg.Done()
	for _, cid := range kids {
		if c := b.pendingChild(cid); c != nil {
			b.markBlocked(ctx, c, fmt.Errorf("upstream failure of %s: %w", p.ID, execErr))
		}
	}
}

// markBlocked transitions a pending promise to BLOCKED and cascades to its
// own pending descendants. Each blocked promise accounts for exactly one
// waitgroup slot.
func (b *batch) markBlocked(ctx context.Context, p *domain.Promise, cause error) {
	g := b.graph

	g.mu.Lock()
	if p.Status != domain.StatusPending {
		g.mu.Unlock()
		return
	}
	p.Status = domain.StatusBlocked
	p.Err = cause
	kids := slices.Clone(g.children[p.ID])
	g.mu.Unlock()

	b.mu.Lock()
	b.blocked = append(b.blocked, p)
	b.mu.Unlock()

	g.emit(ctx, g.hooks.OnBlock, &domain.NodeEvent{
		Type:     domain.EventBlock,
		NodeID:   p.ID,
		ParentID: p.ParentID,
		Operator: p.Recipe.Name,
		Err:      cause,
	})

	b.wg.Done()
	for _, cid := range kids {
		if c := b.pendingChild(cid); c != nil {
			b.markBlocked(ctx, c, fmt.Errorf("upstream failure of %s: %w", p.ID, cause))
		}
	}
}

// pendingChild returns the child promise if it is still pending.
func (b *batch) pendingChild(id string) *domain.Promise {
	g := b.graph
	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.promises[id]; ok && c.Status == domain.StatusPending {
		return c
	}
	return nil
}

// report assembles the batch outcome, ordered by attachment sequence.
func (b *batch) report() *domain.Report {
	b.mu.Lock()
	defer b.mu.Unlock()

	sort.Slice(b.resolved, func(i, j int) bool { return b.resolved[i].Seq < b.resolved[j].Seq })
	sort.Slice(b.failed, func(i, j int) bool { return b.failed[i].Seq < b.failed[j].Seq })
	sort.Slice(b.blocked, func(i, j int) bool { return b.blocked[i].Seq < b.blocked[j].Seq })

	report := &domain.Report{}
	for _, n := range b.resolved {
		report.Resolved = append(report.Resolved, n.ID)
	}
	for _, p := range b.failed {
		report.Failed = append(report.Failed, domain.Failure{ID: p.ID, Operator: p.Recipe.Name, Err: p.Err})
	}
	for _, p := range b.blocked {
		report.Blocked = append(report.Blocked, domain.Failure{ID: p.ID, Operator: p.Recipe.Name, Err: p.Err})
	}
	return report
}
