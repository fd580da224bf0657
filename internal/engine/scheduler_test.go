package engine_test

import (
	"context"
	"errors"
	"maps"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/stemma/internal/engine"
	"github.com/aretw0/stemma/pkg/adapters/memory"
	"github.com/aretw0/stemma/pkg/domain"
)

// recorder tracks recipe execution order across workers.
type recorder struct {
	mu    sync.Mutex
	order []string
}

func (r *recorder) mark(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = append(r.order, name)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

// namedInc is incRecipe with an execution recorder attached.
func namedInc(name string, rec *recorder) domain.Recipe {
	return domain.Recipe{
		Name: name,
		Run: func(ctx context.Context, payload any) (any, error) {
			rec.mark(name)
			next := maps.Clone(payload.(map[string]int))
			next["x"]++
			return next, nil
		},
	}
}

func TestRun_ChainScenario(t *testing.T) {
	// spawn R {x:0}; inc -> P1; inc on P1 -> P2; run; expect x = 0, 1, 2.
	ctx := context.Background()
	g := engine.New()

	root, err := g.SpawnTree(ctx, newCounterInit())
	if err != nil {
		t.Fatalf("SpawnTree failed: %v", err)
	}
	p1, _ := g.Apply(ctx, incRecipe(), root)
	p2, _ := g.Apply(ctx, incRecipe(), p1)

	report, err := g.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(report.Resolved) != 2 {
		t.Fatalf("expected 2 resolutions, got %d", len(report.Resolved))
	}
	if report.Resolved[0] != p1.HandleID() || report.Resolved[1] != p2.HandleID() {
		t.Errorf("unexpected resolution order: %v", report.Resolved)
	}
	if err := report.Err(); err != nil {
		t.Errorf("expected no failures, got %v", err)
	}

	if got := root.Payload.(map[string]int)["x"]; got != 0 {
		t.Errorf("root payload mutated: x=%d", got)
	}

	for i, h := range []domain.Handle{p1, p2} {
		entry, err := g.Node(h.HandleID())
		if err != nil {
			t.Fatalf("lookup after run failed: %v", err)
		}
		node, ok := entry.(*domain.StateNode)
		if !ok {
			t.Fatalf("promise %d not replaced by a node, got %T", i+1, entry)
		}
		if got := node.Payload.(map[string]int)["x"]; got != i+1 {
			t.Errorf("node %d: expected x=%d, got %d", i+1, i+1, got)
		}
	}
}

func TestRun_ParentBeforeChildOrdering(t *testing.T) {
	ctx := context.Background()
	g := engine.New()
	rec := &recorder{}

	root, _ := g.SpawnTree(ctx, newCounterInit())
	p1, _ := g.Apply(ctx, namedInc("p1", rec), root)
	p2, _ := g.Apply(ctx, namedInc("p2", rec), p1)
	_, _ = g.Apply(ctx, namedInc("p3", rec), p2)

	if _, err := g.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	order := rec.snapshot()
	want := []string{"p1", "p2", "p3"}
	if len(order) != len(want) {
		t.Fatalf("expected %d executions, got %v", len(want), order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("execution order violated chain: %v", order)
		}
	}
}

func TestRun_SiblingInsertionOrder(t *testing.T) {
	// With a single worker, siblings resolve in the order they were attached.
	ctx := context.Background()
	g := engine.New()
	rec := &recorder{}

	root, _ := g.SpawnTree(ctx, newCounterInit())
	_, _ = g.Apply(ctx, namedInc("a", rec), root)
	_, _ = g.Apply(ctx, namedInc("b", rec), root)
	_, _ = g.Apply(ctx, namedInc("c", rec), root)

	if _, err := g.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	order := rec.snapshot()
	want := []string{"a", "b", "c"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected insertion order %v, got %v", want, order)
		}
	}
}

func TestRun_Idempotent(t *testing.T) {
	ctx := context.Background()
	g := engine.New()
	rec := &recorder{}

	root, _ := g.SpawnTree(ctx, newCounterInit())
	_, _ = g.Apply(ctx, namedInc("once", rec), root)

	if _, err := g.Run(ctx); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}

	report, err := g.Run(ctx)
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if !report.Empty() {
		t.Errorf("expected empty delta report, got %+v", report)
	}
	if got := len(rec.snapshot()); got != 1 {
		t.Errorf("recipe must run exactly once, ran %d times", got)
	}
}

func TestRun_FailureIsolation(t *testing.T) {
	// root -> {A (fails), B}; A -> A1. B must resolve; A failed; A1 blocked.
	ctx := context.Background()
	g := engine.New()
	rec := &recorder{}

	root, _ := g.SpawnTree(ctx, newCounterInit())

	boom := errors.New("diverged")
	failing := domain.Recipe{
		Name: "train_bad",
		Run: func(ctx context.Context, payload any) (any, error) {
			return nil, boom
		},
	}

	a, _ := g.Apply(ctx, failing, root)
	b, _ := g.Apply(ctx, namedInc("b", rec), root)
	a1, _ := g.Apply(ctx, namedInc("a1", rec), a)

	report, err := g.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(report.Resolved) != 1 || report.Resolved[0] != b.HandleID() {
		t.Errorf("sibling branch must resolve, got %v", report.Resolved)
	}
	if len(report.Failed) != 1 || report.Failed[0].ID != a.HandleID() {
		t.Fatalf("expected exactly A to fail, got %+v", report.Failed)
	}
	if !errors.Is(report.Failed[0].Err, boom) {
		t.Errorf("failure must preserve the cause, got %v", report.Failed[0].Err)
	}
	var execErr *domain.ExecError
	if !errors.As(report.Failed[0].Err, &execErr) {
		t.Errorf("expected ExecError, got %T", report.Failed[0].Err)
	}
	if len(report.Blocked) != 1 || report.Blocked[0].ID != a1.HandleID() {
		t.Fatalf("expected exactly A1 blocked, got %+v", report.Blocked)
	}

	// Registry statuses match the report.
	h, _ := g.Node(a1.HandleID())
	if p, ok := h.(*domain.Promise); !ok || p.Status != domain.StatusBlocked {
		t.Errorf("A1 should remain a blocked promise, got %T", h)
	}

	order := rec.snapshot()
	if len(order) != 1 || order[0] != "b" {
		t.Errorf("only b should execute, got %v", order)
	}
}

func TestRun_BlockedCascadesDeep(t *testing.T) {
	ctx := context.Background()
	g := engine.New()

	root, _ := g.SpawnTree(ctx, newCounterInit())
	failing := domain.Recipe{
		Name: "bad",
		Run: func(ctx context.Context, payload any) (any, error) {
			return nil, errors.New("nope")
		},
	}
	a, _ := g.Apply(ctx, failing, root)
	a1, _ := g.Apply(ctx, incRecipe(), a)
	a2, _ := g.Apply(ctx, incRecipe(), a1)

	report, _ := g.Run(ctx)

	if len(report.Blocked) != 2 {
		t.Fatalf("expected 2 blocked descendants, got %+v", report.Blocked)
	}
	if report.Blocked[0].ID != a1.HandleID() || report.Blocked[1].ID != a2.HandleID() {
		t.Errorf("blocked order should follow attachment order: %+v", report.Blocked)
	}
}

func TestRun_AttachUnderFailedPromise(t *testing.T) {
	// Attaching new work under an already-failed promise blocks it on the
	// next Run instead of leaking a pending entry.
	ctx := context.Background()
	g := engine.New()

	root, _ := g.SpawnTree(ctx, newCounterInit())
	failing := domain.Recipe{
		Name: "bad",
		Run: func(ctx context.Context, payload any) (any, error) {
			return nil, errors.New("nope")
		},
	}
	a, _ := g.Apply(ctx, failing, root)
	if _, err := g.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	late, err := g.Apply(ctx, incRecipe(), a)
	if err != nil {
		t.Fatalf("Apply under failed promise should be recorded: %v", err)
	}

	report, err := g.Run(ctx)
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if len(report.Blocked) != 1 || report.Blocked[0].ID != late.HandleID() {
		t.Fatalf("late promise must be blocked, got %+v", report.Blocked)
	}
}

func TestRun_NilStateIsFailure(t *testing.T) {
	ctx := context.Background()
	g := engine.New()

	root, _ := g.SpawnTree(ctx, newCounterInit())
	void := domain.Recipe{
		Name: "void",
		Run: func(ctx context.Context, payload any) (any, error) {
			return nil, nil
		},
	}
	p, _ := g.Apply(ctx, void, root)

	report, _ := g.Run(ctx)
	if len(report.Failed) != 1 || report.Failed[0].ID != p.HandleID() {
		t.Fatalf("nil state must fail the promise, got %+v", report)
	}
}

func TestRun_ParallelWorkers(t *testing.T) {
	// Two independent branches, several workers: everything resolves and
	// each chain still observes parent-before-child.
	ctx := context.Background()
	g := engine.New(engine.WithWorkers(4))

	root, _ := g.SpawnTree(ctx, newCounterInit())

	slowInc := domain.Recipe{
		Name: "slow_inc",
		Run: func(ctx context.Context, payload any) (any, error) {
			time.Sleep(5 * time.Millisecond)
			next := maps.Clone(payload.(map[string]int))
			next["x"]++
			return next, nil
		},
	}

	var leaves []domain.Handle
	for i := 0; i < 4; i++ {
		mid, _ := g.Apply(ctx, slowInc, root)
		leaf, _ := g.Apply(ctx, slowInc, mid)
		leaves = append(leaves, leaf)
	}

	report, err := g.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(report.Resolved) != 8 {
		t.Fatalf("expected 8 resolutions, got %d", len(report.Resolved))
	}

	for _, leaf := range leaves {
		h, err := g.Node(leaf.HandleID())
		if err != nil {
			t.Fatalf("leaf lookup failed: %v", err)
		}
		node := h.(*domain.StateNode)
		if got := node.Payload.(map[string]int)["x"]; got != 2 {
			t.Errorf("leaf should see two increments, got %d", got)
		}
	}
}

func TestRun_PersistsPayloads(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	g := engine.New(engine.WithPayloadStore(store))

	root, _ := g.SpawnTree(ctx, newCounterInit())
	p1, _ := g.Apply(ctx, incRecipe(), root)

	if _, err := g.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	ids, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected payloads for root and resolved node, got %v", ids)
	}

	payload, err := store.Load(ctx, p1.HandleID())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := payload.(map[string]int)["x"]; got != 1 {
		t.Errorf("persisted payload should be the new state, got x=%d", got)
	}
}

func TestRun_StoreFailureBlocksDescendants(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{}
	g := engine.New(engine.WithPayloadStore(store))

	// The root save succeeds, resolution saves fail.
	store.failAfter = 1

	root, _ := g.SpawnTree(ctx, newCounterInit())
	p1, _ := g.Apply(ctx, incRecipe(), root)
	p2, _ := g.Apply(ctx, incRecipe(), p1)

	report, _ := g.Run(ctx)

	if len(report.Failed) != 1 || report.Failed[0].ID != p1.HandleID() {
		t.Fatalf("expected p1 to fail on store error, got %+v", report.Failed)
	}
	if !errors.Is(report.Failed[0].Err, domain.ErrPayloadStore) {
		t.Errorf("expected ErrPayloadStore cause, got %v", report.Failed[0].Err)
	}
	if len(report.Blocked) != 1 || report.Blocked[0].ID != p2.HandleID() {
		t.Fatalf("expected p2 blocked, got %+v", report.Blocked)
	}
}

// failingStore fails every Save after the first failAfter calls.
type failingStore struct {
	mu        sync.Mutex
	saves     int
	failAfter int
}

func (s *failingStore) Save(ctx context.Context, nodeID string, payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saves > s.failAfter {
		return errors.New("disk full")
	}
	return nil
}

func (s *failingStore) Load(ctx context.Context, nodeID string) (any, error) {
	return nil, domain.ErrNotFound
}

func (s *failingStore) Delete(ctx context.Context, nodeID string) error { return nil }

func (s *failingStore) List(ctx context.Context) ([]string, error) { return nil, nil }
