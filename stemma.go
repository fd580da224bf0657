package stemma

import (
	"context"
	"log/slog"

	"github.com/aretw0/stemma/internal/engine"
	"github.com/aretw0/stemma/internal/logging"
	"github.com/aretw0/stemma/pkg/analysis"
	"github.com/aretw0/stemma/pkg/domain"
	"github.com/aretw0/stemma/pkg/ports"
)

// Experiment is the high-level entry point for the Stemma library.
// It wraps the internal engine and provides a simplified API for consumers:
// spawn roots, attach operators, run pending work and analyze the result.
type Experiment struct {
	graph   *engine.Graph
	logger  *slog.Logger
	hooks   domain.LifecycleHooks
	store   ports.PayloadStore
	eager   bool
	verbose bool
	workers int

	// Name labels the experiment in logs and exports.
	Name string
}

// Option defines a functional option for configuring the Experiment.
type Option func(*Experiment)

// WithLogger sets a custom structured logger for the experiment.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Experiment) {
		e.logger = logger
	}
}

// WithVerbose enables debug logging to Stderr. Ignored when WithLogger is
// also given.
func WithVerbose() Option {
	return func(e *Experiment) {
		e.verbose = true
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Experiment) {
		e.hooks = hooks
	}
}

// WithPayloadStore enables payload persistence through the given store.
func WithPayloadStore(store ports.PayloadStore) Option {
	return func(e *Experiment) {
		e.store = store
	}
}

// WithEagerApply switches Apply to immediate execution when the target is an
// already-resolved node. The default is deferred: Apply records a promise
// and Run resolves it later.
func WithEagerApply() Option {
	return func(e *Experiment) {
		e.eager = true
	}
}

// WithWorkers sets the number of concurrent resolution workers for Run.
// The default of 1 guarantees deterministic attachment-order execution.
func WithWorkers(n int) Option {
	return func(e *Experiment) {
		e.workers = n
	}
}

// New initializes a new Experiment.
func New(name string, opts ...Option) *Experiment {
	exp := &Experiment{
		Name:    name,
		workers: 1,
	}
	for _, opt := range opts {
		opt(exp)
	}

	// Ensure logger is initialized so we never hand nil to the engine.
	if exp.logger == nil {
		if exp.verbose {
			exp.logger = logging.New(slog.LevelDebug)
		} else {
			exp.logger = logging.NewNop()
		}
	}
	if exp.Name != "" {
		exp.logger = exp.logger.With("experiment", exp.Name)
	}

	engineOpts := []engine.Option{
		engine.WithLogger(exp.logger),
		engine.WithLifecycleHooks(exp.hooks),
		engine.WithWorkers(exp.workers),
	}
	if exp.eager {
		engineOpts = append(engineOpts, engine.WithEagerApply())
	}
	if exp.store != nil {
		engineOpts = append(engineOpts, engine.WithPayloadStore(exp.store))
	}
	exp.graph = engine.New(engineOpts...)

	return exp
}

// SpawnTree constructs a new root state node from the given initializer.
func (e *Experiment) SpawnTree(ctx context.Context, init domain.Initializer) (*domain.StateNode, error) {
	return e.graph.SpawnTree(ctx, init)
}

// Apply attaches a Recipe under target (a node or a promise). In deferred
// mode it returns the recorded *domain.Promise; in eager mode against a
// resolved node it returns the new *domain.StateNode.
func (e *Experiment) Apply(ctx context.Context, r domain.Recipe, target domain.Handle) (domain.Handle, error) {
	return e.graph.Apply(ctx, r, target)
}

// Call invokes a Function against a resolved node's payload and returns the
// computed value. The graph is never mutated.
func (e *Experiment) Call(ctx context.Context, fn domain.Function, target domain.Handle) (any, error) {
	return e.graph.Call(ctx, fn, target)
}

// Run resolves every pending promise in dependency order and reports the
// outcome. Failures are collected into the report, not raised.
func (e *Experiment) Run(ctx context.Context) (*domain.Report, error) {
	return e.graph.Run(ctx)
}

// Node looks up a node or promise by identifier.
func (e *Experiment) Node(id string) (domain.Handle, error) {
	return e.graph.Node(id)
}

// Roots returns root node IDs in spawn order.
func (e *Experiment) Roots() []string {
	return e.graph.Roots()
}

// Snapshot copies the registry for read-only consumers.
func (e *Experiment) Snapshot() domain.Snapshot {
	return e.graph.Snapshot()
}

// Analyze builds a static analysis tree over the experiment's current state.
func (e *Experiment) Analyze() *analysis.Tree {
	return analysis.FromSnapshot(e.graph.Snapshot())
}
