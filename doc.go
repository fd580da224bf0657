/*
Package stemma is an experiment lineage engine: it tracks how a mutable
research artifact (a model or experiment "state") evolves across a sequence
of user-defined transformations, recording each transition as an edge in a
tree so the full history is inspectable and reproducible.

# Concept

Stemma treats an experiment as a forest of state nodes connected by
transition operators. Operators come in two flavors: a Recipe produces a new
state and extends the tree; a Function computes a value from a state without
touching the tree. Applying a recipe does not run it by default: it records
a promise, and whole trees of future work can be described before anything
executes. Run then resolves all pending promises in dependency order,
parent-before-child, with deterministic attachment-order tie-breaks.

The state payload itself is opaque to the engine. Persistence, analysis and
visualization are collaborators behind read-only interfaces.

# Key Features

  - Deferred execution: describe an entire tree of intended work, then
    resolve it in one scheduling pass.
  - Failure isolation: a failing recipe blocks only its own descendants;
    independent branches still resolve, and Run returns a full report.
  - Static analysis: rebuild the as-run graph as a read-only tree with
    filtering, ancestor paths and subtree extraction.
  - Hexagonal architecture: payload stores (memory, file, redis) and
    observability hooks are pluggable adapters.

# Usage

	exp := stemma.New("prune-study")

	root, err := exp.SpawnTree(ctx, func(ctx context.Context) (any, error) {
		return map[string]int{"x": 0}, nil
	})
	if err != nil {
		log.Fatal(err)
	}

	inc := domain.Recipe{Name: "inc", Run: func(ctx context.Context, payload any) (any, error) {
		next := maps.Clone(payload.(map[string]int))
		next["x"]++
		return next, nil
	}}

	p1, _ := exp.Apply(ctx, inc, root)
	p2, _ := exp.Apply(ctx, inc, p1) // chain before anything ran

	report, _ := exp.Run(ctx)
	_ = report
	_ = p2

	tree := exp.Analyze()
	path, _ := tree.PathToRoot(p2.HandleID())
*/
package stemma
