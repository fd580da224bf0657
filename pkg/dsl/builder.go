package dsl

import (
	"context"
	"fmt"

	"github.com/aretw0/stemma"
	"github.com/aretw0/stemma/pkg/domain"
)

// Builder accumulates the intended tree structure for an experiment.
type Builder struct {
	exp   *stemma.Experiment
	roots []*Node
}

// New creates a builder bound to an experiment.
func New(exp *stemma.Experiment) *Builder {
	return &Builder{exp: exp}
}

// Root declares a new tree root produced by the given initializer.
// Nothing is spawned until Run.
func (b *Builder) Root(init domain.Initializer) *Node {
	n := &Node{builder: b, init: init}
	b.roots = append(b.roots, n)
	return n
}

// Run realizes the described structure: roots are spawned, recipes recorded
// as promises in declaration order, and the experiment's scheduler resolves
// them. After Run, each builder node exposes the handle it materialized
// into.
func (b *Builder) Run(ctx context.Context) (*domain.Report, error) {
	for _, root := range b.roots {
		node, err := b.exp.SpawnTree(ctx, root.init)
		if err != nil {
			return nil, fmt.Errorf("failed to spawn declared root: %w", err)
		}
		root.handle = node
		if err := b.attach(ctx, root); err != nil {
			return nil, err
		}
	}
	return b.exp.Run(ctx)
}

// attach records promises for every declared child, depth-first.
func (b *Builder) attach(ctx context.Context, parent *Node) error {
	for _, child := range parent.children {
		h, err := b.exp.Apply(ctx, child.recipe, parent.handle)
		if err != nil {
			return fmt.Errorf("failed to attach recipe %q: %w", child.recipe.Name, err)
		}
		child.handle = h
		if err := b.attach(ctx, child); err != nil {
			return err
		}
	}
	return nil
}
