package graph_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aretw0/stemma/pkg/analysis"
	"github.com/aretw0/stemma/pkg/domain"
	"github.com/aretw0/stemma/pkg/presentation/graph"
)

func fixtureTree() *analysis.Tree {
	return analysis.FromSnapshot(domain.Snapshot{
		Roots: []string{"r"},
		Nodes: map[string]*domain.StateNode{
			"r": {ID: "r"},
			"a": {ID: "a", ParentID: "r", Operator: "train"},
			"b": {ID: "b", ParentID: "r", Operator: "prune"},
		},
		Children: map[string][]string{
			"r": {"a", "b", "p"},
		},
		Unresolved: map[string]domain.Status{
			"p": domain.StatusFailed,
		},
	})
}

func TestGenerateMermaid(t *testing.T) {
	out := graph.GenerateMermaid(fixtureTree(), nil)

	assert.True(t, strings.HasPrefix(out, "graph TD\n"))
	assert.Contains(t, out, `n_r(("root"))`)
	assert.Contains(t, out, `n_a["train"]`)
	assert.Contains(t, out, `n_b["prune"]`)
	assert.Contains(t, out, "n_r --> n_a")
	assert.Contains(t, out, "n_r --> n_b")

	// Unresolved promises render dashed with their status, no edge.
	assert.Contains(t, out, `n_p["failed"]`)
	assert.Contains(t, out, "style n_p stroke-dasharray: 5 5")
	assert.NotContains(t, out, "n_r --> n_p")
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	out := graph.GenerateMermaid(fixtureTree(), &graph.Overlay{Highlight: []string{"a"}})

	assert.Contains(t, out, "style n_a stroke-width:4px")
}

func TestGenerateMermaid_SanitizesIDs(t *testing.T) {
	tree := analysis.FromSnapshot(domain.Snapshot{
		Roots: []string{"run-1/root.v2"},
		Nodes: map[string]*domain.StateNode{
			"run-1/root.v2": {ID: "run-1/root.v2"},
		},
	})
	out := graph.GenerateMermaid(tree, nil)

	assert.Contains(t, out, "n_run_1_root_v2")
	assert.NotContains(t, out, "run-1/root.v2((")
}
