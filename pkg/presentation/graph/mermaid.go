// Package graph renders experiment trees for human inspection. It consumes
// only the read-only traversal API of pkg/analysis.
package graph

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/aretw0/stemma/pkg/analysis"
	"github.com/aretw0/stemma/pkg/domain"
)

// Overlay contains dynamic state to highlight on the rendered graph.
type Overlay struct {
	// Highlight marks nodes of interest (e.g. a filter result).
	Highlight []string
}

// GenerateMermaid produces a Mermaid flowchart from a static analysis tree.
// Semantic styling:
//   - Roots: ((Circle))
//   - Recipe results: [Rectangle] labeled with the operator name
//   - Unresolved promises: dashed, annotated with their status
func GenerateMermaid(tree *analysis.Tree, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	tree.Walk(func(node *domain.StateNode) bool {
		safeID := sanitizeMermaidID(node.ID)

		label := node.Operator
		if label == "" {
			label = "root"
		}

		opener, closer := "[", "]"
		if node.Root() {
			opener, closer = "((", "))"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, label, closer))

		for _, child := range tree.Children(node.ID) {
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", safeID, sanitizeMermaidID(child.ID)))
		}
		return true
	})

	incomplete := tree.Incomplete()
	for _, id := range slices.Sorted(maps.Keys(incomplete)) {
		safeID := sanitizeMermaidID(id)
		sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", safeID, incomplete[id]))
		sb.WriteString(fmt.Sprintf("    style %s stroke-dasharray: 5 5\n", safeID))
	}

	if overlay != nil {
		for _, id := range overlay.Highlight {
			sb.WriteString(fmt.Sprintf("    style %s stroke-width:4px\n", sanitizeMermaidID(id)))
		}
	}

	return sb.String()
}

// sanitizeMermaidID strips characters Mermaid treats as syntax.
func sanitizeMermaidID(id string) string {
	replacer := strings.NewReplacer("-", "_", " ", "_", "/", "_", ".", "_")
	return "n_" + replacer.Replace(id)
}
