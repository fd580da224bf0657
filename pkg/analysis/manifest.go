package analysis

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/stemma/pkg/domain"
)

// Manifest is a serializable provenance report of an experiment tree. It
// carries structure and operator metadata only, never the opaque payloads.
type Manifest struct {
	Nodes      []ManifestNode `yaml:"nodes"`
	Incomplete []ManifestGap  `yaml:"incomplete,omitempty"`
}

// ManifestNode describes one realized state node.
type ManifestNode struct {
	ID       string         `yaml:"id"`
	Parent   string         `yaml:"parent,omitempty"`
	Operator string         `yaml:"operator,omitempty"`
	Params   map[string]any `yaml:"params,omitempty"`
	Children []string       `yaml:"children,omitempty"`
}

// ManifestGap describes an unresolved promise.
type ManifestGap struct {
	ID     string        `yaml:"id"`
	Status domain.Status `yaml:"status"`
}

// Manifest builds the provenance report for the tree, nodes in pre-order.
func (t *Tree) Manifest() *Manifest {
	m := &Manifest{}
	t.Walk(func(n *domain.StateNode) bool {
		mn := ManifestNode{
			ID:       n.ID,
			Parent:   n.ParentID,
			Operator: n.Operator,
			Params:   n.Params,
		}
		for _, c := range t.Children(n.ID) {
			mn.Children = append(mn.Children, c.ID)
		}
		m.Nodes = append(m.Nodes, mn)
		return true
	})
	for _, id := range slices.Sorted(maps.Keys(t.incomplete)) {
		m.Incomplete = append(m.Incomplete, ManifestGap{ID: id, Status: t.incomplete[id]})
	}
	return m
}

// Encode writes the manifest as YAML.
func (m *Manifest) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	return enc.Close()
}
