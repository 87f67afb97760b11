package tree

import (
	"gopkg.in/yaml.v3"
)

// ModuleSummary describes one content module in an outline.
type ModuleSummary struct {
	Title  string `yaml:"title"`
	Kind   string `yaml:"kind"`
	Size   int    `yaml:"size"`
	Cached bool   `yaml:"cached,omitempty"`
}

// Outline is a serializable view of a node and its descendants.
type Outline struct {
	ID       string          `yaml:"id"`
	Modules  []ModuleSummary `yaml:"modules,omitempty"`
	Children []Outline       `yaml:"children,omitempty"`
}

// Outline summarizes the subtree rooted at n.
func (n *Node) Outline() Outline {
	o := Outline{ID: n.ID}
	for _, m := range n.Content() {
		o.Modules = append(o.Modules, ModuleSummary{
			Title:  m.DisplayTitle(),
			Kind:   string(m.Kind()),
			Size:   len(m.SourceText()),
			Cached: m.Cached(),
		})
	}
	for _, c := range n.Children {
		o.Children = append(o.Children, c.Outline())
	}
	return o
}

// MarshalOutlines renders the outlines of several roots as a YAML list.
func MarshalOutlines(roots []*Node) ([]byte, error) {
	outlines := make([]Outline, 0, len(roots))
	for _, r := range roots {
		outlines = append(outlines, r.Outline())
	}
	return yaml.Marshal(outlines)
}
