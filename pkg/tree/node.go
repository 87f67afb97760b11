// Package tree holds the extraction tree built while walking a project's
// entries. Each page gets a root; every entry visited below it becomes a
// node carrying the content modules extracted for it.
package tree

import (
	"sync"

	"github.com/grovetools/kb/pkg/content"
	"github.com/grovetools/kb/pkg/models"
)

// NodeType categorizes the nodes of the extraction tree.
type NodeType string

const (
	TypeRoot  NodeType = "root"  // One per page
	TypeEntry NodeType = "entry" // An entry as declared or as derived by a preset
)

// Node is one node of the extraction tree.
type Node struct {
	ID    string
	Type  NodeType
	Entry *models.Entry // nil for roots

	// Hierarchy
	Parent   *Node
	Children []*Node

	mu      sync.Mutex
	modules []*content.Module
}

// NewRoot creates the root of a page.
func NewRoot(page string) *Node {
	if page == "" {
		page = models.NoPage
	}
	return &Node{ID: page, Type: TypeRoot}
}

// AddChild appends a node for entry and returns it.
func (n *Node) AddChild(entry *models.Entry) *Node {
	id := entry.ID
	if id == "" {
		id = models.NoID
	}
	child := &Node{ID: id, Type: TypeEntry, Entry: entry, Parent: n}
	n.mu.Lock()
	n.Children = append(n.Children, child)
	n.mu.Unlock()
	return child
}

// AddContent attaches extracted modules to the node.
func (n *Node) AddContent(mods ...*content.Module) {
	n.mu.Lock()
	n.modules = append(n.modules, mods...)
	n.mu.Unlock()
}

// Content returns the modules attached directly to the node.
func (n *Node) Content() []*content.Module {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*content.Module(nil), n.modules...)
}

// Walk visits the node and its descendants depth first, parents before
// children, siblings in insertion order. Returning an error stops the walk.
func (n *Node) Walk(fn func(node *Node, depth int) error) error {
	return n.walk(fn, 0)
}

func (n *Node) walk(fn func(*Node, int) error, depth int) error {
	if err := fn(n, depth); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := c.walk(fn, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// Modules collects every module below the node in walk order.
func (n *Node) Modules() []*content.Module {
	var out []*content.Module
	_ = n.Walk(func(node *Node, _ int) error {
		out = append(out, node.Content()...)
		return nil
	})
	return out
}

// ModuleCount is len(n.Modules()) without the allocation.
func (n *Node) ModuleCount() int {
	count := 0
	_ = n.Walk(func(node *Node, _ int) error {
		node.mu.Lock()
		count += len(node.modules)
		node.mu.Unlock()
		return nil
	})
	return count
}

// Segments returns the ids from the root down to the node.
func (n *Node) Segments() []string {
	var segs []string
	for cur := n; cur != nil; cur = cur.Parent {
		segs = append([]string{cur.ID}, segs...)
	}
	return segs
}
