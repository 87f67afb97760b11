package tree

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/grovetools/kb/pkg/content"
	"github.com/grovetools/kb/pkg/models"
)

func sample() (*Node, *Node, *Node) {
	root := NewRoot("")
	a := root.AddChild(&models.Entry{ID: "a"})
	b := root.AddChild(&models.Entry{})
	b1 := b.AddChild(&models.Entry{ID: "b1"})
	a.AddContent(content.New(a.Entry, content.KindMarkdown, "alpha", "A"))
	b1.AddContent(
		content.New(b1.Entry, content.KindCode, "x", ""),
		content.New(b1.Entry, content.KindHTML, "<p>y</p>", "Y"),
	)
	return root, a, b1
}

func TestTreeStructure(t *testing.T) {
	root, _, b1 := sample()

	assert.Equal(t, models.NoPage, root.ID)
	assert.Equal(t, TypeRoot, root.Type)
	require.Len(t, root.Children, 2)
	assert.Equal(t, models.NoID, root.Children[1].ID)
	assert.Equal(t, []string{models.NoPage, models.NoID, "b1"}, b1.Segments())
	assert.Equal(t, 3, root.ModuleCount())

	var texts []string
	for _, m := range root.Modules() {
		texts = append(texts, m.SourceText())
	}
	assert.Equal(t, []string{"alpha", "x", "<p>y</p>"}, texts)
}

func TestWalkOrderAndStop(t *testing.T) {
	root, _, _ := sample()

	var visited []string
	var depths []int
	require.NoError(t, root.Walk(func(n *Node, depth int) error {
		visited = append(visited, n.ID)
		depths = append(depths, depth)
		return nil
	}))
	assert.Equal(t, []string{models.NoPage, "a", models.NoID, "b1"}, visited)
	assert.Equal(t, []int{0, 1, 1, 2}, depths)

	stop := errors.New("stop")
	count := 0
	err := root.Walk(func(n *Node, _ int) error {
		count++
		if n.ID == "a" {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 2, count)
}

func TestOutline(t *testing.T) {
	root, _, _ := sample()
	data, err := MarshalOutlines([]*Node{root})
	require.NoError(t, err)

	var got []Outline
	require.NoError(t, yaml.Unmarshal(data, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Children[0].ID)
	assert.Equal(t, ModuleSummary{Title: "A", Kind: "markdown", Size: 5}, got[0].Children[0].Modules[0])
	assert.Len(t, got[0].Children[1].Children[0].Modules, 2)
}
