package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGraph_DocumentShape(t *testing.T) {
	doc := []byte(`{
		"nodes": {
			"extract": {"fn": "extract_functions"},
			"analyze": {"fn": "code_review"},
			"end": {"fn": null}
		},
		"edges": {"extract": "analyze", "analyze": "end"},
		"branches": {
			"analyze": [
				{"cond": "len(state.get('findings', '')) > 0", "next": "end"},
				{"cond": "else", "next": "end"}
			]
		},
		"start": "extract",
		"max_iterations": 7
	}`)

	g, err := ParseGraph(doc)
	require.NoError(t, err)

	assert.Equal(t, "extract", g.Start)
	assert.Equal(t, 7, g.MaxIterations)
	assert.Equal(t, "extract_functions", g.Nodes["extract"].Fn)
	assert.False(t, g.Nodes["end"].HasTool())
	assert.Equal(t, "analyze", g.Edges["extract"])
	require.Len(t, g.Branches["analyze"], 2)
	assert.True(t, g.Branches["analyze"][1].IsElse())
	assert.False(t, g.Branches["analyze"][0].IsElse())
}

func TestParseGraph_Invalid(t *testing.T) {
	_, err := ParseGraph([]byte(`{"nodes": [}`))
	assert.Error(t, err)
}

func TestIterations_Fallbacks(t *testing.T) {
	g := NewGraphConfig("a")
	assert.Equal(t, 12, g.Iterations(12))
	assert.Equal(t, DefaultMaxIterations, g.Iterations(0))

	g.MaxIterations = 3
	assert.Equal(t, 3, g.Iterations(12))
}

func TestBuilder(t *testing.T) {
	g := NewGraph("extract").
		Node("extract").Tool("extract_functions").Done().
		Node("todos").Tool("find_todos").Done().
		Node("review").Tool("code_review").Terminal().Done().
		Node("end").Done().
		Edge("extract", "todos").
		Branch("todos", "len(state['todos']) > 0", "review").
		Else("todos", "end").
		MaxIterations(10).
		Build()

	assert.Equal(t, "extract", g.Start)
	assert.Equal(t, 10, g.MaxIterations)
	assert.Len(t, g.Nodes, 4)
	assert.True(t, g.Nodes["review"].Terminal)
	assert.Equal(t, []BranchRule{
		{Cond: "len(state['todos']) > 0", Next: "review"},
		{Cond: ElseCondition, Next: "end"},
	}, g.Branches["todos"])
	assert.Equal(t, []string{"code_review", "extract_functions", "find_todos"}, g.Tools())
}

func TestTransitions_StableOrder(t *testing.T) {
	g := NewGraph("a").
		Edge("b", "c").
		Edge("a", "b").
		Branch("a", "state['x'] > 0", "c").
		Build()

	assert.Equal(t, []Transition{
		{From: "a", To: "c", Kind: EdgeBranch, Cond: "state['x'] > 0"},
		{From: "a", To: "b", Kind: EdgeDefault},
		{From: "b", To: "c", Kind: EdgeDefault},
	}, g.Transitions())
	assert.Equal(t, "branch", EdgeBranch.String())
	assert.Equal(t, "edge", EdgeDefault.String())
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.json")
	g := NewGraph("x").Node("x").Tool("find_todos").Done().Build()

	require.NoError(t, g.Save(path))
	loaded, err := LoadGraph(path)
	require.NoError(t, err)
	assert.Equal(t, g.Nodes, loaded.Nodes)
	assert.Equal(t, "x", loaded.Start)
}

func TestAddNode_Constructors(t *testing.T) {
	g := NewGraphConfig("lint").
		AddNode("lint", NewNodeConfig("lint")).
		AddNode("done", NewTerminalNode("")).
		AddEdge("lint", "done")

	lint, ok := g.GetNode("lint")
	require.True(t, ok)
	assert.True(t, lint.HasTool())
	assert.False(t, lint.Terminal)

	done, ok := g.GetNode("done")
	require.True(t, ok)
	assert.False(t, done.HasTool())
	assert.True(t, done.Terminal)

	_, ok = g.GetNode("missing")
	assert.False(t, ok)
}
