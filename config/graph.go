package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// GraphConfig is the declarative graph document. It is treated as immutable
// once handed to the engine.
type GraphConfig struct {
	Nodes         map[string]NodeConfig   `json:"nodes"`
	Edges         map[string]string       `json:"edges,omitempty"`
	Branches      map[string][]BranchRule `json:"branches,omitempty"`
	Start         string                  `json:"start"`
	MaxIterations int                     `json:"max_iterations,omitempty"`
}

func NewGraphConfig(start string) *GraphConfig {
	return &GraphConfig{
		Nodes:    make(map[string]NodeConfig),
		Edges:    make(map[string]string),
		Branches: make(map[string][]BranchRule),
		Start:    start,
	}
}

func (g *GraphConfig) AddNode(name string, node NodeConfig) *GraphConfig {
	if g.Nodes == nil {
		g.Nodes = make(map[string]NodeConfig)
	}
	g.Nodes[name] = node
	return g
}

func (g *GraphConfig) AddEdge(from, to string) *GraphConfig {
	if g.Edges == nil {
		g.Edges = make(map[string]string)
	}
	g.Edges[from] = to
	return g
}

func (g *GraphConfig) AddBranch(from, cond, next string) *GraphConfig {
	if g.Branches == nil {
		g.Branches = make(map[string][]BranchRule)
	}
	g.Branches[from] = append(g.Branches[from], BranchRule{Cond: cond, Next: next})
	return g
}

func (g *GraphConfig) GetNode(name string) (NodeConfig, bool) {
	n, ok := g.Nodes[name]
	return n, ok
}

// Iterations returns the graph's iteration cap, or fallback when unset.
func (g *GraphConfig) Iterations(fallback int) int {
	if g.MaxIterations > 0 {
		return g.MaxIterations
	}
	if fallback > 0 {
		return fallback
	}
	return DefaultMaxIterations
}

// Transitions lists every outgoing reference in a stable order: nodes sorted
// by name, branch rules in declared order, then the default edge.
func (g *GraphConfig) Transitions() []Transition {
	from := make(map[string]struct{})
	for name := range g.Edges {
		from[name] = struct{}{}
	}
	for name := range g.Branches {
		from[name] = struct{}{}
	}
	names := make([]string, 0, len(from))
	for name := range from {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []Transition
	for _, name := range names {
		for _, rule := range g.Branches[name] {
			out = append(out, Transition{From: name, To: rule.Next, Kind: EdgeBranch, Cond: rule.Cond})
		}
		if to, ok := g.Edges[name]; ok {
			out = append(out, Transition{From: name, To: to, Kind: EdgeDefault})
		}
	}
	return out
}

// Tools returns the distinct tool names referenced by the graph, sorted.
func (g *GraphConfig) Tools() []string {
	seen := make(map[string]struct{})
	for _, n := range g.Nodes {
		if n.HasTool() {
			seen[n.Fn] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (g *GraphConfig) ToJSON() ([]byte, error) {
	return json.MarshalIndent(g, "", "  ")
}

func ParseGraph(data []byte) (*GraphConfig, error) {
	var cfg GraphConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse graph: %w", err)
	}
	return &cfg, nil
}

func LoadGraph(path string) (*GraphConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseGraph(data)
}

func (g *GraphConfig) Save(path string) error {
	data, err := g.ToJSON()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
