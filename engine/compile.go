package engine

import (
	"fmt"
	"sort"

	"github.com/hubenschmidt/go-reviewgraph/config"
	"github.com/hubenschmidt/go-reviewgraph/core"
	"github.com/hubenschmidt/go-reviewgraph/tools"
)

// Program is a graph prepared for execution: tools resolved against a
// registry and branch conditions parsed. Resolution failures are kept and
// surface when the affected step runs.
type Program struct {
	start         string
	maxIterations int
	nodes         map[string]boundNode
	edges         map[string]string
	branches      map[string][]boundRule
}

type boundNode struct {
	fn       string
	tool     tools.Tool
	terminal bool
}

type boundRule struct {
	next   string
	always bool
	cond   *Condition
}

// matches never fails: a rule whose condition did not parse or errors
// against the current state is treated as not matching.
func (r boundRule) matches(state core.State) bool {
	if r.always {
		return true
	}
	if r.cond == nil {
		return false
	}
	ok, err := r.cond.Eval(state)
	return err == nil && ok
}

// Compile prepares graph for a run. fallbackIterations applies when the
// graph sets no cap of its own. A nil graph compiles to an empty program.
func Compile(graph *config.GraphConfig, registry *tools.Registry, fallbackIterations int) *Program {
	if graph == nil {
		graph = &config.GraphConfig{}
	}
	p := &Program{
		start:         graph.Start,
		maxIterations: graph.Iterations(fallbackIterations),
		nodes:         make(map[string]boundNode, len(graph.Nodes)),
		edges:         make(map[string]string, len(graph.Edges)),
		branches:      make(map[string][]boundRule, len(graph.Branches)),
	}

	for name, n := range graph.Nodes {
		bn := boundNode{fn: n.Fn, terminal: n.Terminal}
		if n.HasTool() && registry != nil {
			bn.tool, _ = registry.Get(n.Fn)
		}
		p.nodes[name] = bn
	}
	for from, to := range graph.Edges {
		p.edges[from] = to
	}
	for from, rules := range graph.Branches {
		bound := make([]boundRule, len(rules))
		for i, rule := range rules {
			bound[i] = bindRule(rule)
		}
		p.branches[from] = bound
	}
	return p
}

func bindRule(rule config.BranchRule) boundRule {
	if rule.IsElse() {
		return boundRule{next: rule.Next, always: true}
	}
	// Validate reports parse failures; here they leave cond nil.
	cond, _ := ParseCondition(rule.Cond)
	return boundRule{next: rule.Next, cond: cond}
}

func (p *Program) MaxIterations() int {
	return p.maxIterations
}

// successor picks the next node: the first matching branch rule, then the
// default edge. An empty result ends the run.
func (p *Program) successor(node string, state core.State) string {
	for _, rule := range p.branches[node] {
		if rule.matches(state) {
			return rule.next
		}
	}
	return p.edges[node]
}

// Validate checks graph up front and returns every problem found, in a
// stable order. A nil or empty result means the graph is well formed. The
// engine itself never requires validation.
func Validate(graph *config.GraphConfig, registry *tools.Registry) []error {
	if graph == nil {
		return []error{fmt.Errorf("%w: graph is nil", core.ErrInvalidConfig)}
	}

	var errs []error
	if len(graph.Nodes) == 0 {
		errs = append(errs, fmt.Errorf("%w: graph has no nodes", core.ErrInvalidConfig))
	}
	if graph.MaxIterations < 0 {
		errs = append(errs, fmt.Errorf("%w: max_iterations must not be negative, got %d", core.ErrInvalidConfig, graph.MaxIterations))
	}
	if graph.Start == "" {
		errs = append(errs, fmt.Errorf("%w: start node is empty", core.ErrNodeNotFound))
	} else if _, ok := graph.Nodes[graph.Start]; !ok {
		errs = append(errs, fmt.Errorf("%w: start node %q", core.ErrNodeNotFound, graph.Start))
	}

	names := make([]string, 0, len(graph.Nodes))
	for name := range graph.Nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		n := graph.Nodes[name]
		if !n.HasTool() {
			continue
		}
		if registry == nil {
			errs = append(errs, fmt.Errorf("%w: node %q uses %q but no registry is configured", core.ErrToolNotFound, name, n.Fn))
			continue
		}
		if _, ok := registry.Get(n.Fn); !ok {
			errs = append(errs, fmt.Errorf("%w: node %q uses %q", core.ErrToolNotFound, name, n.Fn))
		}
	}

	for _, t := range graph.Transitions() {
		if _, ok := graph.Nodes[t.From]; !ok {
			errs = append(errs, fmt.Errorf("%w: %s from undefined node %q", core.ErrInvalidEdge, t.Kind, t.From))
		}
		if t.To != "" {
			if _, ok := graph.Nodes[t.To]; !ok {
				errs = append(errs, fmt.Errorf("%w: %s %q -> %q targets an undefined node; declare it, e.g. \"%s\": {\"fn\": null}",
					core.ErrInvalidEdge, t.Kind, t.From, t.To, t.To))
			}
		}
		if t.Kind == config.EdgeBranch && t.Cond != config.ElseCondition {
			if _, err := ParseCondition(t.Cond); err != nil {
				errs = append(errs, fmt.Errorf("branch from %q: %w", t.From, err))
			}
		}
	}
	return errs
}
