// Package pipelines provides ready-made review graphs.
package pipelines

import (
	"github.com/hubenschmidt/go-reviewgraph/config"
)

// Template is a named graph offered to API clients as a starting point.
type Template struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Graph       *config.GraphConfig `json:"graph"`
}

// ReviewGraph extracts functions, runs the full code review, then stops at
// a tool-less end node.
func ReviewGraph() *config.GraphConfig {
	return config.NewGraph("extract").
		Node("extract").Tool("extract_functions").Done().
		Node("review").Tool("code_review").Done().
		Node("end").Done().
		Edge("extract", "review").
		Edge("review", "end").
		MaxIterations(10).
		Build()
}

// TriageGraph only runs the full review when the source has TODO or print
// findings.
func TriageGraph() *config.GraphConfig {
	return config.NewGraph("extract").
		Node("extract").Tool("extract_functions").Done().
		Node("todos").Tool("find_todos").Done().
		Node("review").Tool("code_review").Done().
		Node("end").Done().
		Edge("extract", "todos").
		Branch("todos", "len(state['todos']) > 0", "review").
		Else("todos", "end").
		Edge("review", "end").
		MaxIterations(10).
		Build()
}

// LintGraph runs the external linter and escalates to the full review when
// it reports issues.
func LintGraph() *config.GraphConfig {
	return config.NewGraph("lint").
		Node("lint").Tool("lint").Done().
		Node("review").Tool("code_review").Terminal().Done().
		Node("clean").Terminal().Done().
		Branch("lint", "state.get('lint')", "review").
		Else("lint", "clean").
		MaxIterations(5).
		Build()
}

func Templates() []Template {
	return []Template{
		{
			ID:          "review",
			Name:        "Code Review",
			Description: "Extract functions, then produce a full review",
			Graph:       ReviewGraph(),
		},
		{
			ID:          "triage",
			Name:        "TODO Triage",
			Description: "Review only sources that carry TODO/FIXME or print findings",
			Graph:       TriageGraph(),
		},
		{
			ID:          "lint",
			Name:        "Lint Gate",
			Description: "Run the linter and review when it reports issues",
			Graph:       LintGraph(),
		},
	}
}
