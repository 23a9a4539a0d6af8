// Package review combines the analysis checks into a single code review
// report with findings and suggestions.
package review

import (
	"context"
	"fmt"

	"github.com/hubenschmidt/go-reviewgraph/analysis"
	"github.com/rs/zerolog"
)

const (
	LongFunctionLines = 80
	HighComplexity    = 10
)

type Report struct {
	SourceHash  string   `json:"source_hash"`
	Summary     string   `json:"summary"`
	Findings    []any    `json:"findings"`
	Suggestions []string `json:"suggestions"`
}

// LintFinding groups every issue reported by one linter run.
type LintFinding struct {
	Linter string               `json:"linter"`
	Issues []analysis.LintIssue `json:"issues"`
}

type Reviewer struct {
	linter *analysis.Linter
	logger zerolog.Logger
}

// NewReviewer creates a reviewer. A nil linter disables lint checks.
func NewReviewer(linter *analysis.Linter, logger zerolog.Logger) *Reviewer {
	return &Reviewer{linter: linter, logger: logger}
}

func (r *Reviewer) Review(ctx context.Context, source string) (Report, error) {
	functions, err := analysis.ExtractFunctions(source)
	if err != nil {
		return Report{}, fmt.Errorf("extract functions: %w", err)
	}
	todos, err := analysis.FindTodosAndPrints(source)
	if err != nil {
		return Report{}, fmt.Errorf("find todos: %w", err)
	}

	findings := make([]any, 0, len(functions)+len(todos)+1)
	suggestions := make([]string, 0)

	for _, f := range functions {
		findings = append(findings, f)
		if f.Length > LongFunctionLines {
			suggestions = append(suggestions, fmt.Sprintf(
				"Consider splitting function '%s' (length %d lines) into smaller, testable functions.",
				f.Name, f.Length))
		}
		if f.Complexity > HighComplexity {
			suggestions = append(suggestions, fmt.Sprintf(
				"Reduce cyclomatic complexity in '%s' (complexity %d, rank %s). Extract helpers or simplify logic.",
				f.Name, f.Complexity, f.Rank))
		}
	}

	for _, todo := range todos {
		findings = append(findings, todo)
		suggestions = append(suggestions, fmt.Sprintf(
			"Address at line %d: '%s'. Consider creating a tracked issue instead of leaving TODOs.",
			todo.Lineno, todo.Message))
	}

	lintIssues := r.lint(ctx, source)
	if len(lintIssues) > 0 {
		findings = append(findings, LintFinding{Linter: r.linter.Command(), Issues: lintIssues})
		suggestions = append(suggestions, "Fix the reported linting issues to improve code quality.")
	}

	if len(functions) == 0 {
		suggestions = append(suggestions,
			"No functions detected; consider modularizing code into functions for testability and reuse.")
	}

	return Report{
		SourceHash:  analysis.SourceHash(source),
		Summary:     buildSummary(functions, todos, lintIssues),
		Findings:    findings,
		Suggestions: suggestions,
	}, nil
}

// lint never fails the review; linter problems are logged and skipped.
func (r *Reviewer) lint(ctx context.Context, source string) []analysis.LintIssue {
	if r.linter == nil {
		return nil
	}
	issues, err := r.linter.Lint(ctx, source)
	if err != nil {
		r.logger.Warn().Err(err).Str("linter", r.linter.Command()).Msg("lint skipped")
		return nil
	}
	return issues
}

func buildSummary(functions []analysis.FunctionInfo, todos []analysis.Finding, lint []analysis.LintIssue) string {
	var avg float64
	if len(functions) > 0 {
		total := 0
		for _, f := range functions {
			total += f.Complexity
		}
		avg = float64(total) / float64(len(functions))
	}
	issues := len(todos) + len(lint)
	return fmt.Sprintf("Analyzed %d functions, avg complexity %.2f, %d TODO/print/lint findings.",
		len(functions), avg, issues)
}
