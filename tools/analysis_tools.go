package tools

import (
	"context"
	"fmt"

	"github.com/hubenschmidt/go-reviewgraph/analysis"
	"github.com/hubenschmidt/go-reviewgraph/core"
	"github.com/hubenschmidt/go-reviewgraph/review"
)

// SourceKey is the state key every analysis tool reads its input from.
const SourceKey = "source"

func sourceFrom(state core.State) (string, error) {
	src, err := state.String(SourceKey)
	if err != nil {
		return "", fmt.Errorf("read source: %w", err)
	}
	return src, nil
}

// ExtractFunctions writes the function inventory to "functions".
type ExtractFunctions struct{}

func NewExtractFunctions() *ExtractFunctions {
	return &ExtractFunctions{}
}

func (t *ExtractFunctions) Name() string {
	return "extract_functions"
}

func (t *ExtractFunctions) Description() string {
	return "Lists functions in state.source with line span, length and cyclomatic complexity"
}

func (t *ExtractFunctions) Execute(ctx context.Context, state core.State) (core.State, error) {
	src, err := sourceFrom(state)
	if err != nil {
		return nil, err
	}
	funcs, err := analysis.ExtractFunctions(src)
	if err != nil {
		return nil, err
	}
	if funcs == nil {
		funcs = []analysis.FunctionInfo{}
	}
	return core.State{"functions": funcs}, nil
}

// FindTodos writes TODO/FIXME lines and print statements to "todos".
type FindTodos struct{}

func NewFindTodos() *FindTodos {
	return &FindTodos{}
}

func (t *FindTodos) Name() string {
	return "find_todos"
}

func (t *FindTodos) Description() string {
	return "Finds TODO/FIXME comments and print statements in state.source"
}

func (t *FindTodos) Execute(ctx context.Context, state core.State) (core.State, error) {
	src, err := sourceFrom(state)
	if err != nil {
		return nil, err
	}
	todos, err := analysis.FindTodosAndPrints(src)
	if err != nil {
		return nil, err
	}
	if todos == nil {
		todos = []analysis.Finding{}
	}
	return core.State{"todos": todos}, nil
}

// CodeReview writes a full review report to "review".
type CodeReview struct {
	reviewer *review.Reviewer
}

func NewCodeReview(reviewer *review.Reviewer) *CodeReview {
	return &CodeReview{reviewer: reviewer}
}

func (t *CodeReview) Name() string {
	return "code_review"
}

func (t *CodeReview) Description() string {
	return "Runs the full review (functions, TODOs, prints, lint) over state.source"
}

func (t *CodeReview) Execute(ctx context.Context, state core.State) (core.State, error) {
	src, err := sourceFrom(state)
	if err != nil {
		return nil, err
	}
	report, err := t.reviewer.Review(ctx, src)
	if err != nil {
		return nil, err
	}
	return core.State{"review": report}, nil
}

// Lint writes linter issues to "lint".
type Lint struct {
	linter *analysis.Linter
}

func NewLint(linter *analysis.Linter) *Lint {
	return &Lint{linter: linter}
}

func (t *Lint) Name() string {
	return "lint"
}

func (t *Lint) Description() string {
	return "Runs the external linter over state.source"
}

func (t *Lint) Execute(ctx context.Context, state core.State) (core.State, error) {
	src, err := sourceFrom(state)
	if err != nil {
		return nil, err
	}
	issues, err := t.linter.Lint(ctx, src)
	if err != nil {
		return nil, err
	}
	if issues == nil {
		issues = []analysis.LintIssue{}
	}
	return core.State{"lint": issues}, nil
}
