package tools

import (
	"github.com/hubenschmidt/go-reviewgraph/analysis"
	"github.com/hubenschmidt/go-reviewgraph/llm"
	"github.com/hubenschmidt/go-reviewgraph/review"
)

type Deps struct {
	Reviewer *review.Reviewer
	Linter   *analysis.Linter
	LLM      llm.Client // optional; llm_review is only registered when set
	LLMModel string
}

// RegisterAnalysisTools installs the review tool set into r.
func RegisterAnalysisTools(r *Registry, deps Deps) {
	r.Register(NewExtractFunctions())
	r.Register(NewFindTodos())
	if deps.Reviewer != nil {
		r.Register(NewCodeReview(deps.Reviewer))
	}
	if deps.Linter != nil {
		r.Register(NewLint(deps.Linter))
	}
	if deps.LLM != nil {
		r.Register(NewLLMReview(deps.LLM, deps.LLMModel))
	}
}
