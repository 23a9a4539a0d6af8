package tools

import (
	"context"
	"fmt"

	"github.com/hubenschmidt/go-reviewgraph/core"
	"github.com/hubenschmidt/go-reviewgraph/llm"
)

const llmReviewPrompt = "You are a senior Python reviewer. Point out bugs, risky constructs and " +
	"readability problems in the code you are given. Answer with a short bullet list."

// LLMReview asks a chat model for a free-form review and writes it to
// "llm_review".
type LLMReview struct {
	client llm.Client
	model  string
}

func NewLLMReview(client llm.Client, model string) *LLMReview {
	return &LLMReview{client: client, model: model}
}

func (t *LLMReview) Name() string {
	return "llm_review"
}

func (t *LLMReview) Description() string {
	return "Asks a language model to review state.source"
}

func (t *LLMReview) Execute(ctx context.Context, state core.State) (core.State, error) {
	src, err := sourceFrom(state)
	if err != nil {
		return nil, err
	}
	if src == "" {
		return core.State{"llm_review": ""}, nil
	}
	resp, err := t.client.Chat(ctx, t.model, llmReviewPrompt, src)
	if err != nil {
		return nil, fmt.Errorf("llm review: %w", err)
	}
	return core.State{"llm_review": resp.Content}, nil
}
