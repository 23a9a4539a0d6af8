package llm

import (
	"context"
	"time"
)

type Client interface {
	Chat(ctx context.Context, model string, system, user string) (*LLMResponse, error)
}

type ClientConfig struct {
	APIKey       string
	BaseURL      string
	Timeout      time.Duration
	DefaultModel string
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:      60 * time.Second,
		DefaultModel: "gpt-4o-mini",
	}
}
