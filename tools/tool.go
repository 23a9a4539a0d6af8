package tools

import (
	"context"

	"github.com/hubenschmidt/go-reviewgraph/core"
)

// Tool is a named operation over run state. Execute receives a copy of the
// working state and returns only the keys it wants to add or overwrite; a
// nil map means no update.
type Tool interface {
	Name() string
	Description() string
	Execute(ctx context.Context, state core.State) (core.State, error)
}

type Info struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func ToInfo(t Tool) Info {
	return Info{
		Name:        t.Name(),
		Description: t.Description(),
	}
}

func ToInfos(tools []Tool) []Info {
	infos := make([]Info, len(tools))
	for i, t := range tools {
		infos[i] = ToInfo(t)
	}
	return infos
}

// Func adapts a plain function into a Tool.
type Func struct {
	name        string
	description string
	fn          func(ctx context.Context, state core.State) (core.State, error)
}

func NewFunc(name, description string, fn func(ctx context.Context, state core.State) (core.State, error)) *Func {
	return &Func{name: name, description: description, fn: fn}
}

func (f *Func) Name() string {
	return f.name
}

func (f *Func) Description() string {
	return f.description
}

func (f *Func) Execute(ctx context.Context, state core.State) (core.State, error) {
	return f.fn(ctx, state)
}
