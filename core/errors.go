package core

import (
	"errors"
	"fmt"
)

var (
	ErrNodeNotFound     = errors.New("node not found")
	ErrToolNotFound     = errors.New("tool not found")
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrExecutionFailed  = errors.New("execution failed")
	ErrInvalidEdge      = errors.New("invalid edge configuration")
	ErrInvalidCondition = errors.New("invalid branch condition")
	ErrInvalidState     = errors.New("invalid state value")
	ErrSyntax           = errors.New("syntax error")
)

type GraphError struct {
	Op      string
	Node    string
	Err     error
	Context map[string]any
}

func (e *GraphError) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("%s [node=%s]: %v", e.Op, e.Node, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *GraphError) Unwrap() error {
	return e.Err
}

func NewGraphError(op, node string, err error) *GraphError {
	return &GraphError{Op: op, Node: node, Err: err}
}

func WithContext(err *GraphError, key string, val any) *GraphError {
	if err.Context == nil {
		err.Context = make(map[string]any)
	}
	err.Context[key] = val
	return err
}
