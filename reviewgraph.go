// Package reviewgraph runs declarative tool graphs over a shared state
// mapping, with Python code review tools and an HTTP service on top.
//
// Example usage:
//
//	graph := config.NewGraph("extract").
//	    Node("extract").Tool("extract_functions").Done().
//	    Node("todos").Tool("find_todos").Done().
//	    Node("review").Tool("code_review").Done().
//	    Node("end").Done().
//	    Edge("extract", "todos").
//	    Branch("todos", "len(state['todos']) > 0", "review").
//	    Else("todos", "end").
//	    Build()
//
//	registry := tools.NewRegistry()
//	tools.RegisterAnalysisTools(registry, tools.Deps{Reviewer: review.NewReviewer(nil, zerolog.Nop())})
//	eng := engine.NewEngine(engine.EngineConfig{Registry: registry})
//	result := eng.RunGraph(ctx, graph, core.State{"source": src}, nil)
package reviewgraph

import (
	"github.com/hubenschmidt/go-reviewgraph/config"
	"github.com/hubenschmidt/go-reviewgraph/core"
	"github.com/hubenschmidt/go-reviewgraph/engine"
	"github.com/hubenschmidt/go-reviewgraph/monitor"
	"github.com/hubenschmidt/go-reviewgraph/server"
	"github.com/hubenschmidt/go-reviewgraph/tools"
)

// Builder aliases
type (
	GraphBuilder = config.GraphBuilder
	NodeBuilder  = config.NodeBuilder
	GraphConfig  = config.GraphConfig
)

// NewGraph creates a new graph builder starting at start.
func NewGraph(start string) *GraphBuilder {
	return config.NewGraph(start)
}

// Engine aliases
type (
	Engine       = engine.Engine
	EngineConfig = engine.EngineConfig
	Result       = engine.Result
	LogEntry     = engine.LogEntry
	StepFunc     = engine.StepFunc
)

// NewEngine creates a new graph execution engine.
func NewEngine(cfg EngineConfig) *Engine {
	return engine.NewEngine(cfg)
}

// Tool aliases
type (
	Tool         = tools.Tool
	ToolRegistry = tools.Registry
)

// RegisterTool registers a tool with the default registry.
func RegisterTool(t Tool) {
	tools.Register(t)
}

// GetTool retrieves a tool from the default registry.
func GetTool(name string) (Tool, bool) {
	return tools.Get(name)
}

// Core type aliases
type (
	State      = core.State
	GraphError = core.GraphError
)

// Monitor aliases
type (
	MetricsCollector  = monitor.MetricsCollector
	InMemoryCollector = monitor.InMemoryCollector
)

// NewInMemoryCollector creates a new in-memory metrics collector.
func NewInMemoryCollector() *InMemoryCollector {
	return monitor.NewInMemoryCollector()
}

// Server aliases
type (
	Server       = server.Server
	ServerConfig = server.Config
)

// NewServer creates a new API server.
func NewServer(cfg ServerConfig) (*Server, error) {
	return server.New(cfg)
}
