package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hubenschmidt/go-reviewgraph/config"
	"github.com/hubenschmidt/go-reviewgraph/core"
	"github.com/hubenschmidt/go-reviewgraph/monitor"
	"github.com/hubenschmidt/go-reviewgraph/tools"
)

// Engine interprets graph definitions. It holds no per-run state, so a
// single Engine serves concurrent runs.
type Engine struct {
	registry      *tools.Registry
	collector     monitor.MetricsCollector
	logger        zerolog.Logger
	maxIterations int
}

type EngineConfig struct {
	Registry      *tools.Registry
	Collector     monitor.MetricsCollector
	Logger        *zerolog.Logger
	MaxIterations int
}

func NewEngine(cfg EngineConfig) *Engine {
	registry := cfg.Registry
	if registry == nil {
		registry = tools.DefaultRegistry
	}

	collector := cfg.Collector
	if collector == nil {
		collector = monitor.NewNoOpCollector()
	}

	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	maxIterations := cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = config.DefaultMaxIterations
	}

	return &Engine{
		registry:      registry,
		collector:     collector,
		logger:        logger.With().Str("component", "engine").Logger(),
		maxIterations: maxIterations,
	}
}

func (e *Engine) Registry() *tools.Registry {
	return e.registry
}

// Validate checks graph against the engine's registry.
func (e *Engine) Validate(graph *config.GraphConfig) []error {
	return Validate(graph, e.registry)
}

// RunGraph executes graph from its start node until no successor remains, a
// terminal node finishes, a step fails, or the iteration cap is reached.
// Failures are reported in the log, never as an error. initial is not
// modified.
func (e *Engine) RunGraph(ctx context.Context, graph *config.GraphConfig, initial core.State, step StepFunc) Result {
	prog := Compile(graph, e.registry, e.maxIterations)
	return e.Run(ctx, prog, initial, step)
}

// Run executes an already compiled program.
func (e *Engine) Run(ctx context.Context, prog *Program, initial core.State, step StepFunc) Result {
	state := initial.Clone()
	logs := make([]LogEntry, 0)
	node := prog.start
	iterations := 0
	reason := StopNoSuccessor

	for node != "" {
		if iterations >= prog.maxIterations {
			reason = StopIterationLimit
			break
		}
		iterations++

		bound, ok := prog.nodes[node]
		if !ok {
			e.logger.Warn().Str("node", node).Int("iteration", iterations).Msg("node not found")
			logs = append(logs, LogEntry{Node: node, Error: NodeNotFoundMessage})
			reason = StopNodeNotFound
			break
		}

		logs = append(logs, LogEntry{Event: EventStart, Node: node, Fn: bound.fn, Iteration: iterations})
		e.logger.Debug().Str("node", node).Str("fn", bound.fn).Int("iteration", iterations).Msg("node start")
		e.notify(step, fmt.Sprintf("node:%s fn:%s", node, bound.fn))

		update, err := e.invoke(ctx, node, bound, state)
		if err != nil {
			e.logger.Warn().Err(err).Str("node", node).Str("fn", bound.fn).Msg("node failed")
			logs = append(logs, LogEntry{Event: EventError, Node: node, Error: err.Error()})
			reason = StopToolError
			break
		}

		state.Merge(update)
		logs = append(logs, LogEntry{Event: EventEnd, Node: node, Result: update})

		if bound.terminal {
			reason = StopTerminal
			break
		}
		node = prog.successor(node, state)
		reason = StopNoSuccessor
	}

	e.logger.Debug().
		Int("iterations", iterations).
		Str("stop_reason", string(reason)).
		Msg("run finished")

	return Result{
		State:      state,
		Logs:       logs,
		Iterations: iterations,
		StopReason: reason,
	}
}

func (e *Engine) invoke(ctx context.Context, node string, bound boundNode, state core.State) (core.State, error) {
	if bound.fn == "" {
		return nil, nil
	}
	if bound.tool == nil {
		return nil, fmt.Errorf("%w: %q", core.ErrToolNotFound, bound.fn)
	}

	start := time.Now()
	update, err := callTool(ctx, bound.tool, state.Clone())

	m := monitor.NodeMetrics{
		NodeID:   node,
		Tool:     bound.fn,
		Duration: time.Since(start),
		Success:  err == nil,
	}
	if err != nil {
		m.Error = err.Error()
	}
	e.collector.Record(m)

	if err != nil {
		return nil, err
	}
	if update == nil {
		return nil, nil
	}
	return update.Clone(), nil
}

func callTool(ctx context.Context, tool tools.Tool, state core.State) (update core.State, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: tool %q panicked: %v", core.ErrExecutionFailed, tool.Name(), r)
		}
	}()
	return tool.Execute(ctx, state)
}

func (e *Engine) notify(step StepFunc, msg string) {
	if step == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Debug().Interface("panic", r).Msg("step callback panicked")
		}
	}()
	if err := step(msg); err != nil {
		e.logger.Debug().Err(err).Msg("step callback failed")
	}
}
