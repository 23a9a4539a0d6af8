package engine

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hubenschmidt/go-reviewgraph/analysis"
	"github.com/hubenschmidt/go-reviewgraph/config"
	"github.com/hubenschmidt/go-reviewgraph/core"
	"github.com/hubenschmidt/go-reviewgraph/monitor"
	"github.com/hubenschmidt/go-reviewgraph/review"
	"github.com/hubenschmidt/go-reviewgraph/tools"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setTool(name string, update core.State) tools.Tool {
	return tools.NewFunc(name, "sets fixed keys", func(context.Context, core.State) (core.State, error) {
		return update, nil
	})
}

func newTestEngine(ts ...tools.Tool) (*Engine, *monitor.InMemoryCollector) {
	r := tools.NewRegistry()
	for _, t := range ts {
		r.Register(t)
	}
	c := monitor.NewInMemoryCollector()
	return NewEngine(EngineConfig{Registry: r, Collector: c}), c
}

func TestRunGraph_EndToEndReview(t *testing.T) {
	r := tools.NewRegistry()
	tools.RegisterAnalysisTools(r, tools.Deps{Reviewer: review.NewReviewer(nil, zerolog.Nop())})
	e := NewEngine(EngineConfig{Registry: r})

	graph := config.NewGraph("extract").
		Node("extract").Tool("extract_functions").Done().
		Node("review").Tool("code_review").Done().
		Node("end").Done().
		Edge("extract", "review").
		Edge("review", "end").
		Build()

	source := "def f(x):\n    if x:\n        return 1\n    return 0\n"
	res := e.RunGraph(context.Background(), graph, core.State{"source": source}, nil)

	require.Contains(t, res.State, "functions")
	require.Contains(t, res.State, "review")
	funcs := res.State["functions"].([]analysis.FunctionInfo)
	require.Len(t, funcs, 1)
	assert.Equal(t, 2, funcs[0].Complexity)

	require.Len(t, res.Logs, 6)
	assert.Equal(t, LogEntry{Event: EventStart, Node: "end", Iteration: 3}, res.Logs[4])
	assert.Equal(t, LogEntry{Event: EventEnd, Node: "end"}, res.Logs[5])
	assert.Equal(t, 3, res.Iterations)
	assert.Equal(t, OutcomeCompleted, res.Outcome())
	assert.False(t, res.Failed())
}

func TestRunGraph_DoesNotMutateInitialState(t *testing.T) {
	e, _ := newTestEngine(setTool("set", core.State{"a": 2, "b": 1}))
	graph := config.NewGraph("n").Node("n").Tool("set").Done().Build()

	initial := core.State{"a": 1}
	res := e.RunGraph(context.Background(), graph, initial, nil)

	assert.Equal(t, core.State{"a": 1}, initial)
	assert.Equal(t, core.State{"a": 2, "b": 1}, res.State)
}

func TestRunGraph_ShallowMergeLastWriteWins(t *testing.T) {
	e, _ := newTestEngine(
		setTool("first", core.State{"k": "one", "cfg": map[string]any{"a": 1}}),
		setTool("second", core.State{"k": "two", "cfg": map[string]any{"b": 2}}),
	)
	graph := config.NewGraph("a").
		Node("a").Tool("first").Done().
		Node("b").Tool("second").Done().
		Edge("a", "b").
		Build()

	res := e.RunGraph(context.Background(), graph, core.State{"keep": true}, nil)

	assert.Equal(t, core.State{
		"keep": true,
		"k":    "two",
		"cfg":  map[string]any{"b": 2},
	}, res.State)
}

func TestRunGraph_Deterministic(t *testing.T) {
	e, _ := newTestEngine(setTool("x", core.State{"x": 5}))
	graph := config.NewGraph("s").
		Node("s").Tool("x").Done().
		Node("a").Done().
		Node("b").Done().
		Branch("s", "state['x'] > 0", "a").
		Else("s", "b").
		Build()

	first := e.RunGraph(context.Background(), graph, core.State{"n": 1}, nil)
	second := e.RunGraph(context.Background(), graph, core.State{"n": 1}, nil)

	assert.Equal(t, first, second)
	j1, err := json.Marshal(first)
	require.NoError(t, err)
	j2, err := json.Marshal(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(j1), string(j2))
}

func TestRunGraph_BranchTieBreak(t *testing.T) {
	e, _ := newTestEngine()
	graph := config.NewGraph("s").
		Node("s").Done().
		Node("A").Done().
		Node("B").Done().
		Branch("s", "state['x'] > 0", "A").
		Else("s", "B").
		Build()

	res := e.RunGraph(context.Background(), graph, core.State{"x": 5}, nil)
	assert.Equal(t, "A", res.Logs[len(res.Logs)-1].Node)

	res = e.RunGraph(context.Background(), graph, core.State{"x": -1}, nil)
	assert.Equal(t, "B", res.Logs[len(res.Logs)-1].Node)
}

func TestRunGraph_FirstMatchingRuleWins(t *testing.T) {
	e, _ := newTestEngine()
	graph := config.NewGraph("s").
		Node("s").Done().
		Node("A").Done().
		Node("B").Done().
		Branch("s", "state['x'] > 0", "A").
		Branch("s", "state['x'] > 1", "B").
		Build()

	res := e.RunGraph(context.Background(), graph, core.State{"x": 5}, nil)
	assert.Equal(t, "A", res.Logs[len(res.Logs)-1].Node)
}

func TestRunGraph_FailingConditionIsSkipped(t *testing.T) {
	e, _ := newTestEngine()
	graph := config.NewGraph("s").
		Node("s").Done().
		Node("A").Done().
		Node("B").Done().
		Node("C").Done().
		Branch("s", "state['missing'] > 0", "A").
		Branch("s", "this is not valid", "A").
		Branch("s", "state['x'] == 1", "B").
		Edge("s", "C").
		Build()

	res := e.RunGraph(context.Background(), graph, core.State{"x": 1}, nil)
	assert.Equal(t, "B", res.Logs[len(res.Logs)-1].Node)
	assert.False(t, res.Failed())

	res = e.RunGraph(context.Background(), graph, core.State{"x": 2}, nil)
	assert.Equal(t, "C", res.Logs[len(res.Logs)-1].Node)
}

func TestRunGraph_IterationCap(t *testing.T) {
	e, _ := newTestEngine()
	graph := config.NewGraph("a").
		Node("a").Done().
		Node("b").Done().
		Edge("a", "b").
		Edge("b", "a").
		MaxIterations(3).
		Build()

	res := e.RunGraph(context.Background(), graph, nil, nil)

	assert.Equal(t, 3, res.Iterations)
	assert.Len(t, res.Logs, 6)
	assert.Equal(t, StopIterationLimit, res.StopReason)
	assert.Equal(t, OutcomeIterationLimit, res.Outcome())
}

func TestRunGraph_DefaultIterationCap(t *testing.T) {
	e, _ := newTestEngine()
	graph := config.NewGraph("loop").Node("loop").Done().Edge("loop", "loop").Build()

	res := e.RunGraph(context.Background(), graph, nil, nil)
	assert.Equal(t, config.DefaultMaxIterations, res.Iterations)
}

func TestRunGraph_EngineIterationCapApplies(t *testing.T) {
	e := NewEngine(EngineConfig{Registry: tools.NewRegistry(), MaxIterations: 4})
	graph := config.NewGraph("loop").Node("loop").Done().Edge("loop", "loop").Build()

	res := e.RunGraph(context.Background(), graph, nil, nil)
	assert.Equal(t, 4, res.Iterations)
}

func TestRunGraph_MissingStartNode(t *testing.T) {
	e, _ := newTestEngine()
	graph := config.NewGraph("ghost").Node("real").Done().Build()

	res := e.RunGraph(context.Background(), graph, core.State{"a": 1}, nil)

	require.Len(t, res.Logs, 1)
	assert.Equal(t, LogEntry{Node: "ghost", Error: NodeNotFoundMessage}, res.Logs[0])
	assert.Equal(t, core.State{"a": 1}, res.State)
	assert.Equal(t, 1, res.Iterations)
	assert.True(t, res.Failed())
	assert.Equal(t, OutcomeFailed, res.Outcome())
}

func TestRunGraph_EdgeToUndefinedNode(t *testing.T) {
	e, _ := newTestEngine()
	graph := config.NewGraph("a").Node("a").Done().Edge("a", "nowhere").Build()

	res := e.RunGraph(context.Background(), graph, nil, nil)

	require.Len(t, res.Logs, 3)
	assert.Equal(t, "nowhere", res.Logs[2].Node)
	assert.Equal(t, StopNodeNotFound, res.StopReason)
}

func TestRunGraph_ToolErrorHalts(t *testing.T) {
	boom := tools.NewFunc("boom", "fails", func(context.Context, core.State) (core.State, error) {
		return core.State{"partial": true}, errors.New("kaput")
	})
	e, c := newTestEngine(setTool("ok", core.State{"ok": true}), boom)
	graph := config.NewGraph("a").
		Node("a").Tool("ok").Done().
		Node("b").Tool("boom").Done().
		Node("c").Tool("ok").Done().
		Edge("a", "b").
		Edge("b", "c").
		Build()

	res := e.RunGraph(context.Background(), graph, nil, nil)

	require.Len(t, res.Logs, 4)
	assert.Equal(t, LogEntry{Event: EventError, Node: "b", Error: "kaput"}, res.Logs[3])
	assert.Equal(t, core.State{"ok": true}, res.State)
	assert.Equal(t, 2, res.Iterations)
	assert.True(t, res.Failed())

	summary := c.Flush()
	assert.Equal(t, 2, summary.TotalCalls)
	assert.Equal(t, 1, summary.TotalFailures)
	assert.Equal(t, "kaput", summary.Tools["boom"].LastError)
}

func TestRunGraph_ToolPanicBecomesError(t *testing.T) {
	panicky := tools.NewFunc("panicky", "panics", func(context.Context, core.State) (core.State, error) {
		panic("oh no")
	})
	e, _ := newTestEngine(panicky)
	graph := config.NewGraph("a").Node("a").Tool("panicky").Done().Build()

	res := e.RunGraph(context.Background(), graph, nil, nil)

	last, ok := res.LastEntry()
	require.True(t, ok)
	assert.Equal(t, EventError, last.Event)
	assert.Contains(t, last.Error, "oh no")
}

func TestRunGraph_MissingToolFailsAtStep(t *testing.T) {
	e, _ := newTestEngine()
	graph := config.NewGraph("a").
		Node("a").Done().
		Node("b").Tool("ghost_tool").Done().
		Edge("a", "b").
		Build()

	res := e.RunGraph(context.Background(), graph, nil, nil)

	require.Len(t, res.Logs, 4)
	assert.Equal(t, EventStart, res.Logs[2].Event)
	assert.Equal(t, "ghost_tool", res.Logs[2].Fn)
	assert.Equal(t, EventError, res.Logs[3].Event)
	assert.Contains(t, res.Logs[3].Error, "ghost_tool")
}

func TestRunGraph_ToolReceivesCopy(t *testing.T) {
	mutator := tools.NewFunc("mutate", "writes into its input", func(_ context.Context, s core.State) (core.State, error) {
		s["sneaky"] = true
		return nil, nil
	})
	e, _ := newTestEngine(mutator)
	graph := config.NewGraph("a").Node("a").Tool("mutate").Done().Build()

	res := e.RunGraph(context.Background(), graph, core.State{}, nil)
	assert.NotContains(t, res.State, "sneaky")
	assert.Nil(t, res.Logs[1].Result)
}

func TestRunGraph_TerminalNodeStops(t *testing.T) {
	e, _ := newTestEngine()
	graph := config.NewGraph("a").
		Node("a").Terminal().Done().
		Node("b").Done().
		Edge("a", "b").
		Build()

	res := e.RunGraph(context.Background(), graph, nil, nil)

	assert.Len(t, res.Logs, 2)
	assert.Equal(t, StopTerminal, res.StopReason)
	assert.Equal(t, OutcomeCompleted, res.Outcome())
}

func TestRunGraph_NodeNamedEndIsExecuted(t *testing.T) {
	e, _ := newTestEngine(setTool("mark", core.State{"ended": true}))
	graph := config.NewGraph("a").
		Node("a").Done().
		Node("end").Tool("mark").Done().
		Edge("a", "end").
		Build()

	res := e.RunGraph(context.Background(), graph, nil, nil)
	assert.Equal(t, true, res.State["ended"])
}

func TestRunGraph_StepCallback(t *testing.T) {
	e, _ := newTestEngine(setTool("t", nil))
	graph := config.NewGraph("a").
		Node("a").Tool("t").Done().
		Node("b").Done().
		Edge("a", "b").
		Build()

	var msgs []string
	res := e.RunGraph(context.Background(), graph, nil, func(msg string) error {
		msgs = append(msgs, msg)
		return nil
	})

	assert.Equal(t, []string{"node:a fn:t", "node:b fn:"}, msgs)
	assert.Equal(t, OutcomeCompleted, res.Outcome())
}

func TestRunGraph_StepCallbackFailuresIgnored(t *testing.T) {
	e, _ := newTestEngine(setTool("t", core.State{"done": true}))
	graph := config.NewGraph("a").Node("a").Tool("t").Done().Build()

	res := e.RunGraph(context.Background(), graph, nil, func(string) error {
		return errors.New("sink closed")
	})
	assert.Equal(t, true, res.State["done"])

	res = e.RunGraph(context.Background(), graph, nil, func(string) error {
		panic("sink exploded")
	})
	assert.Equal(t, true, res.State["done"])
	assert.False(t, res.Failed())
}

func TestRunGraph_NilGraph(t *testing.T) {
	e, _ := newTestEngine()
	res := e.RunGraph(context.Background(), nil, core.State{"a": 1}, nil)

	assert.Empty(t, res.Logs)
	assert.Equal(t, 0, res.Iterations)
	assert.Equal(t, core.State{"a": 1}, res.State)
}

func TestLogEntry_MarshalJSON(t *testing.T) {
	tests := []struct {
		entry LogEntry
		want  string
	}{
		{LogEntry{Event: EventStart, Node: "a", Fn: "t", Iteration: 1}, `{"event":"start","node":"a","fn":"t","iteration":1}`},
		{LogEntry{Event: EventStart, Node: "a", Iteration: 2}, `{"event":"start","node":"a","fn":null,"iteration":2}`},
		{LogEntry{Event: EventEnd, Node: "a", Result: core.State{"k": 1}}, `{"event":"end","node":"a","result":{"k":1}}`},
		{LogEntry{Event: EventEnd, Node: "a"}, `{"event":"end","node":"a","result":null}`},
		{LogEntry{Event: EventError, Node: "a", Error: "bad"}, `{"event":"error","node":"a","error":"bad"}`},
		{LogEntry{Node: "x", Error: NodeNotFoundMessage}, `{"node":"x","error":"node not found"}`},
	}
	for _, tt := range tests {
		data, err := json.Marshal(tt.entry)
		require.NoError(t, err)
		assert.JSONEq(t, tt.want, string(data))
	}
}

func TestLogEntry_RoundTrip(t *testing.T) {
	in := []LogEntry{
		{Event: EventStart, Node: "a", Iteration: 1},
		{Node: "x", Error: NodeNotFoundMessage},
	}
	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out []LogEntry
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
	assert.True(t, out[1].IsFailure())
}
