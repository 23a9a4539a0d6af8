package engine

import (
	"encoding/json"

	"github.com/hubenschmidt/go-reviewgraph/core"
)

type EventType string

const (
	EventStart EventType = "start"
	EventEnd   EventType = "end"
	EventError EventType = "error"
)

// NodeNotFoundMessage is the error text of the entry written when the run
// reaches a node name the graph does not define.
const NodeNotFoundMessage = "node not found"

// LogEntry is one record of the execution log. The zero Event marks the
// node-not-found entry, which carries only the node and the error.
type LogEntry struct {
	Event     EventType  `json:"event,omitempty"`
	Node      string     `json:"node"`
	Fn        string     `json:"fn,omitempty"`
	Iteration int        `json:"iteration,omitempty"`
	Result    core.State `json:"result,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// MarshalJSON writes exactly the fields each kind of entry carries, keeping
// explicit nulls for a tool-less start ("fn") and end ("result").
func (e LogEntry) MarshalJSON() ([]byte, error) {
	switch e.Event {
	case EventStart:
		var fn *string
		if e.Fn != "" {
			fn = &e.Fn
		}
		return json.Marshal(struct {
			Event     EventType `json:"event"`
			Node      string    `json:"node"`
			Fn        *string   `json:"fn"`
			Iteration int       `json:"iteration"`
		}{e.Event, e.Node, fn, e.Iteration})
	case EventEnd:
		return json.Marshal(struct {
			Event  EventType  `json:"event"`
			Node   string     `json:"node"`
			Result core.State `json:"result"`
		}{e.Event, e.Node, e.Result})
	case EventError:
		return json.Marshal(struct {
			Event EventType `json:"event"`
			Node  string    `json:"node"`
			Error string    `json:"error"`
		}{e.Event, e.Node, e.Error})
	}
	return json.Marshal(struct {
		Node  string `json:"node"`
		Error string `json:"error"`
	}{e.Node, e.Error})
}

// IsFailure reports whether the entry ended the run with an error.
func (e LogEntry) IsFailure() bool {
	return e.Event == EventError || (e.Event == "" && e.Error != "")
}

// StopReason records why the loop ended.
type StopReason string

const (
	StopNoSuccessor    StopReason = "no_successor"
	StopTerminal       StopReason = "terminal"
	StopIterationLimit StopReason = "iteration_limit"
	StopNodeNotFound   StopReason = "node_not_found"
	StopToolError      StopReason = "tool_error"
)

type Outcome string

const (
	OutcomeCompleted      Outcome = "completed"
	OutcomeFailed         Outcome = "failed"
	OutcomeIterationLimit Outcome = "iteration_limit"
)

type Result struct {
	State      core.State `json:"state"`
	Logs       []LogEntry `json:"logs"`
	Iterations int        `json:"iterations"`
	StopReason StopReason `json:"stop_reason"`
}

func (r Result) LastEntry() (LogEntry, bool) {
	if len(r.Logs) == 0 {
		return LogEntry{}, false
	}
	return r.Logs[len(r.Logs)-1], true
}

func (r Result) Failed() bool {
	last, ok := r.LastEntry()
	return ok && last.IsFailure()
}

func (r Result) Outcome() Outcome {
	switch {
	case r.Failed():
		return OutcomeFailed
	case r.StopReason == StopIterationLimit:
		return OutcomeIterationLimit
	}
	return OutcomeCompleted
}

// StepFunc receives a progress message before each tool invocation. Its
// errors and panics never affect the run.
type StepFunc func(message string) error
