package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hubenschmidt/go-reviewgraph/config"
	"github.com/hubenschmidt/go-reviewgraph/core"
	"github.com/hubenschmidt/go-reviewgraph/engine"
	"github.com/hubenschmidt/go-reviewgraph/review"
)

// ErrNotFound is returned when an entity is not found
var ErrNotFound = errors.New("not found")

type RunStatus string

const (
	RunCreated RunStatus = "created"
	RunRunning RunStatus = "running"
	RunDone    RunStatus = "done"
	RunFailed  RunStatus = "failed"
)

// ReviewInfo is a persisted code review.
type ReviewInfo struct {
	ID int64 `json:"id"`
	review.Report
	CreatedAt time.Time `json:"created_at"`
}

// GraphInfo is a persisted graph definition.
type GraphInfo struct {
	ID        int64              `json:"id"`
	Name      string             `json:"name,omitempty"`
	Graph     config.GraphConfig `json:"graph"`
	CreatedAt time.Time          `json:"created_at"`
}

type ProgressEntry struct {
	TS  time.Time `json:"ts"`
	Msg string    `json:"msg"`
}

// RunInfo is one execution of a stored graph. State starts as the initial
// state and is replaced by the final state when the run finishes.
type RunInfo struct {
	ID         int64             `json:"id"`
	GraphID    int64             `json:"graph_id"`
	Status     RunStatus         `json:"status"`
	State      core.State        `json:"state"`
	Log        []engine.LogEntry `json:"log"`
	Progress   []ProgressEntry   `json:"progress"`
	Iterations int               `json:"iterations"`
	StopReason string            `json:"stop_reason,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// ReviewStore defines the interface for review persistence
type ReviewStore interface {
	Create(ctx context.Context, r ReviewInfo) (ReviewInfo, error)
	Get(ctx context.Context, id int64) (ReviewInfo, error)
	List(ctx context.Context) ([]ReviewInfo, error)
}

// GraphStore defines the interface for graph persistence
type GraphStore interface {
	Create(ctx context.Context, g GraphInfo) (GraphInfo, error)
	Get(ctx context.Context, id int64) (GraphInfo, error)
	List(ctx context.Context) ([]GraphInfo, error)
}

// RunStore defines the interface for run persistence
type RunStore interface {
	Create(ctx context.Context, r RunInfo) (RunInfo, error)
	Get(ctx context.Context, id int64) (RunInfo, error)
	// List returns runs newest first; graphID 0 lists every run.
	List(ctx context.Context, graphID int64) ([]RunInfo, error)
	SetStatus(ctx context.Context, id int64, status RunStatus) error
	AppendProgress(ctx context.Context, id int64, p ProgressEntry) error
	Finish(ctx context.Context, id int64, status RunStatus, res engine.Result) error
}

// Stores bundles the stores sharing one backend.
type Stores struct {
	Reviews ReviewStore
	Graphs  GraphStore
	Runs    RunStore
	close   func() error
}

func (s *Stores) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

func encodeJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeJSON(data string, v any) error {
	if data == "" {
		return nil
	}
	return json.Unmarshal([]byte(data), v)
}

func nonNilLog(log []engine.LogEntry) []engine.LogEntry {
	if log == nil {
		return []engine.LogEntry{}
	}
	return log
}

func nonNilProgress(p []ProgressEntry) []ProgressEntry {
	if p == nil {
		return []ProgressEntry{}
	}
	return p
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func notFound(kind string, id int64) error {
	return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
}
