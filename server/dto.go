package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/hubenschmidt/go-reviewgraph/config"
	"github.com/hubenschmidt/go-reviewgraph/core"
	"github.com/hubenschmidt/go-reviewgraph/engine"
	"github.com/hubenschmidt/go-reviewgraph/server/store"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type ReviewRequest struct {
	Source string `json:"source"`
}

type CreateGraphRequest struct {
	Name  string              `json:"name" validate:"max=200"`
	Graph *config.GraphConfig `json:"graph" validate:"required"`
}

type RunGraphRequest struct {
	GraphID      int64      `json:"graph_id" validate:"required,gt=0"`
	InitialState core.State `json:"initial_state"`
}

type GraphOut struct {
	GraphID   int64              `json:"graph_id"`
	Name      string             `json:"name,omitempty"`
	Graph     config.GraphConfig `json:"graph"`
	CreatedAt time.Time          `json:"created_at"`
}

func newGraphOut(g store.GraphInfo) GraphOut {
	return GraphOut{GraphID: g.ID, Name: g.Name, Graph: g.Graph, CreatedAt: g.CreatedAt}
}

type RunStartedResponse struct {
	RunID  int64           `json:"run_id"`
	Status store.RunStatus `json:"status"`
}

type RunStateOut struct {
	RunID      int64                 `json:"run_id"`
	GraphID    int64                 `json:"graph_id"`
	Status     store.RunStatus       `json:"status"`
	State      core.State            `json:"state"`
	Log        []engine.LogEntry     `json:"log"`
	Progress   []store.ProgressEntry `json:"progress"`
	Iterations int                   `json:"iterations"`
	StopReason string                `json:"stop_reason,omitempty"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

func newRunStateOut(r store.RunInfo) RunStateOut {
	state := r.State
	if state == nil {
		state = core.State{}
	}
	return RunStateOut{
		RunID:      r.ID,
		GraphID:    r.GraphID,
		Status:     r.Status,
		State:      state,
		Log:        r.Log,
		Progress:   r.Progress,
		Iterations: r.Iterations,
		StopReason: r.StopReason,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

type ErrorResponse struct {
	Detail string   `json:"detail"`
	Errors []string `json:"errors,omitempty"`
}

// requestError carries the status a decoding or validation failure maps to.
type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string {
	return e.msg
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("field '%s' failed '%s=%s'", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("field '%s' failed '%s'", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

func decodeJSON(data []byte, dst any) error {
	if err := json.Unmarshal(data, dst); err != nil {
		return &requestError{status: http.StatusBadRequest, msg: "invalid JSON body: " + err.Error()}
	}
	if err := validate.Struct(dst); err != nil {
		return &requestError{status: http.StatusUnprocessableEntity, msg: validationMessage(err)}
	}
	return nil
}
