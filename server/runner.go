package server

import (
	"context"
	"errors"
	"time"

	"github.com/hubenschmidt/go-reviewgraph/config"
	"github.com/hubenschmidt/go-reviewgraph/core"
	"github.com/hubenschmidt/go-reviewgraph/server/store"
)

var errServerClosing = errors.New("server is shutting down")

func (s *Server) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

// startRun executes the run in the background. Runs are detached from the
// request that scheduled them; Close waits for them.
func (s *Server) startRun(run store.RunInfo, graph config.GraphConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closing {
		_ = s.stores.Runs.SetStatus(context.Background(), run.ID, store.RunFailed)
		return errServerClosing
	}

	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		s.executeRun(run.ID, graph, run.State)
	}()
	return nil
}

func (s *Server) executeRun(runID int64, graph config.GraphConfig, initial core.State) {
	logger := s.logger.With().Int64("run_id", runID).Logger()
	ctx := logger.WithContext(context.Background())
	runs := s.stores.Runs

	if err := runs.SetStatus(ctx, runID, store.RunRunning); err != nil {
		logger.Error().Err(err).Msg("failed to mark run running")
		s.markFailed(ctx, runID)
		return
	}

	progress := func(msg string) error {
		return runs.AppendProgress(ctx, runID, store.ProgressEntry{TS: time.Now().UTC(), Msg: msg})
	}

	start := time.Now()
	res := s.engine.RunGraph(ctx, &graph, initial, progress)

	status := store.RunDone
	if res.Failed() {
		status = store.RunFailed
	}

	if err := runs.Finish(ctx, runID, status, res); err != nil {
		logger.Error().Err(err).Msg("failed to persist run result")
		s.markFailed(ctx, runID)
		return
	}

	logger.Info().
		Str("status", string(status)).
		Str("outcome", string(res.Outcome())).
		Int("iterations", res.Iterations).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("run finished")
}

func (s *Server) markFailed(ctx context.Context, runID int64) {
	if err := s.stores.Runs.SetStatus(ctx, runID, store.RunFailed); err != nil {
		s.logger.Error().Err(err).Int64("run_id", runID).Msg("failed to mark run failed")
	}
}
