package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/hubenschmidt/go-reviewgraph/server/store"
)

func (s *Server) handleGraphCreate(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r)
	if err != nil {
		writeRequestError(w, err)
		return
	}

	var req CreateGraphRequest
	if err := decodeJSON(body, &req); err != nil {
		writeRequestError(w, err)
		return
	}

	if problems := s.engine.Validate(req.Graph); len(problems) > 0 {
		msgs := make([]string, len(problems))
		for i, p := range problems {
			msgs[i] = p.Error()
		}
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Detail: "invalid graph", Errors: msgs})
		return
	}

	g, err := s.stores.Graphs.Create(r.Context(), store.GraphInfo{Name: req.Name, Graph: *req.Graph})
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to persist graph")
		writeError(w, http.StatusInternalServerError, "Persistence error: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, newGraphOut(g))
}

func (s *Server) handleGraphGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeRequestError(w, err)
		return
	}

	g, err := s.stores.Graphs.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Graph not found")
		return
	}
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Int64("graph_id", id).Msg("failed to load graph")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, newGraphOut(g))
}

func (s *Server) handleGraphTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.templates)
}

func (s *Server) handleGraphRun(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r)
	if err != nil {
		writeRequestError(w, err)
		return
	}

	var req RunGraphRequest
	if err := decodeJSON(body, &req); err != nil {
		writeRequestError(w, err)
		return
	}

	logger := zerolog.Ctx(r.Context())

	g, err := s.stores.Graphs.Get(r.Context(), req.GraphID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Graph not found")
		return
	}
	if err != nil {
		logger.Error().Err(err).Int64("graph_id", req.GraphID).Msg("failed to load graph")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if s.isClosing() {
		writeError(w, http.StatusServiceUnavailable, "server is shutting down")
		return
	}

	run, err := s.stores.Runs.Create(r.Context(), store.RunInfo{GraphID: g.ID, State: req.InitialState})
	if err != nil {
		logger.Error().Err(err).Msg("failed to create run")
		writeError(w, http.StatusInternalServerError, "Persistence error: "+err.Error())
		return
	}

	if err := s.startRun(run, g.Graph); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	logger.Info().Int64("run_id", run.ID).Int64("graph_id", g.ID).Msg("run scheduled")
	writeJSON(w, http.StatusOK, RunStartedResponse{RunID: run.ID, Status: run.Status})
}

func (s *Server) handleRunState(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "run_id")
	if err != nil {
		writeRequestError(w, err)
		return
	}

	run, err := s.stores.Runs.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Run not found")
		return
	}
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Int64("run_id", id).Msg("failed to load run")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, newRunStateOut(run))
}

func (s *Server) handleRunList(w http.ResponseWriter, r *http.Request) {
	var graphID int64
	if raw := r.URL.Query().Get("graph_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			writeError(w, http.StatusUnprocessableEntity, "invalid graph_id: "+raw)
			return
		}
		graphID = id
	}

	runs, err := s.stores.Runs.List(r.Context(), graphID)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to list runs")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]RunStateOut, len(runs))
	for i, run := range runs {
		out[i] = newRunStateOut(run)
	}
	writeJSON(w, http.StatusOK, out)
}
