package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/hubenschmidt/go-reviewgraph/core"
	"github.com/hubenschmidt/go-reviewgraph/server/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("OK"))
}

func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Infos())
}

func (s *Server) handleMetricsSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.collector.Flush())
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r)
	if err != nil {
		writeRequestError(w, err)
		return
	}

	var req ReviewRequest
	if err := decodeJSON(body, &req); err != nil {
		writeRequestError(w, err)
		return
	}
	if strings.TrimSpace(req.Source) == "" {
		writeError(w, http.StatusBadRequest, "Empty source provided")
		return
	}

	s.reviewAndStore(w, r, req.Source)
}

func (s *Server) handleReviewFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		writeRequestError(w, bodyError(err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	if !strings.HasSuffix(header.Filename, ".py") {
		writeError(w, http.StatusBadRequest, "Only .py files are accepted")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeRequestError(w, bodyError(err))
		return
	}

	s.reviewAndStore(w, r, decodeLenient(data))
}

func (s *Server) reviewAndStore(w http.ResponseWriter, r *http.Request, source string) {
	logger := zerolog.Ctx(r.Context())

	report, err := s.reviewer.Review(r.Context(), source)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, core.ErrSyntax) {
			status = http.StatusUnprocessableEntity
		}
		logger.Error().Err(err).Msg("code review failed")
		writeError(w, status, "Code review failed: "+err.Error())
		return
	}

	rec, err := s.stores.Reviews.Create(r.Context(), store.ReviewInfo{Report: report})
	if err != nil {
		logger.Error().Err(err).Msg("failed to persist review")
		writeError(w, http.StatusInternalServerError, "Persistence error: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleReviewGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeRequestError(w, err)
		return
	}

	rec, err := s.stores.Reviews.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Review not found")
		return
	}
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Int64("review_id", id).Msg("failed to load review")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// decodeLenient turns data into a string, replacing every byte that is not
// part of a valid UTF-8 sequence with U+FFFD.
func decodeLenient(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	var b strings.Builder
	b.Grow(len(data))
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			b.WriteRune(utf8.RuneError)
		} else {
			b.Write(data[:size])
		}
		data = data[size:]
	}
	return b.String()
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxUpload))
	if err != nil {
		return nil, bodyError(err)
	}
	return data, nil
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return &requestError{status: http.StatusRequestEntityTooLarge, msg: "request body too large"}
	}
	return &requestError{status: http.StatusBadRequest, msg: "invalid request body: " + err.Error()}
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, &requestError{status: http.StatusUnprocessableEntity, msg: "invalid " + name + ": " + r.PathValue(name)}
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, ErrorResponse{Detail: detail})
}

func writeRequestError(w http.ResponseWriter, err error) {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		writeError(w, reqErr.status, reqErr.msg)
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}
