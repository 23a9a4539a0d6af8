package server

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"github.com/hubenschmidt/go-reviewgraph/engine"
	"github.com/hubenschmidt/go-reviewgraph/monitor"
	"github.com/hubenschmidt/go-reviewgraph/pipelines"
	"github.com/hubenschmidt/go-reviewgraph/review"
	"github.com/hubenschmidt/go-reviewgraph/server/store"
	"github.com/hubenschmidt/go-reviewgraph/tools"
)

const defaultMaxUploadBytes = 1 << 20

// Config configures a new Server instance.
type Config struct {
	Engine      *engine.Engine
	Reviewer    *review.Reviewer
	Collector   monitor.MetricsCollector
	Templates   []pipelines.Template
	Logger      *zerolog.Logger
	Stores      *store.Stores // Optional: takes precedence over DatabaseDSN
	DatabaseDSN string        // Optional: database connection string (postgres://, memory:// or sqlite path)

	MaxUploadBytes int64
}

// Server is the HTTP front end for code reviews and graph runs.
type Server struct {
	engine    *engine.Engine
	registry  *tools.Registry
	reviewer  *review.Reviewer
	collector monitor.MetricsCollector
	templates []pipelines.Template
	stores    *store.Stores
	logger    zerolog.Logger
	maxUpload int64

	mu      sync.Mutex
	closing bool
	runs    sync.WaitGroup
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	collector := cfg.Collector
	if collector == nil {
		collector = monitor.NewInMemoryCollector()
	}

	eng := cfg.Engine
	if eng == nil {
		eng = engine.NewEngine(engine.EngineConfig{Collector: collector, Logger: &logger})
	}

	reviewer := cfg.Reviewer
	if reviewer == nil {
		reviewer = review.NewReviewer(nil, logger)
	}

	templates := cfg.Templates
	if len(templates) == 0 {
		templates = pipelines.Templates()
	}

	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}

	stores := cfg.Stores
	if stores == nil {
		var err error
		stores, err = store.NewStores(cfg.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("initialize stores: %w", err)
		}
		logger.Info().Msg("initialized database storage")
	}

	return &Server{
		engine:    eng,
		registry:  eng.Registry(),
		reviewer:  reviewer,
		collector: collector,
		templates: templates,
		stores:    stores,
		logger:    logger.With().Str("component", "server").Logger(),
		maxUpload: maxUpload,
	}, nil
}

// Close stops accepting new runs, waits for in-flight runs to persist their
// results and releases the stores.
func (s *Server) Close() error {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()

	s.runs.Wait()

	if err := s.stores.Close(); err != nil {
		return fmt.Errorf("close stores: %w", err)
	}
	return nil
}

// Handler returns an http.Handler for the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /tools", s.handleTools)
	mux.HandleFunc("GET /metrics/summary", s.handleMetricsSummary)

	mux.HandleFunc("POST /review", s.handleReview)
	mux.HandleFunc("POST /review/file", s.handleReviewFile)
	mux.HandleFunc("GET /review/{id}", s.handleReviewGet)

	mux.HandleFunc("POST /graph/create", s.handleGraphCreate)
	mux.HandleFunc("GET /graph/templates", s.handleGraphTemplates)
	mux.HandleFunc("GET /graph/runs", s.handleRunList)
	mux.HandleFunc("GET /graph/{id}", s.handleGraphGet)
	mux.HandleFunc("POST /graph/run", s.handleGraphRun)
	mux.HandleFunc("GET /graph/state/{run_id}", s.handleRunState)

	return corsMiddleware(requestLoggingMiddleware(s.logger)(mux))
}
