package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/hubenschmidt/go-reviewgraph/analysis"
	"github.com/hubenschmidt/go-reviewgraph/config"
	"github.com/hubenschmidt/go-reviewgraph/docs"
	"github.com/hubenschmidt/go-reviewgraph/engine"
	"github.com/hubenschmidt/go-reviewgraph/llm"
	"github.com/hubenschmidt/go-reviewgraph/monitor"
	"github.com/hubenschmidt/go-reviewgraph/review"
	"github.com/hubenschmidt/go-reviewgraph/server"
	"github.com/hubenschmidt/go-reviewgraph/tools"
)

func main() {
	settings, err := config.LoadSettings(".env")
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("load settings")
	}
	logger := config.NewLogger(settings)

	srv, handler, err := newApp(settings, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("create server")
	}

	httpServer := &http.Server{
		Addr:              settings.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info().Str("addr", settings.Addr).Str("mode", settings.Mode).Msg("starting reviewgraph server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("listen")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	if err := srv.Close(); err != nil {
		logger.Error().Err(err).Msg("close server")
	}
}

// newApp wires the engine, tools, stores and HTTP routes from settings.
func newApp(settings config.Settings, logger zerolog.Logger) (*server.Server, http.Handler, error) {
	linter := analysis.NewLinter(settings.Linter, settings.LintTimeout)
	if !linter.Available() {
		logger.Warn().Str("linter", linter.Command()).Msg("linter not found on PATH; lint reports no issues")
	}
	reviewer := review.NewReviewer(linter, logger)

	deps := tools.Deps{Reviewer: reviewer, Linter: linter}
	if settings.OpenAIKey != "" {
		cfg := llm.DefaultClientConfig()
		cfg.APIKey = settings.OpenAIKey
		cfg.BaseURL = settings.OpenAIBaseURL
		cfg.DefaultModel = settings.LLMModel
		deps.LLM = llm.NewOpenAIClient(cfg)
		deps.LLMModel = settings.LLMModel
	}

	registry := tools.NewRegistry()
	tools.RegisterAnalysisTools(registry, deps)
	logger.Info().Strs("tools", registry.List()).Msg("registered tools")

	collector := monitor.NewInMemoryCollector()
	eng := engine.NewEngine(engine.EngineConfig{
		Registry:      registry,
		Collector:     collector,
		Logger:        &logger,
		MaxIterations: settings.MaxIterations,
	})

	srv, err := server.New(server.Config{
		Engine:         eng,
		Reviewer:       reviewer,
		Collector:      collector,
		Logger:         &logger,
		DatabaseDSN:    settings.DatabaseDSN,
		MaxUploadBytes: settings.MaxUploadBytes,
	})
	if err != nil {
		return nil, nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/docs", docs.Handler())
	mux.Handle("/", srv.Handler())
	return srv, mux, nil
}
