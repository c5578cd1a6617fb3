// Package server exposes the agent registry and stored scorecards over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/brand-scorecard/internal/config"
	"github.com/sells-group/brand-scorecard/internal/model"
	"github.com/sells-group/brand-scorecard/internal/registry"
	"github.com/sells-group/brand-scorecard/internal/store"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 4 << 20

// ScorecardReader serves stored scorecards. Nil disables /scorecards.
type ScorecardReader interface {
	GetScorecard(ctx context.Context, id string) (*model.Scorecard, error)
	ListScorecards(ctx context.Context, filter store.ScorecardFilter) ([]model.ScorecardSummary, error)
}

// Server is the HTTP API.
type Server struct {
	reg      *registry.Registry
	store    ScorecardReader
	validate *validator.Validate
	router   chi.Router
}

// New builds the router. st may be nil.
func New(reg *registry.Registry, st ScorecardReader, cfg config.ServerConfig) *Server {
	s := &Server{reg: reg, store: st, validate: validator.New()}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/agents", s.handleListAgents)
	r.Get("/workflows", s.handleListWorkflows)
	r.Post("/agents/{name}/generate", s.handleGenerate(kindAgent))
	r.Post("/agents/{name}/stream", s.handleStream(kindAgent))
	r.Post("/workflows/{name}/generate", s.handleGenerate(kindWorkflow))
	r.Post("/workflows/{name}/stream", s.handleStream(kindWorkflow))
	r.Get("/scorecards", s.handleListScorecards)
	r.Get("/scorecards/{id}", s.handleGetScorecard)

	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on port until ctx is done, then drains in-flight
// requests for up to 30s.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("server: listening", zap.Int("port", port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server: listen")
		}
		return nil
	case <-ctx.Done():
	}

	zap.L().Info("server: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "server: shutdown")
	}
	return nil
}

// requestLogger logs each request with zap once it completes.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
