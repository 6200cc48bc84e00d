package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/seo-linker/internal/config"
	"github.com/JakeFAU/seo-linker/internal/linker"
	"github.com/JakeFAU/seo-linker/internal/metrics"
	"github.com/JakeFAU/seo-linker/internal/publisher"
	"github.com/JakeFAU/seo-linker/internal/storage"
	"github.com/JakeFAU/seo-linker/internal/telemetry"
)

// KeywordStore serves and refreshes the keyword table.
type KeywordStore interface {
	Snapshot() []linker.Association
	Loaded() bool
	Reload(ctx context.Context) (int, error)
}

// Discoverer lists the same-host URLs of a domain.
type Discoverer interface {
	Discover(ctx context.Context, domain string, maxDepth int) ([]string, error)
}

// KeywordGenerator builds associations for a set of URLs.
type KeywordGenerator interface {
	Generate(ctx context.Context, urls []string) ([]linker.Association, error)
}

// TextRefiner rewrites hyperlinked text around its links.
type TextRefiner interface {
	Refine(ctx context.Context, text string, usages []linker.Usage) (string, error)
}

// Deps are the collaborators of the HTTP handlers. Crawler, Generator,
// Refiner, Blobs, Publisher and License may be nil; the routes that need
// them then answer 503.
type Deps struct {
	Keywords  KeywordStore
	Engine    *linker.Engine
	Crawler   Discoverer
	Generator KeywordGenerator
	Refiner   TextRefiner
	Blobs     storage.BlobStore
	Publisher publisher.Publisher
	License   LicenseService
	Now       func() time.Time
}

// Server wires HTTP handlers to the linker and its supporting services.
type Server struct {
	router chi.Router
	deps   Deps
	cfg    config.Config
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(deps Deps, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Engine == nil {
		deps.Engine = linker.New(linker.WithPerTargetCap(cfg.Linker.PerTargetCap))
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	s := &Server{deps: deps, cfg: cfg, logger: logger}

	timeout := cfg.RequestTimeout()
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(telemetry.Middleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(corsMiddleware)
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(timeout))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(s.requireLicense)
		r.Post("/validate-key", s.validateKey)
		r.Post("/validate-token", s.validateToken)
		r.Post("/get-user", s.getUser)
	})

	r.Group(func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		}
		r.Post("/process-text", s.processText)
		r.Post("/improve-linking", s.improveLinking)
		r.Post("/generate-keywords", s.generateKeywords)
		r.Route("/v1/keywords", func(r chi.Router) {
			r.Get("/", s.listKeywords)
			r.Post("/reload", s.reloadKeywords)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Keywords == nil || !s.deps.Keywords.Loaded() {
		s.writeError(w, http.StatusServiceUnavailable, "keyword table not loaded")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
