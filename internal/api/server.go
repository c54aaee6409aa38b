// Package api serves the draft editing sessions over HTTP.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/draftlens/internal/config"
	"github.com/dgallion1/draftlens/internal/llm"
	"github.com/dgallion1/draftlens/internal/pipeline"
	"github.com/dgallion1/draftlens/internal/session"
)

// Server is the HTTP API server for draftlens.
type Server struct {
	router    chi.Router
	sessions  *session.Manager
	stats     *llm.Stats
	persister *pipeline.Persister
	log       *slog.Logger
	cfg       config.Config
}

// NewServer creates and configures the HTTP server. stats and persister may
// be nil.
func NewServer(sessions *session.Manager, stats *llm.Stats, persister *pipeline.Persister, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		sessions:  sessions,
		stats:     stats,
		persister: persister,
		log:       log,
		cfg:       cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Route("/api/sessions/{taskID}", func(r chi.Router) {
			r.Post("/open", s.handleOpen)
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleCloseSession)
			r.Put("/draft", s.handleSaveDraft)
			r.Post("/import", s.handleImport)
			r.Get("/export", s.handleExport)
			r.Get("/locate", s.handleLocate)
			r.Post("/reset", s.handleReset)

			r.Post("/components/extract", s.handleExtract)
			r.Post("/components/{componentID}/select", s.handleSelect)
			r.Post("/components/{componentID}/edit", s.handleEdit)
			r.Post("/components/{componentID}/{action}", s.handleMutate)
			r.Get("/components/{componentID}/recommendations", s.handleRecommend)
			r.Post("/quickfix", s.handleQuickfix)

			r.Put("/intents/{dimension}", s.handleChangeIntent)
			r.Post("/preview/apply", s.handleApplyPreview)
			r.Delete("/preview", s.handleDiscardPreview)
			r.Post("/edit/resolve", s.handleResolveEdit)

			r.Post("/regenerate", s.handleRegenerate)
			r.Post("/anchors", s.handleAnchors)
		})

		r.Get("/api/writes/{writeID}", s.handleWriteStatus)
		r.Get("/api/stats/llm", s.handleLLMStats)
		r.Get("/api/colors", s.handleColors)
		r.Delete("/api/colors", s.handleResetColors)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
