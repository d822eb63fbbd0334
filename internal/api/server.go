package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/knc-neural-calculus/loom/internal/config"
	"github.com/knc-neural-calculus/loom/internal/generate"
	"github.com/knc-neural-calculus/loom/internal/model"
)

// Server is the HTTP API server for loom.
type Server struct {
	router chi.Router
	model  *model.Model
	orch   *generate.Orchestrator
	log    *slog.Logger
	cfg    config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(m *model.Model, orch *generate.Orchestrator, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		model: m,
		orch:  orch,
		log:   log,
		cfg:   cfg,
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
	r.Use(requestLogger(s.log, s.model))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(requireAPIKey(s.cfg.LoomAPIKey, s.log))

		// Document lifecycle.
		r.Get("/api/tree", s.handleGetTree)
		r.Post("/api/tree/open", s.handleOpenTree)
		r.Post("/api/tree/save", s.handleSaveTree)
		r.Post("/api/tree/import", s.handleImportDocument)
		r.Post("/api/tree/upload", s.handleUpload)

		// Nodes.
		r.Get("/api/nodes/{nodeID}", s.handleGetNode)
		r.Get("/api/nodes/{nodeID}/ancestry", s.handleNodeAncestry)
		r.Get("/api/nodes/{nodeID}/chapter", s.handleNodeChapter)
		r.Post("/api/nodes/{nodeID}/children", s.handleCreateChild)
		r.Post("/api/nodes/{nodeID}/siblings", s.handleCreateSibling)
		r.Post("/api/nodes/{nodeID}/parent", s.handleCreateParent)
		r.Post("/api/nodes/{nodeID}/merge-parent", s.handleMergeParent)
		r.Post("/api/nodes/{nodeID}/merge-children", s.handleMergeChildren)
		r.Post("/api/nodes/{nodeID}/reparent", s.handleReparent)
		r.Put("/api/nodes/{nodeID}/text", s.handleUpdateText)
		r.Delete("/api/nodes/{nodeID}", s.handleDeleteNode)
		r.Post("/api/nodes/{nodeID}/generate", s.handleGenerate)

		// Selection.
		r.Get("/api/selection", s.handleGetSelection)
		r.Put("/api/selection", s.handleSetSelection)
		r.Post("/api/selection/move", s.handleMoveSelection)
		r.Post("/api/selection/parent", s.handleSelectParent)
		r.Post("/api/selection/child", s.handleSelectChild)
		r.Post("/api/selection/sibling", s.handleSelectSibling)

		// Chapters.
		r.Get("/api/chapters", s.handleListChapters)
		r.Post("/api/chapters", s.handleCreateChapter)
		r.Delete("/api/chapters/{chapterID}", s.handleDeleteChapter)
		r.Delete("/api/chapters", s.handleRemoveChapters)

		// Settings.
		r.Get("/api/settings/generation", s.handleGetGenerationSettings)
		r.Put("/api/settings/generation", s.handlePutGenerationSettings)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
