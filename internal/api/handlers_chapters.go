package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleListChapters returns the chapter forest derived from the tree.
func (s *Server) handleListChapters(w http.ResponseWriter, r *http.Request) {
	forest, _, err := s.model.BuildChapterTrees()
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"chapters": forest})
}

// handleCreateChapter tags a node as a chapter root. An empty title clears
// an existing tag instead.
func (s *Server) handleCreateChapter(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NodeID string `json:"node_id"`
		Title  string `json:"title"`
	}
	if err := decodeBody(r, &req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.NodeID == "" {
		jsonError(w, "node_id is required", http.StatusBadRequest)
		return
	}
	id, err := s.model.CreateChapter(req.NodeID, req.Title)
	if err != nil {
		respondError(w, err)
		return
	}
	if id == "" {
		writeJSON(w, http.StatusOK, map[string]any{"chapter_id": nil})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"chapter_id": id})
}

func (s *Server) handleDeleteChapter(w http.ResponseWriter, r *http.Request) {
	if err := s.model.DeleteChapter(chi.URLParam(r, "chapterID")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRemoveChapters clears chapter tags below a node, or below the root
// when no node_id is given.
func (s *Server) handleRemoveChapters(w http.ResponseWriter, r *http.Request) {
	if err := s.model.RemoveAllChapters(r.URL.Query().Get("node_id")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
