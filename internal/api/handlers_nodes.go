package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleGetNode(w http.ResponseWriter, r *http.Request) {
	view, err := s.model.Node(chi.URLParam(r, "nodeID"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleNodeAncestry returns the effective text of a node: every ancestor's
// text, root first, concatenated through the node itself.
func (s *Server) handleNodeAncestry(w http.ResponseWriter, r *http.Request) {
	text, err := s.model.AncestryText(chi.URLParam(r, "nodeID"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

func (s *Server) handleNodeChapter(w http.ResponseWriter, r *http.Request) {
	ch, ok, err := s.model.ChapterOf(chi.URLParam(r, "nodeID"))
	if err != nil {
		respondError(w, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"chapter": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"chapter": ch})
}

func (s *Server) handleCreateChild(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Select bool `json:"select"`
		Expand bool `json:"expand"`
	}
	if err := decodeBody(r, &req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	id, err := s.model.CreateChild(chi.URLParam(r, "nodeID"), req.Select, req.Expand)
	if err != nil {
		respondError(w, err)
		return
	}
	view, err := s.model.Node(id)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleCreateSibling(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Select bool `json:"select"`
	}
	if err := decodeBody(r, &req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	id, err := s.model.CreateSibling(chi.URLParam(r, "nodeID"), req.Select)
	if err != nil {
		respondError(w, err)
		return
	}
	view, err := s.model.Node(id)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// handleCreateParent inserts a fresh empty node between a node and its
// parent. On the root the new node becomes the new root.
func (s *Server) handleCreateParent(w http.ResponseWriter, r *http.Request) {
	id, err := s.model.CreateParent(chi.URLParam(r, "nodeID"))
	if err != nil {
		respondError(w, err)
		return
	}
	view, err := s.model.Node(id)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleMergeParent(w http.ResponseWriter, r *http.Request) {
	if err := s.model.MergeWithParent(chi.URLParam(r, "nodeID")); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"selected": s.model.Selection()})
}

func (s *Server) handleMergeChildren(w http.ResponseWriter, r *http.Request) {
	if err := s.model.MergeWithChildren(chi.URLParam(r, "nodeID")); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"selected": s.model.Selection()})
}

func (s *Server) handleReparent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ParentID string `json:"parent_id"`
	}
	if err := decodeBody(r, &req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.ParentID == "" {
		jsonError(w, "parent_id is required", http.StatusBadRequest)
		return
	}
	if err := s.model.ChangeParent(chi.URLParam(r, "nodeID"), req.ParentID); err != nil {
		respondError(w, err)
		return
	}
	view, err := s.model.Node(chi.URLParam(r, "nodeID"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleUpdateText(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text       string  `json:"text"`
		ActiveText *string `json:"active_text"`
	}
	if err := decodeBody(r, &req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	nodeID := chi.URLParam(r, "nodeID")
	if err := s.model.UpdateText(nodeID, req.Text, req.ActiveText); err != nil {
		respondError(w, err)
		return
	}
	view, err := s.model.Node(nodeID)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	reassign := r.URL.Query().Get("reassign") == "true"
	if err := s.model.DeleteNode(chi.URLParam(r, "nodeID"), reassign); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"selected": s.model.Selection()})
}

// handleGenerate queues continuation generation for a node. Placeholders are
// in the tree when this returns; the completions arrive asynchronously.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SelectFirst bool `json:"select_first"`
	}
	if err := decodeBody(r, &req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	set, err := s.orch.RequestContinuations(chi.URLParam(r, "nodeID"), req.SelectFirst)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"placeholder_ids": set.Children,
	})
}

func (s *Server) handleGetSelection(w http.ResponseWriter, r *http.Request) {
	view, err := s.model.SelectedNode()
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleSetSelection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := decodeBody(r, &req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		jsonError(w, "id is required", http.StatusBadRequest)
		return
	}
	moved := s.model.Select(req.ID)
	s.respondSelection(w, moved)
}

func (s *Server) handleMoveSelection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Offset int `json:"offset"`
	}
	if err := decodeBody(r, &req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	moved := s.model.MoveBy(req.Offset)
	s.respondSelection(w, moved)
}

func (s *Server) handleSelectParent(w http.ResponseWriter, r *http.Request) {
	s.respondSelection(w, s.model.SelectParent())
}

func (s *Server) handleSelectChild(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index int `json:"index"`
	}
	if err := decodeBody(r, &req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	s.respondSelection(w, s.model.SelectChild(req.Index))
}

func (s *Server) handleSelectSibling(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Offset int `json:"offset"`
	}
	if err := decodeBody(r, &req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	s.respondSelection(w, s.model.SelectSibling(req.Offset))
}

func (s *Server) respondSelection(w http.ResponseWriter, moved bool) {
	view, err := s.model.SelectedNode()
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"moved": moved,
		"node":  view,
	})
}

func (s *Server) handleGetGenerationSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.model.GenerationSettings())
}

// handlePutGenerationSettings overlays the request body onto the current
// settings, so callers can patch a single field.
func (s *Server) handlePutGenerationSettings(w http.ResponseWriter, r *http.Request) {
	settings := s.model.GenerationSettings()
	if err := decodeBody(r, &settings); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.model.UpdateGenerationSettings(settings); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}
