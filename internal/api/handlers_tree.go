package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/knc-neural-calculus/loom/internal/parser"
	"github.com/knc-neural-calculus/loom/internal/store"
)

// handleGetTree returns the whole document as JSON.
func (s *Server) handleGetTree(w http.ResponseWriter, r *http.Request) {
	data, err := s.model.DocumentJSON()
	if err != nil {
		respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// handleOpenTree loads a document from disk and makes it the live tree.
// With no path in the body the configured TREE_FILE is used.
func (s *Server) handleOpenTree(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if err := decodeBody(r, &req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	path := req.Path
	if path == "" {
		path = s.cfg.TreeFile
	}
	if path == "" {
		jsonError(w, "path is required", http.StatusBadRequest)
		return
	}

	doc, err := store.Load(path)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := s.model.SetDocument(doc); err != nil {
		respondError(w, err)
		return
	}
	s.model.MarkSynced()

	writeJSON(w, http.StatusOK, map[string]any{
		"path":       path,
		"node_count": s.model.NodeCount(),
		"selected":   s.model.Selection(),
	})
}

// handleSaveTree writes the live document back to disk, keeping a backup of
// the previous file.
func (s *Server) handleSaveTree(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if err := decodeBody(r, &req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	path := req.Path
	if path == "" {
		path = s.cfg.TreeFile
	}
	if path == "" {
		jsonError(w, "path is required", http.StatusBadRequest)
		return
	}

	data, err := s.model.DocumentJSON()
	if err != nil {
		respondError(w, err)
		return
	}
	if err := store.Save(path, data); err != nil {
		respondError(w, err)
		return
	}
	s.model.MarkSynced()

	writeJSON(w, http.StatusOK, map[string]any{
		"path":  path,
		"bytes": len(data),
	})
}

// handleImportDocument splices a second document, sent as the request body
// in either persisted shape, under the current selection. Chapters reachable
// from the imported root come along.
func (s *Server) handleImportDocument(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read body", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("document exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	doc, err := store.Decode(data)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := s.model.ImportSubtree(doc.Root, doc.Chapters); err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"node_count": s.model.NodeCount(),
	})
}

// handleUpload parses an uploaded file and grafts it under the current
// selection.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !parser.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	p, err := parser.ForFile(filename)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	subtree, err := p.Parse(bytes.NewReader(data), filename)
	if err != nil {
		jsonError(w, "parse "+filename+": "+err.Error(), http.StatusUnprocessableEntity)
		return
	}
	// Parsers wrap linear content in an empty holder node; unwrap it so the
	// import doesn't add a blank layer.
	if subtree.Text == "" && len(subtree.Children) == 1 {
		subtree = subtree.Children[0]
	}

	if err := s.model.ImportSubtree(subtree, nil); err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"filename":   filename,
		"node_count": s.model.NodeCount(),
	})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
