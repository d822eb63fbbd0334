package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/knc-neural-calculus/loom/internal/model"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// respondError maps model errors onto HTTP status codes: unknown ids are
// 404, edits the tree shape forbids are 409, malformed documents are 400.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, model.ErrStructuralViolation):
		jsonError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, model.ErrNoDocument):
		jsonError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, model.ErrImportFormat):
		jsonError(w, err.Error(), http.StatusBadRequest)
	default:
		jsonError(w, err.Error(), http.StatusInternalServerError)
	}
}

// decodeBody decodes an optional JSON request body. An empty body leaves v
// at its zero value.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
