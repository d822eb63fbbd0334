// Package store is the persistence gateway: it reads and writes the document
// as a single nested JSON record, keeping timestamped backups alongside the
// original.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knc-neural-calculus/loom/internal/model"
	"github.com/knc-neural-calculus/loom/internal/tree"
)

// rawDocument defers settings decoding so defaults can be overlaid only by
// keys actually present, and detects the bare single-node shape.
type rawDocument struct {
	Root                  json.RawMessage          `json:"root"`
	Text                  *string                  `json:"text"`
	Chapters              map[string]*tree.Chapter `json:"chapters"`
	GenerationSettings    json.RawMessage          `json:"generation_settings"`
	VisualizationSettings json.RawMessage          `json:"visualization_settings"`
	SelectedNodeID        string                   `json:"selected_node_id"`
}

// Decode parses a document payload. A payload missing the root key but
// carrying a text key is accepted as a bare single-node root and wrapped;
// anything else without a root is rejected with no partial result.
func Decode(data []byte) (*tree.Document, error) {
	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}

	doc := &tree.Document{
		Chapters:       raw.Chapters,
		SelectedNodeID: raw.SelectedNodeID,
	}
	if doc.Chapters == nil {
		doc.Chapters = map[string]*tree.Chapter{}
	}

	if len(raw.Root) == 0 || string(raw.Root) == "null" {
		if raw.Text == nil {
			return nil, model.ErrImportFormat
		}
		root := &tree.Node{}
		if err := json.Unmarshal(data, root); err != nil {
			return nil, fmt.Errorf("decode bare root: %w", err)
		}
		doc.Root = root
	} else {
		root := &tree.Node{}
		if err := json.Unmarshal(raw.Root, root); err != nil {
			return nil, fmt.Errorf("decode root: %w", err)
		}
		doc.Root = root
	}

	gen := tree.DefaultGenerationSettings()
	if len(raw.GenerationSettings) > 0 {
		if err := json.Unmarshal(raw.GenerationSettings, &gen); err != nil {
			return nil, fmt.Errorf("decode generation settings: %w", err)
		}
	}
	doc.GenerationSettings = gen

	vis, err := migrateVisualization(raw.VisualizationSettings)
	if err != nil {
		return nil, err
	}
	doc.VisualizationSettings = vis

	return doc, nil
}

// migrateVisualization overlays stored keys onto the defaults. Some older
// trees had generation-settings keys copied into the visualization block;
// those are pruned before decoding.
func migrateVisualization(raw json.RawMessage) (tree.VisualizationSettings, error) {
	vis := tree.DefaultVisualizationSettings()
	if len(raw) == 0 || string(raw) == "null" {
		return vis, nil
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return vis, fmt.Errorf("decode visualization settings: %w", err)
	}
	for _, legacy := range []string{
		"num_continuations", "temperature", "top_p", "response_length",
		"prompt_length", "janus", "adaptive", "model", "memory",
	} {
		delete(keys, legacy)
	}

	pruned, err := json.Marshal(keys)
	if err != nil {
		return vis, fmt.Errorf("re-encode visualization settings: %w", err)
	}
	if err := json.Unmarshal(pruned, &vis); err != nil {
		return vis, fmt.Errorf("decode visualization settings: %w", err)
	}
	return vis, nil
}

// Load reads and decodes a document file.
func Load(path string) (*tree.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return Decode(data)
}

// Save writes the serialized document. An existing file at the target path
// is first renamed into a backups/ subdirectory with a save timestamp; the
// new content is then written to a temp file in the same directory and
// renamed into place, so a crash mid-save cannot leave a truncated document.
func Save(path string, data []byte) error {
	dir := filepath.Dir(path)
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	if _, err := os.Stat(path); err == nil {
		backupDir := filepath.Join(dir, "backups")
		if err := os.MkdirAll(backupDir, 0o755); err != nil {
			return fmt.Errorf("create backup dir: %w", err)
		}
		stamp := time.Now().Format("20060102-150405")
		backupPath := filepath.Join(backupDir, fmt.Sprintf("%s-%s.json", base, stamp))
		if err := os.Rename(path, backupPath); err != nil {
			return fmt.Errorf("backup document: %w", err)
		}
	}

	tmp, err := os.CreateTemp(dir, "."+base+"-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace document: %w", err)
	}
	return nil
}
