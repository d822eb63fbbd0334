package model

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/knc-neural-calculus/loom/internal/tree"
)

// Model owns the canonical document tree, its flat id index, the chapter
// registry, and the selection cursor. One mutex serializes every operation,
// so each exported method is a single atomic edit; generation reconciliation
// enters through the same lock as any other edit.
type Model struct {
	mu      sync.Mutex
	log     *slog.Logger
	doc     *tree.Document
	order   []*tree.Node
	index   map[string]*tree.Node
	subs    map[EventKind][]Handler
	pending []Event
}

func New(log *slog.Logger) *Model {
	return &Model{
		log:  log,
		subs: make(map[EventKind][]Handler),
	}
}

// SetDocument installs a loaded document: the tree is flattened (assigning
// any missing ids), imported rich text is sanitized, and the selection is
// restored from the document cursor or defaults to the first node in flatten
// order.
func (m *Model) SetDocument(doc *tree.Document) error {
	defer m.flush()
	m.mu.Lock()
	defer m.mu.Unlock()

	if doc == nil || doc.Root == nil {
		return ErrImportFormat
	}
	if doc.Chapters == nil {
		doc.Chapters = map[string]*tree.Chapter{}
	}

	m.doc = doc
	m.refreshLocked()
	tree.Sanitize(m.order)
	m.dropDanglingChaptersLocked()

	selected := doc.SelectedNodeID
	if _, ok := m.index[selected]; !ok {
		selected = m.order[0].ID
	}
	// Force reselection even if the cursor id carried over from a previous
	// document.
	m.doc.SelectedNodeID = ""
	m.selectLocked(selected)
	return nil
}

// refreshLocked rebuilds the flat index from a top-down traversal. Must run
// after every structural change, before the index is read again.
func (m *Model) refreshLocked() {
	m.order, m.index = tree.BuildIndex(m.doc.Root)
	m.publishLocked(NodeStructureChanged, m.doc.SelectedNodeID, "")
}

// dropDanglingChaptersLocked removes registry entries whose root node no
// longer exists.
func (m *Model) dropDanglingChaptersLocked() {
	for id, ch := range m.doc.Chapters {
		if _, ok := m.index[ch.RootID]; !ok {
			delete(m.doc.Chapters, id)
		}
	}
}

// Loaded reports whether a document is present.
func (m *Model) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.doc != nil
}

// NodeCount returns the number of nodes in flatten order.
func (m *Model) NodeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.order)
}

// Selection returns the current cursor id, or "" before any load.
func (m *Model) Selection() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.doc == nil {
		return ""
	}
	return m.doc.SelectedNodeID
}

// NodeView is a read-only, JSON-safe snapshot of one node.
type NodeView struct {
	ID          string   `json:"id"`
	Text        string   `json:"text"`
	ParentID    string   `json:"parent_id,omitempty"`
	ChildIDs    []string `json:"child_ids"`
	ChapterID   string   `json:"chapter_id,omitempty"`
	Open        bool     `json:"open"`
	Visited     bool     `json:"visited"`
	ActiveText  string   `json:"active_text,omitempty"`
	Depth       int      `json:"depth"`
	Descendants int      `json:"descendants"`
}

func (m *Model) viewLocked(n *tree.Node) NodeView {
	childIDs := make([]string, 0, len(n.Children))
	for _, c := range n.Children {
		childIDs = append(childIDs, c.ID)
	}
	return NodeView{
		ID:          n.ID,
		Text:        n.Text,
		ParentID:    n.ParentID,
		ChildIDs:    childIDs,
		ChapterID:   n.ChapterID,
		Open:        n.Open,
		Visited:     n.Visited,
		ActiveText:  n.ActiveText,
		Depth:       tree.Depth(n, m.index),
		Descendants: tree.DescendantCount(n),
	}
}

// Node returns a snapshot of the node with the given id.
func (m *Model) Node(id string) (NodeView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.index[id]
	if !ok {
		return NodeView{}, ErrNotFound
	}
	return m.viewLocked(n), nil
}

// SelectedNode returns a snapshot of the current selection.
func (m *Model) SelectedNode() (NodeView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.doc == nil {
		return NodeView{}, ErrNoDocument
	}
	n, ok := m.index[m.doc.SelectedNodeID]
	if !ok {
		return NodeView{}, ErrNotFound
	}
	return m.viewLocked(n), nil
}

// AncestryText returns the effective text of a node: the concatenation of
// its ancestors' text, root first, through the node itself.
func (m *Model) AncestryText(id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.index[id]
	if !ok {
		return "", ErrNotFound
	}
	var out string
	for _, a := range tree.Ancestry(n, m.index) {
		out += a.Text
	}
	return out, nil
}

// GenerationSettings returns a copy of the document's generation settings,
// or the defaults before any load.
func (m *Model) GenerationSettings() tree.GenerationSettings {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.doc == nil {
		return tree.DefaultGenerationSettings()
	}
	return m.doc.GenerationSettings
}

// UpdateGenerationSettings replaces the document's generation settings.
func (m *Model) UpdateGenerationSettings(s tree.GenerationSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.doc == nil {
		return ErrNoDocument
	}
	m.doc.GenerationSettings = s
	return nil
}

// DocumentJSON serializes the document for persistence.
func (m *Model) DocumentJSON() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.doc == nil {
		return nil, ErrNoDocument
	}
	return json.MarshalIndent(m.doc, "", "  ")
}

// MarkSynced publishes a persistence notification after a successful save or
// open.
func (m *Model) MarkSynced() {
	defer m.flush()
	m.mu.Lock()
	defer m.mu.Unlock()
	sel := ""
	if m.doc != nil {
		sel = m.doc.SelectedNodeID
	}
	m.publishLocked(PersistenceSynced, sel, "")
}
