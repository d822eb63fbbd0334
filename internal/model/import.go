package model

import "github.com/knc-neural-calculus/loom/internal/tree"

// ImportSubtree attaches a foreign subtree as a new child of the current
// selection. Imported node ids that collide with the existing tree are
// remapped to fresh ones, keeping ids unique document-wide. If the import
// carries its own chapter registry, only chapters reachable from the imported
// root are merged in, skipping ids already present. Chapter tags that resolve
// in neither registry are cleared.
func (m *Model) ImportSubtree(root *tree.Node, chapters map[string]*tree.Chapter) error {
	defer m.flush()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.doc == nil {
		return ErrNoDocument
	}
	if root == nil {
		return ErrImportFormat
	}
	sel, ok := m.index[m.doc.SelectedNodeID]
	if !ok {
		return ErrNotFound
	}

	m.remapCollidingIDsLocked(root)
	sel.Children = append(sel.Children, root)
	root.ParentID = sel.ID
	m.refreshLocked()

	m.importChaptersLocked(root, chapters)
	tree.Sanitize(m.order)
	return nil
}

// remapCollidingIDsLocked assigns fresh ids to imported nodes whose ids are
// already taken, including duplicates within the import itself. Parent back
// references are restamped by the flatten that follows the attach.
func (m *Model) remapCollidingIDsLocked(root *tree.Node) {
	seen := make(map[string]bool)
	var walk func(*tree.Node)
	walk = func(n *tree.Node) {
		if _, taken := m.index[n.ID]; taken || seen[n.ID] {
			n.ID = tree.NewID()
		}
		seen[n.ID] = true
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(root)
}

// importChaptersLocked walks the imported subtree merging reachable chapters.
func (m *Model) importChaptersLocked(n *tree.Node, chapters map[string]*tree.Chapter) {
	if n.ChapterID != "" {
		if _, have := m.doc.Chapters[n.ChapterID]; !have {
			if ch, ok := chapters[n.ChapterID]; ok {
				m.doc.Chapters[ch.ID] = &tree.Chapter{ID: ch.ID, RootID: n.ID, Title: ch.Title}
			} else {
				n.ChapterID = ""
			}
		}
	}
	for _, c := range n.Children {
		m.importChaptersLocked(c, chapters)
	}
}
