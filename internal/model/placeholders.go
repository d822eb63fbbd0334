package model

import (
	"unicode/utf8"

	"github.com/knc-neural-calculus/loom/internal/tree"
)

// GeneratingMarker is the transient text shown on placeholder nodes between
// dispatch and reconciliation.
const GeneratingMarker = "\n\n** Generating **"

// PlaceholderSet records the speculative nodes created for one generation
// request. Ownership of these ids transfers to the generation worker until
// reconciliation hands them back through Fill or Rollback.
type PlaceholderSet struct {
	Children      []string
	Grandchildren []string
	Prompt        string
}

// CreatePlaceholders creates the speculative children (and, in adaptive
// mode, one grandchild per child) under the given node, computes the request
// prompt from the first child's ancestry before the marker text is applied,
// stamps all placeholders with the marker, and refreshes the tree — all as
// one atomic edit so a client sees pending state before the backend call is
// dispatched.
func (m *Model) CreatePlaceholders(nodeID string, settings tree.GenerationSettings, selectFirst bool) (PlaceholderSet, error) {
	defer m.flush()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.doc == nil {
		return PlaceholderSet{}, ErrNoDocument
	}
	n, ok := m.index[nodeID]
	if !ok {
		return PlaceholderSet{}, ErrNotFound
	}

	var set PlaceholderSet
	var placeholders []*tree.Node
	for i := 0; i < settings.NumContinuations; i++ {
		child := m.createChildLocked(n, false, true)
		set.Children = append(set.Children, child.ID)
		placeholders = append(placeholders, child)
		if settings.Adaptive {
			grandchild := m.createChildLocked(child, false, true)
			set.Grandchildren = append(set.Grandchildren, grandchild.ID)
			placeholders = append(placeholders, grandchild)
		}
	}
	if len(set.Children) == 0 {
		return PlaceholderSet{}, ErrStructuralViolation
	}

	// Prompt from the first child's ancestry while its text is still empty.
	// The memory prefix is not counted against the prompt length.
	var prompt string
	for _, a := range tree.Ancestry(m.index[set.Children[0]], m.index) {
		prompt += a.Text
	}
	set.Prompt = settings.Memory + tail(prompt, settings.PromptLength)

	for _, p := range placeholders {
		p.Text = GeneratingMarker
	}
	m.refreshLocked()
	if selectFirst {
		m.selectLocked(set.Children[0])
	}
	return set, nil
}

// Fill is one reconciliation write onto a placeholder.
type Fill struct {
	ID   string
	Text string
}

// FillPlaceholders writes completion text onto placeholders as one atomic
// edit with a single refresh. Ids that no longer resolve (the subtree was
// edited away while the backend call was in flight) are skipped.
func (m *Model) FillPlaceholders(fills []Fill) error {
	defer m.flush()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.doc == nil {
		return ErrNoDocument
	}
	for _, f := range fills {
		if n, ok := m.index[f.ID]; ok {
			n.Text = f.Text
		}
	}
	m.refreshLocked()
	return nil
}

// RollbackPlaceholders writes diagnostic text onto each placeholder and then
// removes it (with its subtree, so adaptive grandchildren go too). One
// refresh covers the whole rollback.
func (m *Model) RollbackPlaceholders(ids []string, diagnostic string) error {
	defer m.flush()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.doc == nil {
		return ErrNoDocument
	}
	for _, id := range ids {
		n, ok := m.index[id]
		if !ok {
			continue
		}
		n.Text = diagnostic
		if parent, ok := m.index[n.ParentID]; ok {
			parent.Children = removeChild(parent.Children, n)
		}
	}
	m.refreshLocked()
	return nil
}

// tail returns the trailing n bytes of s, advanced to a rune boundary.
func tail(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	cut := len(s) - n
	for cut < len(s) && !utf8.RuneStart(s[cut]) {
		cut++
	}
	return s[cut:]
}
