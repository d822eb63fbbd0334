package model

import "github.com/knc-neural-calculus/loom/internal/tree"

// selectLocked moves the cursor. No-op (returns false) if id is the current
// selection or does not resolve. Otherwise: pre-selection event, cursor
// update, visited mark, all strict ancestors plus the root forced open,
// cursor persisted into the document, selection event.
func (m *Model) selectLocked(id string) bool {
	if m.doc == nil || id == m.doc.SelectedNodeID {
		return false
	}
	n, ok := m.index[id]
	if !ok {
		return false
	}

	prev := m.doc.SelectedNodeID
	m.publishLocked(PreSelectionChanged, id, prev)

	m.doc.SelectedNodeID = id
	n.Visited = true

	lineage := tree.Ancestry(n, m.index)
	for _, ancestor := range lineage[:len(lineage)-1] {
		ancestor.Open = true
	}
	m.doc.Root.Open = true

	m.publishLocked(SelectionChanged, id, prev)
	return true
}

// Select moves the cursor to the given node. Returns false if the id is the
// current selection or unknown.
func (m *Model) Select(id string) bool {
	defer m.flush()
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selectLocked(id)
}

// MoveBy shifts the selection by offset positions in flatten order, clipping
// to [0, count-1]. Out-of-range offsets saturate at the ends.
func (m *Model) MoveBy(offset int) bool {
	defer m.flush()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.doc == nil || len(m.order) == 0 {
		return false
	}
	idx := 0
	for i, n := range m.order {
		if n.ID == m.doc.SelectedNodeID {
			idx = i
			break
		}
	}
	idx = clip(idx+offset, 0, len(m.order)-1)
	return m.selectLocked(m.order[idx].ID)
}

// SelectParent moves the cursor to the selected node's parent.
func (m *Model) SelectParent() bool {
	defer m.flush()
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.selectedLocked()
	if n == nil || n.ParentID == "" {
		return false
	}
	return m.selectLocked(n.ParentID)
}

// SelectChild moves the cursor to the selected node's nth child, clipping n
// to the existing children.
func (m *Model) SelectChild(n int) bool {
	defer m.flush()
	m.mu.Lock()
	defer m.mu.Unlock()
	sel := m.selectedLocked()
	if sel == nil || len(sel.Children) == 0 {
		return false
	}
	n = clip(n, 0, len(sel.Children)-1)
	return m.selectLocked(sel.Children[n].ID)
}

// SelectSibling moves the cursor by offset among the selected node's
// siblings, wrapping cyclically.
func (m *Model) SelectSibling(offset int) bool {
	defer m.flush()
	m.mu.Lock()
	defer m.mu.Unlock()
	sel := m.selectedLocked()
	if sel == nil || sel.ParentID == "" {
		return false
	}
	siblings := m.index[sel.ParentID].Children
	idx := 0
	for i, s := range siblings {
		if s == sel {
			idx = i
			break
		}
	}
	idx = mod(idx+offset, len(siblings))
	return m.selectLocked(siblings[idx].ID)
}

func (m *Model) selectedLocked() *tree.Node {
	if m.doc == nil {
		return nil
	}
	return m.index[m.doc.SelectedNodeID]
}

func clip(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

func mod(n, m int) int {
	return ((n % m) + m) % m
}
