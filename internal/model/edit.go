package model

import (
	"strings"

	"github.com/knc-neural-calculus/loom/internal/tree"
)

// createChildLocked appends a new empty-text leaf as parent's last child and
// rebuilds the index.
func (m *Model) createChildLocked(parent *tree.Node, selectNew, expand bool) *tree.Node {
	child := &tree.Node{ID: tree.NewID(), ParentID: parent.ID}
	parent.Children = append(parent.Children, child)
	m.refreshLocked()
	if selectNew {
		m.selectLocked(child.ID)
	}
	if expand {
		child.Open = true
	}
	return child
}

// CreateChild appends a new empty child to the given parent and returns its
// id. The new node optionally becomes the selection and is optionally marked
// open.
func (m *Model) CreateChild(parentID string, selectNew, expand bool) (string, error) {
	defer m.flush()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.doc == nil {
		return "", ErrNoDocument
	}
	parent, ok := m.index[parentID]
	if !ok {
		return "", ErrNotFound
	}
	return m.createChildLocked(parent, selectNew, expand).ID, nil
}

// CreateSibling appends a new empty child to the node's parent.
func (m *Model) CreateSibling(nodeID string, selectNew bool) (string, error) {
	defer m.flush()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.doc == nil {
		return "", ErrNoDocument
	}
	n, ok := m.index[nodeID]
	if !ok {
		return "", ErrNotFound
	}
	if n.ParentID == "" {
		return "", ErrStructuralViolation
	}
	return m.createChildLocked(m.index[n.ParentID], selectNew, true).ID, nil
}

// CreateParent inserts a new empty node between the given node and its former
// parent. If the node was the root, the new node becomes the root.
func (m *Model) CreateParent(nodeID string) (string, error) {
	defer m.flush()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.doc == nil {
		return "", ErrNoDocument
	}
	n, ok := m.index[nodeID]
	if !ok {
		return "", ErrNotFound
	}

	newParent := &tree.Node{ID: tree.NewID(), Children: []*tree.Node{n}}
	if n.ParentID == "" {
		m.doc.Root = newParent
	} else {
		old := m.index[n.ParentID]
		for i, c := range old.Children {
			if c == n {
				old.Children[i] = newParent
				break
			}
		}
		newParent.ParentID = old.ID
	}
	n.ParentID = newParent.ID
	m.refreshLocked()
	return newParent.ID, nil
}

// MergeWithParent appends the node's text onto its parent, splices the node's
// children into the parent's child list at the node's former position, and
// removes the node. Silent no-op on the root.
func (m *Model) MergeWithParent(nodeID string) error {
	defer m.flush()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.doc == nil {
		return ErrNoDocument
	}
	n, ok := m.index[nodeID]
	if !ok {
		return ErrNotFound
	}
	if n.ParentID == "" {
		return nil
	}

	parent := m.index[n.ParentID]
	parent.Text += n.Text

	idx := childIndex(parent, n)
	merged := make([]*tree.Node, 0, len(parent.Children)-1+len(n.Children))
	merged = append(merged, parent.Children[:idx]...)
	merged = append(merged, n.Children...)
	merged = append(merged, parent.Children[idx+1:]...)
	parent.Children = merged
	for _, c := range n.Children {
		c.ParentID = parent.ID
	}

	m.dropChapterLocked(n)
	m.refreshLocked()
	m.selectLocked(parent.ID)
	return nil
}

// MergeWithChildren prepends the node's text onto each child, then deletes
// the node with its children reassigned to its own parent.
func (m *Model) MergeWithChildren(nodeID string) error {
	defer m.flush()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.doc == nil {
		return ErrNoDocument
	}
	n, ok := m.index[nodeID]
	if !ok {
		return ErrNotFound
	}
	if n.ParentID == "" {
		return ErrStructuralViolation
	}

	for _, c := range n.Children {
		c.Text = n.Text + c.Text
	}
	return m.deleteLocked(n, true)
}

// ChangeParent re-homes the node as the last child of another parent. No-op
// if the new parent is the node itself or its current parent. Reparenting the
// root, or reparenting under one's own descendant, is rejected.
func (m *Model) ChangeParent(nodeID, newParentID string) error {
	defer m.flush()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.doc == nil {
		return ErrNoDocument
	}
	n, ok := m.index[nodeID]
	if !ok {
		return ErrNotFound
	}
	newParent, ok := m.index[newParentID]
	if !ok {
		return ErrNotFound
	}
	if newParentID == n.ID || newParentID == n.ParentID {
		return nil
	}
	if n.ParentID == "" {
		return ErrStructuralViolation
	}
	// Attaching under one's own descendant would close a cycle.
	for _, ancestor := range tree.Ancestry(newParent, m.index) {
		if ancestor == n {
			return ErrStructuralViolation
		}
	}

	old := m.index[n.ParentID]
	old.Children = removeChild(old.Children, n)
	n.ParentID = newParent.ID
	newParent.Children = append(newParent.Children, n)
	m.refreshLocked()
	return nil
}

// DeleteNode removes the node. With reassignChildren its children are
// appended in order to its former parent and the parent is selected;
// otherwise the whole subtree goes and the sibling at the node's former index
// (clipped) is selected, or the parent if no siblings remain. Deleting the
// root is rejected.
func (m *Model) DeleteNode(nodeID string, reassignChildren bool) error {
	defer m.flush()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.doc == nil {
		return ErrNoDocument
	}
	n, ok := m.index[nodeID]
	if !ok {
		return ErrNotFound
	}
	return m.deleteLocked(n, reassignChildren)
}

func (m *Model) deleteLocked(n *tree.Node, reassignChildren bool) error {
	if n.ParentID == "" {
		return ErrStructuralViolation
	}

	parent := m.index[n.ParentID]
	oldIdx := childIndex(parent, n)
	parent.Children = removeChild(parent.Children, n)

	if reassignChildren {
		for _, c := range n.Children {
			c.ParentID = parent.ID
		}
		parent.Children = append(parent.Children, n.Children...)
		m.dropChapterLocked(n)
	} else {
		m.dropChaptersBelowLocked(n)
	}

	m.refreshLocked()
	if reassignChildren || len(parent.Children) == 0 {
		m.selectLocked(parent.ID)
	} else {
		m.selectLocked(parent.Children[clip(oldIdx, 0, len(parent.Children)-1)].ID)
	}
	return nil
}

// UpdateText replaces the node's text, redistributing trimmed trailing spaces
// to every direct child so the total rendered whitespace across the split
// point is preserved. Notification fires only if text or active text actually
// changed.
func (m *Model) UpdateText(nodeID, text string, activeText *string) error {
	defer m.flush()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.doc == nil {
		return ErrNoDocument
	}
	n, ok := m.index[nodeID]
	if !ok {
		return ErrNotFound
	}

	trimmed := strings.TrimRight(text, " ")
	pad := strings.Repeat(" ", len(text)-len(trimmed))

	edited := false
	if n.Text != trimmed {
		for _, c := range n.Children {
			c.Text = pad + c.Text
		}
		n.Text = trimmed
		edited = true
	}
	if activeText != nil && n.ActiveText != *activeText {
		n.ActiveText = *activeText
		edited = true
	}
	if edited {
		m.refreshLocked()
	}
	return nil
}

func childIndex(parent *tree.Node, n *tree.Node) int {
	for i, c := range parent.Children {
		if c == n {
			return i
		}
	}
	return -1
}

func removeChild(children []*tree.Node, n *tree.Node) []*tree.Node {
	out := children[:0]
	for _, c := range children {
		if c != n {
			out = append(out, c)
		}
	}
	return out
}
