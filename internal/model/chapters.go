package model

import "github.com/knc-neural-calculus/loom/internal/tree"

// CreateChapter marks the node as the root of a named chapter, replacing any
// chapter already anchored there. An empty title just clears the existing
// chapter. Returns the new chapter id, or "" when cleared.
func (m *Model) CreateChapter(nodeID, title string) (string, error) {
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

	m.dropChapterLocked(n)

	id := ""
	if title != "" {
		ch := &tree.Chapter{ID: tree.NewID(), RootID: n.ID, Title: title}
		m.doc.Chapters[ch.ID] = ch
		n.ChapterID = ch.ID
		id = ch.ID
	}
	m.refreshLocked()
	return id, nil
}

// DeleteChapter removes a chapter from the registry and clears its node tag.
func (m *Model) DeleteChapter(chapterID string) error {
	defer m.flush()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.doc == nil {
		return ErrNoDocument
	}
	ch, ok := m.doc.Chapters[chapterID]
	if !ok {
		return ErrNotFound
	}
	delete(m.doc.Chapters, ch.ID)
	if n, ok := m.index[ch.RootID]; ok {
		n.ChapterID = ""
	}
	m.refreshLocked()
	return nil
}

// RemoveAllChapters strips every chapter at or below the given node; an empty
// id means the whole tree.
func (m *Model) RemoveAllChapters(nodeID string) error {
	defer m.flush()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.doc == nil {
		return ErrNoDocument
	}
	n := m.doc.Root
	if nodeID != "" {
		var ok bool
		if n, ok = m.index[nodeID]; !ok {
			return ErrNotFound
		}
	}
	m.dropChaptersBelowLocked(n)
	m.refreshLocked()
	return nil
}

// dropChapterLocked removes the chapter anchored at n, if any.
func (m *Model) dropChapterLocked(n *tree.Node) {
	if n.ChapterID == "" {
		return
	}
	delete(m.doc.Chapters, n.ChapterID)
	n.ChapterID = ""
}

// dropChaptersBelowLocked removes every chapter in n's subtree, n included.
func (m *Model) dropChaptersBelowLocked(n *tree.Node) {
	m.dropChapterLocked(n)
	for _, c := range n.Children {
		m.dropChaptersBelowLocked(c)
	}
}

// ChapterOf resolves the chapter governing a node: its own, or the nearest
// ancestor's. The second return is false for a node with no chapter anywhere
// in its lineage.
func (m *Model) ChapterOf(nodeID string) (tree.Chapter, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.doc == nil {
		return tree.Chapter{}, false, ErrNoDocument
	}
	n, ok := m.index[nodeID]
	if !ok {
		return tree.Chapter{}, false, ErrNotFound
	}
	lineage := tree.Ancestry(n, m.index)
	for i := len(lineage) - 1; i >= 0; i-- {
		if lineage[i].ChapterID == "" {
			continue
		}
		if ch, ok := m.doc.Chapters[lineage[i].ChapterID]; ok {
			return *ch, true, nil
		}
	}
	return tree.Chapter{}, false, nil
}

// ChapterTree is one node of the derived chapter forest: a chapter plus the
// chapter trees found among its descendants, skipping all non-chapter nodes.
type ChapterTree struct {
	ID       string         `json:"id"`
	Chapter  tree.Chapter   `json:"chapter"`
	Children []*ChapterTree `json:"children,omitempty"`
}

// BuildChapterTrees derives the chapter forest mirroring chapter nesting in
// the node tree, plus a flattened id-keyed view of it.
func (m *Model) BuildChapterTrees() ([]*ChapterTree, map[string]*ChapterTree, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.doc == nil {
		return nil, nil, ErrNoDocument
	}
	forest := m.chapterTreesLocked(m.doc.Root)
	flat := make(map[string]*ChapterTree)
	var walk func(ts []*ChapterTree)
	walk = func(ts []*ChapterTree) {
		for _, t := range ts {
			flat[t.ID] = t
			walk(t.Children)
		}
	}
	walk(forest)
	return forest, flat, nil
}

func (m *Model) chapterTreesLocked(n *tree.Node) []*ChapterTree {
	var kids []*ChapterTree
	for _, c := range n.Children {
		kids = append(kids, m.chapterTreesLocked(c)...)
	}
	if n.ChapterID != "" {
		if ch, ok := m.doc.Chapters[n.ChapterID]; ok {
			return []*ChapterTree{{ID: ch.ID, Chapter: *ch, Children: kids}}
		}
	}
	return kids
}
