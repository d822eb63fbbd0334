package tree

import "github.com/google/uuid"

// Node is one fragment of the story tree. The effective text of a node is the
// concatenation of its ancestors' text (root first) through itself, so sibling
// nodes represent divergent continuations of the same prefix.
type Node struct {
	ID         string  `json:"id,omitempty"`
	Text       string  `json:"text"`
	ParentID   string  `json:"parent_id,omitempty"`
	Children   []*Node `json:"children,omitempty"`
	ChapterID  string  `json:"chapter_id,omitempty"`
	Open       bool    `json:"open,omitempty"`
	Visited    bool    `json:"visited,omitempty"`
	ActiveText string  `json:"active_text,omitempty"`
}

// Chapter is named metadata anchored to one node. Descendants without their
// own chapter inherit the nearest ancestor's.
type Chapter struct {
	ID     string `json:"id"`
	RootID string `json:"root_id"`
	Title  string `json:"title"`
}

// Document is the full persisted unit: one tree plus its overlays and settings.
type Document struct {
	Root                  *Node                 `json:"root"`
	Chapters              map[string]*Chapter   `json:"chapters"`
	GenerationSettings    GenerationSettings    `json:"generation_settings"`
	VisualizationSettings VisualizationSettings `json:"visualization_settings"`
	SelectedNodeID        string                `json:"selected_node_id,omitempty"`
}

// NewID returns a fresh globally unique node or chapter id.
func NewID() string {
	return uuid.NewString()
}

// NewDocument returns an empty single-root document with default settings.
func NewDocument() *Document {
	return &Document{
		Root:                  &Node{ID: NewID(), Open: true},
		Chapters:              map[string]*Chapter{},
		GenerationSettings:    DefaultGenerationSettings(),
		VisualizationSettings: DefaultVisualizationSettings(),
	}
}
