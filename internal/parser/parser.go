// Package parser converts foreign documents into subtrees ready to be
// imported into a story tree. Section structure (headings, pages,
// paragraphs) becomes node structure so an imported manuscript can be
// branched at its natural seams.
package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/knc-neural-calculus/loom/internal/tree"
)

// Parser converts raw document bytes into an import subtree. The returned
// root carries no id; ids are assigned when the subtree is flattened into
// the live tree.
type Parser interface {
	Parse(r io.Reader, filename string) (*tree.Node, error)
}

// SupportedExtensions lists file extensions this service can import.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string) (Parser, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// appendBlock adds one block of body text to a section node, separated from
// whatever precedes it by a blank line.
func appendBlock(n *tree.Node, block string) {
	n.Text += "\n\n" + block
}

// sectionNode starts a new section whose text opens with its heading.
func sectionNode(heading string) *tree.Node {
	return &tree.Node{Text: "\n\n" + heading}
}
