package tree

import (
	"strings"

	"golang.org/x/net/html"
)

// Sanitize normalizes node text imported from rich-text sources, tree-wide
// over a flattened node sequence. Only nodes carrying paragraph markup are
// touched, so the pass is idempotent once the markup is gone: the html is
// converted to plain text, paragraph-break artifacts (doubled newlines) are
// collapsed, one leading and one trailing newline are stripped, trailing
// spaces are removed, and a single space is prepended when neither the node
// nor its parent supplies a line break at the join point.
func Sanitize(flat []*Node) {
	index := make(map[string]*Node, len(flat))
	for _, n := range flat {
		index[n.ID] = n
	}
	for _, n := range flat {
		if !strings.Contains(n.Text, "<p>") && !strings.Contains(n.Text, "</p") {
			continue
		}

		text := htmlToText(n.Text)

		// Paragraph tags produce doubled newlines.
		text = strings.ReplaceAll(text, "\n\n", "\n")

		// Drop the single leading and trailing newline added by tag wrappers.
		text = strings.TrimPrefix(text, "\n")
		text = strings.TrimSuffix(text, "\n")

		// Trailing spaces interfere with generation.
		text = strings.TrimRight(text, " ")

		// If neither this text nor its parent's supplies a newline at the
		// boundary, concatenated ancestry text would join two words.
		if !strings.HasPrefix(text, "\n") {
			parent, ok := index[n.ParentID]
			if n.ParentID == "" || (ok && !strings.HasSuffix(parent.Text, "\n")) {
				text = " " + text
			}
		}

		n.Text = text
	}
}

// htmlToText renders markup as plain text with paragraphs separated by blank
// lines and <br> as a single newline.
func htmlToText(s string) string {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return s
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
		case html.ElementNode:
			if n.Data == "br" {
				sb.WriteString("\n")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && n.Data == "p" {
			sb.WriteString("\n\n")
		}
	}
	walk(doc)

	return strings.TrimSuffix(sb.String(), "\n")
}
