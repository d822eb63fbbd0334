package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/knc-neural-calculus/loom/internal/tree"
)

// TextParser handles plain text files. A text manuscript is linear, so each
// paragraph becomes a child of the previous one: the import reads straight
// through and every paragraph is a point where the story can fork.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*tree.Node, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var paragraphs []string
	var current strings.Builder

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
		} else {
			if current.Len() > 0 {
				current.WriteString("\n")
			}
			current.WriteString(line)
		}
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	root := &tree.Node{}
	tail := root
	for _, para := range paragraphs {
		next := &tree.Node{Text: "\n\n" + para}
		tail.Children = append(tail.Children, next)
		tail = next
	}

	return root, nil
}
