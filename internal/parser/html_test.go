package parser

import (
	"strings"
	"testing"
)

func TestHTMLParser_HeadingSections(t *testing.T) {
	input := `<html><head><title>Ignored</title><style>p{color:red}</style></head>
<body>
<h1>Chapter One</h1>
<p>It was a dark night.</p>
<h2>Scene A</h2>
<p>Rain fell.</p>
<h1>Chapter Two</h1>
<p>Morning came.</p>
</body></html>`

	p := &HTMLParser{}
	root, err := p.Parse(strings.NewReader(input), "story.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(root.Children) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(root.Children))
	}

	ch1 := root.Children[0]
	if !strings.HasPrefix(ch1.Text, "\n\nChapter One") {
		t.Errorf("expected chapter heading, got %q", ch1.Text)
	}
	if !strings.Contains(ch1.Text, "It was a dark night.") {
		t.Errorf("expected chapter body, got %q", ch1.Text)
	}
	if len(ch1.Children) != 1 || !strings.Contains(ch1.Children[0].Text, "Rain fell.") {
		t.Fatalf("expected nested scene with body, got %+v", ch1.Children)
	}

	if !strings.Contains(root.Children[1].Text, "Morning came.") {
		t.Errorf("expected second chapter body, got %q", root.Children[1].Text)
	}
}

func TestHTMLParser_SkipsNonContent(t *testing.T) {
	input := `<body><script>alert(1)</script><nav>menu</nav><p>Real text.</p></body>`

	p := &HTMLParser{}
	root, err := p.Parse(strings.NewReader(input), "page.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if strings.Contains(root.Text, "alert") || strings.Contains(root.Text, "menu") {
		t.Errorf("non-content leaked into text: %q", root.Text)
	}
	if !strings.Contains(root.Text, "Real text.") {
		t.Errorf("expected paragraph text, got %q", root.Text)
	}
}
