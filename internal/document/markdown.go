package document

import (
	"fmt"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"
)

// MarkdownLoader loads .md files and pages them at top-level headings.
// A document without headings becomes a single page.
type MarkdownLoader struct {
	parser goldmark.Markdown
}

// NewMarkdownLoader creates a markdown loader backed by a goldmark parser.
func NewMarkdownLoader() *MarkdownLoader {
	md := goldmark.New(
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)
	return &MarkdownLoader{parser: md}
}

// Extensions returns the file extensions handled by this loader.
func (l *MarkdownLoader) Extensions() []string { return []string{".md", ".markdown"} }

// Load parses the markdown file and emits one page per H1 section.
func (l *MarkdownLoader) Load(path string) (*Document, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	reader := text.NewReader(source)
	doc := l.parser.Parser().Parse(reader)

	tree, err := toc.Inspect(doc, source,
		toc.MinDepth(1),
		toc.MaxDepth(1),
		toc.Compact(true),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: inspect headings: %v", ErrUnreadable, err)
	}

	// No top-level headings: the whole file is one page.
	if len(tree.Items) == 0 {
		return &Document{
			Path:  path,
			Pages: []Page{{Number: 1, Text: string(source)}},
		}, nil
	}

	starts := make([]int, 0, len(tree.Items))
	for _, item := range tree.Items {
		heading := headingByID(doc, string(item.ID))
		if heading == nil || heading.Lines().Len() == 0 {
			continue
		}
		// The heading segment starts after the "# " marker; back up to
		// the start of its line so the page keeps the marker.
		starts = append(starts, lineStart(source, heading.Lines().At(0).Start))
	}

	var pages []Page
	for i, start := range starts {
		end := len(source)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		section := strings.TrimSpace(string(source[start:end]))
		pages = append(pages, Page{Number: len(pages) + 1, Text: section})
	}

	return &Document{Path: path, Pages: pages}, nil
}

// lineStart returns the offset of the first byte of the line containing pos.
func lineStart(source []byte, pos int) int {
	for pos > 0 && source[pos-1] != '\n' {
		pos--
	}
	return pos
}

// headingByID locates a heading node by its auto-generated ID.
func headingByID(root ast.Node, id string) ast.Node {
	var found ast.Node
	ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering && n.Kind() == ast.KindHeading {
			if attr, ok := n.AttributeString("id"); ok && string(attr.([]byte)) == id {
				found = n
				return ast.WalkStop, nil
			}
		}
		return ast.WalkContinue, nil
	})
	return found
}
