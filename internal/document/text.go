package document

import (
	"fmt"
	"os"
	"strings"
)

// textPageSize bounds how much raw text goes into one synthetic page.
// Plain text files carry no page structure, so we page on blank lines
// and cap accumulated size to keep pages comparable to PDF pages.
const textPageSize = 3000

// TextLoader loads plain .txt files, paging at blank-line boundaries.
type TextLoader struct {
	pageSize int
}

// NewTextLoader creates a plain-text loader with the default page size.
func NewTextLoader() *TextLoader {
	return &TextLoader{pageSize: textPageSize}
}

// Extensions returns the file extensions handled by this loader.
func (l *TextLoader) Extensions() []string { return []string{".txt", ".text"} }

// Load reads the file and groups paragraphs into synthetic pages.
func (l *TextLoader) Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	paragraphs := strings.Split(string(data), "\n\n")

	var pages []Page
	var buf strings.Builder
	flush := func() {
		if buf.Len() == 0 {
			return
		}
		pages = append(pages, Page{Number: len(pages) + 1, Text: buf.String()})
		buf.Reset()
	}

	for _, para := range paragraphs {
		if buf.Len() > 0 && buf.Len()+len(para) > l.pageSize {
			flush()
		}
		if buf.Len() > 0 {
			buf.WriteString("\n\n")
		}
		buf.WriteString(para)
	}
	flush()

	return &Document{Path: path, Pages: pages}, nil
}
