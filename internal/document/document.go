// Package document loads uploaded files into an ordered sequence of pages.
package document

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupportedFormat is returned when no loader handles the file extension.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrUnreadable is returned when a file exists but cannot be parsed.
	ErrUnreadable = errors.New("document unreadable")
)

// Page is the raw text of a single document page.
type Page struct {
	Number int // 1-based
	Text   string
}

// Document is an ordered sequence of pages produced by a Loader.
// It is immutable once loaded.
type Document struct {
	Path  string
	Pages []Page
}

// TotalPages returns the page count of the document.
func (d *Document) TotalPages() int {
	return len(d.Pages)
}

// Loader reads a file from disk and splits it into pages.
type Loader interface {
	// Load parses the file at path. It fails with an error wrapping
	// ErrUnreadable on corrupt or unparseable input.
	Load(path string) (*Document, error)

	// Extensions returns the lowercase file extensions this loader handles.
	Extensions() []string
}

// LoaderFor selects a loader based on the file extension.
func LoaderFor(path string) (Loader, error) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, l := range []Loader{NewTextLoader(), NewMarkdownLoader(), NewPDFLoader()} {
		for _, e := range l.Extensions() {
			if e == ext {
				return l, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
}

// Load is a convenience that picks a loader by extension and runs it.
func Load(path string) (*Document, error) {
	loader, err := LoaderFor(path)
	if err != nil {
		return nil, err
	}
	return loader.Load(path)
}
