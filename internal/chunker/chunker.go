// Package chunker splits document pages into bounded, overlapping text chunks.
package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/docchat/docchat/internal/document"
)

const (
	// DefaultMaxChunkSize is the maximum chunk length in characters.
	DefaultMaxChunkSize = 1000

	// DefaultOverlap is the number of trailing characters carried into
	// the next chunk from the same page.
	DefaultOverlap = 100

	// MinPageChars is the minimum cleaned page length. Pages below this
	// are dropped entirely and never indexed.
	MinPageChars = 50

	// MethodTag identifies the chunking method in chunk metadata.
	MethodTag = "smart_page_splitter"
)

// separators is the split hierarchy: paragraph breaks first, then line
// breaks, then word boundaries, then arbitrary character positions.
var separators = []string{"\n\n", "\n", " ", ""}

// Chunk is one retrievable unit of cleaned page text with provenance.
type Chunk struct {
	Text       string
	Page       int // 1-based page number
	TotalPages int
	CharCount  int // cleaned length of the source page, not the chunk
	Method     string
}

// Chunker splits cleaned page text into chunks of bounded size.
type Chunker struct {
	maxSize int
	overlap int
}

// New creates a Chunker. Non-positive arguments fall back to defaults.
func New(maxSize, overlap int) *Chunker {
	if maxSize <= 0 {
		maxSize = DefaultMaxChunkSize
	}
	if overlap < 0 || overlap >= maxSize {
		overlap = DefaultOverlap
	}
	return &Chunker{maxSize: maxSize, overlap: overlap}
}

// Chunk cleans every page, drops pages shorter than MinPageChars, and
// splits the survivors. Output order is stable: pages in document order,
// chunks within a page in split order.
func (c *Chunker) Chunk(doc *document.Document) []Chunk {
	total := doc.TotalPages()

	var chunks []Chunk
	for _, page := range doc.Pages {
		cleaned := CleanText(page.Text)
		// Lengths count characters, not bytes, so multibyte pages are
		// measured the same as ASCII ones.
		charCount := utf8.RuneCountInString(cleaned)
		if charCount < MinPageChars {
			continue
		}
		for _, part := range c.splitText(cleaned) {
			chunks = append(chunks, Chunk{
				Text:       part,
				Page:       page.Number,
				TotalPages: total,
				CharCount:  charCount,
				Method:     MethodTag,
			})
		}
	}
	return chunks
}

// CleanText collapses whitespace runs to single spaces and normalizes
// ligature glyphs left behind by PDF text extraction.
func CleanText(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	text = strings.ReplaceAll(text, "ﬁ", "fi")
	text = strings.ReplaceAll(text, "ﬂ", "fl")
	return text
}

// splitText splits cleaned text into pieces of at most maxSize characters
// with overlap between consecutive pieces.
func (c *Chunker) splitText(text string) []string {
	return c.split(text, separators)
}

// split recursively applies the separator hierarchy. Fragments that fit
// are merged back up to maxSize with overlap; oversized fragments recurse
// into the next finer separator.
func (c *Chunker) split(text string, seps []string) []string {
	if utf8.RuneCountInString(text) <= c.maxSize {
		return []string{text}
	}

	sep, finer := pickSeparator(text, seps)
	if sep == "" {
		return c.hardSplit(text)
	}

	parts := strings.Split(text, sep)

	var out []string
	var fitting []string
	for _, part := range parts {
		if utf8.RuneCountInString(part) <= c.maxSize {
			fitting = append(fitting, part)
			continue
		}
		out = append(out, c.merge(fitting, sep)...)
		fitting = nil
		out = append(out, c.split(part, finer)...)
	}
	out = append(out, c.merge(fitting, sep)...)
	return out
}

// pickSeparator returns the first separator present in the text and the
// remaining, finer separators after it.
func pickSeparator(text string, seps []string) (string, []string) {
	for i, s := range seps {
		if s == "" {
			return "", nil
		}
		if strings.Contains(text, s) {
			return s, seps[i+1:]
		}
	}
	return "", nil
}

// merge joins fragments into chunks of at most maxSize characters. When a
// chunk is emitted, trailing fragments totalling at most overlap characters
// seed the next chunk.
func (c *Chunker) merge(parts []string, sep string) []string {
	if len(parts) == 0 {
		return nil
	}

	var chunks []string
	var cur []string

	sepLen := utf8.RuneCountInString(sep)
	joinedLen := func(ps []string) int {
		n := 0
		for i, p := range ps {
			if i > 0 {
				n += sepLen
			}
			n += utf8.RuneCountInString(p)
		}
		return n
	}

	for _, part := range parts {
		partLen := utf8.RuneCountInString(part)
		if len(cur) > 0 && joinedLen(cur)+sepLen+partLen > c.maxSize {
			chunks = append(chunks, strings.Join(cur, sep))
			// Retain a tail of at most overlap characters that still
			// leaves room for the incoming fragment.
			for len(cur) > 0 &&
				(joinedLen(cur) > c.overlap || joinedLen(cur)+sepLen+partLen > c.maxSize) {
				cur = cur[1:]
			}
		}
		cur = append(cur, part)
	}
	if len(cur) > 0 {
		chunks = append(chunks, strings.Join(cur, sep))
	}
	return chunks
}

// hardSplit cuts text at fixed character positions with overlap. Used only
// when no coarser boundary exists. Cutting on rune boundaries keeps every
// chunk valid UTF-8.
func (c *Chunker) hardSplit(text string) []string {
	step := c.maxSize - c.overlap
	if step <= 0 {
		step = c.maxSize
	}

	runes := []rune(text)
	var out []string
	for start := 0; start < len(runes); start += step {
		end := start + c.maxSize
		if end >= len(runes) {
			out = append(out, string(runes[start:]))
			break
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}
