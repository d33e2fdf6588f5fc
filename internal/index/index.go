// Package index embeds chunks and serves nearest-neighbor retrieval.
//
// An index is built wholesale from one document's chunks and is immutable
// afterwards; re-ingestion builds a fresh index off to the side and the
// engine swaps it in atomically.
package index

import (
	"context"

	"github.com/docchat/docchat/internal/chunker"
)

// DefaultTopK is the number of chunks retrieved per query.
const DefaultTopK = 4

// Result is one retrieved chunk with its relevance score.
type Result struct {
	Chunk chunker.Chunk
	Score float64
}

// Searcher is a fully built, immutable index.
type Searcher interface {
	// Search embeds the query text and returns the top-k chunks ordered
	// by descending similarity, ties broken by original chunk order.
	Search(ctx context.Context, query string, k int) ([]Result, error)

	// Len reports the number of indexed chunks.
	Len() int
}

// Builder constructs a new index from chunks. Build is all-or-nothing:
// on any failure no partial index is returned.
type Builder interface {
	Build(ctx context.Context, chunks []chunker.Chunk) (Searcher, error)
}
