package index

import "errors"

var (
	// ErrEmptyIndex is returned when a query runs against an index with
	// no chunks.
	ErrEmptyIndex = errors.New("index contains no chunks")

	// ErrNoChunks is returned when a build is attempted with no input.
	ErrNoChunks = errors.New("no chunks to index")

	// ErrDimensionMismatch is returned when embedding vectors disagree
	// on dimension within one index.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
