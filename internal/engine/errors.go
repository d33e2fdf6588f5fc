package engine

import "errors"

var (
	// ErrNotInitialized is returned when chat is requested before any
	// successful ingestion. Distinct from generation failures so the
	// caller can tell the user to upload a document first.
	ErrNotInitialized = errors.New("no document ingested yet: upload and process a document before asking questions")

	// ErrBusy is returned when an ingestion arrives while another build
	// is in flight.
	ErrBusy = errors.New("an ingestion is already in progress")

	// ErrReformulation is returned when the reformulation model call fails.
	ErrReformulation = errors.New("query reformulation failed")

	// ErrRetrieval is returned when retrieval against the index fails.
	ErrRetrieval = errors.New("retrieval failed")

	// ErrGeneration is returned when answer synthesis fails.
	ErrGeneration = errors.New("answer generation failed")
)
