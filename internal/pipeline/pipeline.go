// Package pipeline drives one-shot document ingestion and exposes the
// conversational engine to callers.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/docchat/docchat/internal/chunker"
	"github.com/docchat/docchat/internal/document"
	"github.com/docchat/docchat/internal/engine"
	"github.com/docchat/docchat/internal/history"
	"github.com/docchat/docchat/internal/index"
)

// Ingestion stages reported in IngestionError.
const (
	StageLoad  = "load"
	StageChunk = "chunk"
	StageEmbed = "embed"
)

// IngestionError reports which stage of an ingestion failed. A failed
// ingestion never disturbs a previously published index.
type IngestionError struct {
	Stage string
	Err   error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingestion failed at %s stage: %v", e.Stage, e.Err)
}

func (e *IngestionError) Unwrap() error { return e.Err }

// Result summarizes a successful ingestion.
type Result struct {
	Ready        bool
	Message      string
	Pages        int
	DroppedPages int
	Chunks       int
	Duration     time.Duration
}

// ChatResult is the boundary response for one chat turn. History uses the
// flat wire format: [q1, a1, q2, a2, ...].
type ChatResult struct {
	Answer  string
	Sources []string
	History []string
}

// Status reports engine state and last-ingest statistics.
type Status struct {
	State  string
	Ready  bool
	Chunks int
	Last   *Result
}

// LoadFunc resolves a path to a loaded document. Production callers pass
// document.Load; tests substitute fakes.
type LoadFunc func(path string) (*document.Document, error)

// Coordinator runs load -> chunk -> build in sequence and publishes the
// result to the engine. Exactly one document index is active; each
// ingestion replaces it wholesale.
type Coordinator struct {
	load    LoadFunc
	chunker *chunker.Chunker
	builder index.Builder
	engine  *engine.Engine
	logger  *slog.Logger

	last atomic.Pointer[Result]
}

// NewCoordinator wires the ingestion pipeline to an engine. A nil load
// function selects document.Load.
func NewCoordinator(load LoadFunc, ch *chunker.Chunker, builder index.Builder, eng *engine.Engine, logger *slog.Logger) *Coordinator {
	if load == nil {
		load = document.Load
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{load: load, chunker: ch, builder: builder, engine: eng, logger: logger}
}

// Ingest builds a fresh index from the file at path and flips the engine
// to READY. On any failure the prior index and readiness are left
// unchanged. A second ingestion arriving while one is building is
// rejected with engine.ErrBusy.
func (c *Coordinator) Ingest(ctx context.Context, path string) (*Result, error) {
	if err := c.engine.BeginBuild(); err != nil {
		return nil, err
	}

	start := time.Now()
	c.logger.Info("Starting ingestion", "path", path)

	doc, err := c.load(path)
	if err != nil {
		c.engine.AbortBuild()
		return nil, &IngestionError{Stage: StageLoad, Err: err}
	}
	c.logger.Info("Loaded document", "path", path, "pages", doc.TotalPages())

	chunks := c.chunker.Chunk(doc)
	if len(chunks) == 0 {
		c.engine.AbortBuild()
		return nil, &IngestionError{Stage: StageChunk, Err: errors.New("document produced no indexable chunks")}
	}
	dropped := doc.TotalPages() - countPages(chunks)

	searcher, err := c.builder.Build(ctx, chunks)
	if err != nil {
		c.engine.AbortBuild()
		return nil, &IngestionError{Stage: StageEmbed, Err: err}
	}

	c.engine.Publish(searcher)

	result := &Result{
		Ready:        true,
		Message:      fmt.Sprintf("Indexed %d chunks from %d pages", len(chunks), doc.TotalPages()),
		Pages:        doc.TotalPages(),
		DroppedPages: dropped,
		Chunks:       len(chunks),
		Duration:     time.Since(start),
	}
	c.last.Store(result)

	c.logger.Info("Ingestion complete",
		"pages", result.Pages,
		"dropped_pages", result.DroppedPages,
		"chunks", result.Chunks,
		"duration", result.Duration,
	)
	return result, nil
}

// Chat answers one question given the flat wire history and returns the
// answer, its sources, and the history extended by the completed turn.
func (c *Coordinator) Chat(ctx context.Context, question string, wire []string) (*ChatResult, error) {
	turns := history.FromWire(wire)

	answer, err := c.engine.Answer(ctx, question, turns)
	if err != nil {
		return nil, err
	}

	updated := history.ToWire(history.Append(turns, question, answer.Text))
	return &ChatResult{
		Answer:  answer.Text,
		Sources: answer.Sources,
		History: updated,
	}, nil
}

// Status reports the current engine state and last-ingest statistics.
func (c *Coordinator) Status() Status {
	return Status{
		State:  c.engine.State().String(),
		Ready:  c.engine.Ready(),
		Chunks: c.engine.ChunkCount(),
		Last:   c.last.Load(),
	}
}

// countPages counts distinct source pages among the chunks.
func countPages(chunks []chunker.Chunk) int {
	seen := make(map[int]struct{}, len(chunks))
	for _, c := range chunks {
		seen[c.Page] = struct{}{}
	}
	return len(seen)
}
