// Package engine orchestrates reformulation, retrieval, and grounded
// answer synthesis over a single document index.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/docchat/docchat/internal/history"
	"github.com/docchat/docchat/internal/index"
	"github.com/docchat/docchat/internal/llm"
)

// answerInstruction constrains synthesis to the retrieved evidence.
const answerInstruction = `You are an assistant for question-answering tasks. ` +
	`Use the following pieces of retrieved context to answer the question. ` +
	`If you don't know the answer, just say that you don't know. ` +
	`Use three sentences maximum and keep the answer concise.`

// sourceExcerptLen is how much of each retrieved chunk is surfaced as a
// source excerpt.
const sourceExcerptLen = 200

// State is the engine lifecycle state.
type State int32

const (
	StateNotReady State = iota
	StateBuilding
	StateReady
)

func (s State) String() string {
	switch s {
	case StateBuilding:
		return "building"
	case StateReady:
		return "ready"
	default:
		return "not_ready"
	}
}

// Answer is a generated response with provenance excerpts in retrieval
// rank order.
type Answer struct {
	Text    string
	Sources []string
}

// published wraps the current index so a single pointer swap replaces it.
type published struct {
	searcher index.Searcher
}

// Engine answers questions against the currently published index.
//
// The index pointer and the state word are the only shared mutable state.
// A build happens entirely off to the side; Publish swaps the pointer in
// one atomic store, so readers never observe a torn index. During a
// re-ingestion the previously published index keeps serving answers.
type Engine struct {
	reform *Reformulator
	gen    llm.Generator
	topK   int
	logger *slog.Logger

	state   atomic.Int32
	current atomic.Pointer[published]
}

// New creates an Engine in the NOT_READY state. topK <= 0 selects
// index.DefaultTopK.
func New(reform *Reformulator, gen llm.Generator, topK int, logger *slog.Logger) *Engine {
	if topK <= 0 {
		topK = index.DefaultTopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{reform: reform, gen: gen, topK: topK, logger: logger}
}

// State reports the current lifecycle state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Ready reports whether a usable index is published. It stays true during
// a re-ingestion build, when the previous index remains authoritative.
func (e *Engine) Ready() bool {
	return e.current.Load() != nil
}

// ChunkCount reports the size of the published index, 0 if none.
func (e *Engine) ChunkCount() int {
	if cur := e.current.Load(); cur != nil {
		return cur.searcher.Len()
	}
	return 0
}

// BeginBuild transitions into BUILDING. A second concurrent build is
// rejected with ErrBusy; ingestions are strictly serialized.
func (e *Engine) BeginBuild() error {
	if e.state.CompareAndSwap(int32(StateNotReady), int32(StateBuilding)) {
		return nil
	}
	if e.state.CompareAndSwap(int32(StateReady), int32(StateBuilding)) {
		return nil
	}
	return ErrBusy
}

// Publish atomically swaps in a fully built index and enters READY.
func (e *Engine) Publish(s index.Searcher) {
	e.current.Store(&published{searcher: s})
	e.state.Store(int32(StateReady))
}

// AbortBuild leaves the previous state intact after a failed build: READY
// if an index is still published, NOT_READY otherwise.
func (e *Engine) AbortBuild() {
	if e.current.Load() != nil {
		e.state.Store(int32(StateReady))
		return
	}
	e.state.Store(int32(StateNotReady))
}

// Answer runs reformulate, retrieve, synthesize strictly in order and
// returns the generated text with source excerpts. Before any successful
// ingestion it fails with ErrNotInitialized and makes no model or
// retrieval calls.
func (e *Engine) Answer(ctx context.Context, question string, turns []history.Turn) (*Answer, error) {
	cur := e.current.Load()
	if cur == nil {
		return nil, ErrNotInitialized
	}

	query, err := e.reform.Reformulate(ctx, turns, question)
	if err != nil {
		return nil, err
	}

	results, err := cur.searcher.Search(ctx, query, e.topK)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}

	contextParts := make([]string, len(results))
	for i, r := range results {
		contextParts[i] = r.Chunk.Text
	}
	system := answerInstruction + "\n\n" + strings.Join(contextParts, "\n\n")

	text, err := e.gen.Complete(ctx, system, turns, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	sources := make([]string, len(results))
	for i, r := range results {
		sources[i] = excerpt(r.Chunk.Text)
	}

	e.logger.Debug("Answered question",
		"query", query,
		"retrieved", len(results),
		"answer_len", len(text),
	)

	return &Answer{Text: strings.TrimSpace(text), Sources: sources}, nil
}

// excerpt returns the first sourceExcerptLen characters followed by an
// ellipsis marker. Truncation happens on a rune boundary so multibyte
// text stays valid UTF-8.
func excerpt(text string) string {
	if runes := []rune(text); len(runes) > sourceExcerptLen {
		text = string(runes[:sourceExcerptLen])
	}
	return text + "..."
}
