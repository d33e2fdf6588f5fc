package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docchat/docchat/internal/chunker"
	"github.com/docchat/docchat/internal/document"
	"github.com/docchat/docchat/internal/engine"
	"github.com/docchat/docchat/internal/history"
	"github.com/docchat/docchat/internal/index"
	"github.com/docchat/docchat/internal/llm"
)

// hashEmbedder is a deterministic embedding function for tests: the
// vector derives from character counts, so equal text embeds equally.
type hashEmbedder struct{}

func (hashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v := make([]float32, 8)
	for i, r := range text {
		v[i%8] += float32(r%31) / 31
	}
	return v, nil
}

func (h hashEmbedder) EmbedAll(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = h.Embed(ctx, t)
	}
	return out, nil
}

// scriptedGenerator returns a fixed completion.
type scriptedGenerator struct {
	response string
	calls    int
}

func (g *scriptedGenerator) Complete(ctx context.Context, system string, turns []history.Turn, user string) (string, error) {
	g.calls++
	return g.response, nil
}

var _ llm.Generator = (*scriptedGenerator)(nil)

// failBuilder always fails, standing in for an embedding outage.
type failBuilder struct{}

func (failBuilder) Build(ctx context.Context, chunks []chunker.Chunk) (index.Searcher, error) {
	return nil, errors.New("embedding service unavailable")
}

// blockingBuilder parks until released, to hold the engine in BUILDING.
type blockingBuilder struct {
	inner   index.Builder
	started chan struct{}
	release chan struct{}
}

func (b *blockingBuilder) Build(ctx context.Context, chunks []chunker.Chunk) (index.Searcher, error) {
	close(b.started)
	<-b.release
	return b.inner.Build(ctx, chunks)
}

// page of n distinct words, cleaned length 5n-1.
func pageOfWords(prefix string, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("%s%03d", prefix, i)
	}
	return strings.Join(parts, " ")
}

func loaderFor(doc *document.Document, err error) LoadFunc {
	return func(path string) (*document.Document, error) {
		if err != nil {
			return nil, err
		}
		return doc, nil
	}
}

func newTestCoordinator(load LoadFunc, builder index.Builder, gen llm.Generator) (*Coordinator, *engine.Engine) {
	eng := engine.New(engine.NewReformulator(gen, nil), gen, 0, nil)
	if builder == nil {
		builder = index.NewMemoryBuilder(hashEmbedder{})
	}
	return NewCoordinator(load, chunker.New(0, 0), builder, eng, nil), eng
}

// TestIngestAndChat runs the full scenario: a 3-page document whose first
// page is dropped and whose remaining pages split into 2 chunks each,
// then a first-turn chat against the built index.
func TestIngestAndChat(t *testing.T) {
	doc := &document.Document{
		Path: "doc.txt",
		Pages: []document.Page{
			{Number: 1, Text: "front matter only"},    // under 50 chars, dropped
			{Number: 2, Text: pageOfWords("a", 240)}, // ~1200 chars, 2 chunks
			{Number: 3, Text: pageOfWords("b", 240)}, // ~1200 chars, 2 chunks
		},
	}
	gen := &scriptedGenerator{response: "The document catalogs word lists."}
	coord, eng := newTestCoordinator(loaderFor(doc, nil), nil, gen)

	result, err := coord.Ingest(context.Background(), "doc.txt")
	require.NoError(t, err)

	assert.True(t, result.Ready)
	assert.Equal(t, 3, result.Pages)
	assert.Equal(t, 1, result.DroppedPages)
	assert.Equal(t, 4, result.Chunks)
	assert.Equal(t, 4, eng.ChunkCount())
	assert.Equal(t, engine.StateReady, eng.State())

	chat, err := coord.Chat(context.Background(), "What is the main topic?", nil)
	require.NoError(t, err)

	assert.Equal(t, gen.response, chat.Answer)
	assert.Equal(t, 1, gen.calls, "empty history must skip the reformulation call")
	require.LessOrEqual(t, len(chat.Sources), 4)
	for _, src := range chat.Sources {
		assert.LessOrEqual(t, len(src), 203)
	}
	assert.Equal(t, []string{"What is the main topic?", gen.response}, chat.History)
}

// TestChat_BeforeIngest verifies the readiness gate at the boundary.
func TestChat_BeforeIngest(t *testing.T) {
	gen := &scriptedGenerator{response: "unused"}
	coord, _ := newTestCoordinator(loaderFor(nil, errors.New("unused")), nil, gen)

	_, err := coord.Chat(context.Background(), "anything", nil)
	assert.ErrorIs(t, err, engine.ErrNotInitialized)
	assert.Zero(t, gen.calls)
}

// TestIngest_LoadFailure verifies the stage is reported and the engine
// stays NOT_READY.
func TestIngest_LoadFailure(t *testing.T) {
	coord, eng := newTestCoordinator(loaderFor(nil, document.ErrUnreadable), nil, &scriptedGenerator{})

	_, err := coord.Ingest(context.Background(), "broken.pdf")

	var ingErr *IngestionError
	require.ErrorAs(t, err, &ingErr)
	assert.Equal(t, StageLoad, ingErr.Stage)
	assert.ErrorIs(t, err, document.ErrUnreadable)
	assert.Equal(t, engine.StateNotReady, eng.State())
}

// TestIngest_AllPagesDropped verifies a document with only short pages
// fails at the chunk stage.
func TestIngest_AllPagesDropped(t *testing.T) {
	doc := &document.Document{
		Pages: []document.Page{{Number: 1, Text: "tiny"}},
	}
	coord, eng := newTestCoordinator(loaderFor(doc, nil), nil, &scriptedGenerator{})

	_, err := coord.Ingest(context.Background(), "doc.txt")

	var ingErr *IngestionError
	require.ErrorAs(t, err, &ingErr)
	assert.Equal(t, StageChunk, ingErr.Stage)
	assert.Equal(t, engine.StateNotReady, eng.State())
}

// TestIngest_FailedReingestKeepsIndex verifies atomic replacement: a
// failed re-ingestion leaves the published index and READY state intact.
func TestIngest_FailedReingestKeepsIndex(t *testing.T) {
	doc := &document.Document{
		Pages: []document.Page{{Number: 1, Text: pageOfWords("a", 40)}},
	}
	gen := &scriptedGenerator{response: "still answering"}

	loadErr := error(nil)
	load := func(path string) (*document.Document, error) {
		if loadErr != nil {
			return nil, loadErr
		}
		return doc, nil
	}
	coord, eng := newTestCoordinator(load, nil, gen)

	_, err := coord.Ingest(context.Background(), "doc.txt")
	require.NoError(t, err)
	require.Equal(t, 1, eng.ChunkCount())

	// Second ingestion fails at load.
	loadErr = document.ErrUnreadable
	_, err = coord.Ingest(context.Background(), "corrupt.pdf")
	require.Error(t, err)

	assert.Equal(t, engine.StateReady, eng.State())
	assert.Equal(t, 1, eng.ChunkCount())

	chat, err := coord.Chat(context.Background(), "does it still work?", nil)
	require.NoError(t, err)
	assert.Equal(t, "still answering", chat.Answer)
}

// TestIngest_BuildFailure verifies an embedding-stage failure publishes
// nothing.
func TestIngest_BuildFailure(t *testing.T) {
	doc := &document.Document{
		Pages: []document.Page{{Number: 1, Text: pageOfWords("a", 40)}},
	}
	coord, eng := newTestCoordinator(loaderFor(doc, nil), failBuilder{}, &scriptedGenerator{})

	_, err := coord.Ingest(context.Background(), "doc.txt")

	var ingErr *IngestionError
	require.ErrorAs(t, err, &ingErr)
	assert.Equal(t, StageEmbed, ingErr.Stage)
	assert.False(t, eng.Ready())
}

// TestIngest_ConcurrentRejectedBusy verifies ingestions are serialized:
// a second ingest while one is building is rejected.
func TestIngest_ConcurrentRejectedBusy(t *testing.T) {
	doc := &document.Document{
		Pages: []document.Page{{Number: 1, Text: pageOfWords("a", 40)}},
	}
	builder := &blockingBuilder{
		inner:   index.NewMemoryBuilder(hashEmbedder{}),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	coord, _ := newTestCoordinator(loaderFor(doc, nil), builder, &scriptedGenerator{})

	done := make(chan error, 1)
	go func() {
		_, err := coord.Ingest(context.Background(), "doc.txt")
		done <- err
	}()

	<-builder.started
	_, err := coord.Ingest(context.Background(), "doc.txt")
	assert.ErrorIs(t, err, engine.ErrBusy)

	close(builder.release)
	require.NoError(t, <-done)
}

// TestStatus reflects engine state and last-ingest statistics.
func TestStatus(t *testing.T) {
	doc := &document.Document{
		Pages: []document.Page{{Number: 1, Text: pageOfWords("a", 40)}},
	}
	coord, _ := newTestCoordinator(loaderFor(doc, nil), nil, &scriptedGenerator{})

	st := coord.Status()
	assert.Equal(t, "not_ready", st.State)
	assert.False(t, st.Ready)

	_, err := coord.Ingest(context.Background(), "doc.txt")
	require.NoError(t, err)

	st = coord.Status()
	assert.Equal(t, "ready", st.State)
	assert.True(t, st.Ready)
	assert.Equal(t, 1, st.Chunks)
	require.NotNil(t, st.Last)
	assert.Equal(t, 1, st.Last.Pages)
}
