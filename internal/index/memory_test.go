package index

import (
	"context"
	"errors"
	"testing"

	"github.com/docchat/docchat/internal/chunker"
)

// fakeEmbedder returns canned vectors per text, in input order.
type fakeEmbedder struct {
	vectors map[string][]float32
	calls   int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	v, ok := f.vectors[text]
	if !ok {
		return nil, errors.New("no vector for text")
	}
	return v, nil
}

func (f *fakeEmbedder) EmbedAll(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func chunksFor(texts ...string) []chunker.Chunk {
	chunks := make([]chunker.Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = chunker.Chunk{Text: t, Page: i + 1, TotalPages: len(texts), Method: chunker.MethodTag}
	}
	return chunks
}

// TestBuild_NoChunks verifies building with no input fails.
func TestBuild_NoChunks(t *testing.T) {
	b := NewMemoryBuilder(&fakeEmbedder{})
	_, err := b.Build(context.Background(), nil)
	if !errors.Is(err, ErrNoChunks) {
		t.Errorf("Expected ErrNoChunks, got %v", err)
	}
}

// TestBuild_DimensionMismatch verifies no index is returned when vectors
// disagree on dimension.
func TestBuild_DimensionMismatch(t *testing.T) {
	embed := &fakeEmbedder{vectors: map[string][]float32{
		"a": {1, 0},
		"b": {1, 0, 0},
	}}

	idx, err := NewMemoryBuilder(embed).Build(context.Background(), chunksFor("a", "b"))
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Expected ErrDimensionMismatch, got %v", err)
	}
	if idx != nil {
		t.Errorf("Expected no index on failed build")
	}
}

// TestBuild_EmbedFailure verifies an embedding failure publishes nothing.
func TestBuild_EmbedFailure(t *testing.T) {
	embed := &fakeEmbedder{vectors: map[string][]float32{"a": {1, 0}}}

	idx, err := NewMemoryBuilder(embed).Build(context.Background(), chunksFor("a", "unknown"))
	if err == nil {
		t.Fatal("Expected error from failed embedding")
	}
	if idx != nil {
		t.Errorf("Expected no index on failed build")
	}
}

// TestSearch_Ranking verifies descending similarity order and the k limit.
func TestSearch_Ranking(t *testing.T) {
	embed := &fakeEmbedder{vectors: map[string][]float32{
		"exact":     {1, 0},
		"close":     {0.9, 0.1},
		"unrelated": {0, 1},
		"query":     {1, 0},
	}}

	idx, err := NewMemoryBuilder(embed).Build(context.Background(), chunksFor("unrelated", "exact", "close"))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	results, err := idx.Search(context.Background(), "query", 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results[0].Chunk.Text != "exact" || results[1].Chunk.Text != "close" {
		t.Errorf("Unexpected ranking: %q, %q", results[0].Chunk.Text, results[1].Chunk.Text)
	}
	if results[0].Score < results[1].Score {
		t.Errorf("Scores not non-increasing: %f < %f", results[0].Score, results[1].Score)
	}
}

// TestSearch_TieBreak verifies equal scores resolve to the earlier chunk.
func TestSearch_TieBreak(t *testing.T) {
	embed := &fakeEmbedder{vectors: map[string][]float32{
		"first":  {1, 0},
		"second": {2, 0}, // same direction, same cosine
		"query":  {1, 0},
	}}

	idx, err := NewMemoryBuilder(embed).Build(context.Background(), chunksFor("first", "second"))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	results, err := idx.Search(context.Background(), "query", 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if results[0].Chunk.Text != "first" {
		t.Errorf("Tie should resolve to earlier chunk, got %q first", results[0].Chunk.Text)
	}
}

// TestSearch_KLargerThanIndex verifies results are clamped to index size.
func TestSearch_KLargerThanIndex(t *testing.T) {
	embed := &fakeEmbedder{vectors: map[string][]float32{
		"only":  {1, 0},
		"query": {1, 0},
	}}

	idx, err := NewMemoryBuilder(embed).Build(context.Background(), chunksFor("only"))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	results, err := idx.Search(context.Background(), "query", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("Expected 1 result, got %d", len(results))
	}
}

// TestSearch_DefaultK verifies k <= 0 selects DefaultTopK.
func TestSearch_DefaultK(t *testing.T) {
	vectors := map[string][]float32{"query": {1, 0}}
	texts := []string{"c0", "c1", "c2", "c3", "c4", "c5"}
	for i, txt := range texts {
		vectors[txt] = []float32{1, float32(i) * 0.01}
	}
	embed := &fakeEmbedder{vectors: vectors}

	idx, err := NewMemoryBuilder(embed).Build(context.Background(), chunksFor(texts...))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	results, err := idx.Search(context.Background(), "query", 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != DefaultTopK {
		t.Errorf("Expected %d results for k=0, got %d", DefaultTopK, len(results))
	}
}
