package index

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/docchat/docchat/internal/chunker"
	"github.com/docchat/docchat/internal/embedding"
)

// MemoryBuilder builds in-memory brute-force cosine indexes. This is the
// reference backend: process-lifetime only, no persistence.
type MemoryBuilder struct {
	embed embedding.Func
}

// NewMemoryBuilder creates a builder over the given embedding function.
func NewMemoryBuilder(embed embedding.Func) *MemoryBuilder {
	return &MemoryBuilder{embed: embed}
}

// Build embeds every chunk and returns an immutable index. If any
// embedding call fails, no index is returned.
func (b *MemoryBuilder) Build(ctx context.Context, chunks []chunker.Chunk) (Searcher, error) {
	if len(chunks) == 0 {
		return nil, ErrNoChunks
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := b.embed.EmbedAll(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedding count mismatch: %d vectors for %d chunks", len(vectors), len(chunks))
	}

	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim || dim == 0 {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(v), dim)
		}
	}

	own := make([]chunker.Chunk, len(chunks))
	copy(own, chunks)

	return &memoryIndex{
		embed:     b.embed,
		chunks:    own,
		vectors:   vectors,
		dimension: dim,
	}, nil
}

// memoryIndex is immutable after Build, so concurrent Search calls need
// no locking.
type memoryIndex struct {
	embed     embedding.Func
	chunks    []chunker.Chunk
	vectors   [][]float32
	dimension int
}

func (ix *memoryIndex) Len() int { return len(ix.chunks) }

// Search scores every stored vector against the embedded query with
// cosine similarity. Ties resolve to the earlier chunk.
func (ix *memoryIndex) Search(ctx context.Context, query string, k int) ([]Result, error) {
	if len(ix.chunks) == 0 {
		return nil, ErrEmptyIndex
	}
	if k <= 0 {
		k = DefaultTopK
	}

	qv, err := ix.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(qv) != ix.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			ErrDimensionMismatch, len(qv), ix.dimension)
	}

	order := make([]int, len(ix.vectors))
	scores := make([]float64, len(ix.vectors))
	for i, v := range ix.vectors {
		order[i] = i
		scores[i] = cosine(qv, v)
	}

	// Stable sort keeps original chunk order on equal scores.
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if k > len(order) {
		k = len(order)
	}
	results := make([]Result, 0, k)
	for _, i := range order[:k] {
		results = append(results, Result{Chunk: ix.chunks[i], Score: scores[i]})
	}
	return results, nil
}

// cosine computes cosine similarity between two same-length vectors.
func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
