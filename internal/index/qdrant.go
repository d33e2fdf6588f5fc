package index

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/docchat/docchat/internal/chunker"
	"github.com/docchat/docchat/internal/embedding"
)

// upsertBatchSize bounds points per Qdrant upsert request.
const upsertBatchSize = 100

// QdrantBuilder builds indexes backed by a Qdrant server. Each build
// writes a fresh collection; the previous build's collection is dropped
// only after the new one is complete, so a failed re-ingestion never
// disturbs the published index.
type QdrantBuilder struct {
	client *qdrant.Client
	embed  embedding.Func

	mu      sync.Mutex
	current string // collection backing the last successful build
}

// NewQdrantBuilder connects to Qdrant and verifies it is reachable.
func NewQdrantBuilder(host string, port int, embed embedding.Func) (*QdrantBuilder, error) {
	client, err := qdrant.NewClient(&qdrant.Config{Host: host, Port: port})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}

	if _, err := client.HealthCheck(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("qdrant unreachable at %s:%d: %w", host, port, err)
	}

	return &QdrantBuilder{client: client, embed: embed}, nil
}

// Build embeds the chunks and writes them into a new collection. The
// collection from the previous successful build is dropped afterwards.
func (b *QdrantBuilder) Build(ctx context.Context, chunks []chunker.Chunk) (Searcher, error) {
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

	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim || dim == 0 {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(v), dim)
		}
	}

	collection := "docchat_" + strings.ReplaceAll(uuid.New().String(), "-", "")
	err = b.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	if err := b.upsertAll(ctx, collection, chunks, vectors); err != nil {
		// Abandon the half-written collection; the published one is untouched.
		_ = b.client.DeleteCollection(context.Background(), collection)
		return nil, err
	}

	b.swapCurrent(ctx, collection)

	return &qdrantIndex{
		client:     b.client,
		embed:      b.embed,
		collection: collection,
		size:       len(chunks),
		dimension:  dim,
	}, nil
}

// swapCurrent records the new collection and drops the superseded one.
func (b *QdrantBuilder) swapCurrent(ctx context.Context, collection string) {
	b.mu.Lock()
	old := b.current
	b.current = collection
	b.mu.Unlock()

	if old != "" {
		_ = b.client.DeleteCollection(ctx, old)
	}
}

// upsertAll writes chunk points in batches with backoff on transient errors.
func (b *QdrantBuilder) upsertAll(ctx context.Context, collection string, chunks []chunker.Chunk, vectors [][]float32) error {
	for start := 0; start < len(chunks); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(chunks))

		points := make([]*qdrant.PointStruct, 0, end-start)
		for i := start; i < end; i++ {
			c := chunks[i]
			points = append(points, &qdrant.PointStruct{
				Id:      qdrant.NewIDNum(uint64(i)),
				Vectors: qdrant.NewVectors(vectors[i]...),
				Payload: qdrant.NewValueMap(map[string]any{
					"text":        c.Text,
					"page":        int64(c.Page),
					"total_pages": int64(c.TotalPages),
					"char_count":  int64(c.CharCount),
					"method":      c.Method,
					"order":       int64(i),
				}),
			})
		}

		if err := b.upsertWithRetry(ctx, collection, points); err != nil {
			return fmt.Errorf("upsert batch %d-%d: %w", start, end, err)
		}
	}
	return nil
}

func (b *QdrantBuilder) upsertWithRetry(ctx context.Context, collection string, points []*qdrant.PointStruct) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 10 * time.Second
	bo.MaxElapsedTime = 30 * time.Second

	operation := func() error {
		_, err := b.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Points:         points,
		})
		return err
	}
	return backoff.Retry(operation, backoff.WithContext(bo, ctx))
}

// Close releases the Qdrant connection.
func (b *QdrantBuilder) Close() error {
	return b.client.Close()
}

// qdrantIndex reads from one immutable collection.
type qdrantIndex struct {
	client     *qdrant.Client
	embed      embedding.Func
	collection string
	size       int
	dimension  int
}

func (ix *qdrantIndex) Len() int { return ix.size }

func (ix *qdrantIndex) Search(ctx context.Context, query string, k int) ([]Result, error) {
	if ix.size == 0 {
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

	limit := uint64(k)
	points, err := ix.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: ix.collection,
		Query:          qdrant.NewQuery(qv...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}

	hits := make([]qdrantHit, 0, len(points))
	for _, p := range points {
		payload := p.GetPayload()
		hits = append(hits, qdrantHit{
			Result: Result{
				Chunk: chunker.Chunk{
					Text:       payload["text"].GetStringValue(),
					Page:       int(payload["page"].GetIntegerValue()),
					TotalPages: int(payload["total_pages"].GetIntegerValue()),
					CharCount:  int(payload["char_count"].GetIntegerValue()),
					Method:     payload["method"].GetStringValue(),
				},
				Score: float64(p.GetScore()),
			},
			order: payload["order"].GetIntegerValue(),
		})
	}
	sortHits(hits)

	results := make([]Result, len(hits))
	for i, h := range hits {
		results[i] = h.Result
	}
	return results, nil
}

// qdrantHit pairs a result with the chunk's original position, carried in
// the point payload.
type qdrantHit struct {
	Result
	order int64
}

// sortHits orders hits by descending score, equal scores by original chunk
// order, matching the in-memory backend's tie-break.
func sortHits(hits []qdrantHit) {
	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].Score != hits[b].Score {
			return hits[a].Score > hits[b].Score
		}
		return hits[a].order < hits[b].order
	})
}
