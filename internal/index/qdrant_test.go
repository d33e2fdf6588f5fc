package index

import (
	"testing"

	"github.com/docchat/docchat/internal/chunker"
)

func hit(text string, score float64, order int64) qdrantHit {
	return qdrantHit{
		Result: Result{Chunk: chunker.Chunk{Text: text}, Score: score},
		order:  order,
	}
}

// TestSortHits_TieBreak verifies equal scores resolve to the earlier chunk,
// matching the in-memory backend.
func TestSortHits_TieBreak(t *testing.T) {
	hits := []qdrantHit{
		hit("later", 0.9, 7),
		hit("earlier", 0.9, 2),
		hit("best", 0.95, 5),
	}

	sortHits(hits)

	want := []string{"best", "earlier", "later"}
	for i, w := range want {
		if hits[i].Chunk.Text != w {
			t.Errorf("Position %d: expected %q, got %q", i, w, hits[i].Chunk.Text)
		}
	}
}

// TestSortHits_ScoreOrder verifies descending score ordering is preserved.
func TestSortHits_ScoreOrder(t *testing.T) {
	hits := []qdrantHit{
		hit("low", 0.1, 0),
		hit("high", 0.9, 1),
		hit("mid", 0.5, 2),
	}

	sortHits(hits)

	want := []string{"high", "mid", "low"}
	for i, w := range want {
		if hits[i].Chunk.Text != w {
			t.Errorf("Position %d: expected %q, got %q", i, w, hits[i].Chunk.Text)
		}
	}
}
