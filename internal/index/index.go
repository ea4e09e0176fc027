// Package index implements the per-session vector index: a brute-force cosine
// similarity search over the document's passages. An index is built once at
// ingestion, append-only while building and read-only afterwards.
package index

import (
	"context"
	"fmt"
	"math"
	"sort"

	"docqa/internal/domain"
)

// Index holds every passage of one document alongside its embedding.
// All embeddings share a single dimension.
type Index struct {
	dim      int
	passages []domain.Passage
	vectors  [][]float32
}

// Build embeds every passage and assembles the index. Any embedding failure
// fails the whole build; partial indexes would silently drop citeable
// passages.
func Build(ctx context.Context, passages []domain.Passage, embedder domain.Embedder) (*Index, error) {
	if len(passages) == 0 {
		return nil, fmt.Errorf("%w: no passages to index", domain.ErrInvalidInput)
	}
	ix := &Index{
		passages: make([]domain.Passage, 0, len(passages)),
		vectors:  make([][]float32, 0, len(passages)),
	}
	for i, p := range passages {
		vec, err := embedder.Embed(ctx, p.Text)
		if err != nil {
			return nil, fmt.Errorf("embedding passage %d: %w", i, err)
		}
		if ix.dim == 0 {
			ix.dim = len(vec)
		} else if len(vec) != ix.dim {
			return nil, fmt.Errorf("%w: embedder returned dimension %d, expected %d", domain.ErrUpstream, len(vec), ix.dim)
		}
		ix.passages = append(ix.passages, p)
		ix.vectors = append(ix.vectors, vec)
	}
	return ix, nil
}

// Len returns the number of indexed passages.
func (ix *Index) Len() int { return len(ix.passages) }

// Dimension returns the embedding dimension shared by all vectors.
func (ix *Index) Dimension() int { return ix.dim }

// Search returns the k passages most similar to the query embedding, ordered
// by descending cosine similarity. Ties keep insertion order. k is clamped to
// the index size; k <= 0 is an input error.
func (ix *Index) Search(query []float32, k int) ([]domain.ScoredPassage, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidInput, k)
	}
	if len(query) != ix.dim {
		return nil, fmt.Errorf("%w: query dimension %d does not match index dimension %d", domain.ErrInvalidInput, len(query), ix.dim)
	}
	scored := make([]domain.ScoredPassage, len(ix.passages))
	for i := range ix.passages {
		scored[i] = domain.ScoredPassage{
			Passage: ix.passages[i],
			Score:   cosine(query, ix.vectors[i]),
		}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

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
