// Package retriever answers "which passages matter for this question" by
// embedding the question and searching the session's index. It never reranks,
// deduplicates or applies score thresholds; that belongs to synthesis policy,
// not retrieval.
package retriever

import (
	"context"
	"fmt"
	"strings"

	"docqa/internal/domain"
	"docqa/internal/index"
)

// DefaultTopK is the number of passages retrieved when none is requested.
const DefaultTopK = 6

// MaxTopK bounds per-request overrides.
const MaxTopK = 32

// IndexResolver loads the persisted index for a session.
type IndexResolver interface {
	ResolveIndex(ctx context.Context, sessionID string) (*index.Index, error)
}

// Retriever embeds questions and runs similarity search per session.
type Retriever struct {
	resolver IndexResolver
	embedder domain.Embedder
	topK     int
}

// New creates a retriever. The configured default k is clamped into [3, 6];
// larger defaults overflow the synthesis prompt, smaller ones starve it.
func New(resolver IndexResolver, embedder domain.Embedder, topK int) *Retriever {
	if topK < 3 {
		topK = 3
	}
	if topK > 6 {
		topK = 6
	}
	return &Retriever{resolver: resolver, embedder: embedder, topK: topK}
}

// Retrieve returns the top-k passages of the session most similar to the
// question, ordered by descending similarity. k = 0 uses the configured
// default; out-of-range k is rejected before any I/O.
func (r *Retriever) Retrieve(ctx context.Context, sessionID, question string, k int) ([]domain.ScoredPassage, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}
	if k == 0 {
		k = r.topK
	}
	if k < 0 || k > MaxTopK {
		return nil, fmt.Errorf("%w: k %d out of range [1, %d]", domain.ErrInvalidInput, k, MaxTopK)
	}

	ix, err := r.resolver.ResolveIndex(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if ix.Len() == 0 {
		return nil, fmt.Errorf("%w: session %s", domain.ErrEmptyIndex, sessionID)
	}

	qvec, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}
	if len(qvec) != ix.Dimension() {
		return nil, fmt.Errorf("%w: question embedded at dimension %d, index holds %d",
			domain.ErrCorruptState, len(qvec), ix.Dimension())
	}
	return ix.Search(qvec, k)
}
