// Package hashing provides a deterministic local embedder. Tokens are hashed
// into a fixed number of buckets weighted by term frequency, so equal texts
// always produce equal vectors without any remote calls. Retrieval quality is
// purely lexical; it exists for offline use and tests.
package hashing

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"regexp"
	"strings"

	"docqa/internal/domain"
)

// DefaultDimension is the bucket count used when none is configured.
const DefaultDimension = 256

// Embedder maps text to an L2-normalized bag-of-hashed-tokens vector.
type Embedder struct {
	dimension    int
	tokenPattern *regexp.Regexp
}

// New creates a hashing embedder with the default dimension.
func New() *Embedder { return NewWithDimension(DefaultDimension) }

// NewWithDimension creates a hashing embedder with dim buckets.
func NewWithDimension(dim int) *Embedder {
	if dim <= 0 {
		dim = DefaultDimension
	}
	return &Embedder{
		dimension:    dim,
		tokenPattern: regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}]+)*`),
	}
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "hashing" }

// Dimension returns the fixed vector dimensionality.
func (e *Embedder) Dimension() int { return e.dimension }

// Embed returns the hashed term-frequency vector for the given text.
func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	tokens := e.tokenPattern.FindAllString(strings.ToLower(text), -1)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: no embeddable tokens in text", domain.ErrInvalidInput)
	}
	vec := make([]float32, e.dimension)
	for _, tok := range tokens {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		vec[h.Sum32()%uint32(e.dimension)]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec, nil
}
