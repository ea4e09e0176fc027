package chunker

import (
	"fmt"
	"strings"
	"unicode"

	"docqa/internal/domain"
)

// DefaultTargetSize is the default chunk size in characters.
const DefaultTargetSize = 1000

// DefaultOverlap is the default number of trailing characters repeated at the
// start of the next chunk.
const DefaultOverlap = 200

// TextChunker splits extracted blocks into overlapping passages bounded by
// targetSize characters. Splits prefer natural boundaries: paragraph break,
// line break, sentence terminator, whitespace, and only then a hard cut.
type TextChunker struct {
	targetSize int
	overlap    int
}

// New creates a chunker. Overlap must be strictly less than targetSize; a
// violation is a configuration error reported here, not at call time.
func New(targetSize, overlap int) (*TextChunker, error) {
	if targetSize <= 0 {
		return nil, fmt.Errorf("%w: target size must be positive, got %d", domain.ErrInvalidInput, targetSize)
	}
	if overlap < 0 || overlap >= targetSize {
		return nil, fmt.Errorf("%w: overlap %d must be in [0, %d)", domain.ErrInvalidInput, overlap, targetSize)
	}
	return &TextChunker{targetSize: targetSize, overlap: overlap}, nil
}

// Chunk splits each block into passages. The block's source tag carries to
// every passage split from it; sequence indexes run across the whole document.
// Blocks with no visible content are skipped, so degenerate input yields an
// empty slice.
func (c *TextChunker) Chunk(blocks []domain.Block) []domain.Passage {
	var passages []domain.Passage
	seq := 0
	for _, b := range blocks {
		if strings.TrimSpace(b.Text) == "" {
			continue
		}
		for _, text := range c.split([]rune(b.Text)) {
			passages = append(passages, domain.Passage{
				Text:          text,
				SourceTag:     b.SourceTag,
				SequenceIndex: seq,
			})
			seq++
		}
	}
	return passages
}

func (c *TextChunker) split(r []rune) []string {
	var out []string
	start := 0
	for start < len(r) {
		end := start + c.targetSize
		if end >= len(r) {
			out = append(out, string(r[start:]))
			break
		}
		cut := c.cutPoint(r, start, end)
		out = append(out, string(r[start:cut]))
		next := cut - c.overlap
		if next <= start {
			// overlap would stall the scan; resume at the cut
			next = cut
		}
		start = next
	}
	return out
}

// cutPoint picks the split position in (start, end]. For each boundary class
// in priority order it takes the last occurrence inside the window, so chunks
// stay as close to targetSize as the text allows.
func (c *TextChunker) cutPoint(r []rune, start, end int) int {
	type boundary func(p int) bool
	paragraph := func(p int) bool { return p >= start+2 && r[p-1] == '\n' && r[p-2] == '\n' }
	line := func(p int) bool { return r[p-1] == '\n' }
	sentence := func(p int) bool {
		t := r[p-1]
		return (t == '.' || t == '!' || t == '?') && unicode.IsSpace(r[p])
	}
	space := func(p int) bool { return unicode.IsSpace(r[p-1]) }

	for _, match := range []boundary{paragraph, line, sentence, space} {
		for p := end; p > start+1; p-- {
			if match(p) {
				return p
			}
		}
	}
	return end
}
