package domain

import "context"

// Embedder converts free text into a fixed-dimension numeric vector.
// Dimension is constant for a given configuration; remote implementations may
// only learn it on the first successful call, in which case Dimension returns
// 0 until then.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// Chunker splits extracted blocks into passages suitable for retrieval.
type Chunker interface {
	Chunk(blocks []Block) []Passage
}

// CompletionProvider invokes the answering model with a single prompt and
// returns its raw, free-form output. The output is not guaranteed to be valid
// JSON; parsing it is the synthesizer's job.
type CompletionProvider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Summarizer produces a brief preview of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
