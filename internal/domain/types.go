package domain

import "time"

// Block is a raw extracted span of the uploaded document, as handed over by a
// text-extraction collaborator. One block per page, paragraph or mail part.
type Block struct {
	Text      string `json:"text"`
	SourceTag string `json:"source_tag"`
}

// Passage is the unit of retrieval: a bounded span of source text carrying the
// provenance tag of the block it was split from. Immutable once created.
type Passage struct {
	Text          string `json:"text"`
	SourceTag     string `json:"source_tag"`
	SequenceIndex int    `json:"sequence_index"`
}

// ScoredPassage is a retrieved passage together with its similarity score.
type ScoredPassage struct {
	Passage Passage
	Score   float64
}

// Session binds one ingested document to its persisted vector index.
type Session struct {
	ID         string    `json:"session_id"`
	Filename   string    `json:"filename"`
	CreatedAt  time.Time `json:"created_at"`
	ChunkCount int       `json:"chunk_count"`
	IndexPath  string    `json:"-"`
	Preview    string    `json:"preview,omitempty"`
}

// AnswerResult is the structured answer produced for one question.
// Produced fresh per query and never persisted.
type AnswerResult struct {
	Answer     string   `json:"answer"`
	Reason     string   `json:"reason,omitempty"`
	Clause     string   `json:"clause,omitempty"`
	Confidence float64  `json:"confidence_score"`
	References []string `json:"document_references"`
}
