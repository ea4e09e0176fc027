// Package service wires chunking, storage, retrieval and answer synthesis
// into the operations the HTTP and console frontends expose.
package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"docqa/internal/domain"
	"docqa/internal/retriever"
	"docqa/internal/store"
	"docqa/internal/synthesis"
)

// DocumentService owns the document question answering flow. Each ingested
// document becomes an isolated session; questions only ever see the passages
// of the session they are asked against.
type DocumentService struct {
	chunker             domain.Chunker
	summarizer          domain.Summarizer
	store               *store.Store
	retriever           *retriever.Retriever
	synthesizer         *synthesis.Synthesizer
	previewMaxSentences int
	log                 *zap.SugaredLogger
}

func New(
	chunker domain.Chunker,
	summarizer domain.Summarizer,
	st *store.Store,
	ret *retriever.Retriever,
	syn *synthesis.Synthesizer,
	previewMaxSentences int,
	log *zap.SugaredLogger,
) *DocumentService {
	if previewMaxSentences <= 0 {
		previewMaxSentences = 3
	}
	return &DocumentService{
		chunker:             chunker,
		summarizer:          summarizer,
		store:               st,
		retriever:           ret,
		synthesizer:         syn,
		previewMaxSentences: previewMaxSentences,
		log:                 log,
	}
}

// Ingest chunks the document blocks, builds the session index and persists
// it. The returned session is immediately queryable.
func (s *DocumentService) Ingest(ctx context.Context, filename string, blocks []domain.Block) (domain.Session, error) {
	if strings.TrimSpace(filename) == "" {
		return domain.Session{}, fmt.Errorf("%w: filename required", domain.ErrInvalidInput)
	}
	passages := s.chunker.Chunk(blocks)
	if len(passages) == 0 {
		return domain.Session{}, fmt.Errorf("%w: document contains no text", domain.ErrInvalidInput)
	}

	preview := s.preview(blocks)
	sess, err := s.store.Create(ctx, filename, preview, passages)
	if err != nil {
		return domain.Session{}, err
	}
	s.log.Infow("document ingested", "session", sess.ID, "filename", filename, "chunks", sess.ChunkCount)
	return sess, nil
}

// preview summarizes the raw document text for session listings. A summarizer
// failure degrades to an empty preview rather than failing the ingest.
func (s *DocumentService) preview(blocks []domain.Block) string {
	var b strings.Builder
	for _, blk := range blocks {
		b.WriteString(blk.Text)
		b.WriteString("\n\n")
	}
	preview, err := s.summarizer.Summarize(b.String(), s.previewMaxSentences)
	if err != nil {
		s.log.Warnw("preview generation failed", "err", err)
		return ""
	}
	return preview
}

// Ask retrieves the most relevant passages of the session and synthesizes a
// structured answer from them. k selects how many passages to retrieve; zero
// means the configured default.
func (s *DocumentService) Ask(ctx context.Context, sessionID, question string, k int) (domain.AnswerResult, error) {
	passages, err := s.retriever.Retrieve(ctx, sessionID, question, k)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	result, err := s.synthesizer.Synthesize(ctx, question, passages)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	s.log.Infow("question answered", "session", sessionID, "passages", len(passages), "confidence", result.Confidence)
	return result, nil
}

// Sessions lists all stored sessions, oldest first.
func (s *DocumentService) Sessions(ctx context.Context) ([]domain.Session, error) {
	return s.store.List(ctx)
}

// Session returns the metadata of a single session.
func (s *DocumentService) Session(ctx context.Context, id string) (domain.Session, error) {
	return s.store.Get(ctx, id)
}

// Dispose deletes the session and its persisted index.
func (s *DocumentService) Dispose(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Infow("session disposed", "session", id)
	return nil
}
