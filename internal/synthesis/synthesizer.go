// Package synthesis turns retrieved passages plus a question into a
// structured, source-cited answer. Model output is parsed strictly against
// one JSON schema; anything unparseable is absorbed by a single documented
// fallback, so synthesis always yields a well-formed AnswerResult unless the
// model could not be reached at all.
package synthesis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"docqa/internal/domain"
)

// FallbackReason is the fixed sentinel reason set when structured parsing of
// the model output failed and the raw text was passed through instead.
const FallbackReason = "structured answer parsing failed; raw model output returned"

const (
	// FallbackConfidence is reported on the fallback path.
	FallbackConfidence = 0.5
	// DefaultConfidence is assumed when a parsed answer omits the score.
	DefaultConfidence = 0.8

	maxRawAnswerLen  = 500
	maxClauseExcerpt = 120
	maxFallbackRefs  = 2
)

const promptTemplate = `You are a careful assistant answering questions about an uploaded document using only the context passages below.

INSTRUCTIONS:
1. Keep the answer VERY SHORT: "Yes", "No", "Partial coverage" or a specific amount.
2. Give a reason ONLY when the answer is negative or partial, e.g. "90 day waiting period not completed".
3. Always cite where the answer comes from, e.g. "Refer to page 53, line 40" or "See paragraph 5 of the email".
4. Interpret vague questions charitably.
5. confidence_score is a number between 0.0 and 1.0.

Return strictly a JSON object of this exact shape and nothing else:
{"answer": "", "reason": "", "clause": "", "confidence_score": 0.8, "document_references": []}

document_references lists the source tags of the passages the answer relies on.

Context:
%s
Question: %s

Answer:`

// Synthesizer builds prompts and parses model answers.
type Synthesizer struct {
	provider domain.CompletionProvider
}

// New creates a synthesizer over the given answering model.
func New(provider domain.CompletionProvider) *Synthesizer {
	return &Synthesizer{provider: provider}
}

// modelAnswer is the schema the prompt demands from the model. Confidence is
// kept raw so a non-numeric value degrades to the default instead of spoiling
// an otherwise valid answer.
type modelAnswer struct {
	Answer     string          `json:"answer"`
	Reason     string          `json:"reason"`
	Clause     string          `json:"clause"`
	Confidence json.RawMessage `json:"confidence_score"`
	References []string        `json:"document_references"`
}

// Synthesize asks the model and returns a structured answer. A transport or
// quota failure is reported as SynthesisFailed; malformed model output is
// never an error.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, passages []domain.ScoredPassage) (domain.AnswerResult, error) {
	if strings.TrimSpace(question) == "" {
		return domain.AnswerResult{}, fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}
	if len(passages) == 0 {
		return domain.AnswerResult{}, fmt.Errorf("%w: no passages to answer from", domain.ErrInvalidInput)
	}

	raw, err := s.provider.Complete(ctx, buildPrompt(question, passages))
	if err != nil {
		return domain.AnswerResult{}, fmt.Errorf("%w: %v", domain.ErrSynthesisFailed, err)
	}
	return parseAnswer(raw, passages), nil
}

func buildPrompt(question string, passages []domain.ScoredPassage) string {
	var ctxb strings.Builder
	for _, p := range passages {
		fmt.Fprintf(&ctxb, "[Source: %s]\n%s\n\n", p.Passage.SourceTag, p.Passage.Text)
	}
	return fmt.Sprintf(promptTemplate, ctxb.String(), question)
}

func parseAnswer(raw string, passages []domain.ScoredPassage) domain.AnswerResult {
	var ma modelAnswer
	if err := json.Unmarshal([]byte(stripFence(raw)), &ma); err != nil {
		return fallbackAnswer(raw, passages)
	}
	refs := ma.References
	if refs == nil {
		refs = []string{}
	}
	return domain.AnswerResult{
		Answer:     ma.Answer,
		Reason:     ma.Reason,
		Clause:     ma.Clause,
		Confidence: parseConfidence(ma.Confidence),
		References: refs,
	}
}

// fallbackAnswer passes the raw model text through in a bounded, well-formed
// shape. It never fails.
func fallbackAnswer(raw string, passages []domain.ScoredPassage) domain.AnswerResult {
	refs := make([]string, 0, maxFallbackRefs)
	for _, p := range passages {
		if len(refs) == maxFallbackRefs {
			break
		}
		refs = append(refs, p.Passage.SourceTag)
	}
	return domain.AnswerResult{
		Answer:     truncate(strings.TrimSpace(raw), maxRawAnswerLen),
		Reason:     FallbackReason,
		Clause:     truncate(passages[0].Passage.Text, maxClauseExcerpt),
		Confidence: FallbackConfidence,
		References: refs,
	}
}

func parseConfidence(raw json.RawMessage) float64 {
	if len(raw) == 0 || string(raw) == "null" {
		return DefaultConfidence
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return DefaultConfidence
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// stripFence unwraps a markdown code fence, which chat models routinely put
// around JSON even when told not to.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	if end := strings.LastIndex(s, "```"); end >= 0 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
