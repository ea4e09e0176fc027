// Package summarizer produces the short session previews shown in listings.
package summarizer

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// FrequencySummarizer picks the most representative sentences of a document
// by token frequency, stopwords excluded. It runs locally with no model call,
// which keeps ingestion independent of the completion provider.
type FrequencySummarizer struct {
	tokenPattern    *regexp.Regexp
	sentencePattern *regexp.Regexp
	stopwords       map[string]struct{}
}

func NewFrequency() *FrequencySummarizer {
	return &FrequencySummarizer{
		tokenPattern:    regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`),
		sentencePattern: regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`),
		stopwords:       defaultStopwords(),
	}
}

// Summarize returns up to maxSentences sentences in their original order,
// chosen by length-normalized frequency score.
func (s *FrequencySummarizer) Summarize(text string, maxSentences int) (string, error) {
	if maxSentences <= 0 {
		maxSentences = 3
	}
	sentences := s.sentencePattern.FindAllString(text, -1)
	if len(sentences) == 0 {
		return strings.TrimSpace(text), nil
	}

	freq := map[string]float64{}
	for _, sent := range sentences {
		for _, tok := range s.tokens(sent) {
			if _, stop := s.stopwords[tok]; stop {
				continue
			}
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		if v > maxF {
			maxF = v
		}
	}
	if maxF > 0 {
		for k, v := range freq {
			freq[k] = v / maxF
		}
	}

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(sentences))
	for i, sent := range sentences {
		toks := s.tokens(sent)
		total := 0.0
		for _, tok := range toks {
			total += freq[tok]
		}
		// Normalize by sqrt length so long sentences do not dominate.
		if n := float64(len(toks)); n > 0 {
			total /= math.Sqrt(n)
		}
		scores[i] = scored{i, total}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	if maxSentences > len(scores) {
		maxSentences = len(scores)
	}
	selected := make([]int, maxSentences)
	for i := range selected {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)

	parts := make([]string, 0, len(selected))
	for _, idx := range selected {
		parts = append(parts, strings.TrimSpace(sentences[idx]))
	}
	return strings.Join(parts, " "), nil
}

func (s *FrequencySummarizer) tokens(text string) []string {
	return s.tokenPattern.FindAllString(strings.ToLower(text), -1)
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to",
		"of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were",
		"be", "been", "being", "it", "this", "that", "these", "those", "from",
		"up", "down", "over", "under", "again", "further", "than", "so", "such",
		"into", "about", "between", "through", "during", "before", "after",
		"above", "below", "out", "off", "own", "same", "too", "very", "can",
		"will", "just", "not", "no", "shall", "may", "any", "all",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
