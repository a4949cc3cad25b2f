// Package rank implements the weighted keyword scoring function that
// turns a classifier's raw per-keyword scores into a single bounded link
// score and its serialized keyword string.
package rank

import (
	"sort"
	"strings"
)

// outOfVocabularyPenalty is applied to a keyword's raw score when the
// keyword is not present in the vocabulary (spec.md §4.5).
const outOfVocabularyPenalty = 0.25

// Vocabulary maps a keyword to its importance weight.
type Vocabulary map[string]float64

// keywordWeight pairs a keyword with its computed weight, used only
// internally to sort before aggregating.
type keywordWeight struct {
	keyword string
	weight  float64
}

// Score computes the aggregated total and the serialized keyword string
// for one link given its raw classifier scores and the vocabulary.
//
// Per-keyword weight is rawScore × vocab[keyword], or rawScore × 0.25 if
// the keyword is out of vocabulary. Weights are sorted descending and
// combined as Σ weight_i / 2^i, which converges strictly below 2.0. The
// keyword string lists names in the same descending-weight order, joined
// and bracketed with ";".
func Score(rawScores map[string]float64, vocab Vocabulary) (total float64, keywordString string) {
	weights := make([]keywordWeight, 0, len(rawScores))
	for kw, raw := range rawScores {
		vocabWeight, ok := vocab[kw]
		if !ok {
			vocabWeight = outOfVocabularyPenalty
		}
		weights = append(weights, keywordWeight{keyword: kw, weight: raw * vocabWeight})
	}

	sort.Slice(weights, func(i, j int) bool {
		return weights[i].weight > weights[j].weight
	})

	divisor := 1.0
	names := make([]string, 0, len(weights))
	for _, kw := range weights {
		total += kw.weight / divisor
		divisor *= 2
		names = append(names, kw.keyword)
	}

	if len(names) == 0 {
		return 0, ""
	}
	return total, ";" + strings.Join(names, ";") + ";"
}
