// Package eval replays a validation question set through the retrieval and
// generation pipeline and scores the generated answers against gold answers.
package eval

import (
	"math"
	"strings"
)

// epsilon avoids division by zero on empty token sets.
const epsilon = 1e-8

// TokenMetrics holds token-level overlap scores for one prediction.
type TokenMetrics struct {
	Precision float64
	Recall    float64
	F1        float64
}

// tokenize lowercases and splits on whitespace.
func tokenize(s string) []string {
	return strings.Fields(strings.ToLower(s))
}

// TokenF1 computes set-intersection precision, recall, and F1 over
// lowercased whitespace tokens.
func TokenF1(generated, reference string) TokenMetrics {
	genSet := make(map[string]bool)
	for _, tok := range tokenize(generated) {
		genSet[tok] = true
	}
	refSet := make(map[string]bool)
	for _, tok := range tokenize(reference) {
		refSet[tok] = true
	}

	tp := 0
	for tok := range genSet {
		if refSet[tok] {
			tp++
		}
	}

	precision := float64(tp) / (float64(len(genSet)) + epsilon)
	recall := float64(tp) / (float64(len(refSet)) + epsilon)

	f1 := 0.0
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}
	return TokenMetrics{Precision: precision, Recall: recall, F1: f1}
}

// BLEU computes a smoothed sentence BLEU with equal unigram and bigram
// weights and a brevity penalty. Zero n-gram counts are smoothed so short
// answers never score exactly zero against a non-empty overlap.
func BLEU(generated, reference string) float64 {
	gen := strings.Fields(generated)
	ref := strings.Fields(reference)
	if len(gen) == 0 || len(ref) == 0 {
		return 0
	}

	p1 := modifiedPrecision(gen, ref, 1)
	p2 := modifiedPrecision(gen, ref, 2)

	score := math.Exp(0.5*math.Log(p1) + 0.5*math.Log(p2))
	return brevityPenalty(len(gen), len(ref)) * score
}

// modifiedPrecision is the clipped n-gram precision; zero numerators are
// smoothed to 0.1 matches.
func modifiedPrecision(gen, ref []string, n int) float64 {
	genGrams := ngrams(gen, n)
	if len(genGrams) == 0 {
		return epsilon
	}
	refCounts := make(map[string]int)
	for _, g := range ngrams(ref, n) {
		refCounts[g]++
	}

	total := 0
	genCounts := make(map[string]int)
	for _, g := range genGrams {
		genCounts[g]++
	}
	for g, count := range genCounts {
		if count > refCounts[g] {
			count = refCounts[g]
		}
		total += count
	}

	num := float64(total)
	if num == 0 {
		num = 0.1
	}
	return num / float64(len(genGrams))
}

func ngrams(tokens []string, n int) []string {
	if len(tokens) < n {
		return nil
	}
	out := make([]string, 0, len(tokens)-n+1)
	for i := 0; i+n <= len(tokens); i++ {
		out = append(out, strings.Join(tokens[i:i+n], " "))
	}
	return out
}

func brevityPenalty(genLen, refLen int) float64 {
	if genLen == 0 {
		return 0
	}
	if genLen >= refLen {
		return 1
	}
	return math.Exp(1 - float64(refLen)/float64(genLen))
}
