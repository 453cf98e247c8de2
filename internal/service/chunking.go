package service

import (
	"iter"
	"strings"
)

// DefaultChunkWords is the word budget per retrieval chunk.
const DefaultChunkWords = 200

// Chunks splits text into non-overlapping chunks of at most maxWords words,
// covering the input left to right. The sequence is lazy and restartable;
// ranging over it twice yields the same chunks. Splitting is purely by word
// count and may cut a sentence mid-way; that approximation is intentional.
// Empty or whitespace-only input yields an empty sequence.
func Chunks(text string, maxWords int) iter.Seq[string] {
	if maxWords <= 0 {
		maxWords = DefaultChunkWords
	}
	return func(yield func(string) bool) {
		words := strings.Fields(text)
		for i := 0; i < len(words); i += maxWords {
			end := i + maxWords
			if end > len(words) {
				end = len(words)
			}
			if !yield(strings.Join(words[i:end], " ")) {
				return
			}
		}
	}
}

// ChunkText collects the chunk sequence into a slice.
func ChunkText(text string, maxWords int) []string {
	var out []string
	for chunk := range Chunks(text, maxWords) {
		out = append(out, chunk)
	}
	return out
}
