package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunks_FiveWordsBudgetTwo(t *testing.T) {
	chunks := ChunkText("one two three four five", 2)
	assert.Equal(t, []string{"one two", "three four", "five"}, chunks)
}

func TestChunks_EmptyInput(t *testing.T) {
	assert.Empty(t, ChunkText("", 200))
	assert.Empty(t, ChunkText("   \n\t  ", 200))
}

func TestChunks_SingleChunkWhenUnderBudget(t *testing.T) {
	chunks := ChunkText("short report text", 200)
	assert.Equal(t, []string{"short report text"}, chunks)
}

func TestChunks_WordCountsBoundedAndSequencePreserved(t *testing.T) {
	words := make([]string, 0, 1050)
	for i := 0; i < 1050; i++ {
		words = append(words, "w")
	}
	text := strings.Join(words, " ")

	var rejoined []string
	for chunk := range Chunks(text, 200) {
		count := len(strings.Fields(chunk))
		assert.LessOrEqual(t, count, 200)
		rejoined = append(rejoined, strings.Fields(chunk)...)
	}

	// Concatenating all chunks reproduces the original word sequence.
	assert.Equal(t, strings.Fields(text), rejoined)
	assert.Len(t, ChunkText(text, 200), 6)
}

func TestChunks_Restartable(t *testing.T) {
	seq := Chunks("alpha beta gamma delta", 3)

	var first, second []string
	for c := range seq {
		first = append(first, c)
	}
	for c := range seq {
		second = append(second, c)
	}
	assert.Equal(t, first, second)
}

func TestChunks_EarlyStop(t *testing.T) {
	var got []string
	for chunk := range Chunks("a b c d e f", 2) {
		got = append(got, chunk)
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"a b", "c d"}, got)
}

func TestChunks_NonPositiveBudgetUsesDefault(t *testing.T) {
	chunks := ChunkText("one two three", 0)
	assert.Equal(t, []string{"one two three"}, chunks)
}
