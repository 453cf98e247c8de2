package corpus

import (
	"strings"
	"testing"

	"github.com/clinvector/ehrqa/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreprocess_CombinesReportColumns(t *testing.T) {
	in := strings.NewReader(
		"uid,findings,impression\n" +
			"1,The lungs are clear.,No acute disease.\n" +
			"2,  ,  \n" +
			"3,\"Heart size\nnormal\",\n")

	var out strings.Builder
	kept, err := Preprocess(in, &out)
	require.NoError(t, err)
	assert.Equal(t, 2, kept)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "uid,findings,impression,combined_text", lines[0])
	assert.Contains(t, lines[1], "The lungs are clear. No acute disease.")
	// Newlines and repeated whitespace are collapsed.
	assert.Contains(t, lines[2], "Heart size normal")
}

func TestPreprocess_FallsBackToAllColumns(t *testing.T) {
	in := strings.NewReader("note,extra\nsome text,more\n")
	var out strings.Builder
	kept, err := Preprocess(in, &out)
	require.NoError(t, err)
	assert.Equal(t, 1, kept)
	assert.Contains(t, out.String(), "some text more")
}

func TestReadDocuments_RequiresCombinedText(t *testing.T) {
	in := strings.NewReader("uid,findings\n1,clear lungs\n")
	_, err := ReadDocuments(in)
	assert.ErrorIs(t, err, domain.ErrMissingTextColumn)
}

func TestReadDocuments_SkipsEmptyRowsAndNumbersInOrder(t *testing.T) {
	in := strings.NewReader(
		"uid,combined_text\n" +
			"1,first report\n" +
			"2,   \n" +
			"3,second report\n")

	docs, err := ReadDocuments(in)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, 0, docs[0].ID)
	assert.Equal(t, "first report", docs[0].Text)
	assert.Equal(t, 1, docs[1].ID)
	assert.Equal(t, "second report", docs[1].Text)
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "a b c", CleanText("  a\n b\t\tc  "))
	assert.Equal(t, "", CleanText("   "))
}
