package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

func TestNew(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		c, err := New(100, 20)
		require.NoError(t, err)
		require.NotNil(t, c)
	})

	t.Run("overlap equal to target size", func(t *testing.T) {
		_, err := New(100, 100)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("overlap above target size", func(t *testing.T) {
		_, err := New(100, 150)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("negative overlap", func(t *testing.T) {
		_, err := New(100, -1)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("zero target size", func(t *testing.T) {
		_, err := New(0, 0)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestChunkDegenerateInput(t *testing.T) {
	c, err := New(100, 10)
	require.NoError(t, err)

	assert.Empty(t, c.Chunk(nil))
	assert.Empty(t, c.Chunk([]domain.Block{{Text: "", SourceTag: "p1"}}))
	assert.Empty(t, c.Chunk([]domain.Block{{Text: "   \n\t  ", SourceTag: "p1"}}))
}

func TestChunkSizeBound(t *testing.T) {
	c, err := New(50, 10)
	require.NoError(t, err)

	text := strings.Repeat("The policy covers hospitalization expenses. ", 20)
	passages := c.Chunk([]domain.Block{{Text: text, SourceTag: "PDF page 1"}})
	require.NotEmpty(t, passages)
	for _, p := range passages {
		assert.LessOrEqual(t, len([]rune(p.Text)), 50, "passage %d exceeds target size", p.SequenceIndex)
		assert.Equal(t, "PDF page 1", p.SourceTag)
	}
}

// Reconstruction: dropping each passage's overlap with the previous one and
// concatenating must give back the original text.
func TestChunkReconstruction(t *testing.T) {
	c, err := New(80, 16)
	require.NoError(t, err)

	text := "Section 1. The grace period for premium payment is thirty days from the due date. " +
		"Section 2. Pre-existing diseases carry a waiting period of thirty-six months. " +
		"Section 3. Knee surgery is covered after a ninety day waiting period.\n\n" +
		"Section 4. Maternity expenses require twenty-four months of continuous coverage."
	passages := c.Chunk([]domain.Block{{Text: text, SourceTag: "p1"}})
	require.NotEmpty(t, passages)

	rebuilt := passages[0].Text
	for _, p := range passages[1:] {
		overlap := 0
		for n := min(len(rebuilt), len(p.Text)); n > 0; n-- {
			if strings.HasSuffix(rebuilt, p.Text[:n]) {
				overlap = n
				break
			}
		}
		rebuilt += p.Text[overlap:]
	}
	assert.Equal(t, text, rebuilt)
}

func TestChunkPrefersParagraphBreak(t *testing.T) {
	c, err := New(60, 0)
	require.NoError(t, err)

	text := "First paragraph about coverage limits here.\n\nSecond paragraph about exclusions and waiting periods over here."
	passages := c.Chunk([]domain.Block{{Text: text, SourceTag: "p1"}})
	require.GreaterOrEqual(t, len(passages), 2)
	assert.True(t, strings.HasSuffix(passages[0].Text, "\n\n"),
		"first chunk should end at the paragraph break, got %q", passages[0].Text)
}

func TestChunkPrefersWhitespaceOverHardCut(t *testing.T) {
	c, err := New(20, 0)
	require.NoError(t, err)

	text := "alpha bravo charlie delta echo foxtrot golf"
	passages := c.Chunk([]domain.Block{{Text: text, SourceTag: "p1"}})
	require.NotEmpty(t, passages)
	for _, p := range passages[:len(passages)-1] {
		assert.True(t, strings.HasSuffix(p.Text, " "),
			"chunk %q should end on whitespace, not mid-word", p.Text)
	}
}

func TestChunkHardCutWithoutBoundaries(t *testing.T) {
	c, err := New(10, 0)
	require.NoError(t, err)

	text := strings.Repeat("x", 25)
	passages := c.Chunk([]domain.Block{{Text: text, SourceTag: "p1"}})
	require.Len(t, passages, 3)
	assert.Equal(t, strings.Repeat("x", 10), passages[0].Text)
	assert.Equal(t, strings.Repeat("x", 5), passages[2].Text)
}

func TestChunkOverlapCarriesContext(t *testing.T) {
	c, err := New(30, 10)
	require.NoError(t, err)

	text := "one two three four five six seven eight nine ten eleven twelve"
	passages := c.Chunk([]domain.Block{{Text: text, SourceTag: "p1"}})
	require.GreaterOrEqual(t, len(passages), 2)
	// the head of every later chunk repeats the tail of its predecessor
	for i := 1; i < len(passages); i++ {
		head := []rune(passages[i].Text)
		n := min(len(head), 10)
		assert.True(t, strings.HasSuffix(passages[i-1].Text, string(head[:n])),
			"chunk %d should start with chunk %d's tail", i, i-1)
	}
}

func TestChunkSequenceAcrossBlocks(t *testing.T) {
	c, err := New(1000, 100)
	require.NoError(t, err)

	blocks := []domain.Block{
		{Text: "The grace period is 30 days.", SourceTag: "PDF page 1"},
		{Text: "", SourceTag: "PDF page 2"},
		{Text: "Knee surgery is covered after 90 days.", SourceTag: "PDF page 3"},
	}
	passages := c.Chunk(blocks)
	require.Len(t, passages, 2)
	assert.Equal(t, 0, passages[0].SequenceIndex)
	assert.Equal(t, "PDF page 1", passages[0].SourceTag)
	assert.Equal(t, 1, passages[1].SequenceIndex)
	assert.Equal(t, "PDF page 3", passages[1].SourceTag)
}
