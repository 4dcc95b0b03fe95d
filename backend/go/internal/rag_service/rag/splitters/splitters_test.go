package splitters

import (
	"fmt"
	"strings"
	"testing"

	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/errs"
	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func words(from, to int) string {
	ws := make([]string, 0, to-from)
	for i := from; i < to; i++ {
		ws = append(ws, fmt.Sprintf("w%d", i))
	}
	return strings.Join(ws, " ")
}

func TestNewRecursiveSplitterRejectsBadSettings(t *testing.T) {
	tests := []struct {
		name             string
		chunkSize, overl int
	}{
		{"overlap equals size", 100, 100},
		{"overlap above size", 100, 150},
		{"negative overlap", 100, -1},
		{"zero size", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRecursiveSplitter(tt.chunkSize, tt.overl, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, errs.ErrChunking)
			assert.ErrorIs(t, err, errs.ErrInvalidConfig)
		})
	}
}

func TestSplitTextWordWindows(t *testing.T) {
	s, err := NewRecursiveSplitter(DefaultChunkSize, DefaultOverlap, nil)
	require.NoError(t, err)

	chunks := s.SplitText(words(0, 2400))
	require.Len(t, chunks, 3)
	assert.Equal(t, words(0, 1000), chunks[0])
	assert.Equal(t, words(800, 1800), chunks[1])
	assert.Equal(t, words(1600, 2400), chunks[2])
}

// sentences renders sentences from to to-1, ten words each, joined by ". ".
func sentences(from, to int) string {
	ss := make([]string, 0, to-from)
	for i := from; i < to; i++ {
		ss = append(ss, fmt.Sprintf("Sentence %d describes how containers share the host kernel today", i))
	}
	return strings.Join(ss, ". ")
}

func TestSplitTextSentenceWindows(t *testing.T) {
	s, err := NewRecursiveSplitter(DefaultChunkSize, DefaultOverlap, nil)
	require.NoError(t, err)

	// 240 sentences of 10 words: windows of 100 sentences overlapping by 20.
	chunks := s.SplitText(sentences(0, 240) + ".")
	require.Len(t, chunks, 3)
	assert.Equal(t, sentences(0, 100), chunks[0])
	assert.Equal(t, sentences(80, 180), chunks[1])
	assert.Equal(t, sentences(160, 240)+".", chunks[2])
	for i, c := range chunks {
		assert.False(t, strings.HasPrefix(c, "."), "chunk %d", i)
		assert.LessOrEqual(t, WordCount(c), DefaultChunkSize, "chunk %d", i)
	}

	// The last 200 words of a chunk open the next one.
	overlap := sentences(80, 100)
	assert.Equal(t, DefaultOverlap, WordCount(overlap))
	assert.True(t, strings.HasSuffix(chunks[0], overlap))
	assert.True(t, strings.HasPrefix(chunks[1], overlap))
}

func paragraphs(from, to int) string {
	ps := make([]string, 0, to-from)
	for i := from; i < to; i++ {
		ps = append(ps, sentences(i*5, i*5+5)+".")
	}
	return strings.Join(ps, "\n\n")
}

func TestSplitTextParagraphWindows(t *testing.T) {
	s, err := NewRecursiveSplitter(DefaultChunkSize, DefaultOverlap, nil)
	require.NoError(t, err)

	// 48 paragraphs of 50 words: windows of 20 paragraphs overlapping by 4.
	chunks := s.SplitText(paragraphs(0, 48))
	require.Len(t, chunks, 3)
	assert.Equal(t, paragraphs(0, 20), chunks[0])
	assert.Equal(t, paragraphs(16, 36), chunks[1])
	assert.Equal(t, paragraphs(32, 48), chunks[2])
	assert.Equal(t, 800, WordCount(chunks[2]))
}

func TestSplitTextDropsLeadingPunctuation(t *testing.T) {
	s, err := NewRecursiveSplitter(4, 0, nil)
	require.NoError(t, err)

	chunks := s.SplitText("one two three. four five six. seven eight")
	assert.Equal(t, []string{"one two three", "four five six", "seven eight"}, chunks)
}

func TestSplitTextEdgeCases(t *testing.T) {
	s, err := NewRecursiveSplitter(10, 2, nil)
	require.NoError(t, err)

	assert.Empty(t, s.SplitText(""))
	assert.Empty(t, s.SplitText(" \n\n\t "))
	assert.Equal(t, []string{"a short text."}, s.SplitText("  a short text.  "))
}

func TestSplitTextPrefersParagraphBreaks(t *testing.T) {
	s, err := NewRecursiveSplitter(5, 0, nil)
	require.NoError(t, err)

	chunks := s.SplitText("a b c\n\nd e f\n\ng h")
	assert.Equal(t, []string{"a b c", "d e f\n\ng h"}, chunks)
}

func TestSplitTextBoundsChunkSize(t *testing.T) {
	var b strings.Builder
	for p := 0; p < 12; p++ {
		b.WriteString("# Section heading\n")
		for l := 0; l < 6; l++ {
			b.WriteString("Containers share the host kernel, so startup is fast. Images are layered; layers are cached!\n")
		}
		b.WriteString("\n")
	}

	s, err := NewRecursiveSplitter(40, 8, nil)
	require.NoError(t, err)

	chunks := s.SplitText(b.String())
	require.NotEmpty(t, chunks)
	for i, c := range chunks {
		assert.LessOrEqual(t, WordCount(c), 40, "chunk %d", i)
		assert.NotEmpty(t, c)
		assert.Equal(t, strings.TrimSpace(c), c)
	}
}

func TestSplitTextIsDeterministic(t *testing.T) {
	s, err := NewRecursiveSplitter(50, 10, nil)
	require.NoError(t, err)
	text := strings.Repeat("Alpha beta gamma. Delta epsilon!\n", 80)

	assert.Equal(t, s.SplitText(text), s.SplitText(text))
}

func TestSplitKeepingSeparator(t *testing.T) {
	assert.Equal(t, []string{"a", ". b", ". c"}, splitKeepingSeparator("a. b. c", ". "))
	assert.Equal(t, []string{"\n\nb"}, splitKeepingSeparator("\n\nb", "\n\n"))
	assert.Equal(t, []string{"a", "b"}, splitKeepingSeparator("ab", ""))
}

func testDocument(text string) *schema.Document {
	return &schema.Document{
		ID:       "doc-1",
		Type:     schema.DocTypeDocumentation,
		Source:   "docker",
		FilePath: "documentations/docker/intro.md",
		FileName: "intro.md",
		Text:     text,
		Stats:    schema.TextStats{WordCount: WordCount(text)},
	}
}

func TestDocumentChunkerChunk(t *testing.T) {
	c, err := NewDocumentChunker(1000, 200)
	require.NoError(t, err)

	doc := testDocument(words(0, 2400))
	chunks, err := c.Chunk(doc)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	for i, ch := range chunks {
		assert.Equal(t, schema.ChunkID("doc-1", i, ch.Content), ch.ChunkID)
		assert.Equal(t, "doc-1", ch.DocID)
		assert.Equal(t, len([]rune(ch.Content)), ch.CharCount)
		assert.Equal(t, schema.ChunkMetadata{
			DocName:           "intro.md",
			DocType:           schema.DocTypeDocumentation,
			Source:            "docker",
			DocPath:           "documentations/docker/intro.md",
			WordCountAtSource: 2400,
			ChunkIndex:        i,
			ChunkSize:         1000,
			Overlap:           200,
			TotalChunks:       3,
		}, ch.Metadata)
	}
	assert.Equal(t, 1000, chunks[0].WordCount)
	assert.Equal(t, 800, chunks[2].WordCount)

	again, err := c.Chunk(doc)
	require.NoError(t, err)
	assert.Equal(t, chunks, again)
}

func TestDocumentChunkerParagraphText(t *testing.T) {
	c, err := NewDocumentChunker(1000, 200)
	require.NoError(t, err)

	chunks, err := c.Chunk(testDocument(paragraphs(0, 48)))
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, []int{1000, 1000, 800}, []int{chunks[0].WordCount, chunks[1].WordCount, chunks[2].WordCount})
	assert.Equal(t, 3, chunks[0].Metadata.TotalChunks)
}

func TestDocumentChunkerEmptyText(t *testing.T) {
	c, err := NewDocumentChunker(100, 10)
	require.NoError(t, err)

	chunks, err := c.Chunk(testDocument(""))
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestDocumentChunkerMissingMetadata(t *testing.T) {
	c, err := NewDocumentChunker(100, 10)
	require.NoError(t, err)

	doc := testDocument("some text")
	doc.Source = ""
	_, err = c.Chunk(doc)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrProcessing)
	assert.ErrorIs(t, err, errs.ErrMissingMetadata)
	assert.Contains(t, err.Error(), "source")
}
