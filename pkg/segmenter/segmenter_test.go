package segmenter_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hadv/yitam-admin-sub000/pkg/segmenter"
)

func para(n int) string {
	sentence := "All work and no play makes text. "
	return strings.TrimSpace(strings.Repeat(sentence, n/len(sentence)+1))[:n]
}

func TestSegment_EmptyInput(t *testing.T) {
	s := segmenter.NewWithConfig(segmenter.Config{})
	assert.Nil(t, s.Segment(""))
	assert.Nil(t, s.Segment("   \n\n  "))
}

func TestSegment_ShortPageSingleChunk(t *testing.T) {
	s := segmenter.NewWithConfig(segmenter.Config{MaxChunks: 5, TargetChunkSize: 1000})
	text := "One small paragraph that fits in a single chunk."

	chunks := s.Segment(text)

	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0])
}

func TestSegment_RespectsMaxChunks(t *testing.T) {
	s := segmenter.NewWithConfig(segmenter.Config{MaxChunks: 3, TargetChunkSize: 100, OverlapSize: 20})

	paras := make([]string, 10)
	for i := range paras {
		paras[i] = para(80)
	}
	text := strings.Join(paras, "\n\n")

	chunks := s.Segment(text)

	assert.LessOrEqual(t, len(chunks), 3)
	assert.NotEmpty(t, chunks)
}

func TestSegment_HeadingLeadsPage(t *testing.T) {
	s := segmenter.NewWithConfig(segmenter.Config{MaxChunks: 2, TargetChunkSize: 1500, OverlapSize: 200})

	text := "## Section A\n\n" + para(700) + "\n\n" + para(700) + "\n\n" + para(700) + "\n\n" + para(700)

	chunks := s.Segment(text)

	require.Len(t, chunks, 2)
	assert.True(t, strings.HasPrefix(chunks[0], "## Section A"))
}

func TestSegment_HeadingStartsNewChunk(t *testing.T) {
	s := segmenter.NewWithConfig(segmenter.Config{MaxChunks: 5, TargetChunkSize: 100, OverlapSize: 20})

	text := para(120) + "\n\n## Section B\n\n" + para(60)

	chunks := s.Segment(text)

	require.Len(t, chunks, 2)
	assert.True(t, strings.HasPrefix(chunks[1], "## Section B"),
		"a heading is never used as overlap carry-over")
}

func TestSegment_PreserveHeadingsReattaches(t *testing.T) {
	s := segmenter.NewWithConfig(segmenter.Config{
		MaxChunks:        5,
		TargetChunkSize:  100,
		OverlapSize:      20,
		PreserveHeadings: true,
	})

	text := para(50) + "\n\n## Care\n\n" + para(50)

	chunks := s.Segment(text)

	require.Len(t, chunks, 2)
	assert.True(t, strings.HasPrefix(chunks[1], "## Care"),
		"heading must travel with its first body paragraph")
}

func TestSegment_OverlapCarriesUnterminatedTail(t *testing.T) {
	s := segmenter.NewWithConfig(segmenter.Config{MaxChunks: 5, TargetChunkSize: 100, OverlapSize: 30})

	first := "First sentence here. Trailing fragment without end"
	text := first + "\n\n" + para(70)

	chunks := s.Segment(text)

	require.Len(t, chunks, 2)
	assert.True(t, strings.HasPrefix(chunks[1], "Trailing fragment without end"),
		"the unterminated tail carries over into the next chunk")
}

func TestSegment_ListItemsStayOnAdjacentLines(t *testing.T) {
	s := segmenter.NewWithConfig(segmenter.Config{MaxChunks: 5, TargetChunkSize: 1000})

	text := "Shopping list:\n\n- rice\n\n- beans\n\n- salt"

	chunks := s.Segment(text)

	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0], "- rice\n- beans\n- salt")
}

func TestSplitPlain(t *testing.T) {
	s := segmenter.NewWithConfig(segmenter.Config{MaxChunks: 10, TargetChunkSize: 50, OverlapSize: 10})

	text := strings.TrimSpace(strings.Repeat("alpha beta gamma ", 20))

	chunks := s.SplitPlain(text)

	require.NotEmpty(t, chunks)
	assert.LessOrEqual(t, len(chunks), 10)
	for _, chunk := range chunks {
		for _, word := range strings.Fields(chunk) {
			assert.Contains(t, []string{"alpha", "beta", "gamma"}, word,
				"plain splitting must not cut words")
		}
	}
}

func TestSplitPlain_Empty(t *testing.T) {
	s := segmenter.NewWithConfig(segmenter.Config{})
	assert.Nil(t, s.SplitPlain("  \n "))
}
