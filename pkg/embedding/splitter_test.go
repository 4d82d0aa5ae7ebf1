package embedding_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hadv/yitam-admin-sub000/pkg/embedding"
)

// countingEmbedder records every call and returns scripted vectors.
type countingEmbedder struct {
	mu      sync.Mutex
	calls   int
	inputs  []string
	vectors [][]float32
}

func (c *countingEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.calls
	c.calls++
	c.inputs = append(c.inputs, text)
	if idx < len(c.vectors) {
		return c.vectors[idx], nil
	}
	return []float32{1, 0}, nil
}

func (c *countingEmbedder) Dimension() int { return 2 }

func TestSplit_UnderLimitPassThrough(t *testing.T) {
	s := embedding.NewSplitter(&countingEmbedder{}, 100)

	pieces := s.Split("a short text")

	require.Len(t, pieces, 1)
	assert.Equal(t, "a short text", pieces[0])
}

func TestSplit_PiecesStayWithinLimit(t *testing.T) {
	s := embedding.NewSplitter(&countingEmbedder{}, 100)

	text := strings.TrimSpace(strings.Repeat("A complete sentence goes right here. ", 20))

	pieces := s.Split(text)

	require.Greater(t, len(pieces), 1)
	for _, p := range pieces {
		assert.LessOrEqual(t, len(p), 100)
	}
}

func TestSplit_NeverCutsWords(t *testing.T) {
	s := embedding.NewSplitter(&countingEmbedder{}, 50)

	// One long "sentence" with no terminators forces the word-group path.
	text := strings.TrimSpace(strings.Repeat("hippopotamus ", 30))

	pieces := s.Split(text)

	require.Greater(t, len(pieces), 1)
	for _, p := range pieces {
		for _, w := range strings.Fields(p) {
			assert.Equal(t, "hippopotamus", w)
		}
	}
}

func TestEmbed_UnderLimitSingleCall(t *testing.T) {
	emb := &countingEmbedder{vectors: [][]float32{{0.5, 0.5}}}
	s := embedding.NewSplitter(emb, 100)

	vector, err := s.Embed(context.Background(), "short")

	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.5}, vector)
	assert.Equal(t, 1, emb.calls)
}

func TestEmbed_OversizedAveragesPieces(t *testing.T) {
	emb := &countingEmbedder{vectors: [][]float32{{1, 0}, {0, 1}, {1, 1}}}
	s := embedding.NewSplitter(emb, 10000)

	// ~25k characters: three pieces, three calls, one averaged vector.
	text := strings.TrimSpace(strings.Repeat("Một câu hoàn chỉnh nằm ở đây trong văn bản. ", 470))
	require.Greater(t, len(text), 20000)

	vector, err := s.Embed(context.Background(), text)

	require.NoError(t, err)
	assert.Equal(t, 3, emb.calls)
	require.Len(t, vector, 2)
	assert.InDelta(t, 2.0/3.0, vector[0], 1e-6)
	assert.InDelta(t, 2.0/3.0, vector[1], 1e-6)
}

func TestEmbed_PieceOrderIndependentOfCompletion(t *testing.T) {
	emb := &countingEmbedder{}
	s := embedding.NewSplitter(emb, 100)

	text := strings.TrimSpace(strings.Repeat("Sentence number one is right here. ", 10))

	vector, err := s.Embed(context.Background(), text)

	require.NoError(t, err)
	assert.Len(t, vector, 2)
}
