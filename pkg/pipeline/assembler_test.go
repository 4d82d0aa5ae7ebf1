package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hadv/yitam-admin-sub000/internal/models"
	"github.com/hadv/yitam-admin-sub000/internal/types"
	"github.com/hadv/yitam-admin-sub000/pkg/continuity"
	"github.com/hadv/yitam-admin-sub000/pkg/pipeline"
	"github.com/hadv/yitam-admin-sub000/pkg/store"
)

// fakeEmbedder returns a constant vector, or fails on demand.
type fakeEmbedder struct {
	fail bool
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.fail {
		return nil, errors.New("connection refused")
	}
	return []float32{1, 0, 0, 0}, nil
}

func (f *fakeEmbedder) Dimension() int { return 4 }

// failingStore simulates a down database on every operation.
type failingStore struct{}

func (failingStore) Upsert(ctx context.Context, points []models.DocumentChunk) error {
	return errors.New("connection refused")
}

func (failingStore) Search(ctx context.Context, vector []float32, limit int) ([]models.ScoredChunk, error) {
	return nil, errors.New("connection refused")
}

func (failingStore) DeleteByFilter(ctx context.Context, f types.Filter) (int, error) {
	return 0, errors.New("connection refused")
}

func (failingStore) CountByFilter(ctx context.Context, f types.Filter) (int, error) {
	return 0, errors.New("connection refused")
}

func (failingStore) Scroll(ctx context.Context, f types.Filter, pageSize, offset int) ([]models.DocumentChunk, error) {
	return nil, errors.New("connection refused")
}

func newAssembler(primary types.VectorStore, embedder pipeline.TextEmbedder) *pipeline.ChunkAssembler {
	repair := continuity.NewWithConfig(continuity.Config{AIEnabled: false}, nil)
	return pipeline.NewWithConfig(types.PipelineConfig{
		ChunksPerPage:     5,
		ChunkOverlap:      0.2,
		RespectBoundaries: true,
		PreserveHeadings:  true,
	}, repair, embedder, nil, primary)
}

func pages(contents ...string) []models.Page {
	out := make([]models.Page, len(contents))
	for i, c := range contents {
		out[i] = models.Page{PageNumber: i + 1, Content: c}
	}
	return out
}

func TestIngestPages_DeterministicIDs(t *testing.T) {
	primary := store.NewMemoryStore()
	a := newAssembler(primary, &fakeEmbedder{})

	result, err := a.IngestPages(context.Background(), pipeline.DocumentMeta{
		DocumentName: "duoc-dien",
		SourceFile:   "duoc-dien.txt",
	}, pages("First page content here.", "Second page content here."))

	require.NoError(t, err)
	assert.Equal(t, 2, result.Pages)
	assert.Equal(t, 2, result.Chunks)
	assert.False(t, result.Degraded)

	stored, err := primary.Scroll(context.Background(), types.Filter{}, 10, 0)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "duoc-dien_page001_chunk0", stored[0].ID)
	assert.Equal(t, "duoc-dien_page002_chunk0", stored[1].ID)
}

func TestIngestPages_SkipsEmptyPages(t *testing.T) {
	primary := store.NewMemoryStore()
	a := newAssembler(primary, &fakeEmbedder{})

	result, err := a.IngestPages(context.Background(), pipeline.DocumentMeta{
		DocumentName: "doc",
	}, pages("Real content.", "   \n  ", "More content."))

	require.NoError(t, err)
	assert.Equal(t, 2, result.Pages)
	assert.Equal(t, 2, result.Chunks)
}

func TestIngestPages_DomainsIdenticalAcrossChunks(t *testing.T) {
	primary := store.NewMemoryStore()
	a := newAssembler(primary, &fakeEmbedder{})

	_, err := a.IngestPages(context.Background(), pipeline.DocumentMeta{
		DocumentName: "doc",
		Domains:      []string{"herbal", "classic", "herbal", ""},
	}, pages("Page one content.", "Page two content."))
	require.NoError(t, err)

	stored, err := primary.Scroll(context.Background(), types.Filter{}, 10, 0)
	require.NoError(t, err)
	require.NotEmpty(t, stored)
	for _, c := range stored {
		assert.Equal(t, []string{"classic", "herbal"}, c.Domains)
	}
}

func TestIngestPages_ReIngestReplaces(t *testing.T) {
	primary := store.NewMemoryStore()
	a := newAssembler(primary, &fakeEmbedder{})
	meta := pipeline.DocumentMeta{DocumentName: "doc"}

	first, err := a.IngestPages(context.Background(), meta, pages("Original content of the page."))
	require.NoError(t, err)
	assert.Zero(t, first.ReplacedChunks)

	second, err := a.IngestPages(context.Background(), meta, pages("Updated content of the page."))
	require.NoError(t, err)
	assert.Equal(t, first.Chunks, second.ReplacedChunks)

	count, err := primary.CountByFilter(context.Background(), types.Filter{DocumentName: "doc"})
	require.NoError(t, err)
	assert.Equal(t, second.Chunks, count)
}

func TestIngestPages_RepairsBoundaries(t *testing.T) {
	primary := store.NewMemoryStore()
	a := newAssembler(primary, &fakeEmbedder{})

	result, err := a.IngestPages(context.Background(), pipeline.DocumentMeta{
		DocumentName: "doc",
	}, pages("The lamp burns con", "tinuously through the night. The story continues at length."))

	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.RepairedPages, 1)

	stored, err := primary.Scroll(context.Background(), types.Filter{IDPrefix: "doc_page001"}, 10, 0)
	require.NoError(t, err)
	require.NotEmpty(t, stored)
	assert.Contains(t, stored[0].Content, "continuously")
}

func TestIngestPages_AllDependenciesDown(t *testing.T) {
	a := newAssembler(failingStore{}, &fakeEmbedder{fail: true})

	result, err := a.IngestPages(context.Background(), pipeline.DocumentMeta{
		DocumentName: "doc",
	}, pages("Content survives every outage.", "Each page still becomes a chunk."))

	require.NoError(t, err, "ingest must complete when every dependency is down")
	assert.Equal(t, 2, result.Chunks)
	assert.True(t, result.Degraded)
	assert.Equal(t, 2, a.Mirror().Len())

	// Search degrades to the mirror too.
	results, err := a.Search(context.Background(), "outage", 5)
	require.NoError(t, err)
	assert.NotEmpty(t, results)
}

func TestIngestPages_PlaceholderVectorsAreDeterministic(t *testing.T) {
	a := newAssembler(failingStore{}, &fakeEmbedder{fail: true})
	meta := pipeline.DocumentMeta{DocumentName: "doc"}

	_, err := a.IngestPages(context.Background(), meta, pages("Some page content here."))
	require.NoError(t, err)
	before, err := a.Mirror().Scroll(context.Background(), types.Filter{}, 10, 0)
	require.NoError(t, err)

	_, err = a.IngestPages(context.Background(), meta, pages("Some page content here."))
	require.NoError(t, err)
	after, err := a.Mirror().Scroll(context.Background(), types.Filter{}, 10, 0)
	require.NoError(t, err)

	require.Len(t, before, 1)
	require.Len(t, after, 1)
	assert.Equal(t, before[0].Embedding, after[0].Embedding,
		"degraded re-ingest must be idempotent")
	assert.Len(t, before[0].Embedding, 4)
}

func TestIngestTranscript(t *testing.T) {
	primary := store.NewMemoryStore()
	a := newAssembler(primary, &fakeEmbedder{})

	result, err := a.IngestTranscript(context.Background(), "lecture01", pipeline.DocumentMeta{
		DocumentName: "lecture one",
	}, "A transcription of the lecture. It has a few sentences in it.")

	require.NoError(t, err)
	assert.Equal(t, 1, result.Pages)
	require.Equal(t, 1, result.Chunks)

	stored, err := primary.Scroll(context.Background(), types.Filter{IDPrefix: "lecture01_chunk_"}, 10, 0)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "lecture01_chunk_0", stored[0].ID)
}

func TestIngestPages_EmptyInput(t *testing.T) {
	a := newAssembler(store.NewMemoryStore(), &fakeEmbedder{})

	result, err := a.IngestPages(context.Background(), pipeline.DocumentMeta{DocumentName: "doc"}, nil)

	require.NoError(t, err)
	assert.Zero(t, result.Chunks)
}
