// Package pipeline assembles repaired, segmented, embedded chunks and
// lands them in the vector store. It owns the degraded-mode policy:
// every external dependency call runs behind a fallback so a full
// ingest completes even with the AI service and the database both down.
package pipeline

import (
	"context"
	"fmt"
	"hash/fnv"
	"log"
	"math"
	"math/rand"
	"strings"
	"sync"

	"github.com/hadv/yitam-admin-sub000/internal/models"
	"github.com/hadv/yitam-admin-sub000/internal/types"
	"github.com/hadv/yitam-admin-sub000/pkg/continuity"
	"github.com/hadv/yitam-admin-sub000/pkg/resilience"
	"github.com/hadv/yitam-admin-sub000/pkg/segmenter"
	"github.com/hadv/yitam-admin-sub000/pkg/store"
)

// minTargetChunkSize is the floor for the derived per-page chunk size
// so short pages don't degenerate into one-word chunks.
const minTargetChunkSize = 200

// TextEmbedder is the embedding collaborator as the assembler sees it:
// payload splitting is already handled behind this interface.
type TextEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// DocumentMeta identifies the document being ingested.
type DocumentMeta struct {
	DocumentName string
	SourceFile   string
	Domains      []string
}

// Result summarizes one ingest run.
type Result struct {
	Pages          int
	Chunks         int
	RepairedPages  int
	ReplacedChunks int
	Degraded       bool
}

// ChunkAssembler drives ingest: continuity repair left to right,
// per-page segmentation, embedding, optional enrichment, upsert.
type ChunkAssembler struct {
	config    types.PipelineConfig
	repair    *continuity.Engine
	embedder  TextEmbedder
	generator types.Generator
	primary   types.VectorStore
	mirror    *store.MemoryStore

	embedExec *resilience.Executor
	storeExec *resilience.Executor
}

func NewWithConfig(config types.PipelineConfig, repair *continuity.Engine,
	embedder TextEmbedder, generator types.Generator, primary types.VectorStore) *ChunkAssembler {
	if config.ChunksPerPage == 0 {
		config.ChunksPerPage = 5
	}
	if config.ChunkOverlap == 0 {
		config.ChunkOverlap = 0.2
	}
	return &ChunkAssembler{
		config:    config,
		repair:    repair,
		embedder:  embedder,
		generator: generator,
		primary:   primary,
		mirror:    store.NewMemoryStore(),
		embedExec: resilience.New("embedding service",
			"Check that Ollama is running and the embedding model is pulled."),
		storeExec: resilience.New("vector store",
			"Check the database connection and that pgvector is installed."),
	}
}

// SetMirror replaces the in-memory fallback store.
func (a *ChunkAssembler) SetMirror(m *store.MemoryStore) {
	a.mirror = m
}

// Mirror exposes the fallback store, mainly for inspection after a
// degraded run.
func (a *ChunkAssembler) Mirror() *store.MemoryStore {
	return a.mirror
}

// Degraded reports whether any dependency is currently in fallback mode.
func (a *ChunkAssembler) Degraded() bool {
	return a.embedExec.FallbackActive("embed") ||
		a.storeExec.FallbackActive("upsert") ||
		a.storeExec.FallbackActive("search")
}

// IngestPages runs the full pipeline over parsed pages. Chunk IDs are
// deterministic, so re-ingesting a document replaces its previous
// chunks; stale chunks under the same document prefix are deleted
// first.
func (a *ChunkAssembler) IngestPages(ctx context.Context, meta DocumentMeta, pages []models.Page) (Result, error) {
	var res Result
	if len(pages) == 0 {
		return res, nil
	}

	domains := models.NormalizeDomains(meta.Domains)

	replaced, err := a.clearPrevious(ctx, types.Filter{IDPrefix: meta.DocumentName + "_page"})
	if err != nil {
		return res, err
	}
	res.ReplacedChunks = replaced

	repaired := a.repairPages(ctx, pages, &res)

	for _, page := range repaired {
		if strings.TrimSpace(page.Content) == "" {
			continue
		}
		res.Pages++

		texts := a.segmentPage(page.Content)
		chunks := make([]models.DocumentChunk, 0, len(texts))
		for i, text := range texts {
			chunks = append(chunks, models.DocumentChunk{
				Chunk: models.Chunk{
					ID:           models.PageChunkID(meta.DocumentName, page.PageNumber, i),
					DocumentName: meta.DocumentName,
					Content:      text,
					SourceFile:   meta.SourceFile,
					Domains:      domains,
				},
			})
		}

		a.enrichChunks(ctx, chunks)
		a.embedChunks(ctx, chunks)

		if err := a.upsert(ctx, chunks); err != nil {
			return res, fmt.Errorf("failed to store page %d: %v", page.PageNumber, err)
		}
		res.Chunks += len(chunks)
	}

	res.Degraded = a.Degraded()
	return res, nil
}

// IngestTranscript ingests a streamed source with no page structure:
// the whole text is one logical page and IDs carry the stream prefix.
func (a *ChunkAssembler) IngestTranscript(ctx context.Context, idPrefix string, meta DocumentMeta, text string) (Result, error) {
	var res Result
	if strings.TrimSpace(text) == "" {
		return res, nil
	}

	domains := models.NormalizeDomains(meta.Domains)

	replaced, err := a.clearPrevious(ctx, types.Filter{IDPrefix: idPrefix + "_chunk_"})
	if err != nil {
		return res, err
	}
	res.ReplacedChunks = replaced

	res.Pages = 1
	texts := a.segmentPage(text)
	chunks := make([]models.DocumentChunk, 0, len(texts))
	for i, t := range texts {
		chunks = append(chunks, models.DocumentChunk{
			Chunk: models.Chunk{
				ID:           models.StreamChunkID(idPrefix, i),
				DocumentName: meta.DocumentName,
				Content:      t,
				SourceFile:   meta.SourceFile,
				Domains:      domains,
			},
		})
	}

	a.enrichChunks(ctx, chunks)
	a.embedChunks(ctx, chunks)

	if err := a.upsert(ctx, chunks); err != nil {
		return res, fmt.Errorf("failed to store transcript chunks: %v", err)
	}
	res.Chunks = len(chunks)
	res.Degraded = a.Degraded()
	return res, nil
}

// Search embeds the query and returns the top matches, degrading to the
// in-memory mirror when the primary store is down.
func (a *ChunkAssembler) Search(ctx context.Context, query string, limit int) ([]models.ScoredChunk, error) {
	vector, err := a.embedText(ctx, "query:"+query, query)
	if err != nil {
		return nil, err
	}
	return resilience.Do(a.storeExec, "search",
		func() ([]models.ScoredChunk, error) { return a.primary.Search(ctx, vector, limit) },
		func() ([]models.ScoredChunk, error) { return a.mirror.Search(ctx, vector, limit) })
}

// Scroll lists stored chunks from the primary store, falling back to
// the mirror.
func (a *ChunkAssembler) Scroll(ctx context.Context, f types.Filter, pageSize, offset int) ([]models.DocumentChunk, error) {
	return resilience.Do(a.storeExec, "scroll",
		func() ([]models.DocumentChunk, error) { return a.primary.Scroll(ctx, f, pageSize, offset) },
		func() ([]models.DocumentChunk, error) { return a.mirror.Scroll(ctx, f, pageSize, offset) })
}

// clearPrevious removes chunks left by an earlier ingest of the same
// source. Count first so the caller can report what was replaced.
func (a *ChunkAssembler) clearPrevious(ctx context.Context, f types.Filter) (int, error) {
	count, err := resilience.Do(a.storeExec, "count",
		func() (int, error) { return a.primary.CountByFilter(ctx, f) },
		func() (int, error) { return a.mirror.CountByFilter(ctx, f) })
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}

	deleted, err := resilience.Do(a.storeExec, "delete",
		func() (int, error) { return a.primary.DeleteByFilter(ctx, f) },
		func() (int, error) { return a.mirror.DeleteByFilter(ctx, f) })
	if err != nil {
		return 0, err
	}
	// Keep the mirror consistent regardless of which side served the
	// delete.
	a.mirror.DeleteByFilter(ctx, f)
	log.Printf("replacing %d existing chunks for prefix %q", count, f.IDPrefix)
	return deleted, nil
}

// repairPages heals page boundaries strictly left to right so each
// page sees its already-repaired left neighbor.
func (a *ChunkAssembler) repairPages(ctx context.Context, pages []models.Page, res *Result) []models.Page {
	repaired := make([]models.Page, len(pages))
	for i, page := range pages {
		var prev *models.Page
		if i > 0 {
			prev = &repaired[i-1]
		}
		var next *models.Page
		if i+1 < len(pages) {
			next = &pages[i+1]
		}
		if a.repair != nil {
			page, modified := a.repair.Repair(ctx, prev, page, next)
			repaired[i] = page
			if modified {
				res.RepairedPages++
			}
			continue
		}
		repaired[i] = page
	}
	return repaired
}

// segmentPage derives per-page chunking parameters from the page
// length and the configured chunk count.
func (a *ChunkAssembler) segmentPage(content string) []string {
	target := len(content) / a.config.ChunksPerPage
	if target < minTargetChunkSize {
		target = minTargetChunkSize
	}
	overlap := int(float64(target) * a.config.ChunkOverlap)

	seg := segmenter.NewWithConfig(segmenter.Config{
		MaxChunks:        a.config.ChunksPerPage,
		TargetChunkSize:  target,
		OverlapSize:      overlap,
		PreserveHeadings: a.config.PreserveHeadings,
	})

	if a.config.RespectBoundaries {
		return seg.Segment(content)
	}
	return seg.SplitPlain(content)
}

// embedChunks fills each chunk's embedding concurrently within the
// page. A chunk is never dropped for an embedding failure; the
// fallback vector keeps it searchable by metadata and re-embeddable
// later under the same ID.
func (a *ChunkAssembler) embedChunks(ctx context.Context, chunks []models.DocumentChunk) {
	var wg sync.WaitGroup
	for i := range chunks {
		wg.Add(1)
		go func(c *models.DocumentChunk) {
			defer wg.Done()
			vector, err := a.embedText(ctx, c.ID, embeddingInput(c))
			if err != nil {
				// embedText's fallback is infallible; seen only on
				// context cancellation.
				vector = placeholderVector(c.ID, a.embedder.Dimension())
			}
			c.Embedding = vector
		}(&chunks[i])
	}
	wg.Wait()
}

// embeddingInput prefers enhanced content when enrichment produced it.
func embeddingInput(c *models.DocumentChunk) string {
	if c.EnhancedContent != "" {
		return c.EnhancedContent
	}
	return c.Content
}

func (a *ChunkAssembler) embedText(ctx context.Context, seed, text string) ([]float32, error) {
	return resilience.Do(a.embedExec, "embed",
		func() ([]float32, error) { return a.embedder.Embed(ctx, text) },
		func() ([]float32, error) { return placeholderVector(seed, a.embedder.Dimension()), nil })
}

// enrichChunks fills titles and summaries. The generator path is
// best-effort; the deterministic fallbacks always produce something.
func (a *ChunkAssembler) enrichChunks(ctx context.Context, chunks []models.DocumentChunk) {
	if !a.config.GenerateTitles && !a.config.GenerateSummaries {
		return
	}
	for i := range chunks {
		c := &chunks[i]
		if a.config.GenerateTitles {
			c.Title = a.generateOr(ctx, titlePrompt(c.Content), func() string {
				return fallbackTitle(c.Content)
			})
		}
		if a.config.GenerateSummaries {
			c.Summary = a.generateOr(ctx, summaryPrompt(c.Content), func() string {
				return fallbackSummary(c.Content)
			})
		}
	}
}

func (a *ChunkAssembler) generateOr(ctx context.Context, prompt string, fallback func() string) string {
	if a.generator == nil {
		return fallback()
	}
	out, err := a.generator.Generate(ctx, prompt, types.GenerateOptions{
		Temperature: 0.3,
		MaxTokens:   200,
	})
	out = strings.TrimSpace(strings.Trim(strings.TrimSpace(out), `"`))
	if err != nil || out == "" {
		return fallback()
	}
	return out
}

func titlePrompt(content string) string {
	return "Write a short descriptive title (at most 10 words) for the following text. " +
		"Use the same language as the text. Output only the title.\n\n" + content
}

func summaryPrompt(content string) string {
	return "Summarize the following text in one or two sentences. " +
		"Use the same language as the text. Output only the summary.\n\n" + content
}

// fallbackTitle is the first line or sentence, capped near 80
// characters at a word boundary.
func fallbackTitle(content string) string {
	line := content
	if idx := strings.IndexAny(line, "\n"); idx >= 0 {
		line = line[:idx]
	}
	if idx := strings.IndexAny(line, ".!?"); idx >= 0 {
		line = line[:idx]
	}
	return capAtWord(strings.TrimSpace(line), 80)
}

// fallbackSummary is the leading text capped near 200 characters.
func fallbackSummary(content string) string {
	return capAtWord(strings.TrimSpace(content), 200)
}

func capAtWord(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	end := n
	for end > 0 && !isSpaceRune(runes[end]) {
		end--
	}
	if end == 0 {
		end = n
	}
	return strings.TrimSpace(string(runes[:end]))
}

func isSpaceRune(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t'
}

func (a *ChunkAssembler) upsert(ctx context.Context, chunks []models.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	_, err := resilience.Do(a.storeExec, "upsert",
		func() (struct{}, error) { return struct{}{}, a.primary.Upsert(ctx, chunks) },
		func() (struct{}, error) { return struct{}{}, a.mirror.Upsert(ctx, chunks) })
	if err != nil {
		return err
	}
	// Mirror every write so a later primary outage can still serve
	// search over this run's chunks.
	return a.mirror.Upsert(ctx, chunks)
}

// placeholderVector is a deterministic unit vector seeded from the
// chunk ID. Deterministic so re-running a degraded ingest is
// idempotent; unit-length so cosine scores stay bounded.
func placeholderVector(seed string, dim int) []float32 {
	if dim <= 0 {
		dim = 768
	}
	h := fnv.New64a()
	h.Write([]byte(seed))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	v := make([]float32, dim)
	var norm float64
	for i := range v {
		v[i] = float32(rng.NormFloat64())
		norm += float64(v[i]) * float64(v[i])
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		v[0] = 1
		return v
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}
