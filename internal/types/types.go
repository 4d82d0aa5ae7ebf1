package types

import (
	"context"

	"github.com/hadv/yitam-admin-sub000/internal/models"
)

// Core collaborator interfaces

// PageParser turns raw source bytes into ordered, 1-indexed pages.
type PageParser interface {
	ParseToPages(data []byte, mimeType string) ([]models.Page, error)
}

// GenerateOptions tunes a single text-generation call.
type GenerateOptions struct {
	Temperature float64
	MaxTokens   int
}

// Generator produces text from a prompt. It must preserve the source
// language and may be unavailable, surfaced as a returned error.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// Embedder converts text into a fixed-dimensionality vector. Payload
// size limits are enforced by the caller, not here.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// Filter selects stored chunks by document, ID prefix, or domain tag.
// Zero-valued fields are ignored.
type Filter struct {
	DocumentName string
	IDPrefix     string
	Domain       string
}

// VectorStore is the five-operation contract the pipeline depends on,
// plus collection creation at startup.
type VectorStore interface {
	Upsert(ctx context.Context, points []models.DocumentChunk) error
	Search(ctx context.Context, vector []float32, limit int) ([]models.ScoredChunk, error)
	DeleteByFilter(ctx context.Context, f Filter) (int, error)
	CountByFilter(ctx context.Context, f Filter) (int, error)
	Scroll(ctx context.Context, f Filter, pageSize, offset int) ([]models.DocumentChunk, error)
}

// PipelineConfig holds the recognized ingestion options.
type PipelineConfig struct {
	ChunksPerPage     int
	ChunkOverlap      float64
	GenerateTitles    bool
	GenerateSummaries bool
	RespectBoundaries bool
	PreserveHeadings  bool
}

type LLMConfig struct {
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
}

type EmbeddingConfig struct {
	BaseURL    string
	Model      string
	Dimension  int
	MaxPayload int
	RateLimit  float64
}

type DatabaseConfig struct {
	URL       string
	TableName string
	VectorDim int
	BatchSize int
}

type ContinuityConfig struct {
	AIEnabled     bool
	AITimeout     int // seconds
	MaxAIFailures int
}
