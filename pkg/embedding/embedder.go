// Package embedding wraps the embedding collaborator and keeps
// oversized text inside the service's payload ceiling.
package embedding

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms/ollama"
	"golang.org/x/time/rate"
)

// EmbedderConfig represents the configuration for the embedding client.
type EmbedderConfig struct {
	Model     string
	BaseURL   string // Ollama server URL
	Dimension int
	RateLimit float64 // requests per second
}

// Embedder creates vector embeddings through an Ollama-hosted model,
// throttled to the configured request rate.
type Embedder struct {
	config  EmbedderConfig
	llm     *ollama.LLM
	limiter *rate.Limiter
}

func NewEmbedderWithConfig(config EmbedderConfig) (*Embedder, error) {
	if config.Model == "" {
		config.Model = "nomic-embed-text:latest"
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}
	if config.Dimension == 0 {
		config.Dimension = 768
	}
	if config.RateLimit == 0 {
		config.RateLimit = 5
	}

	emb, err := ollama.New(ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	return &Embedder{
		config:  config,
		llm:     emb,
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}, nil
}

// EmbedText converts one text into its vector. Payload size limits are
// the caller's responsibility (see Splitter).
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	vectors, err := e.llm.CreateEmbedding(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("embedding service returned an empty vector")
	}
	return vectors[0], nil
}

func (e *Embedder) Dimension() int {
	return e.config.Dimension
}
