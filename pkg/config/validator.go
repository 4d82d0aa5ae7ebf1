package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate LLM config
	if c.LLM.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "Ollama base URL is required",
		})
	}

	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 4096 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be between 1 and 4096",
		})
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	// Validate Embedding config
	if c.Embedding.Dimension < 1 {
		errors = append(errors, ValidationError{
			Field:   "embedding.dimension",
			Message: "dimension must be positive",
		})
	}

	if c.Embedding.MaxPayload < 100 {
		errors = append(errors, ValidationError{
			Field:   "embedding.max_payload",
			Message: "max_payload must be at least 100 characters",
		})
	}

	if c.Embedding.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "embedding.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	// Validate Database config
	if c.Database.URL != "" {
		if _, err := url.Parse(c.Database.URL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "database.url",
				Message: "invalid database URL",
			})
		}
	}

	if c.Database.VectorDim < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.vector_dim",
			Message: "vector_dim must be positive",
		})
	}

	if c.Database.BatchSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.batch_size",
			Message: "batch_size must be positive",
		})
	}

	// Validate Pipeline config
	if c.Pipeline.ChunksPerPage < 1 {
		errors = append(errors, ValidationError{
			Field:   "pipeline.chunks_per_page",
			Message: "chunks_per_page must be positive",
		})
	}

	if c.Pipeline.ChunkOverlap < 0 || c.Pipeline.ChunkOverlap >= 1 {
		errors = append(errors, ValidationError{
			Field:   "pipeline.chunk_overlap",
			Message: "chunk_overlap must be a fraction in [0, 1)",
		})
	}

	// Validate Continuity config
	if c.Continuity.AITimeoutSeconds < 1 {
		errors = append(errors, ValidationError{
			Field:   "continuity.ai_timeout_seconds",
			Message: "ai_timeout_seconds must be positive",
		})
	}

	if c.Continuity.MaxAIFailures < 1 {
		errors = append(errors, ValidationError{
			Field:   "continuity.max_ai_failures",
			Message: "max_ai_failures must be positive",
		})
	}

	// Validate base URL format
	if _, err := url.Parse(c.LLM.BaseURL); err != nil {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "invalid Ollama base URL",
		})
	}

	return errors
}
