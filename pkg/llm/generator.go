// Package llm wraps the text-generation collaborator behind a narrow
// contract: a prompt in, a string out, errors surfaced to the caller.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/schema"

	"github.com/hadv/yitam-admin-sub000/internal/types"
)

// GeneratorConfig represents the configuration for a generation engine.
type GeneratorConfig struct {
	Model       string
	Temperature float64
	MaxTokens   int
	BaseURL     string // Ollama server URL
	MaxAttempts int
	BackoffBase time.Duration
}

// Generator is an engine that uses an LLM to rewrite and enhance text.
type Generator struct {
	config GeneratorConfig
	llm    llms.Model
}

// NewWithConfig creates a new Generator with the given configuration.
func NewWithConfig(config GeneratorConfig) (*Generator, error) {
	if config.Model == "" {
		config.Model = "mistral" // Default Ollama model
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return nil, fmt.Errorf("temperature must be between 0 and 2")
	}
	if config.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 2000
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434" // Default Ollama URL
	}
	if config.MaxAttempts == 0 {
		config.MaxAttempts = 3
	}
	if config.BackoffBase == 0 {
		config.BackoffBase = 500 * time.Millisecond
	}

	model, err := ollama.New(ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return &Generator{
		config: config,
		llm:    model,
	}, nil
}

// Generate produces text for the prompt, retrying with exponential
// backoff on transport and timeout errors only. Auth and other
// non-retryable failures return immediately.
func (g *Generator) Generate(ctx context.Context, prompt string, opts types.GenerateOptions) (string, error) {
	temperature := opts.Temperature
	if temperature == 0 {
		temperature = g.config.Temperature
	}
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = g.config.MaxTokens
	}

	content := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeHuman, prompt),
	}

	var lastErr error
	delay := g.config.BackoffBase
	for attempt := 0; attempt < g.config.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		resp, err := g.llm.GenerateContent(ctx, content,
			llms.WithTemperature(temperature),
			llms.WithMaxTokens(maxTokens))
		if err == nil {
			if resp == nil || len(resp.Choices) == 0 {
				return "", fmt.Errorf("no response from LLM")
			}
			return resp.Choices[0].Content, nil
		}

		lastErr = err
		if !isRetryable(err) {
			return "", fmt.Errorf("generation error: %w", err)
		}
	}
	return "", fmt.Errorf("generation failed after %d attempts: %w", g.config.MaxAttempts, lastErr)
}

// isRetryable limits retries to transport/timeout-class failures.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unauthorized"),
		strings.Contains(msg, "forbidden"),
		strings.Contains(msg, "api key"),
		strings.Contains(msg, "status code: 401"),
		strings.Contains(msg, "status code: 403"):
		return false
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "eof"),
		strings.Contains(msg, "status code: 5"):
		return true
	}
	return false
}
