package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LLM struct {
		BaseURL     string  `yaml:"base_url"`
		Model       string  `yaml:"model"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float64 `yaml:"temperature"`
	} `yaml:"llm"`

	Embedding struct {
		BaseURL    string  `yaml:"base_url"`
		Model      string  `yaml:"model"`
		Dimension  int     `yaml:"dimension"`
		MaxPayload int     `yaml:"max_payload"`
		RateLimit  float64 `yaml:"rate_limit"`
	} `yaml:"embedding"`

	Database struct {
		URL       string `yaml:"url"`
		TableName string `yaml:"table_name"`
		VectorDim int    `yaml:"vector_dim"`
		BatchSize int    `yaml:"batch_size"`
	} `yaml:"database"`

	Pipeline struct {
		ChunksPerPage     int     `yaml:"chunks_per_page"`
		ChunkOverlap      float64 `yaml:"chunk_overlap"`
		GenerateTitles    bool    `yaml:"generate_titles"`
		GenerateSummaries bool    `yaml:"generate_summaries"`
		RespectBoundaries bool    `yaml:"respect_boundaries"`
		PreserveHeadings  bool    `yaml:"preserve_headings"`
	} `yaml:"pipeline"`

	Continuity struct {
		AIEnabled        bool `yaml:"ai_enabled"`
		AITimeoutSeconds int  `yaml:"ai_timeout_seconds"`
		MaxAIFailures    int  `yaml:"max_ai_failures"`
	} `yaml:"continuity"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/yitam/config.yaml"),
			"/etc/yitam/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	applyDefaults(&config)
	mergeWithEnv(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	applyDefaults(config)
	mergeWithEnv(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.LLM.Model == "" {
		config.LLM.Model = "mistral"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 2000
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.3
	}
	if config.LLM.BaseURL == "" {
		config.LLM.BaseURL = "http://localhost:11434"
	}

	if config.Embedding.Model == "" {
		config.Embedding.Model = "nomic-embed-text:latest"
	}
	if config.Embedding.BaseURL == "" {
		config.Embedding.BaseURL = config.LLM.BaseURL
	}
	if config.Embedding.Dimension == 0 {
		config.Embedding.Dimension = 768
	}
	if config.Embedding.MaxPayload == 0 {
		config.Embedding.MaxPayload = 10000
	}
	if config.Embedding.RateLimit == 0 {
		config.Embedding.RateLimit = 5.0
	}

	if config.Database.TableName == "" {
		config.Database.TableName = "document_chunks"
	}
	if config.Database.VectorDim == 0 {
		config.Database.VectorDim = config.Embedding.Dimension
	}
	if config.Database.BatchSize == 0 {
		config.Database.BatchSize = 100
	}

	if config.Pipeline.ChunksPerPage == 0 {
		config.Pipeline.ChunksPerPage = 5
	}
	if config.Pipeline.ChunkOverlap == 0 {
		config.Pipeline.ChunkOverlap = 0.2
	}

	if config.Continuity.AITimeoutSeconds == 0 {
		config.Continuity.AITimeoutSeconds = 30
	}
	if config.Continuity.MaxAIFailures == 0 {
		config.Continuity.MaxAIFailures = 5
	}
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
		config.Embedding.BaseURL = baseURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	// Kill switch for the AI rewrite path, checked before any calls
	// are attempted.
	if os.Getenv("CONTINUITY_AI_DISABLED") != "" {
		config.Continuity.AIEnabled = false
	}
}
