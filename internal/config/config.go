package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Prefix is the environment variable prefix.
const Prefix = "ASKDOCS"

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DocsDir   string `envconfig:"DOCS_DIR" default:"data/docs"`
	IndexPath string `envconfig:"INDEX_PATH" default:"data/index.gob"`

	ChunkSize           int     `envconfig:"CHUNK_SIZE" default:"400"`
	ChunkOverlap        int     `envconfig:"CHUNK_OVERLAP" default:"50"`
	TopK                int     `envconfig:"TOP_K" default:"3"`
	ConfidenceThreshold float64 `envconfig:"CONFIDENCE_THRESHOLD" default:"0.35"`
	MaxHistoryMessages  int     `envconfig:"MAX_HISTORY_MESSAGES" default:"10"`
	NoContextMode       string  `envconfig:"NO_CONTEXT_MODE" default:"fixed"`
	MaxDocumentBytes    int64   `envconfig:"MAX_DOCUMENT_BYTES" default:"10485760"`

	EmbeddingProvider   string  `envconfig:"EMBEDDING_PROVIDER" default:"hash"`
	LLMProvider         string  `envconfig:"LLM_PROVIDER" default:"openai"`
	OpenAIAPIKey        string  `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL       string  `envconfig:"OPENAI_BASE_URL"`
	ChatModel           string  `envconfig:"CHAT_MODEL" default:"gpt-4o-mini"`
	EmbeddingModel      string  `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	EmbeddingDimensions int     `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`
	HashDimensions      int     `envconfig:"HASH_DIMENSIONS" default:"384"`
	AzureEndpoint       string  `envconfig:"AZURE_ENDPOINT"`
	AzureAPIVersion     string  `envconfig:"AZURE_API_VERSION" default:"2024-02-15-preview"`
	ProviderRPS         float64 `envconfig:"PROVIDER_RPS" default:"5"`

	// Optional: turn log in Postgres
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// Optional: mirror the index snapshot to S3-compatible storage
	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"askdocs-index"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	S3Key       string `envconfig:"S3_KEY" default:"askdocs/index.gob"`

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	WatchDocs          bool          `envconfig:"WATCH_DOCS" default:"true"`
	IngestPollInterval time.Duration `envconfig:"INGEST_POLL_INTERVAL" default:"5s"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// Validate checks value ranges and provider names.
func (c *Config) Validate() error {
	var errs []error
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		errs = append(errs, fmt.Errorf("CONFIDENCE_THRESHOLD must be within [0,1], got %v", c.ConfidenceThreshold))
	}
	if c.MaxHistoryMessages < 1 {
		errs = append(errs, fmt.Errorf("MAX_HISTORY_MESSAGES must be at least 1, got %d", c.MaxHistoryMessages))
	}
	if c.ChunkSize < 1 {
		errs = append(errs, fmt.Errorf("CHUNK_SIZE must be at least 1, got %d", c.ChunkSize))
	}
	if c.ChunkOverlap < 0 {
		errs = append(errs, fmt.Errorf("CHUNK_OVERLAP must not be negative, got %d", c.ChunkOverlap))
	}
	if c.TopK < 1 {
		errs = append(errs, fmt.Errorf("TOP_K must be at least 1, got %d", c.TopK))
	}
	switch c.NoContextMode {
	case "fixed", "generate":
	default:
		errs = append(errs, fmt.Errorf("NO_CONTEXT_MODE must be fixed or generate, got %q", c.NoContextMode))
	}
	switch c.EmbeddingProvider {
	case "openai", "azure", "hash":
	default:
		errs = append(errs, fmt.Errorf("EMBEDDING_PROVIDER must be openai, azure or hash, got %q", c.EmbeddingProvider))
	}
	switch c.LLMProvider {
	case "openai", "azure":
	default:
		errs = append(errs, fmt.Errorf("LLM_PROVIDER must be openai or azure, got %q", c.LLMProvider))
	}
	if (c.LLMProvider == "azure" || c.EmbeddingProvider == "azure") && c.AzureEndpoint == "" {
		errs = append(errs, errors.New("AZURE_ENDPOINT is required for the azure provider"))
	}
	return errors.Join(errs...)
}

// EmbeddingDimension is the index width implied by the embedding provider.
func (c *Config) EmbeddingDimension() int {
	if c.EmbeddingProvider == "hash" {
		return c.HashDimensions
	}
	return c.EmbeddingDimensions
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}
