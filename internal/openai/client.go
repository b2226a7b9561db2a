package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/cloo-solutions/askdocs/internal/domain"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const (
	// DefaultEmbeddingModel is the model used for generating embeddings
	DefaultEmbeddingModel = openai.SmallEmbedding3
	// DefaultEmbeddingDimensions is the width of text-embedding-3-small vectors
	DefaultEmbeddingDimensions = 1536
	// DefaultChatModel is the model used for chat completions
	DefaultChatModel = openai.GPT4oMini
	// DefaultAzureAPIVersion is used when Config.AzureAPIVersion is empty
	DefaultAzureAPIVersion = "2024-02-15-preview"
	// DefaultBatchSize is the number of texts sent per embeddings request
	DefaultBatchSize = 16
	// DefaultMaxTokens caps completion length
	DefaultMaxTokens = 1024
)

var (
	// ErrEmptyText is returned when an input text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when an embedding has the wrong width
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	// ErrNoAPIKey is returned when no API key is configured
	ErrNoAPIKey = errors.New("OPENAI_API_KEY environment variable not set")
	// ErrNoChoices is returned when a completion has no choices
	ErrNoChoices = errors.New("completion returned no choices")
)

// API is the subset of the go-openai client used here.
type API interface {
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Config configures a Client. Setting AzureEndpoint switches to Azure OpenAI,
// where ChatModel and EmbeddingModel name deployments.
type Config struct {
	APIKey              string
	BaseURL             string
	AzureEndpoint       string
	AzureAPIVersion     string
	ChatModel           string
	EmbeddingModel      string
	EmbeddingDimensions int
	RequestsPerSecond   float64
	BatchSize           int
}

// Client generates embeddings and chat completions. It satisfies both the
// embedding and language model ports of the service package.
type Client struct {
	api            API
	limiter        *rate.Limiter
	chatModel      string
	embeddingModel openai.EmbeddingModel
	dimensions     int
	batchSize      int
}

// NewClient creates a client from cfg.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	var clientCfg openai.ClientConfig
	if cfg.AzureEndpoint != "" {
		clientCfg = openai.DefaultAzureConfig(cfg.APIKey, cfg.AzureEndpoint)
		clientCfg.APIVersion = cfg.AzureAPIVersion
		if clientCfg.APIVersion == "" {
			clientCfg.APIVersion = DefaultAzureAPIVersion
		}
		// deployment names are configured verbatim
		clientCfg.AzureModelMapperFunc = func(model string) string { return model }
	} else {
		clientCfg = openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientCfg.BaseURL = cfg.BaseURL
		}
	}

	return newClient(openai.NewClientWithConfig(clientCfg), cfg), nil
}

// NewClientFromEnv creates a client using the OPENAI_API_KEY environment variable
func NewClientFromEnv() (*Client, error) {
	return NewClient(Config{APIKey: os.Getenv("OPENAI_API_KEY")})
}

func newClient(api API, cfg Config) *Client {
	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = DefaultChatModel
	}
	embeddingModel := openai.EmbeddingModel(cfg.EmbeddingModel)
	if embeddingModel == "" {
		embeddingModel = DefaultEmbeddingModel
	}
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Client{
		api:            api,
		limiter:        limiter,
		chatModel:      chatModel,
		embeddingModel: embeddingModel,
		dimensions:     dimensions,
		batchSize:      batchSize,
	}
}

// Dimension returns the embedding width.
func (c *Client) Dimension() int {
	return c.dimensions
}

// Embed returns one embedding per text, in input order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, ErrEmptyText
		}
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := min(start+c.batchSize, len(texts))
		vectors, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func (c *Client) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	input := make([]string, len(batch))
	for i, t := range batch {
		input[i] = strings.ReplaceAll(t, "\n", " ")
	}

	req := openai.EmbeddingRequest{
		Input: input,
		Model: c.embeddingModel,
	}
	// only the v3 models accept a requested width
	if strings.HasPrefix(string(c.embeddingModel), "text-embedding-3") {
		req.Dimensions = c.dimensions
	}

	resp, err := c.api.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}
	if len(resp.Data) != len(batch) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(batch), len(resp.Data))
	}

	vectors := make([][]float32, len(batch))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(batch) || vectors[d.Index] != nil {
			return nil, fmt.Errorf("unexpected embedding index %d", d.Index)
		}
		if len(d.Embedding) != c.dimensions {
			return nil, fmt.Errorf("%w: expected %d, got %d", ErrWrongDimensions, c.dimensions, len(d.Embedding))
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

// Complete returns the model's reply to messages.
func (c *Client) Complete(ctx context.Context, messages []domain.Message, temperature float32) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	chat := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		chat[i] = openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content}
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.chatModel,
		Messages:    chat,
		Temperature: temperature,
		MaxTokens:   DefaultMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}
