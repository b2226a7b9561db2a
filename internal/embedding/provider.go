// Package embedding selects and implements embedding backends.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloo-solutions/askdocs/internal/openai"
)

// Provider names an embedding backend.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderAzure  Provider = "azure"
	ProviderHash   Provider = "hash"
)

// ErrUnknownProvider is returned for an unrecognised provider name.
var ErrUnknownProvider = errors.New("unknown embedding provider")

// ParseProvider parses a provider name, case-insensitively.
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case ProviderOpenAI, ProviderAzure, ProviderHash:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, s)
	}
}

// Embedder turns texts into fixed-width vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Config selects and configures an Embedder.
type Config struct {
	Provider       Provider
	HashDimensions int
	OpenAI         openai.Config
}

// New builds the Embedder for cfg.Provider.
func New(cfg Config) (Embedder, error) {
	switch cfg.Provider {
	case ProviderHash:
		return NewHashEmbedder(cfg.HashDimensions), nil
	case ProviderOpenAI:
		oc := cfg.OpenAI
		oc.AzureEndpoint = ""
		return newRemote(oc)
	case ProviderAzure:
		if cfg.OpenAI.AzureEndpoint == "" {
			return nil, errors.New("azure embedding provider requires an endpoint")
		}
		return newRemote(cfg.OpenAI)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

func newRemote(cfg openai.Config) (Embedder, error) {
	client, err := openai.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return client, nil
}
