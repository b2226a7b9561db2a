// Package admin holds the server-side commands: serve, index and ask run the
// question-answering core in-process.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/cloo-solutions/askdocs/internal/config"
	"github.com/cloo-solutions/askdocs/internal/database"
	"github.com/cloo-solutions/askdocs/internal/domain"
	"github.com/cloo-solutions/askdocs/internal/embedding"
	"github.com/cloo-solutions/askdocs/internal/index"
	"github.com/cloo-solutions/askdocs/internal/openai"
	"github.com/cloo-solutions/askdocs/internal/parser"
	"github.com/cloo-solutions/askdocs/internal/repository"
	"github.com/cloo-solutions/askdocs/internal/service"
	"github.com/cloo-solutions/askdocs/internal/storage"
	"github.com/cloo-solutions/askdocs/internal/telemetry"
	"github.com/jackc/pgx/v5/pgxpool"
)

// app is the wired core shared by every admin command.
type app struct {
	cfg       *config.Config
	retriever *service.Retriever
	memory    *service.SessionMemory
	agent     *service.Agent
	embedder  service.EmbeddingProvider
	docParser service.DocumentParser
	// turns is nil without a database.
	turns     *repository.TurnLogRepository
	pool      *pgxpool.Pool
	closers   []func()
}

type appOptions struct {
	migrate bool
	// withAgent is false for commands that only touch the index, so no chat
	// credentials are needed.
	withAgent bool
}

func newApp(ctx context.Context, cfg *config.Config, opts appOptions) (*app, error) {
	a := &app{cfg: cfg}

	embedder, err := embedding.New(embedding.Config{
		Provider:       embedding.Provider(cfg.EmbeddingProvider),
		HashDimensions: cfg.HashDimensions,
		OpenAI:         openAIConfig(cfg, cfg.EmbeddingProvider),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding provider: %w", err)
	}
	log.Printf("embedding provider: %s (%d dimensions)", cfg.EmbeddingProvider, embedder.Dimension())
	a.embedder = embedder

	store, err := snapshotStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a.docParser = parser.New(cfg.MaxDocumentBytes)
	idx := index.New(cfg.EmbeddingDimension(), store)
	a.retriever = service.NewRetriever(idx, embedder, a.docParser, service.RetrieverConfig{
		Chunk: service.ChunkConfig{SizeTokens: cfg.ChunkSize, OverlapTokens: cfg.ChunkOverlap},
		TopK:  cfg.TopK,
	})

	if !opts.withAgent {
		return a, nil
	}

	mode, err := service.ParseNoContextMode(cfg.NoContextMode)
	if err != nil {
		return nil, err
	}

	llm, err := openai.NewClient(openAIConfig(cfg, cfg.LLMProvider))
	if err != nil {
		return nil, fmt.Errorf("failed to create language model client: %w", err)
	}

	var turnLog service.TurnLogger
	if cfg.HasDatabase() {
		repo, err := a.connectDatabase(ctx, opts.migrate)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.turns = repo
		turnLog = repo
	}

	a.memory = service.NewSessionMemory(cfg.MaxHistoryMessages)
	a.agent = service.NewAgent(llm, a.retriever, a.memory, turnLog, service.AgentConfig{
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		TopK:                cfg.TopK,
		NoContextMode:       mode,
	})
	return a, nil
}

// turnHistory is nil when no database is configured.
func (a *app) turnHistory() *service.TurnHistory {
	if a.turns == nil {
		return nil
	}
	return service.NewTurnHistory(a.turns, a.embedder)
}

func (a *app) connectDatabase(ctx context.Context, migrate bool) (*repository.TurnLogRepository, error) {
	if migrate {
		if err := database.Migrate(a.cfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	pool, err := database.NewPool(ctx, database.Config{URL: a.cfg.DatabaseURL})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("connected to database")

	a.pool = pool
	a.closers = append(a.closers, pool.Close)
	return repository.NewTurnLogRepository(pool), nil
}

// initIndex loads the persisted index or builds it from the documents
// directory. An empty directory is not fatal: the index stays uninitialized
// and queries fall back to the no-context answer.
func (a *app) initIndex(ctx context.Context, force bool) error {
	docs, err := service.LoadDocuments(a.cfg.DocsDir, a.docParser)
	if err != nil {
		return err
	}
	err = a.retriever.InitializeIndex(ctx, docs, force)
	if errors.Is(err, domain.ErrNoDocuments) {
		log.Printf("no documents found in %s; index not initialized", a.cfg.DocsDir)
		return nil
	}
	return err
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func openAIConfig(cfg *config.Config, provider string) openai.Config {
	oc := openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		BaseURL:             cfg.OpenAIBaseURL,
		AzureAPIVersion:     cfg.AzureAPIVersion,
		ChatModel:           cfg.ChatModel,
		EmbeddingModel:      cfg.EmbeddingModel,
		EmbeddingDimensions: cfg.EmbeddingDimensions,
		RequestsPerSecond:   cfg.ProviderRPS,
	}
	if provider == string(embedding.ProviderAzure) {
		oc.AzureEndpoint = cfg.AzureEndpoint
	}
	return oc
}

// snapshotStore returns the local snapshot file, mirrored to S3 when an
// endpoint is configured.
func snapshotStore(ctx context.Context, cfg *config.Config) (index.SnapshotStore, error) {
	local := index.NewFileStore(cfg.IndexPath)
	if !cfg.HasS3() {
		return local, nil
	}

	remote, err := storage.NewS3SnapshotStore(ctx, storage.S3ClientConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Bucket:          cfg.S3Bucket,
		Key:             cfg.S3Key,
		UsePathStyle:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	if err := remote.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
	}
	log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)

	return storage.NewMirroredStore(local, remote), nil
}

// initTelemetry starts Sentry when a DSN is configured and returns the flush
// function.
func initTelemetry(cfg *config.Config) func() {
	if cfg.SentryDSN == "" {
		return func() {}
	}

	// 10% sampling in production, 100% in development
	sampleRate := 0.1
	if cfg.Environment == "development" {
		sampleRate = 1.0
	}

	shutdown, err := telemetry.Init(telemetry.Config{
		DSN:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		TracesSampleRate: sampleRate,
		Debug:            cfg.Debug,
	})
	if err != nil {
		log.Printf("telemetry init failed (continuing without tracing): %v", err)
		return func() {}
	}
	return shutdown
}
