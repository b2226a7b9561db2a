package admin

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cloo-solutions/askdocs/internal/api/handlers"
	"github.com/cloo-solutions/askdocs/internal/config"
	"github.com/cloo-solutions/askdocs/internal/jobs"
	"github.com/cloo-solutions/askdocs/internal/parser"
	"github.com/cloo-solutions/askdocs/internal/server"
	"github.com/cloo-solutions/askdocs/internal/service"
	"github.com/cloo-solutions/askdocs/internal/watcher"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the askdocs API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (default from ASKDOCS_PORT)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().Bool("no-watch", false, "Do not watch the documents directory for new files")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	defer initTelemetry(cfg)()

	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	noWatch, _ := cmd.Flags().GetBool("no-watch")

	docsDir, err := filepath.Abs(cfg.DocsDir)
	if err != nil {
		return fmt.Errorf("failed to resolve documents directory: %w", err)
	}
	if err := os.MkdirAll(docsDir, 0o755); err != nil {
		return fmt.Errorf("failed to create documents directory: %w", err)
	}
	cfg.DocsDir = docsDir

	a, err := newApp(ctx, cfg, appOptions{migrate: !noMigrate, withAgent: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.initIndex(ctx, false); err != nil {
		return fmt.Errorf("failed to initialize index: %w", err)
	}

	queue := jobs.NewIngestQueue()
	ingestJobs := jobs.NewIngestWorker(queue, a.retriever)
	ingestWorker := jobs.NewWorker(ingestJobs, cfg.IngestPollInterval)

	var tracker handlers.PathTracker
	if cfg.WatchDocs && !noWatch {
		w, err := watcher.New(docsDir, parser.SupportedExtensions, queue, ingestWorker.Notify)
		if err != nil {
			return err
		}
		w.MarkSeen(existingDocuments(docsDir)...)
		ingestJobs.SetSkipHandler(w.Forget)
		tracker = w
		go func() {
			if err := w.Run(ctx); err != nil {
				log.Printf("watcher stopped: %v", err)
			}
		}()
	}

	go ingestWorker.Start(ctx)

	var turnHandler *handlers.TurnHandler
	if history := a.turnHistory(); history != nil {
		turnHandler = handlers.NewTurnHandler(history)
	}

	router := server.NewRouter(server.RouterConfig{
		AskHandler:      handlers.NewAskHandler(a.agent),
		SessionHandler:  handlers.NewSessionHandler(a.memory),
		DocumentHandler: handlers.NewDocumentHandler(a.retriever, tracker, docsDir, cfg.MaxDocumentBytes),
		IndexHandler:    handlers.NewIndexHandler(a.retriever, docsDir),
		ExtractHandler:  handlers.NewExtractHandler(service.NewExtractor(a.docParser, docsDir)),
		TurnHandler:     turnHandler,
		MaxUploadBytes:  cfg.MaxDocumentBytes * maxFilesPerUpload,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	cancel()
	ingestWorker.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// maxFilesPerUpload bounds one multipart request to this many maximum-size
// documents.
const maxFilesPerUpload = 10

// existingDocuments lists supported files already in dir. They were indexed
// at startup, so the watcher must not queue them again.
func existingDocuments(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var paths []string
	for _, e := range entries {
		if e.Type().IsRegular() && parser.Supported(e.Name()) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	return paths
}
