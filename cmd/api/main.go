package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/khimraj/budget-planner/internal/agent"
	"github.com/khimraj/budget-planner/internal/api/handlers"
	"github.com/khimraj/budget-planner/internal/api/middleware"
	"github.com/khimraj/budget-planner/internal/capability"
	"github.com/khimraj/budget-planner/internal/config"
	"github.com/khimraj/budget-planner/internal/jobs"
	"github.com/khimraj/budget-planner/internal/jobs/inmemory"
	"github.com/khimraj/budget-planner/internal/logger"
	"github.com/khimraj/budget-planner/internal/normalize"
	"github.com/khimraj/budget-planner/internal/sandbox"
	"github.com/khimraj/budget-planner/internal/storage"
	"github.com/khimraj/budget-planner/internal/store"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx := context.Background()
	ctx = logger.WithContext(ctx, log)

	source, err := newSource(cfg.TransactionsURI)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure transactions source")
	}

	txStore := store.New(source, logger.Component(log, "store"))

	// Agent wiring: sandbox engine, capability registry, reasoner, loop.
	engine := sandbox.NewEngine(logger.Component(log, "sandbox"))
	registry := capability.NewRegistry(
		capability.NewAnalyzeFinances(txStore, engine, logger.Component(log, "capability")),
	)

	reasoner, err := agent.NewGeminiReasoner(ctx, cfg.Model)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create reasoner")
	}
	loop := agent.NewLoop(reasoner, registry, logger.Component(log, "agent"))
	responder := agent.NewResponder(loop, logger.Component(log, "agent"))

	// Normalization pipeline for uploads.
	normalizer, err := normalize.New(ctx, cfg.Model, logger.Component(log, "normalize"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create normalizer")
	}

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, cfg.QueueWorkers, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	jobHandler := func(ctx context.Context, job *jobs.NormalizeUploadJob) error {
		log.Info().
			Str("job_id", job.JobID).
			Str("upload_id", job.UploadID).
			Str("raw_path", job.RawPath).
			Msg("Processing normalization job")

		raw, err := os.ReadFile(job.RawPath)
		if err != nil {
			return fmt.Errorf("read upload: %w", err)
		}

		table, err := normalizer.Normalize(ctx, string(raw))
		if err != nil {
			return fmt.Errorf("normalize upload: %w", err)
		}

		if err := source.Replace(ctx, store.EncodeTable(table)); err != nil {
			return fmt.Errorf("replace transactions source: %w", err)
		}

		log.Info().
			Str("job_id", job.JobID).
			Int("rows", table.Len()).
			Msg("Normalization job completed")
		return nil
	}

	go func() {
		log.Info().Int("workers", cfg.QueueWorkers).Msg("Starting normalization worker")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Normalization worker stopped with error")
		}
	}()

	// Initialize handlers
	uploadsHandler := handlers.NewUploadsHandler(jobQueue, cfg.UploadDir, log)
	transactionsHandler := handlers.NewTransactionsHandler(txStore, log)
	chatHandler := handlers.NewChatHandler(responder, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	// Create router
	mux := http.NewServeMux()

	mux.HandleFunc("/api/upload", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			uploadsHandler.Upload(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			transactionsHandler.ListTransactions(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			chatHandler.Chat(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(mux),
			),
		),
	)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
		// Chat exchanges can take several model round trips.
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	log.Info().Msg("Server exited")
}

// newSource picks the transactions backend from the URI shape: gs:// means
// GCS, anything else is a local file path.
func newSource(uri string) (storage.Source, error) {
	if strings.HasPrefix(uri, "gs://") {
		return storage.NewGCSSource(uri)
	}
	return storage.NewFileSource(uri), nil
}
