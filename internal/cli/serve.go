package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clinvector/ehrqa/internal/api/handlers"
	"github.com/clinvector/ehrqa/internal/config"
	"github.com/clinvector/ehrqa/internal/database"
	"github.com/clinvector/ehrqa/internal/external"
	"github.com/clinvector/ehrqa/internal/jobs"
	"github.com/clinvector/ehrqa/internal/openai"
	"github.com/clinvector/ehrqa/internal/qalog"
	"github.com/clinvector/ehrqa/internal/repository"
	"github.com/clinvector/ehrqa/internal/server"
	"github.com/clinvector/ehrqa/internal/service"
	"github.com/clinvector/ehrqa/internal/telemetry"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the QA API server",
		Long:  "Start the clinical report QA server on the specified port",
		RunE:  runServe,
	}

	bindServeFlags(cmd.Flags())

	return cmd
}

func bindServeFlags(fs *pflag.FlagSet) {
	fs.StringP("port", "p", "8080", "Port to listen on")
	fs.Bool("no-migrate", false, "Skip automatic database migrations on startup")
	fs.Bool("pull", false, "Download the artifacts from S3 before serving")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.SentryDSN != "" {
		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if cfg.Environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			TracesSampleRate: sampleRate,
			Debug:            cfg.Debug,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	if pull, _ := cmd.Flags().GetBool("pull"); pull {
		artifacts, err := newArtifactStore(ctx, cfg)
		if err != nil {
			return err
		}
		if artifacts == nil {
			return fmt.Errorf("--pull requires the S3 configuration")
		}
		if err := artifacts.PullArtifacts(ctx, cfg.IndexPath(), cfg.ChunksPath()); err != nil {
			return err
		}
		log.Printf("pulled artifacts from bucket %s", cfg.S3Bucket)
	}

	embedding, err := newEmbeddingClient(cfg)
	if err != nil {
		return err
	}

	logSinks := []qalog.Sink{}
	fileSink, err := qalog.NewFileSink(cfg.LogPath)
	if err != nil {
		return fmt.Errorf("failed to open interaction log: %w", err)
	}
	logSinks = append(logSinks, fileSink)

	var searcher service.ChunkSearcher
	var indexReady func() bool
	var reloadWorker *jobs.Worker

	if cfg.HasDatabase() {
		if noMigrate, _ := cmd.Flags().GetBool("no-migrate"); !noMigrate {
			if err := runMigrations(cfg.DatabaseURL); err != nil {
				return err
			}
		}

		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		log.Println("connected to database")

		chunkStore := repository.NewChunkStore(pool)
		if model, err := chunkStore.Model(ctx); err != nil {
			log.Printf("warning: corpus not loaded in database yet: %v", err)
		} else if model != cfg.EmbeddingModel {
			return fmt.Errorf("database corpus was built with model %q, configured model is %q", model, cfg.EmbeddingModel)
		}

		searcher = chunkStore
		indexReady = func() bool {
			n, err := chunkStore.Count(ctx)
			return err == nil && n > 0
		}
		logSinks = append(logSinks, repository.NewInteractionLogStore(pool))
	} else {
		// A fresh host with S3 configured fetches the artifacts itself.
		if _, statErr := os.Stat(cfg.IndexPath()); os.IsNotExist(statErr) && cfg.HasS3() {
			artifacts, err := newArtifactStore(ctx, cfg)
			if err != nil {
				return err
			}
			if err := artifacts.PullArtifacts(ctx, cfg.IndexPath(), cfg.ChunksPath()); err != nil {
				log.Printf("warning: artifact pull failed: %v", err)
			} else {
				log.Printf("pulled artifacts from bucket %s", cfg.S3Bucket)
			}
		}

		handle := service.NewSearcherHandle(nil)
		reloader := jobs.NewIndexReloader(cfg.IndexPath(), cfg.ChunksPath(), cfg.EmbeddingModel, handle)
		if err := reloader.ProcessJobs(ctx); err != nil {
			log.Printf("warning: initial index load failed: %v", err)
		}
		if !handle.Ready() {
			log.Println("warning: no index loaded yet, /ask will return 503 until one is built")
		}

		reloadWorker = jobs.NewWorker(reloader, time.Duration(cfg.IndexReloadSeconds)*time.Second)
		go reloadWorker.Start(ctx)

		searcher = handle
		indexReady = handle.Ready
	}

	pipeline := service.NewQAPipeline(
		service.NewRetriever(embedding, searcher),
		service.NewAnswerGenerator(
			openai.NewGenerationClientWithModel(cfg.OpenAIAPIKey, cfg.GenerationModel)),
		external.NewClient(cfg.SerpAPIKey),
		qalog.New(logSinks...),
		cfg.TopK,
		cfg.RoutingThreshold,
	)

	router := server.NewRouter(server.RouterConfig{
		QAHandler:  handlers.NewQAHandler(pipeline),
		IndexReady: indexReady,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
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

	if reloadWorker != nil {
		reloadWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}
