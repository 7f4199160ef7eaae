package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloo-solutions/askbase/internal/api/handlers"
	"github.com/cloo-solutions/askbase/internal/config"
	"github.com/cloo-solutions/askbase/internal/database"
	"github.com/cloo-solutions/askbase/internal/events"
	"github.com/cloo-solutions/askbase/internal/jobs"
	"github.com/cloo-solutions/askbase/internal/logging"
	"github.com/cloo-solutions/askbase/internal/openai"
	"github.com/cloo-solutions/askbase/internal/queue"
	"github.com/cloo-solutions/askbase/internal/repository"
	"github.com/cloo-solutions/askbase/internal/server"
	"github.com/cloo-solutions/askbase/internal/service"
	"github.com/cloo-solutions/askbase/internal/storage"
	"github.com/cloo-solutions/askbase/internal/telemetry"
	goopenai "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	shutdownTimeout = 30 * time.Second
	// multipart framing on top of the raw file
	uploadOverheadBytes = 64 * 1024
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the askbase API server together with its background workers",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (overrides ASKBASE_PORT)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().String("migrations", database.DefaultMigrationsSource, "Migration source URL")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}

	logger, err := logging.New(cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	sampleRate := 0.1
	if cfg.Environment == "development" {
		sampleRate = 1.0
	}
	flush, err := telemetry.Init(telemetry.Config{
		DSN:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		TracesSampleRate: sampleRate,
		Debug:            cfg.Debug,
	}, logger)
	if err != nil {
		logger.Warn("telemetry init failed, continuing without tracing", zap.Error(err))
	} else {
		defer flush()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info("connected to database")

	if noMigrate, _ := cmd.Flags().GetBool("no-migrate"); !noMigrate {
		source, _ := cmd.Flags().GetString("migrations")
		if err := database.Migrate(cfg.DatabaseURL, source, logger); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	if !cfg.HasS3() {
		return errors.New("document storage is not configured: set ASKBASE_S3_ENDPOINT, ASKBASE_S3_ACCESS_KEY_ID and ASKBASE_S3_SECRET_ACCESS_KEY")
	}
	blobs, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Bucket:          cfg.S3Bucket,
		UsePathStyle:    true,
	})
	if err != nil {
		return fmt.Errorf("failed to create S3 client: %w", err)
	}
	if err := blobs.EnsureBucket(ctx); err != nil {
		return fmt.Errorf("failed to ensure S3 bucket: %w", err)
	}
	logger.Info("S3 bucket ready", zap.String("bucket", cfg.S3Bucket))

	if !cfg.HasOpenAI() {
		logger.Warn("ASKBASE_OPENAI_API_KEY is not set; questions and embeddings will fail at the provider")
	}
	llm := openai.NewClientWithConfig(openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		EmbeddingModel:      goopenai.EmbeddingModel(cfg.OpenAIEmbeddingModel),
		EmbeddingDimensions: cfg.OpenAIEmbeddingDimensions,
		ChatModel:           cfg.OpenAIChatModel,
		Temperature:         cfg.OpenAITemperature,
		RequestsPerSecond:   cfg.OpenAIRequestsPerSecond,
	})

	documentRepo := repository.NewDocumentRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	embeddingJobRepo := repository.NewEmbeddingJobRepository(pool)
	cacheRepo := repository.NewAnswerCacheRepository(pool)
	settingsRepo := repository.NewAISettingsRepository(pool)
	usageRepo := repository.NewUsageRepository(pool)
	planRepo := repository.NewPlanRepository(pool)
	billingRepo := repository.NewBillingEventRepository(pool)
	tenantRepo := repository.NewTenantRepository(pool)
	apiKeyRepo := repository.NewAPIKeyRepository(pool)
	chatRepo := repository.NewChatRepository(pool)

	health := map[string]handlers.Pinger{"database": pool}

	var taskQueue *queue.RedisQueue
	var dispatcher service.DocumentQueue
	if cfg.HasRedis() {
		taskQueue, err = queue.NewRedisQueue(queue.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			Stream:   cfg.RedisStream,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to create document queue: %w", err)
		}
		defer taskQueue.Close()
		if err := taskQueue.Ping(ctx); err != nil {
			return fmt.Errorf("failed to reach redis: %w", err)
		}
		dispatcher = jobs.NewQueueDispatcher(taskQueue)
		health["redis"] = taskQueue
	}

	var publisher service.BillingEventPublisher
	if cfg.HasAMQP() {
		conn, err := events.Dial(ctx, cfg.AMQPURL)
		if err != nil {
			return fmt.Errorf("failed to connect to rabbitmq: %w", err)
		}
		defer conn.Close()
		publisher = events.NewAMQPPublisher(conn, cfg.AMQPBillingQueue)
		logger.Info("publishing billing events", zap.String("queue", cfg.AMQPBillingQueue))
	}

	documentSvc, err := service.NewDocumentService(
		documentRepo,
		chunkRepo,
		cacheRepo,
		repository.NewTxRunner(pool),
		blobs,
		dispatcher,
		service.DocumentConfig{
			ChunkSize:          cfg.Knowledge.ChunkSize,
			ChunkOverlap:       cfg.Knowledge.ChunkOverlap,
			ProcessAsync:       cfg.Knowledge.ProcessAsync,
			GenerateEmbeddings: cfg.Knowledge.GenerateEmbeddings,
			MaxUploadBytes:     cfg.Knowledge.MaxUploadBytes(),
			PreviewLength:      cfg.Knowledge.PreviewLength,
			AllowedMimeTypes:   cfg.Knowledge.AllowedMimeTypes,
			AllowedExtensions:  cfg.Knowledge.AllowedExtensions,
		},
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to create document service: %w", err)
	}

	meteringSvc := service.NewMeteringService(usageRepo, planRepo, billingRepo, publisher, service.BillingConfig{
		OverageBilled:     cfg.Billing.OverageBilled,
		HardLimit:         cfg.Billing.HardLimit,
		OverageCentsPer1K: cfg.Billing.OverageCentsPer1K,
	}, logger)
	answerSvc := service.NewAnswerService(cacheRepo, documentRepo, chunkRepo, llm, llm, settingsRepo, meteringSvc, cfg.Knowledge.RetrievalTopK)
	settingsSvc := service.NewSettingsService(settingsRepo)
	chatSvc := service.NewChatService(chatRepo, llm, settingsRepo, meteringSvc, &service.DefaultUUIDGenerator{})
	authSvc := service.NewAuthService(tenantRepo, planRepo, apiKeyRepo, &service.DefaultUUIDGenerator{})

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	if taskQueue != nil && cfg.Knowledge.ProcessAsync {
		documentWorker := jobs.NewDocumentWorker(documentSvc, logger)
		if err := taskQueue.Start(workerCtx, cfg.Workers.DocumentWorkers, documentWorker.Handle); err != nil {
			return fmt.Errorf("failed to start document workers: %w", err)
		}
		logger.Info("document workers started", zap.Int("workers", cfg.Workers.DocumentWorkers))
	}

	var embeddingWorker *jobs.Worker
	if cfg.Knowledge.GenerateEmbeddings {
		embedder := service.NewEmbeddingService(llm, chunkRepo, cacheRepo)
		processor := jobs.NewEmbeddingWorker(embeddingJobRepo, embedder, cfg.Workers.EmbeddingConcurrency, logger)
		embeddingWorker = jobs.NewWorker(processor, cfg.Workers.EmbeddingPollInterval, logger)
		go embeddingWorker.Start(workerCtx)
		logger.Info("embedding worker started",
			zap.Duration("poll_interval", cfg.Workers.EmbeddingPollInterval),
			zap.Int("concurrency", cfg.Workers.EmbeddingConcurrency),
		)
	}

	router := server.NewRouter(server.RouterConfig{
		Logger:          logger,
		AuthValidator:   authSvc,
		QuotaChecker:    meteringSvc,
		MaxBodyBytes:    cfg.Knowledge.MaxUploadBytes() + uploadOverheadBytes,
		HealthHandler:   handlers.NewHealthHandler(health),
		DocumentHandler: handlers.NewDocumentHandler(documentSvc),
		AskHandler:      handlers.NewAskHandler(answerSvc),
		UsageHandler:    handlers.NewUsageHandler(meteringSvc, answerSvc),
		SettingsHandler: handlers.NewSettingsHandler(settingsSvc),
		ChatHandler:     handlers.NewChatHandler(chatSvc),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	cancelWorkers()
	if embeddingWorker != nil {
		embeddingWorker.Stop()
	}
	if taskQueue != nil {
		taskQueue.Wait()
	}

	logger.Info("server exited")
	return nil
}
