package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tripmail-service/internal/domain/repository"
	"tripmail-service/internal/infrastructure/config"
	"tripmail-service/internal/infrastructure/oauth"
	"tripmail-service/internal/infrastructure/persistence"
	"tripmail-service/internal/interface/gmail"
	"tripmail-service/internal/interface/handler"
	repo "tripmail-service/internal/interface/repository"
	"tripmail-service/internal/usecase"
	"tripmail-service/pkg/logger"
	"tripmail-service/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.mongodb.org/mongo-driver/mongo"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.NewLogger("info").Fatal("Failed to load config", "error", err)
	}

	// Create logger
	log := logger.NewLogger(cfg.LogLevel)
	defer log.Sync()
	log.Info("Starting Tripmail Service", "version", cfg.AppVersion, "store", cfg.StoreDriver)

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics("tripmail", registry)

	// Storage
	var (
		mongoClient    *mongo.Client
		accountRepo    repository.AccountRepository
		tripRepo       repository.TripRepository
		quarantineRepo repository.QuarantineRepository
		uploadLogRepo  repository.UploadLogRepository
	)
	switch cfg.StoreDriver {
	case config.StoreMemory:
		log.Warn("Using in-memory storage; data is lost on restart")
		store := repo.NewMemoryStore()
		accountRepo = store.Accounts()
		tripRepo = store.TripRepository()
		quarantineRepo = store.QuarantineRepository()
		uploadLogRepo = store.UploadLogRepository()
	default:
		log.Info("Connecting to MongoDB")
		var db *mongo.Database
		mongoClient, db, err = persistence.NewMongoClient(ctx, cfg.MongoURI, cfg.MongoDB, cfg.MongoUser, cfg.MongoPassword)
		if err != nil {
			log.Fatal("Failed to connect to MongoDB", "error", err)
		}
		accountRepo = repo.NewMongoAccountRepository(db)
		tripRepo = repo.NewMongoTripRepository(db)
		quarantineRepo = repo.NewMongoQuarantineRepository(db)
		uploadLogRepo = repo.NewMongoUploadLogRepository(db)
	}

	if cfg.SeedAccountsFile != "" {
		data, err := os.ReadFile(cfg.SeedAccountsFile)
		if err != nil {
			log.Fatal("Failed to read account seed", "error", err)
		}
		count, err := repo.SeedAccounts(ctx, accountRepo, data)
		if err != nil {
			log.Fatal("Failed to seed accounts", "error", err)
		}
		log.Info("Seeded accounts", "count", count)
	}

	// Reference tables are optional; the built-in carrier table still applies
	var (
		airlineRepo repository.AirlineRepository
		airportRepo repository.AirportRepository
	)
	if cfg.PostgresURI != "" {
		gormDB, err := persistence.NewPostgres(cfg.PostgresURI)
		if err != nil {
			log.Fatal("Failed to connect to PostgreSQL", "error", err)
		}
		airlineRepo = repo.NewGormAirlineRepository(gormDB)
		airportRepo = repo.NewGormAirportRepository(gormDB)
	}

	aiRepo, err := repo.NewGeminiRepository(ctx, repo.GeminiConfig{
		Project:  cfg.GCPProject,
		Location: cfg.GCPLocation,
		Model:    cfg.GeminiModel,
		APIKey:   cfg.GeminiAPIKey,
	}, log)
	if err != nil {
		log.Fatal("Failed to create AI client", "error", err)
	}

	// Pipeline
	carriers := usecase.LoadCarrierTable(ctx, airlineRepo, log)
	resolver := usecase.NewSenderResolver(accountRepo)
	gate := usecase.NewValidationGate(aiRepo, cfg.ValidationThreshold, log)
	extractor := usecase.NewExtractionEngine(aiRepo, log)
	normalizer := usecase.NewNormalizer(carriers, airportRepo, log)
	enricher := usecase.NewTitleEnricher(aiRepo, cfg.AICallTimeout, log)
	persister := usecase.NewTripPersister(tripRepo, enricher, m, log)
	quarantine := usecase.NewQuarantineService(quarantineRepo, cfg.QuarantineMaxAttachmentBytes, m, log)
	orchestrator := usecase.NewIngestionOrchestrator(
		resolver,
		accountRepo,
		gate,
		extractor,
		normalizer,
		persister,
		quarantine,
		uploadLogRepo,
		usecase.OrchestratorConfig{AICallTimeout: cfg.AICallTimeout, RunTimeout: cfg.IngestTimeout},
		m,
		log,
	)

	// Gmail inbox poller
	if cfg.GmailEnabled {
		gmailOAuth := oauth.NewGmailOAuth(
			cfg.GmailClientID,
			cfg.GmailClientSecret,
			cfg.GmailRefreshToken,
			oauth.DefaultRedirectURL,
			log,
		)
		poller, err := gmail.NewInboxPoller(
			ctx,
			gmailOAuth.GetTokenSource(ctx),
			uploadLogRepo,
			orchestrator,
			log,
			cfg.GmailPollInterval,
			cfg.GmailQuery,
		)
		if err != nil {
			log.Fatal("Failed to create Gmail poller", "error", err)
		}
		go poller.StartPolling(ctx)
	}

	srv := handler.NewServer(orchestrator, quarantine, uploadLogRepo, registry, handler.Options{
		WebhookToken:   cfg.WebhookToken,
		OperatorTokens: cfg.OperatorTokens,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}, log)
	if len(cfg.OperatorTokens) == 0 {
		log.Warn("OPERATOR_TOKENS is empty; admin endpoints are disabled")
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start HTTP server in a goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info("Received signal", "signal", sig)

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
	}

	cancel() // Cancel the context to stop the poller

	if mongoClient != nil {
		if err := mongoClient.Disconnect(shutdownCtx); err != nil {
			log.Error("MongoDB disconnect error", "error", err)
		}
	}

	log.Info("Tripmail Service stopped")
}
