// apiserver is the HTTP entry point of the extraction-pattern engine.  It
// wires PostgreSQL, Redis, MinIO, Kafka, and the generative backend into the
// application service and serves the REST API until signalled to stop.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/patentdesk/extraction-engine/internal/application/extraction"
	"github.com/patentdesk/extraction-engine/internal/config"
	"github.com/patentdesk/extraction-engine/internal/domain/correction"
	"github.com/patentdesk/extraction-engine/internal/domain/pattern"
	"github.com/patentdesk/extraction-engine/internal/infrastructure/database/postgres"
	"github.com/patentdesk/extraction-engine/internal/infrastructure/database/postgres/repositories"
	"github.com/patentdesk/extraction-engine/internal/infrastructure/database/redis"
	"github.com/patentdesk/extraction-engine/internal/infrastructure/messaging/kafka"
	"github.com/patentdesk/extraction-engine/internal/infrastructure/monitoring/logging"
	"github.com/patentdesk/extraction-engine/internal/infrastructure/monitoring/prometheus"
	"github.com/patentdesk/extraction-engine/internal/infrastructure/storage/minio"
	"github.com/patentdesk/extraction-engine/internal/intelligence/synthesis"
	enginehttp "github.com/patentdesk/extraction-engine/internal/interfaces/http"
	"github.com/patentdesk/extraction-engine/internal/interfaces/http/handlers"
)

// Build-time variables injected via ldflags.
var (
	version = "dev"
)

const metricsNamespace = "pateng"

func main() {
	configPath := flag.String("config", "", "path to configuration file (empty: environment only)")
	migrate := flag.Bool("migrate", true, "run database migrations on startup")
	flag.Parse()

	if err := run(*configPath, *migrate); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, migrate bool) error {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(logging.LogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.Info("starting apiserver",
		logging.String("version", version),
		logging.Int("port", cfg.Server.Port),
		logging.String("mode", cfg.Server.Mode))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// PostgreSQL is the source of truth; nothing else starts without it.
	if migrate {
		if err := postgres.RunMigrations(postgres.BuildDSN(cfg.Database), cfg.Database.MigrationPath); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("migrations applied")
	}
	conn, err := postgres.NewConnection(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer conn.Close()

	redisClient, err := redis.NewClient(cfg.Redis, logger)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()

	archive, err := minio.NewArchive(cfg.MinIO, logger)
	if err != nil {
		return fmt.Errorf("connect minio: %w", err)
	}

	producer, err := kafka.NewProducer(cfg.Kafka, logger)
	if err != nil {
		return fmt.Errorf("create kafka producer: %w", err)
	}
	defer producer.Close()
	ensureTopics(ctx, cfg.Kafka.Brokers, logger)

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            metricsNamespace,
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, logger)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	appMetrics := prometheus.NewAppMetrics(collector)

	// Domain wiring.
	correctionRepo := repositories.NewCorrectionRepository(conn.Pool(), logger)
	patternRepo := repositories.NewPatternRepository(conn.Pool(), logger)

	correctionSvc := correction.NewService(correctionRepo, patternRepo, archive, correction.ServiceConfig{
		ReadyThreshold:  cfg.Engine.ReadyThreshold,
		ArchiveMinBytes: cfg.Engine.ArchiveMinBytes,
	}, logger)

	generator := synthesis.NewOpenAIBackend(cfg.Synthesis, nil, logger)
	synthesizer := synthesis.NewSynthesizer(correctionSvc, patternRepo, generator, synthesis.Config{
		MaxCorpusChars: cfg.Synthesis.MaxCorpusChars,
	}, logger)

	locker := redis.NewDeployLocker(redisClient, redis.LockOptions{}, logger)
	registry := pattern.NewRegistry(patternRepo, locker, pattern.RegistryConfig{
		DefaultPriority: cfg.Engine.DefaultPriority,
	}, logger)

	snapshots := redis.NewSnapshotStore(redisClient, cfg.Engine.SnapshotTTL, logger)
	matcher := pattern.NewMatcher(patternRepo, snapshots, pattern.MatcherConfig{
		SnapshotTTL: cfg.Engine.SnapshotTTL,
	}, logger)

	tiers := pattern.TierConfig{
		HighPassRate:   cfg.Engine.HighPassRate,
		HighMinCorpus:  cfg.Engine.HighMinCorpus,
		MediumPassRate: cfg.Engine.MediumPassRate,
	}

	svc := extraction.NewService(correctionSvc, synthesizer, registry, matcher, tiers, producer, appMetrics, logger)

	// HTTP surface.
	healthHandler := handlers.NewHealthHandler(version,
		handlers.CheckerFunc{CheckerName: "postgres", Fn: conn.HealthCheck},
		handlers.CheckerFunc{CheckerName: "redis", Fn: redisClient.Ping},
	)
	router := enginehttp.NewRouter(enginehttp.RouterConfig{
		PatternHandler:   handlers.NewPatternHandler(svc),
		HealthHandler:    healthHandler,
		Logger:           logger,
		Metrics:          appMetrics,
		MetricsCollector: collector,
		Mode:             enginehttp.ServerModeFromConfig(cfg.Server),
	})
	server := enginehttp.NewServer(cfg.Server, router, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	if err := server.Stop(context.Background()); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("apiserver stopped")
	return nil
}

// ensureTopics pre-creates the engine's event topics.  Failure is logged,
// not fatal: most brokers auto-create topics, and the event stream is
// advisory anyway.
func ensureTopics(ctx context.Context, brokers []string, logger logging.Logger) {
	manager, err := kafka.NewTopicManager(brokers, logger)
	if err != nil {
		logger.Warn("kafka topic manager unavailable", logging.Err(err))
		return
	}
	defer manager.Close()

	if err := manager.EnsureDefaultTopics(ctx); err != nil {
		logger.Warn("failed to ensure kafka topics", logging.Err(err))
	}
}
