// Package main is the entry point of the CP Training Hub sync worker.
//
// The worker runs the background pipeline of the hub: it polls online judge
// feeds for new accepted submissions, folds them into per-category skill
// values, propagates score changes through the category dependency graph,
// recomputes roots and overall statistics, refreshes problem relevance
// scores, and queues notifications about the results.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/cphub/cp-training-hub/config"
	appsync "github.com/cphub/cp-training-hub/internal/application/sync"
	"github.com/cphub/cp-training-hub/internal/domain/judge"
	"github.com/cphub/cp-training-hub/internal/domain/skill"
	"github.com/cphub/cp-training-hub/internal/infrastructure/external/judgeapi"
	"github.com/cphub/cp-training-hub/internal/infrastructure/messaging"
	"github.com/cphub/cp-training-hub/internal/infrastructure/persistence/postgres"
	"github.com/cphub/cp-training-hub/internal/infrastructure/persistence/redis"
	"github.com/cphub/cp-training-hub/internal/infrastructure/scheduler"
	"github.com/cphub/cp-training-hub/internal/infrastructure/service"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting CP Training Hub worker",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"debug", cfg.App.Debug,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. DATABASE
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	dbCfg := postgres.DefaultConfig()
	dbCfg.Host = cfg.Database.Host
	dbCfg.Port = cfg.Database.Port
	dbCfg.Database = cfg.Database.Name
	dbCfg.User = cfg.Database.User
	dbCfg.Password = cfg.Database.Password
	dbCfg.SSLMode = cfg.Database.SSLMode
	dbCfg.MaxConns = int32(cfg.Database.MaxConns)
	dbCfg.MinConns = int32(cfg.Database.MinConns)
	dbCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	dbCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime
	dbCfg.ConnectTimeout = cfg.Database.ConnectTimeout

	dbConn, err := postgres.NewConnection(ctx, dbCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()
	log.Info("database connection established")

	log.Info("checking database migrations...")
	if err := postgres.NewMigrator(dbConn).Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("database schema is up to date")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. REDIS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to Redis...")
	redisCfg := redis.DefaultConfig()
	redisCfg.Host = cfg.Redis.Host
	redisCfg.Port = cfg.Redis.Port
	redisCfg.Password = cfg.Redis.Password
	redisCfg.DB = cfg.Redis.DB
	redisCfg.PoolSize = cfg.Redis.PoolSize
	redisCfg.DialTimeout = cfg.Redis.DialTimeout
	redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
	redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

	redisClient, err := redis.NewClient(ctx, redisCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	defer func() {
		log.Info("closing Redis connection...")
		_ = redisClient.Close()
	}()
	log.Info("Redis connection established")

	pendingJobs := redis.NewPendingJobs(redisClient, cfg.Sync.PendingTTL)
	notificationQueue := redis.NewNotificationQueue(redisClient)

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REPOSITORIES
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing repositories...")
	subjectRepo := postgres.NewSubjectRepository(dbConn)
	categoryRepo := postgres.NewCategoryRepository(dbConn)
	categoryEdgeRepo := postgres.NewCategoryEdgeRepository(dbConn)
	problemRepo := postgres.NewProblemRepository(dbConn)
	problemEdgeRepo := postgres.NewProblemEdgeRepository(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus...")
	busCfg := messaging.DefaultConfig()
	busCfg.Logger = log
	eventBus := messaging.NewInMemoryEventBus(busCfg)
	defer func() {
		log.Info("closing event bus...")
		eventBus.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 7. JUDGE FEED CLIENTS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing judge feed clients...", "count", len(cfg.Judges))
	var feeds []judge.FeedSource
	for _, jc := range cfg.Judges {
		clientCfg := judgeapi.DefaultClientConfig(jc.Name, jc.BaseURL)
		clientCfg.APIKey = jc.APIKey
		clientCfg.Timeout = jc.RequestTimeout
		clientCfg.RateLimiterConfig.RequestsPerSecond = jc.RateLimit
		clientCfg.RateLimiterConfig.BurstSize = jc.RateLimitBurst
		clientCfg.Logger = log
		feeds = append(feeds, judgeapi.NewClient(clientCfg))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. SYNC ENGINE AND DISPATCHER
	// ─────────────────────────────────────────────────────────────────────────
	table, err := skill.TableByName(cfg.Sync.SkillTable)
	if err != nil {
		return fmt.Errorf("invalid skill table: %w", err)
	}
	curve := skill.NewCurve(table)
	notifier := service.NewQueueNotifier(notificationQueue, log)

	engine := appsync.NewEngine(
		subjectRepo,
		categoryRepo,
		categoryEdgeRepo,
		problemRepo,
		problemEdgeRepo,
		feeds,
		curve,
		notifier,
		eventBus,
		log,
	)

	runner := appsync.NewBulkRunner(
		engine,
		scheduler.NewActiveSubjectLister(subjectRepo),
		pendingJobs,
		cfg.Sync.Concurrency,
		log,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 9. NOTIFICATION DELIVERY
	// ─────────────────────────────────────────────────────────────────────────
	delivery := service.NewDeliveryLoop(notificationQueue, service.NewLogSender(log), log)
	go delivery.Run(ctx)

	// ─────────────────────────────────────────────────────────────────────────
	// 10. SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	sched := scheduler.New(log)
	if cfg.Sync.Enabled {
		err := sched.Register(scheduler.NewBulkSyncJob(runner), scheduler.Schedule{
			Interval:       cfg.Sync.Interval,
			RunImmediately: cfg.Sync.RunOnStart,
		})
		if err != nil {
			return fmt.Errorf("failed to schedule bulk sync: %w", err)
		}
	} else {
		log.Warn("periodic sync is disabled")
	}
	sched.Start()
	defer sched.Stop()

	// ─────────────────────────────────────────────────────────────────────────
	// 11. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("CP Training Hub worker is running",
		"sync_interval", cfg.Sync.Interval,
		"concurrency", cfg.Sync.Concurrency,
		"skill_table", cfg.Sync.SkillTable,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	sig := <-sigCh
	log.Info("received shutdown signal", "signal", sig.String())
	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())
	cancel()

	log.Info("shutdown completed successfully")
	return nil
}

// setupLogger configures structured logging.
func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	switch cfg.Observability.LogLevel {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	}
	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "json" || cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)
	return log
}
