package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/user/scraper-service/internal/adapter/postgres"
	redisadapter "github.com/user/scraper-service/internal/adapter/redis"
	"github.com/user/scraper-service/internal/adapter/scrape"
	"github.com/user/scraper-service/internal/delivery/http/handler"
	"github.com/user/scraper-service/internal/delivery/http/router"
	"github.com/user/scraper-service/internal/usecase"
	"github.com/user/scraper-service/pkg/config"
	"github.com/user/scraper-service/pkg/logger"
	"github.com/user/scraper-service/pkg/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("could not load config", zap.Error(err))
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		zap.NewExample().Fatal("could not build logger", zap.Error(err))
	}
	defer log.Sync()

	metrics.Init()

	ctx := context.Background()

	// Postgres
	dbpool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatal("could not connect to postgres", zap.Error(err))
	}
	defer dbpool.Close()
	if err := postgres.EnsureSchema(ctx, dbpool); err != nil {
		log.Fatal("could not apply schema", zap.Error(err))
	}
	log.Info("postgres connection pool established")

	// Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal("could not connect to redis", zap.Error(err))
	}
	log.Info("redis connection established")

	// Repositories
	queueRepo := postgres.NewQueueRepo(dbpool)
	productRepo := postgres.NewProductRepo(dbpool)
	seenRepo := redisadapter.NewSeenRepo(rdb)

	// Scrape adapter
	registry, err := scrape.LoadRegistry(cfg.SiteRulesFile)
	if err != nil {
		log.Fatal("could not load site rules", zap.Error(err))
	}
	httpFetcher := scrape.NewHTTPFetcher(cfg.UserAgent)
	var jsFetcher scrape.Fetcher
	if cfg.Fetcher == config.FetcherChromedp {
		jsFetcher = scrape.NewChromedpFetcher(cfg.ScrapeWorkers, cfg.UserAgent)
	}
	scraper := scrape.NewSiteScraper(httpFetcher, jsFetcher, registry, log.Named("scraper"))

	// Use cases
	queueManager := usecase.NewQueueManager(
		queueRepo,
		seenRepo,
		usecase.RescrapePolicy(cfg.RescrapePolicy),
		time.Duration(cfg.SeenTTLHours)*time.Hour,
		log.Named("ingest"),
	)
	selectionManager := usecase.NewSelectionManager(queueRepo, log.Named("selection"))
	batchRunner := usecase.NewOrchestrator(
		queueRepo,
		productRepo,
		scraper,
		cfg.ScrapeWorkers,
		time.Duration(cfg.ScrapeTimeout)*time.Second,
		log.Named("orchestrator"),
	)
	statsReader := usecase.NewStatsReader(queueRepo, productRepo)
	productReader := usecase.NewProductReader(productRepo)

	// HTTP server
	h := handler.New(queueManager, selectionManager, batchRunner, statsReader, productReader, queueRepo, seenRepo, log.Named("http"))
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router.New(h, log.Named("http")),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Minute, // scrape-selected blocks for a whole batch
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("could not start server", zap.Error(err))
		}
	}()
	log.Info("server started", zap.String("port", cfg.ServerPort))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal("server forced to shutdown", zap.Error(err))
	}
	log.Info("server exiting")
}
