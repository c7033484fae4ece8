package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"crypto-consensus-bot/config"
	"crypto-consensus-bot/internal/aggregation"
	"crypto-consensus-bot/internal/cache"
	"crypto-consensus-bot/internal/database"
	"crypto-consensus-bot/internal/generators"
	"crypto-consensus-bot/internal/learner"
	"crypto-consensus-bot/internal/logging"
	"crypto-consensus-bot/internal/metrics"
	"crypto-consensus-bot/internal/providers"
	"crypto-consensus-bot/internal/scanner"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	logger := logging.New(&logging.Config{
		Level:       cfg.LoggingConfig.Level,
		Output:      cfg.LoggingConfig.Output,
		JSONFormat:  cfg.LoggingConfig.JSONFormat,
		IncludeFile: cfg.LoggingConfig.IncludeFile,
		Component:   "main",
	})
	logging.SetDefault(logger)
	logger.Info("Structured logging initialized")

	// The learner services log through zerolog.
	zl := zerolog.New(os.Stdout).With().Timestamp().Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Metrics: collectors are always registered, the endpoint is optional.
	recorder := metrics.New()
	if cfg.MetricsConfig.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		srv := &http.Server{Addr: cfg.MetricsConfig.Address, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("Metrics server failed", "error", err.Error())
			}
		}()
		defer srv.Shutdown(context.Background())
		logger.Info("Metrics endpoint started", "address", cfg.MetricsConfig.Address)
	}

	// Database
	db, err := database.NewDB(database.Config{
		Host:     cfg.DatabaseConfig.Host,
		Port:     cfg.DatabaseConfig.Port,
		User:     cfg.DatabaseConfig.User,
		Password: cfg.DatabaseConfig.Password,
		Database: cfg.DatabaseConfig.Database,
		SSLMode:  cfg.DatabaseConfig.SSLMode,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	repo := database.NewRepository(db)
	logger.Info("Database connected and migrated")

	// Redis is optional; everything it backs degrades gracefully.
	var rdb *redis.Client
	if cfg.RedisConfig.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisConfig.Address,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
			PoolSize: cfg.RedisConfig.PoolSize,
		})
		defer rdb.Close()
	}
	snapshots := cache.NewService(rdb, logger)

	// Acquisition chains, ordered by preference per data kind.
	layer := providers.NewLayer(logger, recorder)
	idCache := providers.NewIDCache(rdb)
	paprika := providers.NewCoinPaprika(idCache)

	layer.AddUniverse(providers.NewCoinGecko(cfg.ProvidersConfig.CoinGeckoAPIKey))
	layer.AddUniverse(paprika)
	layer.AddSeries(providers.NewBinanceSpot(cfg.ProvidersConfig.BinanceSpotURL))
	layer.AddSeries(paprika)
	layer.AddDerivatives(providers.NewBinanceFutures(cfg.ProvidersConfig.BinanceFuturesURL, cfg.ProvidersConfig.RequestPace))
	layer.AddOptions(providers.NewDeribit())
	layer.AddOnChain(providers.NewCryptoQuant(cfg.ProvidersConfig.CryptoQuantAPIKey))
	layer.AddOnChain(providers.NewBlockchair())
	layer.AddSentiment(providers.NewAlternativeMe())
	if err := layer.Validate(); err != nil {
		log.Fatalf("Provider configuration invalid: %v", err)
	}
	logger.Info("Acquisition chains configured")

	// Generator pool and consensus engine.
	registry := generators.DefaultRegistry(logger, recorder)
	weightCache := learner.NewWeightCache(repo)
	if err := weightCache.Refresh(ctx); err != nil {
		logger.Warn("Initial weight refresh failed", "error", err.Error())
	}
	engine := aggregation.NewEngine(aggregation.Config{
		ConfidenceFloor:  cfg.ConsensusConfig.ConfidenceFloor,
		MinParticipation: cfg.ConsensusConfig.MinParticipation,
	}, registry.Philosophies(), weightCache, logger)
	logger.Info("Generator pool initialized", "generators", registry.Len())

	// Live mark-price feed for outcome evaluation.
	var feed *providers.PriceFeed
	var priceSource learner.PriceSource
	if cfg.ProvidersConfig.PriceFeedEnabled {
		feed = providers.NewPriceFeed(logger)
		feed.Start(ctx)
		priceSource = feed
		defer feed.Stop()
	}

	// Learner jobs on cron cadences.
	if cfg.LearnerConfig.Enabled {
		philosophies := make(map[string]string, registry.Len())
		for name, phil := range registry.Philosophies() {
			philosophies[name] = string(phil)
		}

		tracker := learner.NewPerformanceTracker(repo, priceSource, layer, zl)
		learn := learner.NewLearner(repo, philosophies, recorder, zl)
		sched, err := learner.NewScheduler(ctx, tracker, learn, layer, layer, learner.Schedules{
			EvaluateOutcomes:      cfg.LearnerConfig.EvaluateOutcomes,
			UpdateWeights:         cfg.LearnerConfig.UpdateWeights,
			CheckProbation:        cfg.LearnerConfig.CheckProbation,
			CalculateCorrelations: cfg.LearnerConfig.CalculateCorrelations,
		}, zl)
		if err != nil {
			log.Fatalf("Failed to schedule learner jobs: %v", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	// Scan loop.
	sc := scanner.NewScanner(layer, registry, engine, weightCache, repo, snapshots, recorder, scanner.Config{
		Enabled:         cfg.ScannerConfig.Enabled,
		Interval:        cfg.ScannerConfig.Interval,
		CoinLimit:       cfg.ScannerConfig.CoinLimit,
		Workers:         cfg.ScannerConfig.Workers,
		WallClockBudget: cfg.ScannerConfig.WallClockBudget,
		Timeframe:       cfg.ScannerConfig.Timeframe,
		CandleLimit:     cfg.ScannerConfig.CandleLimit,
		MinPrice:        cfg.ScannerConfig.MinPrice,
		MaxPrice:        cfg.ScannerConfig.MaxPrice,
	}, logger)
	sc.Start(ctx)

	logger.Info("Consensus engine running")

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down")
	cancel()

	done := make(chan struct{})
	go func() {
		sc.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		logger.Warn("Shutdown timed out waiting for in-flight scan")
	}
}
