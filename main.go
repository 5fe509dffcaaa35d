package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"giftsniper/analytics"
	"giftsniper/auth"
	"giftsniper/config"
	"giftsniper/executor"
	"giftsniper/logger"
	"giftsniper/market"
	"giftsniper/models"
	"giftsniper/monitor"
	"giftsniper/notifier"
	"giftsniper/snipe"
	"giftsniper/strategy"
	"giftsniper/writer"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	collectionsPath := flag.String("collections", "", "Override path to the collections file")

	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Sniper.Name,
		"version": cfg.Sniper.Version,
	}).Info("starting giftsniper")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if strings.ToLower(cfg.Logging.Level) == "report" {
		logger.StartReport(ctx, log, 30*time.Second)
	}
	if cfg.Logging.DashboardName != "" {
		logger.InitCloudWatch(cfg.Storage.S3.Region, "GiftSniper", cfg.Logging.DashboardName)
	}

	collectionsFile := cfg.Monitor.CollectionsFile
	if *collectionsPath != "" {
		collectionsFile = *collectionsPath
	}
	collections, err := config.LoadCollections(collectionsFile)
	if err != nil {
		log.WithError(err).Error("failed to load collections")
		os.Exit(1)
	}
	if len(collections) == 0 {
		log.Error("no collections configured, nothing to watch")
		os.Exit(1)
	}

	tokens := auth.NewTokenManager(cfg.Source.Auth)
	marketClient := market.NewClient(cfg.Source.Market, tokens)
	analyticsClient := analytics.NewClient(cfg.Source.Analytics, cfg.Source.Auth.AnalyticsToken)

	calc := snipe.NewProfitCalculator(cfg.Strategy.MarketFee)
	minProfit := models.MoneyFromFloat(cfg.Strategy.MinProfit)

	var strat strategy.Strategy
	if cfg.Strategy.UseAnalytics {
		strat = strategy.NewAnalyticsStrategy(analyticsClient, minProfit, calc, strategy.AnalyticsConfig{
			MinVelocity:       cfg.Strategy.MinVelocity,
			HighVelocity:      cfg.Strategy.HighVelocity,
			TrendingThreshold: cfg.Strategy.TrendingThreshold,
			TrendingDiscount:  cfg.Strategy.TrendingDiscount,
			HighDiscount:      cfg.Strategy.HighDiscount,
			ModerateDiscount:  cfg.Strategy.ModerateDiscount,
		})
		log.Info("analytics strategy enabled")
	} else {
		strat = strategy.NewBasicStrategy(minProfit, calc)
		log.Info("basic profit strategy enabled")
	}

	var auditWriter *writer.AuditWriter
	if cfg.Storage.S3.Enabled {
		auditWriter, err = writer.NewAuditWriter(cfg)
		if err != nil {
			log.WithError(err).Error("failed to create audit writer")
			os.Exit(1)
		}
		if err := auditWriter.Start(ctx); err != nil {
			log.WithError(err).Error("failed to start audit writer")
			os.Exit(1)
		}
	} else {
		log.WithComponent("main").Info("S3 storage disabled; skipping audit trail")
	}

	notif := notifier.NewLogNotifier()

	var auditor executor.Auditor
	if auditWriter != nil {
		auditor = auditWriter
	}
	exec := executor.New(marketClient, notif, tokens, auditor, executor.Options{
		DryRun:     cfg.Monitor.DryRun,
		Concurrent: cfg.Monitor.ExecutorConcurrent,
	})

	floors := snipe.NewFloorCache(marketClient, cfg.Monitor.FloorCacheTTL)
	seen := snipe.NewSeenSet(cfg.Monitor.SeenLimit)

	var stats monitor.StatsClient
	if cfg.Strategy.UseAnalytics {
		stats = analyticsClient
	}

	mon := monitor.New(collections, marketClient, marketClient, strat, exec, notif, stats, floors, seen, calc, cfg.Monitor)

	done := make(chan struct{})
	go func() {
		mon.Run(ctx)
		close(done)
	}()

	log.Info("all components started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")

	log.Info("starting graceful shutdown")
	cancel()

	select {
	case <-done:
	case <-time.After(30 * time.Second):
		log.Warn("monitor shutdown timeout exceeded")
	}

	if auditWriter != nil {
		log.Info("stopping audit writer")
		auditWriter.Stop()
	}

	log.WithFields(logger.Fields{
		"attempts":  exec.Attempts(),
		"successes": exec.Successes(),
	}).Info("giftsniper stopped")
}
