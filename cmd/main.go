package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/KotFed0t/index_rebalancer/config"
	"github.com/KotFed0t/index_rebalancer/data"
	"github.com/KotFed0t/index_rebalancer/data/cache"
	"github.com/KotFed0t/index_rebalancer/data/repository/postgres"
	"github.com/KotFed0t/index_rebalancer/data/source"
	"github.com/KotFed0t/index_rebalancer/internal/externalApi/cloudStorageApi/googleDriveApi"
	"github.com/KotFed0t/index_rebalancer/internal/externalApi/marketDataApi"
	"github.com/KotFed0t/index_rebalancer/internal/notifier/telegramNotifier"
	"github.com/KotFed0t/index_rebalancer/internal/reportGenerator/csvGenerator"
	"github.com/KotFed0t/index_rebalancer/internal/reportGenerator/xlsxGenerator"
	"github.com/KotFed0t/index_rebalancer/internal/scheduler"
	"github.com/KotFed0t/index_rebalancer/internal/service/rebalanceService"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	slog.Debug("config", slog.Any("cfg", cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	marketDataSource, closeSource := newSource(cfg)
	defer closeSource()

	var universeCache rebalanceService.Cache
	if cfg.Redis.Host != "" {
		redisClient := data.NewRedisClient(cfg)
		defer redisClient.Close()
		universeCache = cache.NewRedisCache(redisClient, cfg)
	}

	generators := []rebalanceService.ReportGenerator{csvGenerator.New()}
	if cfg.Output.XLSX {
		generators = append(generators, xlsxGenerator.New())
	}

	var cloudStorage rebalanceService.CloudStorage
	var googleDrive *googleDriveApi.GoogleDriveApi
	if cfg.GoogleDrive.CredentialsFile != "" {
		googleDrive = googleDriveApi.New(ctx, cfg)
		cloudStorage = googleDrive
	}

	var notifier rebalanceService.Notifier
	if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != 0 {
		notifier = telegramNotifier.New(cfg)
	}

	rebalanceSrv := rebalanceService.New(cfg, marketDataSource, universeCache, generators, cloudStorage, notifier)

	if cfg.Jobs.RebalanceCrontab == "" {
		if err := rebalanceSrv.Run(ctx); err != nil {
			slog.Error("rebalance failed", slog.String("err", err.Error()))
			os.Exit(1)
		}
		return
	}

	// every tick republishes the same date pair with whatever the source holds now
	slog.Info("scheduled mode",
		slog.String("crontab", cfg.Jobs.RebalanceCrontab),
		slog.String("firstDate", cfg.Index.FirstDate),
		slog.String("secondDate", cfg.Index.SecondDate),
	)

	sched := scheduler.New()
	sched.NewCrontabJob(scheduler.Job{Name: "rebalance", Run: rebalanceSrv.Run, Timeout: cfg.Jobs.Timeout}, cfg.Jobs.RebalanceCrontab)
	if googleDrive != nil {
		sched.NewIntervalJob(
			scheduler.Job{Name: "clean google drive", Run: googleDrive.DeleteOldFiles, Timeout: cfg.Jobs.Timeout},
			cfg.Jobs.DriveCleanInterval,
			true,
		)
	}
	sched.Start()
	defer sched.Stop()

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-interrupt
}

func newSource(cfg *config.Config) (rebalanceService.MarketDataSource, func()) {
	switch cfg.Source.Kind {
	case config.SourceCSV:
		return source.NewCSVFile(cfg.Source.Path), func() {}
	case config.SourceXLSX:
		return source.NewXLSXFile(cfg.Source.Path, cfg.Source.Sheet), func() {}
	case config.SourceHTTP:
		return marketDataApi.New(cfg), func() {}
	case config.SourcePostgres:
		pgClient := data.NewPostgresClient(cfg)
		return postgres.NewPostgres(pgClient), func() { _ = pgClient.Close() }
	default:
		slog.Error("unknown source kind", slog.String("kind", cfg.Source.Kind))
		os.Exit(1)
		return nil, nil
	}
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}
