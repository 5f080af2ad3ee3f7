package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/optbot/config"
	"github.com/alejandrodnm/optbot/internal/adapters/marketdata"
	"github.com/alejandrodnm/optbot/internal/adapters/notify"
	"github.com/alejandrodnm/optbot/internal/adapters/storage"
	"github.com/alejandrodnm/optbot/internal/scanner"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one scan cycle and exit")
	pair := flag.Bool("pair", false, "print pair spread status and exit, without scanning")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print full signal table (default: compact 1-line)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	if cfg.API.Key == "" {
		slog.Error("missing API key: set MARKETDATA_API_KEY")
		os.Exit(1)
	}

	slog.Info("optbot starting",
		"config", *configPath,
		"interval", cfg.ScanInterval(),
		"universe", len(cfg.Scanner.Universe),
		"pair", cfg.Scanner.EqualWeightSymbol+"/"+cfg.Scanner.CapWeightSymbol,
		"once", *once,
	)

	client := marketdata.NewClient(cfg.API.BaseURL, cfg.API.Key)
	provider := marketdata.NewCachedProvider(marketdata.NewProvider(client), marketdata.DefaultCacheTTLs())

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := store.ApplySchema(ctx); err != nil {
		slog.Error("failed to apply schema", "err", err)
		os.Exit(1)
	}

	notifier := notify.NewConsole(*table)

	scanCfg := scanner.Config{
		Interval: cfg.ScanInterval(),
		Workers:  cfg.Scanner.Workers,
		Universe: cfg.Scanner.Universe,

		EqualWeightSymbol: cfg.Scanner.EqualWeightSymbol,
		CapWeightSymbol:   cfg.Scanner.CapWeightSymbol,
		SpreadThreshold:   cfg.Scanner.SpreadThreshold,
		SpreadDirection:   cfg.SpreadDirection(),
		Lookback:          cfg.Lookback(),

		BenchmarkETF: cfg.Strategy.BenchmarkETF,

		Fundamentals: cfg.FundamentalRules(),
		Technicals:   cfg.TechnicalRules(),
		Spreads:      cfg.SpreadParams(),

		Capital:            cfg.Strategy.Capital,
		MaxPositionSizePct: cfg.Strategy.MaxPositionSizePct,
		MaxPositions:       cfg.Strategy.MaxPositions,
		MaxSectorPositions: cfg.Strategy.MaxSectorPositions,
		EVThreshold:        cfg.Strategy.EVThreshold,
		RiskFreeRate:       cfg.Strategy.RiskFreeRate,

		DryRun: *once,
	}

	s := scanner.New(scanCfg, provider, store, notifier)

	if *pair {
		printPairStatus(ctx, s)
		return
	}

	if err := s.Run(ctx); err != nil {
		slog.Error("scanner exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("optbot stopped cleanly")
}

// printPairStatus muestra el estado del par sin correr el pipeline entero.
func printPairStatus(ctx context.Context, s *scanner.Scanner) {
	status, err := s.PairSpreadStatus(ctx)
	if err != nil {
		slog.Error("pair spread status failed", "err", err)
		os.Exit(1)
	}

	fmt.Printf("spread actual:   %+.2f%% (z-score %.2f)\n", status.Stats.Current, status.Stats.ZScore)
	fmt.Printf("media/mediana:   %+.2f%% / %+.2f%%\n", status.Stats.Mean, status.Stats.Median)
	fmt.Printf("rango histórico: [%+.2f%%, %+.2f%%]\n", status.Stats.Min, status.Stats.Max)
	fmt.Printf("umbral:          %.2f%% → extremo: %v\n", status.Check.Threshold, status.Check.IsExtreme)
	fmt.Printf("rotación:        %s (confianza %.0f%%)\n", status.Rotation.Signal, status.Rotation.Confidence)
	fmt.Printf("reversión:       %.0f%% de probabilidad hacia la media\n", status.Reversion)
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
