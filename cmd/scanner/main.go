package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrodnm/polyarb/config"
	"github.com/alejandrodnm/polyarb/internal/adapters/notify"
	"github.com/alejandrodnm/polyarb/internal/adapters/polymarket"
	"github.com/alejandrodnm/polyarb/internal/detector"
	"github.com/alejandrodnm/polyarb/internal/metrics"
	"github.com/alejandrodnm/polyarb/internal/ports"
	"github.com/alejandrodnm/polyarb/internal/scanner"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one scan cycle and exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print the cycle report as tables")
	noStream := flag.Bool("no-stream", false, "poll order books instead of using the websocket")
	noCross := flag.Bool("no-cross", false, "disable cross-market detection")
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

	crossEnabled := cfg.CrossEnabled() && !*noCross
	streamEnabled := cfg.StreamEnabled() && !*noStream && !*once

	slog.Info("polyarb starting",
		"config", *configPath,
		"interval", cfg.ScanInterval(),
		"once", *once,
		"cross", crossEnabled,
		"stream", streamEnabled,
		"assets", cfg.Discovery.Assets,
		"intervals", cfg.Discovery.Intervals,
	)

	m := metrics.New()

	client := polymarket.NewClient(cfg.API.CLOBBase, cfg.API.GammaBase,
		polymarket.WithCryptoBase(cfg.API.CryptoBase),
		polymarket.WithBookConcurrency(cfg.API.MaxConcurrentBookFetches),
		polymarket.WithDiscovery(polymarket.DiscoveryConfig{
			Assets:            cfg.Discovery.Assets,
			Intervals:         cfg.Intervals(),
			Lookahead:         cfg.Discovery.Lookahead,
			IncludeGeneral:    cfg.Discovery.IncludeGeneral,
			MinLiquidity:      cfg.Discovery.MinLiquidity,
			MaxGeneralMarkets: cfg.Discovery.MaxGeneralMarkets,
		}),
	)

	console := notify.NewConsole(*table)
	notifiers := []ports.Notifier{console}
	if cfg.Notify.Telegram.Enabled() {
		tg, err := notify.NewTelegram(cfg.Notify.Telegram.BotToken, cfg.Notify.Telegram.ChatID)
		if err != nil {
			slog.Warn("telegram disabled", "err", err)
		} else {
			notifiers = append(notifiers, tg)
			slog.Info("telegram notifications enabled", "chat_id", cfg.Notify.Telegram.ChatID)
		}
	}

	dispatcher := scanner.NewDispatcher(notify.NewMulti(notifiers...), scanner.DispatcherConfig{
		QueueSize: cfg.Notify.QueueSize,
		Cooldown:  cfg.NotifyCooldown(),
	}, m)
	// el dispatcher sobrevive a la señal para poder vaciar la cola en Stop
	dispatcher.Start(context.Background())
	defer dispatcher.Stop()

	scanCfg := scanner.DefaultConfig()
	scanCfg.ScanInterval = cfg.ScanInterval()
	scanCfg.MarketRefreshInterval = cfg.MarketRefreshInterval()
	scanCfg.ReferenceInterval = cfg.ReferenceInterval()
	scanCfg.StaleMaxAge = cfg.StaleMaxAge()
	scanCfg.ReferenceMaxAge = cfg.ReferenceMaxAge()
	scanCfg.ReferenceConcurrency = cfg.Scanner.ReferenceConcurrency
	scanCfg.EnableCross = crossEnabled
	scanCfg.Single = detector.SingleConfig{
		MinProfit:    cfg.Scanner.MinProfitThreshold,
		MinLiquidity: cfg.Scanner.MinLiquidityThreshold,
	}
	scanCfg.Cross = detector.CrossConfig{
		MinProfit:      cfg.Scanner.CrossMinProfit,
		DefaultLegSize: cfg.Scanner.DefaultLegSize,
		ReferenceRetry: cfg.ReferenceRetry(),
	}

	deps := scanner.Deps{
		Markets:    client,
		Books:      client,
		References: client,
		Dispatcher: dispatcher,
		Printer:    console,
		Metrics:    m,
	}
	if streamEnabled {
		deps.Stream = polymarket.NewStream(cfg.API.WSURL, polymarket.WithStreamMetrics(m))
	}

	s := scanner.New(scanCfg, deps)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	stopMetrics := serveMetrics(cfg.Metrics.ListenAddr, m)
	defer stopMetrics()

	if *once {
		if _, err := s.RunOnce(ctx); err != nil {
			slog.Error("scan failed", "err", err)
			dispatcher.Stop()
			os.Exit(1)
		}
		return
	}

	if err := s.Run(ctx); err != nil {
		slog.Error("scanner exited with error", "err", err)
		dispatcher.Stop()
		os.Exit(1)
	}

	slog.Info("polyarb stopped cleanly", "dropped_notifications", dispatcher.Dropped())
}

// serveMetrics expone /metrics si addr no está vacío. Devuelve el shutdown.
func serveMetrics(addr string, m *metrics.Metrics) func() {
	if addr == "" {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		slog.Info("metrics server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "err", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
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
