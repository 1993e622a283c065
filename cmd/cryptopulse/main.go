package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/skalibog/cryptopulse/internal/alert"
	"github.com/skalibog/cryptopulse/internal/analysis/fusion"
	"github.com/skalibog/cryptopulse/internal/analysis/liquidation"
	"github.com/skalibog/cryptopulse/internal/analysis/sentiment"
	"github.com/skalibog/cryptopulse/internal/analysis/technical"
	"github.com/skalibog/cryptopulse/internal/config"
	"github.com/skalibog/cryptopulse/internal/exchange"
	"github.com/skalibog/cryptopulse/internal/news"
	"github.com/skalibog/cryptopulse/internal/scheduler"
	"github.com/skalibog/cryptopulse/internal/storage"
	"github.com/skalibog/cryptopulse/internal/tracking"
	"github.com/skalibog/cryptopulse/internal/ui"
	"github.com/skalibog/cryptopulse/internal/whale"
	"github.com/skalibog/cryptopulse/pkg/logger"
	"github.com/skalibog/cryptopulse/pkg/models"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	once := flag.Bool("once", false, "run one monitor and signal pass, then exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logOpts := cfg.Log.Options(cfg.UI.Enabled)
	if cfg.UI.Enabled && !*once {
		logOpts.Console = false
	}
	if err := logger.Init(logOpts); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.GetLogger().Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *once); err != nil {
		logger.Fatal("cryptopulse stopped with error", zap.Error(err))
	}
	logger.Info("cryptopulse stopped")
}

func run(ctx context.Context, cfg *config.Config, once bool) error {
	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	var recorder storage.Recorder
	if cfg.Storage.Influx.Enabled {
		influx, err := storage.NewInfluxDBStorage(ctx, cfg.Storage.Influx)
		if err != nil {
			logger.Warn("influxdb unavailable, time-series recording disabled", zap.Error(err))
		} else {
			defer influx.Close()
			recorder = influx
		}
	}

	prices := exchange.NewPriceCache(time.Duration(cfg.Market.PriceCacheTTLSeconds)*time.Second, time.Now)
	market := exchange.NewRegistry(time.Duration(cfg.Market.RequestTimeoutSeconds)*time.Second, prices)
	market.Register("binance", exchange.NewBinanceClient(cfg.Binance))

	monitor := liquidation.NewMonitor(cfg.Analysis.Liquidation, market, store, recorder)
	engine := fusion.NewEngine(cfg.Analysis.Fusion, cfg.Watchlist, fusion.Dependencies{
		Indicators: technical.NewEngine(cfg.Analysis.Technical, market, cfg.Market.CandleLimit),
		Zones:      monitor.Detector(),
		Sentiment:  store,
		News:       store,
		Signals:    store,
		Recorder:   recorder,
	})

	hub := alert.NewHub()
	fanout := alert.NewFanout(hub, alert.ParseRisk(cfg.Alerts.MinRisk), notifiers(ctx, cfg.Alerts)...)

	var dashboard *ui.Dashboard
	publishers := alert.Publishers{fanout}
	if cfg.UI.Enabled && !once {
		dashboard = ui.NewDashboard(cfg.UI, cfg.Log.JSONFile)
		publishers = append(publishers, dashboard)
	}

	publishSignals := func(ctx context.Context) error {
		signals, err := engine.GenerateSignals(ctx)
		if err != nil {
			return err
		}
		for _, s := range signals {
			fanout.PublishSignal(s)
		}
		if dashboard != nil {
			dashboard.UpdateSignals(signals)
		}
		logSignals(signals)
		return nil
	}

	sched := scheduler.New(cfg.Monitor, cfg.Watchlist, monitor, publishers)

	if once {
		if err := sched.RunOnce(ctx); err != nil {
			return fmt.Errorf("monitor pass: %w", err)
		}
		return publishSignals(ctx)
	}

	sched.AddJob(scheduler.Job{
		Name:     "signals",
		Interval: time.Duration(cfg.Analysis.IntervalSeconds) * time.Second,
		Run:      publishSignals,
	})
	if cfg.Tracking.Enabled {
		tracker := tracking.NewTracker(cfg.Tracking, store, market)
		sched.AddJob(scheduler.Job{
			Name:     "tracking",
			Interval: time.Duration(cfg.Tracking.IntervalSeconds) * time.Second,
			Run:      tracker.Run,
		})
	}
	if cfg.Whale.Enabled {
		whales := whale.NewMonitor(cfg.Whale, store, market, fanout, whale.Chains(cfg.Whale)...)
		if err := whales.SeedWallets(ctx); err != nil {
			return fmt.Errorf("seed whale wallets: %w", err)
		}
		sched.AddJob(scheduler.Job{
			Name:     "whale",
			Interval: time.Duration(cfg.Whale.IntervalSeconds) * time.Second,
			Run:      whales.Run,
		})
	}
	if cfg.News.Enabled {
		scraper := news.NewScraper(cfg.News, sentiment.NewAnalyzer(nil), store, store, recorder)
		sched.AddJob(scheduler.Job{
			Name:     "news",
			Interval: time.Duration(cfg.News.IntervalSeconds) * time.Second,
			Run:      scraper.Run,
		})
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return alert.NewServer(cfg.Alerts.ListenAddr, hub).Run(ctx)
	})
	g.Go(func() error {
		return sched.Run(ctx)
	})
	if dashboard != nil {
		g.Go(func() error {
			defer cancel()
			return dashboard.Run(ctx)
		})
	}

	logger.Info("cryptopulse started",
		zap.Strings("exchanges", cfg.Watchlist.Exchanges),
		zap.Strings("symbols", cfg.Watchlist.Symbols),
		zap.String("storage", cfg.Storage.Driver))

	return g.Wait()
}

// notifiers собирает необязательные каналы уведомлений. Канал, который не поднялся, логируется и пропускается.
func notifiers(ctx context.Context, cfg config.AlertsConfig) []alert.Notifier {
	var out []alert.Notifier

	if cfg.Telegram.Token != "" {
		tg, err := alert.NewTelegramNotifier(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			logger.Warn("telegram notifier disabled", zap.Error(err))
		} else {
			out = append(out, tg)
		}
	}

	if cfg.FCM.CredentialsPath != "" {
		push, err := alert.NewPushNotifier(ctx, cfg.FCM.CredentialsPath, cfg.FCM.Topic)
		if err != nil {
			logger.Warn("push notifier disabled", zap.Error(err))
		} else {
			out = append(out, push)
		}
	}

	return out
}

func logSignals(signals map[string]*models.TradingSignal) {
	for key, s := range signals {
		logger.Info("trading signal",
			zap.String("pair", key),
			zap.String("type", string(s.SignalType)),
			zap.Float64("confidence", s.Confidence),
			zap.Float64("price", s.Price))
	}
}
