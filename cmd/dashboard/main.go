package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"CycleSentinel/internal/api"
	"CycleSentinel/internal/backtest"
	"CycleSentinel/internal/collector"
	"CycleSentinel/internal/config"
	"CycleSentinel/internal/metrics"
	"CycleSentinel/internal/model"
	"CycleSentinel/internal/notifier"
	"CycleSentinel/internal/recorder"
	"CycleSentinel/internal/scheduler"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] CycleSentinel starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}
	halvings, err := cfg.HalvingTimes()
	if err != nil {
		log.Fatalf("[FATAL] halving table: %v", err)
	}

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	// Init fetchers: Yahoo for prices with CoinGecko as the BTC fallback,
	// CBBI for sentiment, the App Store chart feed for the rank.
	prices := collector.NewYahooFetcher()
	coingecko := collector.NewCoinGeckoFetcher(cfg.CoinGecko.BaseURL, cfg.Proxy)
	cbbi := collector.NewCBBIFetcher(cfg.Sentiment.DataURL, cfg.Sentiment.PageURL, cfg.Proxy)
	appstore := collector.NewAppStoreFetcher(cfg.AppStore.FeedURL, cfg.AppStore.AppID, cfg.Proxy)

	sentiment := &collector.SentimentProvider{
		Fetcher:   cbbi,
		Cached:    cachedScore(rec),
		Prices:    prices,
		BTCSymbol: cfg.Market.BTCSymbol,
	}
	col := collector.NewCollector(prices, sentiment, appstore)
	col.BTCFallback = coingecko
	log.Printf("[INFO] data sources: prices=%s fallback=%s sentiment=%s rank=%s",
		prices.Name(), coingecko.Name(), cbbi.Name(), appstore.Name())

	// Init Telegram notifier
	var n notifier.Notifier
	var tg *notifier.TelegramNotifier
	if cfg.Telegram.BotToken != "" {
		tg = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		n = tg
	} else {
		log.Println("[INFO] no telegram token configured, notifications disabled")
		n = notifier.NewNoopNotifier()
	}

	m := metrics.New(nil)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, cfg, col, rec, n, m)
	if err := sched.RegisterAll(); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// Init backtester
	btCfg := backtest.DefaultConfig()
	btCfg.SentimentEntryMax = cfg.Backtest.SentimentEntryMax
	btCfg.SentimentExitMin = cfg.Backtest.SentimentExitMin
	btCfg.RankColdMin = cfg.Backtest.RankColdMin
	btCfg.RankHotMax = cfg.Backtest.RankHotMax
	bt := &backtest.Service{
		Collector:     col,
		Sentiment:     cbbi,
		Store:         rec,
		BTCSymbol:     cfg.Market.BTCSymbol,
		Equities:      cfg.Equities(),
		Halvings:      halvings,
		Cfg:           btCfg,
		DefaultStart:  cfg.BacktestStartTime(),
		DefaultWindow: cfg.Backtest.LookbackWindow,
		DefaultPctl:   cfg.Backtest.Percentile,
	}

	// Start HTTP API
	srv := api.NewServer(cfg, rec, sched, bt, m)
	go func() {
		if err := srv.Start(); err != nil {
			log.Fatalf("[FATAL] http server: %v", err)
		}
	}()

	// Start Telegram polling
	if tg != nil {
		go tg.StartPolling(ctx, sched.HandleCommand)
		log.Println("[INFO] Telegram polling started")
	}

	// Optional: refresh immediately on start
	if cfg.Schedule.RunOnStart {
		log.Println("[INFO] run-on-start enabled, executing refresh now")
		go sched.RunRefresh(ctx)
	}

	log.Println("[INFO] CycleSentinel is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[WARN] http shutdown: %v", err)
	}
	log.Println("[INFO] CycleSentinel stopped")
}

// cachedScore exposes the last persisted sentiment snapshot to the
// provider's degradation chain.
func cachedScore(rec recorder.Recorder) collector.CachedScoreFunc {
	return func() (model.SentimentScore, bool) {
		_, payload, err := rec.GetLatest(model.KeySentiment)
		if err != nil {
			return model.SentimentScore{}, false
		}
		snap, err := model.DecodeSnapshot[model.SentimentSnapshot](payload)
		if err != nil {
			log.Printf("[WARN] cached sentiment snapshot unreadable: %v", err)
			return model.SentimentScore{}, false
		}
		return model.SentimentScore{Score: snap.Score, Provenance: snap.Provenance, Date: snap.Date}, true
	}
}
