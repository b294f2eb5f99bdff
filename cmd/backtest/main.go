package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"CycleSentinel/internal/backtest"
	"CycleSentinel/internal/collector"
	"CycleSentinel/internal/config"
	"CycleSentinel/internal/model"
	"CycleSentinel/internal/recorder"
)

func main() {
	log.SetFlags(log.LstdFlags)

	var (
		cfgPath   = flag.String("config", "configs/config.yaml", "path to the config file")
		start     = flag.String("start", "", "simulation start date YYYY-MM-DD (default from config)")
		end       = flag.String("end", "", "simulation end date YYYY-MM-DD (default today)")
		window    = flag.Int("window", 0, "relative-performance lookback window in days (default from config)")
		pctl      = flag.Float64("pctl", 0, "underperformance percentile in (0, 1] (default from config)")
		strictIn  = flag.Bool("strict-entry", true, "require all four entry conditions")
		strictOut = flag.Bool("strict-exit", true, "require all four exit conditions")
		asJSON    = flag.Bool("json", false, "print the full result as JSON")
	)
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
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

	// The rank condition replays the recorded daily ordinals, so the
	// simulation reads the same store the dashboard writes.
	var store recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Fatalf("[FATAL] open recorder: %v", err)
		}
		defer sr.Close()
		store = sr
	} else {
		store = recorder.NewNoopRecorder()
	}

	params := model.BacktestParams{
		StrictEntry:         *strictIn,
		StrictExit:          *strictOut,
		LookbackWindow:      *window,
		UnderperfPercentile: *pctl,
	}
	if *start != "" {
		t, err := time.Parse("2006-01-02", *start)
		if err != nil {
			log.Fatalf("[FATAL] invalid -start: %v", err)
		}
		params.Start = t
	}
	if *end != "" {
		t, err := time.Parse("2006-01-02", *end)
		if err != nil {
			log.Fatalf("[FATAL] invalid -end: %v", err)
		}
		params.End = t
	}

	prices := collector.NewYahooFetcher()
	col := &collector.Collector{
		Prices:      prices,
		BTCFallback: collector.NewCoinGeckoFetcher(cfg.CoinGecko.BaseURL, cfg.Proxy),
	}

	btCfg := backtest.DefaultConfig()
	btCfg.SentimentEntryMax = cfg.Backtest.SentimentEntryMax
	btCfg.SentimentExitMin = cfg.Backtest.SentimentExitMin
	btCfg.RankColdMin = cfg.Backtest.RankColdMin
	btCfg.RankHotMax = cfg.Backtest.RankHotMax
	svc := &backtest.Service{
		Collector:     col,
		Sentiment:     collector.NewCBBIFetcher(cfg.Sentiment.DataURL, cfg.Sentiment.PageURL, cfg.Proxy),
		Store:         store,
		BTCSymbol:     cfg.Market.BTCSymbol,
		Equities:      cfg.Equities(),
		Halvings:      halvings,
		Cfg:           btCfg,
		DefaultStart:  cfg.BacktestStartTime(),
		DefaultWindow: cfg.Backtest.LookbackWindow,
		DefaultPctl:   cfg.Backtest.Percentile,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := svc.Run(ctx, params)
	if err != nil {
		log.Fatalf("[FATAL] backtest: %v", err)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			log.Fatalf("[FATAL] encode result: %v", err)
		}
		return
	}
	printReport(result)
}

func printReport(r *model.BacktestResult) {
	p := r.Params
	fmt.Printf("Backtest %s to %s  window=%d  pctl=%.2f  strictEntry=%v  strictExit=%v\n",
		p.Start.Format("2006-01-02"), p.End.Format("2006-01-02"),
		p.LookbackWindow, p.UnderperfPercentile, p.StrictEntry, p.StrictExit)
	fmt.Printf("Aligned days: %d   entries: %d   exits: %d\n\n", len(r.Dates), len(r.Entries), len(r.Exits))

	c := r.Conditions
	fmt.Println("Condition days:")
	fmt.Printf("  sentiment low  %6d    sentiment high %6d\n", c.SentimentLow, c.SentimentHigh)
	fmt.Printf("  rank cold      %6d    rank hot       %6d\n", c.RankCold, c.RankHot)
	fmt.Printf("  underperform   %6d    pi crossover   %6d\n", c.Underperf, c.PiCrossover)
	fmt.Printf("  accum window   %6d    dist window    %6d\n\n", c.AccumWindow, c.DistWindow)

	m := r.Metrics
	fmt.Printf("Strategy return  %9.2f%%   buy&hold return   %9.2f%%\n", m.TotalReturn*100, m.BuyHoldReturn*100)
	fmt.Printf("Max drawdown     %9.2f%%   buy&hold drawdown %9.2f%%\n", m.MaxDrawdown*100, m.BuyHoldMaxDrawdown*100)
	sharpe := "n/a"
	if m.Sharpe != nil {
		sharpe = fmt.Sprintf("%.2f", *m.Sharpe)
	}
	fmt.Printf("Sharpe           %9s    time in market    %8.1f%%\n", sharpe, m.TimeInMarket*100)
	if n := len(r.Equity); n > 0 {
		fmt.Printf("Final equity     %9.4f    buy&hold equity   %9.4f\n", r.Equity[n-1], r.BuyHold[n-1])
	}
}
