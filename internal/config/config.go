package config

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// dateLayout parses calendar dates in the config file.
const dateLayout = "2006-01-02"

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Schedule struct {
		DailyCron    string `yaml:"daily_cron"`
		IntervalCron string `yaml:"interval_cron"`
		Timezone     string `yaml:"timezone"`
		RunOnStart   bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`
	Market struct {
		BTCSymbol     string             `yaml:"btc_symbol"`
		Weights       map[string]float64 `yaml:"weights"`
		AnchorEquity  string             `yaml:"anchor_equity"`
		SmoothingDays int                `yaml:"smoothing_days"`
		MAWindows     []int              `yaml:"ma_windows"`
		IndexBullMA   int                `yaml:"index_bull_ma"`
		IndexBearMA   int                `yaml:"index_bear_ma"`
		HistoryStart  string             `yaml:"history_start"`
	} `yaml:"market"`
	Sentiment struct {
		DataURL        string  `yaml:"data_url"`
		PageURL        string  `yaml:"page_url"`
		GreedThreshold float64 `yaml:"greed_threshold"`
		FearThreshold  float64 `yaml:"fear_threshold"`
	} `yaml:"sentiment"`
	AppStore struct {
		FeedURL      string `yaml:"feed_url"`
		AppID        string `yaml:"app_id"`
		TrackedRange int    `yaml:"tracked_range"`
		EuphoriaRank int    `yaml:"euphoria_rank"`
		GrowingRank  int    `yaml:"growing_rank"`
	} `yaml:"app_store"`
	Halving struct {
		Dates            []string `yaml:"dates"`
		ProjectedTopDays int      `yaml:"projected_top_days"`
		LateFraction     float64  `yaml:"late_fraction"`
		MidFraction      float64  `yaml:"mid_fraction"`
	} `yaml:"halving"`
	PiCycle struct {
		TopRatio    float64 `yaml:"top_ratio"`
		NormalRatio float64 `yaml:"normal_ratio"`
		ChartYears  int     `yaml:"chart_years"`
	} `yaml:"pi_cycle"`
	Backtest struct {
		Start             string  `yaml:"start"`
		LookbackWindow    int     `yaml:"lookback_window"`
		Percentile        float64 `yaml:"percentile"`
		SentimentEntryMax float64 `yaml:"sentiment_entry_max"`
		SentimentExitMin  float64 `yaml:"sentiment_exit_min"`
		RankColdMin       int     `yaml:"rank_cold_min"`
		RankHotMax        int     `yaml:"rank_hot_max"`
	} `yaml:"backtest"`
	CoinGecko struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"coingecko"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides. A .env file in the working directory is folded into the
// environment first; a missing one is fine.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("COINGECKO_BASE_URL"); v != "" {
		cfg.CoinGecko.BaseURL = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if os.Getenv("RUN_ON_START") == "true" {
		cfg.Schedule.RunOnStart = true
	}

	// Defaults
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/cycle_sentinel.db"
	}
	if cfg.Schedule.DailyCron == "" {
		cfg.Schedule.DailyCron = "0 0 6 * * *"
	}
	if cfg.Schedule.IntervalCron == "" {
		cfg.Schedule.IntervalCron = "@every 12h"
	}
	if cfg.Schedule.Timezone == "" {
		cfg.Schedule.Timezone = "UTC"
	}
	if cfg.Market.BTCSymbol == "" {
		cfg.Market.BTCSymbol = "BTC-USD"
	}
	if len(cfg.Market.Weights) == 0 {
		cfg.Market.Weights = map[string]float64{
			"BTC-USD": 0.50,
			"MSFT":    0.10,
			"AAPL":    0.10,
			"GOOGL":   0.10,
			"AMZN":    0.10,
			"META":    0.05,
			"NVDA":    0.05,
			"TSLA":    0.00, // fetched for the alignment anchor, unweighted
		}
	}
	if cfg.Market.AnchorEquity == "" {
		cfg.Market.AnchorEquity = "TSLA"
	}
	if cfg.Market.SmoothingDays == 0 {
		cfg.Market.SmoothingDays = 7
	}
	if len(cfg.Market.MAWindows) == 0 {
		cfg.Market.MAWindows = []int{100, 150, 200}
	}
	if cfg.Market.IndexBullMA == 0 {
		cfg.Market.IndexBullMA = 100
	}
	if cfg.Market.IndexBearMA == 0 {
		cfg.Market.IndexBearMA = 200
	}
	if cfg.Market.HistoryStart == "" {
		cfg.Market.HistoryStart = "2015-01-01"
	}
	if cfg.Sentiment.DataURL == "" {
		cfg.Sentiment.DataURL = "https://colintalkscrypto.com/cbbi/data/latest.json"
	}
	if cfg.Sentiment.PageURL == "" {
		cfg.Sentiment.PageURL = "https://colintalkscrypto.com/cbbi/"
	}
	if cfg.Sentiment.GreedThreshold == 0 {
		cfg.Sentiment.GreedThreshold = 0.8
	}
	if cfg.Sentiment.FearThreshold == 0 {
		cfg.Sentiment.FearThreshold = 0.5
	}
	if cfg.AppStore.FeedURL == "" {
		cfg.AppStore.FeedURL = "https://rss.marketingtools.apple.com/api/v2/us/apps/top-free/200/apps.json"
	}
	if cfg.AppStore.AppID == "" {
		cfg.AppStore.AppID = "886427730" // Coinbase
	}
	if cfg.AppStore.TrackedRange == 0 {
		cfg.AppStore.TrackedRange = 200
	}
	if cfg.AppStore.EuphoriaRank == 0 {
		cfg.AppStore.EuphoriaRank = 10
	}
	if cfg.AppStore.GrowingRank == 0 {
		cfg.AppStore.GrowingRank = 50
	}
	if len(cfg.Halving.Dates) == 0 {
		cfg.Halving.Dates = []string{"2012-11-28", "2016-07-09", "2020-05-11", "2024-04-20"}
	}
	if cfg.Halving.ProjectedTopDays == 0 {
		cfg.Halving.ProjectedTopDays = 520
	}
	if cfg.Halving.LateFraction == 0 {
		cfg.Halving.LateFraction = 0.8
	}
	if cfg.Halving.MidFraction == 0 {
		cfg.Halving.MidFraction = 0.5
	}
	if cfg.PiCycle.TopRatio == 0 {
		cfg.PiCycle.TopRatio = 0.98
	}
	if cfg.PiCycle.NormalRatio == 0 {
		cfg.PiCycle.NormalRatio = 0.80
	}
	if cfg.PiCycle.ChartYears == 0 {
		cfg.PiCycle.ChartYears = 4
	}
	if cfg.Backtest.Start == "" {
		cfg.Backtest.Start = "2015-01-01"
	}
	if cfg.Backtest.LookbackWindow == 0 {
		cfg.Backtest.LookbackWindow = 180
	}
	if cfg.Backtest.Percentile == 0 {
		cfg.Backtest.Percentile = 0.15
	}
	if cfg.Backtest.SentimentEntryMax == 0 {
		cfg.Backtest.SentimentEntryMax = 0.20
	}
	if cfg.Backtest.SentimentExitMin == 0 {
		cfg.Backtest.SentimentExitMin = 0.90
	}
	if cfg.Backtest.RankColdMin == 0 {
		cfg.Backtest.RankColdMin = 100
	}
	if cfg.Backtest.RankHotMax == 0 {
		cfg.Backtest.RankHotMax = 5
	}
	if cfg.CoinGecko.BaseURL == "" {
		cfg.CoinGecko.BaseURL = "https://api.coingecko.com"
	}

	return cfg, nil
}

// Validate checks cross-field consistency. The Telegram section is
// optional; everything else must be coherent before startup.
func (c *Config) Validate() error {
	if c.Telegram.BotToken != "" && c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required when a bot token is set")
	}
	sum := lo.Sum(lo.Values(c.Market.Weights))
	if sum < 1-1e-9 || sum > 1+1e-9 {
		return fmt.Errorf("market.weights must sum to 1.0, got %v", sum)
	}
	if _, ok := c.Market.Weights[c.Market.BTCSymbol]; !ok {
		return fmt.Errorf("market.weights has no entry for %s", c.Market.BTCSymbol)
	}
	if c.Market.AnchorEquity == c.Market.BTCSymbol {
		return fmt.Errorf("market.anchor_equity must be an equity, not %s", c.Market.BTCSymbol)
	}
	if _, ok := c.Market.Weights[c.Market.AnchorEquity]; !ok {
		return fmt.Errorf("market.anchor_equity %s is not a weighted ticker", c.Market.AnchorEquity)
	}
	if !lo.Contains(c.Market.MAWindows, c.Market.IndexBullMA) ||
		!lo.Contains(c.Market.MAWindows, c.Market.IndexBearMA) {
		return fmt.Errorf("market.index_bull_ma and index_bear_ma must be among ma_windows %v",
			c.Market.MAWindows)
	}
	if _, err := time.Parse(dateLayout, c.Market.HistoryStart); err != nil {
		return fmt.Errorf("market.history_start: %w", err)
	}
	if c.Sentiment.FearThreshold >= c.Sentiment.GreedThreshold {
		return fmt.Errorf("sentiment.fear_threshold %v must be below greed_threshold %v",
			c.Sentiment.FearThreshold, c.Sentiment.GreedThreshold)
	}
	if c.AppStore.EuphoriaRank >= c.AppStore.GrowingRank {
		return fmt.Errorf("app_store.euphoria_rank %d must be better (smaller) than growing_rank %d",
			c.AppStore.EuphoriaRank, c.AppStore.GrowingRank)
	}
	if c.PiCycle.NormalRatio >= c.PiCycle.TopRatio {
		return fmt.Errorf("pi_cycle.normal_ratio %v must be below top_ratio %v",
			c.PiCycle.NormalRatio, c.PiCycle.TopRatio)
	}
	if c.Halving.MidFraction >= c.Halving.LateFraction {
		return fmt.Errorf("halving.mid_fraction %v must be below late_fraction %v",
			c.Halving.MidFraction, c.Halving.LateFraction)
	}
	if _, err := c.HalvingTimes(); err != nil {
		return err
	}
	if _, err := time.Parse(dateLayout, c.Backtest.Start); err != nil {
		return fmt.Errorf("backtest.start: %w", err)
	}
	if c.Backtest.LookbackWindow <= 0 {
		return fmt.Errorf("backtest.lookback_window must be positive")
	}
	if p := c.Backtest.Percentile; p <= 0 || p > 1 {
		return fmt.Errorf("backtest.percentile %v outside (0, 1]", p)
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("schedule.timezone: %w", err)
	}
	return nil
}

// Equities returns the weighted tickers without the BTC symbol, sorted
// for deterministic fetch order.
func (c *Config) Equities() []string {
	syms := lo.Reject(lo.Keys(c.Market.Weights), func(s string, _ int) bool {
		return s == c.Market.BTCSymbol
	})
	sort.Strings(syms)
	return syms
}

// HalvingTimes parses the configured halving dates and checks they are
// strictly ascending.
func (c *Config) HalvingTimes() ([]time.Time, error) {
	out := make([]time.Time, 0, len(c.Halving.Dates))
	for _, s := range c.Halving.Dates {
		t, err := time.ParseInLocation(dateLayout, s, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("halving.dates %q: %w", s, err)
		}
		if len(out) > 0 && !out[len(out)-1].Before(t) {
			return nil, fmt.Errorf("halving.dates must be strictly ascending at %q", s)
		}
		out = append(out, t)
	}
	return out, nil
}

// HistoryStartTime returns the configured price-history start date.
func (c *Config) HistoryStartTime() time.Time {
	t, _ := time.ParseInLocation(dateLayout, c.Market.HistoryStart, time.UTC)
	return t
}

// BacktestStartTime returns the configured default backtest start date.
func (c *Config) BacktestStartTime() time.Time {
	t, _ := time.ParseInLocation(dateLayout, c.Backtest.Start, time.UTC)
	return t
}
