package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func loadDefaults(t *testing.T) *Config {
	t.Helper()
	// Neutralize whatever the host environment carries.
	for _, k := range []string{"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "SERVER_ADDR",
		"SQLITE_PATH", "COINGECKO_BASE_URL", "HTTPS_PROXY", "RUN_ON_START"} {
		t.Setenv(k, "")
	}
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return cfg
}

func TestLoad_DefaultsAreValid(t *testing.T) {
	cfg := loadDefaults(t)

	if cfg.Server.Addr != ":8080" {
		t.Errorf("server addr %q, want :8080", cfg.Server.Addr)
	}
	if cfg.Market.BTCSymbol != "BTC-USD" || cfg.Market.SmoothingDays != 7 {
		t.Errorf("market defaults wrong: %+v", cfg.Market)
	}
	if cfg.Backtest.LookbackWindow != 180 || cfg.Backtest.Percentile != 0.15 {
		t.Errorf("backtest defaults wrong: %+v", cfg.Backtest)
	}
	if len(cfg.Halving.Dates) != 4 || cfg.Halving.ProjectedTopDays != 520 {
		t.Errorf("halving defaults wrong: %+v", cfg.Halving)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
telegram:
  bot_token: from-file
  chat_id: "99"
server:
  addr: ":9090"
market:
  smoothing_days: 14
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("TELEGRAM_BOT_TOKEN", "from-env")
	t.Setenv("TELEGRAM_CHAT_ID", "")
	t.Setenv("SERVER_ADDR", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.BotToken != "from-env" {
		t.Errorf("env must beat the file, got token %q", cfg.Telegram.BotToken)
	}
	if cfg.Telegram.ChatID != "99" {
		t.Errorf("file value lost, chat id %q", cfg.Telegram.ChatID)
	}
	if cfg.Server.Addr != ":9090" || cfg.Market.SmoothingDays != 14 {
		t.Errorf("file overrides lost: addr %q, smoothing %d", cfg.Server.Addr, cfg.Market.SmoothingDays)
	}
	if cfg.Market.BTCSymbol != "BTC-USD" {
		t.Errorf("untouched fields must keep defaults, got %q", cfg.Market.BTCSymbol)
	}
}

func TestValidate_WeightsMustSumToOne(t *testing.T) {
	cfg := loadDefaults(t)
	cfg.Market.Weights["MSFT"] = 0.2
	if err := cfg.Validate(); err == nil {
		t.Error("expected an error for weights summing past 1.0")
	}
}

func TestValidate_ChatIDRequiredWithToken(t *testing.T) {
	cfg := loadDefaults(t)
	cfg.Telegram.BotToken = "123:abc"
	cfg.Telegram.ChatID = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected an error for a bot token without a chat id")
	}
}

func TestValidate_IndexMAsMustBeComputed(t *testing.T) {
	cfg := loadDefaults(t)
	cfg.Market.IndexBullMA = 111
	if err := cfg.Validate(); err == nil {
		t.Error("expected an error for a bull MA outside ma_windows")
	}
}

func TestEquities_SortedWithoutBTC(t *testing.T) {
	cfg := loadDefaults(t)
	want := []string{"AAPL", "AMZN", "GOOGL", "META", "MSFT", "NVDA", "TSLA"}
	if got := cfg.Equities(); !reflect.DeepEqual(got, want) {
		t.Errorf("equities %v, want %v", got, want)
	}
}

func TestHalvingTimes_RejectsUnorderedDates(t *testing.T) {
	cfg := loadDefaults(t)
	cfg.Halving.Dates = []string{"2016-07-09", "2012-11-28"}
	if _, err := cfg.HalvingTimes(); err == nil {
		t.Error("expected an error for out-of-order halving dates")
	}

	cfg.Halving.Dates = []string{"2012-11-28", "not-a-date"}
	if _, err := cfg.HalvingTimes(); err == nil {
		t.Error("expected an error for an unparseable halving date")
	}
}
