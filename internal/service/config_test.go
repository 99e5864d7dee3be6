package service

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfigDefaultsWithoutFile(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Trader.Symbol != "LLOY.L" {
		t.Fatalf("expected default symbol LLOY.L, got %q", cfg.Trader.Symbol)
	}
	if cfg.Trader.CashAtRisk != 0.5 || cfg.Trader.SentimentThreshold != 0.95 || cfg.Trader.ATRWindow != 14 {
		t.Fatalf("unexpected strategy defaults: %+v", cfg.Trader)
	}
	if cfg.SleepInterval() != 24*time.Hour {
		t.Fatalf("expected 24h sleep interval, got %s", cfg.SleepInterval())
	}
	if cfg.Trader.NewsLookbackDays != 3 || cfg.Trader.BarLookback != 100 {
		t.Fatalf("unexpected lookback defaults: %+v", cfg.Trader)
	}
}

func TestLoadConfigReadsYAML(t *testing.T) {
	dir := t.TempDir()
	yaml := `
Trader:
  Symbol: AAPL
  CashAtRisk: 0.25
  SentimentThreshold: 0.9
  ATRWindow: 20
  SleepTime: 4h
  BarTimeFrame: 1h
  BarLookback: 60
  NewsLookbackDays: 2
Broker:
  Name: simulator
Sentiment:
  Classifier: lexicon
State:
  Store: file
  Path: /tmp/position.yaml
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Trader.Symbol != "AAPL" || cfg.Trader.CashAtRisk != 0.25 || cfg.Trader.ATRWindow != 20 {
		t.Fatalf("yaml values not applied: %+v", cfg.Trader)
	}
	if cfg.SleepInterval() != 4*time.Hour {
		t.Fatalf("expected 4h, got %s", cfg.SleepInterval())
	}
	if cfg.Broker.Name != "simulator" || cfg.Sentiment.Classifier != "lexicon" || cfg.State.Store != "file" {
		t.Fatalf("section values not applied: %+v", cfg)
	}
	// 未配置的字段保留默认值
	if cfg.News.Source != "alpaca" {
		t.Fatalf("expected default news source, got %q", cfg.News.Source)
	}
}

func TestLoadConfigCredentialsFromEnv(t *testing.T) {
	t.Setenv(EnvAlpacaKey, "key-id")
	t.Setenv(EnvAlpacaSecret, "secret")
	t.Setenv(EnvHFToken, "hf-token")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Broker.APIKey != "key-id" || cfg.Broker.APISecret != "secret" || cfg.Sentiment.APIToken != "hf-token" {
		t.Fatalf("credentials not loaded: %+v %+v", cfg.Broker, cfg.Sentiment)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{Trader: TraderConfig{
			Symbol:             "AAPL",
			CashAtRisk:         0.5,
			SentimentThreshold: 0.95,
			ATRWindow:          14,
			SleepTime:          "24h",
			BarTimeFrame:       "1d",
			BarLookback:        100,
			NewsLookbackDays:   3,
		}}
	}

	cases := []struct {
		name   string
		mutate func(*Config)
		errSub string
	}{
		{"ok", func(*Config) {}, ""},
		{"cash at risk of one is allowed", func(c *Config) { c.Trader.CashAtRisk = 1 }, ""},
		{"empty symbol", func(c *Config) { c.Trader.Symbol = " " }, "Symbol"},
		{"zero cash at risk", func(c *Config) { c.Trader.CashAtRisk = 0 }, "CashAtRisk"},
		{"cash at risk above one", func(c *Config) { c.Trader.CashAtRisk = 1.2 }, "CashAtRisk"},
		{"threshold of one", func(c *Config) { c.Trader.SentimentThreshold = 1 }, "SentimentThreshold"},
		{"window below two", func(c *Config) { c.Trader.ATRWindow = 1 }, "ATRWindow"},
		{"lookback shorter than window", func(c *Config) { c.Trader.BarLookback = 10 }, "BarLookback"},
		{"bad sleep time", func(c *Config) { c.Trader.SleepTime = "soon" }, "SleepTime"},
		{"bad timeframe", func(c *Config) { c.Trader.BarTimeFrame = "1y" }, "BarTimeFrame"},
		{"no news window", func(c *Config) { c.Trader.NewsLookbackDays = 0 }, "NewsLookbackDays"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.errSub == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.errSub) {
				t.Fatalf("expected error mentioning %q, got %v", tc.errSub, err)
			}
		})
	}
}

func TestParseIntervalDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"30s": 30 * time.Second,
		"15m": 15 * time.Minute,
		"4h":  4 * time.Hour,
		"24h": 24 * time.Hour,
		"1d":  24 * time.Hour,
		"1w":  7 * 24 * time.Hour,
	}
	for in, want := range cases {
		got, err := ParseIntervalDuration(in)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", in, err)
		}
		if got != want {
			t.Fatalf("%s: expected %s, got %s", in, want, got)
		}
	}
	for _, bad := range []string{"", "d", "0d", "-1h", "5y", "xh"} {
		if _, err := ParseIntervalDuration(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestFormatInterval(t *testing.T) {
	cases := map[time.Duration]string{
		24 * time.Hour:   "1d",
		4 * time.Hour:    "4h",
		15 * time.Minute: "15m",
		30 * time.Second: "30s",
	}
	for in, want := range cases {
		if got := FormatInterval(in); got != want {
			t.Fatalf("%s: expected %s, got %s", in, want, got)
		}
	}
}
