package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"sentiment-algo-trader/internal/model"
	"sentiment-algo-trader/internal/service"
	"sentiment-algo-trader/internal/storage"
	"sentiment-algo-trader/internal/trader"

	"go.uber.org/zap"
)

func dryRunConfig(t *testing.T) *service.Config {
	t.Helper()
	cfg, err := service.LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	cfg.Broker.APIKey = "key"
	cfg.Broker.APISecret = "secret"
	cfg.MarketData.Source = "yahoo"
	cfg.Sentiment.Classifier = "lexicon"
	cfg.State.Store = "file"
	cfg.State.Path = filepath.Join(t.TempDir(), "position.yaml")
	return cfg
}

func TestNewRuntimeDryRunRestoresState(t *testing.T) {
	cfg := dryRunConfig(t)
	store, _ := storage.NewFileStore(cfg.State.Path)
	if err := store.Save(context.Background(), cfg.Trader.Symbol, model.StateShort); err != nil {
		t.Fatal(err)
	}

	rt, err := newRuntime(context.Background(), cfg, true, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer rt.Close()

	if rt.simulator == nil {
		t.Fatalf("dry run should use the simulator")
	}
	if rt.trader.State() != model.StateShort {
		t.Fatalf("expected restored short, got %s", rt.trader.State())
	}
}

func TestNewRuntimeErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(cfg *service.Config)
		dryRun bool
		want   string
	}{
		{"live without keys", func(cfg *service.Config) { cfg.Broker.APIKey = "" }, false, service.EnvAlpacaKey},
		{"unknown classifier", func(cfg *service.Config) { cfg.Sentiment.Classifier = "gpt" }, true, "classifier"},
		{"unknown market data", func(cfg *service.Config) { cfg.MarketData.Source = "bloomberg" }, true, "market data"},
		{"unknown news", func(cfg *service.Config) { cfg.News.Source = "twitter" }, true, "news"},
		{"unknown store", func(cfg *service.Config) { cfg.State.Store = "redis" }, true, "state store"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := dryRunConfig(t)
			tc.mutate(cfg)
			_, err := newRuntime(context.Background(), cfg, tc.dryRun, zap.NewNop())
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestPrintResult(t *testing.T) {
	cmd := newRootCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)

	printResult(cmd, trader.TickResult{
		Outcome:   trader.OutcomeSkipped,
		LastPrice: 100,
		ATR:       2,
		Signal:    model.SentimentSignal{Probability: 0.95, Label: model.LabelPositive},
		Gate:      model.GateNone,
		Decision:  model.Decision{Action: model.ActionNone, PriorState: model.StateFlat, NextState: model.StateFlat},
	})
	out := buf.String()
	for _, want := range []string{"Outcome:   skipped", "positive 0.9500", "-> none"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}
