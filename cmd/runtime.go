package main

import (
	"context"
	"errors"
	"fmt"

	"sentiment-algo-trader/internal/api"
	"sentiment-algo-trader/internal/executor"
	"sentiment-algo-trader/internal/sentiment"
	"sentiment-algo-trader/internal/service"
	"sentiment-algo-trader/internal/storage"
	"sentiment-algo-trader/internal/trader"

	"go.uber.org/zap"
)

// runtime 持有进程级对象，Close 时按创建的逆序释放
type runtime struct {
	trader    *trader.Trader
	simulator *executor.SimulatorExecutor
	logger    *zap.Logger
	closers   []func() error
}

func newRuntime(ctx context.Context, cfg *service.Config, dryRun bool, logger *zap.Logger) (*runtime, error) {
	rt := &runtime{logger: logger}
	ok := false
	defer func() {
		if !ok {
			rt.Close()
		}
	}()

	useSimulator := dryRun || cfg.Broker.Name == "simulator"
	needsAlpaca := !useSimulator || cfg.MarketData.Source == "alpaca" || cfg.News.Source == "alpaca" || cfg.News.Source == "stream"
	if needsAlpaca && (cfg.Broker.APIKey == "" || cfg.Broker.APISecret == "") {
		return nil, fmt.Errorf("%s and %s must be set", service.EnvAlpacaKey, service.EnvAlpacaSecret)
	}

	// 1. 经纪商与时钟
	var broker executor.Executor
	var clock api.Clock = api.SystemClock{}
	if useSimulator {
		rt.simulator = executor.NewSimulatorExecutor(executor.SimulatorConfig{
			InitialCapital: cfg.Simulator.InitialCapital,
			FeeRate:        cfg.Simulator.FeeRate,
		}, logger)
		broker = rt.simulator
		logger.Info("Dry run: orders go to the simulator",
			zap.Float64("InitialCapital", cfg.Simulator.InitialCapital))
	} else {
		client := executor.NewAlpacaTradingClient(executor.AlpacaConfig{
			APIKey:    cfg.Broker.APIKey,
			APISecret: cfg.Broker.APISecret,
			BaseURL:   cfg.Broker.BaseURL,
		})
		broker = executor.NewAlpacaExecutor(client, logger)
		clock = api.NewAlpacaClock(client, logger)
	}

	// 2. 行情
	dataClient := api.NewAlpacaDataClient(cfg.Broker.APIKey, cfg.Broker.APISecret)
	var marketData api.MarketDataProvider
	switch cfg.MarketData.Source {
	case "alpaca":
		marketData = api.NewAlpacaMarketData(dataClient, clock, logger)
	case "yahoo":
		marketData = api.NewYahooMarketData(clock, logger)
	default:
		return nil, fmt.Errorf("unknown market data source %q", cfg.MarketData.Source)
	}

	// 3. 新闻
	var news api.NewsProvider
	switch cfg.News.Source {
	case "alpaca":
		news = api.NewAlpacaNews(dataClient, logger)
	case "stream":
		stream := api.NewNewsStream(api.NewsStreamConfig{
			URL:         cfg.News.StreamURL,
			APIKey:      cfg.Broker.APIKey,
			APISecret:   cfg.Broker.APISecret,
			Symbols:     []string{cfg.Trader.Symbol},
			MaxBuffered: cfg.News.MaxBuffered,
		}, logger)
		stream.Start(ctx)
		rt.closers = append(rt.closers, stream.Close)
		news = stream
	default:
		return nil, fmt.Errorf("unknown news source %q", cfg.News.Source)
	}

	// 4. 情绪分类
	var classifier sentiment.Classifier
	switch cfg.Sentiment.Classifier {
	case "finbert":
		classifier = sentiment.NewFinBERTClassifier(sentiment.FinBERTConfig{
			Endpoint: cfg.Sentiment.Endpoint,
			APIToken: cfg.Sentiment.APIToken,
			Timeout:  cfg.SentimentTimeout(),
		}, logger)
	case "lexicon":
		classifier = sentiment.NewLexiconClassifier()
	default:
		return nil, fmt.Errorf("unknown sentiment classifier %q", cfg.Sentiment.Classifier)
	}

	// 5. 状态存储
	store, err := storage.New(cfg.State.Store, cfg.State.Path, cfg.State.DSN)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, store.Close)

	t := cfg.Trader
	rt.trader = trader.New(trader.Config{
		Symbol:             t.Symbol,
		CashAtRisk:         t.CashAtRisk,
		SentimentThreshold: t.SentimentThreshold,
		ATRWindow:          t.ATRWindow,
		BarTimeFrame:       t.BarTimeFrame,
		BarLookback:        t.BarLookback,
		NewsLookbackDays:   t.NewsLookbackDays,
		Interval:           cfg.SleepInterval(),
	}, trader.Deps{
		MarketData: marketData,
		News:       news,
		Classifier: classifier,
		Broker:     broker,
		Clock:      clock,
		Store:      store,
	}, logger)

	if err := rt.trader.Restore(ctx); err != nil {
		return nil, err
	}

	logger.Info("Runtime initialized",
		zap.String("Symbol", t.Symbol),
		zap.String("MarketData", cfg.MarketData.Source),
		zap.String("News", cfg.News.Source),
		zap.String("Classifier", cfg.Sentiment.Classifier),
		zap.String("Store", cfg.State.Store),
		zap.String("State", rt.trader.State().String()))
	ok = true
	return rt, nil
}

// Close 释放后台连接和存储
func (rt *runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

// summarize 模拟盘退出时输出成交汇总
func (rt *runtime) summarize() {
	if rt.simulator == nil {
		return
	}
	history := rt.simulator.GetTradeHistory()
	var realized, fees float64
	for _, tr := range history {
		realized += tr.RealizedPnL
		fees += tr.Fee
	}
	rt.logger.Info("Simulator summary",
		zap.Int("ClosedTrades", len(history)),
		zap.Float64("RealizedPnL", realized),
		zap.Float64("Fees", fees),
		zap.Float64("Equity", rt.simulator.Equity()),
		zap.Float64("MaxEquity", rt.simulator.GetMaxEquity()))
}
