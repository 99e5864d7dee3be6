package api

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sentiment-algo-trader/internal/model"
	"sentiment-algo-trader/internal/service"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"go.uber.org/zap"
)

// 单次新闻查询的上限
const newsLimit = 50

type barsClient interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

type newsClient interface {
	GetNews(req marketdata.GetNewsRequest) ([]marketdata.News, error)
}

type clockClient interface {
	GetClock() (*alpaca.Clock, error)
}

// NewAlpacaDataClient 行情/新闻共用的 Alpaca 数据客户端
func NewAlpacaDataClient(apiKey, apiSecret string) *marketdata.Client {
	return marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	})
}

// ToAlpacaTimeFrame 将 "1d" / "4h" / "15m" / "1w" 转为 Alpaca 的 TimeFrame
func ToAlpacaTimeFrame(interval string) (marketdata.TimeFrame, error) {
	d, err := service.ParseIntervalDuration(interval)
	if err != nil {
		return marketdata.TimeFrame{}, err
	}

	n, unit := interval[:len(interval)-1], interval[len(interval)-1:]
	switch unit {
	case "m":
		return marketdata.NewTimeFrame(int(d/time.Minute), marketdata.Min), nil
	case "h":
		return marketdata.NewTimeFrame(int(d/time.Hour), marketdata.Hour), nil
	case "d":
		return marketdata.NewTimeFrame(int(d/(24*time.Hour)), marketdata.Day), nil
	case "w":
		return marketdata.NewTimeFrame(int(d/(7*24*time.Hour)), marketdata.Week), nil
	default:
		return marketdata.TimeFrame{}, fmt.Errorf("unsupported alpaca timeframe: %s%s", n, unit)
	}
}

// AlpacaMarketData 通过 Alpaca 历史 K 线接口实现 MarketDataProvider
type AlpacaMarketData struct {
	client barsClient
	clock  Clock
	feed   marketdata.Feed
	logger *zap.Logger
}

func NewAlpacaMarketData(client barsClient, clock Clock, logger *zap.Logger) *AlpacaMarketData {
	return &AlpacaMarketData{
		client: client,
		clock:  clock,
		feed:   marketdata.IEX,
		logger: logger.With(zap.String("component", "alpaca_bars")),
	}
}

func (a *AlpacaMarketData) GetBars(ctx context.Context, symbol string, lookback int, timeframe string) ([]model.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrDataUnavailable, err)
	}
	if lookback <= 0 {
		return nil, fmt.Errorf("%w: lookback must be positive", model.ErrDataUnavailable)
	}

	tf, err := ToAlpacaTimeFrame(timeframe)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrDataUnavailable, err)
	}
	interval, _ := service.ParseIntervalDuration(timeframe)

	// 窗口放大一倍，覆盖周末和节假日
	end := a.clock.Now()
	start := end.Add(-time.Duration(lookback) * interval * 2)

	raw, err := a.client.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: tf,
		Start:     start,
		End:       end,
		Feed:      a.feed,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: get bars for %s: %w", model.ErrDataUnavailable, symbol, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: no bars returned for %s", model.ErrDataUnavailable, symbol)
	}

	bars := make([]model.Bar, 0, len(raw))
	for _, b := range raw {
		bars = append(bars, model.Bar{
			Timestamp: b.Timestamp,
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    float64(b.Volume),
		})
	}
	bars = trimBars(bars, lookback)

	a.logger.Debug("Fetched bars",
		zap.String("Symbol", symbol),
		zap.String("TimeFrame", timeframe),
		zap.Int("Count", len(bars)))
	return bars, nil
}

// trimBars 保留最近的 n 根
func trimBars(bars []model.Bar, n int) []model.Bar {
	if len(bars) > n {
		return bars[len(bars)-n:]
	}
	return bars
}

// AlpacaNews 通过 Alpaca 新闻接口实现 NewsProvider
type AlpacaNews struct {
	client newsClient
	logger *zap.Logger
}

func NewAlpacaNews(client newsClient, logger *zap.Logger) *AlpacaNews {
	return &AlpacaNews{
		client: client,
		logger: logger.With(zap.String("component", "alpaca_news")),
	}
}

func (n *AlpacaNews) GetHeadlines(ctx context.Context, symbol string, start, end time.Time) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrSentimentUnavailable, err)
	}

	news, err := n.client.GetNews(marketdata.GetNewsRequest{
		Symbols:    []string{symbol},
		Start:      start,
		End:        end,
		TotalLimit: newsLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: get news for %s: %w", model.ErrSentimentUnavailable, symbol, err)
	}

	headlines := make([]string, 0, len(news))
	for _, item := range news {
		if h := strings.TrimSpace(item.Headline); h != "" {
			headlines = append(headlines, h)
		}
	}

	n.logger.Debug("Fetched news",
		zap.String("Symbol", symbol),
		zap.Time("Start", start),
		zap.Time("End", end),
		zap.Int("Headlines", len(headlines)))
	return headlines, nil
}

// AlpacaClock 以经纪商的市场时钟为准，请求失败时退回本地时间
type AlpacaClock struct {
	client clockClient
	logger *zap.Logger
}

func NewAlpacaClock(client clockClient, logger *zap.Logger) *AlpacaClock {
	return &AlpacaClock{client: client, logger: logger}
}

func (c *AlpacaClock) Now() time.Time {
	clock, err := c.client.GetClock()
	if err != nil || clock == nil || clock.Timestamp.IsZero() {
		c.logger.Warn("Market clock unavailable, using local time", zap.Error(err))
		return time.Now()
	}
	return clock.Timestamp
}
