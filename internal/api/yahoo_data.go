package api

import (
	"context"
	"fmt"
	"time"

	"sentiment-algo-trader/internal/model"
	"sentiment-algo-trader/internal/service"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"go.uber.org/zap"
)

type chartIterator interface {
	Next() bool
	Bar() *finance.ChartBar
	Err() error
}

// YahooMarketData 通过 Yahoo Finance 图表接口取 K 线，覆盖 LSE 等 Alpaca 不支持的市场
type YahooMarketData struct {
	clock  Clock
	fetch  func(*chart.Params) chartIterator
	logger *zap.Logger
}

func NewYahooMarketData(clock Clock, logger *zap.Logger) *YahooMarketData {
	return &YahooMarketData{
		clock: clock,
		fetch: func(p *chart.Params) chartIterator {
			return chart.Get(p)
		},
		logger: logger.With(zap.String("component", "yahoo_bars")),
	}
}

// ToYahooInterval 将周期字符串转为 Yahoo 支持的 interval
func ToYahooInterval(interval string) (datetime.Interval, error) {
	switch interval {
	case "1m":
		return datetime.OneMin, nil
	case "5m":
		return datetime.FiveMins, nil
	case "15m":
		return datetime.FifteenMins, nil
	case "30m":
		return datetime.ThirtyMins, nil
	case "1h", "60m":
		return datetime.OneHour, nil
	case "1d":
		return datetime.OneDay, nil
	default:
		return "", fmt.Errorf("unsupported yahoo interval: %s", interval)
	}
}

func (y *YahooMarketData) GetBars(ctx context.Context, symbol string, lookback int, timeframe string) ([]model.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrDataUnavailable, err)
	}
	if lookback <= 0 {
		return nil, fmt.Errorf("%w: lookback must be positive", model.ErrDataUnavailable)
	}

	yInterval, err := ToYahooInterval(timeframe)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrDataUnavailable, err)
	}
	interval, _ := service.ParseIntervalDuration(timeframe)

	end := y.clock.Now()
	start := end.Add(-time.Duration(lookback) * interval * 2)

	iter := y.fetch(&chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: yInterval,
	})

	bars := make([]model.Bar, 0, lookback)
	for iter.Next() {
		b := iter.Bar()
		// 停牌或数据缺失的 K 线收盘价为 0
		if b == nil || b.Close.IsZero() {
			continue
		}
		bars = append(bars, model.Bar{
			Timestamp: time.Unix(int64(b.Timestamp), 0).UTC(),
			Open:      b.Open.InexactFloat64(),
			High:      b.High.InexactFloat64(),
			Low:       b.Low.InexactFloat64(),
			Close:     b.Close.InexactFloat64(),
			Volume:    float64(b.Volume),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%w: get chart for %s: %w", model.ErrDataUnavailable, symbol, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: no bars returned for %s", model.ErrDataUnavailable, symbol)
	}

	bars = trimBars(bars, lookback)
	y.logger.Debug("Fetched bars",
		zap.String("Symbol", symbol),
		zap.String("TimeFrame", timeframe),
		zap.Int("Count", len(bars)))
	return bars, nil
}
