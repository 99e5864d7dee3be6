package api

import (
	"context"
	"time"

	"sentiment-algo-trader/internal/model"
)

// MarketDataProvider 返回按时间升序的最近 lookback 根 K 线
type MarketDataProvider interface {
	GetBars(ctx context.Context, symbol string, lookback int, timeframe string) ([]model.Bar, error)
}

// NewsProvider 返回 [start, end] 时间窗口内与 symbol 相关的新闻标题
type NewsProvider interface {
	GetHeadlines(ctx context.Context, symbol string, start, end time.Time) ([]string, error)
}

type Clock interface {
	Now() time.Time
}

// SystemClock 本地时间
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
