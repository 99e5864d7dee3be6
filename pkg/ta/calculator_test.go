package ta

import (
	"math"
	"testing"
	"time"

	"sentiment-algo-trader/internal/model"
)

func makeBars(ohlc [][4]float64) []model.Bar {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]model.Bar, len(ohlc))
	for i, v := range ohlc {
		bars[i] = model.Bar{
			Timestamp: start.AddDate(0, 0, i),
			Open:      v[0],
			High:      v[1],
			Low:       v[2],
			Close:     v[3],
		}
	}
	return bars
}

func TestComputeATRUnavailableWhenWindowNotFull(t *testing.T) {
	bars := makeBars([][4]float64{
		{10, 11, 9, 10},
		{10, 12, 9, 11},
	})
	for _, window := range []int{3, 14} {
		if _, ok := ComputeATR(bars, window); ok {
			t.Fatalf("expected ATR unavailable for %d bars and window %d", len(bars), window)
		}
	}
	if _, ok := ComputeATR(nil, 2); ok {
		t.Fatalf("expected ATR unavailable for empty input")
	}
}

func TestComputeATRRejectsWindowBelowTwo(t *testing.T) {
	bars := makeBars([][4]float64{
		{10, 11, 9, 10},
		{10, 12, 9, 11},
		{11, 12, 10, 11},
	})
	for _, window := range []int{-1, 0, 1} {
		if _, ok := ComputeATR(bars, window); ok {
			t.Fatalf("expected window %d to be rejected", window)
		}
	}
}

func TestComputeATRSimpleAverageOfTrailingTrueRanges(t *testing.T) {
	bars := makeBars([][4]float64{
		{10, 11, 9, 10},  // TR = 2 (first bar, high-low)
		{10, 12, 9, 11},  // TR = max(3, 2, 1) = 3
		{11, 15, 11, 14}, // TR = max(4, 4, 0) = 4
		{14, 14, 10, 12}, // TR = max(4, 0, 4) = 4
		{12, 13, 8, 9},   // TR = max(5, 1, 4) = 5
	})

	cases := []struct {
		window int
		want   float64
	}{
		{window: 2, want: (4 + 5) / 2.0},
		{window: 3, want: (4 + 4 + 5) / 3.0},
		{window: 5, want: (2 + 3 + 4 + 4 + 5) / 5.0},
	}
	for _, tc := range cases {
		got, ok := ComputeATR(bars, tc.window)
		if !ok {
			t.Fatalf("window %d: expected ATR to be available", tc.window)
		}
		if math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("window %d: expected ATR %.6f, got %.6f", tc.window, tc.want, got)
		}
	}
}

func TestComputeATRGapUsesPreviousClose(t *testing.T) {
	// 跳空: 前收 10，当日区间 [14, 15]，真实波幅应为 |15 - 10| = 5
	bars := makeBars([][4]float64{
		{10, 10.5, 9.5, 10},
		{14, 15, 14, 14.5},
	})
	got, ok := ComputeATR(bars, 2)
	if !ok {
		t.Fatalf("expected ATR to be available")
	}
	want := (1.0 + 5.0) / 2
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected %.4f, got %.4f", want, got)
	}
}

func TestComputeATRIsNonNegativeAndDeterministic(t *testing.T) {
	ohlc := make([][4]float64, 0, 40)
	price := 100.0
	for i := 0; i < 40; i++ {
		step := float64((i*7)%5) - 2
		price += step
		ohlc = append(ohlc, [4]float64{price, price + 1.5, price - 1.25, price + step/2})
	}
	bars := makeBars(ohlc)

	first, ok := ComputeATR(bars, 14)
	if !ok {
		t.Fatalf("expected ATR to be available")
	}
	if first < 0 {
		t.Fatalf("ATR must be non-negative, got %f", first)
	}
	second, _ := ComputeATR(bars, 14)
	if first != second {
		t.Fatalf("ATR must be deterministic: %f != %f", first, second)
	}
}
