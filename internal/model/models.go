package model

import "time"

// Bar 单根 K 线 (OHLCV)，按时间升序排列，获取后不再修改
type Bar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// LastClose 返回序列中最新一根 K 线的收盘价
func LastClose(bars []Bar) (float64, bool) {
	if len(bars) == 0 {
		return 0, false
	}
	return bars[len(bars)-1].Close, true
}
