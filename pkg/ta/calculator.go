package ta

import (
	"sentiment-algo-trader/internal/model"

	"github.com/markcheno/go-talib"
)

// MinATRWindow ATR 窗口的最小长度
const MinATRWindow = 2

// TAData 从 K 线拆出的价格序列，talib 以列的形式计算
type TAData struct {
	High  []float64
	Low   []float64
	Close []float64
}

// NewTAData 将 K 线按列拆分
func NewTAData(bars []model.Bar) *TAData {
	d := &TAData{
		High:  make([]float64, len(bars)),
		Low:   make([]float64, len(bars)),
		Close: make([]float64, len(bars)),
	}
	for i, b := range bars {
		d.High[i] = b.High
		d.Low[i] = b.Low
		d.Close[i] = b.Close
	}
	return d
}

// TrueRange 逐根计算真实波幅。第一根没有前收盘价，取 high-low
func (d *TAData) TrueRange() []float64 {
	if len(d.Close) == 0 {
		return nil
	}
	tr := talib.TRange(d.High, d.Low, d.Close)
	tr[0] = d.High[0] - d.Low[0]
	return tr
}

// ComputeATR 计算最近 window 根 K 线真实波幅的简单平均。
// 窗口不足或 window < 2 时返回 ok=false。
func ComputeATR(bars []model.Bar, window int) (atr float64, ok bool) {
	if window < MinATRWindow || len(bars) < window {
		return 0, false
	}

	tr := NewTAData(bars).TrueRange()
	sma := talib.Sma(tr, window)
	atr = sma[len(sma)-1]

	// 累加误差可能产生极小的负数
	if atr < 0 {
		atr = 0
	}
	return atr, true
}
