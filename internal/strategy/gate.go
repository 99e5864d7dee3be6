package strategy

import "sentiment-algo-trader/internal/model"

// PassesGate 判断情绪信号是否越过置信度门槛。
// 概率必须严格大于 threshold；signal 为 nil 表示情绪不可用，按中性处理。
func PassesGate(signal *model.SentimentSignal, threshold float64) model.GateResult {
	if signal == nil || signal.Probability <= threshold {
		return model.GateNone
	}

	switch signal.Label {
	case model.LabelPositive:
		return model.GateBuy
	case model.LabelNegative:
		return model.GateSell
	default:
		return model.GateNone
	}
}
