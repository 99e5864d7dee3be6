package sentiment

import (
	"context"
	"math"

	"sentiment-algo-trader/internal/model"
)

// Classifier 把一组新闻标题归纳为一个情绪信号。
// 空输入返回 {0, neutral}，不是错误。
type Classifier interface {
	Classify(ctx context.Context, headlines []string) (model.SentimentSignal, error)
}

// Logits 单条标题在三个标签上的得分，下标顺序同 model.Labels
type Logits [3]float64

// AggregateLogits 将所有标题的 logits 逐标签求和后做 softmax，取最大者。
// 概率相同时取靠前的标签 (positive > negative > neutral)。
func AggregateLogits(logits []Logits) model.SentimentSignal {
	if len(logits) == 0 {
		return model.NeutralSignal()
	}

	var sum Logits
	for _, l := range logits {
		for i := range sum {
			sum[i] += l[i]
		}
	}

	probs := softmax(sum)
	best := 0
	for i := 1; i < len(probs); i++ {
		if probs[i] > probs[best] {
			best = i
		}
	}

	return model.SentimentSignal{
		Probability: probs[best],
		Label:       model.Labels[best],
	}
}

func softmax(in Logits) Logits {
	maxVal := in[0]
	for _, v := range in[1:] {
		if v > maxVal {
			maxVal = v
		}
	}

	var out Logits
	var total float64
	for i, v := range in {
		out[i] = math.Exp(v - maxVal)
		total += out[i]
	}
	for i := range out {
		out[i] /= total
	}
	return out
}

// labelIndex 标签在 model.Labels 中的下标
func labelIndex(label string) (int, bool) {
	for i, l := range model.Labels {
		if string(l) == label {
			return i, true
		}
	}
	return 0, false
}
