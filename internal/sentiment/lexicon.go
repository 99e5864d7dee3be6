package sentiment

import (
	"context"
	"strings"

	"sentiment-algo-trader/internal/model"
)

// LexiconClassifier 离线词典分类器，无法访问推理服务时使用
type LexiconClassifier struct {
	positiveWords map[string]float64
	negativeWords map[string]float64
	Gain          float64 // 词权重之和放大到 logit 的倍数
	NeutralBias   float64 // 中性标签的固定 logit
}

func NewLexiconClassifier() *LexiconClassifier {
	return &LexiconClassifier{
		Gain:        2.0,
		NeutralBias: 1.0,
		positiveWords: map[string]float64{
			// Strong positive
			"surge": 1.0, "soar": 1.0, "soars": 1.0, "skyrocket": 1.0, "breakthrough": 1.0,
			"bullish": 0.95, "rally": 0.95, "rallies": 0.95, "boom": 0.95, "record": 0.9,
			"outperform": 0.9, "breakout": 0.9, "triumph": 0.9,

			// Moderate positive
			"beat": 0.85, "beats": 0.85, "exceed": 0.85, "exceeds": 0.85, "upgrade": 0.85,
			"upgraded": 0.85, "optimistic": 0.85, "profit": 0.8, "profits": 0.8, "growth": 0.8,
			"gain": 0.8, "gains": 0.8, "jump": 0.8, "jumps": 0.8, "strong": 0.8, "boost": 0.8,
			"improve": 0.75, "improves": 0.75, "rising": 0.75, "climb": 0.75, "climbs": 0.75,
			"expansion": 0.75, "upside": 0.75, "recover": 0.7, "rebound": 0.7, "dividend": 0.7,

			// Mild positive
			"positive": 0.65, "rise": 0.65, "rises": 0.65, "higher": 0.65, "increase": 0.65,
			"better": 0.65, "solid": 0.65, "confident": 0.65, "opportunity": 0.6, "promising": 0.6,
			"resilient": 0.6, "steady": 0.6, "healthy": 0.55, "buyback": 0.55, "robust": 0.5,
		},
		negativeWords: map[string]float64{
			// Strong negative
			"crash": 1.0, "plunge": 1.0, "plunges": 1.0, "collapse": 1.0, "disaster": 1.0,
			"crisis": 0.95, "bankruptcy": 0.95, "plummet": 0.95, "plummets": 0.95, "tumble": 0.95,
			"tumbles": 0.95, "rout": 0.95, "panic": 0.9, "fraud": 0.9, "worst": 0.9,

			// Moderate negative
			"bearish": 0.85, "downgrade": 0.85, "downgraded": 0.85, "warning": 0.85, "warns": 0.85,
			"lawsuit": 0.85, "probe": 0.85, "fined": 0.8, "miss": 0.8, "misses": 0.8,
			"loss": 0.8, "losses": 0.8, "slump": 0.8, "decline": 0.8, "declines": 0.8,
			"underperform": 0.8, "fail": 0.8, "struggle": 0.75, "weak": 0.75, "drop": 0.75,
			"drops": 0.75, "fall": 0.75, "falls": 0.75, "cuts": 0.7, "concern": 0.7,
			"concerns": 0.7, "layoffs": 0.7, "disappoint": 0.7, "disappoints": 0.7,

			// Mild negative
			"risk": 0.65, "risks": 0.65, "threat": 0.65, "volatile": 0.65, "uncertainty": 0.65,
			"pressure": 0.6, "lower": 0.6, "negative": 0.6, "poor": 0.6, "slowdown": 0.6,
			"dip": 0.55, "slip": 0.55, "slips": 0.55, "cautious": 0.55, "headwind": 0.5,
		},
	}
}

// Score 单条标题的 logits
func (lc *LexiconClassifier) Score(headline string) Logits {
	var pos, neg float64
	for _, word := range strings.Fields(strings.ToLower(headline)) {
		word = strings.Trim(word, ".,!?\"'()[]{}:;")

		if val, exists := lc.positiveWords[word]; exists {
			pos += val
		} else if val, exists := lc.negativeWords[word]; exists {
			neg += val
		}
	}
	return Logits{pos * lc.Gain, neg * lc.Gain, lc.NeutralBias}
}

func (lc *LexiconClassifier) Classify(ctx context.Context, headlines []string) (model.SentimentSignal, error) {
	if err := ctx.Err(); err != nil {
		return model.SentimentSignal{}, err
	}

	logits := make([]Logits, 0, len(headlines))
	for _, h := range headlines {
		logits = append(logits, lc.Score(h))
	}
	return AggregateLogits(logits), nil
}
