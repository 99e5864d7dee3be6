package model

// Label 情绪标签，顺序与 FinBERT 输出一致
type Label string

const (
	LabelPositive Label = "positive"
	LabelNegative Label = "negative"
	LabelNeutral  Label = "neutral"
)

// Labels 按模型输出下标排列: 0 = positive, 1 = negative, 2 = neutral
var Labels = [3]Label{LabelPositive, LabelNegative, LabelNeutral}

// SentimentSignal 一个 tick 内新闻窗口的整体情绪
type SentimentSignal struct {
	Probability float64
	Label       Label
}

// NeutralSignal 没有新闻时的约定结果
func NeutralSignal() SentimentSignal {
	return SentimentSignal{Probability: 0, Label: LabelNeutral}
}

// GateResult 情绪闸门的判定
type GateResult string

const (
	GateNone GateResult = "none"
	GateBuy  GateResult = "buy_signal"
	GateSell GateResult = "sell_signal"
)
