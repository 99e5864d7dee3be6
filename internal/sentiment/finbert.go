package sentiment

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"sentiment-algo-trader/internal/model"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// 概率为 0 时取对数的下限
const minScore = 1e-12

// FinBERTConfig 远程推理服务 (HuggingFace Inference API 兼容) 的连接参数
type FinBERTConfig struct {
	Endpoint  string
	APIToken  string
	Timeout   time.Duration
	BatchSize int
}

type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type inferenceError struct {
	Error         string  `json:"error"`
	EstimatedTime float64 `json:"estimated_time"`
}

// FinBERTClassifier 调用远程 FinBERT 模型，对每条标题取回三个标签的概率
type FinBERTClassifier struct {
	client    *resty.Client
	endpoint  string
	batchSize int
	logger    *zap.Logger
}

func NewFinBERTClassifier(cfg FinBERTConfig, logger *zap.Logger) *FinBERTClassifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 32
	}

	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.APIToken != "" {
		client.SetAuthToken(cfg.APIToken)
	}

	return &FinBERTClassifier{
		client:    client,
		endpoint:  cfg.Endpoint,
		batchSize: batch,
		logger:    logger.With(zap.String("component", "finbert")),
	}
}

// Classify 分批请求推理接口，再把概率取对数后聚合。
// softmax 对每条标题的常数平移不敏感，所以对数概率求和与原始 logits 求和等价。
func (c *FinBERTClassifier) Classify(ctx context.Context, headlines []string) (model.SentimentSignal, error) {
	if len(headlines) == 0 {
		return model.NeutralSignal(), nil
	}

	logits := make([]Logits, 0, len(headlines))
	for start := 0; start < len(headlines); start += c.batchSize {
		end := start + c.batchSize
		if end > len(headlines) {
			end = len(headlines)
		}

		batch, err := c.infer(ctx, headlines[start:end])
		if err != nil {
			return model.SentimentSignal{}, fmt.Errorf("%w: %w", model.ErrSentimentUnavailable, err)
		}
		logits = append(logits, batch...)
	}

	signal := AggregateLogits(logits)
	c.logger.Debug("Classified headlines",
		zap.Int("Headlines", len(headlines)),
		zap.String("Label", string(signal.Label)),
		zap.Float64("Probability", signal.Probability))
	return signal, nil
}

func (c *FinBERTClassifier) infer(ctx context.Context, headlines []string) ([]Logits, error) {
	var result [][]labelScore
	var apiErr inferenceError

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(map[string]any{"inputs": headlines}).
		SetResult(&result).
		SetError(&apiErr).
		Post(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("finbert request failed: %w", err)
	}
	if resp.IsError() {
		if apiErr.Error != "" {
			return nil, fmt.Errorf("finbert endpoint returned %s: %s", resp.Status(), apiErr.Error)
		}
		return nil, fmt.Errorf("finbert endpoint returned %s", resp.Status())
	}
	if len(result) != len(headlines) {
		return nil, fmt.Errorf("finbert returned %d results for %d headlines", len(result), len(headlines))
	}

	out := make([]Logits, len(result))
	for i, scores := range result {
		l, err := scoresToLogits(scores)
		if err != nil {
			return nil, err
		}
		out[i] = l
	}
	return out, nil
}

func scoresToLogits(scores []labelScore) (Logits, error) {
	var l Logits
	for i := range l {
		l[i] = math.Log(minScore)
	}
	for _, s := range scores {
		idx, ok := labelIndex(strings.ToLower(s.Label))
		if !ok {
			return Logits{}, fmt.Errorf("unexpected finbert label %q", s.Label)
		}
		l[idx] = math.Log(math.Max(s.Score, minScore))
	}
	return l, nil
}
