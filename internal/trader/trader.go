package trader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sentiment-algo-trader/internal/api"
	"sentiment-algo-trader/internal/executor"
	"sentiment-algo-trader/internal/model"
	"sentiment-algo-trader/internal/sentiment"
	"sentiment-algo-trader/internal/storage"
	"sentiment-algo-trader/internal/strategy"
	"sentiment-algo-trader/pkg/ta"

	"go.uber.org/zap"
)

// Config 构造时传入的全部策略参数
type Config struct {
	Symbol             string
	CashAtRisk         float64
	SentimentThreshold float64
	ATRWindow          int
	BarTimeFrame       string
	BarLookback        int
	NewsLookbackDays   int
	Interval           time.Duration
}

// Deps 进程级的协作对象，由 main 在初始化阶段创建
type Deps struct {
	MarketData api.MarketDataProvider
	News       api.NewsProvider
	Classifier sentiment.Classifier
	Broker     executor.Executor
	Clock      api.Clock
	Store      storage.PositionStore
}

// Outcome 单个 tick 的结果分类
type Outcome string

const (
	OutcomeSkipped Outcome = "skipped" // 没有交易信号或不满足下单前提
	OutcomeAborted Outcome = "aborted" // 行情/情绪不可用，状态不变
	OutcomeTraded  Outcome = "traded"
	OutcomeFailed  Outcome = "failed" // 订单非法或经纪商拒绝
)

// TickResult 单个 tick 的完整记录
type TickResult struct {
	Outcome   Outcome
	StartedAt time.Time
	LastPrice float64
	ATR       float64
	Headlines int
	Signal    model.SentimentSignal
	Gate      model.GateResult
	Decision  model.Decision
	Order     *model.OrderSpec
	Handle    *model.OrderHandle
	Err       error
}

type Trader struct {
	cfg    Config
	deps   Deps
	engine *strategy.DecisionEngine
	logger *zap.Logger
}

func New(cfg Config, deps Deps, logger *zap.Logger) *Trader {
	if deps.Clock == nil {
		deps.Clock = api.SystemClock{}
	}
	if deps.Store == nil {
		deps.Store = storage.NewMemoryStore()
	}
	logger = logger.With(zap.String("Symbol", cfg.Symbol))
	return &Trader{
		cfg:    cfg,
		deps:   deps,
		engine: strategy.NewDecisionEngine(logger),
		logger: logger,
	}
}

// Restore 在第一个 tick 之前从存储恢复持仓状态
func (t *Trader) Restore(ctx context.Context) error {
	state, err := t.deps.Store.Load(ctx, t.cfg.Symbol)
	if err != nil {
		return fmt.Errorf("restore position state: %w", err)
	}
	t.engine.Restore(state)
	return nil
}

// State 当前跟踪的持仓状态
func (t *Trader) State() model.PositionState {
	return t.engine.State()
}

// Run 立即执行一次 tick，之后按 Interval 周期执行，直到 ctx 结束。
// tick 串行执行，不会重叠。
func (t *Trader) Run(ctx context.Context) error {
	if t.cfg.Interval <= 0 {
		return fmt.Errorf("invalid tick interval %v", t.cfg.Interval)
	}

	t.logger.Info("Trader started",
		zap.Duration("Interval", t.cfg.Interval),
		zap.String("State", t.engine.State().String()))

	ticker := time.NewTicker(t.cfg.Interval)
	defer ticker.Stop()

	t.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			t.logger.Info("Trader stopped", zap.String("State", t.engine.State().String()))
			return nil
		case <-ticker.C:
			t.Tick(ctx)
		}
	}
}

// Tick 执行一次完整的决策流程，任何协作方的失败都转为 TickResult 返回
func (t *Trader) Tick(ctx context.Context) TickResult {
	res := t.tick(ctx)
	t.logResult(res)
	return res
}

func (t *Trader) tick(ctx context.Context) TickResult {
	now := t.deps.Clock.Now()
	res := TickResult{StartedAt: now, Gate: model.GateNone}

	bars, err := t.deps.MarketData.GetBars(ctx, t.cfg.Symbol, t.cfg.BarLookback, t.cfg.BarTimeFrame)
	if err != nil {
		return aborted(res, wrapSentinel(model.ErrDataUnavailable, err))
	}
	lastPrice, _ := model.LastClose(bars)
	atr, ok := ta.ComputeATR(bars, t.cfg.ATRWindow)
	if !ok {
		return aborted(res, fmt.Errorf("%w: %d bars for ATR window %d", model.ErrDataUnavailable, len(bars), t.cfg.ATRWindow))
	}
	res.LastPrice, res.ATR = lastPrice, atr

	if obs, ok := t.deps.Broker.(executor.PriceObserver); ok {
		obs.ObserveBar(t.cfg.Symbol, bars[len(bars)-1])
	}

	cash, err := t.deps.Broker.GetCash(ctx)
	if err != nil {
		return aborted(res, wrapSentinel(model.ErrDataUnavailable, fmt.Errorf("get cash: %w", err)))
	}
	sizing := strategy.SizePosition(cash, lastPrice, t.cfg.CashAtRisk)

	start := now.AddDate(0, 0, -t.cfg.NewsLookbackDays)
	headlines, err := t.deps.News.GetHeadlines(ctx, t.cfg.Symbol, start, now)
	if err != nil {
		return aborted(res, wrapSentinel(model.ErrSentimentUnavailable, err))
	}
	res.Headlines = len(headlines)

	signal, err := t.deps.Classifier.Classify(ctx, headlines)
	if err != nil {
		return aborted(res, wrapSentinel(model.ErrSentimentUnavailable, err))
	}
	res.Signal = signal
	res.Gate = strategy.PassesGate(&signal, t.cfg.SentimentThreshold)

	d := t.engine.Decide(strategy.DecisionInput{
		LastPrice: lastPrice,
		ATR:       atr,
		Sizing:    sizing,
		Gate:      res.Gate,
	})
	res.Decision = d
	if !d.IsTrade() {
		res.Outcome = OutcomeSkipped
		return res
	}

	// 先构造订单，非法时不会触发平仓
	order, err := strategy.BuildBracketOrder(d, d.LastPrice, d.ATR, d.Quantity, t.cfg.Symbol)
	if err != nil {
		return failed(res, err)
	}
	res.Order = &order

	closed := false
	if d.Action.ClosesFirst() {
		if err := t.deps.Broker.CloseAllPositions(ctx, t.cfg.Symbol); err != nil {
			return failed(res, wrapSentinel(model.ErrOrderSubmission, err))
		}
		closed = true
	}

	handle, err := t.deps.Broker.SubmitBracketOrder(ctx, order)
	if err != nil {
		if closed {
			// 旧仓位已经平掉，状态以经纪商为准
			t.engine.MarkFlat()
			t.persist(ctx)
		}
		return failed(res, wrapSentinel(model.ErrOrderSubmission, err))
	}
	res.Handle = &handle

	if err := t.engine.Commit(d); err != nil {
		return failed(res, err)
	}
	t.persist(ctx)

	res.Outcome = OutcomeTraded
	return res
}

// persist 保存失败只记录日志，不回滚状态
func (t *Trader) persist(ctx context.Context) {
	state := t.engine.State()
	if err := t.deps.Store.Save(ctx, t.cfg.Symbol, state); err != nil {
		t.logger.Error("Failed to persist position state",
			zap.String("State", state.String()),
			zap.Error(err))
	}
}

func (t *Trader) logResult(res TickResult) {
	switch res.Outcome {
	case OutcomeSkipped:
		t.logger.Info("Tick complete, no trade",
			zap.Float64("LastPrice", res.LastPrice),
			zap.Float64("ATR", res.ATR),
			zap.Int("Headlines", res.Headlines),
			zap.String("Label", string(res.Signal.Label)),
			zap.Float64("Probability", res.Signal.Probability),
			zap.String("Reason", res.Decision.Reason))
	case OutcomeAborted:
		t.logger.Warn("Tick aborted", zap.Error(res.Err))
	case OutcomeTraded:
		t.logger.Info("Tick complete, order submitted",
			zap.String("Decision", res.Decision.String()),
			zap.String("Order", res.Order.String()),
			zap.String("OrderID", res.Handle.OrderID))
	case OutcomeFailed:
		t.logger.Error("Tick failed",
			zap.String("Decision", res.Decision.String()),
			zap.String("State", t.engine.State().String()),
			zap.Error(res.Err))
	default:
		t.logger.Error("Unknown tick outcome", zap.String("Outcome", string(res.Outcome)))
	}
}

func aborted(res TickResult, err error) TickResult {
	res.Outcome = OutcomeAborted
	res.Err = err
	return res
}

func failed(res TickResult, err error) TickResult {
	res.Outcome = OutcomeFailed
	res.Err = err
	return res
}

// wrapSentinel 保证错误链上带有对应的分类
func wrapSentinel(sentinel, err error) error {
	if errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
