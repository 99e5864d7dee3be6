package strategy

import (
	"errors"
	"fmt"
	"sync"

	"sentiment-algo-trader/internal/model"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrStaleDecision 提交的决策基于的持仓状态已经变化
var ErrStaleDecision = errors.New("decision was made against a different position state")

// DecisionInput 单个 tick 交给决策引擎的全部输入
type DecisionInput struct {
	LastPrice float64
	ATR       float64
	Sizing    model.SizingResult
	Gate      model.GateResult
}

// DecisionEngine 持仓状态机: flat / long / short。
// 状态只由本结构体修改，且只在经纪商确认之后 (Commit / MarkFlat)。
type DecisionEngine struct {
	mu     sync.RWMutex
	state  model.PositionState
	logger *zap.Logger
}

// NewDecisionEngine 初始状态为空仓
func NewDecisionEngine(logger *zap.Logger) *DecisionEngine {
	return &DecisionEngine{
		state:  model.StateFlat,
		logger: logger.With(zap.String("component", "decision_engine")),
	}
}

// State 当前持仓状态
func (e *DecisionEngine) State() model.PositionState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Restore 启动时从持久化存储恢复状态，只应在第一个 tick 之前调用
func (e *DecisionEngine) Restore(state model.PositionState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if state == "" {
		state = model.StateFlat
	}
	if state != e.state {
		e.logger.Info("Position state restored", zap.String("State", state.String()))
	}
	e.state = state
}

// canTrade 交易前提: 至少一股，且现金足够买入一股
func canTrade(in DecisionInput) bool {
	return in.Sizing.Quantity > 0 && in.Sizing.Cash.GreaterThan(decimal.NewFromFloat(in.LastPrice))
}

// Decide 查表得出本 tick 的动作，不修改状态
func (e *DecisionEngine) Decide(in DecisionInput) model.Decision {
	current := e.State()

	d := model.Decision{
		Action:     model.ActionNone,
		PriorState: current,
		NextState:  current,
		LastPrice:  in.LastPrice,
		ATR:        in.ATR,
		Quantity:   in.Sizing.Quantity,
		Cash:       in.Sizing.Cash,
	}

	if in.Gate == model.GateNone {
		d.Reason = "sentiment below threshold"
		return d
	}
	if !canTrade(in) {
		d.Reason = "insufficient cash or zero quantity"
		return d
	}

	switch in.Gate {
	case model.GateBuy:
		d.NextState = model.StateLong
		switch current {
		case model.StateShort:
			d.Action = model.ActionCloseThenOpenLong
			d.Reason = "positive sentiment: flatten short, open long"
		case model.StateLong:
			// 已持多仓时重复信号会再次下单，而不是跳过
			d.Action = model.ActionOpenLong
			d.Reason = "positive sentiment: re-enter long"
		default:
			d.Action = model.ActionOpenLong
			d.Reason = "positive sentiment: open long"
		}
	case model.GateSell:
		d.NextState = model.StateShort
		switch current {
		case model.StateLong:
			d.Action = model.ActionCloseThenOpenShort
			d.Reason = "negative sentiment: flatten long, open short"
		case model.StateShort:
			d.Action = model.ActionOpenShort
			d.Reason = "negative sentiment: re-enter short"
		default:
			d.Action = model.ActionOpenShort
			d.Reason = "negative sentiment: open short"
		}
	default:
		d.Reason = fmt.Sprintf("unknown gate result %q", in.Gate)
	}

	return d
}

// Commit 入场订单被经纪商受理后应用状态转换
func (e *DecisionEngine) Commit(d model.Decision) error {
	if !d.IsTrade() {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != d.PriorState {
		return fmt.Errorf("%w: decided from %s, engine is %s", ErrStaleDecision, d.PriorState, e.state)
	}

	if d.PriorState == d.NextState {
		e.logger.Warn("Re-entry in existing direction",
			zap.String("State", e.state.String()),
			zap.String("Action", string(d.Action)))
	} else {
		e.logger.Info(
			"!!! Position Transition !!!",
			zap.String("From", d.PriorState.String()),
			zap.String("To", d.NextState.String()),
			zap.String("Action", string(d.Action)),
			zap.Float64("LastPrice", d.LastPrice),
			zap.Float64("ATR", d.ATR),
		)
	}
	e.state = d.NextState
	return nil
}

// MarkFlat 平仓成功但后续入场失败时调用，使记录状态与经纪商一致
func (e *DecisionEngine) MarkFlat() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != model.StateFlat {
		e.logger.Info("Position flattened",
			zap.String("From", e.state.String()))
	}
	e.state = model.StateFlat
}
