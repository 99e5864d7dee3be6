package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sentiment-algo-trader/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SimulatorConfig 模拟器配置
type SimulatorConfig struct {
	InitialCapital float64 // 初始资金
	FeeRate        float64 // 交易手续费率 (例如 0.0005)
}

// SimulatorPosition 模拟盘的单个持仓
type SimulatorPosition struct {
	Symbol          string
	Side            model.PositionState
	Size            int64
	AvgPrice        float64
	StopLossPrice   float64
	TakeProfitPrice float64
	UPL             float64 // 未实现盈亏

	EntryTime time.Time
	EntryFee  float64
}

// SimulatorExecutor 实现了 Executor 和 PriceObserver 接口，--dry-run 时代替真实经纪商
type SimulatorExecutor struct {
	cfg    SimulatorConfig
	logger *zap.SugaredLogger
	now    func() time.Time

	mu sync.RWMutex

	balance    float64 // 账户余额 (包含已实现盈亏)
	marginUsed float64 // 持仓占用的资金
	equity     float64 // 余额 + 浮动盈亏
	maxEquity  float64

	positions  map[string]*SimulatorPosition
	lastPrice  map[string]float64
	lastBarAt  map[string]time.Time
	orderCount int

	tradeHistory []model.TradeRecord
}

func NewSimulatorExecutor(cfg SimulatorConfig, logger *zap.Logger) *SimulatorExecutor {
	return &SimulatorExecutor{
		cfg:       cfg,
		logger:    logger.With(zap.String("executor", "Simulator")).Sugar(),
		now:       time.Now,
		balance:   cfg.InitialCapital,
		equity:    cfg.InitialCapital,
		maxEquity: cfg.InitialCapital,
		positions: make(map[string]*SimulatorPosition),
		lastPrice: make(map[string]float64),
		lastBarAt: make(map[string]time.Time),
	}
}

// GetCash 可用现金 = 余额 - 持仓占用
func (e *SimulatorExecutor) GetCash(ctx context.Context) (decimal.Decimal, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return decimal.NewFromFloat(e.balance - e.marginUsed), nil
}

// SubmitBracketOrder 以最新观测价格成交。同向再次入场时加仓并按新订单更新止盈止损
func (e *SimulatorExecutor) SubmitBracketOrder(ctx context.Context, order model.OrderSpec) (model.OrderHandle, error) {
	if err := ctx.Err(); err != nil {
		return model.OrderHandle{}, fmt.Errorf("%w: %w", model.ErrOrderSubmission, err)
	}
	if order.Quantity <= 0 {
		return model.OrderHandle{}, fmt.Errorf("%w: quantity %d", model.ErrInvalidOrder, order.Quantity)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	price, ok := e.lastPrice[order.Symbol]
	if !ok {
		price = order.EntryPrice
	}
	if price <= 0 {
		return model.OrderHandle{}, fmt.Errorf("%w: no price observed for %s", model.ErrOrderSubmission, order.Symbol)
	}

	side := model.StateLong
	if order.Side == model.SideSell {
		side = model.StateShort
	}

	pos := e.positions[order.Symbol]
	if pos != nil && pos.Side != side {
		return model.OrderHandle{}, fmt.Errorf("%w: %s already holds a %s position", model.ErrOrderSubmission, order.Symbol, pos.Side)
	}

	notional := float64(order.Quantity) * price
	fee := notional * e.cfg.FeeRate
	if available := e.balance - e.marginUsed; notional+fee > available {
		e.logger.Infof("Sim Rejected: Insufficient cash. Need: %.2f, Have: %.2f", notional+fee, available)
		return model.OrderHandle{}, fmt.Errorf("%w: insufficient cash", model.ErrOrderSubmission)
	}

	e.balance -= fee
	e.marginUsed += notional
	entryTime := e.entryTime(order.Symbol)

	if pos == nil {
		pos = &SimulatorPosition{Symbol: order.Symbol, Side: side, EntryTime: entryTime}
		e.positions[order.Symbol] = pos
	}
	totalSize := pos.Size + order.Quantity
	pos.AvgPrice = (pos.AvgPrice*float64(pos.Size) + price*float64(order.Quantity)) / float64(totalSize)
	pos.Size = totalSize
	pos.StopLossPrice = order.StopLossPrice
	pos.TakeProfitPrice = order.TakeProfitPrice
	pos.EntryFee += fee

	e.orderCount++
	clientID := order.ClientOrderID
	if clientID == "" {
		clientID = uuid.NewString()
	}
	handle := model.OrderHandle{
		OrderID:       fmt.Sprintf("sim-%d", e.orderCount),
		ClientOrderID: clientID,
		SubmittedAt:   e.now(),
	}

	e.logger.Infof("Sim ORDER FILLED (OPEN): %s %s %d @ %.4f. Fee: %.4f. SL: %.4f, TP: %.4f",
		side, order.Symbol, order.Quantity, price, fee, pos.StopLossPrice, pos.TakeProfitPrice)

	e.updateEquity()
	return handle, nil
}

// CloseAllPositions 以最新价格平仓并记录交易
func (e *SimulatorExecutor) CloseAllPositions(ctx context.Context, symbol string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", model.ErrOrderSubmission, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	pos, ok := e.positions[symbol]
	if !ok {
		return nil
	}
	price, ok := e.lastPrice[symbol]
	if !ok {
		price = pos.AvgPrice
	}
	e.closePosition(pos, price, e.entryTime(symbol), "Signal")
	e.updateEquity()
	return nil
}

// ObserveBar 更新最新价格，并用 K 线的高低点检查止盈止损。
// 入场那根及更早的 K 线不触发，同一根 K 线同时触及两边时按止损处理。
func (e *SimulatorExecutor) ObserveBar(symbol string, bar model.Bar) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.lastPrice[symbol] = bar.Close
	e.lastBarAt[symbol] = bar.Timestamp

	if pos, ok := e.positions[symbol]; ok && bar.Timestamp.After(pos.EntryTime) {
		if exit, reason, hit := e.checkBracket(pos, bar); hit {
			e.closePosition(pos, exit, bar.Timestamp, reason)
		}
	}

	e.updateEquity()
	if e.equity > e.maxEquity {
		e.maxEquity = e.equity
	}
}

// checkBracket 返回触发价格和原因
func (e *SimulatorExecutor) checkBracket(pos *SimulatorPosition, bar model.Bar) (float64, string, bool) {
	switch pos.Side {
	case model.StateLong:
		if pos.StopLossPrice > 0 && bar.Low <= pos.StopLossPrice {
			return pos.StopLossPrice, "SL", true
		}
		if pos.TakeProfitPrice > 0 && bar.High >= pos.TakeProfitPrice {
			return pos.TakeProfitPrice, "TP", true
		}
	case model.StateShort:
		if pos.StopLossPrice > 0 && bar.High >= pos.StopLossPrice {
			return pos.StopLossPrice, "SL", true
		}
		if pos.TakeProfitPrice > 0 && bar.Low <= pos.TakeProfitPrice {
			return pos.TakeProfitPrice, "TP", true
		}
	}
	return 0, "", false
}

// closePosition 调用方需持有写锁
func (e *SimulatorExecutor) closePosition(pos *SimulatorPosition, price float64, at time.Time, reason string) {
	pnl := calculateClosedPnL(pos, price)
	closeFee := float64(pos.Size) * price * e.cfg.FeeRate

	e.tradeHistory = append(e.tradeHistory, model.TradeRecord{
		EntryTime:     pos.EntryTime,
		ExitTime:      at,
		Symbol:        pos.Symbol,
		PosSide:       pos.Side,
		EntryPrice:    pos.AvgPrice,
		ExitPrice:     price,
		Size:          pos.Size,
		RealizedPnL:   pnl,
		Fee:           pos.EntryFee + closeFee,
		TriggerReason: reason,
	})

	e.balance += pnl - closeFee
	e.marginUsed -= float64(pos.Size) * pos.AvgPrice
	if e.marginUsed < 0 {
		e.marginUsed = 0
	}
	delete(e.positions, pos.Symbol)

	e.logger.Infof("Sim POSITION CLOSED: [%s] %s %s @ %.4f. Realized PnL: %.4f. New Balance: %.4f",
		reason, pos.Side, pos.Symbol, price, pnl, e.balance)
}

func (e *SimulatorExecutor) entryTime(symbol string) time.Time {
	if t, ok := e.lastBarAt[symbol]; ok {
		return t
	}
	return e.now()
}

// calculateClosedPnL 计算已实现盈亏
func calculateClosedPnL(pos *SimulatorPosition, closePrice float64) float64 {
	switch pos.Side {
	case model.StateLong:
		return (closePrice - pos.AvgPrice) * float64(pos.Size)
	case model.StateShort:
		return (pos.AvgPrice - closePrice) * float64(pos.Size)
	}
	return 0
}

// updateEquity 计算浮动盈亏并更新净值，调用方需持有写锁
func (e *SimulatorExecutor) updateEquity() {
	equity := e.balance
	for symbol, pos := range e.positions {
		price, ok := e.lastPrice[symbol]
		if !ok {
			price = pos.AvgPrice
		}
		pos.UPL = calculateClosedPnL(pos, price)
		equity += pos.UPL
	}
	e.equity = equity
}

// Position 返回 symbol 持仓的副本
func (e *SimulatorExecutor) Position(symbol string) (SimulatorPosition, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	pos, ok := e.positions[symbol]
	if !ok {
		return SimulatorPosition{Symbol: symbol, Side: model.StateFlat}, false
	}
	return *pos, true
}

// GetTradeHistory 已平仓交易记录的副本
func (e *SimulatorExecutor) GetTradeHistory() []model.TradeRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()

	records := make([]model.TradeRecord, len(e.tradeHistory))
	copy(records, e.tradeHistory)
	return records
}

// Equity 当前净值
func (e *SimulatorExecutor) Equity() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.equity
}

// GetMaxEquity 返回账户历史上的最高净值
func (e *SimulatorExecutor) GetMaxEquity() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.maxEquity
}
