package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PositionState 当前持有的方向，同一时刻只有一个值
type PositionState string

const (
	StateFlat  PositionState = "flat"  // 空仓
	StateLong  PositionState = "long"  // 多
	StateShort PositionState = "short" // 空
)

func (s PositionState) String() string {
	return string(s)
}

// ParsePositionState 解析持久化的状态字符串，空字符串视为空仓
func ParsePositionState(s string) (PositionState, error) {
	switch PositionState(s) {
	case StateFlat, "":
		return StateFlat, nil
	case StateLong:
		return StateLong, nil
	case StateShort:
		return StateShort, nil
	}
	return StateFlat, fmt.Errorf("unknown position state %q", s)
}

// ActionType 决策引擎输出的动作
type ActionType string

const (
	ActionNone               ActionType = "NONE"                  // 无操作
	ActionOpenLong           ActionType = "OPEN_LONG"             // 开多 (或已持多时再次入场)
	ActionOpenShort          ActionType = "OPEN_SHORT"            // 开空 (或已持空时再次入场)
	ActionCloseThenOpenLong  ActionType = "CLOSE_THEN_OPEN_LONG"  // 先平空，再开多
	ActionCloseThenOpenShort ActionType = "CLOSE_THEN_OPEN_SHORT" // 先平多，再开空
)

// ClosesFirst 是否需要先清掉现有仓位
func (a ActionType) ClosesFirst() bool {
	return a == ActionCloseThenOpenLong || a == ActionCloseThenOpenShort
}

// Side 下单方向
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderType 目前只有 bracket 一种
type OrderType string

const OrderTypeBracket OrderType = "bracket"

// SizingResult 仓位计算结果，Quantity 为 0 表示不交易
type SizingResult struct {
	Cash     decimal.Decimal
	Quantity int64
}

// OrderSpec 完整的 bracket 订单描述，只在做出交易决定后构造
type OrderSpec struct {
	Symbol          string
	Quantity        int64
	Side            Side
	Type            OrderType
	EntryPrice      float64 // 参考价 (最新收盘价)，市价入场
	StopLossPrice   float64
	TakeProfitPrice float64
	ClientOrderID   string
}

func (o OrderSpec) String() string {
	return fmt.Sprintf("ORDER [%s %s x%d] @ %.4f | SL: %.4f | TP: %.4f",
		o.Side, o.Symbol, o.Quantity, o.EntryPrice, o.StopLossPrice, o.TakeProfitPrice)
}

// OrderHandle 经纪商受理订单后的回执
type OrderHandle struct {
	OrderID       string
	ClientOrderID string
	SubmittedAt   time.Time
}

// Decision 决策引擎单次输出，携带下游构造订单所需的全部数值
type Decision struct {
	Action     ActionType
	PriorState PositionState
	NextState  PositionState
	LastPrice  float64
	ATR        float64
	Quantity   int64
	Cash       decimal.Decimal
	Reason     string
}

// IsTrade 是否需要下单
func (d Decision) IsTrade() bool {
	return d.Action != ActionNone
}

func (d Decision) String() string {
	return fmt.Sprintf("DECISION [%s | %s -> %s] @ %.4f | Qty: %d | ATR: %.4f | Cash: %s | %s",
		d.Action, d.PriorState, d.NextState, d.LastPrice, d.Quantity, d.ATR, d.Cash.StringFixed(2), d.Reason)
}

// TradeRecord 模拟经纪商记录的一笔完整开平仓交易
type TradeRecord struct {
	EntryTime     time.Time
	ExitTime      time.Time
	Symbol        string
	PosSide       PositionState
	EntryPrice    float64
	ExitPrice     float64
	Size          int64
	RealizedPnL   float64
	Fee           float64 // 开仓 + 平仓
	TriggerReason string  // "Signal", "SL", "TP"
}
