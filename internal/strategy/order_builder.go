package strategy

import (
	"fmt"

	"sentiment-algo-trader/internal/model"

	"github.com/google/uuid"
)

// 固定的 ATR 倍数: 止损 2 倍，止盈 4 倍 (风险回报 1:2)
const (
	StopLossATRMultiple   = 2.0
	TakeProfitATRMultiple = 4.0
)

// BuildBracketOrder 把开仓决策转换为 bracket 订单。
// 平仓部分不在这里处理，由执行器整体平仓。
func BuildBracketOrder(d model.Decision, lastPrice float64, atr float64, quantity int64, symbol string) (model.OrderSpec, error) {
	if quantity <= 0 {
		return model.OrderSpec{}, fmt.Errorf("%w: quantity must be > 0, got %d", model.ErrInvalidOrder, quantity)
	}
	if lastPrice <= 0 {
		return model.OrderSpec{}, fmt.Errorf("%w: last price must be > 0, got %f", model.ErrInvalidOrder, lastPrice)
	}
	if atr <= 0 {
		return model.OrderSpec{}, fmt.Errorf("%w: ATR must be > 0, got %f", model.ErrInvalidOrder, atr)
	}

	slDistance := atr * StopLossATRMultiple
	tpDistance := atr * TakeProfitATRMultiple

	order := model.OrderSpec{
		Symbol:        symbol,
		Quantity:      quantity,
		Type:          model.OrderTypeBracket,
		EntryPrice:    lastPrice,
		ClientOrderID: uuid.NewString(),
	}

	switch d.Action {
	case model.ActionOpenLong, model.ActionCloseThenOpenLong:
		order.Side = model.SideBuy
		order.StopLossPrice = lastPrice - slDistance
		order.TakeProfitPrice = lastPrice + tpDistance
	case model.ActionOpenShort, model.ActionCloseThenOpenShort:
		order.Side = model.SideSell
		order.StopLossPrice = lastPrice + slDistance
		order.TakeProfitPrice = lastPrice - tpDistance
	default:
		return model.OrderSpec{}, fmt.Errorf("%w: action %s does not open a position", model.ErrInvalidOrder, d.Action)
	}

	// 波动过大时空单止盈价或多单止损价会跌到 0 以下
	if order.StopLossPrice <= 0 || order.TakeProfitPrice <= 0 {
		return model.OrderSpec{}, fmt.Errorf("%w: bracket prices must be > 0 (SL %.4f, TP %.4f)",
			model.ErrInvalidOrder, order.StopLossPrice, order.TakeProfitPrice)
	}

	return order, nil
}
