package executor

import (
	"context"

	"sentiment-algo-trader/internal/model"

	"github.com/shopspring/decimal"
)

// Executor 是交易执行器的通用接口，负责与经纪商通信
type Executor interface {
	// 查询可用现金
	GetCash(ctx context.Context) (decimal.Decimal, error)

	// 提交 bracket 订单 (市价入场 + 止盈限价 + 止损)，成功返回经纪商回执
	SubmitBracketOrder(ctx context.Context, order model.OrderSpec) (model.OrderHandle, error)

	// 清掉 symbol 的全部持仓，没有持仓时视为成功
	CloseAllPositions(ctx context.Context, symbol string) error
}

// PriceObserver 需要行情驱动的执行器 (模拟盘) 额外实现，每个 tick 喂入最新 K 线
type PriceObserver interface {
	ObserveBar(symbol string, bar model.Bar)
}
