package strategy

import (
	"sentiment-algo-trader/internal/model"

	"github.com/shopspring/decimal"
)

// SizePosition 计算入场股数: floor(cash * riskFraction / lastPrice)。
// lastPrice <= 0 视为价格数据损坏，返回 0 股 (不交易)，不是错误。
func SizePosition(cash decimal.Decimal, lastPrice float64, riskFraction float64) model.SizingResult {
	result := model.SizingResult{Cash: cash}

	if lastPrice <= 0 || riskFraction <= 0 || !cash.IsPositive() {
		return result
	}

	budget := cash.Mul(decimal.NewFromFloat(riskFraction))
	quantity := budget.Div(decimal.NewFromFloat(lastPrice)).Floor()

	result.Quantity = quantity.IntPart()
	return result
}
