package executor

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"sentiment-algo-trader/internal/model"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AlpacaConfig 定义 Alpaca 执行器所需的全部配置
type AlpacaConfig struct {
	APIKey    string
	APISecret string
	BaseURL   string
}

type tradingClient interface {
	GetAccount() (*alpaca.Account, error)
	PlaceOrder(req alpaca.PlaceOrderRequest) (*alpaca.Order, error)
	ClosePosition(symbol string, req alpaca.ClosePositionRequest) (*alpaca.Order, error)
}

// AlpacaExecutor 实现了 Executor 接口
type AlpacaExecutor struct {
	client tradingClient
	logger *zap.Logger
}

// NewAlpacaTradingClient 构造交易客户端，AlpacaClock 也复用它
func NewAlpacaTradingClient(cfg AlpacaConfig) *alpaca.Client {
	return alpaca.NewClient(alpaca.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
		BaseURL:   cfg.BaseURL,
	})
}

func NewAlpacaExecutor(client tradingClient, logger *zap.Logger) *AlpacaExecutor {
	return &AlpacaExecutor{
		client: client,
		logger: logger.With(zap.String("executor", "Alpaca")),
	}
}

func (e *AlpacaExecutor) GetCash(ctx context.Context) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	account, err := e.client.GetAccount()
	if err != nil {
		return decimal.Zero, fmt.Errorf("get account: %w", err)
	}
	return account.Cash, nil
}

// SubmitBracketOrder 市价入场，GTC，止盈为限价单、止损为止损单
func (e *AlpacaExecutor) SubmitBracketOrder(ctx context.Context, order model.OrderSpec) (model.OrderHandle, error) {
	if err := ctx.Err(); err != nil {
		return model.OrderHandle{}, fmt.Errorf("%w: %w", model.ErrOrderSubmission, err)
	}
	if order.Quantity <= 0 {
		return model.OrderHandle{}, fmt.Errorf("%w: quantity %d", model.ErrInvalidOrder, order.Quantity)
	}

	side := alpaca.Buy
	if order.Side == model.SideSell {
		side = alpaca.Sell
	}
	clientID := order.ClientOrderID
	if clientID == "" {
		clientID = uuid.NewString()
	}

	qty := decimal.NewFromInt(order.Quantity)
	takeProfit := RoundToTick(order.TakeProfitPrice)
	stopLoss := RoundToTick(order.StopLossPrice)

	e.logger.Info("Sending Alpaca bracket order...",
		zap.String("Symbol", order.Symbol),
		zap.String("Side", string(order.Side)),
		zap.Int64("Qty", order.Quantity),
		zap.String("TakeProfit", takeProfit.String()),
		zap.String("StopLoss", stopLoss.String()),
		zap.String("ClientOrderID", clientID))

	placed, err := e.client.PlaceOrder(alpaca.PlaceOrderRequest{
		Symbol:        order.Symbol,
		Qty:           &qty,
		Side:          side,
		Type:          alpaca.Market,
		TimeInForce:   alpaca.GTC,
		OrderClass:    alpaca.Bracket,
		TakeProfit:    &alpaca.TakeProfit{LimitPrice: &takeProfit},
		StopLoss:      &alpaca.StopLoss{StopPrice: &stopLoss},
		ClientOrderID: clientID,
	})
	if err != nil {
		e.logger.Error("Alpaca Place Order Failed", zap.Error(err))
		return model.OrderHandle{}, fmt.Errorf("%w: %w", model.ErrOrderSubmission, err)
	}

	handle := model.OrderHandle{
		OrderID:       placed.ID,
		ClientOrderID: placed.ClientOrderID,
		SubmittedAt:   placed.SubmittedAt,
	}
	e.logger.Info("Alpaca order accepted", zap.String("OrderID", handle.OrderID))
	return handle, nil
}

// CloseAllPositions 平掉 symbol 的持仓，404 表示本来就没有仓位
func (e *AlpacaExecutor) CloseAllPositions(ctx context.Context, symbol string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", model.ErrOrderSubmission, err)
	}

	_, err := e.client.ClosePosition(symbol, alpaca.ClosePositionRequest{})
	if err != nil {
		var apiErr *alpaca.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			e.logger.Info("No open position to close", zap.String("Symbol", symbol))
			return nil
		}
		e.logger.Error("Alpaca Close Position Failed", zap.String("Symbol", symbol), zap.Error(err))
		return fmt.Errorf("%w: close %s: %w", model.ErrOrderSubmission, symbol, err)
	}

	e.logger.Info("Position close requested", zap.String("Symbol", symbol))
	return nil
}

// RoundToTick 按美股最小报价单位取整: 1 美元以上 2 位小数，以下 4 位
func RoundToTick(price float64) decimal.Decimal {
	p := decimal.NewFromFloat(price)
	if p.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return p.Round(2)
	}
	return p.Round(4)
}
