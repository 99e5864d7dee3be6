package executor

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"sentiment-algo-trader/internal/model"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var day0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func simBar(day int, low, high, close float64) model.Bar {
	return model.Bar{Timestamp: day0.AddDate(0, 0, day), Open: close, High: high, Low: low, Close: close}
}

func longOrder(qty int64, sl, tp float64) model.OrderSpec {
	return model.OrderSpec{Symbol: "AAPL", Quantity: qty, Side: model.SideBuy, Type: model.OrderTypeBracket,
		EntryPrice: 100, StopLossPrice: sl, TakeProfitPrice: tp}
}

func newTestSimulator(capital, fee float64) *SimulatorExecutor {
	return NewSimulatorExecutor(SimulatorConfig{InitialCapital: capital, FeeRate: fee}, zap.NewNop())
}

func TestSimulatorOpenAndCloseOnSignal(t *testing.T) {
	ctx := context.Background()
	sim := newTestSimulator(10000, 0.001)
	sim.ObserveBar("AAPL", simBar(0, 99, 101, 100))

	if _, err := sim.SubmitBracketOrder(ctx, longOrder(50, 96, 108)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cash, _ := sim.GetCash(ctx)
	// 10000 - 5000 占用 - 5 手续费
	if !cash.Equal(decimal.NewFromInt(4995)) {
		t.Fatalf("unexpected available cash %s", cash)
	}

	sim.ObserveBar("AAPL", simBar(1, 100, 103, 102))
	if err := sim.CloseAllPositions(ctx, "AAPL"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	history := sim.GetTradeHistory()
	if len(history) != 1 {
		t.Fatalf("expected one trade, got %d", len(history))
	}
	tr := history[0]
	if tr.TriggerReason != "Signal" || tr.PosSide != model.StateLong || tr.ExitPrice != 102 || tr.RealizedPnL != 100 {
		t.Fatalf("unexpected trade %+v", tr)
	}
	if _, open := sim.Position("AAPL"); open {
		t.Fatalf("position should be closed")
	}

	// 10000 - 5 + 100 - 5.1
	if math.Abs(sim.Equity()-10089.9) > 1e-9 {
		t.Fatalf("unexpected equity %f", sim.Equity())
	}
}

func TestSimulatorStopLossAndTakeProfit(t *testing.T) {
	cases := []struct {
		name   string
		order  model.OrderSpec
		next   model.Bar
		reason string
		exit   float64
	}{
		{"long stop loss", longOrder(10, 96, 108), simBar(1, 95, 101, 97), "SL", 96},
		{"long take profit", longOrder(10, 96, 108), simBar(1, 100, 109, 108.5), "TP", 108},
		{"long both touched", longOrder(10, 96, 108), simBar(1, 95, 109, 100), "SL", 96},
		{"short stop loss", model.OrderSpec{Symbol: "AAPL", Quantity: 10, Side: model.SideSell, StopLossPrice: 104, TakeProfitPrice: 92}, simBar(1, 100, 105, 103), "SL", 104},
		{"short take profit", model.OrderSpec{Symbol: "AAPL", Quantity: 10, Side: model.SideSell, StopLossPrice: 104, TakeProfitPrice: 92}, simBar(1, 91, 100, 93), "TP", 92},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sim := newTestSimulator(10000, 0)
			sim.ObserveBar("AAPL", simBar(0, 99, 101, 100))
			if _, err := sim.SubmitBracketOrder(context.Background(), tc.order); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			sim.ObserveBar("AAPL", tc.next)
			history := sim.GetTradeHistory()
			if len(history) != 1 {
				t.Fatalf("expected bracket exit, got %d trades", len(history))
			}
			if history[0].TriggerReason != tc.reason || history[0].ExitPrice != tc.exit {
				t.Fatalf("expected %s @ %v, got %+v", tc.reason, tc.exit, history[0])
			}
		})
	}
}

func TestSimulatorEntryBarDoesNotTrigger(t *testing.T) {
	sim := newTestSimulator(10000, 0)
	entry := simBar(0, 90, 110, 100)
	sim.ObserveBar("AAPL", entry)
	if _, err := sim.SubmitBracketOrder(context.Background(), longOrder(10, 96, 108)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sim.ObserveBar("AAPL", entry)
	if len(sim.GetTradeHistory()) != 0 {
		t.Fatalf("re-observing the entry bar must not trigger the bracket")
	}
}

func TestSimulatorRejects(t *testing.T) {
	ctx := context.Background()

	sim := newTestSimulator(1000, 0)
	sim.ObserveBar("AAPL", simBar(0, 99, 101, 100))
	if _, err := sim.SubmitBracketOrder(ctx, longOrder(11, 96, 108)); !errors.Is(err, model.ErrOrderSubmission) {
		t.Fatalf("expected insufficient cash rejection, got %v", err)
	}

	if _, err := sim.SubmitBracketOrder(ctx, longOrder(5, 96, 108)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	short := model.OrderSpec{Symbol: "AAPL", Quantity: 1, Side: model.SideSell, StopLossPrice: 104, TakeProfitPrice: 92}
	if _, err := sim.SubmitBracketOrder(ctx, short); !errors.Is(err, model.ErrOrderSubmission) {
		t.Fatalf("expected rejection of opposite side without close, got %v", err)
	}

	if _, err := sim.SubmitBracketOrder(ctx, longOrder(0, 96, 108)); !errors.Is(err, model.ErrInvalidOrder) {
		t.Fatalf("expected ErrInvalidOrder, got %v", err)
	}
}

func TestSimulatorSameSideReentryAverages(t *testing.T) {
	ctx := context.Background()
	sim := newTestSimulator(100000, 0)

	sim.ObserveBar("AAPL", simBar(0, 99, 101, 100))
	if _, err := sim.SubmitBracketOrder(ctx, longOrder(10, 96, 108)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sim.ObserveBar("AAPL", simBar(1, 105, 107, 106))
	if _, err := sim.SubmitBracketOrder(ctx, longOrder(10, 100, 120)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pos, ok := sim.Position("AAPL")
	if !ok || pos.Size != 20 || pos.AvgPrice != 103 {
		t.Fatalf("unexpected position %+v", pos)
	}
	if pos.StopLossPrice != 100 || pos.TakeProfitPrice != 120 {
		t.Fatalf("bracket should follow the latest order, got %+v", pos)
	}
}

func TestSimulatorCloseWithoutPositionIsNoop(t *testing.T) {
	sim := newTestSimulator(1000, 0)
	if err := sim.CloseAllPositions(context.Background(), "AAPL"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sim.GetTradeHistory()) != 0 {
		t.Fatalf("expected no trades")
	}
}

func TestSimulatorTracksMaxEquity(t *testing.T) {
	ctx := context.Background()
	sim := newTestSimulator(10000, 0)
	sim.ObserveBar("AAPL", simBar(0, 99, 101, 100))
	_, _ = sim.SubmitBracketOrder(ctx, longOrder(10, 50, 200))

	sim.ObserveBar("AAPL", simBar(1, 100, 111, 110))
	sim.ObserveBar("AAPL", simBar(2, 100, 106, 105))

	if sim.GetMaxEquity() != 10100 {
		t.Fatalf("expected max equity 10100, got %f", sim.GetMaxEquity())
	}
	if sim.Equity() != 10050 {
		t.Fatalf("expected equity 10050, got %f", sim.Equity())
	}
}
