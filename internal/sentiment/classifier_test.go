package sentiment

import (
	"math"
	"testing"

	"sentiment-algo-trader/internal/model"
)

func TestAggregateLogitsEmptyIsNeutral(t *testing.T) {
	got := AggregateLogits(nil)
	if got.Label != model.LabelNeutral || got.Probability != 0 {
		t.Fatalf("expected {0, neutral}, got %+v", got)
	}
}

func TestAggregateLogitsSoftmax(t *testing.T) {
	got := AggregateLogits([]Logits{{2, 0, 0}})
	want := math.Exp(2) / (math.Exp(2) + 2)
	if got.Label != model.LabelPositive || math.Abs(got.Probability-want) > 1e-12 {
		t.Fatalf("expected positive %.6f, got %+v", want, got)
	}
}

func TestAggregateLogitsSumsAcrossHeadlines(t *testing.T) {
	got := AggregateLogits([]Logits{{1, 0, 0}, {0, 3, 0}})
	if got.Label != model.LabelNegative {
		t.Fatalf("expected negative, got %+v", got)
	}
	want := math.Exp(3) / (math.Exp(1) + math.Exp(3) + 1)
	if math.Abs(got.Probability-want) > 1e-12 {
		t.Fatalf("expected %.6f, got %.6f", want, got.Probability)
	}
}

func TestAggregateLogitsTieTakesFirstLabel(t *testing.T) {
	got := AggregateLogits([]Logits{{1, 1, 0}})
	if got.Label != model.LabelPositive {
		t.Fatalf("expected positive on tie, got %s", got.Label)
	}
}

func TestAggregateLogitsLargeValuesStayFinite(t *testing.T) {
	got := AggregateLogits([]Logits{{900, 0, 0}, {900, 0, 0}})
	if math.IsNaN(got.Probability) || got.Probability <= 0.99 {
		t.Fatalf("expected near-certain positive, got %+v", got)
	}
}
