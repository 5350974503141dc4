package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordRequest(t *testing.T) {
	before := testutil.ToFloat64(RequestsTotal.WithLabelValues("chat", "openrouter", "success"))
	RecordRequest("chat", "openrouter", "success", 0.5)
	after := testutil.ToFloat64(RequestsTotal.WithLabelValues("chat", "openrouter", "success"))

	if after != before+1 {
		t.Errorf("RequestsTotal = %v, want %v", after, before+1)
	}
}

func TestRecordRetry(t *testing.T) {
	before := testutil.ToFloat64(RetriesTotal.WithLabelValues("openrouter"))
	RecordRetry("openrouter")
	RecordRetry("openrouter")
	after := testutil.ToFloat64(RetriesTotal.WithLabelValues("openrouter"))

	if after != before+2 {
		t.Errorf("RetriesTotal = %v, want %v", after, before+2)
	}
}

func TestRecordTokens(t *testing.T) {
	before := testutil.ToFloat64(TokensTotal.WithLabelValues("chat", "openrouter", "prompt"))
	RecordTokens("chat", "openrouter", 100, 20)
	after := testutil.ToFloat64(TokensTotal.WithLabelValues("chat", "openrouter", "prompt"))

	if after != before+100 {
		t.Errorf("prompt TokensTotal = %v, want %v", after, before+100)
	}
}

func TestSetCircuitBreakerState(t *testing.T) {
	SetCircuitBreakerState("openrouter", 2)
	got := testutil.ToFloat64(CircuitBreakerState.WithLabelValues("openrouter"))
	if got != 2 {
		t.Errorf("CircuitBreakerState = %v, want 2", got)
	}
}

func TestRecordFallback(t *testing.T) {
	before := testutil.ToFloat64(FallbacksTotal.WithLabelValues("suggestions", "static"))
	RecordFallback("suggestions", "static")
	after := testutil.ToFloat64(FallbacksTotal.WithLabelValues("suggestions", "static"))

	if after != before+1 {
		t.Errorf("FallbacksTotal = %v, want %v", after, before+1)
	}
}
