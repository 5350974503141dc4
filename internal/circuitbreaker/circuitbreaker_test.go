package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/toolfinder/ai-service/internal/domain"
)

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	cb := New(Config{FailureThreshold: 3, SuccessThreshold: 2, Timeout: time.Minute})

	for i := 0; i < 2; i++ {
		cb.RecordFailure()
		if cb.State() != StateClosed {
			t.Fatalf("state after %d failures = %v, want closed", i+1, cb.State())
		}
	}

	cb.RecordFailure()
	if cb.State() != StateOpen {
		t.Errorf("state after threshold = %v, want open", cb.State())
	}

	if err := cb.Allow(); !errors.Is(err, domain.ErrCircuitOpen) {
		t.Errorf("Allow() = %v, want ErrCircuitOpen", err)
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := New(Config{FailureThreshold: 3, SuccessThreshold: 1, Timeout: time.Minute})

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	cb.RecordFailure()

	if cb.State() != StateClosed {
		t.Errorf("state = %v, want closed (success should reset count)", cb.State())
	}
}

func TestBreaker_HalfOpenRecovery(t *testing.T) {
	cb := New(Config{FailureThreshold: 1, SuccessThreshold: 2, Timeout: 10 * time.Millisecond})

	cb.RecordFailure()
	if cb.State() != StateOpen {
		t.Fatal("circuit should be open")
	}

	time.Sleep(20 * time.Millisecond)

	if err := cb.Allow(); err != nil {
		t.Fatalf("Allow() after timeout = %v, want nil (half-open)", err)
	}
	if cb.State() != StateHalfOpen {
		t.Fatalf("state = %v, want half-open", cb.State())
	}

	cb.RecordSuccess()
	if cb.State() != StateHalfOpen {
		t.Error("one success should not close the circuit yet")
	}
	cb.RecordSuccess()
	if cb.State() != StateClosed {
		t.Errorf("state = %v, want closed after success threshold", cb.State())
	}
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := New(Config{FailureThreshold: 1, SuccessThreshold: 2, Timeout: 10 * time.Millisecond})

	cb.RecordFailure()
	time.Sleep(20 * time.Millisecond)
	cb.Allow()

	cb.RecordFailure()
	if cb.State() != StateOpen {
		t.Errorf("state = %v, want open after half-open failure", cb.State())
	}
}

func TestBreaker_StateChangeCallbacks(t *testing.T) {
	cb := New(Config{FailureThreshold: 1, SuccessThreshold: 1, Timeout: 10 * time.Millisecond})

	var opened, closed int
	cb.OnStateChange(func() { opened++ }, func() { closed++ })

	cb.RecordFailure()
	if opened != 1 {
		t.Errorf("opened = %d, want 1", opened)
	}

	time.Sleep(20 * time.Millisecond)
	cb.Allow()
	cb.RecordSuccess()
	if closed != 1 {
		t.Errorf("closed = %d, want 1", closed)
	}
}
