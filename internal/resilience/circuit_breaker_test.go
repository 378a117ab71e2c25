package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestCircuitBreaker_StartsClosed(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, time.Second)

	if cb.GetState() != StateClosed {
		t.Errorf("Expected initial state Closed, got %d", cb.GetState())
	}
	if !cb.allowRequest() {
		t.Error("Expected requests allowed while closed")
	}
}

func TestCircuitBreaker_OpensAtFailureThreshold(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, time.Second)

	cb.RecordResult(false)
	cb.RecordResult(false)
	if cb.GetState() != StateClosed {
		t.Error("Expected still closed one failure below the threshold")
	}

	cb.RecordResult(false)
	if cb.GetState() != StateOpen {
		t.Error("Expected open at the failure threshold")
	}
	if cb.allowRequest() {
		t.Error("Expected requests rejected while open")
	}
}

func TestCircuitBreaker_SuccessResetsFailureStreak(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, time.Second)

	cb.RecordResult(false)
	cb.RecordResult(false)
	cb.RecordResult(true)
	cb.RecordResult(false)
	cb.RecordResult(false)

	if cb.GetState() != StateClosed {
		t.Error("Expected closed: failures must be consecutive to open the circuit")
	}
}

func TestCircuitBreaker_HalfOpenProbeLimit(t *testing.T) {
	cb := NewCircuitBreaker("test", 2, 50*time.Millisecond)

	cb.RecordResult(false)
	cb.RecordResult(false)
	if cb.GetState() != StateOpen {
		t.Fatal("Expected circuit open")
	}

	time.Sleep(60 * time.Millisecond)

	// The reset timeout admits a bounded number of probes, then rejects
	// until one of them reports back.
	for i := 0; i < 3; i++ {
		if !cb.allowRequest() {
			t.Fatalf("Expected probe %d admitted in half-open", i+1)
		}
	}
	if cb.GetState() != StateHalfOpen {
		t.Errorf("Expected half-open, got %d", cb.GetState())
	}
	if cb.allowRequest() {
		t.Error("Expected probe rejected past the half-open limit")
	}
}

func TestCircuitBreaker_ClosesAfterHalfOpenSuccesses(t *testing.T) {
	cb := NewCircuitBreaker("test", 2, 50*time.Millisecond)

	cb.RecordResult(false)
	cb.RecordResult(false)
	time.Sleep(60 * time.Millisecond)

	if !cb.allowRequest() {
		t.Fatal("Expected probe admitted after reset timeout")
	}
	for i := 0; i < 3; i++ {
		cb.RecordResult(true)
	}

	if cb.GetState() != StateClosed {
		t.Error("Expected closed after successful half-open probes")
	}
	if !cb.allowRequest() {
		t.Error("Expected requests allowed after recovery")
	}
}

func TestCircuitBreaker_ReopensOnHalfOpenFailure(t *testing.T) {
	cb := NewCircuitBreaker("test", 2, 50*time.Millisecond)

	cb.RecordResult(false)
	cb.RecordResult(false)
	time.Sleep(60 * time.Millisecond)

	if !cb.allowRequest() {
		t.Fatal("Expected probe admitted after reset timeout")
	}
	cb.RecordResult(false)

	if cb.GetState() != StateOpen {
		t.Error("Expected reopened after a half-open failure")
	}
	if cb.allowRequest() {
		t.Error("Expected requests rejected after reopening")
	}
}

func TestCircuitBreaker_Call(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, time.Second)

	if err := cb.Call(func() error { return nil }); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	wrapped := errors.New("upstream down")
	if err := cb.Call(func() error { return wrapped }); err != wrapped {
		t.Errorf("Expected the callee's error passed through, got %v", err)
	}
}

func TestCircuitBreaker_CallRejectedWhenOpen(t *testing.T) {
	cb := NewCircuitBreaker("test", 1, time.Second)

	cb.RecordResult(false)

	called := false
	err := cb.Call(func() error { called = true; return nil })
	if err != ErrCircuitOpen {
		t.Errorf("Expected ErrCircuitOpen, got %v", err)
	}
	if called {
		t.Error("Expected callee not invoked while open")
	}
}

func TestCircuitBreaker_GetStats(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, time.Second)

	cb.RecordResult(true)
	cb.RecordResult(true)
	cb.RecordResult(false)

	state, requestCount, failureCount, failureRate := cb.GetStats()
	if state != StateClosed {
		t.Errorf("Expected state Closed, got %d", state)
	}
	if requestCount != 3 {
		t.Errorf("Expected 3 requests, got %d", requestCount)
	}
	if failureCount != 1 {
		t.Errorf("Expected 1 failure, got %d", failureCount)
	}
	if failureRate < 33.0 || failureRate > 34.0 {
		t.Errorf("Expected failure rate around 33.33%%, got %.2f%%", failureRate)
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := NewCircuitBreaker("test", 2, time.Second)

	cb.RecordResult(false)
	cb.RecordResult(false)
	if cb.GetState() != StateOpen {
		t.Fatal("Expected circuit open")
	}

	cb.Reset()

	state, requestCount, failureCount, _ := cb.GetStats()
	if state != StateClosed {
		t.Error("Expected closed after reset")
	}
	if requestCount != 0 || failureCount != 0 {
		t.Errorf("Expected counters cleared, got requests=%d failures=%d", requestCount, failureCount)
	}
	if !cb.allowRequest() {
		t.Error("Expected requests allowed after reset")
	}
}
