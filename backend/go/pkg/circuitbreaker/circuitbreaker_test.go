package circuitbreaker

import (
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func fail() (interface{}, error)    { return nil, errBoom }
func succeed() (interface{}, error) { return "ok", nil }

func TestTripsAfterConsecutiveFailures(t *testing.T) {
	cb := New(3, 1, time.Minute)

	for i := 0; i < 3; i++ {
		if _, err := cb.Execute(fail); !errors.Is(err, errBoom) {
			t.Fatalf("Execute() error = %v, want errBoom", err)
		}
	}

	if cb.State() != Open {
		t.Fatalf("state = %v, want Open after threshold failures", cb.State())
	}
	if _, err := cb.Execute(succeed); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Execute() error = %v, want ErrCircuitOpen", err)
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	cb := New(3, 1, time.Minute)

	cb.Execute(fail)
	cb.Execute(fail)
	cb.Execute(succeed)
	cb.Execute(fail)
	cb.Execute(fail)

	if cb.State() != Closed {
		t.Errorf("state = %v, want Closed: successes must reset the failure count", cb.State())
	}
}

func TestRecoversThroughHalfOpen(t *testing.T) {
	cb := New(1, 2, 10*time.Millisecond)

	cb.Execute(fail)
	if cb.State() != Open {
		t.Fatalf("state = %v, want Open", cb.State())
	}

	time.Sleep(15 * time.Millisecond)

	// First trial request moves the breaker to HalfOpen.
	if _, err := cb.Execute(succeed); err != nil {
		t.Fatalf("Execute() error = %v, want trial request to pass", err)
	}
	if cb.State() != HalfOpen {
		t.Fatalf("state = %v, want HalfOpen after one trial success", cb.State())
	}

	if _, err := cb.Execute(succeed); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if cb.State() != Closed {
		t.Errorf("state = %v, want Closed after success threshold", cb.State())
	}
}

func TestHalfOpenFailureReopens(t *testing.T) {
	cb := New(1, 2, 10*time.Millisecond)

	cb.Execute(fail)
	time.Sleep(15 * time.Millisecond)

	if _, err := cb.Execute(fail); !errors.Is(err, errBoom) {
		t.Fatalf("Execute() error = %v, want errBoom", err)
	}
	if cb.State() != Open {
		t.Errorf("state = %v, want Open after half-open failure", cb.State())
	}
}
