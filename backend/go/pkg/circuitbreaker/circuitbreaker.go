package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// State represents the state of the circuit breaker.
type State int

const (
	// Closed is the initial state where requests are allowed.
	Closed State = iota
	// Open state is when the circuit has tripped and requests are blocked.
	Open
	// HalfOpen allows a limited number of trial requests to test recovery.
	HalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case Closed:
		return "Closed"
	case Open:
		return "Open"
	case HalfOpen:
		return "Half-Open"
	default:
		return "Unknown"
	}
}

// ErrCircuitOpen is returned when the circuit breaker is in the Open state.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker is the interface for the circuit breaker pattern.
type CircuitBreaker interface {
	// Execute runs the given request if the circuit breaker is closed or half-open.
	Execute(req func() (interface{}, error)) (interface{}, error)
	// State returns the current state of the circuit breaker.
	State() State
}

// breaker is the default CircuitBreaker implementation.
type breaker struct {
	failureThreshold     uint32        // Number of consecutive failures to trip the circuit.
	successThreshold     uint32        // Number of successes in HalfOpen state to close the circuit.
	timeout              time.Duration // Duration to wait in Open state before transitioning to HalfOpen.
	consecutiveSuccesses uint32
	consecutiveFailures  uint32
	openedAt             time.Time
	state                State
	mutex                sync.Mutex
}

// New creates a new circuit breaker with the specified thresholds.
func New(failureThreshold, successThreshold uint32, timeout time.Duration) CircuitBreaker {
	return &breaker{
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		timeout:          timeout,
		state:            Closed,
	}
}

// State returns the current state of the circuit breaker.
func (cb *breaker) State() State {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}

// Execute wraps the execution of a function with the circuit breaker logic.
func (cb *breaker) Execute(req func() (interface{}, error)) (interface{}, error) {
	cb.mutex.Lock()

	// Transition from Open to HalfOpen once the timeout has elapsed.
	if cb.state == Open && time.Since(cb.openedAt) > cb.timeout {
		cb.state = HalfOpen
		cb.consecutiveSuccesses = 0
	}

	if cb.state == Open {
		cb.mutex.Unlock()
		return nil, ErrCircuitOpen
	}
	cb.mutex.Unlock()

	res, err := req()
	if err != nil {
		cb.onFailure()
		return nil, err
	}
	cb.onSuccess()
	return res, nil
}

func (cb *breaker) onSuccess() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch cb.state {
	case HalfOpen:
		cb.consecutiveSuccesses++
		if cb.consecutiveSuccesses >= cb.successThreshold {
			cb.reset()
		}
	case Closed:
		cb.consecutiveFailures = 0
	}
}

func (cb *breaker) onFailure() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch cb.state {
	case HalfOpen:
		cb.trip()
	case Closed:
		cb.consecutiveFailures++
		if cb.consecutiveFailures >= cb.failureThreshold {
			cb.trip()
		}
	}
}

// trip opens the circuit.
func (cb *breaker) trip() {
	cb.state = Open
	cb.openedAt = time.Now()
	cb.consecutiveFailures = 0
	cb.consecutiveSuccesses = 0
}

// reset closes the circuit and resets all counters.
func (cb *breaker) reset() {
	cb.state = Closed
	cb.consecutiveFailures = 0
	cb.consecutiveSuccesses = 0
}
