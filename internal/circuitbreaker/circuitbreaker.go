// Package circuitbreaker implements the circuit breaker pattern guarding the
// primary model provider.
//
// States:
//   - Closed: normal operation, requests pass through
//   - Open: provider unhealthy, requests fail immediately
//   - Half-Open: testing recovery, limited requests allowed
//
// While the circuit is open the service routes requests to the fallback
// provider instead of failing callers.
package circuitbreaker

import (
	"sync"
	"time"

	"github.com/toolfinder/ai-service/internal/domain"
)

// State represents the current state of the circuit breaker.
type State int

const (
	StateClosed   State = iota // Normal operation
	StateOpen                  // Failing fast
	StateHalfOpen              // Testing recovery
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config defines circuit breaker behavior.
type Config struct {
	FailureThreshold int           // Failures before opening
	SuccessThreshold int           // Successes to close from half-open
	Timeout          time.Duration // Time before transitioning to half-open
}

func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
	}
}

// Breaker tracks failures and controls request flow to a provider. Suitable
// for a single instance; there is no distributed variant here.
type Breaker struct {
	mu          sync.RWMutex
	state       State
	failures    int
	successes   int
	lastFailure time.Time
	config      Config
	onOpen      func()
	onClose     func()
}

func New(cfg Config) *Breaker {
	return &Breaker{
		state:  StateClosed,
		config: cfg,
	}
}

// OnStateChange registers callbacks invoked when the circuit opens or closes.
// Callbacks run outside the breaker lock.
func (cb *Breaker) OnStateChange(onOpen, onClose func()) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onOpen = onOpen
	cb.onClose = onClose
}

// Allow checks if a request should pass through. Returns nil if allowed,
// domain.ErrCircuitOpen if the circuit is open.
func (cb *Breaker) Allow() error {
	cb.mu.RLock()
	state := cb.state
	lastFailure := cb.lastFailure
	cb.mu.RUnlock()

	switch state {
	case StateClosed:
		return nil
	case StateOpen:
		if time.Since(lastFailure) > cb.config.Timeout {
			cb.mu.Lock()
			if cb.state == StateOpen {
				cb.state = StateHalfOpen
				cb.successes = 0
			}
			cb.mu.Unlock()
			return nil
		}
		return domain.ErrCircuitOpen
	case StateHalfOpen:
		return nil
	}

	return nil
}

// RecordSuccess records a successful request. In half-open state enough
// successes close the circuit.
func (cb *Breaker) RecordSuccess() {
	var closed func()

	cb.mu.Lock()
	switch cb.state {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			cb.state = StateClosed
			cb.failures = 0
			cb.successes = 0
			closed = cb.onClose
		}
	}
	cb.mu.Unlock()

	if closed != nil {
		closed()
	}
}

// RecordFailure records a failed request. Enough failures open the circuit.
func (cb *Breaker) RecordFailure() {
	var opened func()

	cb.mu.Lock()
	cb.lastFailure = time.Now()

	switch cb.state {
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.config.FailureThreshold {
			cb.state = StateOpen
			opened = cb.onOpen
		}
	case StateHalfOpen:
		cb.state = StateOpen
		cb.successes = 0
		opened = cb.onOpen
	}
	cb.mu.Unlock()

	if opened != nil {
		opened()
	}
}

func (cb *Breaker) State() State {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

func (cb *Breaker) Failures() int {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.failures
}
