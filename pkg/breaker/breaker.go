// Package breaker implements the failure-counting engine behind a guard:
// closed/open/half-open transitions driven by a failure threshold and a
// recovery timeout. The engine is purely local; cross-instance sharing is
// the guard and backend layers' concern, which feed state in through
// Restore and read it back through Snapshot.
package breaker

import (
	"errors"
	"sync"
	"time"

	"github.com/DSACMS/tripwire/pkg/state"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

const (
	defaultFailureThreshold = 5
	defaultRecoveryTimeout  = 30 * time.Second
)

type Options struct {
	// Number of recorded failures before entering open state.
	FailureThreshold int
	// How long to stay in open state before admitting a half-open probe.
	RecoveryTimeout time.Duration
}

func DefaultOptions() Options {
	return Options{
		FailureThreshold: defaultFailureThreshold,
		RecoveryTimeout:  defaultRecoveryTimeout,
	}
}

// Engine tracks one breaker's position and counters.
type Engine struct {
	opts Options
	now  func() time.Time

	mu           sync.Mutex
	status       state.Status
	failureCount int64
	lastFailure  *state.Failure
	openedAt     time.Time
}

func NewEngine(opts Options) *Engine {
	if opts.FailureThreshold <= 0 {
		opts = DefaultOptions()
	}
	if opts.RecoveryTimeout <= 0 {
		opts.RecoveryTimeout = defaultRecoveryTimeout
	}

	return &Engine{
		opts:   opts,
		now:    time.Now,
		status: state.StatusClosed,
	}
}

// Allow returns nil if the call may proceed, or ErrCircuitOpen if it must
// be blocked. An open circuit whose recovery timeout has elapsed moves to
// half-open and admits the call as a probe.
func (e *Engine) Allow() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != state.StatusOpen {
		return nil
	}

	if e.now().Sub(e.openedAt) >= e.opts.RecoveryTimeout {
		e.status = state.StatusHalfOpen
		return nil
	}

	return ErrCircuitOpen
}

// RecordSuccess closes the circuit and clears the failure history.
func (e *Engine) RecordSuccess() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.status = state.StatusClosed
	e.failureCount = 0
	e.lastFailure = nil
}

// RecordFailure counts err against the threshold. Crossing the threshold
// opens the circuit; any failure during a half-open probe reopens it.
func (e *Engine) RecordFailure(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.failureCount++
	e.lastFailure = state.NewFailure(err)

	if e.status == state.StatusHalfOpen || e.failureCount >= int64(e.opts.FailureThreshold) {
		e.status = state.StatusOpen
		e.openedAt = e.now()
	}
}

// Status returns the current circuit position.
func (e *Engine) Status() state.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Snapshot captures the engine state as a shareable record. The timestamp
// is left zero; stamping is the publisher's job.
func (e *Engine) Snapshot() state.CircuitState {
	e.mu.Lock()
	defer e.mu.Unlock()

	return state.CircuitState{
		Status:       e.status,
		LastFailure:  e.lastFailure,
		FailureCount: e.failureCount,
	}
}

// Restore replaces the engine state with a record adopted from a backend.
// The open moment is not persisted, so an adopted open circuit rebases its
// recovery window on the record's write stamp.
func (e *Engine) Restore(st state.CircuitState) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.status = st.Status
	e.failureCount = st.FailureCount
	e.lastFailure = st.LastFailure

	if st.Status == state.StatusOpen {
		e.openedAt = time.UnixMicro(st.Timestamp)
	}
}
