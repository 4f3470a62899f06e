package breaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DSACMS/tripwire/pkg/state"
)

var errBoom = errors.New("Boom!")

func newTestEngine(t *testing.T, opts Options) (*Engine, *time.Time) {
	t.Helper()

	now := time.Unix(1_700_000_000, 0)
	e := NewEngine(opts)
	e.now = func() time.Time { return now }
	return e, &now
}

func TestNewEngine_InvalidOptionsFallBackToDefaults(t *testing.T) {
	e := NewEngine(Options{})

	assert.Equal(t, DefaultOptions(), e.opts)
	assert.Equal(t, state.StatusClosed, e.Status())
}

func TestEngine_OpensAtThreshold(t *testing.T) {
	e, _ := newTestEngine(t, Options{FailureThreshold: 3, RecoveryTimeout: time.Minute})

	e.RecordFailure(errBoom)
	e.RecordFailure(errBoom)
	assert.Equal(t, state.StatusClosed, e.Status())
	require.NoError(t, e.Allow())

	e.RecordFailure(errBoom)
	assert.Equal(t, state.StatusOpen, e.Status())
	assert.ErrorIs(t, e.Allow(), ErrCircuitOpen)

	snap := e.Snapshot()
	assert.Equal(t, int64(3), snap.FailureCount)
	require.NotNil(t, snap.LastFailure)
	assert.Equal(t, "Boom!", snap.LastFailure.Message)
	assert.Zero(t, snap.Timestamp)
}

func TestEngine_RestoredCountTripsOnNextFailure(t *testing.T) {
	e, _ := newTestEngine(t, Options{FailureThreshold: 10, RecoveryTimeout: time.Minute})

	e.Restore(state.CircuitState{Status: state.StatusClosed, FailureCount: 100})

	e.RecordFailure(errBoom)

	snap := e.Snapshot()
	assert.Equal(t, state.StatusOpen, snap.Status)
	assert.Equal(t, int64(101), snap.FailureCount)
}

func TestEngine_SuccessClosesAndClearsHistory(t *testing.T) {
	e, _ := newTestEngine(t, Options{FailureThreshold: 2, RecoveryTimeout: time.Minute})

	e.Restore(state.CircuitState{
		Status:       state.StatusOpen,
		LastFailure:  &state.Failure{Message: "Boom!"},
		FailureCount: 101,
	})

	e.RecordSuccess()

	snap := e.Snapshot()
	assert.Equal(t, state.StatusClosed, snap.Status)
	assert.Equal(t, int64(0), snap.FailureCount)
	assert.Nil(t, snap.LastFailure)
}

func TestEngine_HalfOpenAfterRecoveryTimeout(t *testing.T) {
	e, now := newTestEngine(t, Options{FailureThreshold: 1, RecoveryTimeout: 30 * time.Second})

	e.RecordFailure(errBoom)
	assert.ErrorIs(t, e.Allow(), ErrCircuitOpen)

	*now = now.Add(29 * time.Second)
	assert.ErrorIs(t, e.Allow(), ErrCircuitOpen)

	*now = now.Add(time.Second)
	require.NoError(t, e.Allow())
	assert.Equal(t, state.StatusHalfOpen, e.Status())
}

func TestEngine_HalfOpenFailureReopens(t *testing.T) {
	e, now := newTestEngine(t, Options{FailureThreshold: 5, RecoveryTimeout: 30 * time.Second})

	e.Restore(state.CircuitState{Status: state.StatusOpen, FailureCount: 1, Timestamp: now.UnixMicro()})

	*now = now.Add(time.Minute)
	require.NoError(t, e.Allow())

	// Below threshold, but a failed probe must reopen immediately.
	e.RecordFailure(errBoom)
	assert.Equal(t, state.StatusOpen, e.Status())
	assert.ErrorIs(t, e.Allow(), ErrCircuitOpen)
}

func TestEngine_RestoreRebasesOpenWindowOnRecordStamp(t *testing.T) {
	e, now := newTestEngine(t, Options{FailureThreshold: 1, RecoveryTimeout: 30 * time.Second})

	// Another instance opened the circuit an hour ago; this instance may
	// probe straight away.
	e.Restore(state.CircuitState{
		Status:    state.StatusOpen,
		Timestamp: now.Add(-time.Hour).UnixMicro(),
	})
	require.NoError(t, e.Allow())

	// Opened just now elsewhere: still blocked here.
	e.Restore(state.CircuitState{
		Status:    state.StatusOpen,
		Timestamp: now.UnixMicro(),
	})
	assert.ErrorIs(t, e.Allow(), ErrCircuitOpen)
}
