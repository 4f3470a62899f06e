package guard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DSACMS/tripwire/pkg/backend/memory"
	"github.com/DSACMS/tripwire/pkg/state"
)

func newTestSynchronizer(t *testing.T, be *memory.Backend) *Synchronizer {
	t.Helper()

	s := NewSynchronizer("foo", be)
	s.now = func() time.Time { return time.UnixMicro(1_000_000) }
	return s
}

func TestSync_SeedsEmptyBackend(t *testing.T) {
	be := memory.NewBackend()
	s := newTestSynchronizer(t, be)

	local := state.CircuitState{Status: state.StatusClosed, FailureCount: 2, Timestamp: 500}

	winner, err := s.Sync(context.Background(), local)
	require.NoError(t, err)
	assert.Equal(t, local, winner)

	stored, err := be.Get(context.Background(), "foo")
	require.NoError(t, err)
	assert.Equal(t, local, stored)
}

func TestSync_LocalNewerWinsAndWritesThrough(t *testing.T) {
	be := memory.NewBackend()
	s := newTestSynchronizer(t, be)

	remote := state.CircuitState{Status: state.StatusClosed, FailureCount: 1, Timestamp: 100}
	require.NoError(t, be.Set(context.Background(), "foo", remote))

	local := state.CircuitState{
		Status:       state.StatusOpen,
		LastFailure:  &state.Failure{Message: "Boom!"},
		FailureCount: 6,
		Timestamp:    101,
	}

	winner, err := s.Sync(context.Background(), local)
	require.NoError(t, err)
	assert.Equal(t, local, winner)

	stored, err := be.Get(context.Background(), "foo")
	require.NoError(t, err)
	assert.Equal(t, local, stored)
}

func TestSync_BackendNewerIsAdoptedWithoutWrite(t *testing.T) {
	be := memory.NewBackend()
	s := newTestSynchronizer(t, be)

	remote := state.CircuitState{
		Status:       state.StatusOpen,
		LastFailure:  &state.Failure{Message: "seen elsewhere"},
		FailureCount: 9,
		Timestamp:    200,
	}
	require.NoError(t, be.Set(context.Background(), "foo", remote))

	local := state.CircuitState{Status: state.StatusClosed, Timestamp: 150}

	winner, err := s.Sync(context.Background(), local)
	require.NoError(t, err)
	assert.Equal(t, remote, winner)

	stored, err := be.Get(context.Background(), "foo")
	require.NoError(t, err)
	assert.Equal(t, remote, stored)
}

func TestSync_TieGoesToBackend(t *testing.T) {
	be := memory.NewBackend()
	s := newTestSynchronizer(t, be)

	remote := state.CircuitState{Status: state.StatusOpen, FailureCount: 3, Timestamp: 200}
	require.NoError(t, be.Set(context.Background(), "foo", remote))

	local := state.CircuitState{Status: state.StatusClosed, FailureCount: 0, Timestamp: 200}

	winner, err := s.Sync(context.Background(), local)
	require.NoError(t, err)
	assert.Equal(t, remote, winner)
}

func TestPublish_StampsBeforeSyncing(t *testing.T) {
	be := memory.NewBackend()
	s := newTestSynchronizer(t, be)

	winner, err := s.Publish(context.Background(), state.Initial())
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000), winner.Timestamp)

	stored, err := be.Get(context.Background(), "foo")
	require.NoError(t, err)
	assert.Equal(t, winner, stored)
}

func TestPublish_StampsStrictlyIncreaseUnderAFrozenClock(t *testing.T) {
	be := memory.NewBackend()
	s := newTestSynchronizer(t, be)

	first, err := s.Publish(context.Background(), state.Initial())
	require.NoError(t, err)

	second, err := s.Publish(context.Background(), state.Initial())
	require.NoError(t, err)

	assert.Greater(t, second.Timestamp, first.Timestamp)
}

func TestGetOrInit_Idempotent(t *testing.T) {
	be := memory.NewBackend()

	seed := state.Initial()

	first, err := be.GetOrInit(context.Background(), "foo", seed)
	require.NoError(t, err)

	second, err := be.GetOrInit(context.Background(), "foo", seed)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, seed, second)
}
