package guard

import (
	"context"
	"time"

	"github.com/DSACMS/tripwire/pkg/backend"
	"github.com/DSACMS/tripwire/pkg/state"
)

// Synchronizer reconciles a locally observed circuit state against the
// backend's record for one breaker name. There is no lock across
// instances: the record with the larger timestamp wins, and on a tie the
// backend keeps its record so contending writers converge instead of
// overwriting each other in turn.
//
// A Synchronizer belongs to a single guard and is driven by one call path
// at a time, matching the guard's own usage contract.
type Synchronizer struct {
	name    string
	backend backend.Backend

	now func() time.Time
	// Last stamp handed out. UnixMicro can repeat under a fast clock, and
	// write stamps from one instance must strictly increase.
	lastStamp int64
}

func NewSynchronizer(name string, be backend.Backend) *Synchronizer {
	return &Synchronizer{
		name:    name,
		backend: be,
		now:     time.Now,
	}
}

// Sync resolves local against the backend record and returns the winner.
// An absent record is seeded with local in the same round trip. The local
// state only wins with a strictly newer timestamp, in which case it is
// written through; otherwise the backend record is adopted unchanged and
// no write occurs.
func (s *Synchronizer) Sync(ctx context.Context, local state.CircuitState) (state.CircuitState, error) {
	remote, err := s.backend.GetOrInit(ctx, s.name, local)
	if err != nil {
		return state.CircuitState{}, err
	}

	if local.Timestamp > remote.Timestamp {
		if err := s.backend.Set(ctx, s.name, local); err != nil {
			return state.CircuitState{}, err
		}
		return local, nil
	}

	return remote, nil
}

// Publish stamps local with the current time and syncs it. The stamp is
// taken immediately before the store round trip to keep the race window
// with concurrent publishers as small as possible.
func (s *Synchronizer) Publish(ctx context.Context, local state.CircuitState) (state.CircuitState, error) {
	local.Timestamp = s.stamp()
	return s.Sync(ctx, local)
}

func (s *Synchronizer) stamp() int64 {
	ts := s.now().UnixMicro()
	if ts <= s.lastStamp {
		ts = s.lastStamp + 1
	}
	s.lastStamp = ts
	return ts
}
