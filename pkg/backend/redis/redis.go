// Package redis adapts a Redis server as a circuit-state backend. The
// record is a native hash at the breaker name, one field per state field.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/DSACMS/tripwire/pkg/backend"
	"github.com/DSACMS/tripwire/pkg/state"
)

// Backend satisfies backend.Backend over a Redis hash per breaker name.
type Backend struct {
	// Redis client used to read and update the circuit state.
	rdb *redis.Client
}

func NewBackend(rdb *redis.Client) *Backend {
	return &Backend{rdb: rdb}
}

func (b *Backend) Get(ctx context.Context, name string) (state.CircuitState, error) {
	fields, err := b.rdb.HGetAll(ctx, name).Result()
	if err != nil {
		return state.CircuitState{}, fmt.Errorf("redis: read state for %q: %w", name, err)
	}
	if len(fields) == 0 {
		return state.CircuitState{}, &backend.NotFoundError{Name: name}
	}

	return state.FromFields(fields)
}

func (b *Backend) Set(ctx context.Context, name string, st state.CircuitState) error {
	fields, err := st.Fields()
	if err != nil {
		return err
	}

	if err := b.rdb.HSet(ctx, name, fields).Err(); err != nil {
		return fmt.Errorf("redis: write state for %q: %w", name, err)
	}
	return nil
}

func (b *Backend) GetOrInit(ctx context.Context, name string, seed state.CircuitState) (state.CircuitState, error) {
	st, err := b.Get(ctx, name)
	if err == nil {
		return st, nil
	}
	if !backend.IsNotFound(err) {
		return state.CircuitState{}, err
	}

	if err := b.Set(ctx, name, seed); err != nil {
		return state.CircuitState{}, err
	}

	// Re-read rather than return the seed: a racing writer may have
	// replaced it already, and its value is as good as ours.
	return b.Get(ctx, name)
}
