// Package memcache adapts a Memcached server as a circuit-state backend.
// Memcached has no hash fields, so the whole record is serialized into one
// opaque capsule per breaker name.
package memcache

import (
	"context"
	"errors"
	"fmt"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/DSACMS/tripwire/pkg/backend"
	"github.com/DSACMS/tripwire/pkg/state"
)

// Backend satisfies backend.Backend over a single memcached value per
// breaker name. The gomemcache client carries its own deadline handling,
// so the context is accepted for interface symmetry only.
type Backend struct {
	client *memcache.Client
}

func NewBackend(client *memcache.Client) *Backend {
	return &Backend{client: client}
}

func (b *Backend) Get(_ context.Context, name string) (state.CircuitState, error) {
	item, err := b.client.Get(name)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return state.CircuitState{}, &backend.NotFoundError{Name: name}
	}
	if err != nil {
		return state.CircuitState{}, fmt.Errorf("memcache: read state for %q: %w", name, err)
	}

	return state.FromBlob(item.Value)
}

func (b *Backend) Set(_ context.Context, name string, st state.CircuitState) error {
	blob, err := st.Blob()
	if err != nil {
		return err
	}

	if err := b.client.Set(&memcache.Item{Key: name, Value: blob}); err != nil {
		return fmt.Errorf("memcache: write state for %q: %w", name, err)
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

	return b.Get(ctx, name)
}
