// Package memory is an in-process circuit-state backend for local
// development and tests. State cannot be shared across processes with it;
// production deployments use the redis, valkey or memcache adapters.
package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/DSACMS/tripwire/pkg/backend"
	"github.com/DSACMS/tripwire/pkg/state"
)

// Backend satisfies backend.Backend over a mutexed map. Records are held
// in their encoded field-map form so decode behavior matches the hash
// adapters, including failures on corrupt records seeded via SetRaw.
type Backend struct {
	mu      sync.Mutex
	records map[string]map[string]string
}

func NewBackend() *Backend {
	return &Backend{records: make(map[string]map[string]string)}
}

func (b *Backend) Get(_ context.Context, name string) (state.CircuitState, error) {
	b.mu.Lock()
	fields, ok := b.records[name]
	b.mu.Unlock()

	if !ok {
		return state.CircuitState{}, &backend.NotFoundError{Name: name}
	}

	return state.FromFields(fields)
}

func (b *Backend) Set(_ context.Context, name string, st state.CircuitState) error {
	fields, err := st.Fields()
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.records[name] = fields
	b.mu.Unlock()
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

// SetRaw stores an arbitrary field map for name, bypassing the codec. It
// exists so tests can exercise decode failures the way a corrupted store
// record would.
func (b *Backend) SetRaw(name string, fields map[string]string) {
	b.mu.Lock()
	b.records[name] = maps.Clone(fields)
	b.mu.Unlock()
}
