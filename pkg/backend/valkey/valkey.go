// Package valkey adapts a Valkey server as a circuit-state backend. The
// wire protocol matches the redis adapter field for field, so the two are
// drop-in alternatives for the same breaker name.
package valkey

import (
	"context"
	"fmt"

	"github.com/valkey-io/valkey-go"

	"github.com/DSACMS/tripwire/pkg/backend"
	"github.com/DSACMS/tripwire/pkg/state"
)

// Backend satisfies backend.Backend over a Valkey hash per breaker name.
type Backend struct {
	client valkey.Client
}

func NewBackend(client valkey.Client) *Backend {
	return &Backend{client: client}
}

func (b *Backend) Get(ctx context.Context, name string) (state.CircuitState, error) {
	fields, err := b.client.Do(ctx, b.client.B().Hgetall().Key(name).Build()).AsStrMap()
	if err != nil {
		return state.CircuitState{}, fmt.Errorf("valkey: read state for %q: %w", name, err)
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

	cmd := b.client.B().Hset().Key(name).FieldValue()
	for field, value := range fields {
		cmd = cmd.FieldValue(field, value)
	}

	if err := b.client.Do(ctx, cmd.Build()).Error(); err != nil {
		return fmt.Errorf("valkey: write state for %q: %w", name, err)
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
