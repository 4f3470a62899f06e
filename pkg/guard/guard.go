// Package guard wraps protected calls with a circuit breaker whose state
// is shared between instances through a pluggable backend store. Every
// guarded call pulls the backend state on entry, runs the breaker engine
// locally, and publishes the outcome on exit; a failure seen by one
// instance is visible to every other guard on the same breaker name.
package guard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/DSACMS/tripwire/pkg/backend"
	"github.com/DSACMS/tripwire/pkg/breaker"
	"github.com/DSACMS/tripwire/pkg/state"
)

// ErrNoBackend is returned when a guard is constructed without a backend.
// There is deliberately no local-only fallback mode: uncoordinated state
// would defeat the point of sharing it.
var ErrNoBackend = errors.New("guard: no backend configured")

// Guard is the object an application holds for one protected operation.
// A Guard is used by one logical call path at a time; run many Guard
// instances, across goroutines or hosts, to share a breaker concurrently.
type Guard struct {
	name    string
	backend backend.Backend
	engine  *breaker.Engine
	syncer  *Synchronizer
	logger  *slog.Logger

	isFailure func(error) bool
	fallback  func(context.Context, error) error

	// Last-known shared state, mirrored into the engine. Replaced only
	// wholesale with a sync winner, never partially mutated.
	cached state.CircuitState
}

// New builds a guard for the named breaker and synchronizes it against the
// backend before any call is allowed, so every guard starts from a
// backend-consistent baseline rather than a purely local default.
func New(ctx context.Context, name string, opts ...Option) (*Guard, error) {
	g := &Guard{
		name:      name,
		logger:    slog.Default(),
		isFailure: func(error) bool { return true },
	}

	engineOpts := breaker.DefaultOptions()
	for _, opt := range opts {
		opt(g, &engineOpts)
	}

	if g.backend == nil {
		return nil, fmt.Errorf("%w (breaker %q)", ErrNoBackend, name)
	}

	g.logger = g.logger.With(
		slog.String("component", "guard"),
		slog.String("breaker", name),
	)
	g.engine = breaker.NewEngine(engineOpts)
	g.syncer = NewSynchronizer(name, g.backend)

	st, err := g.syncer.Sync(ctx, state.Initial())
	if err != nil {
		return nil, fmt.Errorf("guard %q: initial sync: %w", name, err)
	}
	g.adopt(st)

	return g, nil
}

// Call runs fn under the breaker. The shared state is pulled before fn is
// admitted and the outcome is published after it returns. When the circuit
// is open the fallback runs instead, or ErrCircuitOpen is returned.
//
// Backend transport failures surface wrapped with the sync phase and are
// never counted as breaker failures; only fn's own error feeds the engine,
// and then only when it matches the configured failure predicate.
func (g *Guard) Call(ctx context.Context, fn func(context.Context) error) error {
	st, err := g.syncer.Sync(ctx, g.cached)
	if err != nil {
		return fmt.Errorf("guard %q: entry sync: %w", g.name, err)
	}
	g.adopt(st)

	if err := g.engine.Allow(); err != nil {
		if g.fallback != nil {
			return g.fallback(ctx, err)
		}
		return err
	}

	before := g.engine.Status()

	callErr := fn(ctx)
	switch {
	case callErr == nil:
		g.engine.RecordSuccess()
	case g.isFailure(callErr):
		g.engine.RecordFailure(callErr)
	}

	published, err := g.syncer.Publish(ctx, g.engine.Snapshot())
	if err != nil {
		return errors.Join(callErr, fmt.Errorf("guard %q: exit sync: %w", g.name, err))
	}
	g.adopt(published)

	if after := g.engine.Status(); after != before {
		g.logger.Info("circuit state changed",
			slog.String("from", string(before)),
			slog.String("to", string(after)),
			slog.Int64("failure_count", published.FailureCount),
		)
	}

	return callErr
}

// State returns the guard's last-known shared state.
func (g *Guard) State() state.CircuitState {
	return g.cached
}

// Name returns the breaker name, the key the shared record lives under.
func (g *Guard) Name() string {
	return g.name
}

func (g *Guard) adopt(st state.CircuitState) {
	g.cached = st
	g.engine.Restore(st)
}
