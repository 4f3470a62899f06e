package guard

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/DSACMS/tripwire/pkg/backend"
	"github.com/DSACMS/tripwire/pkg/breaker"
)

// Option configures a Guard at construction.
type Option func(*Guard, *breaker.Options)

// WithBackend sets the store the guard shares state through. Required;
// New fails with ErrNoBackend without it.
func WithBackend(be backend.Backend) Option {
	return func(g *Guard, _ *breaker.Options) {
		g.backend = be
	}
}

// WithFailureThreshold sets how many recorded failures open the circuit.
func WithFailureThreshold(n int) Option {
	return func(_ *Guard, opts *breaker.Options) {
		opts.FailureThreshold = n
	}
}

// WithRecoveryTimeout sets how long an open circuit waits before admitting
// a half-open probe.
func WithRecoveryTimeout(d time.Duration) Option {
	return func(_ *Guard, opts *breaker.Options) {
		opts.RecoveryTimeout = d
	}
}

// WithFailureOn narrows breaker-relevant failures to errors matching one
// of the given targets (per errors.Is). Everything else propagates to the
// caller without feeding the failure count.
func WithFailureOn(targets ...error) Option {
	return WithFailurePredicate(func(err error) bool {
		for _, target := range targets {
			if errors.Is(err, target) {
				return true
			}
		}
		return false
	})
}

// WithFailurePredicate sets an arbitrary breaker-relevance predicate for
// errors returned by the guarded call.
func WithFailurePredicate(p func(error) bool) Option {
	return func(g *Guard, _ *breaker.Options) {
		g.isFailure = p
	}
}

// WithFallback sets the behavior invoked instead of the guarded call while
// the circuit is open. The open-circuit error is passed in.
func WithFallback(fn func(ctx context.Context, err error) error) Option {
	return func(g *Guard, _ *breaker.Options) {
		g.fallback = fn
	}
}

// WithLogger sets the logger state-transition events are written to.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard, _ *breaker.Options) {
		if logger != nil {
			g.logger = logger
		}
	}
}
