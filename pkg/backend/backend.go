// Package backend defines the capability every circuit-state store adapter
// satisfies. Adapters are composed around the one store client they need;
// many guard instances across processes may share a single backend key.
package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/DSACMS/tripwire/pkg/state"
)

// Backend persists one CircuitState per breaker name in an external store.
//
// Set is an unconditional overwrite visible to every other Backend pointed
// at the same store and key. GetOrInit is read-then-maybe-write without a
// transaction; two instances racing on an absent record may both write the
// seed, which is benign because both would seed identically and the first
// real publish supersedes it.
type Backend interface {
	// Get returns the stored state for name, or a *NotFoundError when no
	// record exists. It never fabricates a default.
	Get(ctx context.Context, name string) (state.CircuitState, error)

	// Set overwrites the stored record for name.
	Set(ctx context.Context, name string, st state.CircuitState) error

	// GetOrInit returns the existing record for name, seeding the store
	// with seed first when no record exists.
	GetOrInit(ctx context.Context, name string, seed state.CircuitState) (state.CircuitState, error)
}

// NotFoundError reports that a backend holds no record for a breaker name.
// GetOrInit recovers it internally; it only surfaces from bare Get calls.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no circuit state found for breaker %q", e.Name)
}

// IsNotFound reports whether err is a missing-record error.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
