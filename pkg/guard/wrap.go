package guard

import "context"

// Wrap binds fn to the guard, returning a callable with the same shape.
// The returned function reports fn's own error unchanged except when the
// breaker intercepts on an open circuit.
func Wrap(g *Guard, fn func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		return g.Call(ctx, fn)
	}
}

// Execute runs fn under the guard and carries its return value through.
// The zero value of T is returned whenever the call did not complete,
// including open-circuit rejections and sync failures.
func Execute[T any](ctx context.Context, g *Guard, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := g.Call(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
