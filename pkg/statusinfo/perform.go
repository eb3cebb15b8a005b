package statusinfo

import "context"

// Perform runs fn inside an operation named name. The operation is ended when
// fn returns, fails, or panics.
func Perform[T any](
	ctx context.Context,
	r *Registry,
	name string,
	maxSteps int,
	fn func(ctx context.Context, h Handle) (T, error),
) (T, error) {
	h := r.StartOperation(ctx, name, maxSteps)
	defer r.EndOperation(h.Receipt)
	return fn(ctx, h)
}

// Do is Perform for work without a result or step budget.
func Do(ctx context.Context, r *Registry, name string, fn func(ctx context.Context) error) error {
	_, err := Perform(ctx, r, name, NoMaxSteps, func(ctx context.Context, _ Handle) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
