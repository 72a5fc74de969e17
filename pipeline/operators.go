package pipeline

import "context"

// Map applies fn to each value. An error from fn ends the stream.
func Map[I, O any](p *Pipeline[I], fn func(context.Context, I) (O, error)) *Pipeline[O] {
	return FlatMap(p, func(ctx context.Context, v I) ([]O, error) {
		o, err := fn(ctx, v)
		if err != nil {
			return nil, err
		}
		return []O{o}, nil
	})
}

// FlatMap expands each value into zero or more values. Returning an empty
// slice drops the input. An error from fn ends the stream.
func FlatMap[I, O any](p *Pipeline[I], fn func(context.Context, I) ([]O, error)) *Pipeline[O] {
	return &Pipeline[O]{create: func(ctx context.Context) Iterator[O] {
		src := p.create(ctx)
		var pending []O
		return funcIter[O]{
			next: func(ctx context.Context) (O, bool, error) {
				var zero O
				for len(pending) == 0 {
					v, ok, err := src.Next(ctx)
					if err != nil || !ok {
						return zero, false, err
					}
					if pending, err = fn(ctx, v); err != nil {
						return zero, false, err
					}
				}
				v := pending[0]
				pending = pending[1:]
				return v, true, nil
			},
			close: src.Close,
		}
	}}
}

// Reduce folds the stream into one value, which it yields once the source is
// exhausted. An empty source yields init.
func Reduce[T, R any](p *Pipeline[T], init R, fn func(context.Context, R, T) (R, error)) *Pipeline[R] {
	return &Pipeline[R]{create: func(ctx context.Context) Iterator[R] {
		src := p.create(ctx)
		acc, done := init, false
		return funcIter[R]{
			next: func(ctx context.Context) (R, bool, error) {
				var zero R
				for !done {
					v, ok, err := src.Next(ctx)
					if err != nil {
						return zero, false, err
					}
					if !ok {
						done = true
						return acc, true, nil
					}
					if acc, err = fn(ctx, acc, v); err != nil {
						return zero, false, err
					}
				}
				return zero, false, nil
			},
			close: src.Close,
		}
	}}
}
