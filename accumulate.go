package gears

import (
	"context"

	"github.com/kbukum/gears/codec"
	"github.com/kbukum/gears/operation"
)

// Accumulate folds every record into one accumulator. acc is nil for the
// first record.
func Accumulate[T, A any](b *Builder[T], fn func(ctx context.Context, acc *A, r T) (A, error)) *Builder[A] {
	b.c.append(b.c.ctx, step{
		kind: operation.KindAccumulate,
		in:   typeOf[T](),
		out:  typeOf[A](),
		fn: operation.AccumulateFunc(func(ctx context.Context, acc any, r any) (any, error) {
			rec, err := codec.As[T](r)
			if err != nil {
				return nil, err
			}
			p, err := accPointer[A](acc)
			if err != nil {
				return nil, err
			}
			return fn(ctx, p, rec)
		}),
	})
	return view[A](b)
}

// AccumulateWith folds every record into one accumulator starting from init.
// init is passed by value, so reference types are shared between calls.
func AccumulateWith[T, A any](b *Builder[T], init A, fn func(ctx context.Context, acc A, r T) (A, error)) *Builder[A] {
	return Accumulate(b, withInitial(init, fn))
}

// AccumulateBy folds records into one accumulator per extracted key. The
// per-key accumulators are merged across partitions.
func AccumulateBy[T, A any](
	b *Builder[T],
	extractor func(ctx context.Context, r T) (string, error),
	fn func(ctx context.Context, key string, acc *A, r T) (A, error),
) *Builder[A] {
	return accumulateBy(b, operation.KindAccumulateBy, extractor, fn, nil)
}

// AccumulateByWith is AccumulateBy with a fresh initial value per key.
func AccumulateByWith[T, A any](
	b *Builder[T],
	init func() A,
	extractor func(ctx context.Context, r T) (string, error),
	fn func(ctx context.Context, key string, acc A, r T) (A, error),
) *Builder[A] {
	initializer := operation.InitializerFunc(func(context.Context) (any, error) {
		return init(), nil
	})
	return accumulateBy(b, operation.KindAccumulateBy, extractor, withInitializer(init, fn), initializer)
}

// LocalAccumulateBy is AccumulateBy without the cross-partition merge.
func LocalAccumulateBy[T, A any](
	b *Builder[T],
	extractor func(ctx context.Context, r T) (string, error),
	fn func(ctx context.Context, key string, acc *A, r T) (A, error),
) *Builder[A] {
	return accumulateBy(b, operation.KindLocalAccumulateBy, extractor, fn, nil)
}

// Count replaces the records with their number.
func Count[T any](b *Builder[T]) *Builder[int] {
	return AccumulateWith(b, 0, func(_ context.Context, n int, _ T) (int, error) {
		return n + 1, nil
	})
}

func accumulateBy[T, A any](
	b *Builder[T],
	kind operation.Kind,
	extractor func(ctx context.Context, r T) (string, error),
	fn func(ctx context.Context, key string, acc *A, r T) (A, error),
	initializer operation.InitializerFunc,
) *Builder[A] {
	s := step{
		kind:      kind,
		in:        typeOf[T](),
		out:       typeOf[A](),
		extractor: extractorFunc(extractor),
		fn: operation.AccumulateByFunc(func(ctx context.Context, key string, acc any, r any) (any, error) {
			rec, err := codec.As[T](r)
			if err != nil {
				return nil, err
			}
			p, err := accPointer[A](acc)
			if err != nil {
				return nil, err
			}
			return fn(ctx, key, p, rec)
		}),
	}
	if initializer != nil {
		s.initializer = initializer
	}
	b.c.append(b.c.ctx, s)
	return view[A](b)
}

func accPointer[A any](acc any) (*A, error) {
	if acc == nil {
		return nil, nil
	}
	a, err := codec.As[A](acc)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// withInitial substitutes init for an absent accumulator. A present
// accumulator is passed through unchanged.
func withInitial[T, A any](init A, fn func(ctx context.Context, acc A, r T) (A, error)) func(context.Context, *A, T) (A, error) {
	return func(ctx context.Context, acc *A, r T) (A, error) {
		if acc == nil {
			return fn(ctx, init, r)
		}
		return fn(ctx, *acc, r)
	}
}

// withInitializer is withInitial for keyed folds, calling init per absent key.
func withInitializer[T, A any](init func() A, fn func(ctx context.Context, key string, acc A, r T) (A, error)) func(context.Context, string, *A, T) (A, error) {
	return func(ctx context.Context, key string, acc *A, r T) (A, error) {
		if acc == nil {
			return fn(ctx, key, init(), r)
		}
		return fn(ctx, key, *acc, r)
	}
}
