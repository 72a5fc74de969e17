package gears

import (
	"context"

	"github.com/kbukum/gears/codec"
	"github.com/kbukum/gears/operation"
)

// Map transforms every record with fn.
func Map[T, I any](b *Builder[T], fn func(ctx context.Context, r T) (I, error)) *Builder[I] {
	b.c.append(b.c.ctx, step{
		kind: operation.KindMap,
		in:   typeOf[T](),
		out:  typeOf[I](),
		fn: operation.MapFunc(func(ctx context.Context, r any) (any, error) {
			rec, err := codec.As[T](r)
			if err != nil {
				return nil, err
			}
			return fn(ctx, rec)
		}),
	})
	return view[I](b)
}

// FlatMap expands every record into zero or more records.
func FlatMap[T, I any](b *Builder[T], fn func(ctx context.Context, r T) ([]I, error)) *Builder[I] {
	b.c.append(b.c.ctx, step{
		kind: operation.KindFlatMap,
		in:   typeOf[T](),
		out:  typeOf[I](),
		fn: operation.FlatMapFunc(func(ctx context.Context, r any) ([]any, error) {
			rec, err := codec.As[T](r)
			if err != nil {
				return nil, err
			}
			vs, err := fn(ctx, rec)
			if err != nil {
				return nil, err
			}
			out := make([]any, len(vs))
			for i, v := range vs {
				out[i] = v
			}
			return out, nil
		}),
	})
	return view[I](b)
}

// Filter keeps the records for which fn returns true.
func (b *Builder[T]) Filter(fn func(ctx context.Context, r T) (bool, error)) *Builder[T] {
	b.c.append(b.c.ctx, step{
		kind: operation.KindFilter,
		in:   typeOf[T](),
		out:  typeOf[T](),
		fn: operation.FilterFunc(func(ctx context.Context, r any) (bool, error) {
			rec, err := codec.As[T](r)
			if err != nil {
				return false, err
			}
			return fn(ctx, rec)
		}),
	})
	return b
}

// Foreach calls fn for its side effect and forwards every record unchanged.
func (b *Builder[T]) Foreach(fn func(ctx context.Context, r T) error) *Builder[T] {
	b.c.append(b.c.ctx, step{
		kind: operation.KindForeach,
		in:   typeOf[T](),
		out:  typeOf[T](),
		fn: operation.ForeachFunc(func(ctx context.Context, r any) error {
			rec, err := codec.As[T](r)
			if err != nil {
				return err
			}
			return fn(ctx, rec)
		}),
	})
	return b
}

// Repartition routes every record to the partition owning its key.
func (b *Builder[T]) Repartition(extractor func(ctx context.Context, r T) (string, error)) *Builder[T] {
	b.c.append(b.c.ctx, step{
		kind:      operation.KindRepartition,
		in:        typeOf[T](),
		out:       typeOf[T](),
		extractor: extractorFunc(extractor),
	})
	return b
}

// Collect gathers all records onto one execution point. Collecting twice in
// a row appends a single step.
func (b *Builder[T]) Collect() *Builder[T] {
	return b.collect(b.c.ctx)
}

func (b *Builder[T]) collect(ctx context.Context) *Builder[T] {
	if b.c.lastKind() == operation.KindCollect {
		return b
	}
	b.c.append(ctx, step{
		kind: operation.KindCollect,
		in:   typeOf[T](),
		out:  typeOf[T](),
	})
	return b
}

func extractorFunc[T any](fn func(ctx context.Context, r T) (string, error)) operation.ExtractorFunc {
	return func(ctx context.Context, r any) (string, error) {
		rec, err := codec.As[T](r)
		if err != nil {
			return "", err
		}
		return fn(ctx, rec)
	}
}
