package pipeline

import "context"

// Iterator pulls values one at a time. Next returns ok=false once the source
// is exhausted. Close releases whatever the source holds.
type Iterator[T any] interface {
	Next(ctx context.Context) (T, bool, error)
	Close() error
}

// Pipeline is a lazy chain of stages. Nothing is pulled until Iter or a
// terminal (Collect, ForEach, ParallelForEach) runs it, and every run
// builds fresh stage state.
type Pipeline[T any] struct {
	create func(ctx context.Context) Iterator[T]
}

// From wraps an existing iterator. The resulting pipeline can run once.
func From[T any](it Iterator[T]) *Pipeline[T] {
	return &Pipeline[T]{create: func(context.Context) Iterator[T] { return it }}
}

// FromSlice yields items in order.
func FromSlice[T any](items []T) *Pipeline[T] {
	return &Pipeline[T]{create: func(context.Context) Iterator[T] { return SliceIterator(items) }}
}

// Iter starts the pipeline. The caller must Close the iterator.
func (p *Pipeline[T]) Iter(ctx context.Context) Iterator[T] {
	return p.create(ctx)
}

// ForEach pulls every value into fn, then closes the source. The first
// error from the source or fn stops the run.
func ForEach[T any](ctx context.Context, p *Pipeline[T], fn func(context.Context, T) error) error {
	it := p.create(ctx)
	defer it.Close()
	for {
		v, ok, err := it.Next(ctx)
		if err != nil || !ok {
			return err
		}
		if err := fn(ctx, v); err != nil {
			return err
		}
	}
}

// Collect returns every value. On error it also returns what was pulled
// before the failure.
func Collect[T any](ctx context.Context, p *Pipeline[T]) ([]T, error) {
	var out []T
	err := ForEach(ctx, p, func(_ context.Context, v T) error {
		out = append(out, v)
		return nil
	})
	return out, err
}

// SliceIterator yields items in order.
func SliceIterator[T any](items []T) Iterator[T] {
	i := 0
	return funcIter[T]{next: func(context.Context) (T, bool, error) {
		if i >= len(items) {
			var zero T
			return zero, false, nil
		}
		i++
		return items[i-1], true, nil
	}}
}

// ChanIterator yields values received from ch until it is closed. closer,
// when set, runs on Close.
func ChanIterator[T any](ch <-chan T, closer func() error) Iterator[T] {
	return funcIter[T]{
		next: func(ctx context.Context) (T, bool, error) {
			select {
			case v, open := <-ch:
				return v, open, nil
			case <-ctx.Done():
				var zero T
				return zero, false, ctx.Err()
			}
		},
		close: closer,
	}
}

// funcIter is an Iterator backed by closures. Stage state lives in the
// closures, so each create call gets its own.
type funcIter[T any] struct {
	next  func(context.Context) (T, bool, error)
	close func() error
}

func (it funcIter[T]) Next(ctx context.Context) (T, bool, error) { return it.next(ctx) }

func (it funcIter[T]) Close() error {
	if it.close == nil {
		return nil
	}
	return it.close()
}
