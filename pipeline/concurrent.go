package pipeline

import (
	"context"
	"sync"
)

// result carries one pulled value, or the error that ended the source,
// across a channel.
type result[T any] struct {
	val T
	ok  bool
	err error
}

// Buffer pulls the source on its own goroutine, up to size values ahead of
// the consumer.
func Buffer[T any](p *Pipeline[T], size int) *Pipeline[T] {
	size = max(size, 1)
	return &Pipeline[T]{create: func(ctx context.Context) Iterator[T] {
		src := p.create(ctx)
		pumpCtx, cancel := context.WithCancel(ctx)
		ch := make(chan result[T], size)
		go pump(pumpCtx, src, ch)
		return funcIter[T]{
			next: func(ctx context.Context) (T, bool, error) {
				select {
				case r := <-ch:
					return r.val, r.ok, r.err
				case <-ctx.Done():
					var zero T
					return zero, false, ctx.Err()
				}
			},
			close: func() error {
				cancel()
				return src.Close()
			},
		}
	}}
}

// pump moves values from src into ch until exhaustion, error or
// cancellation, then closes ch. A receive on the closed ch yields a zero
// result, which reads as exhaustion.
func pump[T any](ctx context.Context, src Iterator[T], ch chan<- result[T]) {
	defer close(ch)
	for {
		v, ok, err := src.Next(ctx)
		if !ok && err == nil {
			return
		}
		select {
		case ch <- result[T]{val: v, ok: ok, err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

// ParallelForEach hands values to n workers, in no particular order. The
// first error from the source or fn stops the pull. In-flight calls finish
// before it returns.
func ParallelForEach[T any](ctx context.Context, p *Pipeline[T], n int, fn func(context.Context, T) error) error {
	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	src := p.create(ctx)
	defer src.Close()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	work := make(chan T)
	for range max(n, 1) {
		wg.Go(func() {
			for v := range work {
				if err := fn(ctx, v); err != nil {
					fail(err)
				}
			}
		})
	}

pull:
	for {
		v, ok, err := src.Next(ctx)
		switch {
		case err != nil:
			fail(err)
			break pull
		case !ok:
			break pull
		}
		select {
		case work <- v:
		case <-ctx.Done():
			break pull
		}
	}
	close(work)
	wg.Wait()

	if firstErr == nil {
		return parent.Err()
	}
	return firstErr
}
