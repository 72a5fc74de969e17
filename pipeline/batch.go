package pipeline

import (
	"context"
	"time"
)

// Batch groups values into slices of up to size values. With a timeout, a
// partial batch is emitted once timeout has passed since its first value,
// even while the source is blocked waiting for more.
//
// size=0 means collect until timeout. timeout=0 means collect until size.
// Both zero defaults to size=1.
func Batch[T any](p *Pipeline[T], size int, timeout time.Duration) *Pipeline[[]T] {
	if size <= 0 && timeout <= 0 {
		size = 1
	}
	return &Pipeline[[]T]{
		create: func(ctx context.Context) Iterator[[]T] {
			source := p.create(ctx)
			if timeout <= 0 {
				return &sizeBatchIter[T]{source: source, size: size}
			}
			feedCtx, cancel := context.WithCancel(ctx)
			ch := make(chan result[T], max(size, 1))
			go pump(feedCtx, source, ch)
			return &timedBatchIter[T]{
				ch:      ch,
				size:    size,
				timeout: timeout,
				closer: func() error {
					cancel()
					return source.Close()
				},
			}
		},
	}
}

type sizeBatchIter[T any] struct {
	source Iterator[T]
	size   int
	err    error
	done   bool
}

func (it *sizeBatchIter[T]) Next(ctx context.Context) ([]T, bool, error) {
	if it.err != nil {
		err := it.err
		it.err = nil
		return nil, false, err
	}
	if it.done {
		return nil, false, nil
	}
	var batch []T
	for len(batch) < it.size {
		val, ok, err := it.source.Next(ctx)
		if err != nil {
			if len(batch) > 0 {
				// partial batch first, error on the next call
				it.err = err
				return batch, true, nil
			}
			return nil, false, err
		}
		if !ok {
			it.done = true
			break
		}
		batch = append(batch, val)
	}
	if len(batch) == 0 {
		return nil, false, nil
	}
	return batch, true, nil
}

func (it *sizeBatchIter[T]) Close() error { return it.source.Close() }

type timedBatchIter[T any] struct {
	ch      <-chan result[T]
	size    int
	timeout time.Duration
	closer  func() error
	err     error
	done    bool
}

func (it *timedBatchIter[T]) Next(ctx context.Context) ([]T, bool, error) {
	if it.err != nil {
		err := it.err
		it.err = nil
		return nil, false, err
	}
	if it.done {
		return nil, false, nil
	}

	var batch []T
	var deadline <-chan time.Time
	for it.size <= 0 || len(batch) < it.size {
		select {
		case r, open := <-it.ch:
			if !open {
				it.done = true
				if len(batch) > 0 {
					return batch, true, nil
				}
				return nil, false, nil
			}
			if r.err != nil {
				if len(batch) > 0 {
					it.err = r.err
					return batch, true, nil
				}
				return nil, false, r.err
			}
			batch = append(batch, r.val)
			if deadline == nil {
				t := time.NewTimer(it.timeout)
				defer t.Stop()
				deadline = t.C
			}
		case <-deadline:
			return batch, true, nil
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}
	return batch, true, nil
}

func (it *timedBatchIter[T]) Close() error { return it.closer() }
