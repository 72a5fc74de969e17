package reader

import (
	"context"

	"github.com/kbukum/gears/engine"
	"github.com/kbukum/gears/pipeline"
)

func box[T any](_ context.Context, v T) (any, error) { return v, nil }

// Slice reads a fixed set of records. It can only be run.
type Slice[T any] struct {
	name  string
	items []T
}

var _ engine.Source = (*Slice[int])(nil)

// NewSlice returns a reader named name over items.
func NewSlice[T any](name string, items []T) *Slice[T] {
	return &Slice[T]{name: name, items: items}
}

func (s *Slice[T]) Name() string { return s.name }

// Read returns the items in order.
func (s *Slice[T]) Read(ctx context.Context) (pipeline.Iterator[any], error) {
	return pipeline.Map(pipeline.FromSlice(s.items), box[T]).Iter(ctx), nil
}

// Channel reads records pushed on a channel until it is closed.
type Channel[T any] struct {
	name string
	ch   <-chan T
}

var (
	_ engine.Source     = (*Channel[int])(nil)
	_ engine.Subscriber = (*Channel[int])(nil)
)

// NewChannel returns a reader named name over ch.
func NewChannel[T any](name string, ch <-chan T) *Channel[T] {
	return &Channel[T]{name: name, ch: ch}
}

func (c *Channel[T]) Name() string { return c.name }

// Read drains the channel until it is closed.
func (c *Channel[T]) Read(ctx context.Context) (pipeline.Iterator[any], error) {
	return c.Subscribe(ctx)
}

// Subscribe streams records until the channel is closed or ctx is done.
func (c *Channel[T]) Subscribe(ctx context.Context) (pipeline.Iterator[any], error) {
	return pipeline.Map(pipeline.From(pipeline.ChanIterator(c.ch, nil)), box[T]).Iter(ctx), nil
}
