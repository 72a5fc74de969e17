package scope

import (
	"context"
)

// Pool hands out a fixed number of slots to concurrent workers.
type Pool struct {
	slots chan *Slot
	size  int
}

// NewPool creates a pool of n slots (at least one).
func NewPool(n int) *Pool {
	if n < 1 {
		n = 1
	}
	p := &Pool{slots: make(chan *Slot, n), size: n}
	for i := 0; i < n; i++ {
		p.slots <- NewSlot(i)
	}
	return p
}

// Size returns the number of slots.
func (p *Pool) Size() int { return p.size }

// Acquire blocks until a slot is free or ctx is done.
func (p *Pool) Acquire(ctx context.Context) (*Slot, error) {
	select {
	case s := <-p.slots:
		return s, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns a slot to the pool.
func (p *Pool) Release(s *Slot) {
	p.slots <- s
}
