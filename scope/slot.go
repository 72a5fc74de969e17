package scope

import (
	"context"
	"sync"
)

// Slot is the ambient execution context of one worker.
type Slot struct {
	id int

	mu      sync.Mutex
	current *Scope
	lastID  string
}

// NewSlot returns an empty slot.
func NewSlot(id int) *Slot {
	return &Slot{id: id}
}

// ID returns the slot number.
func (s *Slot) ID() int { return s.id }

// Enter installs sc as the current scope. It reports whether sc differs from
// the scope the slot served last, in which case per-slot encoder state must
// not be reused.
func (s *Slot) Enter(sc *Scope) (changed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = sc
	if sc == nil {
		return s.lastID != ""
	}
	changed = s.lastID != sc.ID()
	s.lastID = sc.ID()
	return changed
}

// Exit clears the current scope.
func (s *Slot) Exit() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}

// Current returns the installed scope, or nil when the slot is clear.
func (s *Slot) Current() *Scope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Within runs fn with sc installed on slot and carried by the context. The
// slot is cleared when fn returns, fails or panics.
func Within(ctx context.Context, slot *Slot, sc *Scope, fn func(ctx context.Context, changed bool) error) error {
	changed := slot.Enter(sc)
	defer slot.Exit()
	return fn(WithScope(ctx, sc), changed)
}
