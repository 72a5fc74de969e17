package scope

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/kbukum/gears/errors"
)

// Scope resolves function references for one pipeline.
type Scope struct {
	id   string
	name string

	mu     sync.RWMutex
	fns    map[string]any
	closed bool
}

// New creates an empty scope.
func New(name string) *Scope {
	return &Scope{
		id:   uuid.NewString(),
		name: name,
		fns:  make(map[string]any),
	}
}

// ID returns the scope's unique id.
func (s *Scope) ID() string { return s.id }

// Name returns the human-readable scope name.
func (s *Scope) Name() string { return s.name }

// Bind stores fn and returns the reference used to resolve it later.
func (s *Scope) Bind(fn any) string {
	ref := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.fns[ref] = fn
	}
	return ref
}

// Resolve returns the function bound under ref.
func (s *Scope) Resolve(ref string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errors.Deserialization("function reference", fmt.Errorf("scope %s is closed", s.id))
	}
	fn, ok := s.fns[ref]
	if !ok {
		return nil, errors.Deserialization("function reference", fmt.Errorf("%q is not bound in scope %s", ref, s.id))
	}
	return fn, nil
}

// Len returns the number of bound functions.
func (s *Scope) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.fns)
}

// Close drops every binding. Later resolutions fail.
func (s *Scope) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.fns = nil
}

// ResolveAs resolves ref and asserts its type.
func ResolveAs[F any](s *Scope, ref string) (F, error) {
	var zero F
	if s == nil {
		return zero, errors.Deserialization("function reference", fmt.Errorf("no active scope"))
	}
	v, err := s.Resolve(ref)
	if err != nil {
		return zero, err
	}
	fn, ok := v.(F)
	if !ok {
		return zero, errors.Deserialization("function reference", fmt.Errorf("%q is %T, want %T", ref, v, zero))
	}
	return fn, nil
}

type contextKey struct{}

// WithScope returns a context carrying s.
func WithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the scope carried by ctx, or nil.
func FromContext(ctx context.Context) *Scope {
	s, _ := ctx.Value(contextKey{}).(*Scope)
	return s
}
