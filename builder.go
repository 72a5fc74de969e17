package gears

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/kbukum/gears/codec"
	"github.com/kbukum/gears/engine"
	"github.com/kbukum/gears/errors"
	"github.com/kbukum/gears/logger"
	"github.com/kbukum/gears/operation"
	"github.com/kbukum/gears/scope"
)

type chainState int

const (
	stateBuilt chainState = iota
	stateRan
	stateRegistered
	stateClosed
)

func (s chainState) String() string {
	switch s {
	case stateBuilt:
		return "built"
	case stateRan:
		return "ran"
	case stateRegistered:
		return "registered"
	case stateClosed:
		return "closed"
	}
	return "unknown"
}

// chain is the state shared by every typed view of one pipeline.
type chain struct {
	mu       sync.Mutex
	ctx      context.Context
	eng      engine.Engine
	reader   engine.Reader
	handle   engine.Handle
	sc       *scope.Scope
	log      *logger.Logger
	ops      []operation.Operation
	err      error
	state    chainState
	inFlight bool
	regID    string
	regEnded bool
}

// Builder is a typed view of a pipeline whose current output records are T.
type Builder[T any] struct {
	c *chain
}

// Option configures New.
type Option func(*options)

type options struct {
	description string
	log         *logger.Logger
}

// WithDescription sets the description passed to the engine.
func WithDescription(desc string) Option {
	return func(o *options) { o.description = desc }
}

// WithLogger sets the logger used by the builder.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// New creates a pipeline reading records of type T from r. Steps appended
// later use ctx for their engine calls.
func New[T any](ctx context.Context, eng engine.Engine, r engine.Reader, opts ...Option) (*Builder[T], error) {
	if eng == nil {
		return nil, errors.Construction("engine is nil")
	}
	if r == nil || reflect.ValueOf(r).Kind() == reflect.Pointer && reflect.ValueOf(r).IsNil() {
		return nil, errors.Construction("reader is nil")
	}
	if r.Name() == "" {
		return nil, errors.Construction("reader has no name")
	}

	if in := typeOf[T](); in.err != nil {
		return nil, in.err
	}

	o := options{log: logger.GetGlobalLogger()}
	for _, opt := range opts {
		opt(&o)
	}

	sc := scope.New(r.Name())
	h, err := eng.Create(ctx, r.Name(), o.description, sc)
	if err != nil {
		sc.Close()
		return nil, errors.EngineCall("create", err)
	}

	c := &chain{
		ctx:    ctx,
		eng:    eng,
		reader: r,
		handle: h,
		sc:     sc,
		log: o.log.WithComponent("builder").WithFields(logger.Fields(
			logger.FieldPipeline, string(h),
			logger.FieldReader, r.Name(),
		)),
	}
	c.log.Debug("pipeline created")
	return &Builder[T]{c: c}, nil
}

// Err returns the first failure recorded by the chain.
func (b *Builder[T]) Err() error {
	b.c.mu.Lock()
	defer b.c.mu.Unlock()
	return b.c.err
}

// Handle returns the engine handle shared by every view of the pipeline.
func (b *Builder[T]) Handle() engine.Handle { return b.c.handle }

// Reader returns the reader the pipeline was created for.
func (b *Builder[T]) Reader() engine.Reader { return b.c.reader }

// Operations returns a copy of the appended step descriptors in order.
func (b *Builder[T]) Operations() []operation.Operation {
	b.c.mu.Lock()
	defer b.c.mu.Unlock()
	return append([]operation.Operation(nil), b.c.ops...)
}

// recordType names a record type for step descriptors. err is set when the
// type could not be registered with the codec.
type recordType struct {
	name string
	err  error
}

// typeOf names T and registers it with the codec so records of T can cross
// the engine boundary.
func typeOf[T any]() recordType {
	t := recordType{name: reflect.TypeFor[T]().String()}
	if err := codec.RegisterType[T](); err != nil {
		t.err = errors.Serialization(t.name, err)
	}
	return t
}

func view[O, T any](b *Builder[T]) *Builder[O] {
	return &Builder[O]{c: b.c}
}

// step is an operation whose functions are not bound yet.
type step struct {
	kind        operation.Kind
	in, out     recordType
	fn          any
	extractor   any
	initializer any
}

// append binds the step's functions, encodes the descriptor and hands it to
// the engine. It is a no-op once the chain has failed.
func (c *chain) append(ctx context.Context, s step) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return
	}
	if c.state != stateBuilt {
		c.err = errors.InvalidState("cannot append a step to a " + c.state.String() + " pipeline")
		return
	}
	for _, t := range []recordType{s.in, s.out} {
		if t.err != nil {
			c.err = t.err
			return
		}
	}
	if err := c.accepts(s.in.name); err != nil {
		c.err = err
		return
	}

	op := operation.Operation{
		Kind:    s.kind,
		Index:   len(c.ops),
		InType:  s.in.name,
		OutType: s.out.name,
	}
	if s.fn != nil {
		op.Fn = c.sc.Bind(s.fn)
	}
	if s.extractor != nil {
		op.Extractor = c.sc.Bind(s.extractor)
	}
	if s.initializer != nil {
		op.Initializer = c.sc.Bind(s.initializer)
	}

	data, err := operation.Encode(op)
	if err != nil {
		c.err = err
		return
	}
	if err := c.eng.Append(ctx, c.handle, data); err != nil {
		c.err = errors.EngineCall("append", err)
		c.log.Warn("append failed", logger.Fields(
			logger.FieldStep, op.Name(),
			logger.FieldError, err.Error(),
		))
		return
	}
	c.ops = append(c.ops, op)
	c.log.Debug("step appended", logger.Fields(logger.FieldStep, op.Name()))
}

// accepts reports whether records of type in are what the chain currently
// emits. A view taken before a type-changing step no longer matches. Callers
// hold c.mu.
func (c *chain) accepts(in string) error {
	if len(c.ops) == 0 {
		return nil
	}
	if out := c.ops[len(c.ops)-1].OutType; out != in {
		return errors.InvalidState(fmt.Sprintf("a %s view cannot extend a pipeline emitting %s", in, out))
	}
	return nil
}

// expect records a sticky failure when the chain no longer emits in.
func (c *chain) expect(in string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	if err := c.accepts(in); err != nil {
		c.err = err
	}
	return c.err
}

func (c *chain) lastKind() operation.Kind {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.ops) == 0 {
		return 0
	}
	return c.ops[len(c.ops)-1].Kind
}

// begin moves a built chain into a terminal state and marks an engine call in
// flight.
func (c *chain) begin(next chainState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	if c.state != stateBuilt {
		return errors.InvalidState("pipeline is already " + c.state.String())
	}
	c.state = next
	c.inFlight = true
	return nil
}

func (c *chain) finish(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false
	if err != nil && c.err == nil {
		c.err = err
	}
}

// Close destroys the engine pipeline. It is safe to call more than once and
// refused while Run or Register is in flight. The function scope of a
// registered pipeline stays alive until the registration ends.
func (b *Builder[T]) Close(ctx context.Context) error {
	c := b.c
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight {
		return errors.InvalidState("cannot close a pipeline while a call is in flight")
	}
	if c.state == stateClosed {
		return nil
	}
	registered := c.state == stateRegistered && c.regID != "" && !c.regEnded
	c.state = stateClosed
	if !registered {
		defer c.sc.Close()
	}
	if err := c.eng.Destroy(ctx, c.handle); err != nil {
		return errors.EngineCall("destroy", err)
	}
	c.log.Debug("pipeline destroyed")
	return nil
}
