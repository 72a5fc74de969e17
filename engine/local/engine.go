package local

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/gears/bridge"
	"github.com/kbukum/gears/engine"
	"github.com/kbukum/gears/errors"
	"github.com/kbukum/gears/logger"
	"github.com/kbukum/gears/observability"
	"github.com/kbukum/gears/resilience"
	"github.com/kbukum/gears/scope"
)

// controlSlot is the id of the throwaway slots used outside the worker pool,
// for descriptor preparation and lifecycle hooks.
const controlSlot = -1

// Store is the backing store commands are sent to.
type Store interface {
	Do(ctx context.Context, args ...any) (any, error)
	ConfigGet(ctx context.Context, key string) (string, bool, error)
}

// replyError is implemented by errors the store replied with, such as
// WRONGTYPE. They do not count against the store breaker.
type replyError interface {
	RedisError()
}

func storeFailure(err error) bool {
	var reply replyError
	return !stderrors.As(err, &reply) &&
		!stderrors.Is(err, context.Canceled) &&
		!stderrors.Is(err, context.DeadlineExceeded)
}

type pipelineState struct {
	handle      engine.Handle
	reader      string
	description string
	bridge      *bridge.Bridge
	steps       []*bridge.Step
	createdAt   time.Time
}

// Engine runs pipelines in the current process.
type Engine struct {
	cfg          Config
	batchTimeout time.Duration
	store        Store
	breaker      *resilience.Breaker
	log          *logger.Logger
	metrics      *observability.Metrics
	pool         *scope.Pool

	mu            sync.Mutex
	pipelines     map[engine.Handle]*pipelineState
	registrations map[string]*registration
	closed        bool
}

var _ engine.Engine = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics records step and registration metrics into m.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithStore sends Execute and ConfigGet to s.
func WithStore(s Store) Option {
	return func(e *Engine) { e.store = s }
}

// New creates an engine. Without a store, Execute fails and ConfigGet only
// serves cfg.Settings.
func New(cfg Config, log *logger.Logger, opts ...Option) (*Engine, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	timeout, _ := cfg.batchTimeout()
	openTimeout, _ := time.ParseDuration(cfg.BreakerTimeout)
	if log == nil {
		log = logger.Nop()
	}
	log = log.WithComponent("engine.local")
	e := &Engine{
		cfg:           cfg,
		batchTimeout:  timeout,
		log:           log,
		pool:          scope.NewPool(cfg.Workers),
		pipelines:     make(map[engine.Handle]*pipelineState),
		registrations: make(map[string]*registration),
	}
	e.breaker = resilience.NewBreaker(resilience.BreakerConfig{
		Name:        "store",
		MaxFailures: cfg.BreakerFailures,
		OpenTimeout: openTimeout,
		IsFailure:   storeFailure,
		OnStateChange: func(name string, from, to resilience.State) {
			log.Warn("store breaker state changed", logger.Fields(
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			))
		},
	})
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

func (e *Engine) Create(_ context.Context, reader, description string, sc *scope.Scope) (engine.Handle, error) {
	if sc == nil {
		return "", errors.InvalidInput("scope", "is required")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return "", errors.InvalidState("engine is closed")
	}
	h := engine.Handle(uuid.NewString())
	e.pipelines[h] = &pipelineState{
		handle:      h,
		reader:      reader,
		description: description,
		bridge:      bridge.New(sc, bridge.WithLogger(e.log), bridge.WithMetrics(e.metrics)),
		createdAt:   time.Now(),
	}
	e.log.Debug("pipeline created", logger.Fields(
		logger.FieldPipeline, string(h),
		logger.FieldReader, reader,
	))
	return h, nil
}

// Append prepares the step so a bad descriptor fails here rather than on
// the first record.
func (e *Engine) Append(ctx context.Context, h engine.Handle, descriptor []byte) error {
	p, err := e.pipeline(h)
	if err != nil {
		return err
	}
	step, err := p.bridge.Prepare(ctx, scope.NewSlot(controlSlot), descriptor)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	p.steps = append(p.steps, step)
	return nil
}

func (e *Engine) Destroy(_ context.Context, h engine.Handle) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.pipelines[h]; !ok {
		return errors.NotFound("pipeline", string(h))
	}
	delete(e.pipelines, h)
	e.log.Debug("pipeline destroyed", logger.Fields(logger.FieldPipeline, string(h)))
	return nil
}

// pipeline returns h with a snapshot of its steps.
func (e *Engine) pipeline(h engine.Handle) (*pipelineState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, errors.InvalidState("engine is closed")
	}
	p, ok := e.pipelines[h]
	if !ok {
		return nil, errors.NotFound("pipeline", string(h))
	}
	return p, nil
}

func (e *Engine) steps(p *pipelineState) []*bridge.Step {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*bridge.Step(nil), p.steps...)
}

func (e *Engine) Execute(ctx context.Context, args ...string) (any, error) {
	if e.store == nil {
		return nil, errors.ServiceUnavailable("store")
	}
	if len(args) == 0 {
		return nil, errors.InvalidInput("command", "is empty")
	}
	cmd := make([]any, len(args))
	for i, a := range args {
		cmd[i] = a
	}
	res, err := resilience.Call(e.breaker, func() (any, error) {
		return e.store.Do(ctx, cmd...)
	})
	if stderrors.Is(err, resilience.ErrOpen) {
		return nil, errors.ServiceUnavailable("store").WithCause(err)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", args[0], err)
	}
	return res, nil
}

func (e *Engine) ConfigGet(ctx context.Context, key string) (string, bool, error) {
	if v, ok := e.cfg.Settings[key]; ok {
		return v, true, nil
	}
	if e.store == nil {
		return "", false, nil
	}
	var (
		v  string
		ok bool
	)
	err := e.breaker.Do(func() error {
		var err error
		v, ok, err = e.store.ConfigGet(ctx, key)
		return err
	})
	if stderrors.Is(err, resilience.ErrOpen) {
		return "", false, errors.ServiceUnavailable("store").WithCause(err)
	}
	return v, ok, err
}

func (e *Engine) Log(_ context.Context, level logger.Level, msg string) {
	e.log.Log(level, msg)
}

func (e *Engine) Hashtag() string { return e.cfg.Hashtag }

// StoreState reports the store breaker state.
func (e *Engine) StoreState() resilience.State { return e.breaker.State() }

// Close ends every registration and drops every pipeline. Later calls fail
// with INVALID_STATE.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	regs := make([]*registration, 0, len(e.registrations))
	for _, reg := range e.registrations {
		regs = append(regs, reg)
	}
	e.pipelines = make(map[engine.Handle]*pipelineState)
	e.mu.Unlock()

	var firstErr error
	for _, reg := range regs {
		if err := e.stop(ctx, reg); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	e.log.Info("engine closed", logger.Fields("registrations", len(regs)))
	return firstErr
}
