package local

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/gears/engine"
	"github.com/kbukum/gears/errors"
	"github.com/kbukum/gears/logger"
	"github.com/kbukum/gears/observability"
	"github.com/kbukum/gears/pipeline"
	"github.com/kbukum/gears/scope"
)

// hookTimeout bounds the OnUnregistered hook, which runs detached from any
// caller context.
const hookTimeout = 30 * time.Second

// RegistrationInfo describes an active registration.
type RegistrationInfo struct {
	ID          string        `json:"id"`
	Pipeline    engine.Handle `json:"pipeline"`
	Reader      string        `json:"reader"`
	Mode        string        `json:"mode"`
	Description string        `json:"description,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	Executions  int64         `json:"executions"`
	Failures    int64         `json:"failures"`
}

type registration struct {
	id        string
	p         *pipelineState
	reader    string
	mode      engine.Mode
	hooks     engine.Hooks
	createdAt time.Time
	log       *logger.Logger

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	executions atomic.Int64
	failures   atomic.Int64
}

func (r *registration) info() RegistrationInfo {
	return RegistrationInfo{
		ID:          r.id,
		Pipeline:    r.p.handle,
		Reader:      r.reader,
		Mode:        r.mode.String(),
		Description: r.p.description,
		CreatedAt:   r.createdAt,
		Executions:  r.executions.Load(),
		Failures:    r.failures.Load(),
	}
}

// Register subscribes to r and triggers executions of h until Unregister or
// Close, or until the subscription ends. It returns once OnRegistered has
// run; if the hook fails nothing is registered.
func (e *Engine) Register(ctx context.Context, h engine.Handle, r engine.Reader, mode engine.Mode, hooks engine.Hooks) (string, error) {
	sub, ok := r.(engine.Subscriber)
	if !ok {
		return "", errors.InvalidInput("reader", fmt.Sprintf("%s cannot be registered", r.Name()))
	}
	p, err := e.pipeline(h)
	if err != nil {
		return "", err
	}

	// the registration outlives the request that created it
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	records, err := sub.Subscribe(runCtx)
	if err != nil {
		cancel()
		return "", fmt.Errorf("subscribe %s: %w", r.Name(), err)
	}
	if err := p.bridge.Hook(ctx, scope.NewSlot(controlSlot), hooks.OnRegistered); err != nil {
		_ = records.Close()
		cancel()
		return "", err
	}

	reg := &registration{
		id:        uuid.NewString(),
		p:         p,
		reader:    r.Name(),
		mode:      mode,
		hooks:     hooks,
		createdAt: time.Now(),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	reg.log = e.log.WithFields(logger.Fields(
		logger.FieldRegistration, reg.id,
		logger.FieldPipeline, string(h),
		logger.FieldMode, mode.String(),
	))

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		_ = records.Close()
		cancel()
		return "", errors.InvalidState("engine is closed")
	}
	e.registrations[reg.id] = reg
	e.mu.Unlock()

	e.metrics.RegistrationStarted(ctx, mode.String())
	reg.log.Info("registration started", logger.Fields(logger.FieldReader, reg.reader))

	go e.serve(runCtx, reg, records)
	return reg.id, nil
}

// serve drives one registration until its context ends or the subscription
// is exhausted.
func (e *Engine) serve(ctx context.Context, reg *registration, records pipeline.Iterator[any]) {
	defer close(reg.done)

	batches := pipeline.Batch(pipeline.From(records), e.cfg.BatchSize, e.batchTimeout)
	trigger := func(ctx context.Context, batch []any) error {
		return e.trigger(ctx, reg, batch)
	}

	var err error
	switch reg.mode {
	case engine.ModeSync:
		err = pipeline.ForEach(ctx, batches, trigger)
	case engine.ModeAsyncLocal:
		err = pipeline.ForEach(ctx, pipeline.Buffer(batches, e.pool.Size()), trigger)
	default:
		err = pipeline.ParallelForEach(ctx, batches, e.pool.Size(), trigger)
	}
	if err != nil && ctx.Err() == nil {
		reg.log.Error("registration stopped", logger.Fields(logger.FieldError, err.Error()))
	}
	e.end(reg)
}

// trigger runs one execution over batch. Failures are counted, never
// returned, so one bad execution does not stop the registration.
func (e *Engine) trigger(ctx context.Context, reg *registration, batch []any) error {
	slot, err := e.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer e.pool.Release(slot)

	ctx, span := observability.StartSpan(ctx, observability.SpanRun,
		attribute.String(observability.AttrRegistration, reg.id),
		attribute.String(observability.AttrReader, reg.reader),
	)
	x := &execution{steps: e.steps(reg.p), slot: slot, log: reg.log}
	res, err := x.run(ctx, pipeline.SliceIterator(batch))
	observability.EndSpan(span, err)

	reg.executions.Add(1)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		reg.failures.Add(1)
		reg.log.Error("execution failed", logger.Fields(logger.FieldError, err.Error()))
		return nil
	}
	reg.failures.Add(int64(len(res.Errors)))
	e.metrics.RecordEmitted(ctx, reg.reader, len(res.Records))
	return nil
}

// end fires OnUnregistered and drops the registration, once.
func (e *Engine) end(reg *registration) {
	reg.once.Do(func() {
		reg.cancel()
		ctx, cancel := context.WithTimeout(context.Background(), hookTimeout)
		defer cancel()
		if err := reg.p.bridge.Hook(ctx, scope.NewSlot(controlSlot), reg.hooks.OnUnregistered); err != nil {
			reg.log.Warn("unregister hook failed", logger.Fields(logger.FieldError, err.Error()))
		}

		e.mu.Lock()
		delete(e.registrations, reg.id)
		e.mu.Unlock()

		e.metrics.RegistrationEnded(ctx, reg.mode.String())
		reg.log.Info("registration ended", logger.Fields(
			"executions", reg.executions.Load(),
			"failures", reg.failures.Load(),
		))
	})
}

// stop cancels a registration and waits for its loop to finish.
func (e *Engine) stop(ctx context.Context, reg *registration) error {
	reg.cancel()
	select {
	case <-reg.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Unregister ends the registration id and waits until OnUnregistered has run.
func (e *Engine) Unregister(ctx context.Context, id string) error {
	e.mu.Lock()
	reg, ok := e.registrations[id]
	e.mu.Unlock()
	if !ok {
		return errors.NotFound("registration", id)
	}
	return e.stop(ctx, reg)
}

// Registrations lists the active registrations, oldest first.
func (e *Engine) Registrations() []RegistrationInfo {
	e.mu.Lock()
	infos := make([]RegistrationInfo, 0, len(e.registrations))
	for _, reg := range e.registrations {
		infos = append(infos, reg.info())
	}
	e.mu.Unlock()
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos
}

// Registration returns the active registration id.
func (e *Engine) Registration(id string) (RegistrationInfo, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	reg, ok := e.registrations[id]
	if !ok {
		return RegistrationInfo{}, false
	}
	return reg.info(), true
}
