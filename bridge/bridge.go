package bridge

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/gears/codec"
	"github.com/kbukum/gears/errors"
	"github.com/kbukum/gears/logger"
	"github.com/kbukum/gears/observability"
	"github.com/kbukum/gears/operation"
	"github.com/kbukum/gears/scope"
)

// Bridge runs callbacks for the steps of one pipeline.
type Bridge struct {
	sc      *scope.Scope
	log     *logger.Logger
	metrics *observability.Metrics
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger used for callback failures.
func WithLogger(l *logger.Logger) Option {
	return func(b *Bridge) { b.log = l }
}

// WithMetrics sets the instruments callbacks record into.
func WithMetrics(m *observability.Metrics) Option {
	return func(b *Bridge) { b.metrics = m }
}

// New returns a bridge resolving functions in sc.
func New(sc *scope.Scope, opts ...Option) *Bridge {
	b := &Bridge{sc: sc, log: logger.Nop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Scope returns the scope callbacks run in.
func (b *Bridge) Scope() *scope.Scope { return b.sc }

// Prepare decodes a step descriptor and resolves its functions inside the
// scope.
func (b *Bridge) Prepare(ctx context.Context, slot *scope.Slot, descriptor []byte) (*Step, error) {
	var step *Step
	err := scope.Within(ctx, slot, b.sc, func(ctx context.Context, _ bool) error {
		op, err := operation.Decode(descriptor)
		if err != nil {
			return err
		}
		if err := op.Validate(); err != nil {
			return errors.Deserialization("operation", err)
		}
		step, err = resolve(scope.FromContext(ctx), op)
		if err != nil {
			return err
		}
		step.bridge = b
		return nil
	})
	return step, err
}

// Hook runs a lifecycle hook descriptor. A nil descriptor is a no-op.
func (b *Bridge) Hook(ctx context.Context, slot *scope.Slot, descriptor []byte) error {
	if descriptor == nil {
		return nil
	}
	ctx, span := observability.StartSpan(ctx, observability.SpanHook)
	err := scope.Within(ctx, slot, b.sc, func(ctx context.Context, _ bool) (err error) {
		op, err := operation.Decode(descriptor)
		if err != nil {
			return err
		}
		if !op.Kind.Hook() {
			return errors.Deserialization("hook", fmt.Errorf("descriptor is a %s step", op.Kind))
		}
		defer recoverTransform(op.Name(), &err)
		fn, err := scope.ResolveAs[operation.HookFunc](scope.FromContext(ctx), op.Fn)
		if err != nil {
			return err
		}
		if err := fn(ctx); err != nil {
			return transformError(op.Name(), err)
		}
		return nil
	})
	observability.EndSpan(span, err)
	return err
}

func recoverTransform(step string, errp *error) {
	if r := recover(); r != nil {
		*errp = errors.Transform(step, fmt.Errorf("panic: %v", r), string(debug.Stack()))
	}
}

// transformError wraps a user function failure. Decoding failures raised by
// the typed adapters keep their code.
func transformError(step string, err error) error {
	switch errors.CodeOf(err) {
	case errors.ErrCodeDeserialization, errors.ErrCodeSerialization, errors.ErrCodeTransform:
		return err
	}
	return errors.Transform(step, err, string(debug.Stack()))
}

func (b *Bridge) observe(ctx context.Context, op operation.Operation, start time.Time, err error) {
	code := ""
	if err != nil {
		code = string(errors.CodeOf(err))
		b.log.Debug("step callback failed", logger.Fields(
			logger.FieldStep, op.Name(),
			logger.FieldError, err.Error(),
		))
	}
	b.metrics.RecordStep(ctx, op.Kind.String(), code, time.Since(start))
}

func stepAttrs(op operation.Operation) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(observability.AttrStep, op.Name()),
		attribute.String(observability.AttrKind, op.Kind.String()),
	}
}

// RecordString renders a record for logs and error reports.
func RecordString(v any) string {
	switch r := v.(type) {
	case nil:
		return "<nil>"
	case string:
		return r
	case []byte:
		return string(r)
	case fmt.Stringer:
		return r.String()
	}
	return fmt.Sprintf("%+v", v)
}

// decodeState turns a standalone accumulator frame into a value; nil is absent.
func decodeState(frame []byte) (any, error) {
	if frame == nil {
		return nil, nil
	}
	return codec.Unmarshal(frame)
}
