package gears

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/gears/codec"
	"github.com/kbukum/gears/errors"
	"github.com/kbukum/gears/logger"
	"github.com/kbukum/gears/observability"
)

// Result is the outcome of a run.
type Result struct {
	// Records are the final records in engine order.
	Records []any
	// Errors has one message per record that failed in a step.
	Errors []string
}

// RunOption configures Run.
type RunOption func(*runOptions)

type runOptions struct {
	json    bool
	collect bool
}

// WithJSON controls whether final records are converted to JSON strings.
// Defaults to true.
func WithJSON(enabled bool) RunOption {
	return func(o *runOptions) { o.json = enabled }
}

// WithAutoCollect controls whether a Collect step is appended before running.
// Defaults to true.
func WithAutoCollect(enabled bool) RunOption {
	return func(o *runOptions) { o.collect = enabled }
}

// Run executes the pipeline once over the reader's records. The builder is
// terminal afterwards.
func (b *Builder[T]) Run(ctx context.Context, opts ...RunOption) (*Result, error) {
	o := runOptions{json: true, collect: true}
	for _, opt := range opts {
		opt(&o)
	}

	c := b.c
	ctx, span := observability.StartSpan(ctx, observability.SpanRun,
		attribute.String(observability.AttrPipeline, string(c.handle)),
		attribute.String(observability.AttrReader, c.reader.Name()),
	)
	res, err := b.run(ctx, o)
	observability.EndSpan(span, err)
	return res, err
}

func (b *Builder[T]) run(ctx context.Context, o runOptions) (*Result, error) {
	c := b.c
	if err := c.expect(typeOf[T]().name); err != nil {
		return nil, err
	}
	if o.json {
		out := Map(b, func(_ context.Context, r T) (string, error) {
			data, err := json.Marshal(r)
			if err != nil {
				return "", errors.Serialization(typeOf[T]().name, err)
			}
			return string(data), nil
		})
		if o.collect {
			out.collect(ctx)
		}
	} else if o.collect {
		b.collect(ctx)
	}

	if err := c.begin(stateRan); err != nil {
		return nil, err
	}
	start := time.Now()
	raw, err := c.eng.Run(ctx, c.handle, c.reader)
	if err != nil {
		err = errors.EngineCall("run", err)
		c.finish(err)
		c.log.Error("run failed", logger.ErrorFields("run", err))
		return nil, err
	}
	c.finish(nil)

	res := &Result{Errors: append([]string(nil), raw.Errors...)}
	dec := codec.NewDecoder()
	for _, frame := range raw.Records {
		dec.AddData(frame)
		v, err := dec.Decode()
		if err == codec.ErrIncomplete {
			return nil, errors.Deserialization("result", err)
		}
		if err != nil {
			return nil, err
		}
		res.Records = append(res.Records, v)
	}

	c.log.Info("run completed", logger.Fields(
		"records", len(res.Records),
		"errors", len(res.Errors),
		logger.FieldDuration, time.Since(start).Milliseconds(),
	))
	return res, nil
}

// Values returns the records of res as T.
func Values[T any](res *Result) ([]T, error) {
	if res == nil {
		return nil, nil
	}
	out := make([]T, 0, len(res.Records))
	for _, r := range res.Records {
		v, err := codec.As[T](r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
