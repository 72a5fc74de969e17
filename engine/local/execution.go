package local

import (
	"context"
	"fmt"
	"time"

	"github.com/kbukum/gears/bridge"
	"github.com/kbukum/gears/codec"
	"github.com/kbukum/gears/engine"
	"github.com/kbukum/gears/errors"
	"github.com/kbukum/gears/logger"
	"github.com/kbukum/gears/pipeline"
	"github.com/kbukum/gears/scope"
)

// Run executes the chain of h once over every record r reads.
func (e *Engine) Run(ctx context.Context, h engine.Handle, r engine.Reader) (*engine.Result, error) {
	src, ok := r.(engine.Source)
	if !ok {
		return nil, errors.InvalidInput("reader", fmt.Sprintf("%s cannot be run", r.Name()))
	}
	p, err := e.pipeline(h)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := e.run(ctx, p, src)
	if err != nil {
		return nil, err
	}

	e.metrics.RecordEmitted(ctx, r.Name(), len(res.Records))
	e.log.Debug("run finished", logger.Fields(
		logger.FieldPipeline, string(h),
		logger.FieldDuration, time.Since(start).Milliseconds(),
		"records", len(res.Records),
		"errors", len(res.Errors),
	))
	return res, nil
}

func (e *Engine) run(ctx context.Context, p *pipelineState, src engine.Source) (*engine.Result, error) {
	slot, err := e.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer e.pool.Release(slot)

	records, err := src.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", src.Name(), err)
	}
	x := &execution{steps: e.steps(p), slot: slot, log: e.log.WithFields(logger.Fields(logger.FieldPipeline, string(p.handle)))}
	return x.run(ctx, records)
}

// execution is one pass of a chain over a record stream. It is driven by a
// single goroutine.
type execution struct {
	steps []*bridge.Step
	slot  *scope.Slot
	log   *logger.Logger
	errs  []string
}

// run encodes the records onto the first edge, chains one stage per step and
// collects the frames of the last edge.
func (x *execution) run(ctx context.Context, records pipeline.Iterator[any]) (*engine.Result, error) {
	source := codec.NewEncoder()
	frames := pipeline.FlatMap(pipeline.From(records), func(_ context.Context, rec any) ([][]byte, error) {
		frame, err := source.Encode(rec, false)
		if err != nil {
			x.fail("reader", err)
			return nil, nil
		}
		return [][]byte{frame}, nil
	})

	upstream := source
	for _, step := range x.steps {
		frames, upstream = x.stage(frames, step, upstream)
	}

	out, err := pipeline.Collect(ctx, frames)
	if err != nil {
		return nil, err
	}
	return &engine.Result{Records: out, Errors: x.errs}, nil
}

// stage decodes frames produced by upstream and returns the frames of a new
// edge along with its encoder.
func (x *execution) stage(frames *pipeline.Pipeline[[]byte], step *bridge.Step, upstream *codec.Encoder) (*pipeline.Pipeline[[]byte], *codec.Encoder) {
	in := codec.NewDecoder()
	out := codec.NewEncoder()
	if step.Op().Kind.Folds() {
		return x.fold(frames, step, upstream, in, out), out
	}
	return pipeline.FlatMap(frames, func(ctx context.Context, frame []byte) ([][]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		in.AddData(frame)
		res, err := step.Process(ctx, x.slot, in, out, nil)
		if err != nil {
			x.skip(step, err, upstream, in, out)
			return nil, nil
		}
		return res.Frames, nil
	}), out
}

// foldState is the per-key accumulator frames of one fold step, in first
// seen key order.
type foldState struct {
	keys   []string
	states map[string][]byte
}

func (s *foldState) lookup(key string) []byte { return s.states[key] }

func (s *foldState) put(key string, state []byte) {
	if _, ok := s.states[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.states[key] = state
}

func (x *execution) fold(frames *pipeline.Pipeline[[]byte], step *bridge.Step, upstream *codec.Encoder, in *codec.Decoder, out *codec.Encoder) *pipeline.Pipeline[[]byte] {
	folded := pipeline.Reduce(frames, &foldState{states: make(map[string][]byte)},
		func(ctx context.Context, st *foldState, frame []byte) (*foldState, error) {
			if err := ctx.Err(); err != nil {
				return st, err
			}
			in.AddData(frame)
			res, err := step.Process(ctx, x.slot, in, out, st.lookup)
			if err != nil {
				x.skip(step, err, upstream, in, nil)
				return st, nil
			}
			st.put(res.Key, res.State)
			return st, nil
		})

	return pipeline.FlatMap(folded, func(ctx context.Context, st *foldState) ([][]byte, error) {
		frames := make([][]byte, 0, len(st.keys))
		for _, key := range st.keys {
			frame, err := step.EmitState(ctx, x.slot, st.states[key], out)
			if err != nil {
				x.fail(step.Op().Name(), err)
				out.Reset()
				continue
			}
			if frame != nil {
				frames = append(frames, frame)
			}
		}
		return frames, nil
	})
}

// skip records a failed record and puts the edges back in a state the next
// record can use: a decode failure leaves the upstream stream unreadable, and
// a step that failed midway may have sent type definitions in frames that are
// now dropped.
func (x *execution) skip(step *bridge.Step, err error, upstream *codec.Encoder, in *codec.Decoder, out *codec.Encoder) {
	x.fail(step.Op().Name(), err)
	if errors.Is(err, errors.ErrCodeDeserialization) {
		upstream.Reset()
		in.Reset()
	}
	if out != nil {
		out.Reset()
	}
}

func (x *execution) fail(where string, err error) {
	msg := err.Error()
	fields := logger.Fields(logger.FieldStep, where, logger.FieldError, msg)
	if appErr, ok := errors.AsAppError(err); ok {
		if trace, ok := appErr.Details["trace"].(string); ok {
			msg += "\n" + trace
		}
		fields["code"] = string(appErr.Code)
	}
	x.errs = append(x.errs, msg)
	x.log.Warn("record failed", fields)
}
