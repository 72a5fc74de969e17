package bridge

import (
	"context"
	"fmt"
	"time"

	"github.com/kbukum/gears/codec"
	"github.com/kbukum/gears/errors"
	"github.com/kbukum/gears/observability"
	"github.com/kbukum/gears/operation"
	"github.com/kbukum/gears/scope"
)

// Output is what one record callback produced.
type Output struct {
	// Frames are records emitted downstream, encoded on the out edge.
	Frames [][]byte
	// Key is the partition key of keyed and repartition steps.
	Key string
	// State is the new standalone accumulator frame of fold steps.
	State []byte
}

// StateLookup returns the current accumulator frame for key, or nil.
type StateLookup func(key string) []byte

// Step is an operation whose functions have been resolved.
type Step struct {
	op     operation.Operation
	bridge *Bridge

	mapFn     operation.MapFunc
	flatMapFn operation.FlatMapFunc
	filterFn  operation.FilterFunc
	foreachFn operation.ForeachFunc
	accFn     operation.AccumulateFunc
	accByFn   operation.AccumulateByFunc
	extractor operation.ExtractorFunc
	initFn    operation.InitializerFunc
}

// Op returns the step descriptor.
func (s *Step) Op() operation.Operation { return s.op }

func resolve(sc *scope.Scope, op operation.Operation) (*Step, error) {
	s := &Step{op: op}
	var err error
	switch op.Kind {
	case operation.KindMap:
		s.mapFn, err = scope.ResolveAs[operation.MapFunc](sc, op.Fn)
	case operation.KindFlatMap:
		s.flatMapFn, err = scope.ResolveAs[operation.FlatMapFunc](sc, op.Fn)
	case operation.KindFilter:
		s.filterFn, err = scope.ResolveAs[operation.FilterFunc](sc, op.Fn)
	case operation.KindForeach:
		s.foreachFn, err = scope.ResolveAs[operation.ForeachFunc](sc, op.Fn)
	case operation.KindAccumulate:
		s.accFn, err = scope.ResolveAs[operation.AccumulateFunc](sc, op.Fn)
	case operation.KindAccumulateBy, operation.KindLocalAccumulateBy:
		s.accByFn, err = scope.ResolveAs[operation.AccumulateByFunc](sc, op.Fn)
	case operation.KindRepartition, operation.KindCollect:
	default:
		err = errors.Deserialization("operation", fmt.Errorf("%s is not a record step", op.Kind))
	}
	if err != nil {
		return nil, err
	}
	if op.Kind.Keyed() {
		if s.extractor, err = scope.ResolveAs[operation.ExtractorFunc](sc, op.Extractor); err != nil {
			return nil, err
		}
	}
	if op.Initializer != "" {
		if s.initFn, err = scope.ResolveAs[operation.InitializerFunc](sc, op.Initializer); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Process decodes the next record from in, runs the step on it and encodes
// the outputs on out. Fold steps read their state through lookup and return
// the new state instead of emitting records.
func (s *Step) Process(ctx context.Context, slot *scope.Slot, in *codec.Decoder, out *codec.Encoder, lookup StateLookup) (Output, error) {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, observability.SpanStep, stepAttrs(s.op)...)

	var res Output
	err := scope.Within(ctx, slot, s.bridge.sc, func(ctx context.Context, changed bool) (err error) {
		defer recoverTransform(s.op.Name(), &err)
		rec, err := in.Decode()
		if err == codec.ErrIncomplete {
			return errors.Deserialization("record", err)
		}
		if err != nil {
			return err
		}
		res, err = s.invoke(ctx, rec, out, changed, lookup)
		return err
	})

	observability.EndSpan(span, err)
	s.bridge.observe(ctx, s.op, start, err)
	if err != nil {
		return Output{}, err
	}
	return res, nil
}

func (s *Step) invoke(ctx context.Context, rec any, out *codec.Encoder, reset bool, lookup StateLookup) (Output, error) {
	var res Output
	emit := func(v any) error {
		frame, err := out.Encode(v, reset)
		if err != nil {
			return err
		}
		reset = false
		res.Frames = append(res.Frames, frame)
		return nil
	}
	name := s.op.Name()

	switch s.op.Kind {
	case operation.KindMap:
		v, err := s.mapFn(ctx, rec)
		if err != nil {
			return res, transformError(name, err)
		}
		return res, emit(v)

	case operation.KindFlatMap:
		vs, err := s.flatMapFn(ctx, rec)
		if err != nil {
			return res, transformError(name, err)
		}
		for _, v := range vs {
			if err := emit(v); err != nil {
				return Output{}, err
			}
		}
		return res, nil

	case operation.KindFilter:
		keep, err := s.filterFn(ctx, rec)
		if err != nil {
			return res, transformError(name, err)
		}
		if !keep {
			return res, nil
		}
		return res, emit(rec)

	case operation.KindForeach:
		if err := s.foreachFn(ctx, rec); err != nil {
			return res, transformError(name, err)
		}
		return res, emit(rec)

	case operation.KindCollect:
		return res, emit(rec)

	case operation.KindRepartition:
		key, err := s.extractor(ctx, rec)
		if err != nil {
			return res, transformError(name, err)
		}
		res.Key = key
		return res, emit(rec)

	case operation.KindAccumulate:
		acc, err := decodeState(lookup(""))
		if err != nil {
			return res, err
		}
		next, err := s.accFn(ctx, acc, rec)
		if err != nil {
			return res, transformError(name, err)
		}
		res.State, err = codec.Marshal(next)
		return res, err

	case operation.KindAccumulateBy, operation.KindLocalAccumulateBy:
		key, err := s.extractor(ctx, rec)
		if err != nil {
			return res, transformError(name, err)
		}
		acc, err := decodeState(lookup(key))
		if err != nil {
			return res, err
		}
		if acc == nil && s.initFn != nil {
			if acc, err = s.initFn(ctx); err != nil {
				return res, transformError(name, err)
			}
		}
		next, err := s.accByFn(ctx, key, acc, rec)
		if err != nil {
			return res, transformError(name, err)
		}
		res.Key = key
		res.State, err = codec.Marshal(next)
		return res, err
	}
	return res, errors.Deserialization("operation", fmt.Errorf("%s is not a record step", s.op.Kind))
}

// EmitState re-encodes a final accumulator frame as a record on out. The
// absent state emits nothing.
func (s *Step) EmitState(ctx context.Context, slot *scope.Slot, state []byte, out *codec.Encoder) ([]byte, error) {
	var frame []byte
	err := scope.Within(ctx, slot, s.bridge.sc, func(ctx context.Context, changed bool) error {
		v, err := decodeState(state)
		if err != nil || v == nil {
			return err
		}
		frame, err = out.Encode(v, changed)
		return err
	})
	return frame, err
}
