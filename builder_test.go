package gears

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kbukum/gears/engine/enginetest"
	"github.com/kbukum/gears/errors"
	"github.com/kbukum/gears/logger"
	"github.com/kbukum/gears/operation"
)

func newBuilder[T any](t *testing.T, eng *enginetest.Engine) *Builder[T] {
	t.Helper()
	b, err := New[T](context.Background(), eng, enginetest.Reader("stream-A"), WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b
}

func kinds(ops []operation.Operation) []string {
	out := make([]string, len(ops))
	for i, op := range ops {
		out[i] = op.Kind.String()
	}
	return out
}

func TestNew_NilInputs(t *testing.T) {
	eng := enginetest.New()
	var nilReader *struct{ enginetest.Reader }

	tests := []struct {
		name string
		fn   func() error
	}{
		{"nil engine", func() error {
			_, err := New[int](context.Background(), nil, enginetest.Reader("r"))
			return err
		}},
		{"nil reader", func() error {
			_, err := New[int](context.Background(), eng, nil)
			return err
		}},
		{"typed nil reader", func() error {
			_, err := New[int](context.Background(), eng, nilReader)
			return err
		}},
		{"unnamed reader", func() error {
			_, err := New[int](context.Background(), eng, enginetest.Reader(""))
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); !errors.Is(err, errors.ErrCodeConstruction) {
				t.Errorf("expected CONSTRUCTION_ERROR, got %v", err)
			}
		})
	}
	if n := eng.Count(enginetest.Create); n != 0 {
		t.Errorf("no pipeline should be created, got %d create calls", n)
	}
}

func TestNew_PassesDescription(t *testing.T) {
	eng := enginetest.New()
	b, err := New[string](context.Background(), eng, enginetest.Reader("KeysReader"), WithDescription("word count"))
	if err != nil {
		t.Fatal(err)
	}
	p := eng.Pipeline(b.Handle())
	if p.Reader != "KeysReader" || p.Description != "word count" {
		t.Errorf("got reader %q description %q", p.Reader, p.Description)
	}
}

func TestNew_CreateFailure(t *testing.T) {
	eng := enginetest.New()
	eng.FailOn(enginetest.Create, fmt.Errorf("no memory"))
	_, err := New[int](context.Background(), eng, enginetest.Reader("r"))
	if !errors.Is(err, errors.ErrCodeEngineCall) {
		t.Errorf("expected ENGINE_CALL_ERROR, got %v", err)
	}
}

func TestChain_RecordsStepsInOrder(t *testing.T) {
	eng := enginetest.New()
	b := newBuilder[int](t, eng)

	strs := Map(b.Filter(func(_ context.Context, x int) (bool, error) { return x > 0, nil }),
		func(_ context.Context, x int) (string, error) { return strconv.Itoa(x), nil })
	words := FlatMap(strs, func(_ context.Context, s string) ([]string, error) { return []string{s, s}, nil })
	words.Foreach(func(context.Context, string) error { return nil }).
		Repartition(func(_ context.Context, s string) (string, error) { return s, nil }).
		Collect().
		Collect()

	want := []string{"filter", "map", "flatmap", "foreach", "repartition", "collect"}
	if diff := cmp.Diff(want, kinds(b.Operations())); diff != "" {
		t.Errorf("operations mismatch (-want +got):\n%s", diff)
	}

	ops, err := eng.Operations(b.Handle())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(b.Operations(), ops); diff != "" {
		t.Errorf("engine saw different descriptors (-builder +engine):\n%s", diff)
	}
	if ops[1].InType != "int" || ops[1].OutType != "string" {
		t.Errorf("map types = %s -> %s", ops[1].InType, ops[1].OutType)
	}
	if words.Handle() != b.Handle() {
		t.Error("typed views must share one handle")
	}
}

func TestChain_AppendFailureIsSticky(t *testing.T) {
	eng := enginetest.New()
	b := newBuilder[int](t, eng)
	eng.FailOn(enginetest.Append, fmt.Errorf("pipeline gone"))

	out := Map(b, func(_ context.Context, x int) (int, error) { return x, nil }).
		Filter(func(context.Context, int) (bool, error) { return true, nil })

	if !errors.Is(out.Err(), errors.ErrCodeEngineCall) {
		t.Fatalf("expected sticky ENGINE_CALL_ERROR, got %v", out.Err())
	}
	if n := eng.Count(enginetest.Append); n != 1 {
		t.Errorf("chaining after a failure should not reach the engine, got %d appends", n)
	}
	if _, err := out.Run(context.Background()); !errors.Is(err, errors.ErrCodeEngineCall) {
		t.Errorf("Run should report the sticky error, got %v", err)
	}
	if _, err := out.Register(context.Background()); !errors.Is(err, errors.ErrCodeEngineCall) {
		t.Errorf("Register should report the sticky error, got %v", err)
	}
}

func TestChain_AppendAfterRun(t *testing.T) {
	eng := enginetest.New()
	b := newBuilder[int](t, eng)
	if _, err := b.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	b.Filter(func(context.Context, int) (bool, error) { return true, nil })
	if !errors.Is(b.Err(), errors.ErrCodeInvalidState) {
		t.Errorf("expected INVALID_STATE, got %v", b.Err())
	}
}

func TestChain_StaleViewRejected(t *testing.T) {
	tests := []struct {
		name string
		use  func(b *Builder[int]) error
	}{
		{"filter", func(b *Builder[int]) error {
			b.Filter(func(context.Context, int) (bool, error) { return true, nil })
			return b.Err()
		}},
		{"map", func(b *Builder[int]) error {
			return Map(b, func(_ context.Context, x int) (int, error) { return x, nil }).Err()
		}},
		{"run", func(b *Builder[int]) error {
			_, err := b.Run(context.Background(), WithJSON(false), WithAutoCollect(false))
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := enginetest.New()
			b := newBuilder[int](t, eng)
			strs := Map(b, func(_ context.Context, x int) (string, error) { return strconv.Itoa(x), nil })

			if err := tt.use(b); !errors.Is(err, errors.ErrCodeInvalidState) {
				t.Fatalf("expected INVALID_STATE, got %v", err)
			}
			if !errors.Is(strs.Err(), errors.ErrCodeInvalidState) {
				t.Errorf("failure should be sticky for every view, got %v", strs.Err())
			}
			if n := eng.Count(enginetest.Append); n != 1 {
				t.Errorf("stale step reached the engine, got %d appends", n)
			}
			if n := eng.Count(enginetest.Run); n != 0 {
				t.Errorf("run reached the engine %d times", n)
			}
			if _, err := strs.Run(context.Background()); !errors.Is(err, errors.ErrCodeInvalidState) {
				t.Errorf("Run should report the sticky error, got %v", err)
			}
		})
	}
}

func TestCount_Descriptor(t *testing.T) {
	eng := enginetest.New()
	n := Count(newBuilder[string](t, eng))
	ops := n.Operations()
	if len(ops) != 1 || ops[0].Kind != operation.KindAccumulate || ops[0].OutType != "int" {
		t.Errorf("unexpected descriptors %+v", ops)
	}
}

func TestAccumulateByWith_BindsInitializer(t *testing.T) {
	eng := enginetest.New()
	b := newBuilder[string](t, eng)
	counts := AccumulateByWith(b,
		func() int { return 0 },
		func(_ context.Context, s string) (string, error) { return s, nil },
		func(_ context.Context, _ string, acc int, _ string) (int, error) { return acc + 1, nil },
	)
	LocalAccumulateBy(counts,
		func(_ context.Context, n int) (string, error) { return "all", nil },
		func(_ context.Context, _ string, acc *int, n int) (int, error) { return n, nil },
	)
	if err := b.Err(); err != nil {
		t.Fatal(err)
	}
	ops := b.Operations()
	if ops[0].Initializer == "" || ops[0].Extractor == "" {
		t.Errorf("keyed fold with initializer needs both refs, got %+v", ops[0])
	}
	if ops[1].Kind != operation.KindLocalAccumulateBy || ops[1].Initializer != "" {
		t.Errorf("unexpected local fold descriptor %+v", ops[1])
	}
}

func TestClose(t *testing.T) {
	eng := enginetest.New()
	b := newBuilder[int](t, eng)
	if err := b.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := b.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n := eng.Count(enginetest.Destroy); n != 1 {
		t.Errorf("destroy called %d times, want 1", n)
	}
	if eng.Pipeline(b.Handle()).Scope.Len() != 0 {
		t.Error("scope should be released on close")
	}
}

func TestClose_RefusedWhileInFlight(t *testing.T) {
	eng := enginetest.New()
	b := newBuilder[int](t, eng)
	if err := b.c.begin(stateRan); err != nil {
		t.Fatal(err)
	}
	if err := b.Close(context.Background()); !errors.Is(err, errors.ErrCodeInvalidState) {
		t.Errorf("expected INVALID_STATE, got %v", err)
	}
	b.c.finish(nil)
	if err := b.Close(context.Background()); err != nil {
		t.Errorf("Close after the call finished: %v", err)
	}
}
