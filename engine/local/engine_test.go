package local_test

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/kbukum/gears"
	"github.com/kbukum/gears/engine"
	"github.com/kbukum/gears/engine/enginetest"
	"github.com/kbukum/gears/engine/local"
	"github.com/kbukum/gears/errors"
	"github.com/kbukum/gears/logger"
	"github.com/kbukum/gears/reader"
	"github.com/kbukum/gears/redis/testutil"
)

func newEngine(t *testing.T, cfg local.Config, opts ...local.Option) *local.Engine {
	t.Helper()
	e, err := local.New(cfg, logger.Nop(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = e.Close(context.Background()) })
	return e
}

func positive(_ context.Context, n int) (bool, error) { return n > 0, nil }

func double(_ context.Context, n int) (int, error) { return n * 2, nil }

func sum(_ context.Context, acc int, n int) (int, error) { return acc + n, nil }

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRun_FilterMapAccumulate(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, local.Config{})

	b, err := gears.New[int](ctx, e, reader.NewSlice("stream-A", []int{1, -1, 2, 3}))
	if err != nil {
		t.Fatal(err)
	}
	total := gears.AccumulateWith(gears.Map(b.Filter(positive), double), 0, sum)

	res, err := total.Run(ctx, gears.WithJSON(false))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	got, err := gears.Values[int](res)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got, []int{12}) || len(res.Errors) != 0 {
		t.Errorf("got %v errors %v, want [12]", got, res.Errors)
	}
}

func TestRun_JSONResult(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, local.Config{})
	b, _ := gears.New[string](ctx, e, reader.NewSlice("names", []string{"ada", "grace"}))

	res, err := b.Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]any{`"ada"`, `"grace"`}, res.Records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_Count(t *testing.T) {
	tests := []struct {
		name  string
		items []string
		want  []int
	}{
		{"several", []string{"a", "b", "c"}, []int{3}},
		{"one", []string{"a"}, []int{1}},
		{"empty stream emits nothing", nil, []int{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			e := newEngine(t, local.Config{})
			b, _ := gears.New[string](ctx, e, reader.NewSlice("letters", tc.items))
			res, err := gears.Count(b).Run(ctx, gears.WithJSON(false))
			if err != nil {
				t.Fatal(err)
			}
			got, _ := gears.Values[int](res)
			if !slices.Equal(got, tc.want) {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRun_AccumulateByKeepsFirstSeenOrder(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, local.Config{})
	b, _ := gears.New[string](ctx, e, reader.NewSlice("words", []string{"b", "a", "b", "c", "b"}))

	counts := gears.AccumulateByWith(b,
		func() string { return "" },
		func(_ context.Context, w string) (string, error) { return w, nil },
		func(_ context.Context, key string, acc string, _ string) (string, error) {
			return acc + key, nil
		},
	)
	res, err := counts.Run(ctx, gears.WithJSON(false))
	if err != nil {
		t.Fatal(err)
	}
	got, _ := gears.Values[string](res)
	if diff := cmp.Diff([]string{"bbb", "a", "c"}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_FailedRecordsAreSkipped(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, local.Config{})
	b, _ := gears.New[int](ctx, e, reader.NewSlice("numbers", []int{1, 2, 3, 4}))

	out := gears.Map(b, func(_ context.Context, n int) (int, error) {
		switch n {
		case 2:
			return 0, fmt.Errorf("two is not allowed")
		case 3:
			panic("three")
		}
		return n * 10, nil
	})
	res, err := out.Run(ctx, gears.WithJSON(false))
	if err != nil {
		t.Fatal(err)
	}
	got, _ := gears.Values[int](res)
	if !slices.Equal(got, []int{10, 40}) {
		t.Errorf("got %v, want [10 40]", got)
	}
	if len(res.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %v", res.Errors)
	}
	if !strings.Contains(res.Errors[0], "two is not allowed") {
		t.Errorf("first error %q", res.Errors[0])
	}
	if !strings.Contains(res.Errors[1], "three") || !strings.Contains(res.Errors[1], "goroutine") {
		t.Errorf("panic error should carry the stack trace, got %q", res.Errors[1])
	}
}

func TestRun_FlatMapAndRepartition(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, local.Config{})
	b, _ := gears.New[string](ctx, e, reader.NewSlice("lines", []string{"a b", "", "c"}))

	words := gears.FlatMap(b, func(_ context.Context, line string) ([]string, error) {
		return strings.Fields(line), nil
	}).Repartition(func(_ context.Context, w string) (string, error) { return w, nil })

	res, err := words.Run(ctx, gears.WithJSON(false))
	if err != nil {
		t.Fatal(err)
	}
	got, _ := gears.Values[string](res)
	if !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Errorf("got %v", got)
	}
}

func TestRun_ReaderMustBeSource(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, local.Config{})
	h, err := e.Create(ctx, "nothing", "", newScope(t))
	if err != nil {
		t.Fatal(err)
	}
	_, err = e.Run(ctx, h, enginetest.Reader("nothing"))
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}

func TestAppend_RejectsBadDescriptor(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, local.Config{})
	h, _ := e.Create(ctx, "r", "", newScope(t))

	if err := e.Append(ctx, h, []byte("not a descriptor")); !errors.Is(err, errors.ErrCodeDeserialization) {
		t.Errorf("expected DESERIALIZATION_ERROR, got %v", err)
	}
	if err := e.Append(ctx, "missing", nil); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestDestroy(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, local.Config{})
	h, _ := e.Create(ctx, "r", "", newScope(t))
	if err := e.Destroy(ctx, h); err != nil {
		t.Fatal(err)
	}
	if err := e.Destroy(ctx, h); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("expected NOT_FOUND on second destroy, got %v", err)
	}
}

type recorder struct {
	mu     sync.Mutex
	values []int
	events []string
}

func (r *recorder) add(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, n)
}

func (r *recorder) event(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, name)
}

func (r *recorder) snapshot() ([]int, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.values...), append([]string(nil), r.events...)
}

func register(t *testing.T, e *local.Engine, ch chan int, rec *recorder, mode engine.Mode) string {
	t.Helper()
	ctx := context.Background()
	b, err := gears.New[int](ctx, e, reader.NewChannel[int]("events", ch), gears.WithDescription("collect events"))
	if err != nil {
		t.Fatal(err)
	}
	b.Foreach(func(_ context.Context, n int) error {
		rec.add(n)
		return nil
	})
	id, err := b.Register(ctx,
		gears.WithMode(mode),
		gears.OnRegistered(func(context.Context) error { rec.event("registered"); return nil }),
		gears.OnUnregistered(func(context.Context) error { rec.event("unregistered"); return nil }),
	)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := b.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return id
}

func TestRegister_Modes(t *testing.T) {
	for _, mode := range []engine.Mode{engine.ModeSync, engine.ModeAsyncLocal, engine.ModeAsync} {
		t.Run(mode.String(), func(t *testing.T) {
			ctx := context.Background()
			e := newEngine(t, local.Config{Workers: 2, BatchTimeout: "5ms"})
			ch := make(chan int)
			rec := &recorder{}
			id := register(t, e, ch, rec, mode)

			infos := e.Registrations()
			if len(infos) != 1 || infos[0].ID != id || infos[0].Mode != mode.String() ||
				infos[0].Reader != "events" || infos[0].Description != "collect events" {
				t.Fatalf("unexpected registrations %+v", infos)
			}

			for i := 1; i <= 3; i++ {
				ch <- i
			}
			eventually(t, func() bool {
				values, _ := rec.snapshot()
				return len(values) == 3
			})
			values, _ := rec.snapshot()
			sort.Ints(values)
			if !slices.Equal(values, []int{1, 2, 3}) {
				t.Errorf("values %v", values)
			}
			if mode == engine.ModeSync {
				got, _ := rec.snapshot()
				if !slices.Equal(got, []int{1, 2, 3}) {
					t.Errorf("sync mode should keep event order, got %v", got)
				}
			}
			eventually(t, func() bool {
				info, ok := e.Registration(id)
				return ok && info.Executions == 3
			})

			if err := e.Unregister(ctx, id); err != nil {
				t.Fatalf("Unregister: %v", err)
			}
			if err := e.Unregister(ctx, id); !errors.Is(err, errors.ErrCodeNotFound) {
				t.Errorf("expected NOT_FOUND, got %v", err)
			}
			_, events := rec.snapshot()
			if diff := cmp.Diff([]string{"registered", "unregistered"}, events); diff != "" {
				t.Errorf("hooks mismatch (-want +got):\n%s", diff)
			}
			if len(e.Registrations()) != 0 {
				t.Errorf("registration still listed")
			}
		})
	}
}

func TestRegister_EndsWhenSubscriptionEnds(t *testing.T) {
	e := newEngine(t, local.Config{})
	ch := make(chan int)
	rec := &recorder{}
	register(t, e, ch, rec, engine.ModeSync)

	ch <- 7
	close(ch)
	eventually(t, func() bool {
		_, events := rec.snapshot()
		return len(events) == 2
	})
	values, _ := rec.snapshot()
	if !slices.Equal(values, []int{7}) {
		t.Errorf("values %v", values)
	}
	eventually(t, func() bool { return len(e.Registrations()) == 0 })
}

func TestRegister_FailedHookRegistersNothing(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, local.Config{})
	b, _ := gears.New[int](ctx, e, reader.NewChannel[int]("events", make(chan int)))

	unregistered := false
	_, err := b.Register(ctx,
		gears.OnRegistered(func(context.Context) error { return fmt.Errorf("not ready") }),
		gears.OnUnregistered(func(context.Context) error { unregistered = true; return nil }),
	)
	if err == nil || !strings.Contains(err.Error(), "not ready") {
		t.Fatalf("expected hook failure, got %v", err)
	}
	if len(e.Registrations()) != 0 || unregistered {
		t.Errorf("failed registration must leave nothing behind")
	}
}

func TestRegister_ReaderMustBeSubscriber(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, local.Config{})
	b, _ := gears.New[int](ctx, e, reader.NewSlice("fixed", []int{1}))
	_, err := b.Register(ctx)
	if !errors.Is(err, errors.ErrCodeEngineCall) || !strings.Contains(err.Error(), "cannot be registered") {
		t.Errorf("expected a rejected registration, got %v", err)
	}
}

func TestClose_EndsRegistrations(t *testing.T) {
	ctx := context.Background()
	e, err := local.New(local.Config{}, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	register(t, e, make(chan int), rec, engine.ModeAsync)

	if err := e.Close(ctx); err != nil {
		t.Fatal(err)
	}
	_, events := rec.snapshot()
	if !slices.Equal(events, []string{"registered", "unregistered"}) {
		t.Errorf("events %v", events)
	}
	if _, err := e.Create(ctx, "r", "", newScope(t)); !errors.Is(err, errors.ErrCodeInvalidState) {
		t.Errorf("expected INVALID_STATE after close, got %v", err)
	}
}

func TestExecute(t *testing.T) {
	ctx := context.Background()

	t.Run("without store", func(t *testing.T) {
		e := newEngine(t, local.Config{})
		if _, err := e.Execute(ctx, "PING"); !errors.Is(err, errors.ErrCodeServiceUnavailable) {
			t.Errorf("expected SERVICE_UNAVAILABLE, got %v", err)
		}
	})

	t.Run("redis store", func(t *testing.T) {
		client, _ := testutil.NewClient(t)
		e := newEngine(t, local.Config{}, local.WithStore(client))
		if _, err := gears.Execute(ctx, e, "SET", "greeting", "hello"); err != nil {
			t.Fatal(err)
		}
		got, err := gears.ExecuteAs[string](ctx, e, "GET", "greeting")
		if err != nil || got != "hello" {
			t.Errorf("GET = %q, %v", got, err)
		}
	})

	t.Run("store failures open the breaker", func(t *testing.T) {
		store := &downStore{}
		e := newEngine(t, local.Config{BreakerFailures: 2}, local.WithStore(store))
		for range 2 {
			if _, err := e.Execute(ctx, "PING"); err == nil || errors.Is(err, errors.ErrCodeServiceUnavailable) {
				t.Fatalf("expected the store error, got %v", err)
			}
		}
		if _, err := e.Execute(ctx, "PING"); !errors.Is(err, errors.ErrCodeServiceUnavailable) {
			t.Errorf("expected SERVICE_UNAVAILABLE once open, got %v", err)
		}
		if _, _, err := e.ConfigGet(ctx, "timeout"); !errors.Is(err, errors.ErrCodeServiceUnavailable) {
			t.Errorf("expected SERVICE_UNAVAILABLE from ConfigGet, got %v", err)
		}
		if store.calls != 2 {
			t.Errorf("store called %d times, want 2", store.calls)
		}
	})

	t.Run("reply errors keep the breaker closed", func(t *testing.T) {
		client, _ := testutil.NewClient(t)
		e := newEngine(t, local.Config{BreakerFailures: 1}, local.WithStore(client))
		if _, err := e.Execute(ctx, "SET", "k", "v"); err != nil {
			t.Fatal(err)
		}
		for range 3 {
			_, err := e.Execute(ctx, "LPUSH", "k", "x")
			if err == nil || !strings.Contains(err.Error(), "WRONGTYPE") {
				t.Fatalf("expected WRONGTYPE, got %v", err)
			}
		}
		if _, err := e.Execute(ctx, "GET", "k"); err != nil {
			t.Errorf("GET after reply errors: %v", err)
		}
	})
}

type downStore struct{ calls int }

func (s *downStore) Do(context.Context, ...any) (any, error) {
	s.calls++
	return nil, fmt.Errorf("dial tcp: connection refused")
}

func (s *downStore) ConfigGet(context.Context, string) (string, bool, error) {
	s.calls++
	return "", false, fmt.Errorf("dial tcp: connection refused")
}

func TestConfigGetLogHashtag(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, local.Config{Hashtag: "{abc}", Settings: map[string]string{"MaxExecutions": "1000"}})

	v, ok, err := gears.ConfigGet(ctx, e, "MaxExecutions")
	if err != nil || !ok || v != "1000" {
		t.Errorf("ConfigGet = %q %v %v", v, ok, err)
	}
	if _, ok, _ := gears.ConfigGet(ctx, e, "missing"); ok {
		t.Error("missing key reported as present")
	}
	if got := gears.Hashtag(e); got != "{abc}" {
		t.Errorf("Hashtag = %q", got)
	}
	gears.Log(ctx, e, "hello", logger.LevelWarning)
}

func TestConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     local.Config
		wantErr string
	}{
		{"defaults", local.Config{}, ""},
		{"bad timeout", local.Config{BatchTimeout: "soon"}, "batch_timeout"},
		{"negative timeout", local.Config{BatchTimeout: "-1s"}, "must not be negative"},
		{"bad breaker timeout", local.Config{BreakerTimeout: "later"}, "breaker_timeout"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e, err := local.New(tc.cfg, nil)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				cfg := e.Config()
				if cfg.Workers != 4 || cfg.BatchSize != 1 || cfg.Hashtag != "{06S}" {
					t.Errorf("defaults not applied: %+v", cfg)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}
