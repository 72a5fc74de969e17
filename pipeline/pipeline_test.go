package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"testing"
	"time"
)

func TestFromSlice_Collect(t *testing.T) {
	got, err := Collect(context.Background(), FromSlice([]int{1, 2, 3}))
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got, []int{1, 2, 3}) {
		t.Errorf("got %v, want [1 2 3]", got)
	}
}

func TestFromSlice_Empty(t *testing.T) {
	got, err := Collect(context.Background(), FromSlice([]int{}))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty, got %v", got)
	}
}

func TestChanIterator(t *testing.T) {
	ch := make(chan string, 2)
	ch <- "a"
	ch <- "b"
	close(ch)
	closed := false
	p := From(ChanIterator(ch, func() error { closed = true; return nil }))
	got, err := Collect(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("got %v, want [a b]", got)
	}
	if !closed {
		t.Error("expected closer to run")
	}
}

func TestChanIterator_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	it := ChanIterator(make(chan int), nil)
	if _, _, err := it.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestMap_Error(t *testing.T) {
	fail := Map(FromSlice([]int{1, 2, 3}), func(_ context.Context, n int) (int, error) {
		if n == 2 {
			return 0, errors.New("bad value")
		}
		return n, nil
	})
	got, err := Collect(context.Background(), fail)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(got) != 1 || got[0] != 1 {
		t.Errorf("expected [1] before error, got %v", got)
	}
}

func TestMap_TypeConversion(t *testing.T) {
	strs := Map(FromSlice([]int{1, 2, 3}), func(_ context.Context, n int) (string, error) {
		return fmt.Sprintf("#%d", n), nil
	})
	got, err := Collect(context.Background(), strs)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got, []string{"#1", "#2", "#3"}) {
		t.Errorf("got %v", got)
	}
}

func TestFlatMap(t *testing.T) {
	expanded := FlatMap(FromSlice([]int{1, 2, 3}), func(_ context.Context, n int) ([]int, error) {
		if n == 2 {
			return nil, nil
		}
		return []int{n, n * 10}, nil
	})
	got, err := Collect(context.Background(), expanded)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got, []int{1, 10, 3, 30}) {
		t.Errorf("got %v, want [1 10 3 30]", got)
	}
}

func TestReduce(t *testing.T) {
	sum := Reduce(FromSlice([]int{1, 2, 3, 4, 5}), 0, func(_ context.Context, acc, n int) (int, error) {
		return acc + n, nil
	})
	got, err := Collect(context.Background(), sum)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != 15 {
		t.Errorf("expected [15], got %v", got)
	}
}

func TestReduce_Empty(t *testing.T) {
	sum := Reduce(FromSlice([]int{}), 42, func(_ context.Context, acc, n int) (int, error) {
		return acc + n, nil
	})
	got, err := Collect(context.Background(), sum)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != 42 {
		t.Errorf("expected [42] (initial value), got %v", got)
	}
}

func TestBuffer(t *testing.T) {
	got, err := Collect(context.Background(), Buffer(FromSlice([]int{1, 2, 3, 4, 5}), 3))
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got, []int{1, 2, 3, 4, 5}) {
		t.Errorf("got %v", got)
	}
}

func TestBatch_BySize(t *testing.T) {
	got, err := Collect(context.Background(), Batch(FromSlice([]int{1, 2, 3, 4, 5}), 2, 0))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || !slices.Equal(got[2], []int{5}) {
		t.Errorf("expected [[1 2] [3 4] [5]], got %v", got)
	}
}

func TestBatch_DefaultsOnZeroZero(t *testing.T) {
	got, err := Collect(context.Background(), Batch(FromSlice([]int{1, 2}), 0, 0))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 singleton batches, got %v", got)
	}
}

func TestBatch_Empty(t *testing.T) {
	got, err := Collect(context.Background(), Batch(FromSlice([]int{}), 3, 0))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expected no batches, got %v", got)
	}
}

func TestBatch_TimeoutFlushesWhileSourceBlocks(t *testing.T) {
	ch := make(chan int)
	batches := Batch(From(ChanIterator(ch, nil)), 10, 20*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	it := batches.Iter(ctx)
	defer it.Close()

	go func() { ch <- 1; ch <- 2 }()

	got, ok, err := it.Next(ctx)
	if err != nil || !ok {
		t.Fatalf("Next: ok=%v err=%v", ok, err)
	}
	if !slices.Equal(got, []int{1, 2}) {
		t.Errorf("expected [1 2] flushed by timeout, got %v", got)
	}

	close(ch)
	if _, ok, err := it.Next(ctx); ok || err != nil {
		t.Errorf("expected exhaustion after close, ok=%v err=%v", ok, err)
	}
}

func TestBatch_TimeoutAndSize(t *testing.T) {
	got, err := Collect(context.Background(), Batch(FromSlice([]int{1, 2, 3}), 2, time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || !slices.Equal(got[0], []int{1, 2}) || !slices.Equal(got[1], []int{3}) {
		t.Errorf("expected [[1 2] [3]], got %v", got)
	}
}

func TestReduce_FreshStatePerRun(t *testing.T) {
	sum := Reduce(FromSlice([]int{1, 2}), 0, func(_ context.Context, acc, n int) (int, error) {
		return acc + n, nil
	})
	for range 2 {
		got, err := Collect(context.Background(), sum)
		if err != nil || !slices.Equal(got, []int{3}) {
			t.Fatalf("got %v, %v; want [3]", got, err)
		}
	}
}

func TestBuffer_SourceError(t *testing.T) {
	failing := Map(FromSlice([]int{1, 2, 3}), func(_ context.Context, n int) (int, error) {
		if n == 3 {
			return 0, errors.New("source broke")
		}
		return n, nil
	})
	got, err := Collect(context.Background(), Buffer(failing, 4))
	if err == nil || err.Error() != "source broke" {
		t.Fatalf("expected source error, got %v", err)
	}
	if !slices.Equal(got, []int{1, 2}) {
		t.Errorf("got %v before the error, want [1 2]", got)
	}
}

func TestParallelForEach(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []int
	)
	err := ParallelForEach(context.Background(), FromSlice([]int{1, 2, 3, 4, 5}), 3, func(_ context.Context, n int) error {
		mu.Lock()
		seen = append(seen, n*2)
		mu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	sort.Ints(seen)
	if !slices.Equal(seen, []int{2, 4, 6, 8, 10}) {
		t.Errorf("got %v", seen)
	}
}

func TestParallelForEach_Errors(t *testing.T) {
	boom := errors.New("worker failed")
	tests := []struct {
		name string
		p    *Pipeline[int]
		fn   func(context.Context, int) error
		want error
	}{
		{
			name: "worker error",
			p:    FromSlice([]int{1, 2, 3, 4, 5}),
			fn: func(_ context.Context, n int) error {
				if n == 3 {
					return boom
				}
				return nil
			},
			want: boom,
		},
		{
			name: "source error",
			p: Map(FromSlice([]int{1, 2}), func(_ context.Context, n int) (int, error) {
				if n == 2 {
					return 0, boom
				}
				return n, nil
			}),
			fn:   func(context.Context, int) error { return nil },
			want: boom,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ParallelForEach(context.Background(), tt.p, 2, tt.fn); !errors.Is(err, tt.want) {
				t.Errorf("ParallelForEach() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParallelForEach_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan int)
	done := make(chan error, 1)
	go func() {
		done <- ParallelForEach(ctx, From(ChanIterator(ch, nil)), 2, func(context.Context, int) error { return nil })
	}()
	ch <- 1
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ParallelForEach did not return after cancel")
	}
}

func TestChainedStages(t *testing.T) {
	positive := FlatMap(FromSlice([]int{1, -1, 2, 3}), func(_ context.Context, n int) ([]int, error) {
		if n <= 0 {
			return nil, nil
		}
		return []int{n}, nil
	})
	doubled := Map(positive, func(_ context.Context, n int) (int, error) { return n * 2, nil })
	sum := Reduce(doubled, 0, func(_ context.Context, acc, n int) (int, error) { return acc + n, nil })

	got, err := Collect(context.Background(), sum)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got, []int{12}) {
		t.Errorf("got %v, want [12]", got)
	}
}
