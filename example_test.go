package gears_test

import (
	"context"
	"fmt"

	"github.com/kbukum/gears"
	"github.com/kbukum/gears/engine/local"
	"github.com/kbukum/gears/logger"
	"github.com/kbukum/gears/reader"
)

func Example() {
	ctx := context.Background()
	eng, err := local.New(local.Config{}, logger.Nop())
	if err != nil {
		panic(err)
	}
	defer eng.Close(ctx)

	b, err := gears.New[int](ctx, eng, reader.NewSlice("stream-A", []int{1, -1, 2, 3}))
	if err != nil {
		panic(err)
	}
	positive := b.Filter(func(_ context.Context, n int) (bool, error) { return n > 0, nil })
	doubled := gears.Map(positive, func(_ context.Context, n int) (int, error) { return n * 2, nil })
	total := gears.AccumulateWith(doubled, 0, func(_ context.Context, acc, n int) (int, error) {
		return acc + n, nil
	})

	res, err := total.Run(ctx)
	if err != nil {
		panic(err)
	}
	fmt.Println(res.Records, len(res.Errors))
	// Output: [12] 0
}

func ExampleCount() {
	ctx := context.Background()
	eng, _ := local.New(local.Config{}, logger.Nop())
	defer eng.Close(ctx)

	b, _ := gears.New[string](ctx, eng, reader.NewSlice("words", []string{"a", "b", "c"}))
	res, _ := gears.Count(b).Run(ctx, gears.WithJSON(false))
	counts, _ := gears.Values[int](res)
	fmt.Println(counts)
	// Output: [3]
}
