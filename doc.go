// Package gears builds typed record pipelines and hands them to an
// execution engine.
//
// A Builder is created for a reader and grows one step at a time. Steps that
// change the record type are package functions (Map, FlatMap, Accumulate and
// friends) because methods cannot introduce type parameters; steps that keep
// the type are methods. All views derived from one New call share a single
// engine pipeline handle.
//
//	b, err := gears.New[int](ctx, eng, reader.NewSlice("stream-A", []int{1, -1, 2, 3}))
//	if err != nil {
//		return err
//	}
//	defer b.Close(ctx)
//
//	pos := b.Filter(func(_ context.Context, x int) (bool, error) { return x > 0, nil })
//	doubled := gears.Map(pos, func(_ context.Context, x int) (int, error) { return x * 2, nil })
//	sum := gears.AccumulateWith(doubled, 0, func(_ context.Context, acc, x int) (int, error) {
//		return acc + x, nil
//	})
//	res, err := sum.Run(ctx, gears.WithJSON(false))
//
// Chaining never returns an error. The first failure is kept in the chain,
// later steps become no-ops, and the failure is reported by Err, Run and
// Register.
package gears
