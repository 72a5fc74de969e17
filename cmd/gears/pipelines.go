package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/kbukum/gears"
	"github.com/kbukum/gears/engine"
	"github.com/kbukum/gears/logger"
	"github.com/kbukum/gears/reader"
)

// TypeCount is the number of keys of one Redis type.
type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// FieldCount is the number of stream entries carrying one field.
type FieldCount struct {
	Field string `json:"field"`
	Count int    `json:"count"`
}

func parseInts(args []string) ([]int, error) {
	values := make([]int, 0, len(args))
	for _, a := range args {
		n, err := strconv.Atoi(strings.TrimSpace(a))
		if err != nil {
			return nil, fmt.Errorf("not an integer: %q", a)
		}
		values = append(values, n)
	}
	return values, nil
}

// sumDoubledPositives keeps the positive numbers, doubles them and sums them.
func sumDoubledPositives(ctx context.Context, eng engine.Engine, values []int, opts ...gears.RunOption) (*gears.Result, error) {
	b, err := gears.New[int](ctx, eng, reader.NewSlice("numbers", values),
		gears.WithDescription("sum of doubled positives"))
	if err != nil {
		return nil, err
	}
	positive := b.Filter(func(_ context.Context, n int) (bool, error) { return n > 0, nil })
	doubled := gears.Map(positive, func(_ context.Context, n int) (int, error) { return n * 2, nil })
	total := gears.AccumulateWith(doubled, 0, func(_ context.Context, acc, n int) (int, error) {
		return acc + n, nil
	})
	return total.Run(ctx, opts...)
}

// countKeysByType counts the keys matching pattern per Redis type.
func countKeysByType(ctx context.Context, eng engine.Engine, store reader.KeyStore, pattern string, opts ...gears.RunOption) (*gears.Result, error) {
	b, err := gears.New[reader.KeyRecord](ctx, eng, reader.NewKeys(store, pattern),
		gears.WithDescription("keys by type: "+pattern))
	if err != nil {
		return nil, err
	}
	counts := gears.AccumulateByWith(b,
		func() TypeCount { return TypeCount{} },
		func(_ context.Context, r reader.KeyRecord) (string, error) { return r.Type, nil },
		func(_ context.Context, key string, acc TypeCount, _ reader.KeyRecord) (TypeCount, error) {
			acc.Type = key
			acc.Count++
			return acc, nil
		},
	)
	return counts.Run(ctx, opts...)
}

// countStreamFields counts the entries of a stream per field name.
func countStreamFields(ctx context.Context, eng engine.Engine, store reader.StreamStore, stream string, opts ...gears.RunOption) (*gears.Result, error) {
	b, err := gears.New[reader.StreamRecord](ctx, eng, reader.NewStream(store, stream),
		gears.WithDescription("stream fields: "+stream))
	if err != nil {
		return nil, err
	}
	fields := gears.FlatMap(b, func(_ context.Context, r reader.StreamRecord) ([]string, error) {
		out := make([]string, 0, len(r.Values))
		for f := range r.Values {
			out = append(out, f)
		}
		return out, nil
	})
	counts := gears.AccumulateByWith(fields,
		func() FieldCount { return FieldCount{} },
		func(_ context.Context, f string) (string, error) { return f, nil },
		func(_ context.Context, key string, acc FieldCount, _ string) (FieldCount, error) {
			acc.Field = key
			acc.Count++
			return acc, nil
		},
	)
	return counts.Run(ctx, opts...)
}

// watch registers a pipeline that writes every record it sees to the engine
// log at notice level.
func watch[T any](ctx context.Context, eng engine.Engine, r engine.Reader, mode engine.Mode, describe func(T) string) (string, error) {
	b, err := gears.New[T](ctx, eng, r, gears.WithDescription("watch "+r.Name()))
	if err != nil {
		return "", err
	}
	b = b.Foreach(func(ctx context.Context, rec T) error {
		gears.Log(ctx, eng, describe(rec), logger.LevelNotice)
		return nil
	})
	return b.Register(ctx,
		gears.WithMode(mode),
		gears.OnRegistered(func(ctx context.Context) error {
			gears.Log(ctx, eng, "watching "+r.Name(), logger.LevelVerbose)
			return nil
		}),
		gears.OnUnregistered(func(ctx context.Context) error {
			gears.Log(ctx, eng, "stopped watching "+r.Name(), logger.LevelVerbose)
			return nil
		}),
	)
}

func describeKey(r reader.KeyRecord) string {
	return fmt.Sprintf("key %s %s (%s)", r.Key, r.Event, r.Type)
}

func describeEntry(r reader.StreamRecord) string {
	return fmt.Sprintf("stream %s entry %s with %d fields", r.Stream, r.ID, len(r.Values))
}

func describeMessage(m reader.KafkaMessage) string {
	return fmt.Sprintf("kafka %s[%d]@%d key=%q %d bytes", m.Topic, m.Partition, m.Offset, m.Key, len(m.Value))
}
