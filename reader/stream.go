package reader

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/gears/engine"
	"github.com/kbukum/gears/pipeline"
)

// StreamStore is the part of redis.Client the Stream reader uses.
type StreamStore interface {
	XRange(ctx context.Context, stream, start, stop string) ([]goredis.XMessage, error)
	XRead(ctx context.Context, stream, lastID string, count int64, block time.Duration) ([]goredis.XMessage, error)
}

// Stream reads entries of a Redis stream. A run reads the whole stream; a
// registration reads entries added after StartID.
type Stream struct {
	store   StreamStore
	stream  string
	startID string
	count   int64
	block   time.Duration
}

var (
	_ engine.Source     = (*Stream)(nil)
	_ engine.Subscriber = (*Stream)(nil)
)

// StreamOption configures a Stream reader.
type StreamOption func(*Stream)

// WithStartID sets the id registrations read after. Defaults to "$", the
// entries added after the registration.
func WithStartID(id string) StreamOption {
	return func(s *Stream) { s.startID = id }
}

// WithBlock sets how long one XREAD waits for new entries.
func WithBlock(d time.Duration) StreamOption {
	return func(s *Stream) { s.block = d }
}

// WithCount sets the maximum entries fetched per XREAD.
func WithCount(n int64) StreamOption {
	return func(s *Stream) { s.count = n }
}

// NewStream returns a reader over stream.
func NewStream(store StreamStore, stream string, opts ...StreamOption) *Stream {
	s := &Stream{
		store:   store,
		stream:  stream,
		startID: "$",
		count:   100,
		block:   time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Stream) Name() string { return "StreamReader" }

// Stream returns the stream key.
func (s *Stream) Stream() string { return s.stream }

func (s *Stream) record(msg goredis.XMessage) StreamRecord {
	values := make(map[string]string, len(msg.Values))
	for k, v := range msg.Values {
		values[k] = fmt.Sprint(v)
	}
	return StreamRecord{Stream: s.stream, ID: msg.ID, Values: values}
}

// Read returns every entry currently in the stream.
func (s *Stream) Read(ctx context.Context) (pipeline.Iterator[any], error) {
	msgs, err := s.store.XRange(ctx, s.stream, "-", "+")
	if err != nil {
		return nil, fmt.Errorf("xrange %s: %w", s.stream, err)
	}
	records := make([]any, len(msgs))
	for i, m := range msgs {
		records[i] = s.record(m)
	}
	return pipeline.SliceIterator(records), nil
}

// Subscribe follows the stream with blocking reads until ctx is done.
func (s *Stream) Subscribe(_ context.Context) (pipeline.Iterator[any], error) {
	return &streamIter{s: s, lastID: s.startID}, nil
}

type streamIter struct {
	s       *Stream
	lastID  string
	pending []goredis.XMessage
}

func (it *streamIter) Next(ctx context.Context) (any, bool, error) {
	for len(it.pending) == 0 {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		msgs, err := it.s.store.XRead(ctx, it.s.stream, it.lastID, it.s.count, it.s.block)
		if err != nil {
			if ctx.Err() != nil {
				return nil, false, ctx.Err()
			}
			return nil, false, fmt.Errorf("xread %s: %w", it.s.stream, err)
		}
		if len(msgs) > 0 {
			it.lastID = msgs[len(msgs)-1].ID
			it.pending = msgs
		}
	}
	msg := it.pending[0]
	it.pending = it.pending[1:]
	return it.s.record(msg), true, nil
}

func (it *streamIter) Close() error { return nil }
