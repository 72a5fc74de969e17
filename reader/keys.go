package reader

import (
	"context"
	"fmt"
	"slices"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/gears/engine"
	"github.com/kbukum/gears/pipeline"
)

// KeyStore is the part of redis.Client the Keys reader uses.
type KeyStore interface {
	Scan(ctx context.Context, cursor uint64, pattern string) ([]string, uint64, error)
	Value(ctx context.Context, key string) (string, any, error)
	PSubscribe(ctx context.Context, patterns ...string) *goredis.PubSub
	KeyspaceChannel(pattern string) string
}

// Keys reads Redis keys matching a glob pattern. A run scans the keyspace; a
// registration follows keyspace notifications, which the server must have
// enabled (notify-keyspace-events K plus the event classes of interest).
type Keys struct {
	store   KeyStore
	pattern string
	events  []string
	noValue bool
}

var (
	_ engine.Source     = (*Keys)(nil)
	_ engine.Subscriber = (*Keys)(nil)
)

// KeysOption configures a Keys reader.
type KeysOption func(*Keys)

// WithEvents limits registrations to the given keyspace events, such as
// "set" or "hset". By default every event triggers.
func WithEvents(events ...string) KeysOption {
	return func(k *Keys) { k.events = events }
}

// WithoutValues skips fetching values. Records carry only the key.
func WithoutValues() KeysOption {
	return func(k *Keys) { k.noValue = true }
}

// NewKeys returns a reader over keys matching pattern. An empty pattern
// matches every key.
func NewKeys(store KeyStore, pattern string, opts ...KeysOption) *Keys {
	if pattern == "" {
		pattern = "*"
	}
	k := &Keys{store: store, pattern: pattern}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

func (k *Keys) Name() string { return "KeysReader" }

// Pattern returns the key pattern.
func (k *Keys) Pattern() string { return k.pattern }

func (k *Keys) record(ctx context.Context, key, event string) (KeyRecord, bool, error) {
	rec := KeyRecord{Key: key, Event: event}
	if k.noValue {
		return rec, true, nil
	}
	typ, v, err := k.store.Value(ctx, key)
	if err != nil {
		return rec, false, fmt.Errorf("read %s: %w", key, err)
	}
	rec.Type, rec.Value = typ, v
	// deleted keys still produce a record when they arrive as events
	return rec, typ != "none" || event != "", nil
}

// Read scans the keyspace once.
func (k *Keys) Read(_ context.Context) (pipeline.Iterator[any], error) {
	return &scanIter{keys: k}, nil
}

type scanIter struct {
	keys    *Keys
	cursor  uint64
	page    []string
	started bool
}

func (it *scanIter) Next(ctx context.Context) (any, bool, error) {
	for {
		for len(it.page) > 0 {
			key := it.page[0]
			it.page = it.page[1:]
			rec, ok, err := it.keys.record(ctx, key, "")
			if err != nil {
				return nil, false, err
			}
			if ok {
				return rec, true, nil
			}
		}
		if it.started && it.cursor == 0 {
			return nil, false, nil
		}
		page, next, err := it.keys.store.Scan(ctx, it.cursor, it.keys.pattern)
		if err != nil {
			return nil, false, fmt.Errorf("scan %s: %w", it.keys.pattern, err)
		}
		it.started = true
		it.page, it.cursor = page, next
	}
}

func (it *scanIter) Close() error { return nil }

// Subscribe follows keyspace notifications for the pattern. It returns once
// the subscription is confirmed.
func (k *Keys) Subscribe(ctx context.Context) (pipeline.Iterator[any], error) {
	ps := k.store.PSubscribe(ctx, k.store.KeyspaceChannel(k.pattern))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", k.pattern, err)
	}
	return &eventIter{
		keys:   k,
		ps:     ps,
		ch:     ps.Channel(),
		prefix: k.store.KeyspaceChannel(""),
	}, nil
}

type eventIter struct {
	keys   *Keys
	ps     *goredis.PubSub
	ch     <-chan *goredis.Message
	prefix string
}

func (it *eventIter) Next(ctx context.Context) (any, bool, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, false, ctx.Err()
		case msg, ok := <-it.ch:
			if !ok {
				return nil, false, nil
			}
			if len(it.keys.events) > 0 && !slices.Contains(it.keys.events, msg.Payload) {
				continue
			}
			key := msg.Channel[min(len(it.prefix), len(msg.Channel)):]
			rec, _, err := it.keys.record(ctx, key, msg.Payload)
			if err != nil {
				return nil, false, err
			}
			return rec, true, nil
		}
	}
}

func (it *eventIter) Close() error { return it.ps.Close() }
