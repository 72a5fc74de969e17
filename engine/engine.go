package engine

import (
	"context"

	"github.com/kbukum/gears/logger"
	"github.com/kbukum/gears/pipeline"
	"github.com/kbukum/gears/scope"
)

// Handle identifies a pipeline inside the engine.
type Handle string

// Reader names the source a pipeline reads from.
type Reader interface {
	Name() string
}

// Source is a Reader that can produce a finite batch of records for a run.
type Source interface {
	Reader
	Read(ctx context.Context) (pipeline.Iterator[any], error)
}

// Subscriber is a Reader that can stream records to a registration until
// ctx is cancelled.
type Subscriber interface {
	Reader
	Subscribe(ctx context.Context) (pipeline.Iterator[any], error)
}

// Hooks carries the encoded lifecycle hook descriptors of a registration.
// A nil descriptor means no hook.
type Hooks struct {
	OnRegistered   []byte
	OnUnregistered []byte
}

// Result is the outcome of a run. Records are frames of one ordered codec
// stream; Errors holds one message per record that failed.
type Result struct {
	Records [][]byte
	Errors  []string
}

// Engine is the set of primitives a builder needs.
type Engine interface {
	// Create allocates a pipeline reading from reader. Functions referenced by
	// its steps resolve in sc.
	Create(ctx context.Context, reader, description string, sc *scope.Scope) (Handle, error)
	// Append adds an encoded step descriptor to the end of the chain.
	Append(ctx context.Context, h Handle, step []byte) error
	// Run executes the chain once over the reader's records.
	Run(ctx context.Context, h Handle, r Reader) (*Result, error)
	// Register activates the chain for continuous execution and returns once
	// the engine has acknowledged it.
	Register(ctx context.Context, h Handle, r Reader, mode Mode, hooks Hooks) (string, error)
	// Destroy releases the pipeline.
	Destroy(ctx context.Context, h Handle) error

	// Execute runs a command against the backing store.
	Execute(ctx context.Context, args ...string) (any, error)
	// ConfigGet reads an engine configuration value.
	ConfigGet(ctx context.Context, key string) (string, bool, error)
	// Log emits a message through the engine's log.
	Log(ctx context.Context, level logger.Level, msg string)
	// Hashtag returns the shard hashtag of the local node.
	Hashtag() string
}
