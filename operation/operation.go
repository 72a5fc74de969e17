package operation

import (
	"context"
	"fmt"

	"github.com/kbukum/gears/codec"
	"github.com/kbukum/gears/errors"
)

// Operation is the descriptor of one step. It is immutable once appended.
type Operation struct {
	Kind    Kind
	Index   int
	InType  string
	OutType string
	// Fn, Extractor and Initializer are references into the pipeline scope.
	Fn          string
	Extractor   string
	Initializer string
}

// Name returns a short label such as "map#2".
func (o Operation) Name() string {
	return fmt.Sprintf("%s#%d", o.Kind, o.Index)
}

// Validate checks that the references the kind needs are present.
func (o Operation) Validate() error {
	if _, ok := kindNames[o.Kind]; !ok {
		return errors.InvalidInput("kind", fmt.Sprintf("unknown operation kind %d", o.Kind))
	}
	switch {
	case o.Kind == KindCollect:
		return nil
	case o.Kind.Keyed() && o.Extractor == "":
		return errors.MissingField("extractor")
	case o.Kind == KindRepartition:
		return nil
	case o.Fn == "":
		return errors.MissingField("fn")
	}
	return nil
}

func init() {
	if err := codec.RegisterType[Operation](); err != nil {
		panic(err)
	}
}

// Encode serializes the descriptor for the engine.
func Encode(op Operation) ([]byte, error) {
	return codec.Marshal(op)
}

// Decode parses a descriptor produced by Encode.
func Decode(data []byte) (Operation, error) {
	op, err := codec.UnmarshalAs[Operation](data)
	if err != nil {
		return Operation{}, err
	}
	if op.Kind == 0 {
		return Operation{}, errors.Deserialization("operation", fmt.Errorf("empty descriptor"))
	}
	return op, nil
}

// Erased call forms. Records and accumulators cross as any; a nil
// accumulator is the absent state.
type (
	MapFunc          func(ctx context.Context, r any) (any, error)
	FlatMapFunc      func(ctx context.Context, r any) ([]any, error)
	FilterFunc       func(ctx context.Context, r any) (bool, error)
	ForeachFunc      func(ctx context.Context, r any) error
	ExtractorFunc    func(ctx context.Context, r any) (string, error)
	AccumulateFunc   func(ctx context.Context, acc any, r any) (any, error)
	AccumulateByFunc func(ctx context.Context, key string, acc any, r any) (any, error)
	InitializerFunc  func(ctx context.Context) (any, error)
	HookFunc         func(ctx context.Context) error
)
