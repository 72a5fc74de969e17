package codec

import (
	"fmt"
	"reflect"

	"github.com/kbukum/gears/errors"
)

// Marshal encodes v as a standalone frame.
func Marshal(v any) ([]byte, error) {
	return NewEncoder().Encode(v, true)
}

// Unmarshal decodes a standalone frame produced by Marshal.
func Unmarshal(data []byte) (any, error) {
	d := NewDecoder()
	d.AddData(data)
	v, err := d.Decode()
	if err == ErrIncomplete {
		return nil, errors.Deserialization("frame", fmt.Errorf("truncated frame of %d bytes", len(data)))
	}
	if err != nil {
		return nil, err
	}
	if d.Buffered() != 0 {
		return nil, errors.Deserialization("frame", fmt.Errorf("%d trailing bytes", d.Buffered()))
	}
	return v, nil
}

// UnmarshalAs decodes a standalone frame into T. The absent marker yields the
// zero value.
func UnmarshalAs[T any](data []byte) (T, error) {
	v, err := Unmarshal(data)
	if err != nil {
		var zero T
		return zero, err
	}
	return As[T](v)
}

// As converts a decoded value to T.
func As[T any](v any) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, errors.Deserialization(typeName(zero), fmt.Errorf("got %T", v))
	}
	return t, nil
}

func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	return reflect.TypeOf(v).String()
}
