package codec

import (
	"encoding/gob"
	"fmt"
	"reflect"
	"sync"
)

var registered sync.Map

// Register makes the concrete type of v decodable when it travels inside an
// interface. Nil values, interface types and kinds gob cannot encode are
// ignored. Registering a type twice is a no-op.
func Register(v any) (err error) {
	if v == nil {
		return nil
	}
	return registerType(reflect.TypeOf(v), v)
}

// RegisterType registers T without needing a value.
func RegisterType[T any]() error {
	rt := reflect.TypeFor[T]()
	if rt.Kind() == reflect.Interface {
		return nil
	}
	return registerType(rt, reflect.Zero(rt).Interface())
}

func registerType(rt reflect.Type, v any) (err error) {
	switch rt.Kind() {
	case reflect.Interface, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return nil
	}
	if _, done := registered.Load(rt); done {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("codec: register %s: %v", rt, r)
		}
	}()
	gob.Register(v)
	registered.Store(rt, struct{}{})
	return nil
}
