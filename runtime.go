package gears

import (
	"context"
	"fmt"
	"strings"

	"github.com/kbukum/gears/engine"
	"github.com/kbukum/gears/errors"
	"github.com/kbukum/gears/logger"
)

// Execute runs a command against the engine's backing store and returns the
// reply untouched.
func Execute(ctx context.Context, eng engine.Engine, args ...string) (any, error) {
	if len(args) == 0 {
		return nil, errors.InvalidInput("args", "command is empty")
	}
	reply, err := eng.Execute(ctx, args...)
	if err != nil {
		return nil, errors.EngineCall("execute "+strings.ToLower(args[0]), err)
	}
	return reply, nil
}

// ExecuteAs runs a command and asserts the reply type.
func ExecuteAs[T any](ctx context.Context, eng engine.Engine, args ...string) (T, error) {
	var zero T
	reply, err := Execute(ctx, eng, args...)
	if err != nil {
		return zero, err
	}
	v, ok := reply.(T)
	if !ok {
		return zero, errors.Deserialization(fmt.Sprintf("%T", zero), fmt.Errorf("reply is %T", reply))
	}
	return v, nil
}

// ConfigGet reads an engine configuration value.
func ConfigGet(ctx context.Context, eng engine.Engine, key string) (string, bool, error) {
	v, ok, err := eng.ConfigGet(ctx, key)
	if err != nil {
		return "", false, errors.EngineCall("config get", err)
	}
	return v, ok, nil
}

// Log writes msg to the engine log. The level defaults to notice.
func Log(ctx context.Context, eng engine.Engine, msg string, level ...logger.Level) {
	lvl := logger.LevelNotice
	if len(level) > 0 {
		lvl = level[0]
	}
	eng.Log(ctx, lvl, msg)
}

// Hashtag returns the shard hashtag of the engine's node.
func Hashtag(eng engine.Engine) string {
	return eng.Hashtag()
}
