package bootstrap

import (
	"context"
	"errors"
	"fmt"
)

// Hook is a lifecycle callback.
type Hook func(ctx context.Context) error

// OnStart adds hooks that run once every component has started.
func (a *App[C]) OnStart(hooks ...Hook) { a.onStart = append(a.onStart, hooks...) }

// OnReady adds hooks that run after the ready check. Pipelines are
// registered here, once the store and the engine are up.
func (a *App[C]) OnReady(hooks ...Hook) { a.onReady = append(a.onReady, hooks...) }

// OnStop adds hooks that run on shutdown, before components stop. Every
// stop hook runs even when an earlier one fails.
func (a *App[C]) OnStop(hooks ...Hook) { a.onStop = append(a.onStop, hooks...) }

// runUntilError runs hooks in order and stops at the first failure.
func runUntilError(ctx context.Context, phase string, hooks []Hook) error {
	for i, h := range hooks {
		if err := h(ctx); err != nil {
			return fmt.Errorf("%s hook %d: %w", phase, i, err)
		}
	}
	return nil
}

// runAll runs every hook and joins the failures.
func runAll(ctx context.Context, phase string, hooks []Hook) error {
	var errs []error
	for i, h := range hooks {
		if err := h(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s hook %d: %w", phase, i, err))
		}
	}
	return errors.Join(errs...)
}
