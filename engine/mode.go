package engine

import (
	"fmt"
	"strings"
)

// Mode selects how a registered pipeline is executed.
type Mode int

const (
	// ModeAsync runs each triggered execution on a worker pool. It is the default.
	ModeAsync Mode = iota
	// ModeAsyncLocal runs executions on one background worker local to the node.
	ModeAsyncLocal
	// ModeSync runs executions inline, in event order.
	ModeSync
)

func (m Mode) String() string {
	switch m {
	case ModeAsync:
		return "async"
	case ModeAsyncLocal:
		return "async_local"
	case ModeSync:
		return "sync"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode converts a mode name into a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "async":
		return ModeAsync, nil
	case "async_local", "asynclocal", "async-local":
		return ModeAsyncLocal, nil
	case "sync":
		return ModeSync, nil
	}
	return ModeAsync, fmt.Errorf("unknown execution mode %q", s)
}
