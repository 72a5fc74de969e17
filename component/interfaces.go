package component

import (
	"context"
	"fmt"
)

// HealthStatus is the state a component reports on /health.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
	// StatusDegraded means the component is up but shedding work, for
	// example while the engine's store breaker is open.
	StatusDegraded HealthStatus = "degraded"
)

// Health is one component's probe result.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Healthy returns a healthy result with an optional message.
func Healthy(name, msg string) Health {
	return Health{Name: name, Status: StatusHealthy, Message: msg}
}

// Unhealthy returns an unhealthy result.
func Unhealthy(name, format string, args ...any) Health {
	return Health{Name: name, Status: StatusUnhealthy, Message: fmt.Sprintf(format, args...)}
}

// Degraded returns a degraded result.
func Degraded(name, format string, args ...any) Health {
	return Health{Name: name, Status: StatusDegraded, Message: fmt.Sprintf(format, args...)}
}

// String renders "name=status(message)".
func (h Health) String() string {
	s := h.Name + "=" + string(h.Status)
	if h.Message != "" {
		s += "(" + h.Message + ")"
	}
	return s
}

// Overall folds results into one status. Unhealthy wins over degraded.
func Overall(results []Health) HealthStatus {
	status := StatusHealthy
	for _, h := range results {
		switch h.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			status = StatusDegraded
		}
	}
	return status
}

// Component is a process-lifetime dependency: the Redis client, the engine,
// the admin server. The registry starts them in order and stops them in
// reverse.
type Component interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) Health
}

// Description is a component's line in the startup summary.
type Description struct {
	Name    string // falls back to Component.Name()
	Type    string // "redis", "engine", "server"
	Details string // e.g. "localhost:6379 db=0"
	Port    int
}

// Describable is implemented by components that want a summary line.
type Describable interface {
	Describe() Description
}
