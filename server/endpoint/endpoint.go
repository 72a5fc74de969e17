// Package endpoint holds the process-level HTTP handlers of the admin server.
package endpoint

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/gears/component"
	"github.com/kbukum/gears/version"
)

// HealthChecker returns the health of every registered component.
type HealthChecker func(ctx context.Context) []component.Health

// HealthReport is the body of GET /health.
type HealthReport struct {
	Status     component.HealthStatus `json:"status"`
	Service    string                 `json:"service"`
	Timestamp  time.Time              `json:"timestamp"`
	Components []component.Health     `json:"components"`
}

// InfoReport is the body of GET /info.
type InfoReport struct {
	Service string       `json:"service"`
	Build   version.Info `json:"build"`
	Uptime  string       `json:"uptime"`
}

var started = time.Now()

// Health answers 503 while any component is unhealthy. A degraded engine
// still answers 200 so the process is not restarted for a tripped breaker.
func Health(serviceName string, checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		report := HealthReport{Service: serviceName, Timestamp: time.Now().UTC()}
		if checker != nil {
			report.Components = checker(c.Request.Context())
		}
		report.Status = component.Overall(report.Components)

		code := http.StatusOK
		if report.Status == component.StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, report)
	}
}

// Info reports the build and process uptime.
func Info(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, InfoReport{
			Service: serviceName,
			Build:   version.Get(),
			Uptime:  time.Since(started).Round(time.Second).String(),
		})
	}
}
