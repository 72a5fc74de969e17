package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/gears/logger"
)

// InitMeter installs an OTLP/HTTP meter provider as the global provider.
// The returned provider must be shut down on exit.
func InitMeter(ctx context.Context, cfg Config) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.Interval))
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(newResource(cfg)),
	)
	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", cfg.ServiceName,
		"endpoint", cfg.Endpoint,
		"interval", cfg.Interval.String(),
	))
	return mp, nil
}

// Meter returns the gears meter from the global provider.
func Meter() metric.Meter {
	return otel.Meter(tracerName)
}

// Metrics holds the pipeline instruments.
type Metrics struct {
	stepTotal           metric.Int64Counter
	stepDuration        metric.Float64Histogram
	stepErrors          metric.Int64Counter
	registrationsActive metric.Int64UpDownCounter
	recordsEmitted      metric.Int64Counter
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	stepTotal, err := meter.Int64Counter("gears.step.invocations",
		metric.WithDescription("Step callback invocations"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating gears.step.invocations counter: %w", err)
	}
	stepDuration, err := meter.Float64Histogram("gears.step.duration",
		metric.WithDescription("Step callback latency"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating gears.step.duration histogram: %w", err)
	}
	stepErrors, err := meter.Int64Counter("gears.step.errors",
		metric.WithDescription("Step callbacks that failed, by error code"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating gears.step.errors counter: %w", err)
	}
	registrationsActive, err := meter.Int64UpDownCounter("gears.registrations.active",
		metric.WithDescription("Currently active registrations"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating gears.registrations.active counter: %w", err)
	}
	recordsEmitted, err := meter.Int64Counter("gears.records.emitted",
		metric.WithDescription("Records produced by completed executions"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating gears.records.emitted counter: %w", err)
	}

	return &Metrics{
		stepTotal:           stepTotal,
		stepDuration:        stepDuration,
		stepErrors:          stepErrors,
		registrationsActive: registrationsActive,
		recordsEmitted:      recordsEmitted,
	}, nil
}

// MustMetrics creates instruments on the global meter and panics on failure.
func MustMetrics() *Metrics {
	m, err := NewMetrics(Meter())
	if err != nil {
		panic(err)
	}
	return m
}

// RecordStep records one step invocation. code is empty on success.
func (m *Metrics) RecordStep(ctx context.Context, kind, code string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String(AttrKind, kind))
	m.stepTotal.Add(ctx, 1, attrs)
	m.stepDuration.Record(ctx, d.Seconds(), attrs)
	if code != "" {
		m.stepErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String(AttrKind, kind),
			attribute.String("code", code),
		))
	}
}

// RegistrationStarted increments the active registration gauge.
func (m *Metrics) RegistrationStarted(ctx context.Context, mode string) {
	if m == nil {
		return
	}
	m.registrationsActive.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrMode, mode)))
}

// RegistrationEnded decrements the active registration gauge.
func (m *Metrics) RegistrationEnded(ctx context.Context, mode string) {
	if m == nil {
		return
	}
	m.registrationsActive.Add(ctx, -1, metric.WithAttributes(attribute.String(AttrMode, mode)))
}

// RecordEmitted counts records produced by an execution.
func (m *Metrics) RecordEmitted(ctx context.Context, reader string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.recordsEmitted.Add(ctx, int64(n), metric.WithAttributes(attribute.String(AttrReader, reader)))
}
