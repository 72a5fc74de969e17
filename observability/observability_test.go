package observability

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.ServiceName != "gears" {
		t.Errorf("expected ServiceName 'gears', got %s", cfg.ServiceName)
	}
	if cfg.Endpoint != "localhost:4318" {
		t.Errorf("expected Endpoint 'localhost:4318', got %s", cfg.Endpoint)
	}
	if cfg.Interval != 15*time.Second {
		t.Errorf("expected Interval 15s, got %v", cfg.Interval)
	}
}

func TestNewMetricsNoop(t *testing.T) {
	metrics, err := NewMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatalf("unexpected error creating metrics: %v", err)
	}
	ctx := context.Background()
	metrics.RecordStep(ctx, "map", "", time.Millisecond)
	metrics.RecordStep(ctx, "map", "TRANSFORM_ERROR", time.Millisecond)
	metrics.RegistrationStarted(ctx, "async")
	metrics.RegistrationEnded(ctx, "async")
	metrics.RecordEmitted(ctx, "stream-A", 3)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordStep(ctx, "map", "", time.Millisecond)
	m.RegistrationStarted(ctx, "sync")
	m.RegistrationEnded(ctx, "sync")
	m.RecordEmitted(ctx, "r", 1)
}

func TestRecordStepCounts(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	metrics.RecordStep(ctx, "filter", "", time.Millisecond)
	metrics.RecordStep(ctx, "filter", "TRANSFORM_ERROR", time.Millisecond)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatal(err)
	}
	totals := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					totals[m.Name] += dp.Value
				}
			}
		}
	}
	if totals["gears.step.invocations"] != 2 {
		t.Errorf("expected 2 invocations, got %d", totals["gears.step.invocations"])
	}
	if totals["gears.step.errors"] != 1 {
		t.Errorf("expected 1 error, got %d", totals["gears.step.errors"])
	}
}

func TestStartSpanAndEndSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	_, span := StartSpan(context.Background(), SpanStep, attribute.String(AttrKind, "map"))
	EndSpan(span, fmt.Errorf("boom"))

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected 1 span, got %d", len(ended))
	}
	if ended[0].Name() != SpanStep {
		t.Errorf("expected span %s, got %s", SpanStep, ended[0].Name())
	}
	if ended[0].Status().Code != codes.Error {
		t.Errorf("expected error status, got %v", ended[0].Status())
	}
}

func TestEndSpanWithoutError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	_, span := tp.Tracer("test").Start(context.Background(), SpanRun)
	EndSpan(span, nil)
	if got := recorder.Ended()[0].Status().Code; got == codes.Error {
		t.Error("expected non-error status")
	}
}

func TestInitTracer(t *testing.T) {
	cfg := Config{Endpoint: "localhost:4318", Insecure: true, SampleRate: 0.5}
	cfg.ApplyDefaults()
	tp, err := InitTracer(context.Background(), cfg)
	if err != nil {
		t.Fatalf("InitTracer: %v", err)
	}
	defer tp.Shutdown(context.Background())
}

func TestInitMeter(t *testing.T) {
	cfg := Config{Endpoint: "localhost:4318", Insecure: true}
	cfg.ApplyDefaults()
	mp, err := InitMeter(context.Background(), cfg)
	if err != nil {
		t.Fatalf("InitMeter: %v", err)
	}
	defer mp.Shutdown(context.Background())
}
