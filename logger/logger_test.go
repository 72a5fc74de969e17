package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func newBufferLogger(level string) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	cfg := &Config{Level: level, Format: "json"}
	return NewWithWriter(cfg, "test", &buf), &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("expected a log line, got nothing")
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		t.Fatalf("invalid json log line %q: %v", line, err)
	}
	return m
}

func TestNewInvalidLevel(t *testing.T) {
	l := New(&Config{Level: "invalid-level", Format: "json"}, "test")
	if l == nil {
		t.Fatal("expected logger to be created even with invalid level")
	}
}

func TestInfoWritesFields(t *testing.T) {
	l, buf := newBufferLogger("info")
	l.WithComponent("engine").Info("registered", Fields(FieldRegistration, "r-1"))

	m := decodeLine(t, buf)
	if m["message"] != "registered" {
		t.Errorf("expected message 'registered', got %v", m["message"])
	}
	if m[FieldComponent] != "engine" {
		t.Errorf("expected component=engine, got %v", m[FieldComponent])
	}
	if m[FieldRegistration] != "r-1" {
		t.Errorf("expected registration=r-1, got %v", m[FieldRegistration])
	}
	if m["service"] != "test" {
		t.Errorf("expected service=test, got %v", m["service"])
	}
}

func TestDebugFilteredAtInfo(t *testing.T) {
	l, buf := newBufferLogger("info")
	l.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected debug to be filtered, got %q", buf.String())
	}
}

func TestLogPipelineLevels(t *testing.T) {
	tests := []struct {
		level     Level
		minLevel  string
		wantLevel string
		visible   bool
	}{
		{LevelNotice, "info", "info", true},
		{LevelWarning, "info", "warn", true},
		{LevelVerbose, "info", "", false},
		{LevelVerbose, "debug", "debug", true},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprintf("%s@%s", tc.level, tc.minLevel), func(t *testing.T) {
			l, buf := newBufferLogger(tc.minLevel)
			l.Log(tc.level, "user message")
			if !tc.visible {
				if buf.Len() != 0 {
					t.Errorf("expected no output, got %q", buf.String())
				}
				return
			}
			m := decodeLine(t, buf)
			if m["level"] != tc.wantLevel {
				t.Errorf("expected level %s, got %v", tc.wantLevel, m["level"])
			}
			if m[FieldLevel] != tc.level.String() {
				t.Errorf("expected pipeline_level %s, got %v", tc.level, m[FieldLevel])
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
		ok   bool
	}{
		{"debug", LevelDebug, true},
		{"VERBOSE", LevelVerbose, true},
		{"notice", LevelNotice, true},
		{"warn", LevelWarning, true},
		{"warning", LevelWarning, true},
		{"loud", LevelNotice, false},
	}
	for _, tc := range tests {
		got, ok := ParseLevel(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("ParseLevel(%q) = %v,%v; want %v,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestWithContextIDs(t *testing.T) {
	l, buf := newBufferLogger("info")
	ctx := ContextWithRequestID(context.Background(), "req-1")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x0a, 0x0b, 15: 0x01},
		SpanID:     trace.SpanID{0x0c, 7: 0x02},
		TraceFlags: trace.FlagsSampled,
	})
	ctx = trace.ContextWithSpanContext(ctx, sc)
	l.WithContext(ctx).Info("hello")

	m := decodeLine(t, buf)
	if m[FieldRequestID] != "req-1" {
		t.Errorf("expected request_id=req-1, got %v", m[FieldRequestID])
	}
	if m[FieldTraceID] != "0a0b0000000000000000000000000001" {
		t.Errorf("unexpected trace_id %v", m[FieldTraceID])
	}
	if m[FieldSpanID] != "0c00000000000002" {
		t.Errorf("unexpected span_id %v", m[FieldSpanID])
	}
}

func TestWithContext_NoSpan(t *testing.T) {
	l, buf := newBufferLogger("info")
	l.WithContext(context.Background()).Info("hello")
	m := decodeLine(t, buf)
	if _, ok := m[FieldTraceID]; ok {
		t.Error("trace_id set without an active span")
	}
}

func TestLogPipelineFloor(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "trace", Format: "json", PipelineLevel: "notice"}, "test", &buf)
	l.Log(LevelVerbose, "dropped")
	if buf.Len() != 0 {
		t.Fatalf("verbose message passed a notice floor: %q", buf.String())
	}
	l.WithComponent("engine").Log(LevelWarning, "kept")
	if m := decodeLine(t, &buf); m["message"] != "kept" {
		t.Errorf("unexpected line %v", m)
	}
}

func TestWithError(t *testing.T) {
	l, buf := newBufferLogger("info")
	l.WithError(fmt.Errorf("boom")).Error("failed")
	m := decodeLine(t, buf)
	if m["error"] != "boom" {
		t.Errorf("expected error=boom, got %v", m["error"])
	}
}

func TestNopDiscards(t *testing.T) {
	Nop().Error("nothing")
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()
	if cfg.Level != "info" || cfg.Format != "console" || cfg.Output != "stdout" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if !cfg.Timestamp {
		t.Error("expected timestamp to be enabled")
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := &Config{Level: "info", Format: "json"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
	cfg.Level = "loud"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for invalid level")
	}
	cfg.Level = "info"
	cfg.Format = "xml"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for invalid format")
	}
	cfg.Format = "json"
	cfg.PipelineLevel = "chatty"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for invalid pipeline level")
	}
}

func TestGetGlobalLogger(t *testing.T) {
	if GetGlobalLogger() == nil {
		t.Fatal("expected a default global logger")
	}
	Init(Config{Level: "warn", Format: "json", PipelineLevel: "warning"})
	if got := GetGlobalLogger().floor; got != LevelWarning {
		t.Errorf("global pipeline floor = %s, want warning", got)
	}
}

func TestFields(t *testing.T) {
	m := Fields("a", 1, "b", "two", 3, "skipped", "dangling")
	if m["a"] != 1 || m["b"] != "two" {
		t.Errorf("unexpected fields: %v", m)
	}
	if len(m) != 2 {
		t.Errorf("expected 2 entries, got %d", len(m))
	}
}

func TestErrorFields(t *testing.T) {
	m := ErrorFields("append", fmt.Errorf("closed"))
	if m[FieldOperation] != "append" || m[FieldError] != "closed" {
		t.Errorf("unexpected fields: %v", m)
	}
}
