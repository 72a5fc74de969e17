package validation

import (
	"strings"
	"testing"

	"github.com/kbukum/gears/errors"
)

type redisSection struct {
	Addr string `mapstructure:"addr" validate:"required,hostname_port"`
}

type sampleConfig struct {
	Workers  int          `mapstructure:"workers" validate:"min=1"`
	Mode     string       `mapstructure:"mode" validate:"oneof=sync async async_local"`
	Redis    redisSection `mapstructure:"redis"`
	MaxBatch int          `validate:"gt=0"`
}

func TestStructValidateValid(t *testing.T) {
	cfg := sampleConfig{Workers: 4, Mode: "async", Redis: redisSection{Addr: "localhost:6379"}, MaxBatch: 10}
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestStructValidateInvalid(t *testing.T) {
	cfg := sampleConfig{Workers: 0, Mode: "eager", MaxBatch: 0}
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
	msg := err.Error()
	for _, want := range []string{"workers: must be at least 1", "mode: must be one of", "redis.addr: is required", "max_batch: must be greater than 0"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in %q", want, msg)
		}
	}
	appErr, _ := errors.AsAppError(err)
	fields, ok := appErr.Details["fields"].([]FieldError)
	if !ok || len(fields) != 4 {
		t.Errorf("expected 4 field errors in details, got %v", appErr.Details["fields"])
	}
}

func TestValidatorRequiredUUID(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"valid", "0b1f2c3d-4e5f-4a6b-8c7d-9e0f1a2b3c4d", ""},
		{"empty", "", "is required"},
		{"garbage", "abc", "must be a valid UUID"},
		{"nil uuid", "00000000-0000-0000-0000-000000000000", "must not be empty"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := New().RequiredUUID("id", tc.value).Validate()
			if tc.want == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("expected %q, got %v", tc.want, err)
			}
		})
	}
}

func TestValidatorChaining(t *testing.T) {
	v := New().Required("command", " ").RequiredUUID("id", "abc").Fail("args", "too many")
	if len(v.Errors()) != 3 {
		t.Fatalf("expected 3 errors, got %d: %v", len(v.Errors()), v.Errors())
	}
	err := v.Validate()
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT, got %v", err)
	}
	if want := "command: is required; id: must be a valid UUID; args: too many"; !strings.Contains(err.Error(), want) {
		t.Errorf("expected %q in %q", want, err.Error())
	}
	if New().Required("command", "PING").Validate() != nil {
		t.Error("expected no errors")
	}
}

func TestToSnakeCase(t *testing.T) {
	if got := toSnakeCase("MaxBatch"); got != "max_batch" {
		t.Errorf("expected max_batch, got %q", got)
	}
}
