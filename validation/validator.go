package validation

import (
	"strings"

	"github.com/google/uuid"

	"github.com/kbukum/gears/errors"
)

// FieldError is one failed check, reported under the "fields" detail.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validator accumulates checks on request input, such as path parameters
// on the admin API, and reports them together.
//
//	err := validation.New().RequiredUUID("id", c.Param("id")).Validate()
type Validator struct {
	fields []FieldError
}

// New returns an empty Validator.
func New() *Validator { return &Validator{} }

// Fail records a failed check.
func (v *Validator) Fail(field, message string) *Validator {
	v.fields = append(v.fields, FieldError{Field: field, Message: message})
	return v
}

// Errors returns the failed checks so far.
func (v *Validator) Errors() []FieldError { return v.fields }

// Validate returns an INVALID_INPUT error listing every failed check, or nil.
func (v *Validator) Validate() error {
	if len(v.fields) == 0 {
		return nil
	}
	return toAppError(v.fields)
}

// Required fails on blank values.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		return v.Fail(field, "is required")
	}
	return v
}

// RequiredUUID fails unless value parses as a non-nil UUID. Registration
// ids and pipeline handles have this shape.
func (v *Validator) RequiredUUID(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		return v.Fail(field, "is required")
	}
	switch id, err := uuid.Parse(value); {
	case err != nil:
		return v.Fail(field, "must be a valid UUID")
	case id == uuid.Nil:
		return v.Fail(field, "must not be empty")
	}
	return v
}

func toAppError(fields []FieldError) error {
	msgs := make([]string, len(fields))
	for i, f := range fields {
		msgs[i] = f.Field + ": " + f.Message
	}
	return errors.Validation(strings.Join(msgs, "; ")).WithDetail("fields", fields)
}
