// Package validation checks configuration structs and API inputs.
//
// Struct validation uses go-playground/validator tags and reports field names
// by their mapstructure key, so messages match the YAML the user wrote:
//
//	type Config struct {
//	    Workers int `mapstructure:"workers" validate:"min=1"`
//	}
//
// The fluent Validator covers ad-hoc checks such as path parameters.
package validation
