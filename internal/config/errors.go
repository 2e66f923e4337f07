package config

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigError wraps a failure while reading or decoding configuration.
type ConfigError struct {
	Op  string // read, bind_env, unmarshal
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Op, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// FieldError is one invalid setting, keyed by its dotted config path.
type FieldError struct {
	Field string
	Msg   string
}

func (e FieldError) String() string {
	return e.Field + " " + e.Msg
}

// ValidationError collects every invalid setting found by Validate.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) add(field, format string, args ...any) {
	e.Fields = append(e.Fields, FieldError{Field: field, Msg: fmt.Sprintf(format, args...)})
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 1 {
		return "invalid configuration: " + e.Fields[0].String()
	}
	lines := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		lines[i] = f.String()
	}
	return fmt.Sprintf("invalid configuration (%d problems):\n  - %s",
		len(e.Fields), strings.Join(lines, "\n  - "))
}

// HasError reports whether field failed validation.
func (e *ValidationError) HasError(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// IsValidationError checks if an error is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConfigError checks if an error is a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
