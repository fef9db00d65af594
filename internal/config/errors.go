package config

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a configuration error.
type ErrorKind string

const (
	MissingRequiredOption ErrorKind = "missing-required-option"
	InvalidEnumValue      ErrorKind = "invalid-enum-value"
	InvalidValue          ErrorKind = "invalid-value"
)

// ErrInvalidConfiguration matches any *Error with errors.Is.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// Error reports a configuration problem detected before any provider call.
type Error struct {
	Kind    ErrorKind
	Option  string
	Value   string
	Allowed []string
}

func (e *Error) Error() string {
	switch e.Kind {
	case MissingRequiredOption:
		return fmt.Sprintf("%s: missing required option %q", e.Kind, e.Option)
	case InvalidEnumValue:
		return fmt.Sprintf("%s: %s=%q (allowed: %v)", e.Kind, e.Option, e.Value, e.Allowed)
	default:
		return fmt.Sprintf("%s: %s=%q", e.Kind, e.Option, e.Value)
	}
}

func (e *Error) Is(target error) bool {
	return target == ErrInvalidConfiguration
}

func Missing(option string) *Error {
	return &Error{Kind: MissingRequiredOption, Option: option}
}

func InvalidEnum(option, value string, allowed []string) *Error {
	return &Error{Kind: InvalidEnumValue, Option: option, Value: value, Allowed: allowed}
}

func Invalid(option string, value any) *Error {
	return &Error{Kind: InvalidValue, Option: option, Value: fmt.Sprint(value)}
}
