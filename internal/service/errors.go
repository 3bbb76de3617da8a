package service

import (
	"errors"
	"fmt"

	"github.com/vitaup/vitacore/internal/model"
)

var ErrNotFound = errors.New("not found")

// InvalidProfileError reports an anthropometric input the energy model cannot use.
type InvalidProfileError struct {
	Field string
	Value float64
}

func (e *InvalidProfileError) Error() string {
	return fmt.Sprintf("invalid profile: %s must be a positive finite number (got %v)", e.Field, e.Value)
}

type UnsupportedSourceError struct {
	Source   model.FoodSource
	Provider string
}

func (e *UnsupportedSourceError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("unsupported food source %q (provider %q)", e.Source, e.Provider)
	}
	return fmt.Sprintf("unsupported food source %q", e.Source)
}

// MalformedExternalResponseError carries the raw payload of a collaborator
// response that could not be parsed at all.
type MalformedExternalResponseError struct {
	Source string
	Raw    []byte
	Err    error
}

func (e *MalformedExternalResponseError) Error() string {
	return fmt.Sprintf("malformed %s response: %v", e.Source, e.Err)
}

func (e *MalformedExternalResponseError) Unwrap() error {
	return e.Err
}

func malformed(source string, raw []byte, err error) error {
	return &MalformedExternalResponseError{Source: source, Raw: raw, Err: err}
}

// InputError marks a request the caller has to fix before retrying.
type InputError struct {
	msg string
}

func (e *InputError) Error() string {
	return e.msg
}

func invalidInput(format string, args ...any) error {
	return &InputError{msg: fmt.Sprintf(format, args...)}
}
