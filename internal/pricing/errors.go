package pricing

import (
	"errors"
	"fmt"
)

// Kind classifies extraction failures.
type Kind string

const (
	KindConfiguration   Kind = "configuration"
	KindInputValidation Kind = "input_validation"
	KindFetch           Kind = "fetch"
	KindInference       Kind = "inference"
	KindEmptyResult     Kind = "empty_result"
	KindUnknown         Kind = "unknown"
)

// User-facing messages.
const (
	msgNotConfigured    = "API keys not configured. Please set up your keys first."
	msgFillAllFields    = "Please fill in all fields"
	msgNoModelNames     = "Please enter at least one model name"
	msgInvalidURL       = "Please enter a valid http(s) URL"
	msgPredefinedFailed = "Failed to extract pricing data. Check your API keys and internet connection."
	msgPredefinedEmpty  = "No pricing data found. Please check your API keys and internet connection."
)

// ErrNotConfigured is the configuration error returned before any network call.
var ErrNotConfigured = &Error{Kind: KindConfiguration, Message: msgNotConfigured}

// Error is the typed error produced by the extraction function.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func extractionError(kind Kind, err error) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf("Failed to extract pricing: %v", err),
		Err:     err,
	}
}

// KindOf returns the Kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return KindUnknown
}

// MessageOf returns the human-readable message of err.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Error()
	}
	return fmt.Sprintf("Error: %v", err)
}
