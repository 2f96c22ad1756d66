package binance

import (
	"errors"
	"fmt"
)

// -----------------------------------------------------------------------------
// Decode Error Taxonomy
// -----------------------------------------------------------------------------

// DecodeErrorKind classifies the ways a wire message can fail to decode.
type DecodeErrorKind string

const (
	// KindMalformedJSON - the input is not valid JSON at all
	KindMalformedJSON DecodeErrorKind = "malformed_json"
	// KindMissingField - a required field is absent from the object
	KindMissingField DecodeErrorKind = "missing_field"
	// KindTypeMismatch - the field is present but has the wrong JSON type
	KindTypeMismatch DecodeErrorKind = "type_mismatch"
	// KindNumericParse - a numeric-string field does not parse as a number
	KindNumericParse DecodeErrorKind = "numeric_parse"
)

// -----------------------------------------------------------------------------

// DecodeError is the single failure type returned by every decode entry point.
// It is always returned as a value to the immediate caller; this layer never
// panics, logs or retries.
type DecodeError struct {
	Kind  DecodeErrorKind
	Field string // wire key, empty for document-level failures
	Cause error
}

// -----------------------------------------------------------------------------

func (e *DecodeError) Error() string {
	switch {
	case e.Field == "" && e.Cause != nil:
		return fmt.Sprintf("decode %s: %v", e.Kind, e.Cause)
	case e.Field == "":
		return fmt.Sprintf("decode %s", e.Kind)
	case e.Cause != nil:
		return fmt.Sprintf("decode field %q: %s: %v", e.Field, e.Kind, e.Cause)
	default:
		return fmt.Sprintf("decode field %q: %s", e.Field, e.Kind)
	}
}

// -----------------------------------------------------------------------------

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// -----------------------------------------------------------------------------

// AsDecodeError unwraps err into a *DecodeError if there is one in the chain.
func AsDecodeError(err error) (*DecodeError, bool) {
	var de *DecodeError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// -----------------------------------------------------------------------------
// Constructors
// -----------------------------------------------------------------------------

func errMalformed(cause error) *DecodeError {
	return &DecodeError{Kind: KindMalformedJSON, Cause: cause}
}

func errMissing(field string) *DecodeError {
	return &DecodeError{Kind: KindMissingField, Field: field}
}

func errMismatch(field string, cause error) *DecodeError {
	return &DecodeError{Kind: KindTypeMismatch, Field: field, Cause: cause}
}

func errNumeric(field string, cause error) *DecodeError {
	return &DecodeError{Kind: KindNumericParse, Field: field, Cause: cause}
}
