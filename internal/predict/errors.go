package predict

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline failures. Client kinds mean the caller can fix the
// request; internal kinds indicate artifact or deployment skew and should
// page an operator instead of being retried.
type Kind string

const (
	KindMissingField     Kind = "MISSING_FIELD"
	KindInvalidField     Kind = "INVALID_FIELD"
	KindEncodingMismatch Kind = "ENCODING_MISMATCH"
	KindShapeMismatch    Kind = "SHAPE_MISMATCH"
	KindArtifactLoad     Kind = "ARTIFACT_LOAD_FAILURE"
	KindInternal         Kind = "INTERNAL"
)

// Error is the typed failure surfaced by the inference pipeline.
type Error struct {
	Kind    Kind
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// AsError extracts the typed pipeline error, or nil if err is something else.
func AsError(err error) *Error {
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsClientError reports whether the failure is correctable by the caller.
// Everything else maps to a 5xx-equivalent and deserves alerting.
func IsClientError(err error) bool {
	typed := AsError(err)
	if typed == nil {
		return false
	}
	return typed.Kind == KindMissingField || typed.Kind == KindInvalidField
}
