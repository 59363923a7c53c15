package events

import "fmt"

type ErrorReason string

const (
	REASON_INVALID_CATALOG        ErrorReason = "INVALID_CATALOG"
	REASON_FAILED_TO_LOAD_CATALOG ErrorReason = "FAILED_TO_LOAD_CATALOG"
)

type Error struct {
	Reason  ErrorReason
	Message string
	Cause   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s. Cause: %s", e.Reason, e.Message, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newEventError(reason ErrorReason, message string, cause error) *Error {
	return &Error{
		Reason:  reason,
		Message: message,
		Cause:   cause,
	}
}

func NewInvalidCatalogError(message string) *Error {
	return newEventError(REASON_INVALID_CATALOG, message, nil)
}

func NewFailedToLoadCatalogError(message string, cause error) *Error {
	return newEventError(REASON_FAILED_TO_LOAD_CATALOG, message, cause)
}
