package registration

import (
	"fmt"
	"strings"
)

type ErrorReason string

const (
	REASON_FAILED_TO_TRANSLATE_TO_DB_MODEL ErrorReason = "FAILED_TO_TRANSLATE_TO_DB_MODEL"
	REASON_FAILED_TO_WRITE                 ErrorReason = "FAILED_TO_WRITE"
	REASON_REGISTRATION_DOES_NOT_EXIST     ErrorReason = "REGISTRATION_DOES_NOT_EXIST"
	REASON_REGISTRATION_ALREADY_EXISTS     ErrorReason = "REGISTRATION_ALREADY_EXISTS"
	REASON_FAILED_TO_FETCH                 ErrorReason = "FAILED_TO_FETCH"
	REASON_INVALID_CURSOR                  ErrorReason = "INVALID_CURSOR"
	REASON_INVALID_SUBMISSION              ErrorReason = "INVALID_SUBMISSION"
	REASON_INVALID_PAYMENT_TRANSITION      ErrorReason = "INVALID_PAYMENT_TRANSITION"
	REASON_PAYMENT_ALREADY_RECORDED        ErrorReason = "PAYMENT_ALREADY_RECORDED"
	REASON_INVALID_PHOTO_URL               ErrorReason = "INVALID_PHOTO_URL"
	REASON_VERSION_CONFLICT                ErrorReason = "VERSION_CONFLICT"
	REASON_TIMEOUT                         ErrorReason = "TIMEOUT"
)

type Error struct {
	Reason      ErrorReason
	Message     string
	Cause       error
	FieldErrors []FieldError
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s. Cause: %s", e.Reason, e.Message, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newRegistrationError(reason ErrorReason, message string, cause error) *Error {
	return &Error{
		Reason:  reason,
		Message: message,
		Cause:   cause,
	}
}

func NewFailedToWriteError(message string, cause error) *Error {
	return newRegistrationError(REASON_FAILED_TO_WRITE, message, cause)
}

func NewFailedToTranslateToDBModelError(message string, cause error) *Error {
	return newRegistrationError(REASON_FAILED_TO_TRANSLATE_TO_DB_MODEL, message, cause)
}

func NewRegistrationAlreadyExistsError(message string, cause error) *Error {
	return newRegistrationError(REASON_REGISTRATION_ALREADY_EXISTS, message, cause)
}

func NewRegistrationDoesNotExistsError(message string, cause error) *Error {
	return newRegistrationError(REASON_REGISTRATION_DOES_NOT_EXIST, message, cause)
}

func NewFailedToFetchError(message string, cause error) *Error {
	return newRegistrationError(REASON_FAILED_TO_FETCH, message, cause)
}

func NewInvalidCursorError(message string, cause error) *Error {
	return newRegistrationError(REASON_INVALID_CURSOR, message, cause)
}

func NewInvalidSubmissionError(fieldErrors []FieldError) *Error {
	fields := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		fields = append(fields, fe.Field)
	}

	err := newRegistrationError(REASON_INVALID_SUBMISSION, fmt.Sprintf("Invalid fields: %s", strings.Join(fields, ", ")), nil)
	err.FieldErrors = fieldErrors
	return err
}

func NewInvalidPaymentTransitionError(from PaymentStatus, to PaymentStatus) *Error {
	return newRegistrationError(REASON_INVALID_PAYMENT_TRANSITION, fmt.Sprintf("Payment status cannot move from %s to %s", from, to), nil)
}

func NewPaymentAlreadyRecordedError(existingRef string) *Error {
	return newRegistrationError(REASON_PAYMENT_ALREADY_RECORDED, fmt.Sprintf("A different payment (%s) is already recorded", existingRef), nil)
}

func NewInvalidPhotoURLError(message string) *Error {
	return newRegistrationError(REASON_INVALID_PHOTO_URL, message, nil)
}

func NewVersionConflictError(message string, cause error) *Error {
	return newRegistrationError(REASON_VERSION_CONFLICT, message, cause)
}

func NewTimeoutError(message string) *Error {
	return newRegistrationError(REASON_TIMEOUT, message, nil)
}
