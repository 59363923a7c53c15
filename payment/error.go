package payment

import "fmt"

type ErrorReason string

const (
	REASON_FAILED_TO_CREATE_ORDER ErrorReason = "FAILED_TO_CREATE_ORDER"
	REASON_INVALID_SIGNATURE      ErrorReason = "INVALID_SIGNATURE"
	REASON_MALFORMED_PAYLOAD      ErrorReason = "MALFORMED_PAYLOAD"
	REASON_ORDER_LOOKUP_FAILED    ErrorReason = "ORDER_LOOKUP_FAILED"
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

func newPaymentError(reason ErrorReason, message string, cause error) *Error {
	return &Error{
		Reason:  reason,
		Message: message,
		Cause:   cause,
	}
}

func NewFailedToCreateOrderError(message string, cause error) *Error {
	return newPaymentError(REASON_FAILED_TO_CREATE_ORDER, message, cause)
}

func NewInvalidSignatureError(message string) *Error {
	return newPaymentError(REASON_INVALID_SIGNATURE, message, nil)
}

func NewMalformedPayloadError(message string, cause error) *Error {
	return newPaymentError(REASON_MALFORMED_PAYLOAD, message, cause)
}

func NewOrderLookupFailedError(message string, cause error) *Error {
	return newPaymentError(REASON_ORDER_LOOKUP_FAILED, message, cause)
}
