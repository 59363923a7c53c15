package flow

import (
	"errors"
	"fmt"

	"github.com/classof2022/reunion-registration/registration"
)

type ErrorReason string

const (
	REASON_INVALID_SUBMISSION       ErrorReason = "INVALID_SUBMISSION"
	REASON_CAPTCHA_REQUIRED         ErrorReason = "CAPTCHA_REQUIRED"
	REASON_CAPTCHA_INVALID          ErrorReason = "CAPTCHA_INVALID"
	REASON_HANDOFF_MISSING          ErrorReason = "HANDOFF_MISSING"
	REASON_ALREADY_PAID             ErrorReason = "ALREADY_PAID"
	REASON_STORE_UNAVAILABLE        ErrorReason = "STORE_UNAVAILABLE"
	REASON_PAYMENT_UNAVAILABLE      ErrorReason = "PAYMENT_UNAVAILABLE"
	REASON_PAYMENT_NOT_VERIFIED     ErrorReason = "PAYMENT_NOT_VERIFIED"
	REASON_PAYMENT_UNRECORDED       ErrorReason = "PAYMENT_UNRECORDED"
	REASON_INVALID_PHOTO            ErrorReason = "INVALID_PHOTO"
	REASON_BLOB_STORE_UNAVAILABLE   ErrorReason = "BLOB_STORE_UNAVAILABLE"
	REASON_REGISTRATION_NOT_PENDING ErrorReason = "REGISTRATION_NOT_PENDING"
)

type Error struct {
	Reason  ErrorReason
	Message string
	Cause   error

	FieldErrors []registration.FieldError
	// Set on guard rejections.
	RedirectTo *Step
	// Set when the registrant was charged but the record could not be updated.
	PaymentReference string
	SupportContact   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s. Cause: %s", e.Reason, e.Message, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newFlowError(reason ErrorReason, message string, cause error) *Error {
	return &Error{
		Reason:  reason,
		Message: message,
		Cause:   cause,
	}
}

func NewInvalidSubmissionError(fieldErrors []registration.FieldError) *Error {
	err := newFlowError(REASON_INVALID_SUBMISSION, "Please fix the highlighted fields", nil)
	err.FieldErrors = fieldErrors
	return err
}

func NewCaptchaRequiredError() *Error {
	return newFlowError(REASON_CAPTCHA_REQUIRED, "Please complete the reCAPTCHA", nil)
}

func NewCaptchaInvalidError(cause error) *Error {
	return newFlowError(REASON_CAPTCHA_INVALID, "reCAPTCHA verification failed, please try again", cause)
}

func NewHandoffMissingError(message string, redirectTo Step) *Error {
	err := newFlowError(REASON_HANDOFF_MISSING, message, nil)
	err.RedirectTo = &redirectTo
	return err
}

func NewAlreadyPaidError(paymentRef string) *Error {
	redirectTo := STEP_PHOTO_UPLOAD
	err := newFlowError(REASON_ALREADY_PAID, "Payment has already been completed", nil)
	err.RedirectTo = &redirectTo
	err.PaymentReference = paymentRef
	return err
}

func NewRegistrationNotPendingError(status registration.PaymentStatus) *Error {
	redirectTo := STEP_REGISTRATION
	err := newFlowError(REASON_REGISTRATION_NOT_PENDING, fmt.Sprintf("This registration can no longer be paid for (status %s). Please register again.", status), nil)
	err.RedirectTo = &redirectTo
	return err
}

// NewStoreUnavailableError keeps the store's own message so it can be shown to
// the registrant as is.
func NewStoreUnavailableError(cause error) *Error {
	return newFlowError(REASON_STORE_UNAVAILABLE, storeMessage(cause), cause)
}

func NewPaymentUnavailableError(cause error) *Error {
	return newFlowError(REASON_PAYMENT_UNAVAILABLE, "Payment gateway error. Please try again.", cause)
}

func NewPaymentNotVerifiedError(cause error) *Error {
	return newFlowError(REASON_PAYMENT_NOT_VERIFIED, "Payment could not be verified", cause)
}

func NewPaymentUnrecordedError(paymentRef string, supportContact string, cause error) *Error {
	err := newFlowError(REASON_PAYMENT_UNRECORDED, fmt.Sprintf("Your payment %s succeeded but could not be recorded. Please contact support at %s with this payment ID.", paymentRef, supportContact), cause)
	err.PaymentReference = paymentRef
	err.SupportContact = supportContact
	return err
}

func NewInvalidPhotoError(message string) *Error {
	return newFlowError(REASON_INVALID_PHOTO, message, nil)
}

func NewBlobStoreUnavailableError(cause error) *Error {
	return newFlowError(REASON_BLOB_STORE_UNAVAILABLE, "Failed to upload photo. Please try again.", cause)
}

func storeMessage(err error) string {
	var regErr *registration.Error
	if errors.As(err, &regErr) && regErr.Message != "" {
		return regErr.Message
	}
	return err.Error()
}
