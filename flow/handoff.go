package flow

import (
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/classof2022/reunion-registration/registration"
	"github.com/google/uuid"
)

type Step int

const (
	STEP_REGISTRATION Step = iota
	STEP_PAYMENT
	STEP_PHOTO_UPLOAD
	STEP_SUCCESS
)

func (s Step) String() string {
	switch s {
	case STEP_REGISTRATION:
		return "registration"
	case STEP_PAYMENT:
		return "payment"
	case STEP_PHOTO_UPLOAD:
		return "photo-upload"
	case STEP_SUCCESS:
		return "success"
	default:
		return fmt.Sprintf("Step(%d)", int(s))
	}
}

// Path is the front-end route the step is rendered on.
func (s Step) Path() string {
	switch s {
	case STEP_REGISTRATION:
		return "/register"
	case STEP_PAYMENT:
		return "/payment"
	case STEP_PHOTO_UPLOAD:
		return "/photo-upload"
	case STEP_SUCCESS:
		return "/success"
	default:
		return "/"
	}
}

// Registrant is the copy of the submitted fields the later steps need.
type Registrant struct {
	Name           string
	Email          string
	Phone          string
	FoodPreference registration.FoodPreference
}

// Handoff is the session-scoped state carried between steps. Each field has a
// single writer: Register sets RegistrationID and Registrant, ConfirmPayment
// sets PaymentReference and AmountPaid, UploadPhoto sets PhotoURL.
type Handoff struct {
	RegistrationID   uuid.UUID
	Registrant       Registrant
	PaymentReference string
	// AmountPaid is the amount charged, which may differ from the current fee.
	AmountPaid *money.Money
	PhotoURL   string
}

func (h Handoff) IsEmpty() bool {
	return h.RegistrationID == uuid.Nil
}

func (h Handoff) HasPayment() bool {
	return h.PaymentReference != ""
}

// EntryGuard reports whether a step may be entered with the given hand-off.
// A rejection is an *Error whose RedirectTo names the earliest safe step.
func EntryGuard(step Step, h Handoff) error {
	switch step {
	case STEP_PAYMENT:
		if h.IsEmpty() {
			return NewHandoffMissingError("Registration data not found. Please register again.", STEP_REGISTRATION)
		}
		if h.HasPayment() {
			return NewAlreadyPaidError(h.PaymentReference)
		}
	case STEP_PHOTO_UPLOAD:
		if h.IsEmpty() || !h.HasPayment() {
			return NewHandoffMissingError("Invalid access. Please complete the registration flow.", STEP_REGISTRATION)
		}
	}

	return nil
}
