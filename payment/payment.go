package payment

import (
	"time"

	"github.com/Rhymond/go-money"
	"github.com/google/uuid"
)

// CheckoutRequest is everything the provider needs to open a checkout for one
// registration.
type CheckoutRequest struct {
	RegistrationID uuid.UUID
	Amount         *money.Money
	Description    string
	PayerName      string
	PayerEmail     string
	PayerPhone     string
}

// Callback is what the browser receives from the checkout widget after a
// successful payment.
type Callback struct {
	OrderID   string
	PaymentID string
	Signature string
}

type WebhookEventKind int

const (
	PAYMENT_CAPTURED WebhookEventKind = iota
	PAYMENT_FAILED
)

func (k WebhookEventKind) String() string {
	switch k {
	case PAYMENT_CAPTURED:
		return "captured"
	case PAYMENT_FAILED:
		return "failed"
	default:
		return "unknown"
	}
}

type WebhookEvent struct {
	Kind           WebhookEventKind
	RegistrationID uuid.UUID
	PaymentID      string
	OrderID        string
	OccurredAt     time.Time
}
