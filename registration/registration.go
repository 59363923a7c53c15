package registration

import (
	"context"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/google/uuid"
)

type Repository interface {
	CreateRegistration(ctx context.Context, registration Registration) error
	GetRegistration(ctx context.Context, id uuid.UUID) (Registration, error)
	CompletePayment(ctx context.Context, id uuid.UUID, paymentRef string, orderID string, paidAt time.Time) (Registration, error)
	FailPayment(ctx context.Context, id uuid.UUID) (Registration, error)
	AttachPhoto(ctx context.Context, id uuid.UUID, photoURL string, uploadedAt time.Time) (Registration, error)
	ListRegistrations(ctx context.Context, limit int32, cursor *string) (ListRegistrationsResponse, error)
}

type ListRegistrationsResponse struct {
	Data        []Registration
	Cursor      *string
	HasNextPage bool
}

type Registration struct {
	ID             uuid.UUID
	Version        int
	Name           string
	Email          string
	Phone          string
	Gender         Gender
	FoodPreference FoodPreference
	PaymentStatus  PaymentStatus
	// Set iff PaymentStatus is COMPLETED.
	PaymentReference string
	PaymentOrderID   string
	PaidAt           time.Time
	PhotoURL         string
	PhotoUploadedAt  time.Time
	RegisteredAt     time.Time
	// Copied from the catalog at creation, never recomputed.
	Amount *money.Money
}

func (r Registration) HasPhoto() bool {
	return r.PhotoURL != ""
}

// NewRegistration builds a pending registration from a submission. The
// submission is validated first; a failed validation returns an
// INVALID_SUBMISSION error carrying the field errors.
func NewRegistration(sub Submission, fee *money.Money, id uuid.UUID, registeredAt time.Time) (Registration, error) {
	result := Validate(sub)
	if !result.Valid() {
		return Registration{}, NewInvalidSubmissionError(result.FieldErrors)
	}

	// Already checked by Validate.
	gender, _ := ParseGender(sub.Gender)
	food, _ := ParseFoodPreference(sub.FoodPreference)

	return Registration{
		ID:             id,
		Version:        1,
		Name:           strings.TrimSpace(sub.Name),
		Email:          strings.TrimSpace(sub.Email),
		Phone:          strings.TrimSpace(sub.Phone),
		Gender:         gender,
		FoodPreference: food,
		PaymentStatus:  PENDING,
		RegisteredAt:   registeredAt,
		Amount:         money.New(fee.Amount(), fee.Currency().Code),
	}, nil
}

// WithPaymentCompleted moves a pending registration to completed. Applying the
// same payment reference to an already completed registration is a no-op and
// reports changed=false.
func (r Registration) WithPaymentCompleted(paymentRef string, orderID string, paidAt time.Time) (updated Registration, changed bool, err error) {
	if paymentRef == "" {
		return r, false, NewInvalidPaymentTransitionError(r.PaymentStatus, COMPLETED)
	}

	switch r.PaymentStatus {
	case PENDING:
		r.PaymentStatus = COMPLETED
		r.PaymentReference = paymentRef
		r.PaymentOrderID = orderID
		r.PaidAt = paidAt
		return r, true, nil
	case COMPLETED:
		if r.PaymentReference == paymentRef {
			return r, false, nil
		}
		return r, false, NewPaymentAlreadyRecordedError(r.PaymentReference)
	default:
		return r, false, NewInvalidPaymentTransitionError(r.PaymentStatus, COMPLETED)
	}
}

// WithPaymentFailed moves a pending registration to failed. A registration
// that already failed is left as is.
func (r Registration) WithPaymentFailed() (updated Registration, changed bool, err error) {
	switch r.PaymentStatus {
	case PENDING:
		r.PaymentStatus = FAILED
		return r, true, nil
	case FAILED:
		return r, false, nil
	default:
		return r, false, NewInvalidPaymentTransitionError(r.PaymentStatus, FAILED)
	}
}

// WithPhoto sets the photo URL. A new upload may replace the URL, but the URL
// can never be cleared.
func (r Registration) WithPhoto(photoURL string, uploadedAt time.Time) (Registration, error) {
	if strings.TrimSpace(photoURL) == "" {
		return r, NewInvalidPhotoURLError("Photo URL must not be empty")
	}

	r.PhotoURL = photoURL
	r.PhotoUploadedAt = uploadedAt
	return r, nil
}
