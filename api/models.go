package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/classof2022/reunion-registration/events"
	"github.com/classof2022/reunion-registration/flow"
	"github.com/classof2022/reunion-registration/ptr"
	"github.com/classof2022/reunion-registration/registration"
	"github.com/classof2022/reunion-registration/slices"
	openapi_types "github.com/oapi-codegen/runtime/types"
)

type ErrorCode string

const (
	InputValidationError ErrorCode = "InputValidationError"
	AuthError            ErrorCode = "AuthError"
	Forbidden            ErrorCode = "Forbidden"
	NotFound             ErrorCode = "NotFound"
	InternalError        ErrorCode = "InternalError"
	InvalidCursor        ErrorCode = "InvalidCursor"
	LimitOutOfBounds     ErrorCode = "LimitOutOfBounds"
	CaptchaError         ErrorCode = "CaptchaError"
	InvalidFlowState     ErrorCode = "InvalidFlowState"
	StoreUnavailable     ErrorCode = "StoreUnavailable"
	PaymentUnavailable   ErrorCode = "PaymentUnavailable"
	PaymentNotVerified   ErrorCode = "PaymentNotVerified"
	PaymentUnrecorded    ErrorCode = "PaymentUnrecorded"
	InvalidPhoto         ErrorCode = "InvalidPhoto"
	BlobStoreUnavailable ErrorCode = "BlobStoreUnavailable"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Error struct {
	Code             ErrorCode    `json:"code"`
	Message          string       `json:"message"`
	FieldErrors      []FieldError `json:"fieldErrors,omitempty"`
	RedirectTo       *string      `json:"redirectTo,omitempty"`
	PaymentReference *string      `json:"paymentReference,omitempty"`
	SupportContact   *string      `json:"supportContact,omitempty"`
	// Set on server-side failures so support can find the matching logs.
	RequestID *string `json:"requestId,omitempty"`
}

type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Display  string `json:"display"`
}

type RegistrationSubmission struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Gender         string `json:"gender"`
	FoodPreference string `json:"foodPreference"`
}

type PaymentCallback struct {
	OrderID   string `json:"orderId"`
	PaymentID string `json:"paymentId"`
	Signature string `json:"signature"`
}

// FlowState tells the front-end which step to render next.
type FlowState struct {
	Next             string              `json:"next"`
	RegistrationID   *openapi_types.UUID `json:"registrationId,omitempty"`
	PaymentReference *string             `json:"paymentReference,omitempty"`
	PhotoURL         *string             `json:"photoUrl,omitempty"`
}

type Prefill struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
}

type Checkout struct {
	RegistrationID openapi_types.UUID `json:"registrationId"`
	OrderID        string             `json:"orderId"`
	KeyID          string             `json:"keyId"`
	Amount         Money              `json:"amount"`
	EventName      string             `json:"eventName"`
	Description    string             `json:"description"`
	Prefill        Prefill            `json:"prefill"`
	Notes          map[string]string  `json:"notes"`
}

type Summary struct {
	Generic          bool    `json:"generic"`
	Name             *string `json:"name,omitempty"`
	Email            *string `json:"email,omitempty"`
	Phone            *string `json:"phone,omitempty"`
	FoodPreference   *string `json:"foodPreference,omitempty"`
	PaymentReference *string `json:"paymentReference,omitempty"`
	AmountPaid       *string `json:"amountPaid,omitempty"`
	PhotoURL         *string `json:"photoUrl,omitempty"`
	EventName        string  `json:"eventName"`
	Date             string  `json:"date"`
	Time             string  `json:"time"`
	Venue            string  `json:"venue"`
	WhatsAppLink     *string `json:"whatsAppLink,omitempty"`
}

type MenuItem struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	ImageURL    *string `json:"imageUrl,omitempty"`
	Veg         bool    `json:"veg"`
	Description *string `json:"description,omitempty"`
}

type TimelineEntry struct {
	Time     string `json:"time"`
	Activity string `json:"activity"`
}

type Event struct {
	Name           string          `json:"name"`
	StartTime      time.Time       `json:"startTime"`
	EndTime        time.Time       `json:"endTime"`
	Date           string          `json:"date"`
	Time           string          `json:"time"`
	Venue          string          `json:"venue"`
	Region         string          `json:"region"`
	MapsURL        string          `json:"mapsUrl"`
	Fee            Money           `json:"fee"`
	WhatsAppLink   *string         `json:"whatsAppLink,omitempty"`
	SupportContact *string         `json:"supportContact,omitempty"`
	Menu           []MenuItem      `json:"menu"`
	Timeline       []TimelineEntry `json:"timeline"`
}

type RegistrationView struct {
	ID               openapi_types.UUID `json:"id"`
	Name             string             `json:"name"`
	Email            string             `json:"email"`
	Phone            string             `json:"phone"`
	Gender           string             `json:"gender"`
	FoodPreference   string             `json:"foodPreference"`
	PaymentStatus    string             `json:"paymentStatus"`
	PaymentReference *string            `json:"paymentReference,omitempty"`
	PhotoURL         *string            `json:"photoUrl,omitempty"`
	RegisteredAt     time.Time          `json:"registeredAt"`
	RegisteredOn     openapi_types.Date `json:"registeredOn"`
	Amount           *Money             `json:"amount,omitempty"`
}

type RegistrationPage struct {
	Data        []RegistrationView `json:"data"`
	Cursor      *string            `json:"cursor,omitempty"`
	HasNextPage bool               `json:"hasNextPage"`
}

type Stats struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	Pending    int `json:"pending"`
	Failed     int `json:"failed"`
	WithPhotos int `json:"withPhotos"`
}

type AdminLoginRequest struct {
	GoogleJWT string `json:"googleJWT"`
}

type AdminSession struct {
	Email         string    `json:"email"`
	ProfilePicURL *string   `json:"profilePicUrl,omitempty"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

func moneyToApiMoney(m *money.Money) Money {
	if m == nil {
		return Money{}
	}
	return Money{
		Amount:   m.Amount(),
		Currency: m.Currency().Code,
		Display:  m.Display(),
	}
}

func flowState(next flow.Step, h flow.Handoff) FlowState {
	state := FlowState{
		Next:             next.Path(),
		PaymentReference: ptr.StringOrNil(h.PaymentReference),
		PhotoURL:         ptr.StringOrNil(h.PhotoURL),
	}
	if !h.IsEmpty() {
		id := h.RegistrationID
		state.RegistrationID = &id
	}
	return state
}

func checkoutToApiCheckout(c flow.Checkout) Checkout {
	return Checkout{
		RegistrationID: c.RegistrationID,
		OrderID:        c.OrderID,
		KeyID:          c.KeyID,
		Amount:         moneyToApiMoney(c.Amount),
		EventName:      c.EventName,
		Description:    c.Description,
		Prefill: Prefill{
			Name:    c.Prefill.Name,
			Email:   c.Prefill.Email,
			Contact: c.Prefill.Phone,
		},
		Notes: c.Notes,
	}
}

func summaryToApiSummary(s flow.Summary) Summary {
	return Summary{
		Generic:          s.Generic,
		Name:             ptr.StringOrNil(s.Name),
		Email:            ptr.StringOrNil(s.Email),
		Phone:            ptr.StringOrNil(s.Phone),
		FoodPreference:   ptr.StringOrNil(s.FoodPreference),
		PaymentReference: ptr.StringOrNil(s.PaymentReference),
		AmountPaid:       ptr.StringOrNil(s.AmountPaid),
		PhotoURL:         ptr.StringOrNil(s.PhotoURL),
		EventName:        s.EventName,
		Date:             s.Date,
		Time:             s.Time,
		Venue:            s.Venue,
		WhatsAppLink:     ptr.StringOrNil(s.WhatsAppLink),
	}
}

func catalogToApiEvent(c events.Catalog) Event {
	return Event{
		Name:           c.Name,
		StartTime:      c.StartTime,
		EndTime:        c.EndTime,
		Date:           c.DateString(),
		Time:           c.TimeString(),
		Venue:          c.EventLocation.String(),
		Region:         c.EventLocation.Region(),
		MapsURL:        c.EventLocation.MapsURL(),
		Fee:            moneyToApiMoney(c.Fee),
		WhatsAppLink:   ptr.StringOrNil(c.WhatsAppLink),
		SupportContact: ptr.StringOrNil(c.SupportContact),
		Menu: slices.Map(c.FoodMenu, func(f events.FoodItem) MenuItem {
			return MenuItem{
				ID:          f.ID,
				Name:        f.Name,
				ImageURL:    ptr.StringOrNil(f.ImageURL),
				Veg:         f.Veg,
				Description: ptr.StringOrNil(f.Description),
			}
		}),
		Timeline: slices.Map(c.Timeline, func(t events.TimelineEntry) TimelineEntry {
			return TimelineEntry{Time: t.Time, Activity: t.Activity}
		}),
	}
}

func registrationToApiRegistration(reg registration.Registration) RegistrationView {
	view := RegistrationView{
		ID:               reg.ID,
		Name:             reg.Name,
		Email:            reg.Email,
		Phone:            reg.Phone,
		Gender:           reg.Gender.String(),
		FoodPreference:   reg.FoodPreference.String(),
		PaymentStatus:    reg.PaymentStatus.String(),
		PaymentReference: ptr.StringOrNil(reg.PaymentReference),
		PhotoURL:         ptr.StringOrNil(reg.PhotoURL),
		RegisteredAt:     reg.RegisteredAt,
		RegisteredOn:     openapi_types.Date{Time: reg.RegisteredAt},
	}
	if reg.Amount != nil {
		amount := moneyToApiMoney(reg.Amount)
		view.Amount = &amount
	}
	return view
}

func statsToApiStats(s registration.Stats) Stats {
	return Stats{
		Total:      s.Total,
		Completed:  s.Completed,
		Pending:    s.Pending,
		Failed:     s.Failed,
		WithPhotos: s.WithPhotos,
	}
}

// flowErrorToResponse maps a controller error to a status code and body.
func flowErrorToResponse(err error) (int, Error) {
	var flowErr *flow.Error
	if !errors.As(err, &flowErr) {
		return http.StatusInternalServerError, Error{Code: InternalError, Message: "Something went wrong"}
	}

	body := Error{
		Message:          flowErr.Message,
		PaymentReference: ptr.StringOrNil(flowErr.PaymentReference),
		SupportContact:   ptr.StringOrNil(flowErr.SupportContact),
		FieldErrors: slices.Map(flowErr.FieldErrors, func(f registration.FieldError) FieldError {
			return FieldError{Field: f.Field, Message: f.Message}
		}),
	}
	if flowErr.RedirectTo != nil {
		body.RedirectTo = ptr.String(flowErr.RedirectTo.Path())
	}

	switch flowErr.Reason {
	case flow.REASON_INVALID_SUBMISSION:
		body.Code = InputValidationError
		return http.StatusBadRequest, body
	case flow.REASON_CAPTCHA_REQUIRED, flow.REASON_CAPTCHA_INVALID:
		body.Code = CaptchaError
		return http.StatusBadRequest, body
	case flow.REASON_HANDOFF_MISSING, flow.REASON_ALREADY_PAID, flow.REASON_REGISTRATION_NOT_PENDING:
		body.Code = InvalidFlowState
		return http.StatusConflict, body
	case flow.REASON_STORE_UNAVAILABLE:
		body.Code = StoreUnavailable
		return http.StatusServiceUnavailable, body
	case flow.REASON_PAYMENT_UNAVAILABLE:
		body.Code = PaymentUnavailable
		return http.StatusBadGateway, body
	case flow.REASON_PAYMENT_NOT_VERIFIED:
		body.Code = PaymentNotVerified
		return http.StatusBadRequest, body
	case flow.REASON_PAYMENT_UNRECORDED:
		body.Code = PaymentUnrecorded
		return http.StatusBadGateway, body
	case flow.REASON_INVALID_PHOTO:
		body.Code = InvalidPhoto
		return http.StatusBadRequest, body
	case flow.REASON_BLOB_STORE_UNAVAILABLE:
		body.Code = BlobStoreUnavailable
		return http.StatusServiceUnavailable, body
	}

	body.Code = InternalError
	return http.StatusInternalServerError, body
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, statusCode int, code ErrorCode, message string) {
	writeJSON(w, statusCode, Error{Code: code, Message: message})
}
