package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/International-Combat-Archery-Alliance/auth"
	"github.com/Rhymond/go-money"
	"github.com/classof2022/reunion-registration/config"
	"github.com/classof2022/reunion-registration/events"
	"github.com/classof2022/reunion-registration/flow"
	"github.com/classof2022/reunion-registration/payment"
	"github.com/classof2022/reunion-registration/registration"
	"github.com/google/uuid"
	"google.golang.org/api/idtoken"
)

var noopLogger = slog.New(slog.DiscardHandler)

var testHandoffSecret = []byte("0123456789abcdef0123456789abcdef")

const testClientID = "client.apps.googleusercontent.com"

func testCatalog() events.Catalog {
	start := time.Date(2025, 6, 29, 17, 0, 0, 0, time.FixedZone("IST", 19800))
	return events.Catalog{
		Name:      "Class of 2022 Reunion",
		StartTime: start,
		EndTime:   start.Add(5 * time.Hour),
		EventLocation: events.Location{
			Name:       "Y ZONE",
			LocAddress: events.Address{City: "Kalyan Pandam"},
		},
		Fee:            money.New(150000, money.INR),
		WhatsAppLink:   "https://chat.whatsapp.com/example",
		SupportContact: "reunion2022@example.com",
		FoodMenu:       []events.FoodItem{{ID: "1", Name: "Paneer Butter Masala", Veg: true}},
		Timeline:       []events.TimelineEntry{{Time: "5:00 PM", Activity: "Welcome & Registration"}},
	}
}

func newTestAPI(db DB, fc FlowController, webhooks WebhookParser, authValidator AuthValidator, env config.Environment) *API {
	return NewAPI(db, fc, webhooks, authValidator, events.NewStaticSource(testCatalog()), testHandoffSecret, noopLogger, Settings{
		Env:            env,
		GoogleClientID: testClientID,
		CORSOrigins:    []string{"https://reunion.example.com"},
		CookieDomain:   "reunion.example.com",
	})
}

var _ DB = &mockDB{}

type mockDB struct {
	CreateRegistrationFunc func(ctx context.Context, reg registration.Registration) error
	GetRegistrationFunc    func(ctx context.Context, id uuid.UUID) (registration.Registration, error)
	CompletePaymentFunc    func(ctx context.Context, id uuid.UUID, paymentRef string, orderID string, paidAt time.Time) (registration.Registration, error)
	FailPaymentFunc        func(ctx context.Context, id uuid.UUID) (registration.Registration, error)
	AttachPhotoFunc        func(ctx context.Context, id uuid.UUID, photoURL string, uploadedAt time.Time) (registration.Registration, error)
	ListRegistrationsFunc  func(ctx context.Context, limit int32, cursor *string) (registration.ListRegistrationsResponse, error)
}

func (m *mockDB) CreateRegistration(ctx context.Context, reg registration.Registration) error {
	return m.CreateRegistrationFunc(ctx, reg)
}

func (m *mockDB) GetRegistration(ctx context.Context, id uuid.UUID) (registration.Registration, error) {
	return m.GetRegistrationFunc(ctx, id)
}

func (m *mockDB) CompletePayment(ctx context.Context, id uuid.UUID, paymentRef string, orderID string, paidAt time.Time) (registration.Registration, error) {
	return m.CompletePaymentFunc(ctx, id, paymentRef, orderID, paidAt)
}

func (m *mockDB) FailPayment(ctx context.Context, id uuid.UUID) (registration.Registration, error) {
	return m.FailPaymentFunc(ctx, id)
}

func (m *mockDB) AttachPhoto(ctx context.Context, id uuid.UUID, photoURL string, uploadedAt time.Time) (registration.Registration, error) {
	return m.AttachPhotoFunc(ctx, id, photoURL, uploadedAt)
}

func (m *mockDB) ListRegistrations(ctx context.Context, limit int32, cursor *string) (registration.ListRegistrationsResponse, error) {
	return m.ListRegistrationsFunc(ctx, limit, cursor)
}

var _ FlowController = &mockFlow{}

type mockFlow struct {
	RegisterFunc         func(ctx context.Context, sub registration.Submission, captchaToken string, remoteIP string) (flow.Handoff, error)
	BeginPaymentFunc     func(ctx context.Context, h flow.Handoff) (flow.Checkout, error)
	ConfirmPaymentFunc   func(ctx context.Context, h flow.Handoff, cb payment.Callback) (flow.Handoff, error)
	CancelPaymentFunc    func(ctx context.Context, h flow.Handoff) error
	UploadPhotoFunc      func(ctx context.Context, h flow.Handoff, p flow.Photo) (flow.Handoff, error)
	SkipPhotoFunc        func(ctx context.Context, h flow.Handoff) (flow.Handoff, error)
	ReconcileWebhookFunc func(ctx context.Context, ev payment.WebhookEvent) error
}

func (m *mockFlow) Register(ctx context.Context, sub registration.Submission, captchaToken string, remoteIP string) (flow.Handoff, error) {
	return m.RegisterFunc(ctx, sub, captchaToken, remoteIP)
}

func (m *mockFlow) BeginPayment(ctx context.Context, h flow.Handoff) (flow.Checkout, error) {
	return m.BeginPaymentFunc(ctx, h)
}

func (m *mockFlow) ConfirmPayment(ctx context.Context, h flow.Handoff, cb payment.Callback) (flow.Handoff, error) {
	return m.ConfirmPaymentFunc(ctx, h, cb)
}

func (m *mockFlow) CancelPayment(ctx context.Context, h flow.Handoff) error {
	return m.CancelPaymentFunc(ctx, h)
}

func (m *mockFlow) UploadPhoto(ctx context.Context, h flow.Handoff, p flow.Photo) (flow.Handoff, error) {
	return m.UploadPhotoFunc(ctx, h, p)
}

func (m *mockFlow) SkipPhoto(ctx context.Context, h flow.Handoff) (flow.Handoff, error) {
	return m.SkipPhotoFunc(ctx, h)
}

func (m *mockFlow) ReconcileWebhook(ctx context.Context, ev payment.WebhookEvent) error {
	return m.ReconcileWebhookFunc(ctx, ev)
}

type mockWebhookParser struct {
	ParseWebhookFunc func(payload []byte, signature string) (payment.WebhookEvent, error)
}

func (m *mockWebhookParser) ParseWebhook(payload []byte, signature string) (payment.WebhookEvent, error) {
	return m.ParseWebhookFunc(payload, signature)
}

type mockAuthToken struct {
	email   string
	isAdmin bool
}

func (m *mockAuthToken) ExpiresAt() time.Time  { return time.Now().Add(time.Hour) }
func (m *mockAuthToken) ProfilePicURL() string { return "" }
func (m *mockAuthToken) IsAdmin() bool         { return m.isAdmin }
func (m *mockAuthToken) UserEmail() string     { return m.email }

type mockAuthValidator struct {
	ValidateFunc func(ctx context.Context, token string, clientID string) (auth.AuthToken, error)
}

func (m *mockAuthValidator) Validate(ctx context.Context, token string, clientID string) (auth.AuthToken, error) {
	return m.ValidateFunc(ctx, token, clientID)
}

// adminValidator accepts "admin-token" as an organiser and "guest-token" as a
// signed-in non-organiser.
func adminValidator() *mockAuthValidator {
	return &mockAuthValidator{
		ValidateFunc: func(ctx context.Context, token string, clientID string) (auth.AuthToken, error) {
			switch token {
			case "admin-token":
				return &mockAuthToken{email: "organiser@example.com", isAdmin: true}, nil
			case "guest-token":
				return &mockAuthToken{email: "guest@example.com", isAdmin: false}, nil
			}
			return nil, errInvalidToken
		},
	}
}

type mockGoogleIdVerifier struct {
	ValidateFunc func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)
}

func (m *mockGoogleIdVerifier) Validate(ctx context.Context, idToken, audience string) (*idtoken.Payload, error) {
	return m.ValidateFunc(ctx, idToken, audience)
}
