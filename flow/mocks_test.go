package flow

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/International-Combat-Archery-Alliance/captcha"
	"github.com/International-Combat-Archery-Alliance/payments"
	"github.com/Rhymond/go-money"
	"github.com/classof2022/reunion-registration/events"
	"github.com/classof2022/reunion-registration/payment"
	"github.com/classof2022/reunion-registration/registration"
	"github.com/google/uuid"
)

var noopLogger = slog.New(slog.DiscardHandler)

var _ registration.Repository = &memRepo{}

// memRepo keeps records in a map and applies the record's own transitions.
// Any XxxFunc that is set replaces the default behaviour.
type memRepo struct {
	mu      sync.Mutex
	records map[uuid.UUID]registration.Registration
	calls   int

	CreateRegistrationFunc func(ctx context.Context, reg registration.Registration) error
	CompletePaymentFunc    func(ctx context.Context, id uuid.UUID, paymentRef string, orderID string, paidAt time.Time) (registration.Registration, error)
	AttachPhotoFunc        func(ctx context.Context, id uuid.UUID, photoURL string, uploadedAt time.Time) (registration.Registration, error)
}

func newMemRepo() *memRepo {
	return &memRepo{records: map[uuid.UUID]registration.Registration{}}
}

func (m *memRepo) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *memRepo) get(id uuid.UUID) (registration.Registration, error) {
	reg, ok := m.records[id]
	if !ok {
		return registration.Registration{}, registration.NewRegistrationDoesNotExistsError("Registration does not exist", nil)
	}
	return reg, nil
}

func (m *memRepo) CreateRegistration(ctx context.Context, reg registration.Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if m.CreateRegistrationFunc != nil {
		return m.CreateRegistrationFunc(ctx, reg)
	}
	m.records[reg.ID] = reg
	return nil
}

func (m *memRepo) GetRegistration(ctx context.Context, id uuid.UUID) (registration.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	return m.get(id)
}

func (m *memRepo) CompletePayment(ctx context.Context, id uuid.UUID, paymentRef string, orderID string, paidAt time.Time) (registration.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if m.CompletePaymentFunc != nil {
		return m.CompletePaymentFunc(ctx, id, paymentRef, orderID, paidAt)
	}
	reg, err := m.get(id)
	if err != nil {
		return reg, err
	}
	updated, changed, err := reg.WithPaymentCompleted(paymentRef, orderID, paidAt)
	if err != nil {
		return reg, err
	}
	if changed {
		updated.Version++
		m.records[id] = updated
	}
	return updated, nil
}

func (m *memRepo) FailPayment(ctx context.Context, id uuid.UUID) (registration.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	reg, err := m.get(id)
	if err != nil {
		return reg, err
	}
	updated, changed, err := reg.WithPaymentFailed()
	if err != nil {
		return reg, err
	}
	if changed {
		updated.Version++
		m.records[id] = updated
	}
	return updated, nil
}

func (m *memRepo) AttachPhoto(ctx context.Context, id uuid.UUID, photoURL string, uploadedAt time.Time) (registration.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if m.AttachPhotoFunc != nil {
		return m.AttachPhotoFunc(ctx, id, photoURL, uploadedAt)
	}
	reg, err := m.get(id)
	if err != nil {
		return reg, err
	}
	updated, err := reg.WithPhoto(photoURL, uploadedAt)
	if err != nil {
		return reg, err
	}
	updated.Version++
	m.records[id] = updated
	return updated, nil
}

func (m *memRepo) ListRegistrations(ctx context.Context, limit int32, cursor *string) (registration.ListRegistrationsResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	var data []registration.Registration
	for _, reg := range m.records {
		data = append(data, reg)
	}
	registration.SortNewestFirst(data)
	return registration.ListRegistrationsResponse{Data: data}, nil
}

type mockCaptchaValidator struct {
	calls        int
	ValidateFunc func(ctx context.Context, token string, remoteIP string) (captcha.ValidatedData, error)
}

type mockCaptchaValidatedData struct{}

func (m *mockCaptchaValidatedData) Hostname() string       { return "reunion.example.com" }
func (m *mockCaptchaValidatedData) Action() string         { return "register" }
func (m *mockCaptchaValidatedData) ChallengeTS() time.Time { return time.Now() }

func (m *mockCaptchaValidator) Validate(ctx context.Context, token string, remoteIP string) (captcha.ValidatedData, error) {
	m.calls++
	if m.ValidateFunc != nil {
		return m.ValidateFunc(ctx, token, remoteIP)
	}
	return &mockCaptchaValidatedData{}, nil
}

type mockPaymentGateway struct {
	CreateCheckoutFunc func(ctx context.Context, req payment.CheckoutRequest) (payments.CheckoutInfo, error)
	VerifyPaymentFunc  func(cb payment.Callback) error
}

func (m *mockPaymentGateway) CreateCheckout(ctx context.Context, req payment.CheckoutRequest) (payments.CheckoutInfo, error) {
	if m.CreateCheckoutFunc != nil {
		return m.CreateCheckoutFunc(ctx, req)
	}
	return payments.CheckoutInfo{SessionId: "order_test", ClientSecret: "rzp_test_key"}, nil
}

func (m *mockPaymentGateway) VerifyPayment(cb payment.Callback) error {
	if m.VerifyPaymentFunc != nil {
		return m.VerifyPaymentFunc(cb)
	}
	return nil
}

type mockBlobStore struct {
	calls   int
	lastKey string
	PutFunc func(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
}

func (m *mockBlobStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	m.calls++
	m.lastKey = key
	if m.PutFunc != nil {
		return m.PutFunc(ctx, key, body, size, contentType)
	}
	return "https://photos.example.com/" + key, nil
}

type mockNotifier struct {
	sent []registration.Registration
	err  error
}

func (m *mockNotifier) PaymentRecorded(ctx context.Context, reg registration.Registration, catalog events.Catalog) error {
	m.sent = append(m.sent, reg)
	return m.err
}

type testDeps struct {
	repo     *memRepo
	captcha  *mockCaptchaValidator
	payments *mockPaymentGateway
	blobs    *mockBlobStore
	notifier *mockNotifier
}

func newTestController(now time.Time) (*Controller, *testDeps) {
	deps := &testDeps{
		repo:     newMemRepo(),
		captcha:  &mockCaptchaValidator{},
		payments: &mockPaymentGateway{},
		blobs:    &mockBlobStore{},
		notifier: &mockNotifier{},
	}

	c := NewController(
		deps.repo,
		events.NewStaticSource(events.DefaultCatalog()),
		deps.captcha,
		deps.payments,
		deps.blobs,
		deps.notifier,
		noopLogger,
	)
	c.now = func() time.Time { return now }

	return c, deps
}

func moneyINR(paise int64) *money.Money {
	return money.New(paise, money.INR)
}
