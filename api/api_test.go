package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/classof2022/reunion-registration/config"
	"github.com/classof2022/reunion-registration/flow"
	"github.com/classof2022/reunion-registration/payment"
	"github.com/classof2022/reunion-registration/registration"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSwagger(t *testing.T) {
	swagger, err := GetSwagger()
	require.NoError(t, err)

	for _, path := range []string{"/v1/event", "/v1/registrations", "/v1/flow/payment/confirm", "/v1/admin/registrations", "/webhooks/razorpay"} {
		assert.NotNil(t, swagger.Paths.Find(path), path)
	}
}

func newTestServer(t *testing.T, a *API) *httptest.Server {
	t.Helper()
	h, err := a.Handler()
	require.NoError(t, err)
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	return server
}

func TestHandler(t *testing.T) {
	fc := &mockFlow{
		RegisterFunc: func(ctx context.Context, sub registration.Submission, captchaToken string, remoteIP string) (flow.Handoff, error) {
			h := pendingHandoff()
			h.Registrant.Name = sub.Name
			return h, nil
		},
		CancelPaymentFunc: func(ctx context.Context, h flow.Handoff) error {
			return flow.EntryGuard(flow.STEP_PAYMENT, h)
		},
		ReconcileWebhookFunc: func(ctx context.Context, ev payment.WebhookEvent) error {
			return nil
		},
	}
	parser := &mockWebhookParser{
		ParseWebhookFunc: func(payload []byte, signature string) (payment.WebhookEvent, error) {
			if signature != "good" {
				return payment.WebhookEvent{}, payment.NewInvalidSignatureError("Webhook signature does not match")
			}
			return payment.WebhookEvent{Kind: payment.PAYMENT_FAILED, RegistrationID: uuid.New()}, nil
		},
	}
	a := newTestAPI(&mockDB{}, fc, parser, adminValidator(), config.LOCAL)
	server := newTestServer(t, a)

	t.Run("event catalog", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/v1/event")
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotEmpty(t, resp.Header.Get(requestIdHeader))

		var event Event
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&event))
		assert.Equal(t, "Class of 2022 Reunion", event.Name)
		assert.Equal(t, int64(150000), event.Fee.Amount)
		assert.Equal(t, "INR", event.Fee.Currency)
		require.Len(t, event.Menu, 1)
		assert.True(t, event.Menu[0].Veg)
	})

	t.Run("register then cancel with the cookie", func(t *testing.T) {
		resp, err := http.Post(server.URL+"/v1/registrations", "application/json", strings.NewReader(validSubmissionBody))
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		cookie := findCookie(resp, handoffCookieKey)
		require.NotNil(t, cookie)

		req, err := http.NewRequest(http.MethodPost, server.URL+"/v1/flow/payment/cancel", nil)
		require.NoError(t, err)
		req.AddCookie(cookie)

		resp, err = http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("request validation rejects a bad callback", func(t *testing.T) {
		resp, err := http.Post(server.URL+"/v1/flow/payment/confirm", "application/json", strings.NewReader(`{"orderId": "order_1"}`))
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var body Error
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, InputValidationError, body.Code)
	})

	t.Run("unknown route", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/v1/nope")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("webhook bypasses json validation", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, server.URL+"/webhooks/razorpay", strings.NewReader(`not json at all`))
		require.NoError(t, err)
		req.Header.Set(razorpaySignatureHeader, "good")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("ticket download", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/v1/flow/ticket")
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Content-Disposition"), "reunion-ticket-guest.txt")
	})

	t.Run("csv export needs an organiser", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/v1/admin/registrations.csv")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestCorsMiddleware(t *testing.T) {
	a := newTestAPI(&mockDB{}, &mockFlow{}, nil, nil, config.PROD)
	server := newTestServer(t, a)

	preflight := func(origin string) *http.Response {
		req, err := http.NewRequest(http.MethodOptions, server.URL+"/v1/registrations", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "content-type,x-recaptcha-token")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp
	}

	t.Run("allowed origin", func(t *testing.T) {
		resp := preflight("https://reunion.example.com")
		assert.Equal(t, "https://reunion.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
	})

	t.Run("other origin", func(t *testing.T) {
		resp := preflight("https://evil.example.com")
		assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
	})
}

func TestFlowErrorToResponse(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   ErrorCode
	}{
		{"invalid submission", flow.NewInvalidSubmissionError(nil), http.StatusBadRequest, InputValidationError},
		{"captcha invalid", flow.NewCaptchaInvalidError(errors.New("low score")), http.StatusBadRequest, CaptchaError},
		{"hand-off missing", flow.NewHandoffMissingError("Registration data not found", flow.STEP_REGISTRATION), http.StatusConflict, InvalidFlowState},
		{"already paid", flow.NewAlreadyPaidError("pay_1"), http.StatusConflict, InvalidFlowState},
		{"not pending", flow.NewRegistrationNotPendingError(registration.FAILED), http.StatusConflict, InvalidFlowState},
		{"store", flow.NewStoreUnavailableError(errors.New("down")), http.StatusServiceUnavailable, StoreUnavailable},
		{"gateway", flow.NewPaymentUnavailableError(errors.New("down")), http.StatusBadGateway, PaymentUnavailable},
		{"not verified", flow.NewPaymentNotVerifiedError(errors.New("sig")), http.StatusBadRequest, PaymentNotVerified},
		{"unrecorded", flow.NewPaymentUnrecordedError("pay_1", "help@example.com", errors.New("down")), http.StatusBadGateway, PaymentUnrecorded},
		{"invalid photo", flow.NewInvalidPhotoError("Please select an image file"), http.StatusBadRequest, InvalidPhoto},
		{"blob", flow.NewBlobStoreUnavailableError(errors.New("down")), http.StatusServiceUnavailable, BlobStoreUnavailable},
		{"not a flow error", errors.New("boom"), http.StatusInternalServerError, InternalError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := flowErrorToResponse(tc.err)
			assert.Equal(t, tc.wantStatus, status)
			assert.Equal(t, tc.wantCode, body.Code)
		})
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "1.2s", formatDuration(1234*1000*1000))
	assert.Equal(t, "12.3ms", formatDuration(12345*1000))
}

func TestWriteFlowErrorRequestID(t *testing.T) {
	a := newTestAPI(&mockDB{}, &mockFlow{}, nil, nil, config.LOCAL)
	requestId := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/registrations", nil)
	req = req.WithContext(ctxWithRequestId(req.Context(), requestId))

	t.Run("server-side failure carries the request id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		a.writeFlowError(rec, req, flow.NewStoreUnavailableError(errors.New("down")))

		var body Error
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.NotNil(t, body.RequestID)
		assert.Equal(t, requestId.String(), *body.RequestID)
	})

	t.Run("rejections do not", func(t *testing.T) {
		rec := httptest.NewRecorder()
		a.writeFlowError(rec, req, flow.NewCaptchaRequiredError())

		var body Error
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Nil(t, body.RequestID)
	})
}

func TestStatusRecorder(t *testing.T) {
	t.Run("first status wins", func(t *testing.T) {
		sr := newStatusRecorder(httptest.NewRecorder())
		sr.WriteHeader(http.StatusBadGateway)
		sr.WriteHeader(http.StatusOK)

		assert.Equal(t, http.StatusBadGateway, sr.statusCode)
		assert.Equal(t, slog.LevelError, sr.level())
	})

	t.Run("implicit ok and size", func(t *testing.T) {
		sr := newStatusRecorder(httptest.NewRecorder())
		_, err := sr.Write([]byte("hello"))
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, sr.statusCode)
		assert.Equal(t, 5, sr.responseSize)
		assert.Equal(t, slog.LevelInfo, sr.level())
	})
}
