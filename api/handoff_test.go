package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/classof2022/reunion-registration/flow"
	"github.com/classof2022/reunion-registration/registration"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paidHandoff() flow.Handoff {
	return flow.Handoff{
		RegistrationID: uuid.MustParse("5f7c4c9e-8c1e-4a53-9a66-2b1f0c8b7d10"),
		Registrant: flow.Registrant{
			Name:           "Asha Menon",
			Email:          "asha@example.com",
			Phone:          "9876543210",
			FoodPreference: registration.NON_VEG,
		},
		PaymentReference: "pay_Q1w2e3r4t5",
		AmountPaid:       money.New(150000, money.INR),
	}
}

var compareMoney = cmp.Comparer(func(a, b *money.Money) bool {
	if a == nil || b == nil {
		return a == b
	}
	eq, err := a.Equals(b)
	return err == nil && eq
})

func withHandoff(t *testing.T, a *API, r *http.Request, h flow.Handoff) *http.Request {
	t.Helper()
	token, err := a.handoffs.encode(h)
	require.NoError(t, err)
	r.AddCookie(&http.Cookie{Name: handoffCookieKey, Value: token})
	return r
}

func handoffFromResponse(t *testing.T, a *API, rec *httptest.ResponseRecorder) flow.Handoff {
	t.Helper()
	cookie := findCookie(rec.Result(), handoffCookieKey)
	require.NotNil(t, cookie, "expected a hand-off cookie")
	h, err := a.handoffs.decode(cookie.Value)
	require.NoError(t, err)
	return h
}

func TestHandoffCodec(t *testing.T) {
	codec := newHandoffCodec(testHandoffSecret, true)

	t.Run("round trips every field", func(t *testing.T) {
		h := paidHandoff()
		h.PhotoURL = "https://photos.example.com/reunion-photos/a.jpg"

		token, err := codec.encode(h)
		require.NoError(t, err)

		got, err := codec.decode(token)
		require.NoError(t, err)
		if diff := cmp.Diff(h, got, compareMoney); diff != "" {
			t.Errorf("hand-off mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("other secret is rejected", func(t *testing.T) {
		token, err := newHandoffCodec([]byte("another-secret-another-secret-00"), true).encode(paidHandoff())
		require.NoError(t, err)

		_, err = codec.decode(token)
		assert.Error(t, err)
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		old := newHandoffCodec(testHandoffSecret, true)
		old.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
		token, err := old.encode(paidHandoff())
		require.NoError(t, err)

		_, err = codec.decode(token)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("unsigned token is rejected", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, handoffClaims{
			RegistrationID: paidHandoff().RegistrationID.String(),
			FoodPreference: "veg",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    handoffIssuer,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = codec.decode(token)
		assert.Error(t, err)
	})

	t.Run("amount charged is kept in minor units", func(t *testing.T) {
		token, err := codec.encode(paidHandoff())
		require.NoError(t, err)

		var claims handoffClaims
		_, _, err = jwt.NewParser().ParseUnverified(token, &claims)
		require.NoError(t, err)
		assert.Equal(t, int64(150000), claims.AmountPaid)
		assert.Equal(t, "INR", claims.Currency)
	})

	t.Run("unknown currency is rejected", func(t *testing.T) {
		claims := handoffClaims{
			RegistrationID:   paidHandoff().RegistrationID.String(),
			FoodPreference:   "veg",
			PaymentReference: "pay_Q1w2e3r4t5",
			AmountPaid:       150000,
			Currency:         "XYZ",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    handoffIssuer,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testHandoffSecret)
		require.NoError(t, err)

		_, err = codec.decode(token)
		assert.Error(t, err)
	})

	t.Run("garbage cookie reads as empty", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/flow/summary", nil)
		req.AddCookie(&http.Cookie{Name: handoffCookieKey, Value: "not-a-jwt"})

		assert.True(t, codec.read(req).IsEmpty())
	})

	t.Run("missing cookie reads as empty", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/flow/summary", nil)

		assert.True(t, codec.read(req).IsEmpty())
	})

	t.Run("cookie attributes", func(t *testing.T) {
		rec := httptest.NewRecorder()
		require.NoError(t, codec.write(rec, paidHandoff()))

		cookie := findCookie(rec.Result(), handoffCookieKey)
		require.NotNil(t, cookie)
		assert.True(t, cookie.HttpOnly)
		assert.True(t, cookie.Secure)
		assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
		assert.Equal(t, "/", cookie.Path)
		// Session-only: no Expires or Max-Age.
		assert.True(t, cookie.Expires.IsZero())
		assert.Zero(t, cookie.MaxAge)
	})
}
