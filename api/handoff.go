package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/classof2022/reunion-registration/flow"
	"github.com/classof2022/reunion-registration/registration"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	handoffCookieKey = "REUNION_FLOW"
	handoffIssuer    = "reunion-registration"
	handoffLifetime  = 24 * time.Hour
)

type handoffClaims struct {
	RegistrationID   string `json:"rid"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	FoodPreference   string `json:"food"`
	PaymentReference string `json:"pay,omitempty"`
	// Amount charged in minor units, with its currency code.
	AmountPaid int64  `json:"amt,omitempty"`
	Currency   string `json:"cur,omitempty"`
	PhotoURL   string `json:"photo,omitempty"`
	jwt.RegisteredClaims
}

// handoffCodec keeps the flow hand-off in a signed, session-only cookie so a
// tampered or expired cookie reads back as an empty hand-off.
type handoffCodec struct {
	secret []byte
	secure bool
	now    func() time.Time
}

func newHandoffCodec(secret []byte, secure bool) *handoffCodec {
	return &handoffCodec{
		secret: secret,
		secure: secure,
		now:    time.Now,
	}
}

func (c *handoffCodec) encode(h flow.Handoff) (string, error) {
	now := c.now()
	claims := handoffClaims{
		RegistrationID:   h.RegistrationID.String(),
		Name:             h.Registrant.Name,
		Email:            h.Registrant.Email,
		Phone:            h.Registrant.Phone,
		FoodPreference:   h.Registrant.FoodPreference.String(),
		PaymentReference: h.PaymentReference,
		PhotoURL:         h.PhotoURL,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    handoffIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(handoffLifetime)),
		},
	}
	if h.AmountPaid != nil {
		claims.AmountPaid = h.AmountPaid.Amount()
		claims.Currency = h.AmountPaid.Currency().Code
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign hand-off: %w", err)
	}
	return signed, nil
}

func (c *handoffCodec) decode(token string) (flow.Handoff, error) {
	var claims handoffClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(handoffIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return flow.Handoff{}, fmt.Errorf("invalid hand-off token: %w", err)
	}

	id, err := uuid.Parse(claims.RegistrationID)
	if err != nil {
		return flow.Handoff{}, fmt.Errorf("invalid registration id in hand-off: %w", err)
	}
	food, err := registration.ParseFoodPreference(claims.FoodPreference)
	if err != nil {
		return flow.Handoff{}, fmt.Errorf("invalid food preference in hand-off: %w", err)
	}
	var amountPaid *money.Money
	if claims.Currency != "" {
		if money.GetCurrency(claims.Currency) == nil {
			return flow.Handoff{}, fmt.Errorf("invalid currency %q in hand-off", claims.Currency)
		}
		amountPaid = money.New(claims.AmountPaid, claims.Currency)
	}

	return flow.Handoff{
		RegistrationID: id,
		Registrant: flow.Registrant{
			Name:           claims.Name,
			Email:          claims.Email,
			Phone:          claims.Phone,
			FoodPreference: food,
		},
		PaymentReference: claims.PaymentReference,
		AmountPaid:       amountPaid,
		PhotoURL:         claims.PhotoURL,
	}, nil
}

func (c *handoffCodec) read(r *http.Request) flow.Handoff {
	cookie, err := r.Cookie(handoffCookieKey)
	if err != nil {
		return flow.Handoff{}
	}

	h, err := c.decode(cookie.Value)
	if err != nil {
		return flow.Handoff{}
	}
	return h
}

func (c *handoffCodec) write(w http.ResponseWriter, h flow.Handoff) error {
	token, err := c.encode(h)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     handoffCookieKey,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
