package recaptcha

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/International-Combat-Archery-Alliance/captcha"
)

const defaultVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

var (
	_ captcha.Validator     = (*Validator)(nil)
	_ captcha.ValidatedData = (*validatedData)(nil)
)

type HTTPDoer interface {
	Do(r *http.Request) (*http.Response, error)
}

type validatedData struct {
	hostname    string
	action      string
	challengeTS time.Time
}

func (v *validatedData) Hostname() string       { return v.hostname }
func (v *validatedData) Action() string         { return v.action }
func (v *validatedData) ChallengeTS() time.Time { return v.challengeTS }

type siteverifyResponse struct {
	Success     bool      `json:"success"`
	Score       *float64  `json:"score,omitempty"`
	Action      string    `json:"action"`
	ChallengeTS time.Time `json:"challenge_ts"`
	Hostname    string    `json:"hostname"`
	ErrorCodes  []string  `json:"error-codes"`
}

type Error struct {
	ErrorCodes []string
	Message    string
}

func (e *Error) Error() string {
	if len(e.ErrorCodes) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.ErrorCodes, ", "))
}

// Validator checks reCAPTCHA tokens against Google's siteverify endpoint.
type Validator struct {
	client    HTTPDoer
	secret    string
	verifyURL string
	// Only applied to v3 tokens, which carry a score.
	minScore float64
}

type Option func(*Validator)

func WithHTTPClient(client HTTPDoer) Option {
	return func(v *Validator) { v.client = client }
}

func WithVerifyURL(u string) Option {
	return func(v *Validator) { v.verifyURL = u }
}

func WithMinScore(score float64) Option {
	return func(v *Validator) { v.minScore = score }
}

func NewValidator(secret string, opts ...Option) *Validator {
	v := &Validator{
		client:    &http.Client{Timeout: 5 * time.Second},
		secret:    secret,
		verifyURL: defaultVerifyURL,
		minScore:  0.5,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *Validator) Validate(ctx context.Context, token string, remoteIP string) (captcha.ValidatedData, error) {
	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build siteverify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("siteverify request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("siteverify returned status %d", resp.StatusCode)
	}

	var body siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode siteverify response: %w", err)
	}

	if !body.Success {
		return nil, &Error{Message: "captcha token rejected", ErrorCodes: body.ErrorCodes}
	}
	if body.Score != nil && *body.Score < v.minScore {
		return nil, &Error{Message: fmt.Sprintf("captcha score %.2f is below %.2f", *body.Score, v.minScore)}
	}

	return &validatedData{
		hostname:    body.Hostname,
		action:      body.Action,
		challengeTS: body.ChallengeTS,
	}, nil
}
