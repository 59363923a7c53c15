package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/International-Combat-Archery-Alliance/auth"
	"google.golang.org/api/idtoken"
)

const adminCookieKey = "REUNION_ADMIN_JWT"

type googleIdVerifier interface {
	Validate(ctx context.Context, idToken string, audience string) (*idtoken.Payload, error)
}

var _ auth.AuthToken = (*googleToken)(nil)

type googleToken struct {
	expiresAt     time.Time
	profilePicURL string
	isAdmin       bool
	email         string
}

func (t *googleToken) ExpiresAt() time.Time  { return t.expiresAt }
func (t *googleToken) ProfilePicURL() string { return t.profilePicURL }
func (t *googleToken) IsAdmin() bool         { return t.isAdmin }
func (t *googleToken) UserEmail() string     { return t.email }

// GoogleAuthValidator checks Google ID tokens and decides who counts as an
// organiser: a verified address in the allowed Workspace domain, or one of the
// listed addresses.
type GoogleAuthValidator struct {
	verifier      googleIdVerifier
	allowedDomain string
	allowedEmails map[string]struct{}
}

var _ AuthValidator = (*GoogleAuthValidator)(nil)

func NewGoogleAuthValidator(verifier googleIdVerifier, allowedDomain string, allowedEmails []string) *GoogleAuthValidator {
	emails := make(map[string]struct{}, len(allowedEmails))
	for _, e := range allowedEmails {
		emails[strings.ToLower(strings.TrimSpace(e))] = struct{}{}
	}

	return &GoogleAuthValidator{
		verifier:      verifier,
		allowedDomain: strings.ToLower(allowedDomain),
		allowedEmails: emails,
	}
}

func (g *GoogleAuthValidator) Validate(ctx context.Context, token string, clientID string) (auth.AuthToken, error) {
	payload, err := g.verifier.Validate(ctx, token, clientID)
	if err != nil {
		return nil, fmt.Errorf("invalid google id token: %w", err)
	}

	email, _ := payload.Claims["email"].(string)
	verified, _ := payload.Claims["email_verified"].(bool)
	hd, _ := payload.Claims["hd"].(string)
	picture, _ := payload.Claims["picture"].(string)

	return &googleToken{
		expiresAt:     time.Unix(payload.Expires, 0),
		profilePicURL: picture,
		email:         email,
		isAdmin:       verified && g.isOrganiser(email, hd),
	}, nil
}

func (g *GoogleAuthValidator) isOrganiser(email string, hd string) bool {
	if g.allowedDomain != "" && strings.ToLower(hd) == g.allowedDomain {
		return true
	}
	_, ok := g.allowedEmails[strings.ToLower(email)]
	return ok
}

// requireAdmin validates the admin cookie and writes the 401/403 response
// itself when the caller is not an organiser.
func (a *API) requireAdmin(w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
	ctx := r.Context()
	logger := a.getLoggerOrBaseLogger(ctx)

	cookie, err := r.Cookie(adminCookieKey)
	if err != nil || cookie.Value == "" {
		writeError(w, http.StatusUnauthorized, AuthError, "Not logged in")
		return r, false
	}

	token, err := a.authValidator.Validate(ctx, cookie.Value, a.settings.GoogleClientID)
	if err != nil {
		logger.WarnContext(ctx, "rejected admin token", slog.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, AuthError, "Invalid JWT")
		return r, false
	}
	if !token.IsAdmin() {
		logger.WarnContext(ctx, "non-organiser tried to use the admin view", slog.String("email", token.UserEmail()))
		writeError(w, http.StatusForbidden, Forbidden, "You do not have access to the admin view")
		return r, false
	}

	return r.WithContext(ctxWithAdmin(ctx, token)), true
}
