package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/classof2022/reunion-registration/config"
	"github.com/classof2022/reunion-registration/ptr"
)

func (a *API) postAdminLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := a.getLoggerOrBaseLogger(ctx)

	var body AdminLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.GoogleJWT == "" {
		writeError(w, http.StatusBadRequest, InputValidationError, "Must specify googleJWT")
		return
	}

	token, err := a.authValidator.Validate(ctx, body.GoogleJWT, a.settings.GoogleClientID)
	if err != nil {
		logger.WarnContext(ctx, "failed admin login", slog.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, AuthError, "Invalid JWT")
		return
	}
	if !token.IsAdmin() {
		logger.WarnContext(ctx, "non-organiser login attempt", slog.String("email", token.UserEmail()))
		writeError(w, http.StatusForbidden, Forbidden, "You do not have access to the admin view")
		return
	}

	logger.InfoContext(ctx, "successful login", slog.String("email", token.UserEmail()))

	http.SetCookie(w, &http.Cookie{
		Name:     adminCookieKey,
		Value:    body.GoogleJWT,
		Expires:  token.ExpiresAt(),
		Domain:   a.settings.CookieDomain,
		Path:     "/",
		HttpOnly: true,
		Secure:   a.settings.Env == config.PROD,
		SameSite: http.SameSiteStrictMode,
	})

	writeJSON(w, http.StatusOK, AdminSession{
		Email:         token.UserEmail(),
		ProfilePicURL: ptr.StringOrNil(token.ProfilePicURL()),
		ExpiresAt:     token.ExpiresAt(),
	})
}

func (a *API) postAdminLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     adminCookieKey,
		Value:    "",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		Domain:   a.settings.CookieDomain,
		Path:     "/",
		HttpOnly: true,
		Secure:   a.settings.Env == config.PROD,
		SameSite: http.SameSiteStrictMode,
	})

	w.WriteHeader(http.StatusOK)
}
