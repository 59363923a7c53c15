package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/classof2022/reunion-registration/flow"
	"github.com/classof2022/reunion-registration/ptr"
	"github.com/classof2022/reunion-registration/registration"
	"github.com/classof2022/reunion-registration/slices"
)

const (
	recaptchaHeader = "X-Recaptcha-Token"

	defaultAdminPageSize = 25
	maxAdminPageSize     = 100
)

func (a *API) postRegistration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := a.getLoggerOrBaseLogger(ctx)

	var body RegistrationSubmission
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		logger.WarnContext(ctx, "Invalid body for registration", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, InputValidationError, "Invalid body")
		return
	}

	h, err := a.flow.Register(ctx, registration.Submission{
		Name:           body.Name,
		Email:          body.Email,
		Phone:          body.Phone,
		Gender:         body.Gender,
		FoodPreference: body.FoodPreference,
	}, r.Header.Get(recaptchaHeader), remoteIP(r))
	if err != nil {
		a.writeFlowError(w, r, err)
		return
	}
	a.registrationsChanged()

	if err := a.handoffs.write(w, h); err != nil {
		logger.ErrorContext(ctx, "failed to write hand-off cookie", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, InternalError, "Failed to register")
		return
	}

	writeJSON(w, http.StatusOK, flowState(flow.STEP_PAYMENT, h))
}

func (a *API) getAdminRegistrations(w http.ResponseWriter, r *http.Request) {
	r, ok := a.requireAdmin(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	logger := a.getLoggerOrBaseLogger(ctx)
	query := r.URL.Query()

	filter, err := parseFilter(query)
	if err != nil {
		writeError(w, http.StatusBadRequest, InputValidationError, err.Error())
		return
	}

	limit := defaultAdminPageSize
	if raw := query.Get("limit"); raw != "" {
		userLimit, err := strconv.Atoi(raw)
		if err != nil || userLimit < 1 || userLimit > maxAdminPageSize {
			logger.WarnContext(ctx, "Limit out of bounds", slog.String("limit", raw))
			writeError(w, http.StatusBadRequest, LimitOutOfBounds, fmt.Sprintf("Limit must be between 1 and %d", maxAdminPageSize))
			return
		}
		limit = userLimit
	}

	// Filtered views search the whole list and come back as a single page.
	if filter.Search != "" || filter.Status != nil {
		regs, err := a.allRegistrations(ctx)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to list registrations", slog.String("error", err.Error()))
			writeError(w, http.StatusServiceUnavailable, StoreUnavailable, "Failed to get registrations")
			return
		}

		writeJSON(w, http.StatusOK, RegistrationPage{
			Data:        slices.Map(registration.FilterRegistrations(regs, filter), registrationToApiRegistration),
			HasNextPage: false,
		})
		return
	}

	var cursor *string
	if raw := query.Get("cursor"); raw != "" {
		cursor = &raw
	}

	result, err := a.db.ListRegistrations(ctx, int32(limit), cursor)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to get registrations", slog.String("error", err.Error()))

		var registrationErr *registration.Error
		if errors.As(err, &registrationErr) && registrationErr.Reason == registration.REASON_INVALID_CURSOR {
			writeError(w, http.StatusBadRequest, InvalidCursor, "Cursor is invalid")
			return
		}
		writeError(w, http.StatusServiceUnavailable, StoreUnavailable, "Failed to get registrations")
		return
	}

	writeJSON(w, http.StatusOK, RegistrationPage{
		Data:        slices.Map(result.Data, registrationToApiRegistration),
		Cursor:      result.Cursor,
		HasNextPage: result.HasNextPage,
	})
}

func (a *API) getAdminStats(w http.ResponseWriter, r *http.Request) {
	r, ok := a.requireAdmin(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	regs, err := a.allRegistrations(ctx)
	if err != nil {
		a.getLoggerOrBaseLogger(ctx).ErrorContext(ctx, "Failed to list registrations", slog.String("error", err.Error()))
		writeError(w, http.StatusServiceUnavailable, StoreUnavailable, "Failed to get registrations")
		return
	}

	writeJSON(w, http.StatusOK, statsToApiStats(registration.ComputeStats(regs)))
}

func parseFilter(query url.Values) (registration.Filter, error) {
	filter := registration.Filter{Search: strings.TrimSpace(query.Get("search"))}

	if raw := query.Get("status"); raw != "" && raw != "all" {
		status, err := registration.ParsePaymentStatus(raw)
		if err != nil {
			return registration.Filter{}, err
		}
		filter.Status = &status
	}

	return filter, nil
}

// remoteIP prefers the first X-Forwarded-For hop since the service runs behind
// a load balancer.
func remoteIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (a *API) writeFlowError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	logger := a.getLoggerOrBaseLogger(ctx)

	statusCode, body := flowErrorToResponse(err)
	if statusCode >= http.StatusInternalServerError {
		logger.ErrorContext(ctx, "request failed", slog.String("error", err.Error()), slog.Int("status-code", statusCode))
		if requestId, ok := getRequestIdFromCtx(ctx); ok {
			body.RequestID = ptr.String(requestId.String())
		}
	} else {
		logger.InfoContext(ctx, "request rejected", slog.String("error", err.Error()), slog.String("code", string(body.Code)))
	}

	writeJSON(w, statusCode, body)
}
