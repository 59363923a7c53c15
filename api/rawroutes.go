package api

import (
	"bytes"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/International-Combat-Archery-Alliance/middleware"
	"github.com/classof2022/reunion-registration/registration"
)

// rawRoutesMiddleware serves the routes whose bodies are not JSON: the photo
// upload, the ticket and CSV downloads and the provider webhook. Anything else
// falls through to the validated JSON routes.
func (a *API) rawRoutesMiddleware() middlewareFunc {
	server := http.NewServeMux()

	server.HandleFunc("POST /v1/flow/photo", a.postPhoto)
	server.HandleFunc("GET /v1/flow/ticket", a.getTicket)
	server.HandleFunc("GET /v1/admin/registrations.csv", a.getAdminRegistrationsCSV)
	server.HandleFunc("POST /webhooks/razorpay", a.razorpayWebhook)

	return middlewareFunc(interceptMux(server))
}

func interceptMux(server *http.ServeMux) middleware.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler, matchedPath := server.Handler(r)

			if matchedPath == "" {
				next.ServeHTTP(w, r)
				return
			}

			handler.ServeHTTP(w, r)
		})
	}
}

func (a *API) getAdminRegistrationsCSV(w http.ResponseWriter, r *http.Request) {
	r, ok := a.requireAdmin(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	logger := a.getLoggerOrBaseLogger(ctx)

	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, InputValidationError, err.Error())
		return
	}

	regs, err := a.allRegistrations(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to list registrations for export", slog.String("error", err.Error()))
		writeError(w, http.StatusServiceUnavailable, StoreUnavailable, "Failed to export registrations")
		return
	}
	regs = registration.FilterRegistrations(regs, filter)

	var buf bytes.Buffer
	if err := registration.WriteCSV(&buf, regs); err != nil {
		logger.ErrorContext(ctx, "Failed to write registrations csv", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, InternalError, "Failed to export registrations")
		return
	}

	if admin, ok := getAdminFromCtx(ctx); ok {
		logger.InfoContext(ctx, "registrations exported", slog.String("email", admin.UserEmail()), slog.Int("rows", len(regs)))
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": fmt.Sprintf("reunion-registrations-%s.csv", time.Now().Format("2006-01-02")),
	}))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
