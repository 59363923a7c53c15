package api

import (
	"context"
	"log/slog"

	"github.com/International-Combat-Archery-Alliance/auth"
	"github.com/google/uuid"
)

type ctxKey string

const (
	ctxRequestIdKey ctxKey = "REQUEST_ID"
	ctxLoggerKey    ctxKey = "LOGGER"
	ctxAdminKey     ctxKey = "ADMIN"
)

func ctxWithRequestId(ctx context.Context, requestId uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxRequestIdKey, requestId)
}

func getRequestIdFromCtx(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(ctxRequestIdKey).(uuid.UUID)
	return id, ok
}

func ctxWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxLoggerKey, logger)
}

func (a *API) getLoggerOrBaseLogger(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxLoggerKey).(*slog.Logger); ok {
		return logger
	}
	return a.logger
}

func ctxWithAdmin(ctx context.Context, token auth.AuthToken) context.Context {
	return context.WithValue(ctx, ctxAdminKey, token)
}

func getAdminFromCtx(ctx context.Context) (auth.AuthToken, bool) {
	token, ok := ctx.Value(ctxAdminKey).(auth.AuthToken)
	return token, ok
}
