package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/International-Combat-Archery-Alliance/payments"
	"github.com/classof2022/reunion-registration/flow"
	"github.com/classof2022/reunion-registration/payment"
)

const (
	razorpaySignatureHeader = "X-Razorpay-Signature"
	maxWebhookBodySize      = 65536
)

func (a *API) getPayment(w http.ResponseWriter, r *http.Request) {
	checkout, err := a.flow.BeginPayment(r.Context(), a.handoffs.read(r))
	if err != nil {
		a.writeFlowError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, checkoutToApiCheckout(checkout))
}

func (a *API) postPaymentConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := a.getLoggerOrBaseLogger(ctx)

	var body PaymentCallback
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		logger.WarnContext(ctx, "Invalid body for payment confirmation", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, InputValidationError, "Invalid body")
		return
	}

	h, err := a.flow.ConfirmPayment(ctx, a.handoffs.read(r), payment.Callback{
		OrderID:   body.OrderID,
		PaymentID: body.PaymentID,
		Signature: body.Signature,
	})
	if err != nil {
		a.writeFlowError(w, r, err)
		return
	}
	a.registrationsChanged()

	if err := a.handoffs.write(w, h); err != nil {
		logger.ErrorContext(ctx, "failed to write hand-off cookie", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, InternalError, "Payment recorded but the session could not be updated")
		return
	}

	writeJSON(w, http.StatusOK, flowState(flow.STEP_PHOTO_UPLOAD, h))
}

func (a *API) postPaymentCancel(w http.ResponseWriter, r *http.Request) {
	h := a.handoffs.read(r)

	if err := a.flow.CancelPayment(r.Context(), h); err != nil {
		a.writeFlowError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, flowState(flow.STEP_PAYMENT, h))
}

func (a *API) razorpayWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := a.getLoggerOrBaseLogger(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodySize)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Error("Failed to read razorpay webhook body", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	event, err := a.webhooks.ParseWebhook(payload, r.Header.Get(razorpaySignatureHeader))
	if err != nil {
		var paymentsErr *payments.Error
		if errors.As(err, &paymentsErr) && paymentsErr.Reason == payments.ErrorReasonNotCheckoutConfirmedEvent {
			w.WriteHeader(http.StatusOK)
			return
		}
		var payErr *payment.Error
		if errors.As(err, &payErr) && payErr.Reason == payment.REASON_ORDER_LOOKUP_FAILED {
			logger.Error("Failed to resolve razorpay webhook", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		logger.Warn("Rejected razorpay webhook", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := a.flow.ReconcileWebhook(ctx, event); err != nil {
		logger.Error("Failed to reconcile razorpay webhook", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	a.registrationsChanged()

	w.WriteHeader(http.StatusOK)
}
