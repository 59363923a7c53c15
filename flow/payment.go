package flow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/classof2022/reunion-registration/events"
	"github.com/classof2022/reunion-registration/payment"
	"github.com/classof2022/reunion-registration/registration"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// Checkout is what the front-end needs to open the payment widget.
type Checkout struct {
	RegistrationID uuid.UUID
	OrderID        string
	KeyID          string
	Amount         *money.Money
	EventName      string
	Description    string
	Prefill        Registrant
	// Notes are attached to the payment by the widget so webhooks can be
	// matched back to the registration.
	Notes map[string]string
}

// BeginPayment opens a checkout for the amount stored on the record. The
// amount is never taken from the caller.
func (c *Controller) BeginPayment(ctx context.Context, h Handoff) (checkout Checkout, err error) {
	ctx, span := c.startSpan(ctx, "begin_payment", STEP_PAYMENT)
	defer func() { endSpan(span, err) }()

	if err := EntryGuard(STEP_PAYMENT, h); err != nil {
		return Checkout{}, err
	}
	span.SetAttributes(attribute.String(attrRegistrationID, h.RegistrationID.String()))

	reg, err := c.repo.GetRegistration(ctx, h.RegistrationID)
	if err != nil {
		var regErr *registration.Error
		if errors.As(err, &regErr) && regErr.Reason == registration.REASON_REGISTRATION_DOES_NOT_EXIST {
			return Checkout{}, NewHandoffMissingError("Registration data not found. Please register again.", STEP_REGISTRATION)
		}
		return Checkout{}, NewStoreUnavailableError(err)
	}

	switch reg.PaymentStatus {
	case registration.COMPLETED:
		return Checkout{}, NewAlreadyPaidError(reg.PaymentReference)
	case registration.FAILED:
		return Checkout{}, NewRegistrationNotPendingError(reg.PaymentStatus)
	}

	catalog := c.catalog.Catalog()
	description := catalog.Name + " Registration"

	info, err := c.payments.CreateCheckout(ctx, payment.CheckoutRequest{
		RegistrationID: reg.ID,
		Amount:         reg.Amount,
		Description:    description,
		PayerName:      h.Registrant.Name,
		PayerEmail:     h.Registrant.Email,
		PayerPhone:     h.Registrant.Phone,
	})
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to create checkout", slog.String("error", err.Error()))
		return Checkout{}, NewPaymentUnavailableError(err)
	}

	return Checkout{
		RegistrationID: reg.ID,
		OrderID:        info.SessionId,
		KeyID:          info.ClientSecret,
		Amount:         reg.Amount,
		EventName:      catalog.Name,
		Description:    description,
		Prefill:        h.Registrant,
		Notes:          payment.CheckoutNotes(reg.ID),
	}, nil
}

// ConfirmPayment records a verified payment and extends the hand-off with its
// reference. If the payment was verified but the record cannot be updated the
// registrant gets a PAYMENT_UNRECORDED error with the reference and the support
// contact; the webhook is expected to reconcile the record later.
func (c *Controller) ConfirmPayment(ctx context.Context, h Handoff, cb payment.Callback) (updated Handoff, err error) {
	ctx, span := c.startSpan(ctx, "confirm_payment", STEP_PAYMENT)
	defer func() { endSpan(span, err) }()

	if err := EntryGuard(STEP_PAYMENT, h); err != nil {
		return h, err
	}
	span.SetAttributes(
		attribute.String(attrRegistrationID, h.RegistrationID.String()),
		attribute.String(attrPaymentID, cb.PaymentID),
	)

	if err := c.payments.VerifyPayment(cb); err != nil {
		c.logger.WarnContext(ctx, "payment callback failed verification", slog.String("error", err.Error()), slog.String("payment-id", cb.PaymentID))
		return h, NewPaymentNotVerifiedError(err)
	}

	catalog := c.catalog.Catalog()
	paidAt := c.now()

	reg, err := c.repo.CompletePayment(ctx, h.RegistrationID, cb.PaymentID, cb.OrderID, paidAt)
	if err != nil {
		c.logger.ErrorContext(ctx, "payment succeeded but could not be recorded",
			slog.String("error", err.Error()),
			slog.String("registration-id", h.RegistrationID.String()),
			slog.String("payment-id", cb.PaymentID),
		)
		return h, NewPaymentUnrecordedError(cb.PaymentID, catalog.SupportContact, err)
	}

	c.notifyIfFresh(ctx, reg, paidAt, catalog)

	h.PaymentReference = reg.PaymentReference
	h.AmountPaid = reg.Amount
	return h, nil
}

// CancelPayment leaves the record untouched; the registrant stays on the
// payment step and may try again.
func (c *Controller) CancelPayment(ctx context.Context, h Handoff) (err error) {
	ctx, span := c.startSpan(ctx, "cancel_payment", STEP_PAYMENT)
	defer func() { endSpan(span, err) }()

	if err := EntryGuard(STEP_PAYMENT, h); err != nil {
		return err
	}

	c.logger.InfoContext(ctx, "payment cancelled", slog.String("registration-id", h.RegistrationID.String()))
	return nil
}

// ReconcileWebhook applies a provider webhook to the record. Captures are
// applied idempotently by payment reference. Failed attempts are only logged
// and never change the record. Events that cannot apply are logged for manual
// follow-up and not returned as errors, so the provider does not keep
// redelivering them.
func (c *Controller) ReconcileWebhook(ctx context.Context, ev payment.WebhookEvent) (err error) {
	ctx, span := c.startSpan(ctx, "reconcile_webhook", STEP_PAYMENT)
	defer func() { endSpan(span, err) }()

	span.SetAttributes(
		attribute.String(attrRegistrationID, ev.RegistrationID.String()),
		attribute.String(attrPaymentID, ev.PaymentID),
	)

	logger := c.logger.With(
		slog.String("registration-id", ev.RegistrationID.String()),
		slog.String("payment-id", ev.PaymentID),
		slog.String("event", ev.Kind.String()),
	)

	var regErr *registration.Error

	switch ev.Kind {
	case payment.PAYMENT_CAPTURED:
		paidAt := ev.OccurredAt
		if paidAt.IsZero() {
			paidAt = c.now()
		}

		reg, err := c.repo.CompletePayment(ctx, ev.RegistrationID, ev.PaymentID, ev.OrderID, paidAt)
		if err != nil {
			if errors.As(err, &regErr) && isUnreconcilable(regErr.Reason) {
				logger.WarnContext(ctx, "captured payment needs manual reconciliation", slog.String("error", err.Error()))
				return nil
			}
			return err
		}

		c.notifyIfFresh(ctx, reg, paidAt, c.catalog.Catalog())
		logger.InfoContext(ctx, "captured payment reconciled")

	case payment.PAYMENT_FAILED:
		// A declined attempt leaves the order open for a retry; the record
		// stays pending.
		logger.InfoContext(ctx, "payment attempt failed, order still open", slog.String("order-id", ev.OrderID))
	}

	return nil
}

func isUnreconcilable(reason registration.ErrorReason) bool {
	switch reason {
	case registration.REASON_INVALID_PAYMENT_TRANSITION,
		registration.REASON_PAYMENT_ALREADY_RECORDED,
		registration.REASON_REGISTRATION_DOES_NOT_EXIST:
		return true
	}
	return false
}

// notifyIfFresh sends the confirmation email only for the call that actually
// completed the record, so a callback and a webhook for the same payment send
// one email between them.
func (c *Controller) notifyIfFresh(ctx context.Context, reg registration.Registration, paidAt time.Time, catalog events.Catalog) {
	if c.notifier == nil || !reg.PaidAt.Equal(paidAt) {
		return
	}

	if err := c.notifier.PaymentRecorded(ctx, reg, catalog); err != nil {
		c.logger.ErrorContext(ctx, "failed to send payment confirmation email",
			slog.String("error", err.Error()),
			slog.String("email", reg.Email),
		)
	}
}
