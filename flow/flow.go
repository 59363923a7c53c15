package flow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/International-Combat-Archery-Alliance/captcha"
	"github.com/International-Combat-Archery-Alliance/payments"
	"github.com/classof2022/reunion-registration/events"
	"github.com/classof2022/reunion-registration/payment"
	"github.com/classof2022/reunion-registration/registration"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/classof2022/reunion-registration/flow"

const (
	attrRegistrationID = "registration.id"
	attrPaymentID      = "payment.id"
	attrStep           = "flow.step"
)

type CaptchaValidator interface {
	Validate(ctx context.Context, token string, remoteIP string) (captcha.ValidatedData, error)
}

type PaymentGateway interface {
	CreateCheckout(ctx context.Context, req payment.CheckoutRequest) (payments.CheckoutInfo, error)
	VerifyPayment(cb payment.Callback) error
}

type BlobStore interface {
	// Put stores the object under key and returns a URL it can be fetched from.
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
}

type Notifier interface {
	PaymentRecorded(ctx context.Context, reg registration.Registration, catalog events.Catalog) error
}

type Controller struct {
	repo     registration.Repository
	catalog  events.Source
	captcha  CaptchaValidator
	payments PaymentGateway
	blobs    BlobStore
	notifier Notifier
	logger   *slog.Logger
	tracer   trace.Tracer

	now func() time.Time
	// Registration ids are assigned here, before the record reaches the store.
	newID func() uuid.UUID
}

func NewController(
	repo registration.Repository,
	catalog events.Source,
	captcha CaptchaValidator,
	payments PaymentGateway,
	blobs BlobStore,
	notifier Notifier,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		repo:     repo,
		catalog:  catalog,
		captcha:  captcha,
		payments: payments,
		blobs:    blobs,
		notifier: notifier,
		logger:   logger,
		tracer:   otel.Tracer(tracerName),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.New,
	}
}

func (c *Controller) startSpan(ctx context.Context, name string, step Step) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, "flow."+name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String(attrStep, step.String())),
	)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// Register validates the submission, checks the captcha and writes a pending
// record. Nothing reaches the store unless both checks pass.
func (c *Controller) Register(ctx context.Context, sub registration.Submission, captchaToken string, remoteIP string) (h Handoff, err error) {
	ctx, span := c.startSpan(ctx, "register", STEP_REGISTRATION)
	defer func() { endSpan(span, err) }()

	result := registration.Validate(sub)
	if !result.Valid() {
		return Handoff{}, NewInvalidSubmissionError(result.FieldErrors)
	}

	if strings.TrimSpace(captchaToken) == "" {
		return Handoff{}, NewCaptchaRequiredError()
	}
	if _, err := c.captcha.Validate(ctx, captchaToken, remoteIP); err != nil {
		return Handoff{}, NewCaptchaInvalidError(err)
	}

	catalog := c.catalog.Catalog()

	reg, err := registration.NewRegistration(sub, catalog.Fee, c.newID(), c.now())
	if err != nil {
		var regErr *registration.Error
		if errors.As(err, &regErr) && regErr.Reason == registration.REASON_INVALID_SUBMISSION {
			return Handoff{}, NewInvalidSubmissionError(regErr.FieldErrors)
		}
		return Handoff{}, err
	}
	span.SetAttributes(attribute.String(attrRegistrationID, reg.ID.String()))

	if err := c.repo.CreateRegistration(ctx, reg); err != nil {
		c.logger.ErrorContext(ctx, "failed to create registration", slog.String("error", err.Error()))
		return Handoff{}, NewStoreUnavailableError(err)
	}

	c.logger.InfoContext(ctx, "registration created", slog.String("registration-id", reg.ID.String()))

	return Handoff{
		RegistrationID: reg.ID,
		Registrant: Registrant{
			Name:           reg.Name,
			Email:          reg.Email,
			Phone:          reg.Phone,
			FoodPreference: reg.FoodPreference,
		},
	}, nil
}
