package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/International-Combat-Archery-Alliance/auth"
	"github.com/classof2022/reunion-registration/config"
	"github.com/classof2022/reunion-registration/events"
	"github.com/classof2022/reunion-registration/flow"
	"github.com/classof2022/reunion-registration/payment"
	"github.com/classof2022/reunion-registration/registration"
	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	allRegistrationsCacheKey = "all-registrations"
	allRegistrationsCacheTTL = 15 * time.Second
)

type DB interface {
	registration.Repository
}

type FlowController interface {
	Register(ctx context.Context, sub registration.Submission, captchaToken string, remoteIP string) (flow.Handoff, error)
	BeginPayment(ctx context.Context, h flow.Handoff) (flow.Checkout, error)
	ConfirmPayment(ctx context.Context, h flow.Handoff, cb payment.Callback) (flow.Handoff, error)
	CancelPayment(ctx context.Context, h flow.Handoff) error
	UploadPhoto(ctx context.Context, h flow.Handoff, p flow.Photo) (flow.Handoff, error)
	SkipPhoto(ctx context.Context, h flow.Handoff) (flow.Handoff, error)
	ReconcileWebhook(ctx context.Context, ev payment.WebhookEvent) error
}

var _ FlowController = (*flow.Controller)(nil)

type WebhookParser interface {
	ParseWebhook(payload []byte, signature string) (payment.WebhookEvent, error)
}

type AuthValidator interface {
	Validate(ctx context.Context, token string, clientID string) (auth.AuthToken, error)
}

type Settings struct {
	Env            config.Environment
	GoogleClientID string
	CORSOrigins    []string
	CookieDomain   string
}

type API struct {
	db            DB
	flow          FlowController
	webhooks      WebhookParser
	authValidator AuthValidator
	catalog       events.Source
	handoffs      *handoffCodec
	// Unfiltered registration list behind the admin search and stats views.
	registrations *cache.Cache
	logger        *slog.Logger
	settings      Settings
}

func NewAPI(
	db DB,
	flowController FlowController,
	webhooks WebhookParser,
	authValidator AuthValidator,
	catalog events.Source,
	handoffSecret []byte,
	logger *slog.Logger,
	settings Settings,
) *API {
	return &API{
		db:            db,
		flow:          flowController,
		webhooks:      webhooks,
		authValidator: authValidator,
		catalog:       catalog,
		handoffs:      newHandoffCodec(handoffSecret, settings.Env == config.PROD),
		registrations: cache.New(allRegistrationsCacheTTL, time.Minute),
		logger:        logger,
		settings:      settings,
	}
}

// Handler builds the full middleware chain around the JSON routes. Routes that
// stream bodies other than JSON are served by rawRoutesMiddleware ahead of
// request validation.
func (a *API) Handler() (http.Handler, error) {
	swagger, err := GetSwagger()
	if err != nil {
		return nil, fmt.Errorf("failed to load openapi spec: %w", err)
	}
	swagger.Servers = nil

	r := http.NewServeMux()
	a.registerRoutes(r)

	h := useMiddlewares(r,
		a.openapiValidateMiddleware(swagger),
		a.rawRoutesMiddleware(),
		a.loggingMiddleware(),
		a.requestContextMiddleware(),
		a.corsMiddleware(),
	)

	return otelhttp.NewHandler(h, "reunion-registration",
		otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	), nil
}

func (a *API) registerRoutes(r *http.ServeMux) {
	r.HandleFunc("GET /v1/event", a.getEvent)
	r.HandleFunc("POST /v1/registrations", a.postRegistration)

	r.HandleFunc("GET /v1/flow/payment", a.getPayment)
	r.HandleFunc("POST /v1/flow/payment/confirm", a.postPaymentConfirm)
	r.HandleFunc("POST /v1/flow/payment/cancel", a.postPaymentCancel)
	r.HandleFunc("POST /v1/flow/photo/skip", a.postPhotoSkip)
	r.HandleFunc("GET /v1/flow/summary", a.getSummary)

	r.HandleFunc("POST /v1/admin/login", a.postAdminLogin)
	r.HandleFunc("POST /v1/admin/logout", a.postAdminLogout)
	r.HandleFunc("GET /v1/admin/registrations", a.getAdminRegistrations)
	r.HandleFunc("GET /v1/admin/stats", a.getAdminStats)
}

func (a *API) allRegistrations(ctx context.Context) ([]registration.Registration, error) {
	if cached, ok := a.registrations.Get(allRegistrationsCacheKey); ok {
		return cached.([]registration.Registration), nil
	}

	regs, err := registration.ListAll(ctx, a.db)
	if err != nil {
		return nil, err
	}

	a.registrations.SetDefault(allRegistrationsCacheKey, regs)
	return regs, nil
}

// registrationsChanged drops the cached list after any write made through this
// API.
func (a *API) registrationsChanged() {
	a.registrations.Delete(allRegistrationsCacheKey)
}
