package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/classof2022/reunion-registration/api"
	"github.com/classof2022/reunion-registration/flow"
	"github.com/classof2022/reunion-registration/payment"
	"github.com/classof2022/reunion-registration/registration"
	"github.com/classof2022/reunion-registration/telemetry"
	"github.com/spf13/cobra"
	"google.golang.org/api/idtoken"
)

const (
	localPhotosPath = "photos"
	shutdownTimeout = 30 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the registration API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	env := settings.Environment()
	logger := newLogger(env)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	awsCfg := &awsConfigLoader{}
	if err := resolveSecrets(ctx, &settings, awsCfg); err != nil {
		return err
	}

	provider, err := telemetry.NewProvider(ctx, settings.Tracing)
	if err != nil {
		return err
	}

	catalog, err := newCatalogSource(settings, logger)
	if err != nil {
		return err
	}

	db, closeDB, err := openStore(ctx, settings.Store, awsCfg)
	if err != nil {
		return err
	}
	defer closeDB()

	blobs, photosPath, err := newBlobStore(ctx, settings, awsCfg)
	if err != nil {
		return err
	}

	emailSender, err := createEmailSender(ctx, logger, env, awsCfg)
	if err != nil {
		return err
	}

	googleVerifier, err := idtoken.NewValidator(ctx)
	if err != nil {
		return fmt.Errorf("failed to create google id token validator: %w", err)
	}

	secret, err := handoffSecret(settings, logger)
	if err != nil {
		return err
	}

	gateway := payment.NewRazorpay(settings.Razorpay.KeyID, settings.Razorpay.KeySecret, settings.Razorpay.WebhookSecret)

	controller := flow.NewController(
		db,
		catalog,
		newCaptchaValidator(settings, logger),
		gateway,
		blobs,
		registration.NewEmailNotifier(emailSender, settings.Email.FromAddress),
		logger,
	)

	reunionAPI := api.NewAPI(
		db,
		controller,
		gateway,
		api.NewGoogleAuthValidator(googleVerifier, settings.Admin.AllowedDomain, settings.Admin.AllowedEmails),
		catalog,
		secret,
		logger,
		api.Settings{
			Env:            env,
			GoogleClientID: settings.Admin.GoogleClientID,
			CORSOrigins:    settings.CORSOrigins,
			CookieDomain:   settings.Admin.CookieDomain,
		},
	)

	h, err := reunionAPI.Handler()
	if err != nil {
		return err
	}
	if photosPath != "" {
		h = withLocalPhotos(h, photosPath, settings.Blob.Dir)
	}

	s := &http.Server{
		Handler:           h,
		Addr:              net.JoinHostPort(settings.Host, settings.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.ListenAndServe()
	}()

	logger.Info("Server started",
		slog.String("addr", s.Addr),
		slog.String("environment", env.String()),
		slog.String("store", settings.Store.Kind),
		slog.String("blob", settings.Blob.Kind),
		slog.Bool("tracing", provider.Enabled()))

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error stopping server", slog.String("error", err.Error()))
	}
	if err := provider.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error flushing traces", slog.String("error", err.Error()))
	}

	logger.Info("Server stopped")
	return nil
}

// withLocalPhotos serves photos written by the dir blob store so that the
// URLs it hands out resolve during local development.
func withLocalPhotos(h http.Handler, urlPath string, dir string) http.Handler {
	prefix := "/" + strings.Trim(urlPath, "/") + "/"

	mux := http.NewServeMux()
	mux.Handle("GET "+prefix, http.StripPrefix(prefix, http.FileServer(http.Dir(dir))))
	mux.Handle("/", h)
	return mux
}
