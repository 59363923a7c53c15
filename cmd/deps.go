package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/classof2022/reunion-registration/blob"
	"github.com/classof2022/reunion-registration/config"
	"github.com/classof2022/reunion-registration/dynamo"
	"github.com/classof2022/reunion-registration/events"
	"github.com/classof2022/reunion-registration/flow"
	"github.com/classof2022/reunion-registration/recaptcha"
	"github.com/classof2022/reunion-registration/registration"
	"github.com/classof2022/reunion-registration/sqlite"
)

// Google's published test secret. Every token passes against it.
const recaptchaTestSecret = "6LeIxAcTAAAAAGG-vFI1TnRWxMZNFuojJ4WifJWe"

// awsConfigLoader loads the default AWS config at most once, and only when a
// component actually needs it.
type awsConfigLoader struct {
	once sync.Once
	cfg  aws.Config
	err  error
}

func (l *awsConfigLoader) get(ctx context.Context) (aws.Config, error) {
	l.once.Do(func() {
		l.cfg, l.err = awsconfig.LoadDefaultConfig(ctx)
		if l.err != nil {
			l.err = fmt.Errorf("failed to get aws config: %w", l.err)
		}
	})
	return l.cfg, l.err
}

func resolveSecrets(ctx context.Context, settings *config.Settings, awsCfg *awsConfigLoader) error {
	if !settings.NeedsSecrets() {
		return nil
	}

	cfg, err := awsCfg.get(ctx)
	if err != nil {
		return err
	}
	return settings.ResolveSecrets(ctx, config.NewSSMSecrets(ssm.NewFromConfig(cfg)))
}

func openStore(ctx context.Context, settings config.StoreSettings, awsCfg *awsConfigLoader) (registration.Repository, func() error, error) {
	switch settings.Kind {
	case "dynamo":
		cfg, err := awsCfg.get(ctx)
		if err != nil {
			return nil, nil, err
		}
		return dynamo.NewDB(dynamodb.NewFromConfig(cfg), settings.DynamoTable), func() error { return nil }, nil
	case "sqlite":
		db, err := sqlite.Open(ctx, settings.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store kind %q", settings.Kind)
	}
}

// newBlobStore returns the photo store. For the dir store it also returns the
// URL path the files should be served under, empty otherwise.
func newBlobStore(ctx context.Context, settings config.Settings, awsCfg *awsConfigLoader) (flow.BlobStore, string, error) {
	switch settings.Blob.Kind {
	case "s3":
		cfg, err := awsCfg.get(ctx)
		if err != nil {
			return nil, "", err
		}
		return blob.NewS3Store(s3.NewFromConfig(cfg), settings.Blob.Bucket, settings.Blob.PublicBaseURL), "", nil
	case "dir":
		baseURL := settings.Blob.PublicBaseURL
		if baseURL == "" {
			baseURL = fmt.Sprintf("http://localhost:%s/%s", settings.Port, localPhotosPath)
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, "", fmt.Errorf("invalid blob.public_base_url %q: %w", baseURL, err)
		}
		return blob.NewDirStore(settings.Blob.Dir, baseURL), u.Path, nil
	default:
		return nil, "", fmt.Errorf("unknown blob kind %q", settings.Blob.Kind)
	}
}

func newCatalogSource(settings config.Settings, logger *slog.Logger) (events.Source, error) {
	if settings.CatalogFile == "" {
		return events.NewStaticSource(events.DefaultCatalog()), nil
	}
	w, err := config.WatchCatalog(settings.CatalogFile, logger)
	if err != nil {
		return nil, err
	}
	return w, nil
}

func newCaptchaValidator(settings config.Settings, logger *slog.Logger) *recaptcha.Validator {
	secret := settings.RecaptchaSecret
	if secret == "" && settings.Environment() == config.LOCAL {
		logger.Warn("No recaptcha secret set, using the always-pass test secret")
		secret = recaptchaTestSecret
	}
	return recaptcha.NewValidator(secret)
}

func handoffSecret(settings config.Settings, logger *slog.Logger) ([]byte, error) {
	if settings.HandoffSecret != "" {
		return []byte(settings.HandoffSecret), nil
	}

	logger.Warn("No handoff secret set, generating one; flow cookies will not survive a restart")
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate handoff secret: %w", err)
	}
	return secret, nil
}
