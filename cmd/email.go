package main

import (
	"context"
	"log/slog"

	"github.com/International-Combat-Archery-Alliance/email"
	"github.com/International-Combat-Archery-Alliance/email/awsses"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/classof2022/reunion-registration/config"
)

var _ email.Sender = &EmailLogger{}

// email.Sender that logs out the email contents for local dev
type EmailLogger struct {
	logger *slog.Logger
}

func (el *EmailLogger) SendEmail(ctx context.Context, e email.Email) error {
	el.logger.Info("email that would be sent", slog.Any("email", e))

	return nil
}

func createProdAWSEmailSender(cfg aws.Config) *awsses.AWSSESSender {
	sesClient := sesv2.NewFromConfig(cfg)
	return awsses.NewAWSSESSender(sesClient)
}

func createEmailSender(ctx context.Context, logger *slog.Logger, env config.Environment, awsCfg *awsConfigLoader) (email.Sender, error) {
	if env == config.LOCAL {
		return &EmailLogger{logger: logger}, nil
	}

	cfg, err := awsCfg.get(ctx)
	if err != nil {
		return nil, err
	}
	return createProdAWSEmailSender(cfg), nil
}
