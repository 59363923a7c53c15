package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

const ssmPrefix = "ssm:"

type ssmGetParameterAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// SSMSecrets resolves settings of the form "ssm:/path/to/param" from AWS SSM
// Parameter Store. Other values are returned unchanged.
type SSMSecrets struct {
	client ssmGetParameterAPI
}

func NewSSMSecrets(client ssmGetParameterAPI) *SSMSecrets {
	return &SSMSecrets{client: client}
}

func (s *SSMSecrets) Resolve(ctx context.Context, value string) (string, error) {
	name, ok := strings.CutPrefix(value, ssmPrefix)
	if !ok {
		return value, nil
	}

	out, err := s.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get ssm parameter %q: %w", name, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("ssm parameter %q has no value", name)
	}

	return *out.Parameter.Value, nil
}

// NeedsSecrets reports whether any secret setting points at SSM.
func (s Settings) NeedsSecrets() bool {
	for _, ptr := range s.secretFields() {
		if strings.HasPrefix(*ptr, ssmPrefix) {
			return true
		}
	}
	return false
}

// ResolveSecrets replaces every "ssm:" secret in s with its value.
func (s *Settings) ResolveSecrets(ctx context.Context, secrets *SSMSecrets) error {
	for _, ptr := range s.secretFields() {
		resolved, err := secrets.Resolve(ctx, *ptr)
		if err != nil {
			return err
		}
		*ptr = resolved
	}
	return nil
}

func (s *Settings) secretFields() []*string {
	return []*string{
		&s.HandoffSecret,
		&s.RecaptchaSecret,
		&s.Razorpay.KeySecret,
		&s.Razorpay.WebhookSecret,
	}
}
