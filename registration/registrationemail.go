package registration

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	texttemplate "text/template"

	"github.com/International-Combat-Archery-Alliance/email"
	"github.com/classof2022/reunion-registration/events"
)

//go:embed templates
var templates embed.FS

// EmailNotifier sends the payment confirmation once a payment is recorded.
type EmailNotifier struct {
	sender      email.Sender
	fromAddress string
}

func NewEmailNotifier(sender email.Sender, fromAddress string) *EmailNotifier {
	return &EmailNotifier{
		sender:      sender,
		fromAddress: fromAddress,
	}
}

func (n *EmailNotifier) PaymentRecorded(ctx context.Context, reg Registration, catalog events.Catalog) error {
	return SendPaymentConfirmationEmail(ctx, n.sender, n.fromAddress, reg, catalog)
}

func SendPaymentConfirmationEmail(ctx context.Context, emailSender email.Sender, fromAddress string, reg Registration, catalog events.Catalog) error {
	data := templateData(reg, catalog)

	htmlBody, err := makeHtmlBody(data)
	if err != nil {
		return err
	}

	textOnlyBody, err := makeTextOnlyBody(data)
	if err != nil {
		return err
	}

	return emailSender.SendEmail(ctx, email.Email{
		FromAddress: fromAddress,
		ToAddresses: []string{reg.Email},
		Subject:     fmt.Sprintf("You're registered - %q", catalog.Name),
		HTMLBody:    htmlBody,
		TextBody:    textOnlyBody,
	})
}

func templateData(reg Registration, catalog events.Catalog) map[string]any {
	return map[string]any{
		"Event":        catalog,
		"Registration": reg,
		"Date":         catalog.DateString(),
		"Time":         catalog.TimeString(),
		"Venue":        catalog.EventLocation.String(),
		"AmountPaid":   reg.Amount.Display(),
	}
}

func makeHtmlBody(data map[string]any) (string, error) {
	tmpl, err := template.ParseFS(templates, "templates/payment-confirmation.tmpl")
	if err != nil {
		return "", fmt.Errorf("failed to parse email template: %w", err)
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, data)
	if err != nil {
		return "", fmt.Errorf("failed to execute email template: %w", err)
	}

	return buf.String(), nil
}

func makeTextOnlyBody(data map[string]any) (string, error) {
	tmpl, err := texttemplate.ParseFS(templates, "templates/payment-confirmation-textonly.tmpl")
	if err != nil {
		return "", fmt.Errorf("failed to parse email template: %w", err)
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, data)
	if err != nil {
		return "", fmt.Errorf("failed to execute email template: %w", err)
	}

	return buf.String(), nil
}
