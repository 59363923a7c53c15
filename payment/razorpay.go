package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/International-Combat-Archery-Alliance/payments"
	"github.com/google/uuid"
	"github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"
)

const registrationIDNote = "registration_id"

type orderClient interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
	Fetch(orderID string, queryParams map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// CheckoutNotes are the notes the checkout widget attaches to the payment, so
// payment webhooks carry the registration id without an order lookup.
func CheckoutNotes(registrationID uuid.UUID) map[string]string {
	return map[string]string{registrationIDNote: registrationID.String()}
}

// Razorpay creates orders and checks the signatures Razorpay attaches to
// checkout callbacks and webhooks.
type Razorpay struct {
	orders        orderClient
	keyID         string
	keySecret     string
	webhookSecret string
}

func NewRazorpay(keyID, keySecret, webhookSecret string) *Razorpay {
	client := razorpay.NewClient(keyID, keySecret)

	return &Razorpay{
		orders:        client.Order,
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
	}
}

// CreateCheckout creates an order for the request amount. The returned
// SessionId is the Razorpay order id and ClientSecret is the public key id the
// checkout widget is opened with.
func (r *Razorpay) CreateCheckout(ctx context.Context, req CheckoutRequest) (payments.CheckoutInfo, error) {
	if err := ctx.Err(); err != nil {
		return payments.CheckoutInfo{}, NewFailedToCreateOrderError("Context done before creating order", err)
	}

	order, err := r.orders.Create(map[string]interface{}{
		"amount":   req.Amount.Amount(),
		"currency": req.Amount.Currency().Code,
		"receipt":  req.RegistrationID.String(),
		"notes": map[string]interface{}{
			registrationIDNote: req.RegistrationID.String(),
			"batch":            "2022",
			"event":            "reunion",
		},
	}, nil)
	if err != nil {
		return payments.CheckoutInfo{}, NewFailedToCreateOrderError("Razorpay rejected the order", err)
	}

	orderID, ok := order["id"].(string)
	if !ok || orderID == "" {
		return payments.CheckoutInfo{}, NewFailedToCreateOrderError("Razorpay order response has no id", nil)
	}

	return payments.CheckoutInfo{
		SessionId:    orderID,
		ClientSecret: r.keyID,
	}, nil
}

func (r *Razorpay) VerifyPayment(cb Callback) error {
	if cb.OrderID == "" || cb.PaymentID == "" || cb.Signature == "" {
		return NewInvalidSignatureError("Payment callback is missing the order id, payment id or signature")
	}

	ok := utils.VerifyPaymentSignature(map[string]interface{}{
		"razorpay_order_id":   cb.OrderID,
		"razorpay_payment_id": cb.PaymentID,
	}, cb.Signature, r.keySecret)
	if !ok {
		return NewInvalidSignatureError(fmt.Sprintf("Signature does not match payment %q", cb.PaymentID))
	}

	return nil
}

type webhookBody struct {
	Event     string `json:"event"`
	CreatedAt int64  `json:"created_at"`
	Payload   struct {
		Payment *struct {
			Entity webhookEntity `json:"entity"`
		} `json:"payment"`
		Order *struct {
			Entity webhookEntity `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

type webhookEntity struct {
	ID      string `json:"id"`
	OrderID string `json:"order_id"`
	// Razorpay sends an empty array instead of an object when there are no notes.
	Notes     json.RawMessage `json:"notes"`
	CreatedAt int64           `json:"created_at"`
}

func (e webhookEntity) note(key string) string {
	var notes map[string]any
	if err := json.Unmarshal(e.Notes, &notes); err != nil {
		return ""
	}
	v, _ := notes[key].(string)
	return v
}

// ParseWebhook verifies the webhook signature and turns the payload into a
// WebhookEvent. Events other than captures and failures come back as a
// payments.Error with ErrorReasonNotCheckoutConfirmedEvent so callers can
// acknowledge and ignore them.
func (r *Razorpay) ParseWebhook(payload []byte, signature string) (WebhookEvent, error) {
	if signature == "" || !utils.VerifyWebhookSignature(string(payload), signature, r.webhookSecret) {
		return WebhookEvent{}, NewInvalidSignatureError("Webhook signature does not match")
	}

	var body webhookBody
	if err := json.Unmarshal(payload, &body); err != nil {
		return WebhookEvent{}, NewMalformedPayloadError("Webhook body is not valid JSON", err)
	}

	var kind WebhookEventKind
	switch body.Event {
	case "payment.captured", "order.paid":
		kind = PAYMENT_CAPTURED
	case "payment.failed":
		kind = PAYMENT_FAILED
	default:
		return WebhookEvent{}, &payments.Error{Reason: payments.ErrorReasonNotCheckoutConfirmedEvent}
	}

	if body.Payload.Payment == nil {
		return WebhookEvent{}, NewMalformedPayloadError(fmt.Sprintf("%s event has no payment entity", body.Event), nil)
	}
	pay := body.Payload.Payment.Entity

	rawID := pay.note(registrationIDNote)
	if rawID == "" && body.Payload.Order != nil {
		rawID = body.Payload.Order.Entity.note(registrationIDNote)
	}
	if rawID == "" && pay.OrderID != "" {
		var err error
		rawID, err = r.orderRegistrationID(pay.OrderID)
		if err != nil {
			return WebhookEvent{}, err
		}
	}
	regID, err := uuid.Parse(rawID)
	if err != nil {
		return WebhookEvent{}, NewMalformedPayloadError(fmt.Sprintf("Payment %q has no usable registration id note", pay.ID), err)
	}

	occurredAt := body.CreatedAt
	if occurredAt == 0 {
		occurredAt = pay.CreatedAt
	}

	return WebhookEvent{
		Kind:           kind,
		RegistrationID: regID,
		PaymentID:      pay.ID,
		OrderID:        pay.OrderID,
		OccurredAt:     time.Unix(occurredAt, 0).UTC(),
	}, nil
}

// orderRegistrationID reads the registration id back from the order the
// payment was made against. The receipt is the registration id too.
func (r *Razorpay) orderRegistrationID(orderID string) (string, error) {
	order, err := r.orders.Fetch(orderID, nil, nil)
	if err != nil {
		return "", NewOrderLookupFailedError(fmt.Sprintf("Failed to fetch order %q", orderID), err)
	}

	if notes, ok := order["notes"].(map[string]interface{}); ok {
		if id, ok := notes[registrationIDNote].(string); ok && id != "" {
			return id, nil
		}
	}
	receipt, _ := order["receipt"].(string)
	return receipt, nil
}
