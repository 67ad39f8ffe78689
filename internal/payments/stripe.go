// Package payments wraps the hosted checkout provider used for online giving.
package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

var (
	// ErrInvalidSignature is returned when a webhook payload fails verification
	ErrInvalidSignature = errors.New("payments: invalid webhook signature")
	// ErrProvider wraps failures reported by the provider API
	ErrProvider = errors.New("payments: provider error")
)

// Webhook event types handled by the donation service
const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventCheckoutExpired   = "checkout.session.expired"
)

// CheckoutInput describes one gift to collect
type CheckoutInput struct {
	DonationID  string
	AmountCents int64
	Currency    string
	Fund        string
	Monthly     bool
	Email       string
	SuccessURL  string
	CancelURL   string
}

// CheckoutSession is the provider's hosted payment page
type CheckoutSession struct {
	ID  string
	URL string
}

// WebhookEvent is the part of a provider event the service cares about
type WebhookEvent struct {
	ID                string
	Type              string
	SessionID         string
	ClientReferenceID string
}

// Provider creates checkout sessions and verifies webhooks
type Provider interface {
	CreateCheckout(ctx context.Context, in CheckoutInput) (*CheckoutSession, error)
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}

// StripeProvider is the Stripe implementation of Provider
type StripeProvider struct {
	api           *client.API
	webhookSecret string
	successURL    string
	cancelURL     string
}

// StripeConfig configures a StripeProvider
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
	// Backends overrides the HTTP backends, for tests
	Backends *stripe.Backends
}

// NewStripeProvider creates a Stripe-backed provider
func NewStripeProvider(cfg StripeConfig) *StripeProvider {
	api := &client.API{}
	api.Init(cfg.SecretKey, cfg.Backends)
	return &StripeProvider{
		api:           api,
		webhookSecret: cfg.WebhookSecret,
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
	}
}

// CreateCheckout opens a hosted checkout session. Monthly gifts become a
// subscription with an inline recurring price.
func (p *StripeProvider) CreateCheckout(ctx context.Context, in CheckoutInput) (*CheckoutSession, error) {
	successURL := in.SuccessURL
	if successURL == "" {
		successURL = p.successURL
	}
	cancelURL := in.CancelURL
	if cancelURL == "" {
		cancelURL = p.cancelURL
	}

	price := &stripe.CheckoutSessionLineItemPriceDataParams{
		Currency:   stripe.String(strings.ToLower(in.Currency)),
		UnitAmount: stripe.Int64(in.AmountCents),
		ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(fundLabel(in.Fund)),
		},
	}
	mode := stripe.CheckoutSessionModePayment
	if in.Monthly {
		mode = stripe.CheckoutSessionModeSubscription
		price.Recurring = &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
			Interval: stripe.String(string(stripe.PriceRecurringIntervalMonth)),
		}
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(mode)),
		SuccessURL:        stripe.String(successURL),
		CancelURL:         stripe.String(cancelURL),
		ClientReferenceID: stripe.String(in.DonationID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: price,
			Quantity:  stripe.Int64(1),
		}},
	}
	if in.Email != "" {
		params.CustomerEmail = stripe.String(in.Email)
	}
	params.Context = ctx
	params.AddMetadata("donation_id", in.DonationID)
	params.AddMetadata("fund", in.Fund)

	s, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: create checkout session: %v", ErrProvider, err)
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

// ParseWebhook verifies the Stripe-Signature header and extracts the session
func (p *StripeProvider) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &WebhookEvent{ID: ev.ID, Type: string(ev.Type)}
	if strings.HasPrefix(out.Type, "checkout.session.") && ev.Data != nil {
		var s stripe.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &s); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		out.SessionID = s.ID
		out.ClientReferenceID = s.ClientReferenceID
	}
	return out, nil
}

func fundLabel(fund string) string {
	if fund == "" {
		return "Gift"
	}
	return strings.ToUpper(fund[:1]) + fund[1:] + " fund gift"
}
