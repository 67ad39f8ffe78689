package payments

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76/webhook"
)

const testSecret = "whsec_test_secret"

func signed(t *testing.T, payload string) (body []byte, header string) {
	t.Helper()
	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testSecret,
		Timestamp: time.Now(),
	})
	return sp.Payload, sp.Header
}

func TestParseWebhook_CheckoutCompleted(t *testing.T) {
	t.Parallel()

	p := NewStripeProvider(StripeConfig{SecretKey: "sk_test_x", WebhookSecret: testSecret})

	body, header := signed(t, `{
		"id": "evt_1",
		"object": "event",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_test_1", "object": "checkout.session", "client_reference_id": "donation:abc"}}
	}`)

	ev, err := p.ParseWebhook(body, header)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", ev.ID)
	assert.Equal(t, EventCheckoutCompleted, ev.Type)
	assert.Equal(t, "cs_test_1", ev.SessionID)
	assert.Equal(t, "donation:abc", ev.ClientReferenceID)
}

func TestParseWebhook_OtherEvent(t *testing.T) {
	t.Parallel()

	p := NewStripeProvider(StripeConfig{WebhookSecret: testSecret})
	body, header := signed(t, `{"id":"evt_2","object":"event","type":"customer.created","data":{"object":{"id":"cus_1"}}}`)

	ev, err := p.ParseWebhook(body, header)
	require.NoError(t, err)
	assert.Equal(t, "customer.created", ev.Type)
	assert.Empty(t, ev.SessionID)
}

func TestParseWebhook_BadSignature(t *testing.T) {
	t.Parallel()

	p := NewStripeProvider(StripeConfig{WebhookSecret: "whsec_other"})
	body, header := signed(t, `{"id":"evt_3","object":"event","type":"checkout.session.completed"}`)

	_, err := p.ParseWebhook(body, header)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestFundLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Missions fund gift", fundLabel("missions"))
	assert.Equal(t, "Gift", fundLabel(""))
}
