package client

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"storefront-downloads/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

const testWebhookSecret = "whsec_test_secret"

func signedPayload(t *testing.T, payload []byte, secret string) (string, []byte) {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	})
	return signed.Header, signed.Payload
}

func TestBuildCheckoutSessionParams(t *testing.T) {
	params := buildCheckoutSessionParams(&model.CheckoutSessionRequest{
		ProductID:     "portfolio-template",
		ProductName:   "Portfolio Template",
		ProductImage:  "https://cdn.example.com/portfolio.png",
		UnitAmount:    1050,
		Currency:      "usd",
		CustomerEmail: "a@b.com",
		SuccessURL:    "https://shop.example.com/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     "https://shop.example.com/cancel",
	})

	require.Len(t, params.LineItems, 1)
	item := params.LineItems[0]
	assert.Equal(t, int64(1), *item.Quantity)
	assert.Equal(t, int64(1050), *item.PriceData.UnitAmount)
	assert.Equal(t, "usd", *item.PriceData.Currency)
	assert.Equal(t, "Portfolio Template", *item.PriceData.ProductData.Name)
	require.Len(t, item.PriceData.ProductData.Images, 1)
	assert.Equal(t, "https://cdn.example.com/portfolio.png", *item.PriceData.ProductData.Images[0])

	assert.Equal(t, "payment", *params.Mode)
	assert.Equal(t, "a@b.com", *params.CustomerEmail)
	assert.Equal(t, "https://shop.example.com/cancel", *params.CancelURL)
	assert.Equal(t, "portfolio-template", params.Metadata[model.MetadataProductID])
	assert.Equal(t, "a@b.com", params.Metadata[model.MetadataCustomerEmail])
}

func TestBuildCheckoutSessionParams_NoImage(t *testing.T) {
	params := buildCheckoutSessionParams(&model.CheckoutSessionRequest{
		ProductName: "Landing Kit",
		UnitAmount:  4900,
		Currency:    "usd",
	})

	assert.Empty(t, params.LineItems[0].PriceData.ProductData.Images)
}

func TestConstructEvent_CheckoutSessionCompleted(t *testing.T) {
	payload := []byte(`{
		"id": "evt_123",
		"object": "event",
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": "cs_test_1",
				"object": "checkout.session",
				"payment_status": "paid",
				"customer_details": {"email": "details@b.com"},
				"metadata": {"productId": "portfolio-template", "customerEmail": "a@b.com"}
			}
		}
	}`)
	header, body := signedPayload(t, payload, testWebhookSecret)

	event, err := constructEvent(body, header, testWebhookSecret)
	require.NoError(t, err)

	assert.Equal(t, "evt_123", event.ID)
	assert.Equal(t, model.EventCheckoutSessionCompleted, event.Type)
	require.NotNil(t, event.Session)
	assert.Equal(t, "cs_test_1", event.Session.ID)
	assert.True(t, event.Session.IsPaid())
	assert.Equal(t, "portfolio-template", event.Session.ProductID())
	assert.Equal(t, "a@b.com", event.Session.PurchaserEmail())
	assert.Equal(t, "details@b.com", event.Session.CustomerDetailsEmail)
}

func TestConstructEvent_OtherTypeHasNoSession(t *testing.T) {
	payload := []byte(`{"id": "evt_456", "object": "event", "type": "charge.refunded", "data": {"object": {"id": "ch_1"}}}`)
	header, body := signedPayload(t, payload, testWebhookSecret)

	event, err := constructEvent(body, header, testWebhookSecret)
	require.NoError(t, err)

	assert.Equal(t, "charge.refunded", event.Type)
	assert.Nil(t, event.Session)
}

func TestConstructEvent_InvalidSignature(t *testing.T) {
	payload := []byte(`{"id": "evt_789", "object": "event", "type": "checkout.session.completed"}`)

	header, body := signedPayload(t, payload, "whsec_other_secret")
	_, err := constructEvent(body, header, testWebhookSecret)
	assert.Error(t, err)

	_, err = constructEvent(payload, "", testWebhookSecret)
	assert.Error(t, err)

	_, err = constructEvent(payload, "t=1,v1=deadbeef", testWebhookSecret)
	assert.Error(t, err)
}

func TestConstructEvent_MalformedSession(t *testing.T) {
	payload := []byte(`{
		"id": "evt_bad",
		"object": "event",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_test_2", "object": "checkout.session", "payment_status": 5}}
	}`)
	header, body := signedPayload(t, payload, testWebhookSecret)

	_, err := constructEvent(body, header, testWebhookSecret)
	assert.ErrorIs(t, err, ErrMalformedEvent)

	// signature failures stay distinguishable
	header, body = signedPayload(t, payload, "whsec_other_secret")
	_, err = constructEvent(body, header, testWebhookSecret)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMalformedEvent)
}

func TestNewGatewayError(t *testing.T) {
	stripeErr := &stripe.Error{Msg: "Invalid API Key provided: sk_test_****"}
	err := newGatewayError("create checkout session", fmt.Errorf("call: %w", stripeErr))

	var gwErr *GatewayError
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, "Invalid API Key provided: sk_test_****", gwErr.Message)
	assert.ErrorIs(t, err, stripeErr)

	err = newGatewayError("get checkout session", errors.New("dial tcp: i/o timeout"))
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, "dial tcp: i/o timeout", gwErr.Message)
}
