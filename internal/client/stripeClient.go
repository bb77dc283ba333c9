package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"storefront-downloads/internal/config"
	"storefront-downloads/internal/model"

	"github.com/stripe/stripe-go/v82"
	stripeapi "github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
)

type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, req *model.CheckoutSessionRequest) (*model.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*model.CheckoutSession, error)
	// ConstructEvent verifies the signature header before decoding the payload.
	ConstructEvent(payload []byte, signature string) (*model.GatewayEvent, error)
}

// ErrMalformedEvent marks a correctly signed event whose payload cannot be decoded.
var ErrMalformedEvent = errors.New("malformed webhook event")

// GatewayError carries the provider's own message so it can be passed
// through to the caller.
type GatewayError struct {
	Op      string
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	return "stripe " + e.Op + ": " + e.Message
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

func newGatewayError(op string, err error) error {
	msg := err.Error()
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Msg != "" {
		msg = stripeErr.Msg
	}
	return &GatewayError{Op: op, Message: msg, Err: err}
}

type stripeClientImpl struct {
	api           *stripeapi.API
	webhookSecret string
}

func NewStripeClient(cfg *config.Stripe) PaymentGateway {
	api := &stripeapi.API{}
	api.Init(cfg.SecretKey, nil)

	return &stripeClientImpl{
		api:           api,
		webhookSecret: cfg.WebhookSecret,
	}
}

func (c *stripeClientImpl) CreateCheckoutSession(ctx context.Context, req *model.CheckoutSessionRequest) (*model.CheckoutSession, error) {
	params := buildCheckoutSessionParams(req)
	params.Context = ctx

	sess, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, newGatewayError("create checkout session", err)
	}

	return toCheckoutSession(sess), nil
}

func (c *stripeClientImpl) GetCheckoutSession(ctx context.Context, sessionID string) (*model.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := c.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, newGatewayError("get checkout session", err)
	}

	return toCheckoutSession(sess), nil
}

func (c *stripeClientImpl) ConstructEvent(payload []byte, signature string) (*model.GatewayEvent, error) {
	return constructEvent(payload, signature, c.webhookSecret)
}

func constructEvent(payload []byte, signature, secret string) (*model.GatewayEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, err
	}

	result := &model.GatewayEvent{
		ID:   event.ID,
		Type: string(event.Type),
	}

	if event.Type == stripe.EventTypeCheckoutSessionCompleted && event.Data != nil {
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("%w: checkout session: %v", ErrMalformedEvent, err)
		}
		result.Session = toCheckoutSession(&sess)
	}

	return result, nil
}

func buildCheckoutSessionParams(req *model.CheckoutSessionRequest) *stripe.CheckoutSessionParams {
	productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
		Name: stripe.String(req.ProductName),
	}
	if req.ProductImage != "" {
		productData.Images = stripe.StringSlice([]string{req.ProductImage})
	}

	return &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		CustomerEmail:      stripe.String(req.CustomerEmail),
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:    stripe.String(req.Currency),
					ProductData: productData,
					UnitAmount:  stripe.Int64(req.UnitAmount),
				},
				Quantity: stripe.Int64(1),
			},
		},
		// needed to correlate the asynchronous webhook with the product
		Metadata: map[string]string{
			model.MetadataProductID:     req.ProductID,
			model.MetadataCustomerEmail: req.CustomerEmail,
		},
	}
}

func toCheckoutSession(sess *stripe.CheckoutSession) *model.CheckoutSession {
	out := &model.CheckoutSession{
		ID:            sess.ID,
		PaymentStatus: string(sess.PaymentStatus),
		CustomerEmail: sess.CustomerEmail,
		Metadata:      sess.Metadata,
	}
	if sess.CustomerDetails != nil {
		out.CustomerDetailsEmail = sess.CustomerDetails.Email
	}
	if out.Metadata == nil {
		out.Metadata = map[string]string{}
	}
	return out
}
