package service

import (
	"context"
	"errors"
	"fmt"
	"storefront-downloads/internal/client"
	"storefront-downloads/internal/dto"
	"storefront-downloads/internal/model"
	"storefront-downloads/internal/repository"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type PaymentService interface {
	CreateCheckoutSession(ctx context.Context, req *dto.CreateCheckoutSessionRequest, origin string) (*dto.CreateCheckoutSessionResponse, error)
	VerifySession(ctx context.Context, sessionID string) (*dto.VerifySessionResponse, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
	ListPurchases(ctx context.Context) ([]*model.PurchaseRecord, error)
}

type paymentServiceImpl struct {
	gateway          client.PaymentGateway
	purchaseRepo     repository.PurchaseRepository
	webhookEventRepo repository.WebhookEventRepository
	tokenRepo        repository.TokenRepository
	currency         string
	tokenTTL         time.Duration
	now              func() time.Time
}

func NewPaymentService(
	gateway client.PaymentGateway,
	purchaseRepo repository.PurchaseRepository,
	webhookEventRepo repository.WebhookEventRepository,
	tokenRepo repository.TokenRepository,
	currency string,
	tokenTTL time.Duration,
) PaymentService {
	return &paymentServiceImpl{
		gateway:          gateway,
		purchaseRepo:     purchaseRepo,
		webhookEventRepo: webhookEventRepo,
		tokenRepo:        tokenRepo,
		currency:         currency,
		tokenTTL:         tokenTTL,
		now:              time.Now,
	}
}

func (s *paymentServiceImpl) CreateCheckoutSession(ctx context.Context, req *dto.CreateCheckoutSessionRequest, origin string) (*dto.CreateCheckoutSessionResponse, error) {
	if strings.TrimSpace(req.ProductID) == "" {
		return nil, fmt.Errorf("%w: productId is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.CustomerEmail) == "" {
		return nil, fmt.Errorf("%w: customerEmail is required", ErrInvalidRequest)
	}

	unitAmount, err := toMinorUnits(req.ProductPrice)
	if err != nil {
		return nil, err
	}

	name := req.ProductName
	if name == "" {
		name = req.ProductID
	}
	origin = strings.TrimRight(origin, "/")

	sess, err := s.gateway.CreateCheckoutSession(ctx, &model.CheckoutSessionRequest{
		ProductID:     req.ProductID,
		ProductName:   name,
		ProductImage:  req.ProductImage,
		UnitAmount:    unitAmount,
		Currency:      s.currency,
		CustomerEmail: req.CustomerEmail,
		SuccessURL:    origin + "/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     origin + "/cancel",
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("session_id", sess.ID).
		Str("product_id", req.ProductID).
		Int64("unit_amount", unitAmount).
		Msg("checkout session created")

	return &dto.CreateCheckoutSessionResponse{ID: sess.ID}, nil
}

// toMinorUnits converts a decimal price into integer cents.
func toMinorUnits(price decimal.Decimal) (int64, error) {
	if !price.IsPositive() {
		return 0, fmt.Errorf("%w: productPrice must be positive", ErrInvalidRequest)
	}
	return price.Mul(decimal.NewFromInt(100)).Round(0).IntPart(), nil
}

func (s *paymentServiceImpl) VerifySession(ctx context.Context, sessionID string) (*dto.VerifySessionResponse, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("%w: sessionId is required", ErrInvalidRequest)
	}

	sess, err := s.gateway.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if !sess.IsPaid() {
		return &dto.VerifySessionResponse{
			Valid:   false,
			Message: "Payment not completed",
		}, nil
	}

	productID := sess.ProductID()
	if productID == "" {
		return nil, ErrSessionNoProduct
	}

	now := s.now()
	token := &model.DownloadToken{
		Token:     uuid.NewString(),
		ProductID: productID,
		Email:     sess.PurchaserEmail(),
		SessionID: sess.ID,
		ExpiresAt: now.Add(s.tokenTTL),
	}
	if err := s.tokenRepo.Put(ctx, token); err != nil {
		return nil, fmt.Errorf("store download token: %w", err)
	}

	// the token is already issued; a failed log write must not cost the customer the download
	if err := s.recordPurchase(ctx, sess, model.PurchaseSourceVerify, now); err != nil {
		log.Error().Err(err).Str("session_id", sess.ID).Msg("record purchase after verification")
	}

	log.Info().
		Str("session_id", sess.ID).
		Str("product_id", productID).
		Time("expires_at", token.ExpiresAt).
		Msg("download token issued")

	return &dto.VerifySessionResponse{
		Valid: true,
		Token: token.Token,
		Email: token.Email,
	}, nil
}

func (s *paymentServiceImpl) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.gateway.ConstructEvent(payload, signature)
	if err != nil {
		if errors.Is(err, client.ErrMalformedEvent) {
			return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	processed, err := s.webhookEventRepo.Exists(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("check webhook event: %w", err)
	}
	if processed {
		log.Info().Str("event_id", event.ID).Str("type", event.Type).Msg("webhook event already processed")
		return nil
	}

	switch event.Type {
	case model.EventCheckoutSessionCompleted:
		if event.Session == nil {
			return fmt.Errorf("event %s carries no checkout session", event.ID)
		}
		// same rule as verification: no product, no purchase
		if event.Session.ProductID() == "" {
			log.Warn().
				Str("event_id", event.ID).
				Str("session_id", event.Session.ID).
				Msg("checkout session has no product metadata, not recorded")
			break
		}
		if err := s.recordPurchase(ctx, event.Session, model.PurchaseSourceWebhook, s.now()); err != nil {
			return err
		}
	default:
		log.Debug().Str("event_id", event.ID).Str("type", event.Type).Msg("webhook event ignored")
	}

	if err := s.webhookEventRepo.MarkProcessed(ctx, event.ID, event.Type); err != nil {
		return fmt.Errorf("mark webhook event processed: %w", err)
	}

	return nil
}

func (s *paymentServiceImpl) recordPurchase(ctx context.Context, sess *model.CheckoutSession, source string, at time.Time) error {
	created, err := s.purchaseRepo.Append(ctx, &model.PurchaseRecord{
		SessionID: sess.ID,
		Email:     sess.PurchaserEmail(),
		ProductID: sess.ProductID(),
		Source:    source,
		Timestamp: at.UTC(),
	})
	if err != nil {
		return fmt.Errorf("append purchase record: %w", err)
	}

	log.Info().
		Str("session_id", sess.ID).
		Str("product_id", sess.ProductID()).
		Str("source", source).
		Bool("duplicate", !created).
		Msg("purchase recorded")

	return nil
}

func (s *paymentServiceImpl) ListPurchases(ctx context.Context) ([]*model.PurchaseRecord, error) {
	return s.purchaseRepo.List(ctx)
}
