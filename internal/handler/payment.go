package handler

import (
	"errors"
	"io"
	"net/http"
	"storefront-downloads/internal/client"
	"storefront-downloads/internal/dto"
	"storefront-downloads/internal/service"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

const (
	maxWebhookBodyBytes = 1 << 20
	signatureHeader     = "Stripe-Signature"
)

type PaymentHandler struct {
	paymentService service.PaymentService
	baseURL        string
}

func NewPaymentHandler(paymentService service.PaymentService, baseURL string) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		baseURL:        baseURL,
	}
}

func (h *PaymentHandler) CreateCheckoutSession(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CreateCheckoutSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	origin := c.Request().Header.Get(echo.HeaderOrigin)
	if origin == "" {
		origin = h.baseURL
	}

	resp, err := h.paymentService.CreateCheckoutSession(ctx, &req, origin)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		}
		log.Error().Err(err).Str("product_id", req.ProductID).Msg("create checkout session")
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: gatewayMessage(err)})
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *PaymentHandler) VerifySession(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.VerifySessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.VerifySessionResponse{Error: "invalid request body"})
	}

	resp, err := h.paymentService.VerifySession(ctx, req.SessionID)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.JSON(http.StatusBadRequest, dto.VerifySessionResponse{Error: err.Error()})
		}
		log.Error().Err(err).Str("session_id", req.SessionID).Msg("verify checkout session")
		return c.JSON(http.StatusInternalServerError, dto.VerifySessionResponse{Error: gatewayMessage(err)})
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *PaymentHandler) Webhook(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(http.MaxBytesReader(c.Response(), c.Request().Body, maxWebhookBodyBytes))
	if err != nil {
		return c.String(http.StatusBadRequest, "Webhook Error: "+err.Error())
	}

	err = h.paymentService.HandleWebhook(ctx, body, c.Request().Header.Get(signatureHeader))
	if err != nil {
		if errors.Is(err, service.ErrInvalidSignature) {
			log.Warn().Err(err).Msg("webhook rejected")
			return c.String(http.StatusBadRequest, "Webhook Error: "+strings.TrimPrefix(err.Error(), service.ErrInvalidSignature.Error()+": "))
		}
		if errors.Is(err, service.ErrMalformedEvent) {
			log.Warn().Err(err).Msg("webhook payload could not be decoded")
			return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "malformed event payload"})
		}
		log.Error().Err(err).Msg("webhook processing failed")
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "webhook processing failed"})
	}

	return c.JSON(http.StatusOK, dto.WebhookResponse{Received: true})
}

func gatewayMessage(err error) string {
	var gwErr *client.GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Message
	}
	return err.Error()
}
