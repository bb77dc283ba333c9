package server

import (
	"context"
	"net/http"
	"storefront-downloads/internal/config"
	"storefront-downloads/internal/handler"
	appmiddleware "storefront-downloads/internal/middleware"
	"storefront-downloads/internal/service"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Upload bodies are bounded separately from the JSON endpoints.
const maxUploadBodySize = "200M"

type Server struct {
	echo            *echo.Echo
	paymentHandler  *handler.PaymentHandler
	downloadHandler *handler.DownloadHandler
	adminHandler    *handler.AdminHandler
	cfg             *config.Config
}

func NewServer(cfg *config.Config, paymentService service.PaymentService, downloadService service.DownloadService) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := log.Info()
			if v.Error != nil || v.Status >= http.StatusInternalServerError {
				event = log.Error().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("uri", redactToken(c, v.URI)).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		echo:            e,
		paymentHandler:  handler.NewPaymentHandler(paymentService, cfg.BaseURL),
		downloadHandler: handler.NewDownloadHandler(downloadService),
		adminHandler:    handler.NewAdminHandler(paymentService, downloadService),
		cfg:             cfg,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	limiter := s.rateLimiter()

	// -------- checkout --------
	s.echo.POST("/create-checkout-session", s.paymentHandler.CreateCheckoutSession)
	s.echo.POST("/verify-session", s.paymentHandler.VerifySession, limiter)
	s.echo.GET("/download/:token", s.downloadHandler.Download, limiter)

	// -------- stripe webhooks --------
	s.echo.POST("/webhook", s.paymentHandler.Webhook)

	// -------- admin --------
	adminAuth := appmiddleware.AdminAuth(s.cfg.Admin.Token)
	s.echo.POST("/upload-source-code", s.adminHandler.UploadSourceCode, adminAuth, middleware.BodyLimit(maxUploadBodySize))
	admin := s.echo.Group("/admin", adminAuth)
	admin.GET("/purchases", s.adminHandler.ListPurchases)
}

func (s *Server) rateLimiter() echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(s.cfg.RateLimit.RPS),
		Burst:     s.cfg.RateLimit.Burst,
		ExpiresIn: 3 * time.Minute,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "Too many requests"})
		},
	})
}

// redactToken keeps download tokens out of access logs.
func redactToken(c echo.Context, uri string) string {
	if c.Param("token") != "" {
		return "/download/:token"
	}
	return uri
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
