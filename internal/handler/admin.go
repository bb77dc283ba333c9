package handler

import (
	"errors"
	"net/http"
	"storefront-downloads/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

type AdminHandler struct {
	paymentService  service.PaymentService
	downloadService service.DownloadService
}

func NewAdminHandler(paymentService service.PaymentService, downloadService service.DownloadService) *AdminHandler {
	return &AdminHandler{
		paymentService:  paymentService,
		downloadService: downloadService,
	}
}

func (h *AdminHandler) UploadSourceCode(c echo.Context) error {
	ctx := c.Request().Context()

	productID := c.FormValue("productId")
	if productID == "" {
		return c.String(http.StatusBadRequest, "Missing productId.")
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return c.String(http.StatusBadRequest, "No file uploaded.")
	}
	src, err := fh.Open()
	if err != nil {
		return c.String(http.StatusBadRequest, "Could not read uploaded file.")
	}
	defer src.Close()

	if err := h.downloadService.StoreArchive(ctx, productID, src); err != nil {
		if errors.Is(err, service.ErrInvalidProductID) {
			return c.String(http.StatusBadRequest, "Invalid productId.")
		}
		log.Error().Err(err).Str("product_id", productID).Msg("store uploaded archive")
		return c.String(http.StatusInternalServerError, "Upload failed.")
	}

	return c.String(http.StatusOK, "File uploaded successfully for product "+productID+".")
}

func (h *AdminHandler) ListPurchases(c echo.Context) error {
	records, err := h.paymentService.ListPurchases(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, records)
}
