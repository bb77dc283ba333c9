package handler

import (
	"errors"
	"io"
	"net/http"
	"storefront-downloads/internal/service"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

var downloadErrors = []struct {
	err     error
	status  int
	message string
}{
	{service.ErrDownloadNotFound, http.StatusNotFound, "Download token not found or expired."},
	{service.ErrDownloadUsed, http.StatusForbidden, "This download link has already been used."},
	{service.ErrDownloadExpired, http.StatusForbidden, "This download link has expired."},
	{service.ErrFileNotFound, http.StatusNotFound, "File not found."},
}

type DownloadHandler struct {
	downloadService service.DownloadService
}

func NewDownloadHandler(downloadService service.DownloadService) *DownloadHandler {
	return &DownloadHandler{
		downloadService: downloadService,
	}
}

func (h *DownloadHandler) Download(c echo.Context) error {
	ctx := c.Request().Context()

	dl, err := h.downloadService.Begin(ctx, c.Param("token"))
	if err != nil {
		for _, de := range downloadErrors {
			if errors.Is(err, de.err) {
				return c.String(de.status, de.message)
			}
		}
		log.Error().Err(err).Msg("prepare download")
		return c.String(http.StatusInternalServerError, "Download failed.")
	}
	defer dl.Body.Close()

	header := c.Response().Header()
	header.Set(echo.HeaderContentType, "application/zip")
	header.Set(echo.HeaderContentDisposition, `attachment; filename="`+dl.FileName+`"`)
	header.Set(echo.HeaderContentLength, strconv.FormatInt(dl.Size, 10))
	c.Response().WriteHeader(http.StatusOK)

	written, err := io.Copy(c.Response(), dl.Body)
	if err == nil && written < dl.Size {
		err = io.ErrUnexpectedEOF
	}
	if err != nil {
		// headers are gone; the client sees a truncated body
		h.downloadService.Abort(ctx, dl, err)
		return nil
	}

	h.downloadService.Complete(ctx, dl, written)
	return nil
}
