package middleware

import (
	"crypto/subtle"
	"net/http"
	"storefront-downloads/internal/dto"
	"strings"

	"github.com/labstack/echo/v4"
)

// AdminAuth guards operator endpoints with a static bearer token.
// An empty token locks the endpoints entirely.
func AdminAuth(token string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			got, ok := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
			if token == "" || !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				return c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
			}
			return next(c)
		}
	}
}
