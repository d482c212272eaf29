package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const msgAdminRequired = "Admin authorization required"

// AdminGuard rejects requests whose Authorization header is not exactly
// "Bearer <token>".  It runs before any handler so a rejected request never
// reaches persistence.
func AdminGuard(token string) echo.MiddlewareFunc {
	want := []byte("Bearer " + token)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			got := c.Request().Header.Get(echo.HeaderAuthorization)
			if token == "" || !strings.HasPrefix(got, "Bearer ") || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				return c.JSON(http.StatusForbidden, echo.Map{"message": msgAdminRequired})
			}
			return next(c)
		}
	}
}
