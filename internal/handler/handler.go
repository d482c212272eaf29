// Package handler adapts HTTP requests to the service layer.  Handlers bind
// and coerce input, call exactly one service operation and translate its
// classified error into a status code and a {"message", "error"} body.
package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/movie-review-api/internal/apperr"
)

const defaultTimeout = 5 * time.Second

const msgInvalidBody = "invalid body"

// withTimeout bounds the persistence work of one request.
func withTimeout(c echo.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = defaultTimeout
	}
	return context.WithTimeout(c.Request().Context(), d)
}

// respondError writes err as JSON.  Infrastructure causes are logged and
// exposed best effort in "error"; the other kinds carry only their message.
func respondError(c echo.Context, err error) error {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		ae = &apperr.Error{Kind: apperr.KindInfra, Message: http.StatusText(http.StatusInternalServerError), Err: err}
	}
	status := apperr.StatusOf(ae.Kind)
	body := echo.Map{"message": ae.Message}
	if ae.Kind == apperr.KindInfra {
		zerolog.Ctx(c.Request().Context()).Error().Err(ae.Err).Str("path", c.Path()).Msg(ae.Message)
		if ae.Err != nil {
			body["error"] = ae.Err.Error()
		}
	}
	return c.JSON(status, body)
}

func badBody(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"message": msgInvalidBody})
}
