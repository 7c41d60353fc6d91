package middleware

import (
	"log/slog"
	"net/http"

	"github.com/HelderMendes/events-tickets/internal/dto"
	"github.com/labstack/echo/v4"
)

// ErrorHandler renders every error as the API's JSON error envelope. Client
// errors pass through as-is; anything unexpected is logged and reported as a
// plain 500 so internals never leak into responses.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := "internal server error"

	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		}
	}

	if code >= http.StatusInternalServerError {
		slog.Error("request failed",
			"method", c.Request().Method,
			"path", c.Path(),
			"error", err,
		)
	}

	_ = c.JSON(code, dto.ErrorResponse{Message: msg})
}
