package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HeaderUserID carries the opaque user identifier set by the identity
// provider at the edge. The core trusts it as already authenticated.
const HeaderUserID = "X-User-ID"

// UserID returns the caller's identity or an HTTP 401 error.
func UserID(c echo.Context) (string, error) {
	id := c.Request().Header.Get(HeaderUserID)
	if id == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing user identity")
	}
	return id, nil
}
