// Package handler exposes the HTTP surface: public reads, the admin
// mutation API and the notification subscription endpoints.
package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is the liveness endpoint used by load balancers.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
