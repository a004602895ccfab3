package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/competition-livestream/internal/scheduler"
)

// AdminStatsHandler serves the same operations snapshot the dashboard
// room receives, for the initial render before the socket is up.
type AdminStatsHandler struct {
	Dashboard *scheduler.Dashboard
}

// GetStats handles GET /v1/admin/stats.
func (h *AdminStatsHandler) GetStats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Dashboard.Snapshot(c.Request().Context()))
}
