package handler

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/competition-livestream/internal/realtime"
)

// SocketHandler upgrades GET /ws connections onto the hub.
type SocketHandler struct {
	Hub *realtime.Hub
	Log *zap.Logger
}

// Serve hands the connection to the realtime layer.
func (h *SocketHandler) Serve(c echo.Context) error {
	return realtime.ServeWS(h.Hub, h.Log, c.Response(), c.Request())
}
