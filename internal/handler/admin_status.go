package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/competition-livestream/internal/model"
	"github.com/iliyamo/competition-livestream/internal/repository"
	"github.com/iliyamo/competition-livestream/internal/scheduler"
)

// AdminStatusHandler exposes manual status overrides. It delegates to
// the same engine the clock runs, so an override resolves conflicts,
// rebinds streams and chains promotions exactly like an automatic
// transition.
type AdminStatusHandler struct {
	Engine *scheduler.Engine
	Log    *zap.Logger
}

type statusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus handles PUT /v1/admin/passages/:id/status. A stale
// write (the clock moved the passage between the admin's read and this
// request) is a 409; the client re-fetches and retries.
func (h *AdminStatusHandler) UpdateStatus(c echo.Context) error {
	id := c.Param("id")
	if !model.IsID(id) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if !model.ValidStatus(req.Status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}

	ctx := c.Request().Context()
	now := time.Now().UTC()
	p, err := h.Engine.ApplyManualStatus(ctx, id, req.Status, now)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrPassageNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "passage not found"})
		case errors.Is(err, repository.ErrStale):
			return c.JSON(http.StatusConflict, echo.Map{"error": "status changed concurrently"})
		default:
			h.Log.Error("manual status override failed",
				zap.String("passage", id), zap.String("status", req.Status), zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
	}
	return c.JSON(http.StatusOK, toPassageView(*p))
}
