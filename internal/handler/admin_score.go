package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/competition-livestream/internal/model"
	"github.com/iliyamo/competition-livestream/internal/realtime"
	"github.com/iliyamo/competition-livestream/internal/repository"
)

// AdminScoreHandler records judge scores. Writing a score finishes and
// publishes the passage in one statement, then the new rank is pushed
// to the live-scores room.
type AdminScoreHandler struct {
	Passages *repository.PassageRepo
	Bus      realtime.Bus
	Log      *zap.Logger
}

type scoreRequest struct {
	Score *float64 `json:"score"`
}

// UpdateScore handles PUT /v1/admin/passages/:id/score.
func (h *AdminScoreHandler) UpdateScore(c echo.Context) error {
	id := c.Param("id")
	if !model.IsID(id) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req scoreRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Score == nil || *req.Score < 0 || *req.Score > 20 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "score must be between 0 and 20"})
	}

	ctx := c.Request().Context()
	if err := h.Passages.SetScore(ctx, id, *req.Score); err != nil {
		if errors.Is(err, repository.ErrPassageNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "passage not found"})
		}
		h.Log.Error("score write failed", zap.String("passage", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	p, err := h.Passages.GetDetail(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	rank, err := h.Passages.RankOf(ctx, id)
	if err != nil {
		h.Log.Warn("rank lookup failed", zap.String("passage", id), zap.Error(err))
		rank = 0
	}

	h.Bus.Publish(realtime.RoomLiveScores, realtime.EventScoreUpdate, realtime.ScoreUpdatePayload{
		PassageID: p.ID,
		Score:     *req.Score,
		Status:    p.Status,
		Rank:      rank,
		GroupName: p.GroupName,
	})

	view := toPassageView(*p)
	return c.JSON(http.StatusOK, echo.Map{"passage": view, "rank": rank})
}
