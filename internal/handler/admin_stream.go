package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/competition-livestream/internal/model"
	"github.com/iliyamo/competition-livestream/internal/realtime"
	"github.com/iliyamo/competition-livestream/internal/repository"
)

// AdminStreamHandler lets the stream operator edit a venue stream:
// URL, on-air flag, and the bound passage. Explicit null on
// current_passage_id clears the binding; an absent field leaves it
// alone, so partial updates are safe.
type AdminStreamHandler struct {
	Streams  *repository.StreamRepo
	Passages *repository.PassageRepo
	Bus      realtime.Bus
	Log      *zap.Logger
}

type streamUpdateRequest struct {
	URL              *string         `json:"url"`
	IsLive           *bool           `json:"is_live"`
	CurrentPassageID json.RawMessage `json:"current_passage_id"`
}

// UpdateStream handles PATCH /v1/admin/streams/:id.
func (h *AdminStreamHandler) UpdateStream(c echo.Context) error {
	id := c.Param("id")
	if !model.IsID(id) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req streamUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	var passageID *string
	clearCurrent := false
	if len(req.CurrentPassageID) > 0 {
		if bytes.Equal(bytes.TrimSpace(req.CurrentPassageID), []byte("null")) {
			clearCurrent = true
		} else {
			var pid string
			if err := json.Unmarshal(req.CurrentPassageID, &pid); err != nil || !model.IsID(pid) {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid current_passage_id"})
			}
			passageID = &pid
		}
	}

	ctx := c.Request().Context()
	st, err := h.Streams.Update(ctx, id, req.URL, req.IsLive, passageID, clearCurrent)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrStreamNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "stream not found"})
		case errors.Is(err, repository.ErrPassageNotFound):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown passage"})
		default:
			h.Log.Error("stream update failed", zap.String("stream", id), zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
	}

	payload := realtime.StreamUpdatePayload{
		StreamID: st.ID,
		Name:     st.Name,
		URL:      st.URL,
		Location: st.Location,
		IsLive:   st.IsLive,
	}
	if st.CurrentPassageID != nil {
		if p, err := h.Passages.GetDetail(ctx, *st.CurrentPassageID); err == nil {
			payload.CurrentPassage = &realtime.CurrentPassageInfo{
				ID:        p.ID,
				Group:     &realtime.GroupInfo{ID: p.GroupID, Name: p.GroupName},
				Apparatus: &realtime.ApparatusInfo{ID: p.ApparatusID, Code: p.ApparatusCode, Name: p.ApparatusName},
				Status:    p.Status,
				Location:  p.Location,
			}
		}
	}
	h.Bus.Publish(realtime.RoomStreams, realtime.EventStreamUpdate, payload)
	h.Bus.Publish(realtime.StreamRoom(st.ID), realtime.EventStreamUpdate, payload)

	return c.JSON(http.StatusOK, payload)
}
