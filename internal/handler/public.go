package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/competition-livestream/internal/model"
	"github.com/iliyamo/competition-livestream/internal/repository"
)

// PublicHandler serves the unauthenticated read API. Responses are
// flat views of the joined passage rows; internal columns (reminder
// markers, timestamps) are not exposed.
type PublicHandler struct {
	Passages *repository.PassageRepo
	Streams  *repository.StreamRepo
}

type passageView struct {
	ID            string    `json:"id"`
	GroupName     string    `json:"group_name"`
	ApparatusCode string    `json:"apparatus_code"`
	ApparatusName string    `json:"apparatus_name"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Location      string    `json:"location"`
	Status        string    `json:"status"`
	Score         *float64  `json:"score,omitempty"`
	IsPublished   bool      `json:"is_published"`
}

func toPassageView(p repository.PassageDetail) passageView {
	return passageView{
		ID:            p.ID,
		GroupName:     p.GroupName,
		ApparatusCode: p.ApparatusCode,
		ApparatusName: p.ApparatusName,
		StartTime:     p.StartTime,
		EndTime:       p.EndTime,
		Location:      p.Location,
		Status:        p.Status,
		Score:         p.Score,
		IsPublished:   p.IsPublished,
	}
}

func toPassageViews(ps []repository.PassageDetail) []passageView {
	out := make([]passageView, 0, len(ps))
	for _, p := range ps {
		out = append(out, toPassageView(p))
	}
	return out
}

type resultView struct {
	passageView
	Rank int `json:"rank"`
}

type streamView struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	URL            string       `json:"url"`
	Location       string       `json:"location"`
	IsLive         bool         `json:"is_live"`
	CurrentPassage *passageView `json:"current_passage,omitempty"`
}

// GetSchedule lists the passages of one day ordered by start time. The
// optional ?day=YYYY-MM-DD parameter defaults to today (UTC).
func (h *PublicHandler) GetSchedule(c echo.Context) error {
	ctx := c.Request().Context()
	day := time.Now().UTC()
	if raw := c.QueryParam("day"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid day"})
		}
		day = parsed
	}
	passages, err := h.Passages.ListSchedule(ctx, day)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": toPassageViews(passages)})
}

// GetLive lists the passages currently LIVE across all locations.
func (h *PublicHandler) GetLive(c echo.Context) error {
	passages, err := h.Passages.ListLive(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": toPassageViews(passages)})
}

// GetResults lists published finished passages ranked by score
// descending. Rank is positional within the returned ordering, ties
// sharing the earlier position.
func (h *PublicHandler) GetResults(c echo.Context) error {
	passages, err := h.Passages.ListResults(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]resultView, 0, len(passages))
	rank := 0
	var prev *float64
	for i, p := range passages {
		if p.Score == nil {
			continue
		}
		if prev == nil || *p.Score != *prev {
			rank = i + 1
		}
		prev = p.Score
		out = append(out, resultView{passageView: toPassageView(p), Rank: rank})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// GetStreams lists all streams with their bound passages resolved.
func (h *PublicHandler) GetStreams(c echo.Context) error {
	ctx := c.Request().Context()
	streams, err := h.Streams.ListAll(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]streamView, 0, len(streams))
	for _, st := range streams {
		out = append(out, h.toStreamView(c, st))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// GetStreamByID returns a single stream.
func (h *PublicHandler) GetStreamByID(c echo.Context) error {
	id := c.Param("id")
	if !model.IsID(id) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	st, err := h.Streams.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrStreamNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "stream not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, h.toStreamView(c, *st))
}

func (h *PublicHandler) toStreamView(c echo.Context, st model.Stream) streamView {
	view := streamView{
		ID:       st.ID,
		Name:     st.Name,
		URL:      st.URL,
		Location: st.Location,
		IsLive:   st.IsLive,
	}
	if st.CurrentPassageID != nil {
		if p, err := h.Passages.GetDetail(c.Request().Context(), *st.CurrentPassageID); err == nil {
			pv := toPassageView(*p)
			view.CurrentPassage = &pv
		}
	}
	return view
}
