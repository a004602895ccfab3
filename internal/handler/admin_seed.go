package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/competition-livestream/internal/model"
	"github.com/iliyamo/competition-livestream/internal/realtime"
	"github.com/iliyamo/competition-livestream/internal/repository"
)

// AdminSeedHandler rebuilds the demo dataset: a handful of groups and
// apparatus, a day of passages staggered across two plateaus, and one
// stream per plateau. Everything happens in a single transaction and a
// schedule-update is pushed so every connected client re-fetches.
type AdminSeedHandler struct {
	Groups    *repository.GroupRepo
	Apparatus *repository.ApparatusRepo
	Passages  *repository.PassageRepo
	Streams   *repository.StreamRepo
	Bus       realtime.Bus
	Log       *zap.Logger
}

// Seed handles POST /v1/admin/seed.
func (h *AdminSeedHandler) Seed(c echo.Context) error {
	ctx := c.Request().Context()
	tx, err := h.Passages.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	defer func() { _ = tx.Rollback() }()

	counts, err := h.seedTx(ctx, tx)
	if err != nil {
		h.Log.Error("seed failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	h.Bus.Publish(realtime.RoomScheduleUpdates, realtime.EventScheduleUpdate, realtime.ScheduleUpdatePayload{})
	h.Log.Info("demo data seeded",
		zap.Int("groups", counts.groups),
		zap.Int("passages", counts.passages),
		zap.Int("streams", counts.streams))
	return c.JSON(http.StatusCreated, echo.Map{
		"groups":    counts.groups,
		"apparatus": counts.apparatus,
		"passages":  counts.passages,
		"streams":   counts.streams,
	})
}

type seedCounts struct {
	groups, apparatus, passages, streams int
}

func (h *AdminSeedHandler) seedTx(ctx context.Context, tx *sql.Tx) (seedCounts, error) {
	var counts seedCounts

	// Order matters: passages reference groups and apparatus, streams
	// reference passages.
	if err := h.Streams.DeleteAllTx(ctx, tx); err != nil {
		return counts, err
	}
	if err := h.Passages.DeleteAllTx(ctx, tx); err != nil {
		return counts, err
	}
	if err := h.Groups.DeleteAllTx(ctx, tx); err != nil {
		return counts, err
	}
	if err := h.Apparatus.DeleteAllTx(ctx, tx); err != nil {
		return counts, err
	}

	apparatus := []model.Apparatus{
		{ID: model.NewID(), Code: "sol", Name: "Sol"},
		{ID: model.NewID(), Code: "saut", Name: "Saut"},
		{ID: model.NewID(), Code: "barres", Name: "Barres asymétriques"},
		{ID: model.NewID(), Code: "poutre", Name: "Poutre"},
	}
	for i := range apparatus {
		if err := h.Apparatus.CreateTx(ctx, tx, &apparatus[i]); err != nil {
			return counts, err
		}
	}
	counts.apparatus = len(apparatus)

	groups := []model.Group{
		{ID: model.NewID(), Name: "Étoile Gym A", Category: "Fédéral A 10-11"},
		{ID: model.NewID(), Name: "Étoile Gym B", Category: "Fédéral A 10-11"},
		{ID: model.NewID(), Name: "AS Volante", Category: "Fédéral B 12-13"},
		{ID: model.NewID(), Name: "Les Accros", Category: "Fédéral B 12-13"},
		{ID: model.NewID(), Name: "Dynamique 2000", Category: "Performance 14-15"},
		{ID: model.NewID(), Name: "Envol Club", Category: "Performance 14-15"},
	}
	for i := range groups {
		if err := h.Groups.CreateTx(ctx, tx, &groups[i]); err != nil {
			return counts, err
		}
	}
	counts.groups = len(groups)

	locations := []string{"Plateau A", "Plateau B"}
	base := time.Now().UTC().Truncate(time.Minute).Add(5 * time.Minute)
	slot := 12 * time.Minute
	for gi := range groups {
		loc := locations[gi%len(locations)]
		start := base.Add(time.Duration(gi/len(locations)) * 2 * slot)
		for ai := range apparatus {
			p := model.Passage{
				ID:          model.NewID(),
				GroupID:     groups[gi].ID,
				ApparatusID: apparatus[ai].ID,
				StartTime:   start.Add(time.Duration(ai) * 4 * slot),
				EndTime:     start.Add(time.Duration(ai)*4*slot + slot),
				Location:    loc,
				Status:      model.StatusScheduled,
				IsPublished: true,
			}
			if err := h.Passages.CreateTx(ctx, tx, &p); err != nil {
				return counts, err
			}
			counts.passages++
		}
	}

	for _, loc := range locations {
		st := model.Stream{
			ID:       model.NewID(),
			Name:     "Direct " + loc,
			URL:      "https://stream.local/" + model.NewID(),
			Location: loc,
			IsLive:   true,
		}
		if err := h.Streams.CreateTx(ctx, tx, &st); err != nil {
			return counts, err
		}
		counts.streams++
	}
	return counts, nil
}
