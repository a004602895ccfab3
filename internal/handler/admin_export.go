package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/iliyamo/competition-livestream/internal/repository"
)

// AdminExportHandler produces the results workbook the organizers hand
// to the federation after the meet.
type AdminExportHandler struct {
	Passages *repository.PassageRepo
	Log      *zap.Logger
}

// ExportResults handles GET /v1/admin/results/export and streams an
// xlsx with one row per published score, ranked.
func (h *AdminExportHandler) ExportResults(c echo.Context) error {
	ctx := c.Request().Context()
	results, err := h.Passages.ListResults(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	const sheet = "Résultats"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Rang", "Groupe", "Agrès", "Score", "Passage", "Plateau"}
	for i, name := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, name)
	}

	rank := 0
	var prev *float64
	for i, p := range results {
		if p.Score == nil {
			continue
		}
		if prev == nil || *p.Score != *prev {
			rank = i + 1
		}
		prev = p.Score
		row := i + 2
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), rank)
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), p.GroupName)
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), p.ApparatusName)
		_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", row), *p.Score)
		_ = f.SetCellValue(sheet, fmt.Sprintf("E%d", row), p.StartTime.Format("15:04"))
		_ = f.SetCellValue(sheet, fmt.Sprintf("F%d", row), p.Location)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		h.Log.Error("results export failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "export error"})
	}

	filename := fmt.Sprintf("resultats-%s.xlsx", time.Now().UTC().Format("2006-01-02"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename=%q`, filename))
	return c.Blob(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}
