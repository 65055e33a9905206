package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/driftscope/domain"
)

// CreateAnalysis accepts a JSONL trace stream as the request body, runs
// one metrics pass and persists the result. The full report is returned.
// An upload with no valid events is rejected before anything is stored.
func (h *Handler) CreateAnalysis(c echo.Context) error {
	ctx := c.Request().Context()

	source := c.QueryParam("source")
	if source == "" {
		source = "upload"
	}

	report, err := h.svc.AnalyzeReader(ctx, c.Request().Body, source, false)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to analyze traces"})
	}
	if report.SessionCount == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "no valid events in input"})
	}
	if err := h.svc.PersistReport(ctx, report); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to persist analysis"})
	}
	return c.JSON(http.StatusOK, report)
}

// ListAnalyses lists stored analysis runs, newest first.
func (h *Handler) ListAnalyses(c echo.Context) error {
	ctx := c.Request().Context()

	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	runs, err := h.store.ListAnalysisRuns(ctx, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list runs"})
	}
	if runs == nil {
		// Keep the response shape an array even when the store is empty.
		runs = []domain.AnalysisRun{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"runs": runs})
}

// GetAnalysis returns one run's summary row.
func (h *Handler) GetAnalysis(c echo.Context) error {
	ctx := c.Request().Context()
	runID := c.Param("run_id")

	run, err := h.store.GetAnalysisRun(ctx, runID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get run"})
	}
	if run == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "run not found"})
	}
	return c.JSON(http.StatusOK, run)
}

// GetAnalysisReport returns the stored full report for a run.
func (h *Handler) GetAnalysisReport(c echo.Context) error {
	ctx := c.Request().Context()
	runID := c.Param("run_id")

	report, err := h.store.GetReport(ctx, runID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get report"})
	}
	if report == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "report not found"})
	}
	return c.JSON(http.StatusOK, report)
}

// GetAnalysisSessions returns the per-session metrics for a run,
// including closure categories.
func (h *Handler) GetAnalysisSessions(c echo.Context) error {
	ctx := c.Request().Context()
	runID := c.Param("run_id")

	run, err := h.store.GetAnalysisRun(ctx, runID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get run"})
	}
	if run == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "run not found"})
	}

	sessions, err := h.store.GetSessionMetrics(ctx, runID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get session metrics"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"sessions": sessions})
}
