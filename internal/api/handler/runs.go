package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ZAX3000/mailtrace/internal/service"
)

// RunsHandler serves the persisted run history and reports.
type RunsHandler struct {
	svc *service.MatchService
	geo *service.GeocodeService
}

// NewRunsHandler creates a new runs handler. geo may be nil when geocoding is
// disabled.
func NewRunsHandler(svc *service.MatchService, geo *service.GeocodeService) *RunsHandler {
	return &RunsHandler{svc: svc, geo: geo}
}

// List returns the most recent runs, newest first.
func (h *RunsHandler) List(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	runs, err := h.svc.ListRuns(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "failed to list runs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "runs": runs})
}

// Result rebuilds the stored report for one run.
func (h *RunsHandler) Result(c *gin.Context) {
	runID := c.Param("id")

	report, err := h.svc.RunResult(c.Request.Context(), runID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "run not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "failed to load run"})
		return
	}

	c.JSON(http.StatusOK, report)
}

// Aggregate returns the cross-run report over deduplicated matches.
func (h *RunsHandler) Aggregate(c *gin.Context) {
	report, err := h.svc.Aggregate(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "failed to build aggregate report"})
		return
	}

	c.JSON(http.StatusOK, report)
}

// GeoPoints returns the geocoded points of a run for the map view.
func (h *RunsHandler) GeoPoints(c *gin.Context) {
	if h.geo == nil {
		c.JSON(http.StatusOK, gin.H{"ok": true, "points": []any{}})
		return
	}

	points, err := h.geo.RunPoints(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "failed to load geo points"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "points": points})
}
