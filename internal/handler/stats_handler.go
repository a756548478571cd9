package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/consultoria-api/internal/dto"
	"github.com/noah-isme/consultoria-api/internal/service"
	"github.com/noah-isme/consultoria-api/pkg/response"
)

type statsService interface {
	Stats(ctx context.Context) (*dto.StudentStats, error)
}

type reportService interface {
	Summary(ctx context.Context) (*dto.ReportSummary, error)
	Report(ctx context.Context, reportType service.ReportType) ([]dto.ReportItem, error)
}

// StatsHandler exposes the dashboard statistics and the operational reports.
type StatsHandler struct {
	stats   statsService
	reports reportService
}

// NewStatsHandler constructs a StatsHandler.
func NewStatsHandler(stats statsService, reports reportService) *StatsHandler {
	return &StatsHandler{stats: stats, reports: reports}
}

// Stats godoc
// @Summary Student statistics snapshot
// @Tags Stats
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /stats [get]
func (h *StatsHandler) Stats(c *gin.Context) {
	stats, err := h.stats.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Summary godoc
// @Summary Report counts
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reports [get]
func (h *StatsHandler) Summary(c *gin.Context) {
	summary, err := h.reports.Summary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Report godoc
// @Summary Student report
// @Tags Reports
// @Produce json
// @Param type path string true "expiring, expired, pending_payment or overdue_payment"
// @Success 200 {object} response.Envelope
// @Router /reports/{type} [get]
func (h *StatsHandler) Report(c *gin.Context) {
	reportType, err := service.ParseReportType(c.Param("type"))
	if err != nil {
		response.Error(c, err)
		return
	}
	items, err := h.reports.Report(c.Request.Context(), reportType)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil, map[string]interface{}{"count": len(items), "type": reportType})
}
