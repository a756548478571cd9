package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/consultoria-api/internal/dto"
	"github.com/noah-isme/consultoria-api/internal/models"
	"github.com/noah-isme/consultoria-api/internal/service"
	appErrors "github.com/noah-isme/consultoria-api/pkg/errors"
	"github.com/noah-isme/consultoria-api/pkg/response"
)

type exportService interface {
	Export(ctx context.Context, filter models.ExportFilter, format models.ExportFormat) (*dto.ExportFile, error)
}

type exportJobService interface {
	CreateJob(ctx context.Context, req dto.ExportJobRequest) (*dto.ExportJobResponse, error)
	GetStatus(ctx context.Context, id string) (*dto.ExportJobResponse, error)
	ResolveDownload(ctx context.Context, token string) (*service.ExportDownload, error)
}

// ExportHandler serves synchronous downloads and, when enabled, asynchronous export jobs.
type ExportHandler struct {
	exports exportService
	jobs    exportJobService
}

// NewExportHandler constructs an ExportHandler. jobs may be nil when export jobs are disabled.
func NewExportHandler(exports exportService, jobs exportJobService) *ExportHandler {
	return &ExportHandler{exports: exports, jobs: jobs}
}

// Export godoc
// @Summary Export students
// @Tags Exports
// @Produce text/csv
// @Param type query string false "all, active, expiring, paid, pending or overdue"
// @Param format query string false "csv (default), xlsx or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /students/export [get]
func (h *ExportHandler) Export(c *gin.Context) {
	filter, err := service.ParseExportFilter(c.Query("type"))
	if err != nil {
		response.Error(c, err)
		return
	}
	format, err := service.ParseExportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exports.Export(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Content)
}

// CreateJob godoc
// @Summary Queue an asynchronous student export
// @Tags Exports
// @Accept json
// @Produce json
// @Param payload body dto.ExportJobRequest true "Export parameters"
// @Success 202 {object} response.Envelope
// @Router /exports [post]
func (h *ExportHandler) CreateJob(c *gin.Context) {
	if h.jobs == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrFeatureDisabled, "export jobs disabled"))
		return
	}
	var req dto.ExportJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	job, err := h.jobs.CreateJob(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// JobStatus godoc
// @Summary Export job status
// @Tags Exports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /exports/{id} [get]
func (h *ExportHandler) JobStatus(c *gin.Context) {
	if h.jobs == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrFeatureDisabled, "export jobs disabled"))
		return
	}
	status, err := h.jobs.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Download godoc
// @Summary Download a finished export
// @Tags Exports
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Router /exports/download/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	if h.jobs == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrFeatureDisabled, "export jobs disabled"))
		return
	}
	download, err := h.jobs.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	info, err := download.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read export"))
		return
	}
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), download.ContentType, download.File, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", download.Filename),
	})
}
