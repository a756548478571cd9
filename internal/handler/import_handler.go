package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/consultoria-api/internal/dto"
	"github.com/noah-isme/consultoria-api/internal/models"
	appErrors "github.com/noah-isme/consultoria-api/pkg/errors"
	"github.com/noah-isme/consultoria-api/pkg/response"
)

const multipartOverhead = 1 << 20

type importService interface {
	ImportFile(ctx context.Context, filename, contentType string, r io.Reader) (*dto.ImportResult, error)
	Template(format models.ExportFormat) (*dto.ExportFile, error)
}

// ImportHandler accepts bulk student uploads.
type ImportHandler struct {
	imports      importService
	maxFileBytes int64
}

// NewImportHandler constructs an ImportHandler. maxFileBytes <= 0 disables the size check.
func NewImportHandler(imports importService, maxFileBytes int64) *ImportHandler {
	return &ImportHandler{imports: imports, maxFileBytes: maxFileBytes}
}

// Import godoc
// @Summary Import students from CSV or XLSX
// @Tags Students
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV or XLSX file"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Failure 415 {object} response.Envelope
// @Router /students/import [post]
func (h *ImportHandler) Import(c *gin.Context) {
	if h.maxFileBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxFileBytes+multipartOverhead)
	}
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge), strings.Contains(err.Error(), "request body too large"):
			response.Error(c, h.tooLarge())
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			response.Error(c, appErrors.Clone(appErrors.ErrMissingInput, "Nenhum arquivo enviado"))
		default:
			response.Error(c, appErrors.Wrap(err, appErrors.ErrMissingInput.Code, appErrors.ErrMissingInput.Status, "Nenhum arquivo enviado"))
		}
		return
	}
	if h.maxFileBytes > 0 && header.Size > h.maxFileBytes {
		response.Error(c, h.tooLarge())
		return
	}

	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to open upload"))
		return
	}
	defer file.Close()

	result, err := h.imports.ImportFile(c.Request.Context(), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

func (h *ImportHandler) tooLarge() error {
	return appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("arquivo excede o limite de %d bytes", h.maxFileBytes))
}

// Template godoc
// @Summary Download the import template
// @Tags Students
// @Produce text/csv
// @Param format query string false "csv (default) or xlsx"
// @Success 200 {file} file
// @Router /students/import/template [get]
func (h *ImportHandler) Template(c *gin.Context) {
	format := models.ExportFormat(strings.ToLower(strings.TrimSpace(c.Query("format"))))
	file, err := h.imports.Template(format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Content)
}
