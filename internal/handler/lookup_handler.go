package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/consultoria-api/internal/dto"
	"github.com/noah-isme/consultoria-api/internal/middleware"
	"github.com/noah-isme/consultoria-api/internal/models"
	appErrors "github.com/noah-isme/consultoria-api/pkg/errors"
	"github.com/noah-isme/consultoria-api/pkg/response"
)

type lookupService interface {
	ListActive(ctx context.Context) ([]models.Lookup, bool, error)
	Create(ctx context.Context, req dto.LookupRequest) (*models.Lookup, error)
	Update(ctx context.Context, id string, req dto.LookupRequest) (*models.Lookup, error)
	Deactivate(ctx context.Context, id string) error
}

// LookupHandler serves one reference table; the router mounts one instance per table.
type LookupHandler struct {
	service lookupService
}

// NewLookupHandler constructs a LookupHandler.
func NewLookupHandler(service lookupService) *LookupHandler {
	return &LookupHandler{service: service}
}

// List godoc
// @Summary List active plan types or training phases
// @Tags Lookups
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /plan-types [get]
// @Router /training-phases [get]
func (h *LookupHandler) List(c *gin.Context) {
	start := time.Now()
	items, cacheHit, err := h.service.ListActive(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	middleware.SetProcessingTime(c, start)
	response.JSON(c, http.StatusOK, items, nil, middleware.ExtractMeta(c))
}

// Create godoc
// @Summary Create plan type or training phase
// @Tags Lookups
// @Accept json
// @Produce json
// @Param payload body dto.LookupRequest true "Lookup payload"
// @Success 201 {object} response.Envelope
// @Router /plan-types [post]
// @Router /training-phases [post]
func (h *LookupHandler) Create(c *gin.Context) {
	var req dto.LookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	item, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Update plan type or training phase
// @Tags Lookups
// @Accept json
// @Produce json
// @Param id path string true "ID"
// @Param payload body dto.LookupRequest true "Lookup payload"
// @Success 200 {object} response.Envelope
// @Router /plan-types/{id} [put]
// @Router /training-phases/{id} [put]
func (h *LookupHandler) Update(c *gin.Context) {
	var req dto.LookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	item, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Deactivate plan type or training phase
// @Tags Lookups
// @Param id path string true "ID"
// @Success 204
// @Router /plan-types/{id} [delete]
// @Router /training-phases/{id} [delete]
func (h *LookupHandler) Delete(c *gin.Context) {
	if err := h.service.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// PaymentMethods godoc
// @Summary Suggested payment methods
// @Tags Lookups
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /lookups/payment-methods [get]
func PaymentMethods(c *gin.Context) {
	response.JSON(c, http.StatusOK, models.PaymentMethods, nil)
}
