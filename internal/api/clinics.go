package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ajaykumarbhatane/dental-management/internal/middleware"
	"github.com/ajaykumarbhatane/dental-management/internal/service"
)

// ClinicHandler exposes the principal's own clinic. There is no
// :id route — the clinic always comes from the token, never from the
// URL.
type ClinicHandler struct {
	svc    *service.ClinicService
	logger *zap.Logger
}

func NewClinicHandler(svc *service.ClinicService, logger *zap.Logger) *ClinicHandler {
	return &ClinicHandler{svc: svc, logger: logger}
}

// Get handles GET /v1/clinic.
func (h *ClinicHandler) Get(c *gin.Context) {
	p := middleware.GetPrincipal(c)
	clinic, err := h.svc.GetClinic(c.Request.Context(), p)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, clinic)
}

type updateClinicRequest struct {
	Name          string `json:"name" binding:"required"`
	ContactNumber string `json:"contact_number"`
	Address       string `json:"address"`
	Description   string `json:"description"`
	IsActive      *bool  `json:"is_active"`
}

// Update handles PUT /v1/clinic (admin only).
func (h *ClinicHandler) Update(c *gin.Context) {
	var req updateClinicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p := middleware.GetPrincipal(c)
	clinic, err := h.svc.UpdateClinic(c.Request.Context(), p, service.UpdateClinicParams{
		Name:          req.Name,
		ContactNumber: req.ContactNumber,
		Address:       req.Address,
		Description:   req.Description,
		IsActive:      req.IsActive,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, clinic)
}

// Stats handles GET /v1/clinic/stats (admin and doctors).
func (h *ClinicHandler) Stats(c *gin.Context) {
	p := middleware.GetPrincipal(c)
	stats, err := h.svc.Stats(c.Request.Context(), p)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
