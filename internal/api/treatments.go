package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ajaykumarbhatane/dental-management/internal/middleware"
	"github.com/ajaykumarbhatane/dental-management/internal/models"
	"github.com/ajaykumarbhatane/dental-management/internal/repository"
	"github.com/ajaykumarbhatane/dental-management/internal/service"
)

// TreatmentHandler exposes the treatment endpoints.
type TreatmentHandler struct {
	svc       *service.TreatmentService
	uploadDir string
	logger    *zap.Logger
}

func NewTreatmentHandler(svc *service.TreatmentService, uploadDir string, logger *zap.Logger) *TreatmentHandler {
	return &TreatmentHandler{svc: svc, uploadDir: uploadDir, logger: logger}
}

type createTreatmentRequest struct {
	PatientID     uuid.UUID              `json:"patient_id" binding:"required"`
	DoctorID      *uuid.UUID             `json:"doctor_id"`
	TreatmentType models.TreatmentType   `json:"treatment_type" binding:"required"`
	Information   string                 `json:"treatment_information" binding:"required"`
	Findings      string                 `json:"treatment_findings"`
	NextVisitDate *time.Time             `json:"next_visit_date"`
	Status        models.TreatmentStatus `json:"status"`
}

// Create handles POST /v1/treatments.
func (h *TreatmentHandler) Create(c *gin.Context) {
	var req createTreatmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p := middleware.GetPrincipal(c)
	treatment, err := h.svc.CreateTreatment(c.Request.Context(), p, service.CreateTreatmentParams{
		PatientID:     req.PatientID,
		DoctorID:      req.DoctorID,
		TreatmentType: req.TreatmentType,
		Information:   req.Information,
		Findings:      req.Findings,
		NextVisitDate: req.NextVisitDate,
		Status:        req.Status,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, treatment)
}

// List handles GET /v1/treatments with optional ?status= and
// ?patient_id= filters. Patients always see only their own treatments,
// whatever filters they send.
func (h *TreatmentHandler) List(c *gin.Context) {
	p := middleware.GetPrincipal(c)

	f := repository.TreatmentFilter{
		Status: models.TreatmentStatus(c.Query("status")),
	}
	if raw := c.Query("patient_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid patient_id"})
			return
		}
		f.PatientID = id
	}

	treatments, err := h.svc.ListTreatments(c.Request.Context(), p, f)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"treatments": treatments})
}

// Upcoming handles GET /v1/treatments/upcoming.
func (h *TreatmentHandler) Upcoming(c *gin.Context) {
	p := middleware.GetPrincipal(c)
	treatments, err := h.svc.ListTreatments(c.Request.Context(), p,
		repository.TreatmentFilter{Upcoming: true})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"treatments": treatments})
}

// Overdue handles GET /v1/treatments/overdue.
func (h *TreatmentHandler) Overdue(c *gin.Context) {
	p := middleware.GetPrincipal(c)
	treatments, err := h.svc.ListTreatments(c.Request.Context(), p,
		repository.TreatmentFilter{Overdue: true})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"treatments": treatments})
}

// ListDeleted handles GET /v1/treatments/deleted — the admin recycle
// bin.
func (h *TreatmentHandler) ListDeleted(c *gin.Context) {
	p := middleware.GetPrincipal(c)
	treatments, err := h.svc.ListDeletedTreatments(c.Request.Context(), p)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"treatments": treatments})
}

// Get handles GET /v1/treatments/:id.
func (h *TreatmentHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	p := middleware.GetPrincipal(c)
	treatment, err := h.svc.GetTreatment(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, treatment)
}

type updateTreatmentRequest struct {
	DoctorID      *uuid.UUID             `json:"doctor_id"`
	TreatmentType models.TreatmentType   `json:"treatment_type" binding:"required"`
	Information   string                 `json:"treatment_information" binding:"required"`
	Findings      string                 `json:"treatment_findings"`
	NextVisitDate *time.Time             `json:"next_visit_date"`
	Status        models.TreatmentStatus `json:"status" binding:"required"`
}

// Update handles PUT /v1/treatments/:id.
func (h *TreatmentHandler) Update(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req updateTreatmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p := middleware.GetPrincipal(c)
	treatment, err := h.svc.UpdateTreatment(c.Request.Context(), p, id, service.UpdateTreatmentParams{
		DoctorID:      req.DoctorID,
		TreatmentType: req.TreatmentType,
		Information:   req.Information,
		Findings:      req.Findings,
		NextVisitDate: req.NextVisitDate,
		Status:        req.Status,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, treatment)
}

// Complete handles POST /v1/treatments/:id/complete.
func (h *TreatmentHandler) Complete(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	p := middleware.GetPrincipal(c)
	treatment, err := h.svc.MarkCompleted(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, treatment)
}

// Cancel handles POST /v1/treatments/:id/cancel.
func (h *TreatmentHandler) Cancel(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	p := middleware.GetPrincipal(c)
	treatment, err := h.svc.MarkCancelled(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, treatment)
}

// UploadImage handles POST /v1/treatments/:id/image (multipart form,
// field "image").
func (h *TreatmentHandler) UploadImage(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	header, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}

	p := middleware.GetPrincipal(c)
	treatment, err := h.svc.AttachImage(c.Request.Context(), p, id, header, h.uploadDir)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, treatment)
}

// Delete handles DELETE /v1/treatments/:id (soft delete).
func (h *TreatmentHandler) Delete(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	p := middleware.GetPrincipal(c)
	if err := h.svc.SoftDeleteTreatment(c.Request.Context(), p, id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "treatment deleted"})
}

// Restore handles POST /v1/treatments/:id/restore.
func (h *TreatmentHandler) Restore(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	p := middleware.GetPrincipal(c)
	treatment, err := h.svc.RestoreTreatment(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, treatment)
}
