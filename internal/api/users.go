package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ajaykumarbhatane/dental-management/internal/middleware"
	"github.com/ajaykumarbhatane/dental-management/internal/models"
	"github.com/ajaykumarbhatane/dental-management/internal/service"
)

// UserHandler exposes user management and patient profiles. All
// authorization lives in the service; the handler's job is binding,
// UUID parsing and error mapping.
type UserHandler struct {
	svc    *service.UserService
	logger *zap.Logger
}

func NewUserHandler(svc *service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{svc: svc, logger: logger}
}

type createUserRequest struct {
	Email            string      `json:"email" binding:"required,email"`
	Password         string      `json:"password" binding:"required,min=8"`
	FirstName        string      `json:"first_name" binding:"required"`
	LastName         string      `json:"last_name" binding:"required"`
	Role             models.Role `json:"role" binding:"required"`
	ContactNumber    string      `json:"contact_number"`
	SecondaryContact string      `json:"secondary_contact_number"`
	Address          string      `json:"address"`
	Degree           string      `json:"degree"`

	Gender         string     `json:"gender"`
	DateOfBirth    *time.Time `json:"date_of_birth"`
	MedicalHistory string     `json:"medical_history"`
	Allergies      string     `json:"allergies"`
}

// Create handles POST /v1/users. Creating a PATIENT also creates their
// profile, atomically.
func (h *UserHandler) Create(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p := middleware.GetPrincipal(c)
	user, err := h.svc.CreateUser(c.Request.Context(), p, service.CreateUserParams{
		Email:            req.Email,
		Password:         req.Password,
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Role:             req.Role,
		ContactNumber:    req.ContactNumber,
		SecondaryContact: req.SecondaryContact,
		Address:          req.Address,
		Degree:           req.Degree,
		Gender:           req.Gender,
		DateOfBirth:      req.DateOfBirth,
		MedicalHistory:   req.MedicalHistory,
		Allergies:        req.Allergies,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// List handles GET /v1/users?role=DOCTOR — the role filter drives the
// doctor/patient pickers in the dashboard.
func (h *UserHandler) List(c *gin.Context) {
	p := middleware.GetPrincipal(c)
	role := models.Role(c.Query("role"))

	users, err := h.svc.ListUsers(c.Request.Context(), p, role)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// ListDeleted handles GET /v1/users/deleted — the admin recycle bin.
func (h *UserHandler) ListDeleted(c *gin.Context) {
	p := middleware.GetPrincipal(c)
	users, err := h.svc.ListDeletedUsers(c.Request.Context(), p)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// Get handles GET /v1/users/:id.
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	p := middleware.GetPrincipal(c)
	user, err := h.svc.GetUser(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

type updateUserRequest struct {
	FirstName        string `json:"first_name" binding:"required"`
	LastName         string `json:"last_name" binding:"required"`
	ContactNumber    string `json:"contact_number"`
	SecondaryContact string `json:"secondary_contact_number"`
	Address          string `json:"address"`
	Degree           string `json:"degree"`
	IsActive         *bool  `json:"is_active"`
}

// Update handles PUT /v1/users/:id. There is no role field: role is
// fixed at creation.
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p := middleware.GetPrincipal(c)
	user, err := h.svc.UpdateUser(c.Request.Context(), p, id, service.UpdateUserParams{
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		ContactNumber:    req.ContactNumber,
		SecondaryContact: req.SecondaryContact,
		Address:          req.Address,
		Degree:           req.Degree,
		IsActive:         req.IsActive,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// Delete handles DELETE /v1/users/:id (soft delete).
func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	p := middleware.GetPrincipal(c)
	if err := h.svc.SoftDeleteUser(c.Request.Context(), p, id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}

// Restore handles POST /v1/users/:id/restore.
func (h *UserHandler) Restore(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	p := middleware.GetPrincipal(c)
	user, err := h.svc.RestoreUser(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// ListProfiles handles GET /v1/profiles (staff only).
func (h *UserHandler) ListProfiles(c *gin.Context) {
	p := middleware.GetPrincipal(c)
	profiles, err := h.svc.ListProfiles(c.Request.Context(), p)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profiles": profiles})
}

// GetProfile handles GET /v1/users/:id/profile.
func (h *UserHandler) GetProfile(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	p := middleware.GetPrincipal(c)
	profile, err := h.svc.GetProfile(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// GetMyProfile handles GET /v1/profiles/me — the patient's own profile.
func (h *UserHandler) GetMyProfile(c *gin.Context) {
	p := middleware.GetPrincipal(c)
	profile, err := h.svc.GetProfile(c.Request.Context(), p, p.ID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

type updateProfileRequest struct {
	Gender         string     `json:"gender"`
	DateOfBirth    *time.Time `json:"date_of_birth"`
	MedicalHistory string     `json:"medical_history"`
	Allergies      string     `json:"allergies"`
}

// UpdateProfile handles PUT /v1/users/:id/profile.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p := middleware.GetPrincipal(c)
	profile, err := h.svc.UpdateProfile(c.Request.Context(), p, id, service.UpdateProfileParams{
		Gender:         req.Gender,
		DateOfBirth:    req.DateOfBirth,
		MedicalHistory: req.MedicalHistory,
		Allergies:      req.Allergies,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
