package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ajaykumarbhatane/dental-management/internal/auth"
	"github.com/ajaykumarbhatane/dental-management/internal/middleware"
	"github.com/ajaykumarbhatane/dental-management/internal/models"
	"github.com/ajaykumarbhatane/dental-management/internal/repository"
	"github.com/ajaykumarbhatane/dental-management/internal/scope"
	"github.com/ajaykumarbhatane/dental-management/internal/service"
	"github.com/ajaykumarbhatane/dental-management/internal/validate"
)

// TokenRevoker is the slice of the cache layer logout needs.
type TokenRevoker interface {
	DenyToken(ctx context.Context, jti string, ttl time.Duration) error
}

// AuthHandler handles registration and login — the only public
// endpoints — plus the session endpoints (me, logout, change-password).
type AuthHandler struct {
	users     repository.UserRepository
	clinics   repository.ClinicRepository
	userSvc   *service.UserService
	revoker   TokenRevoker
	jwtSecret string
	tokenTTL  time.Duration
	logger    *zap.Logger
}

func NewAuthHandler(
	users repository.UserRepository,
	clinics repository.ClinicRepository,
	userSvc *service.UserService,
	revoker TokenRevoker,
	jwtSecret string,
	tokenTTL time.Duration,
	logger *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		users:     users,
		clinics:   clinics,
		userSvc:   userSvc,
		revoker:   revoker,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		logger:    logger,
	}
}

type registerRequest struct {
	Email         string `json:"email" binding:"required,email"`
	Password      string `json:"password" binding:"required,min=8"`
	FirstName     string `json:"first_name" binding:"required"`
	LastName      string `json:"last_name" binding:"required"`
	ContactNumber string `json:"contact_number"`

	ClinicName    string `json:"clinic_name" binding:"required"`
	ClinicContact string `json:"clinic_contact_number"`
	ClinicAddress string `json:"clinic_address"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register handles POST /v1/auth/register. It opens a new clinic with
// its first admin. Doctors and patients are created afterwards by that
// admin through the users endpoints, which keeps every later creation
// inside one clinic scope.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validate.PhoneNumber("contact_number", req.ContactNumber); err != nil {
		respondError(c, h.logger, err)
		return
	}

	existing, err := h.users.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		h.logger.Error("failed to check existing user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("failed to hash password", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}

	// One transaction for the clinic and its first admin: a raced email
	// conflict on the admin insert must not leave an orphan clinic
	// reserving the name.
	_, user, err := h.clinics.CreateWithAdmin(c.Request.Context(),
		req.ClinicName, req.ClinicContact, req.ClinicAddress, "",
		&models.User{
			Email:         req.Email,
			FirstName:     req.FirstName,
			LastName:      req.LastName,
			ContactNumber: req.ContactNumber,
			PasswordHash:  string(hash),
		})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	token, err := auth.GenerateToken(user, h.jwtSecret, h.tokenTTL)
	if err != nil {
		h.logger.Error("failed to generate token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}

	c.JSON(http.StatusCreated, authResponse{Token: token, User: user})
}

// Login handles POST /v1/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		h.logger.Error("failed to find user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	// One generic message for unknown email and wrong password, so an
	// attacker can't enumerate registered emails.
	if user == nil || !user.IsActive {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	token, err := auth.GenerateToken(user, h.jwtSecret, h.tokenTTL)
	if err != nil {
		h.logger.Error("failed to generate token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	c.JSON(http.StatusOK, authResponse{Token: token, User: user})
}

// Logout handles POST /v1/auth/logout: the token's jti goes on the
// denylist for its remaining lifetime.
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if err := h.revoker.DenyToken(c.Request.Context(), claims.ID, ttl); err != nil {
		h.logger.Error("failed to revoke token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "logout failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Me handles GET /v1/auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	p := middleware.GetPrincipal(c)
	user, err := h.users.GetByID(c.Request.Context(), scope.ForClinic(p.ClinicID), p.ID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, user)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

// ChangePassword handles POST /v1/auth/change-password.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p := middleware.GetPrincipal(c)
	if err := h.userSvc.ChangePassword(c.Request.Context(), p, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password changed"})
}
