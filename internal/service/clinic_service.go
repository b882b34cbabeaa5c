package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ajaykumarbhatane/dental-management/internal/apperr"
	"github.com/ajaykumarbhatane/dental-management/internal/authz"
	"github.com/ajaykumarbhatane/dental-management/internal/models"
	"github.com/ajaykumarbhatane/dental-management/internal/repository"
	"github.com/ajaykumarbhatane/dental-management/internal/scope"
	"github.com/ajaykumarbhatane/dental-management/internal/validate"
)

// StatsCache is the slice of the cache layer ClinicService needs.
type StatsCache interface {
	GetClinicStats(ctx context.Context, clinicID uuid.UUID) *models.ClinicStats
	SetClinicStats(ctx context.Context, clinicID uuid.UUID, stats *models.ClinicStats, ttl time.Duration)
}

// ClinicService covers the principal's own clinic: reading it, updating
// it, and the dashboard stats. There is no cross-clinic surface here —
// a principal can only ever address the clinic in their token.
type ClinicService struct {
	clinics repository.ClinicRepository
	cache   StatsCache
	logger  *zap.Logger
	now     func() time.Time
}

const statsTTL = 60 * time.Second

func NewClinicService(clinics repository.ClinicRepository, cache StatsCache, logger *zap.Logger) *ClinicService {
	return &ClinicService{clinics: clinics, cache: cache, logger: logger, now: time.Now}
}

// GetClinic returns the principal's clinic.
func (s *ClinicService) GetClinic(ctx context.Context, p authz.Principal) (*models.Clinic, error) {
	if err := authz.Authorize(p, authz.ActionViewDetail, authz.ResourceClinic,
		&authz.Target{ClinicID: p.ClinicID}); err != nil {
		return nil, err
	}
	clinic, err := s.clinics.GetByID(ctx, scope.ViewActive, p.ClinicID)
	if err != nil {
		return nil, err
	}
	if clinic == nil {
		return nil, apperr.NotFound("clinic")
	}
	return clinic, nil
}

// UpdateClinicParams carries the mutable clinic fields.
type UpdateClinicParams struct {
	Name          string
	ContactNumber string
	Address       string
	Description   string
	IsActive      *bool
}

// UpdateClinic updates the principal's clinic (admin only).
func (s *ClinicService) UpdateClinic(ctx context.Context, p authz.Principal, params UpdateClinicParams) (*models.Clinic, error) {
	if err := authz.Authorize(p, authz.ActionUpdate, authz.ResourceClinic,
		&authz.Target{ClinicID: p.ClinicID}); err != nil {
		return nil, err
	}
	clinic, err := s.clinics.GetByID(ctx, scope.ViewActive, p.ClinicID)
	if err != nil {
		return nil, err
	}
	if clinic == nil {
		return nil, apperr.NotFound("clinic")
	}
	if params.Name == "" {
		return nil, apperr.ValidationField("name", "clinic name is required")
	}
	if err := validate.PhoneNumber("contact_number", params.ContactNumber); err != nil {
		return nil, err
	}

	clinic.Name = params.Name
	clinic.ContactNumber = params.ContactNumber
	clinic.Address = params.Address
	clinic.Description = params.Description
	if params.IsActive != nil {
		clinic.IsActive = *params.IsActive
	}

	if err := s.clinics.Update(ctx, clinic); err != nil {
		return nil, err
	}
	return clinic, nil
}

// Stats returns the clinic dashboard counters, served from cache when
// fresh. Admins and doctors only.
func (s *ClinicService) Stats(ctx context.Context, p authz.Principal) (*models.ClinicStats, error) {
	if err := authz.Authorize(p, authz.ActionViewDetail, authz.ResourceClinic,
		&authz.Target{ClinicID: p.ClinicID}); err != nil {
		return nil, err
	}
	if p.Role == models.RolePatient {
		return nil, apperr.PermissionDenied("not permitted for patients")
	}

	if s.cache != nil {
		if cached := s.cache.GetClinicStats(ctx, p.ClinicID); cached != nil {
			return cached, nil
		}
	}

	stats, err := s.clinics.Stats(ctx, p.ClinicID, s.now())
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.SetClinicStats(ctx, p.ClinicID, stats, statsTTL)
	}
	return stats, nil
}
