package service

import (
	"context"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
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

// TreatmentService covers the treatment lifecycle.
type TreatmentService struct {
	treatments repository.TreatmentRepository
	users      repository.UserRepository
	logger     *zap.Logger
	now        func() time.Time
}

func NewTreatmentService(treatments repository.TreatmentRepository, users repository.UserRepository, logger *zap.Logger) *TreatmentService {
	return &TreatmentService{
		treatments: treatments,
		users:      users,
		logger:     logger,
		now:        time.Now,
	}
}

// CreateTreatmentParams is the input for creating a treatment. The
// clinic is always the principal's; the patient and doctor IDs come
// from the request and are therefore verified against that clinic
// before anything is written.
type CreateTreatmentParams struct {
	PatientID     uuid.UUID
	DoctorID      *uuid.UUID
	TreatmentType models.TreatmentType
	Information   string
	Findings      string
	NextVisitDate *time.Time
	Status        models.TreatmentStatus
}

// resolvePatient fetches the referenced patient through the caller's
// clinic scope and independently re-checks the clinic match. The scoped
// lookup alone would reject a cross-clinic reference; the explicit
// ValidateSameClinic is the second, independent layer.
func (s *TreatmentService) resolvePatient(ctx context.Context, p authz.Principal, patientID uuid.UUID) (*models.User, error) {
	patient, err := s.users.GetByID(ctx,
		scope.ForClinic(p.ClinicID).WithRole(models.RolePatient), patientID)
	if err != nil {
		return nil, err
	}
	if patient == nil {
		return nil, apperr.ValidationField("patient_id", "patient not found in your clinic")
	}
	if err := scope.ValidateSameClinic("patient_id", patient.ClinicID, p.ClinicID); err != nil {
		return nil, err
	}
	return patient, nil
}

func (s *TreatmentService) resolveDoctor(ctx context.Context, p authz.Principal, doctorID uuid.UUID) (*models.User, error) {
	doctor, err := s.users.GetByID(ctx,
		scope.ForClinic(p.ClinicID).WithRole(models.RoleDoctor), doctorID)
	if err != nil {
		return nil, err
	}
	if doctor == nil {
		return nil, apperr.ValidationField("doctor_id", "doctor not found in your clinic")
	}
	if err := scope.ValidateSameClinic("doctor_id", doctor.ClinicID, p.ClinicID); err != nil {
		return nil, err
	}
	return doctor, nil
}

// CreateTreatment creates a treatment in the principal's clinic after
// verifying the patient (and doctor, if given) belong to it. Nothing is
// persisted when any reference fails validation.
func (s *TreatmentService) CreateTreatment(ctx context.Context, p authz.Principal, params CreateTreatmentParams) (*models.Treatment, error) {
	if err := authz.Authorize(p, authz.ActionCreate, authz.ResourceTreatment, nil); err != nil {
		return nil, err
	}
	if !params.TreatmentType.Valid() {
		return nil, apperr.ValidationField("treatment_type", "unknown treatment type")
	}
	status := params.Status
	if status == "" {
		status = models.StatusScheduled
	}
	if !status.Valid() {
		return nil, apperr.ValidationField("status", "unknown status")
	}
	if params.Information == "" {
		return nil, apperr.ValidationField("treatment_information", "treatment information is required")
	}

	if _, err := s.resolvePatient(ctx, p, params.PatientID); err != nil {
		return nil, err
	}
	if params.DoctorID != nil {
		if _, err := s.resolveDoctor(ctx, p, *params.DoctorID); err != nil {
			return nil, err
		}
	}

	createdBy := p.ID
	treatment := &models.Treatment{
		ClinicID:      p.ClinicID,
		PatientID:     params.PatientID,
		DoctorID:      params.DoctorID,
		TreatmentType: params.TreatmentType,
		Information:   params.Information,
		Findings:      params.Findings,
		NextVisitDate: params.NextVisitDate,
		Status:        status,
		CreatedBy:     &createdBy,
	}

	created, err := s.treatments.Create(ctx, treatment)
	if err != nil {
		return nil, err
	}
	s.logger.Info("treatment created",
		zap.String("treatment_id", created.ID.String()),
		zap.String("type", string(created.TreatmentType)),
	)
	return created, nil
}

// GetTreatment returns one treatment visible to the principal.
func (s *TreatmentService) GetTreatment(ctx context.Context, p authz.Principal, treatmentID uuid.UUID) (*models.Treatment, error) {
	treatment, err := s.treatments.GetByID(ctx, scope.ForClinic(p.ClinicID), treatmentID)
	if err != nil {
		return nil, err
	}
	if treatment == nil {
		return nil, apperr.NotFound("treatment")
	}
	if err := authz.Authorize(p, authz.ActionViewDetail, authz.ResourceTreatment,
		&authz.Target{ClinicID: treatment.ClinicID, OwnerID: treatment.PatientID}); err != nil {
		return nil, err
	}
	return treatment, nil
}

// ListTreatments lists the clinic's treatments with optional filters.
// A patient's listing is forced to their own treatments regardless of
// the requested filter.
func (s *TreatmentService) ListTreatments(ctx context.Context, p authz.Principal, f repository.TreatmentFilter) ([]models.Treatment, error) {
	if err := authz.Authorize(p, authz.ActionViewList, authz.ResourceTreatment, nil); err != nil {
		return nil, err
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.ValidationField("status", "unknown status filter")
	}
	if p.Role == models.RolePatient {
		f.PatientID = p.ID
	}
	if f.Now.IsZero() {
		f.Now = s.now()
	}
	return s.treatments.List(ctx, scope.ForClinic(p.ClinicID), f)
}

// ListDeletedTreatments is the clinic-scoped recycle bin, admin only.
func (s *TreatmentService) ListDeletedTreatments(ctx context.Context, p authz.Principal) ([]models.Treatment, error) {
	if err := authz.Authorize(p, authz.ActionDelete, authz.ResourceTreatment, nil); err != nil {
		return nil, err
	}
	return s.treatments.List(ctx, scope.ForClinic(p.ClinicID).Deleted(), repository.TreatmentFilter{Now: s.now()})
}

// UpdateTreatmentParams carries the mutable treatment fields. Patient is
// immutable after creation; the doctor may be reassigned within the
// clinic.
type UpdateTreatmentParams struct {
	DoctorID      *uuid.UUID
	TreatmentType models.TreatmentType
	Information   string
	Findings      string
	NextVisitDate *time.Time
	Status        models.TreatmentStatus
}

func (s *TreatmentService) UpdateTreatment(ctx context.Context, p authz.Principal, treatmentID uuid.UUID, params UpdateTreatmentParams) (*models.Treatment, error) {
	treatment, err := s.treatments.GetByID(ctx, scope.ForClinic(p.ClinicID), treatmentID)
	if err != nil {
		return nil, err
	}
	if treatment == nil {
		return nil, apperr.NotFound("treatment")
	}
	if err := authz.Authorize(p, authz.ActionUpdate, authz.ResourceTreatment,
		&authz.Target{ClinicID: treatment.ClinicID, OwnerID: treatment.PatientID}); err != nil {
		return nil, err
	}
	if err := scope.ValidateSameClinic("treatment_id", treatment.ClinicID, p.ClinicID); err != nil {
		return nil, err
	}
	if !params.TreatmentType.Valid() {
		return nil, apperr.ValidationField("treatment_type", "unknown treatment type")
	}
	if !params.Status.Valid() {
		return nil, apperr.ValidationField("status", "unknown status")
	}
	if params.DoctorID != nil {
		if _, err := s.resolveDoctor(ctx, p, *params.DoctorID); err != nil {
			return nil, err
		}
	}

	treatment.DoctorID = params.DoctorID
	treatment.TreatmentType = params.TreatmentType
	treatment.Information = params.Information
	treatment.Findings = params.Findings
	treatment.NextVisitDate = params.NextVisitDate
	treatment.Status = params.Status
	updatedBy := p.ID
	treatment.UpdatedBy = &updatedBy

	if err := s.treatments.Update(ctx, treatment); err != nil {
		return nil, err
	}
	return treatment, nil
}

// MarkCompleted is the convenience transition to COMPLETED. Doctors and
// admins only; soft-deleted treatments are not transitioned.
func (s *TreatmentService) MarkCompleted(ctx context.Context, p authz.Principal, treatmentID uuid.UUID) (*models.Treatment, error) {
	return s.setStatus(ctx, p, treatmentID, authz.ActionMarkCompleted, models.StatusCompleted)
}

// MarkCancelled is the convenience transition to CANCELLED.
func (s *TreatmentService) MarkCancelled(ctx context.Context, p authz.Principal, treatmentID uuid.UUID) (*models.Treatment, error) {
	return s.setStatus(ctx, p, treatmentID, authz.ActionMarkCancelled, models.StatusCancelled)
}

func (s *TreatmentService) setStatus(ctx context.Context, p authz.Principal, treatmentID uuid.UUID, action authz.Action, status models.TreatmentStatus) (*models.Treatment, error) {
	treatment, err := s.treatments.GetByID(ctx, scope.ForClinic(p.ClinicID), treatmentID)
	if err != nil {
		return nil, err
	}
	if treatment == nil {
		return nil, apperr.NotFound("treatment")
	}
	if err := authz.Authorize(p, action, authz.ResourceTreatment,
		&authz.Target{ClinicID: treatment.ClinicID, OwnerID: treatment.PatientID}); err != nil {
		return nil, err
	}

	updated, err := s.treatments.SetStatus(ctx, p.ClinicID, treatmentID, status, p.ID)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, apperr.NotFound("treatment")
	}
	return updated, nil
}

// AttachImage validates and stores a treatment image, then records its
// path on the row. The file lands under uploadDir with a generated name
// so uploads can never collide or traverse paths.
func (s *TreatmentService) AttachImage(ctx context.Context, p authz.Principal, treatmentID uuid.UUID, header *multipart.FileHeader, uploadDir string) (*models.Treatment, error) {
	treatment, err := s.treatments.GetByID(ctx, scope.ForClinic(p.ClinicID), treatmentID)
	if err != nil {
		return nil, err
	}
	if treatment == nil {
		return nil, apperr.NotFound("treatment")
	}
	if err := authz.Authorize(p, authz.ActionUpdate, authz.ResourceTreatment,
		&authz.Target{ClinicID: treatment.ClinicID, OwnerID: treatment.PatientID}); err != nil {
		return nil, err
	}
	if err := validate.TreatmentImage(header); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	ext := filepath.Ext(header.Filename)
	name := fmt.Sprintf("%s%s", uuid.NewString(), ext)
	dst := filepath.Join(uploadDir, name)

	if err := saveUploadedFile(header, dst); err != nil {
		return nil, fmt.Errorf("save treatment image: %w", err)
	}

	if err := s.treatments.SetImagePath(ctx, p.ClinicID, treatmentID, dst, p.ID); err != nil {
		return nil, err
	}
	treatment.ImagePath = dst
	return treatment, nil
}

// SoftDeleteTreatment marks a treatment deleted (admin only).
func (s *TreatmentService) SoftDeleteTreatment(ctx context.Context, p authz.Principal, treatmentID uuid.UUID) error {
	treatment, err := s.treatments.GetByID(ctx, scope.ForClinic(p.ClinicID), treatmentID)
	if err != nil {
		return err
	}
	if treatment == nil {
		return apperr.NotFound("treatment")
	}
	if err := authz.Authorize(p, authz.ActionDelete, authz.ResourceTreatment,
		&authz.Target{ClinicID: treatment.ClinicID, OwnerID: treatment.PatientID}); err != nil {
		return err
	}
	return s.treatments.SoftDelete(ctx, p.ClinicID, treatmentID, p.ID)
}

// RestoreTreatment brings a soft-deleted treatment back (admin only).
func (s *TreatmentService) RestoreTreatment(ctx context.Context, p authz.Principal, treatmentID uuid.UUID) (*models.Treatment, error) {
	treatment, err := s.treatments.GetByID(ctx, scope.ForClinic(p.ClinicID).Deleted(), treatmentID)
	if err != nil {
		return nil, err
	}
	if treatment == nil {
		return nil, apperr.NotFound("treatment")
	}
	if err := authz.Authorize(p, authz.ActionRestore, authz.ResourceTreatment,
		&authz.Target{ClinicID: treatment.ClinicID, OwnerID: treatment.PatientID}); err != nil {
		return nil, err
	}
	if err := s.treatments.Restore(ctx, p.ClinicID, treatmentID, p.ID); err != nil {
		return nil, err
	}
	return s.treatments.GetByID(ctx, scope.ForClinic(p.ClinicID), treatmentID)
}
