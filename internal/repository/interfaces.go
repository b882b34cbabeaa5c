package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ajaykumarbhatane/dental-management/internal/models"
	"github.com/ajaykumarbhatane/dental-management/internal/scope"
)

// Every read method takes a scope.Scope. The scope is how the caller
// states which clinic and which soft-delete view it wants; a repository
// never queries clinic-owned rows without one. The handler builds the
// scope from the JWT's clinic, so the repository never trusts raw IDs
// from the request body.
//
// Lookup methods return nil, nil when the row is not in the given scope
// — whether it is truly absent, soft-deleted, or owned by another
// clinic. Callers cannot tell these apart, on purpose.

// ClinicRepository handles the clinic (tenant) rows themselves.
type ClinicRepository interface {
	// Create inserts a clinic. Duplicate names among live clinics fail
	// with a validation error.
	Create(ctx context.Context, name, contactNumber, address, description string) (*models.Clinic, error)

	// CreateWithAdmin inserts a clinic and its first ADMIN user in one
	// transaction. Either both rows exist afterwards or neither does; a
	// failed admin insert never leaves an orphan clinic holding the
	// name. The admin's role and clinic are set here, not by the caller.
	CreateWithAdmin(ctx context.Context, name, contactNumber, address, description string, admin *models.User) (*models.Clinic, *models.User, error)

	// GetByID returns a clinic in the given view.
	GetByID(ctx context.Context, view scope.View, clinicID uuid.UUID) (*models.Clinic, error)

	// Update writes the mutable clinic fields.
	Update(ctx context.Context, c *models.Clinic) error

	// SoftDelete / Restore flip the is_deleted flag. Both are
	// idempotent: flipping to the current state is a no-op success.
	SoftDelete(ctx context.Context, clinicID uuid.UUID) error
	Restore(ctx context.Context, clinicID uuid.UUID) error

	// Stats computes the dashboard counters for one clinic, counting
	// only live rows.
	Stats(ctx context.Context, clinicID uuid.UUID, now time.Time) (*models.ClinicStats, error)
}

// UserRepository handles user rows and the patient-creation compound
// write.
type UserRepository interface {
	// Create inserts a non-patient user (admin or doctor).
	Create(ctx context.Context, u *models.User) (*models.User, error)

	// CreatePatient inserts a PATIENT user and their profile in one
	// transaction. Either both rows exist afterwards or neither does;
	// there is no observable state with a patient and no profile.
	CreatePatient(ctx context.Context, u *models.User, profile *models.PatientProfile) (*models.User, *models.PatientProfile, error)

	// GetByID returns a user inside the scope.
	GetByID(ctx context.Context, s scope.Scope, userID uuid.UUID) (*models.User, error)

	// GetByEmail looks a user up globally (email is unique across
	// clinics). Login only; everything after login is clinic-scoped.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// List returns the users inside the scope, newest first. The
	// scope's role narrows to doctors/patients/admins when set.
	List(ctx context.Context, s scope.Scope) ([]models.User, error)

	// Update writes the mutable user fields. Role and clinic are not
	// among them.
	Update(ctx context.Context, u *models.User) error

	// UpdatePassword replaces the stored hash.
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error

	// SoftDelete / Restore flip the flag for a user in the clinic.
	// Idempotent.
	SoftDelete(ctx context.Context, clinicID, userID uuid.UUID, deletedBy uuid.UUID) error
	Restore(ctx context.Context, clinicID, userID uuid.UUID, restoredBy uuid.UUID) error
}

// ProfileRepository handles patient profiles. Profiles carry no
// soft-delete flag (they follow their user), so only the scope's clinic
// applies.
type ProfileRepository interface {
	GetByUserID(ctx context.Context, s scope.Scope, userID uuid.UUID) (*models.PatientProfile, error)
	List(ctx context.Context, s scope.Scope) ([]models.PatientProfile, error)
	Update(ctx context.Context, p *models.PatientProfile) error
}

// TreatmentFilter narrows a treatment listing beyond the scope.
type TreatmentFilter struct {
	Status    models.TreatmentStatus // optional
	PatientID uuid.UUID              // optional; patients are forced to their own ID
	Upcoming  bool                   // next_visit_date in the future
	Overdue   bool                   // next_visit_date in the past, status ONGOING
	Now       time.Time              // reference time for Upcoming/Overdue
}

// TreatmentRepository handles treatment rows.
type TreatmentRepository interface {
	Create(ctx context.Context, t *models.Treatment) (*models.Treatment, error)
	GetByID(ctx context.Context, s scope.Scope, treatmentID uuid.UUID) (*models.Treatment, error)
	List(ctx context.Context, s scope.Scope, f TreatmentFilter) ([]models.Treatment, error)
	Update(ctx context.Context, t *models.Treatment) error

	// SetStatus is the mark-completed / mark-cancelled transition. It
	// only touches live rows in the clinic; a soft-deleted treatment is
	// reported as not found.
	SetStatus(ctx context.Context, clinicID, treatmentID uuid.UUID, status models.TreatmentStatus, updatedBy uuid.UUID) (*models.Treatment, error)

	// SetImagePath records an uploaded image location.
	SetImagePath(ctx context.Context, clinicID, treatmentID uuid.UUID, path string, updatedBy uuid.UUID) error

	SoftDelete(ctx context.Context, clinicID, treatmentID uuid.UUID, deletedBy uuid.UUID) error
	Restore(ctx context.Context, clinicID, treatmentID uuid.UUID, restoredBy uuid.UUID) error
}
