// Package service implements the application operations between the
// HTTP handlers and the repositories. Every operation authorizes the
// principal before touching anything, builds its reads from the
// principal's own clinic scope, and re-validates clinic ownership before
// writes — the same isolation rule enforced three independent ways.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ajaykumarbhatane/dental-management/internal/apperr"
	"github.com/ajaykumarbhatane/dental-management/internal/authz"
	"github.com/ajaykumarbhatane/dental-management/internal/models"
	"github.com/ajaykumarbhatane/dental-management/internal/repository"
	"github.com/ajaykumarbhatane/dental-management/internal/scope"
	"github.com/ajaykumarbhatane/dental-management/internal/validate"
)

// UserService covers user management and patient profiles.
type UserService struct {
	users    repository.UserRepository
	profiles repository.ProfileRepository
	logger   *zap.Logger
}

func NewUserService(users repository.UserRepository, profiles repository.ProfileRepository, logger *zap.Logger) *UserService {
	return &UserService{users: users, profiles: profiles, logger: logger}
}

// CreateUserParams is the input for creating any user. The clinic is
// not a parameter: new users always land in the creating principal's
// clinic.
type CreateUserParams struct {
	Email            string
	Password         string
	FirstName        string
	LastName         string
	Role             models.Role
	ContactNumber    string
	SecondaryContact string
	Address          string
	Degree           string

	// Profile seed, used only when Role is PATIENT.
	Gender         string
	DateOfBirth    *time.Time
	MedicalHistory string
	Allergies      string
}

// CreateUser creates a user in the principal's clinic. When the role is
// PATIENT, the patient profile is created in the same transaction — the
// caller never has to remember the second write, and a failure of
// either write rolls back both.
func (s *UserService) CreateUser(ctx context.Context, p authz.Principal, params CreateUserParams) (*models.User, error) {
	if err := authz.Authorize(p, authz.ActionCreate, authz.ResourceUser, nil); err != nil {
		return nil, err
	}
	if !params.Role.Valid() {
		return nil, apperr.ValidationField("role", "role must be one of ADMIN, DOCTOR, PATIENT")
	}
	if err := validate.PhoneNumber("contact_number", params.ContactNumber); err != nil {
		return nil, err
	}
	if err := validate.PhoneNumber("secondary_contact_number", params.SecondaryContact); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Integrity("hash password", err)
	}

	createdBy := p.ID
	user := &models.User{
		ClinicID:         p.ClinicID,
		Email:            params.Email,
		FirstName:        params.FirstName,
		LastName:         params.LastName,
		Role:             params.Role,
		ContactNumber:    params.ContactNumber,
		SecondaryContact: params.SecondaryContact,
		Address:          params.Address,
		Degree:           params.Degree,
		PasswordHash:     string(hash),
		CreatedBy:        &createdBy,
	}

	if params.Role != models.RolePatient {
		created, err := s.users.Create(ctx, user)
		if err != nil {
			return nil, err
		}
		s.logger.Info("user created",
			zap.String("user_id", created.ID.String()),
			zap.String("role", string(created.Role)),
		)
		return created, nil
	}

	profile := &models.PatientProfile{
		Gender:         params.Gender,
		DateOfBirth:    params.DateOfBirth,
		MedicalHistory: params.MedicalHistory,
		Allergies:      params.Allergies,
	}
	created, createdProfile, err := s.users.CreatePatient(ctx, user, profile)
	if err != nil {
		return nil, err
	}
	s.logger.Info("patient created with profile",
		zap.String("user_id", created.ID.String()),
		zap.String("profile_id", createdProfile.ID.String()),
	)
	return created, nil
}

// GetUser returns one user in the principal's clinic. A patient can
// only fetch themselves; the ownership rule lives in the permission
// policy, so the row is fetched first and authorized as a target.
func (s *UserService) GetUser(ctx context.Context, p authz.Principal, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, scope.ForClinic(p.ClinicID), userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.NotFound("user")
	}
	if err := authz.Authorize(p, authz.ActionViewDetail, authz.ResourceUser,
		&authz.Target{ClinicID: user.ClinicID, OwnerID: user.ID}); err != nil {
		return nil, err
	}
	return user, nil
}

// ListUsers lists the clinic's users, optionally narrowed to one role.
func (s *UserService) ListUsers(ctx context.Context, p authz.Principal, role models.Role) ([]models.User, error) {
	if err := authz.Authorize(p, authz.ActionViewList, authz.ResourceUser, nil); err != nil {
		return nil, err
	}
	if role != "" && !role.Valid() {
		return nil, apperr.ValidationField("role", "unknown role filter")
	}
	sc := scope.ForClinic(p.ClinicID)
	if role != "" {
		sc = sc.WithRole(role)
	}
	return s.users.List(ctx, sc)
}

// ListDeletedUsers is the clinic-scoped recycle bin, for admins.
func (s *UserService) ListDeletedUsers(ctx context.Context, p authz.Principal) ([]models.User, error) {
	if err := authz.Authorize(p, authz.ActionDelete, authz.ResourceUser, nil); err != nil {
		return nil, err
	}
	return s.users.List(ctx, scope.ForClinic(p.ClinicID).Deleted())
}

// UpdateUserParams carries the mutable user fields. Role, email and
// clinic are absent: role is immutable after creation (the
// patient-profile contract depends on it) and a user cannot move
// clinics.
type UpdateUserParams struct {
	FirstName        string
	LastName         string
	ContactNumber    string
	SecondaryContact string
	Address          string
	Degree           string
	IsActive         *bool
}

func (s *UserService) UpdateUser(ctx context.Context, p authz.Principal, userID uuid.UUID, params UpdateUserParams) (*models.User, error) {
	user, err := s.users.GetByID(ctx, scope.ForClinic(p.ClinicID), userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.NotFound("user")
	}
	if err := authz.Authorize(p, authz.ActionUpdate, authz.ResourceUser,
		&authz.Target{ClinicID: user.ClinicID, OwnerID: user.ID}); err != nil {
		return nil, err
	}
	// Written rows must stay in the caller's clinic even if the read
	// layer were buggy.
	if err := scope.ValidateSameClinic("user_id", user.ClinicID, p.ClinicID); err != nil {
		return nil, err
	}
	if err := validate.PhoneNumber("contact_number", params.ContactNumber); err != nil {
		return nil, err
	}
	if err := validate.PhoneNumber("secondary_contact_number", params.SecondaryContact); err != nil {
		return nil, err
	}

	user.FirstName = params.FirstName
	user.LastName = params.LastName
	user.ContactNumber = params.ContactNumber
	user.SecondaryContact = params.SecondaryContact
	user.Address = params.Address
	user.Degree = params.Degree
	if params.IsActive != nil {
		user.IsActive = *params.IsActive
	}
	updatedBy := p.ID
	user.UpdatedBy = &updatedBy

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// SoftDeleteUser marks a user deleted. Admins only; deleting an
// already-deleted user reports not found because the active view no
// longer contains it.
func (s *UserService) SoftDeleteUser(ctx context.Context, p authz.Principal, userID uuid.UUID) error {
	user, err := s.users.GetByID(ctx, scope.ForClinic(p.ClinicID), userID)
	if err != nil {
		return err
	}
	if user == nil {
		return apperr.NotFound("user")
	}
	if err := authz.Authorize(p, authz.ActionDelete, authz.ResourceUser,
		&authz.Target{ClinicID: user.ClinicID, OwnerID: user.ID}); err != nil {
		return err
	}
	if user.ID == p.ID {
		return apperr.ValidationField("user_id", "cannot delete your own account")
	}
	return s.users.SoftDelete(ctx, p.ClinicID, userID, p.ID)
}

// RestoreUser brings a soft-deleted user back. The lookup uses the
// deleted view — restore is the one operation that may see it.
func (s *UserService) RestoreUser(ctx context.Context, p authz.Principal, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, scope.ForClinic(p.ClinicID).Deleted(), userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.NotFound("user")
	}
	if err := authz.Authorize(p, authz.ActionRestore, authz.ResourceUser,
		&authz.Target{ClinicID: user.ClinicID, OwnerID: user.ID}); err != nil {
		return nil, err
	}
	if err := s.users.Restore(ctx, p.ClinicID, userID, p.ID); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, scope.ForClinic(p.ClinicID), userID)
}

// ChangePassword verifies the current password and replaces it.
func (s *UserService) ChangePassword(ctx context.Context, p authz.Principal, current, next string) error {
	user, err := s.users.GetByID(ctx, scope.ForClinic(p.ClinicID), p.ID)
	if err != nil {
		return err
	}
	if user == nil {
		return apperr.NotFound("user")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)) != nil {
		return apperr.ValidationField("current_password", "current password is incorrect")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Integrity("hash password", err)
	}
	return s.users.UpdatePassword(ctx, p.ID, string(hash))
}

// GetProfile returns a patient's profile. Staff read any profile in the
// clinic; a patient reads only their own.
func (s *UserService) GetProfile(ctx context.Context, p authz.Principal, userID uuid.UUID) (*models.PatientProfile, error) {
	profile, err := s.profiles.GetByUserID(ctx, scope.ForClinic(p.ClinicID), userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, apperr.NotFound("profile")
	}
	if err := authz.Authorize(p, authz.ActionViewDetail, authz.ResourceProfile,
		&authz.Target{ClinicID: profile.ClinicID, OwnerID: profile.UserID}); err != nil {
		return nil, err
	}
	return profile, nil
}

// ListProfiles lists the clinic's patient profiles (staff only).
func (s *UserService) ListProfiles(ctx context.Context, p authz.Principal) ([]models.PatientProfile, error) {
	if err := authz.Authorize(p, authz.ActionViewList, authz.ResourceProfile, nil); err != nil {
		return nil, err
	}
	return s.profiles.List(ctx, scope.ForClinic(p.ClinicID))
}

// UpdateProfileParams carries the mutable profile fields.
type UpdateProfileParams struct {
	Gender         string
	DateOfBirth    *time.Time
	MedicalHistory string
	Allergies      string
}

// UpdateProfile updates a patient profile: the patient themselves, or
// clinic staff with update rights.
func (s *UserService) UpdateProfile(ctx context.Context, p authz.Principal, userID uuid.UUID, params UpdateProfileParams) (*models.PatientProfile, error) {
	profile, err := s.profiles.GetByUserID(ctx, scope.ForClinic(p.ClinicID), userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, apperr.NotFound("profile")
	}
	if err := authz.Authorize(p, authz.ActionUpdate, authz.ResourceProfile,
		&authz.Target{ClinicID: profile.ClinicID, OwnerID: profile.UserID}); err != nil {
		return nil, err
	}
	if err := scope.ValidateSameClinic("user_id", profile.ClinicID, p.ClinicID); err != nil {
		return nil, err
	}

	profile.Gender = params.Gender
	profile.DateOfBirth = params.DateOfBirth
	profile.MedicalHistory = params.MedicalHistory
	profile.Allergies = params.Allergies

	if err := s.profiles.Update(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}
