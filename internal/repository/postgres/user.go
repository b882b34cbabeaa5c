package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ajaykumarbhatane/dental-management/internal/apperr"
	"github.com/ajaykumarbhatane/dental-management/internal/models"
	"github.com/ajaykumarbhatane/dental-management/internal/scope"
)

type UserStore struct {
	pool *pgxpool.Pool
}

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

const userColumns = `id, clinic_id, email, first_name, last_name, role,
	contact_number, secondary_contact_number, address, degree,
	password_hash, is_active, is_deleted, created_by, updated_by,
	created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID,
		&u.ClinicID,
		&u.Email,
		&u.FirstName,
		&u.LastName,
		&u.Role,
		&u.ContactNumber,
		&u.SecondaryContact,
		&u.Address,
		&u.Degree,
		&u.PasswordHash,
		&u.IsActive,
		&u.IsDeleted,
		&u.CreatedBy,
		&u.UpdatedBy,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

const insertUserQuery = `
	INSERT INTO users (clinic_id, email, first_name, last_name, role,
		contact_number, secondary_contact_number, address, degree,
		password_hash, created_by)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	RETURNING ` + userColumns

// Create inserts a non-patient user. Patients go through CreatePatient
// so the profile lands in the same transaction.
func (s *UserStore) Create(ctx context.Context, u *models.User) (*models.User, error) {
	created, err := scanUser(s.pool.QueryRow(ctx, insertUserQuery,
		u.ClinicID, u.Email, u.FirstName, u.LastName, u.Role,
		u.ContactNumber, u.SecondaryContact, u.Address, u.Degree,
		u.PasswordHash, u.CreatedBy))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.ValidationField("email", "email already registered")
		}
		if isForeignKeyViolation(err) {
			return nil, apperr.ValidationField("clinic_id", "clinic does not exist")
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return created, nil
}

// CreatePatient inserts the PATIENT user and their profile in one
// transaction. The profile's clinic_id is taken from the created user
// row, not from the caller, so the two can never disagree. If the
// profile insert fails, the whole transaction rolls back — a patient
// without a profile is unobservable.
func (s *UserStore) CreatePatient(ctx context.Context, u *models.User, profile *models.PatientProfile) (*models.User, *models.PatientProfile, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin patient tx: %w", err)
	}
	// Rollback after commit is a no-op; this only fires on error paths.
	defer tx.Rollback(ctx)

	createdUser, err := scanUser(tx.QueryRow(ctx, insertUserQuery,
		u.ClinicID, u.Email, u.FirstName, u.LastName, models.RolePatient,
		u.ContactNumber, u.SecondaryContact, u.Address, u.Degree,
		u.PasswordHash, u.CreatedBy))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, nil, apperr.ValidationField("email", "email already registered")
		}
		if isForeignKeyViolation(err) {
			return nil, nil, apperr.ValidationField("clinic_id", "clinic does not exist")
		}
		return nil, nil, fmt.Errorf("insert patient user: %w", err)
	}

	profileQuery := `
		INSERT INTO patient_profiles (user_id, clinic_id, gender,
			date_of_birth, medical_history, allergies)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + profileColumns

	createdProfile, err := scanProfile(tx.QueryRow(ctx, profileQuery,
		createdUser.ID, createdUser.ClinicID, profile.Gender,
		profile.DateOfBirth, profile.MedicalHistory, profile.Allergies))
	if err != nil {
		return nil, nil, apperr.Integrity("create patient profile", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, apperr.Integrity("commit patient creation", err)
	}

	return createdUser, createdProfile, nil
}

func (s *UserStore) GetByID(ctx context.Context, sc scope.Scope, userID uuid.UUID) (*models.User, error) {
	where, args := sc.SQL(2)
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1 AND ` + where

	u, err := scanUser(s.pool.QueryRow(ctx, query, append([]any{userID}, args...)...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetByEmail looks a user up globally. Login only — soft-deleted users
// still cannot log in, hence the active predicate.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = $1 AND is_deleted = FALSE`

	u, err := scanUser(s.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (s *UserStore) List(ctx context.Context, sc scope.Scope) ([]models.User, error) {
	where, args := sc.SQL(1)
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE ` + where + `
		ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	return users, nil
}

// Update writes contact and name fields. Role, clinic, email and the
// soft-delete flag are deliberately not updatable here.
func (s *UserStore) Update(ctx context.Context, u *models.User) error {
	query := `
		UPDATE users
		SET first_name = $3, last_name = $4, contact_number = $5,
		    secondary_contact_number = $6, address = $7, degree = $8,
		    is_active = $9, updated_by = $10, updated_at = now()
		WHERE id = $1 AND clinic_id = $2 AND is_deleted = FALSE`

	_, err := s.pool.Exec(ctx, query,
		u.ID, u.ClinicID, u.FirstName, u.LastName, u.ContactNumber,
		u.SecondaryContact, u.Address, u.Degree, u.IsActive, u.UpdatedBy)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

func (s *UserStore) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = $2, updated_at = now()
		WHERE id = $1 AND is_deleted = FALSE`

	if _, err := s.pool.Exec(ctx, query, userID, passwordHash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// SoftDelete marks a user deleted within the clinic. Idempotent: a
// second call matches zero rows and succeeds.
func (s *UserStore) SoftDelete(ctx context.Context, clinicID, userID uuid.UUID, deletedBy uuid.UUID) error {
	query := `
		UPDATE users
		SET is_deleted = TRUE, updated_by = $3, updated_at = now()
		WHERE id = $1 AND clinic_id = $2 AND is_deleted = FALSE`

	if _, err := s.pool.Exec(ctx, query, userID, clinicID, deletedBy); err != nil {
		return fmt.Errorf("soft delete user: %w", err)
	}
	return nil
}

func (s *UserStore) Restore(ctx context.Context, clinicID, userID uuid.UUID, restoredBy uuid.UUID) error {
	query := `
		UPDATE users
		SET is_deleted = FALSE, updated_by = $3, updated_at = now()
		WHERE id = $1 AND clinic_id = $2 AND is_deleted = TRUE`

	if _, err := s.pool.Exec(ctx, query, userID, clinicID, restoredBy); err != nil {
		return fmt.Errorf("restore user: %w", err)
	}
	return nil
}
