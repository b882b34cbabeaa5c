package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ajaykumarbhatane/dental-management/internal/apperr"
	"github.com/ajaykumarbhatane/dental-management/internal/models"
	"github.com/ajaykumarbhatane/dental-management/internal/scope"
)

type ClinicStore struct {
	pool *pgxpool.Pool
}

func NewClinicStore(pool *pgxpool.Pool) *ClinicStore {
	return &ClinicStore{pool: pool}
}

const clinicColumns = `id, name, contact_number, address, description,
	is_active, is_deleted, created_at, updated_at`

func scanClinic(row pgx.Row) (*models.Clinic, error) {
	var c models.Clinic
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.ContactNumber,
		&c.Address,
		&c.Description,
		&c.IsActive,
		&c.IsDeleted,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const insertClinicQuery = `
	INSERT INTO clinics (name, contact_number, address, description)
	VALUES ($1, $2, $3, $4)
	RETURNING ` + clinicColumns

func (s *ClinicStore) Create(ctx context.Context, name, contactNumber, address, description string) (*models.Clinic, error) {
	c, err := scanClinic(s.pool.QueryRow(ctx, insertClinicQuery,
		name, contactNumber, address, description))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.ValidationField("name", "a clinic with this name already exists")
		}
		return nil, fmt.Errorf("insert clinic: %w", err)
	}
	return c, nil
}

// CreateWithAdmin inserts the clinic and its first admin in one
// transaction — registration's compound write. If the admin insert
// fails (most likely a raced email unique violation that slipped past
// the handler's pre-check), the clinic insert rolls back with it, so
// no orphan clinic ends up holding the name.
func (s *ClinicStore) CreateWithAdmin(ctx context.Context, name, contactNumber, address, description string, admin *models.User) (*models.Clinic, *models.User, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin registration tx: %w", err)
	}
	// Rollback after commit is a no-op; this only fires on error paths.
	defer tx.Rollback(ctx)

	clinic, err := scanClinic(tx.QueryRow(ctx, insertClinicQuery,
		name, contactNumber, address, description))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, nil, apperr.ValidationField("clinic_name", "a clinic with this name already exists")
		}
		return nil, nil, fmt.Errorf("insert clinic: %w", err)
	}

	createdAdmin, err := scanUser(tx.QueryRow(ctx, insertUserQuery,
		clinic.ID, admin.Email, admin.FirstName, admin.LastName, models.RoleAdmin,
		admin.ContactNumber, admin.SecondaryContact, admin.Address, admin.Degree,
		admin.PasswordHash, nil))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, nil, apperr.ValidationField("email", "email already registered")
		}
		return nil, nil, fmt.Errorf("insert first admin: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, apperr.Integrity("commit registration", err)
	}

	return clinic, createdAdmin, nil
}

func (s *ClinicStore) GetByID(ctx context.Context, view scope.View, clinicID uuid.UUID) (*models.Clinic, error) {
	query := `
		SELECT ` + clinicColumns + `
		FROM clinics
		WHERE id = $1 AND ` + view.SQL()

	c, err := scanClinic(s.pool.QueryRow(ctx, query, clinicID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get clinic: %w", err)
	}
	return c, nil
}

func (s *ClinicStore) Update(ctx context.Context, c *models.Clinic) error {
	query := `
		UPDATE clinics
		SET name = $2, contact_number = $3, address = $4, description = $5,
		    is_active = $6, updated_at = now()
		WHERE id = $1 AND is_deleted = FALSE`

	_, err := s.pool.Exec(ctx, query,
		c.ID, c.Name, c.ContactNumber, c.Address, c.Description, c.IsActive)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.ValidationField("name", "a clinic with this name already exists")
		}
		return fmt.Errorf("update clinic: %w", err)
	}
	return nil
}

// SoftDelete marks the clinic deleted. Deleting an already-deleted
// clinic is a no-op success.
func (s *ClinicStore) SoftDelete(ctx context.Context, clinicID uuid.UUID) error {
	query := `
		UPDATE clinics
		SET is_deleted = TRUE, updated_at = now()
		WHERE id = $1 AND is_deleted = FALSE`

	if _, err := s.pool.Exec(ctx, query, clinicID); err != nil {
		return fmt.Errorf("soft delete clinic: %w", err)
	}
	return nil
}

func (s *ClinicStore) Restore(ctx context.Context, clinicID uuid.UUID) error {
	query := `
		UPDATE clinics
		SET is_deleted = FALSE, updated_at = now()
		WHERE id = $1 AND is_deleted = TRUE`

	if _, err := s.pool.Exec(ctx, query, clinicID); err != nil {
		return fmt.Errorf("restore clinic: %w", err)
	}
	return nil
}

// Stats counts live users by role plus treatment activity for the
// dashboard. One round trip; every subquery carries its own
// is_deleted/clinic predicates rather than relying on a shared view.
func (s *ClinicStore) Stats(ctx context.Context, clinicID uuid.UUID, now time.Time) (*models.ClinicStats, error) {
	query := `
		SELECT
			(SELECT count(*) FROM users
			 WHERE clinic_id = $1 AND is_deleted = FALSE),
			(SELECT count(*) FROM users
			 WHERE clinic_id = $1 AND is_deleted = FALSE AND role = 'DOCTOR'),
			(SELECT count(*) FROM users
			 WHERE clinic_id = $1 AND is_deleted = FALSE AND role = 'PATIENT'),
			(SELECT count(*) FROM treatments
			 WHERE clinic_id = $1 AND is_deleted = FALSE AND status = 'ONGOING'),
			(SELECT count(*) FROM treatments
			 WHERE clinic_id = $1 AND is_deleted = FALSE AND next_visit_date > $2)`

	var stats models.ClinicStats
	err := s.pool.QueryRow(ctx, query, clinicID, now).Scan(
		&stats.UserCount,
		&stats.DoctorCount,
		&stats.PatientCount,
		&stats.ActiveTreatmentCount,
		&stats.UpcomingTreatmentCount,
	)
	if err != nil {
		return nil, fmt.Errorf("clinic stats: %w", err)
	}
	return &stats, nil
}
