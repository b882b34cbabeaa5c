package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ajaykumarbhatane/dental-management/internal/apperr"
	"github.com/ajaykumarbhatane/dental-management/internal/models"
	"github.com/ajaykumarbhatane/dental-management/internal/repository"
	"github.com/ajaykumarbhatane/dental-management/internal/scope"
)

type TreatmentStore struct {
	pool *pgxpool.Pool
}

func NewTreatmentStore(pool *pgxpool.Pool) *TreatmentStore {
	return &TreatmentStore{pool: pool}
}

const treatmentColumns = `id, clinic_id, patient_id, doctor_id,
	treatment_type, treatment_information, treatment_findings, image_path,
	next_visit_date, status, is_deleted, created_by, updated_by,
	created_at, updated_at`

func scanTreatment(row pgx.Row) (*models.Treatment, error) {
	var t models.Treatment
	err := row.Scan(
		&t.ID,
		&t.ClinicID,
		&t.PatientID,
		&t.DoctorID,
		&t.TreatmentType,
		&t.Information,
		&t.Findings,
		&t.ImagePath,
		&t.NextVisitDate,
		&t.Status,
		&t.IsDeleted,
		&t.CreatedBy,
		&t.UpdatedBy,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *TreatmentStore) Create(ctx context.Context, t *models.Treatment) (*models.Treatment, error) {
	query := `
		INSERT INTO treatments (clinic_id, patient_id, doctor_id,
			treatment_type, treatment_information, treatment_findings,
			next_visit_date, status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + treatmentColumns

	created, err := scanTreatment(s.pool.QueryRow(ctx, query,
		t.ClinicID, t.PatientID, t.DoctorID, t.TreatmentType,
		t.Information, t.Findings, t.NextVisitDate, t.Status, t.CreatedBy))
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, apperr.ValidationField("patient_id", "referenced user does not exist")
		}
		return nil, fmt.Errorf("insert treatment: %w", err)
	}
	return created, nil
}

func (s *TreatmentStore) GetByID(ctx context.Context, sc scope.Scope, treatmentID uuid.UUID) (*models.Treatment, error) {
	where, args := sc.SQL(2)
	query := `
		SELECT ` + treatmentColumns + `
		FROM treatments
		WHERE id = $1 AND ` + where

	t, err := scanTreatment(s.pool.QueryRow(ctx, query, append([]any{treatmentID}, args...)...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get treatment: %w", err)
	}
	return t, nil
}

func (s *TreatmentStore) List(ctx context.Context, sc scope.Scope, f repository.TreatmentFilter) ([]models.Treatment, error) {
	where, args := sc.SQL(1)
	var b strings.Builder
	b.WriteString(`
		SELECT ` + treatmentColumns + `
		FROM treatments
		WHERE ` + where)

	n := len(args) + 1
	if f.Status != "" {
		fmt.Fprintf(&b, " AND status = $%d", n)
		args = append(args, f.Status)
		n++
	}
	if f.PatientID != uuid.Nil {
		fmt.Fprintf(&b, " AND patient_id = $%d", n)
		args = append(args, f.PatientID)
		n++
	}
	if f.Upcoming {
		fmt.Fprintf(&b, " AND next_visit_date > $%d", n)
		args = append(args, f.Now)
		n++
	}
	if f.Overdue {
		fmt.Fprintf(&b, " AND next_visit_date < $%d AND status = 'ONGOING'", n)
		args = append(args, f.Now)
		n++
	}
	b.WriteString(" ORDER BY created_at DESC")

	rows, err := s.pool.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list treatments: %w", err)
	}
	defer rows.Close()

	treatments := make([]models.Treatment, 0)
	for rows.Next() {
		t, err := scanTreatment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan treatment: %w", err)
		}
		treatments = append(treatments, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate treatments: %w", err)
	}

	return treatments, nil
}

func (s *TreatmentStore) Update(ctx context.Context, t *models.Treatment) error {
	query := `
		UPDATE treatments
		SET doctor_id = $3, treatment_type = $4, treatment_information = $5,
		    treatment_findings = $6, next_visit_date = $7, status = $8,
		    updated_by = $9, updated_at = now()
		WHERE id = $1 AND clinic_id = $2 AND is_deleted = FALSE`

	_, err := s.pool.Exec(ctx, query,
		t.ID, t.ClinicID, t.DoctorID, t.TreatmentType, t.Information,
		t.Findings, t.NextVisitDate, t.Status, t.UpdatedBy)
	if err != nil {
		return fmt.Errorf("update treatment: %w", err)
	}
	return nil
}

// SetStatus flips the status of a live treatment and returns the row.
// Soft-deleted rows are not transitioned: the WHERE clause excludes them
// and the caller gets a not-found.
func (s *TreatmentStore) SetStatus(ctx context.Context, clinicID, treatmentID uuid.UUID, status models.TreatmentStatus, updatedBy uuid.UUID) (*models.Treatment, error) {
	query := `
		UPDATE treatments
		SET status = $3, updated_by = $4, updated_at = now()
		WHERE id = $1 AND clinic_id = $2 AND is_deleted = FALSE
		RETURNING ` + treatmentColumns

	t, err := scanTreatment(s.pool.QueryRow(ctx, query, treatmentID, clinicID, status, updatedBy))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("set treatment status: %w", err)
	}
	return t, nil
}

func (s *TreatmentStore) SetImagePath(ctx context.Context, clinicID, treatmentID uuid.UUID, path string, updatedBy uuid.UUID) error {
	query := `
		UPDATE treatments
		SET image_path = $3, updated_by = $4, updated_at = now()
		WHERE id = $1 AND clinic_id = $2 AND is_deleted = FALSE`

	if _, err := s.pool.Exec(ctx, query, treatmentID, clinicID, path, updatedBy); err != nil {
		return fmt.Errorf("set treatment image: %w", err)
	}
	return nil
}

func (s *TreatmentStore) SoftDelete(ctx context.Context, clinicID, treatmentID uuid.UUID, deletedBy uuid.UUID) error {
	query := `
		UPDATE treatments
		SET is_deleted = TRUE, updated_by = $3, updated_at = now()
		WHERE id = $1 AND clinic_id = $2 AND is_deleted = FALSE`

	if _, err := s.pool.Exec(ctx, query, treatmentID, clinicID, deletedBy); err != nil {
		return fmt.Errorf("soft delete treatment: %w", err)
	}
	return nil
}

func (s *TreatmentStore) Restore(ctx context.Context, clinicID, treatmentID uuid.UUID, restoredBy uuid.UUID) error {
	query := `
		UPDATE treatments
		SET is_deleted = FALSE, updated_by = $3, updated_at = now()
		WHERE id = $1 AND clinic_id = $2 AND is_deleted = TRUE`

	if _, err := s.pool.Exec(ctx, query, treatmentID, clinicID, restoredBy); err != nil {
		return fmt.Errorf("restore treatment: %w", err)
	}
	return nil
}
