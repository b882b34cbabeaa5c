package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ajaykumarbhatane/dental-management/internal/models"
	"github.com/ajaykumarbhatane/dental-management/internal/scope"
)

type ProfileStore struct {
	pool *pgxpool.Pool
}

func NewProfileStore(pool *pgxpool.Pool) *ProfileStore {
	return &ProfileStore{pool: pool}
}

const profileColumns = `id, user_id, clinic_id, gender, date_of_birth,
	medical_history, allergies, created_at, updated_at`

func scanProfile(row pgx.Row) (*models.PatientProfile, error) {
	var p models.PatientProfile
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.ClinicID,
		&p.Gender,
		&p.DateOfBirth,
		&p.MedicalHistory,
		&p.Allergies,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByUserID returns the profile of one patient inside the scope's
// clinic. Profiles have no soft-delete flag of their own, so the scope's
// view applies through the owning user row: a profile whose user is
// soft-deleted is out of the active view.
func (s *ProfileStore) GetByUserID(ctx context.Context, sc scope.Scope, userID uuid.UUID) (*models.PatientProfile, error) {
	query := `
		SELECT p.id, p.user_id, p.clinic_id, p.gender, p.date_of_birth,
		       p.medical_history, p.allergies, p.created_at, p.updated_at
		FROM patient_profiles p
		JOIN users u ON u.id = p.user_id
		WHERE p.user_id = $1 AND p.clinic_id = $2 AND ` + sc.View.SQLColumn("u.is_deleted")

	p, err := scanProfile(s.pool.QueryRow(ctx, query, userID, sc.ClinicID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (s *ProfileStore) List(ctx context.Context, sc scope.Scope) ([]models.PatientProfile, error) {
	query := `
		SELECT p.id, p.user_id, p.clinic_id, p.gender, p.date_of_birth,
		       p.medical_history, p.allergies, p.created_at, p.updated_at
		FROM patient_profiles p
		JOIN users u ON u.id = p.user_id
		WHERE p.clinic_id = $1 AND ` + sc.View.SQLColumn("u.is_deleted") + `
		ORDER BY p.created_at DESC`

	rows, err := s.pool.Query(ctx, query, sc.ClinicID)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	profiles := make([]models.PatientProfile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}

	return profiles, nil
}

func (s *ProfileStore) Update(ctx context.Context, p *models.PatientProfile) error {
	query := `
		UPDATE patient_profiles
		SET gender = $3, date_of_birth = $4, medical_history = $5,
		    allergies = $6, updated_at = now()
		WHERE id = $1 AND clinic_id = $2`

	_, err := s.pool.Exec(ctx, query,
		p.ID, p.ClinicID, p.Gender, p.DateOfBirth, p.MedicalHistory, p.Allergies)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}
