package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of user roles. Every user has exactly one.
//
// Kept as a typed string so the permission layer can switch on it
// exhaustively — adding a role means touching every switch, which is
// the point.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleDoctor  Role = "DOCTOR"
	RolePatient Role = "PATIENT"
)

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RolePatient:
		return true
	}
	return false
}

// TreatmentStatus is the lifecycle status of a treatment. Transitions are
// deliberately unconstrained: any status may follow any other.
type TreatmentStatus string

const (
	StatusOngoing   TreatmentStatus = "ONGOING"
	StatusCompleted TreatmentStatus = "COMPLETED"
	StatusCancelled TreatmentStatus = "CANCELLED"
	StatusOnHold    TreatmentStatus = "ON_HOLD"
	StatusScheduled TreatmentStatus = "SCHEDULED"
)

func (s TreatmentStatus) Valid() bool {
	switch s {
	case StatusOngoing, StatusCompleted, StatusCancelled, StatusOnHold, StatusScheduled:
		return true
	}
	return false
}

// TreatmentType enumerates the orthodontic treatment categories.
type TreatmentType string

const (
	TypeBraces       TreatmentType = "BRACES"
	TypeAligners     TreatmentType = "ALIGNERS"
	TypeRetainer     TreatmentType = "RETAINER"
	TypeExtraction   TreatmentType = "EXTRACTION"
	TypeScaling      TreatmentType = "SCALING"
	TypeOrthognathic TreatmentType = "ORTHOGNATHIC"
	TypeProphylaxis  TreatmentType = "PROPHYLAXIS"
	TypeOther        TreatmentType = "OTHER"
)

func (t TreatmentType) Valid() bool {
	switch t {
	case TypeBraces, TypeAligners, TypeRetainer, TypeExtraction,
		TypeScaling, TypeOrthognathic, TypeProphylaxis, TypeOther:
		return true
	}
	return false
}

// Clinic is the top-level isolation boundary. Every user, profile and
// treatment belongs to exactly one clinic; clinic A never sees clinic B's
// data. Clinics are soft-deleted, never physically removed.
type Clinic struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	ContactNumber string    `json:"contact_number"`
	Address       string    `json:"address"`
	Description   string    `json:"description,omitempty"`
	IsActive      bool      `json:"is_active"`
	IsDeleted     bool      `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// User is any authenticated person: clinic admin, doctor or patient.
//
// ClinicID is required and treated as immutable after creation — the
// clinic a user belongs to is part of their identity, and every query
// against users is scoped by it.
//
// CreatedBy/UpdatedBy are audit references to other users. They are
// nullable (the first admin of a clinic has no creator) and weak: nothing
// cascades through them.
type User struct {
	ID               uuid.UUID  `json:"id"`
	ClinicID         uuid.UUID  `json:"clinic_id"`
	Email            string     `json:"email"`
	FirstName        string     `json:"first_name"`
	LastName         string     `json:"last_name"`
	Role             Role       `json:"role"`
	ContactNumber    string     `json:"contact_number,omitempty"`
	SecondaryContact string     `json:"secondary_contact_number,omitempty"`
	Address          string     `json:"address,omitempty"`
	Degree           string     `json:"degree,omitempty"`
	PasswordHash     string     `json:"-"`
	IsActive         bool       `json:"is_active"`
	IsDeleted        bool       `json:"-"`
	CreatedBy        *uuid.UUID `json:"created_by,omitempty"`
	UpdatedBy        *uuid.UUID `json:"updated_by,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// FullName returns "First Last", falling back to the email when both
// name fields are empty.
func (u *User) FullName() string {
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" {
		return u.Email
	}
	return name
}

// PatientProfile holds patient-specific medical attributes, one-to-one
// with a PATIENT-role user. It is created inside the same transaction as
// the user row, so a PATIENT user without a profile is unobservable.
//
// ClinicID is a denormalized copy of the owning user's clinic, written at
// creation. Invariant: profile.ClinicID == user.ClinicID, always.
//
// Profiles carry no soft-delete flag of their own; they live and die with
// their user.
type PatientProfile struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	ClinicID       uuid.UUID  `json:"clinic_id"`
	Gender         string     `json:"gender,omitempty"`
	DateOfBirth    *time.Time `json:"date_of_birth,omitempty"`
	MedicalHistory string     `json:"medical_history,omitempty"`
	Allergies      string     `json:"allergies,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Treatment is one clinical episode. It ties together a clinic, a patient
// (a PATIENT-role user in that clinic) and optionally a doctor (a
// DOCTOR-role user in that clinic).
//
// Invariants enforced at write time, independently of the FK columns:
// patient.ClinicID == ClinicID, and doctor.ClinicID == ClinicID when a
// doctor is set.
type Treatment struct {
	ID            uuid.UUID       `json:"id"`
	ClinicID      uuid.UUID       `json:"clinic_id"`
	PatientID     uuid.UUID       `json:"patient_id"`
	DoctorID      *uuid.UUID      `json:"doctor_id,omitempty"`
	TreatmentType TreatmentType   `json:"treatment_type"`
	Information   string          `json:"treatment_information"`
	Findings      string          `json:"treatment_findings,omitempty"`
	ImagePath     string          `json:"image_path,omitempty"`
	NextVisitDate *time.Time      `json:"next_visit_date,omitempty"`
	Status        TreatmentStatus `json:"status"`
	IsDeleted     bool            `json:"-"`
	CreatedBy     *uuid.UUID      `json:"created_by,omitempty"`
	UpdatedBy     *uuid.UUID      `json:"updated_by,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// IsUpcoming reports whether the next visit is in the future.
func (t *Treatment) IsUpcoming(now time.Time) bool {
	return t.NextVisitDate != nil && t.NextVisitDate.After(now)
}

// IsOverdue reports whether an ongoing treatment has a next visit in the
// past.
func (t *Treatment) IsOverdue(now time.Time) bool {
	return t.NextVisitDate != nil && t.NextVisitDate.Before(now) && t.Status == StatusOngoing
}

// ClinicStats is the per-clinic dashboard summary.
type ClinicStats struct {
	UserCount              int `json:"user_count"`
	DoctorCount            int `json:"doctor_count"`
	PatientCount           int `json:"patient_count"`
	ActiveTreatmentCount   int `json:"active_treatment_count"`
	UpcomingTreatmentCount int `json:"upcoming_treatment_count"`
}
