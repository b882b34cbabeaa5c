// Package authz decides whether a principal may perform an action on a
// resource. It is pure: no I/O, no context, just the decision table.
// Handlers call it before executing any mutation, so a denial never
// leaves partial effects behind.
package authz

import (
	"github.com/google/uuid"

	"github.com/ajaykumarbhatane/dental-management/internal/apperr"
	"github.com/ajaykumarbhatane/dental-management/internal/models"
)

// Principal is the authenticated caller, as extracted from the JWT.
type Principal struct {
	ID       uuid.UUID
	ClinicID uuid.UUID
	Role     models.Role
}

// Action is what the caller is trying to do. The two mark-* actions are
// the treatment convenience transitions.
type Action string

const (
	ActionViewList      Action = "VIEW_LIST"
	ActionViewDetail    Action = "VIEW_DETAIL"
	ActionCreate        Action = "CREATE"
	ActionUpdate        Action = "UPDATE"
	ActionDelete        Action = "DELETE"
	ActionRestore       Action = "RESTORE"
	ActionMarkCompleted Action = "MARK_COMPLETED"
	ActionMarkCancelled Action = "MARK_CANCELLED"
)

// Resource is the entity kind being acted on.
type Resource string

const (
	ResourceUser      Resource = "user"
	ResourceProfile   Resource = "profile"
	ResourceTreatment Resource = "treatment"
	ResourceClinic    Resource = "clinic"
)

// Target carries the object-level facts a decision needs. Nil target
// means a collection-level action (list, create) where there is no row
// yet; those are implicitly same-clinic because creation and listing
// always use the caller's own clinic.
type Target struct {
	// ClinicID is the row's owning clinic.
	ClinicID uuid.UUID

	// OwnerID identifies the user the row is "about": the user row's
	// own ID, a profile's UserID, a treatment's PatientID. Used for the
	// patient's own-rows-only rule.
	OwnerID uuid.UUID
}

// Authorize returns nil to allow, or a PERMISSION_DENIED error.
//
// The clinic check runs first and unconditionally: no role, including
// ADMIN, can act on a row owned by another clinic. Role privileges are
// only consulted after that gate passes.
func Authorize(p Principal, action Action, res Resource, target *Target) error {
	if !p.Role.Valid() {
		return apperr.PermissionDenied("unknown role")
	}

	if target != nil && target.ClinicID != p.ClinicID {
		return apperr.PermissionDenied("resource belongs to another clinic")
	}

	switch p.Role {
	case models.RoleAdmin:
		return authorizeAdmin(action, res)
	case models.RoleDoctor:
		return authorizeDoctor(action, res)
	case models.RolePatient:
		return authorizePatient(p, action, res, target)
	}
	return apperr.PermissionDenied("unknown role")
}

// authorizeAdmin: full control over users, profiles and treatments in
// the admin's own clinic, plus reading and updating the clinic record
// itself. Clinics are created and hard-managed by operators, not through
// this API, so clinic create/delete is denied even to admins.
func authorizeAdmin(action Action, res Resource) error {
	if res == ResourceClinic {
		switch action {
		case ActionViewList, ActionViewDetail, ActionUpdate:
			return nil
		}
		return apperr.PermissionDenied("clinic lifecycle is operator-managed")
	}
	return nil
}

// authorizeDoctor: read/write treatments, read profiles and users, run
// the mark-* transitions. No user management, no deletes, no clinic
// writes.
func authorizeDoctor(action Action, res Resource) error {
	switch res {
	case ResourceTreatment:
		switch action {
		case ActionViewList, ActionViewDetail, ActionCreate, ActionUpdate,
			ActionMarkCompleted, ActionMarkCancelled:
			return nil
		}
	case ResourceProfile:
		switch action {
		case ActionViewList, ActionViewDetail:
			return nil
		}
	case ResourceUser:
		switch action {
		case ActionViewList, ActionViewDetail:
			return nil
		}
	case ResourceClinic:
		if action == ActionViewDetail {
			return nil
		}
	}
	return apperr.PermissionDenied("not permitted for doctors")
}

// authorizePatient: a patient touches only rows about themselves — their
// own user row, their own profile, treatments where they are the
// patient. Reads only, except updating their own profile and contact
// details.
func authorizePatient(p Principal, action Action, res Resource, target *Target) error {
	// Collection-level actions carry no target to check ownership
	// against; the only one patients get is listing their own
	// treatments, which the handler scopes to the caller's ID.
	if target == nil {
		if res == ResourceTreatment && action == ActionViewList {
			return nil
		}
		return apperr.PermissionDenied("not permitted for patients")
	}

	if target.OwnerID != p.ID {
		return apperr.PermissionDenied("patients may only access their own records")
	}

	switch res {
	case ResourceProfile:
		switch action {
		case ActionViewDetail, ActionUpdate:
			return nil
		}
	case ResourceUser:
		switch action {
		case ActionViewDetail, ActionUpdate:
			return nil
		}
	case ResourceTreatment:
		switch action {
		case ActionViewList, ActionViewDetail:
			return nil
		}
	}
	return apperr.PermissionDenied("not permitted for patients")
}
