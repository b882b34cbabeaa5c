// Package scope implements the query policy every repository read goes
// through: the soft-delete view (active / deleted / all) and the clinic
// scoping on top of it.
//
// The policy is an explicit value the caller must construct and pass —
// there is no implicit default. A repository method that queries a
// clinic-owned table without a Scope is a defect, and the SQL it would
// need is only produced here.
//
// Clinic correctness is enforced at three independent layers: the FK
// columns in the schema, the Scope applied to every read, and
// ValidateSameClinic before every write that takes caller-supplied
// references. Each layer is meant to catch bugs in the others, so they
// intentionally do not share code.
package scope

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ajaykumarbhatane/dental-management/internal/apperr"
	"github.com/ajaykumarbhatane/dental-management/internal/models"
)

// View selects which slice of a soft-deletable table a query sees.
//
// Active and Deleted partition All: every row is in exactly one of the
// two at any instant, because both are pure predicates on the same
// is_deleted column.
type View int

const (
	// ViewActive is the default view: rows with is_deleted = false.
	// Everything the request path does uses this unless a handler
	// explicitly asks for the deleted view.
	ViewActive View = iota

	// ViewDeleted is the recycle bin: rows with is_deleted = true.
	ViewDeleted

	// ViewAll ignores the flag. Only restore tooling touches it, and
	// even then always combined with a clinic filter.
	ViewAll
)

// SQL returns the WHERE fragment for the view's is_deleted predicate.
func (v View) SQL() string {
	return v.SQLColumn("is_deleted")
}

// SQLColumn renders the predicate against a named column, for queries
// that join and must qualify it ("u.is_deleted"). ViewAll renders a
// bare TRUE whatever the column, so it stays valid in any position.
func (v View) SQLColumn(col string) string {
	switch v {
	case ViewActive:
		return col + " = FALSE"
	case ViewDeleted:
		return col + " = TRUE"
	default:
		return "TRUE"
	}
}

// Matches is the in-memory equivalent of SQL, used by tests and by fake
// stores: does a row with the given flag fall inside this view?
func (v View) Matches(isDeleted bool) bool {
	switch v {
	case ViewActive:
		return !isDeleted
	case ViewDeleted:
		return isDeleted
	default:
		return true
	}
}

// Scope narrows a view to one clinic, optionally to one role. It is the
// sole way request handling obtains a list/detail query over
// clinic-owned rows.
type Scope struct {
	ClinicID uuid.UUID
	View     View

	// Role, when non-empty, additionally narrows user queries to one
	// role (doctor/patient/admin listings). Ignored for tables without
	// a role column.
	Role models.Role
}

// ForClinic returns the default scope: the active view of one clinic.
func ForClinic(clinicID uuid.UUID) Scope {
	return Scope{ClinicID: clinicID, View: ViewActive}
}

// Deleted switches the scope to the deleted view, keeping the clinic.
func (s Scope) Deleted() Scope {
	s.View = ViewDeleted
	return s
}

// WithRole narrows the scope to users of one role.
func (s Scope) WithRole(r models.Role) Scope {
	s.Role = r
	return s
}

// SQL renders the scope as a WHERE fragment with positional arguments
// starting at argIndex. Example with argIndex=1:
//
//	"is_deleted = FALSE AND clinic_id = $1 AND role = $2", [clinicID, role]
//
// The clinic predicate is not optional: a Scope with a nil ClinicID
// still renders "clinic_id = $n" with uuid.Nil, which matches nothing.
// Matching nothing is the safe failure mode.
func (s Scope) SQL(argIndex int) (string, []any) {
	var b strings.Builder
	b.WriteString(s.View.SQL())

	args := make([]any, 0, 2)
	fmt.Fprintf(&b, " AND clinic_id = $%d", argIndex)
	args = append(args, s.ClinicID)
	argIndex++

	if s.Role != "" {
		fmt.Fprintf(&b, " AND role = $%d", argIndex)
		args = append(args, s.Role)
	}

	return b.String(), args
}

// Matches is the in-memory form of SQL for rows without a role column.
func (s Scope) Matches(rowClinic uuid.UUID, isDeleted bool) bool {
	return s.View.Matches(isDeleted) && rowClinic == s.ClinicID
}

// MatchesUser is Matches plus the role narrowing.
func (s Scope) MatchesUser(rowClinic uuid.UUID, isDeleted bool, role models.Role) bool {
	if !s.Matches(rowClinic, isDeleted) {
		return false
	}
	return s.Role == "" || s.Role == role
}

// ValidateSameClinic rejects a caller-supplied reference that lives in a
// different clinic than the row being written. It must run before
// persisting any treatment whose patient/doctor came from the request,
// and before persisting a user/profile pair.
//
// The mismatch is never silently corrected; it surfaces as a field-level
// validation error.
func ValidateSameClinic(field string, referencedClinic, clinicID uuid.UUID) error {
	if referencedClinic != clinicID {
		return apperr.ValidationField(field, "must belong to the same clinic")
	}
	return nil
}
