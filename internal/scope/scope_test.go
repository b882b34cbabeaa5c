package scope

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajaykumarbhatane/dental-management/internal/apperr"
	"github.com/ajaykumarbhatane/dental-management/internal/models"
)

// Active and deleted must partition all: every row is in exactly one of
// the two, whatever its flag.
func TestViewPartition(t *testing.T) {
	for _, isDeleted := range []bool{false, true} {
		inActive := ViewActive.Matches(isDeleted)
		inDeleted := ViewDeleted.Matches(isDeleted)

		assert.True(t, ViewAll.Matches(isDeleted), "all view must contain every row")
		assert.True(t, inActive != inDeleted,
			"row with is_deleted=%v must be in exactly one of active/deleted", isDeleted)
	}
}

func TestViewSQL(t *testing.T) {
	assert.Equal(t, "is_deleted = FALSE", ViewActive.SQL())
	assert.Equal(t, "is_deleted = TRUE", ViewDeleted.SQL())
	assert.Equal(t, "TRUE", ViewAll.SQL())
}

// Joined queries qualify the flag column; the all view must stay valid
// SQL there too, never "u.TRUE".
func TestViewSQLColumn(t *testing.T) {
	assert.Equal(t, "u.is_deleted = FALSE", ViewActive.SQLColumn("u.is_deleted"))
	assert.Equal(t, "u.is_deleted = TRUE", ViewDeleted.SQLColumn("u.is_deleted"))
	assert.Equal(t, "TRUE", ViewAll.SQLColumn("u.is_deleted"))
}

func TestScopeSQL(t *testing.T) {
	clinicID := uuid.New()

	t.Run("active clinic scope", func(t *testing.T) {
		where, args := ForClinic(clinicID).SQL(1)
		assert.Equal(t, "is_deleted = FALSE AND clinic_id = $1", where)
		require.Len(t, args, 1)
		assert.Equal(t, clinicID, args[0])
	})

	t.Run("deleted view keeps clinic filter", func(t *testing.T) {
		where, args := ForClinic(clinicID).Deleted().SQL(1)
		assert.Equal(t, "is_deleted = TRUE AND clinic_id = $1", where)
		assert.Len(t, args, 1)
	})

	t.Run("role narrowing", func(t *testing.T) {
		where, args := ForClinic(clinicID).WithRole(models.RoleDoctor).SQL(2)
		assert.Equal(t, "is_deleted = FALSE AND clinic_id = $2 AND role = $3", where)
		require.Len(t, args, 2)
		assert.Equal(t, clinicID, args[0])
		assert.Equal(t, models.RoleDoctor, args[1])
	})

	t.Run("zero clinic still renders the clinic predicate", func(t *testing.T) {
		where, args := (Scope{}).SQL(1)
		assert.Contains(t, where, "clinic_id = $1")
		require.Len(t, args, 1)
		assert.Equal(t, uuid.Nil, args[0])
	})
}

func TestScopeMatches(t *testing.T) {
	clinicA := uuid.New()
	clinicB := uuid.New()
	sc := ForClinic(clinicA)

	assert.True(t, sc.Matches(clinicA, false))
	assert.False(t, sc.Matches(clinicA, true), "soft-deleted row is outside the active view")
	assert.False(t, sc.Matches(clinicB, false), "other clinic's row never matches")
	assert.False(t, sc.Matches(clinicB, true))

	deleted := sc.Deleted()
	assert.True(t, deleted.Matches(clinicA, true))
	assert.False(t, deleted.Matches(clinicA, false))
	assert.False(t, deleted.Matches(clinicB, true))
}

func TestScopeMatchesUser(t *testing.T) {
	clinicID := uuid.New()

	doctors := ForClinic(clinicID).WithRole(models.RoleDoctor)
	assert.True(t, doctors.MatchesUser(clinicID, false, models.RoleDoctor))
	assert.False(t, doctors.MatchesUser(clinicID, false, models.RolePatient))
	assert.False(t, doctors.MatchesUser(clinicID, true, models.RoleDoctor))

	anyRole := ForClinic(clinicID)
	assert.True(t, anyRole.MatchesUser(clinicID, false, models.RolePatient))
}

func TestValidateSameClinic(t *testing.T) {
	clinicA := uuid.New()
	clinicB := uuid.New()

	assert.NoError(t, ValidateSameClinic("patient_id", clinicA, clinicA))

	err := ValidateSameClinic("patient_id", clinicB, clinicA)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Fields, "patient_id")
}
