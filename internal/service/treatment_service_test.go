package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajaykumarbhatane/dental-management/internal/apperr"
	"github.com/ajaykumarbhatane/dental-management/internal/authz"
	"github.com/ajaykumarbhatane/dental-management/internal/models"
	"github.com/ajaykumarbhatane/dental-management/internal/repository"
)

type treatmentFixture struct {
	users      *fakeUserRepo
	treatments *fakeTreatmentRepo
	svc        *TreatmentService

	clinicA, clinicB   uuid.UUID
	adminA             authz.Principal
	doctorA            *models.User
	patientA, patientB *models.User
}

func newTreatmentFixture(t *testing.T) *treatmentFixture {
	t.Helper()
	f := &treatmentFixture{
		users:      newFakeUserRepo(),
		treatments: newFakeTreatmentRepo(),
		clinicA:    uuid.New(),
		clinicB:    uuid.New(),
	}
	f.svc = NewTreatmentService(f.treatments, f.users, testLogger())
	f.adminA = adminPrincipal(f.clinicA)
	f.doctorA = seedUser(f.users, f.clinicA, models.RoleDoctor, "doc@a.test")
	f.patientA = seedUser(f.users, f.clinicA, models.RolePatient, "pat@a.test")
	f.patientB = seedUser(f.users, f.clinicB, models.RolePatient, "pat@b.test")
	return f
}

func (f *treatmentFixture) doctorPrincipal() authz.Principal {
	return authz.Principal{ID: f.doctorA.ID, ClinicID: f.clinicA, Role: models.RoleDoctor}
}

func (f *treatmentFixture) patientPrincipal() authz.Principal {
	return authz.Principal{ID: f.patientA.ID, ClinicID: f.clinicA, Role: models.RolePatient}
}

func (f *treatmentFixture) createTreatment(t *testing.T, patientID uuid.UUID) *models.Treatment {
	t.Helper()
	created, err := f.svc.CreateTreatment(context.Background(), f.adminA, CreateTreatmentParams{
		PatientID:     patientID,
		TreatmentType: models.TypeBraces,
		Information:   "upper braces",
	})
	require.NoError(t, err)
	return created
}

func TestCreateTreatment(t *testing.T) {
	f := newTreatmentFixture(t)

	doctorID := f.doctorA.ID
	created, err := f.svc.CreateTreatment(context.Background(), f.doctorPrincipal(), CreateTreatmentParams{
		PatientID:     f.patientA.ID,
		DoctorID:      &doctorID,
		TreatmentType: models.TypeAligners,
		Information:   "aligner tray 1",
	})
	require.NoError(t, err)
	assert.Equal(t, f.clinicA, created.ClinicID)
	assert.Equal(t, models.StatusScheduled, created.Status, "status defaults to SCHEDULED")
	require.NotNil(t, created.DoctorID)
	assert.Equal(t, f.doctorA.ID, *created.DoctorID)
}

func TestCreateTreatmentRejectsCrossClinicPatient(t *testing.T) {
	f := newTreatmentFixture(t)

	// patientB exists, but in the other clinic: the reference fails
	// validation and nothing is persisted.
	_, err := f.svc.CreateTreatment(context.Background(), f.adminA, CreateTreatmentParams{
		PatientID:     f.patientB.ID,
		TreatmentType: models.TypeBraces,
		Information:   "upper braces",
	})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	assert.Empty(t, f.treatments.treatments)
}

func TestCreateTreatmentRejectsNonPatientReference(t *testing.T) {
	f := newTreatmentFixture(t)

	// A doctor ID in the patient slot: the role-narrowed lookup misses.
	_, err := f.svc.CreateTreatment(context.Background(), f.adminA, CreateTreatmentParams{
		PatientID:     f.doctorA.ID,
		TreatmentType: models.TypeBraces,
		Information:   "upper braces",
	})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestCreateTreatmentRejectsCrossClinicDoctor(t *testing.T) {
	f := newTreatmentFixture(t)
	doctorB := seedUser(f.users, f.clinicB, models.RoleDoctor, "doc@b.test")

	doctorID := doctorB.ID
	_, err := f.svc.CreateTreatment(context.Background(), f.adminA, CreateTreatmentParams{
		PatientID:     f.patientA.ID,
		DoctorID:      &doctorID,
		TreatmentType: models.TypeBraces,
		Information:   "upper braces",
	})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	assert.Empty(t, f.treatments.treatments)
}

func TestCreateTreatmentRequiresInformation(t *testing.T) {
	f := newTreatmentFixture(t)

	_, err := f.svc.CreateTreatment(context.Background(), f.adminA, CreateTreatmentParams{
		PatientID:     f.patientA.ID,
		TreatmentType: models.TypeBraces,
	})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestListTreatmentsIsolatedPerClinic(t *testing.T) {
	f := newTreatmentFixture(t)
	ctx := context.Background()

	mine := f.createTreatment(t, f.patientA.ID)

	// Seed the other clinic's treatment directly; its admin sees only it.
	f.treatments.add(&models.Treatment{
		ClinicID:      f.clinicB,
		PatientID:     f.patientB.ID,
		TreatmentType: models.TypeScaling,
		Information:   "cleaning",
		Status:        models.StatusOngoing,
	})

	listA, err := f.svc.ListTreatments(ctx, f.adminA, repository.TreatmentFilter{})
	require.NoError(t, err)
	require.Len(t, listA, 1)
	assert.Equal(t, mine.ID, listA[0].ID)

	adminB := adminPrincipal(f.clinicB)
	listB, err := f.svc.ListTreatments(ctx, adminB, repository.TreatmentFilter{})
	require.NoError(t, err)
	require.Len(t, listB, 1)
	assert.NotEqual(t, mine.ID, listB[0].ID)
}

func TestGetTreatmentCrossClinicIsNotFound(t *testing.T) {
	f := newTreatmentFixture(t)
	mine := f.createTreatment(t, f.patientA.ID)

	adminB := adminPrincipal(f.clinicB)
	_, err := f.svc.GetTreatment(context.Background(), adminB, mine.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestPatientListForcedToOwnTreatments(t *testing.T) {
	f := newTreatmentFixture(t)
	ctx := context.Background()

	mine := f.createTreatment(t, f.patientA.ID)
	patientA2 := seedUser(f.users, f.clinicA, models.RolePatient, "pat2@a.test")
	f.createTreatment(t, patientA2.ID)

	// Asking for someone else's treatments still returns only the
	// caller's own.
	list, err := f.svc.ListTreatments(ctx, f.patientPrincipal(),
		repository.TreatmentFilter{PatientID: patientA2.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, mine.ID, list[0].ID)
}

func TestPatientCannotReadAnotherPatientsTreatment(t *testing.T) {
	f := newTreatmentFixture(t)
	patientA2 := seedUser(f.users, f.clinicA, models.RolePatient, "pat2@a.test")
	other := f.createTreatment(t, patientA2.ID)

	_, err := f.svc.GetTreatment(context.Background(), f.patientPrincipal(), other.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindPermissionDenied))
}

func TestSoftDeleteHidesTreatmentAndRestoreBringsBack(t *testing.T) {
	f := newTreatmentFixture(t)
	ctx := context.Background()
	created := f.createTreatment(t, f.patientA.ID)

	require.NoError(t, f.svc.SoftDeleteTreatment(ctx, f.adminA, created.ID))

	_, err := f.svc.GetTreatment(ctx, f.adminA, created.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	list, err := f.svc.ListTreatments(ctx, f.adminA, repository.TreatmentFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)

	deleted, err := f.svc.ListDeletedTreatments(ctx, f.adminA)
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.Equal(t, created.ID, deleted[0].ID)

	restored, err := f.svc.RestoreTreatment(ctx, f.adminA, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, restored.ID)

	got, err := f.svc.GetTreatment(ctx, f.adminA, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestDoctorCannotDeleteTreatment(t *testing.T) {
	f := newTreatmentFixture(t)
	created := f.createTreatment(t, f.patientA.ID)

	err := f.svc.SoftDeleteTreatment(context.Background(), f.doctorPrincipal(), created.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindPermissionDenied))
}

func TestMarkCompletedAndCancelled(t *testing.T) {
	f := newTreatmentFixture(t)
	ctx := context.Background()
	created := f.createTreatment(t, f.patientA.ID)

	updated, err := f.svc.MarkCompleted(ctx, f.doctorPrincipal(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, updated.Status)

	updated, err = f.svc.MarkCancelled(ctx, f.doctorPrincipal(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, updated.Status)
}

func TestMarkCompletedDeniedForPatient(t *testing.T) {
	f := newTreatmentFixture(t)
	created := f.createTreatment(t, f.patientA.ID)

	_, err := f.svc.MarkCompleted(context.Background(), f.patientPrincipal(), created.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindPermissionDenied))
}

func TestMarkCompletedOnDeletedTreatmentIsNotFound(t *testing.T) {
	f := newTreatmentFixture(t)
	ctx := context.Background()
	created := f.createTreatment(t, f.patientA.ID)

	require.NoError(t, f.svc.SoftDeleteTreatment(ctx, f.adminA, created.ID))

	_, err := f.svc.MarkCompleted(ctx, f.adminA, created.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestUpdateTreatmentKeepsPatient(t *testing.T) {
	f := newTreatmentFixture(t)
	ctx := context.Background()
	created := f.createTreatment(t, f.patientA.ID)

	updated, err := f.svc.UpdateTreatment(ctx, f.doctorPrincipal(), created.ID, UpdateTreatmentParams{
		TreatmentType: models.TypeRetainer,
		Information:   "retainer fitting",
		Status:        models.StatusOngoing,
	})
	require.NoError(t, err)
	assert.Equal(t, models.TypeRetainer, updated.TreatmentType)
	assert.Equal(t, f.patientA.ID, updated.PatientID, "patient is immutable")
}

func TestUpdateTreatmentRejectsCrossClinicDoctor(t *testing.T) {
	f := newTreatmentFixture(t)
	created := f.createTreatment(t, f.patientA.ID)
	doctorB := seedUser(f.users, f.clinicB, models.RoleDoctor, "doc@b.test")

	doctorID := doctorB.ID
	_, err := f.svc.UpdateTreatment(context.Background(), f.adminA, created.ID, UpdateTreatmentParams{
		DoctorID:      &doctorID,
		TreatmentType: models.TypeBraces,
		Information:   "upper braces",
		Status:        models.StatusOngoing,
	})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestListTreatmentsUpcomingAndOverdueFilters(t *testing.T) {
	f := newTreatmentFixture(t)
	ctx := context.Background()
	now := time.Now()

	future := now.Add(48 * time.Hour)
	past := now.Add(-48 * time.Hour)

	upcoming := f.treatments.add(&models.Treatment{
		ClinicID:      f.clinicA,
		PatientID:     f.patientA.ID,
		TreatmentType: models.TypeBraces,
		Information:   "adjustment",
		Status:        models.StatusOngoing,
		NextVisitDate: &future,
	})
	overdue := f.treatments.add(&models.Treatment{
		ClinicID:      f.clinicA,
		PatientID:     f.patientA.ID,
		TreatmentType: models.TypeBraces,
		Information:   "missed adjustment",
		Status:        models.StatusOngoing,
		NextVisitDate: &past,
	})
	// Completed with a past date: not overdue.
	f.treatments.add(&models.Treatment{
		ClinicID:      f.clinicA,
		PatientID:     f.patientA.ID,
		TreatmentType: models.TypeBraces,
		Information:   "done",
		Status:        models.StatusCompleted,
		NextVisitDate: &past,
	})

	up, err := f.svc.ListTreatments(ctx, f.adminA, repository.TreatmentFilter{Upcoming: true, Now: now})
	require.NoError(t, err)
	require.Len(t, up, 1)
	assert.Equal(t, upcoming.ID, up[0].ID)

	over, err := f.svc.ListTreatments(ctx, f.adminA, repository.TreatmentFilter{Overdue: true, Now: now})
	require.NoError(t, err)
	require.Len(t, over, 1)
	assert.Equal(t, overdue.ID, over[0].ID)
}

func TestListTreatmentsStatusFilter(t *testing.T) {
	f := newTreatmentFixture(t)
	ctx := context.Background()

	f.createTreatment(t, f.patientA.ID) // SCHEDULED
	f.treatments.add(&models.Treatment{
		ClinicID:      f.clinicA,
		PatientID:     f.patientA.ID,
		TreatmentType: models.TypeScaling,
		Information:   "cleaning",
		Status:        models.StatusOngoing,
	})

	ongoing, err := f.svc.ListTreatments(ctx, f.adminA, repository.TreatmentFilter{Status: models.StatusOngoing})
	require.NoError(t, err)
	require.Len(t, ongoing, 1)
	assert.Equal(t, models.StatusOngoing, ongoing[0].Status)

	_, err = f.svc.ListTreatments(ctx, f.adminA, repository.TreatmentFilter{Status: "BOGUS"})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}
