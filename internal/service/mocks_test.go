package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ajaykumarbhatane/dental-management/internal/apperr"
	"github.com/ajaykumarbhatane/dental-management/internal/models"
	"github.com/ajaykumarbhatane/dental-management/internal/repository"
	"github.com/ajaykumarbhatane/dental-management/internal/scope"
)

// Hand-written in-memory fakes for the repository interfaces. They apply
// the same scope predicates the SQL stores render, so scoping behavior
// is exercised end to end without a database.

func testLogger() *zap.Logger { return zap.NewNop() }

type fakeUserRepo struct {
	users    map[uuid.UUID]*models.User
	profiles *fakeProfileRepo

	// failProfile makes CreatePatient fail its profile insert; the user
	// row is not persisted either, matching the transactional contract.
	failProfile bool
}

func newFakeUserRepo() *fakeUserRepo {
	u := &fakeUserRepo{users: make(map[uuid.UUID]*models.User)}
	u.profiles = &fakeProfileRepo{
		byUserID: make(map[uuid.UUID]*models.PatientProfile),
		users:    u,
	}
	return u
}

func (r *fakeUserRepo) add(u *models.User) *models.User {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	cp := *u
	r.users[cp.ID] = &cp
	return &cp
}

func (r *fakeUserRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return nil, apperr.ValidationField("email", "a user with this email already exists")
		}
	}
	u.IsActive = true
	created := r.add(u)
	out := *created
	return &out, nil
}

func (r *fakeUserRepo) CreatePatient(ctx context.Context, u *models.User, profile *models.PatientProfile) (*models.User, *models.PatientProfile, error) {
	if r.failProfile {
		return nil, nil, apperr.Integrity("create patient profile", errors.New("insert failed"))
	}
	created, err := r.Create(ctx, u)
	if err != nil {
		return nil, nil, err
	}
	p := *profile
	p.ID = uuid.New()
	p.UserID = created.ID
	p.ClinicID = created.ClinicID
	r.profiles.byUserID[p.UserID] = &p
	out := p
	return created, &out, nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, s scope.Scope, userID uuid.UUID) (*models.User, error) {
	u, ok := r.users[userID]
	if !ok || !s.MatchesUser(u.ClinicID, u.IsDeleted, u.Role) {
		return nil, nil
	}
	out := *u
	return &out, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range r.users {
		if u.Email == email && !u.IsDeleted {
			out := *u
			return &out, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) List(_ context.Context, s scope.Scope) ([]models.User, error) {
	var out []models.User
	for _, u := range r.users {
		if s.MatchesUser(u.ClinicID, u.IsDeleted, u.Role) {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (r *fakeUserRepo) Update(_ context.Context, u *models.User) error {
	stored, ok := r.users[u.ID]
	if !ok {
		return apperr.NotFound("user")
	}
	cp := *u
	cp.Role = stored.Role
	cp.ClinicID = stored.ClinicID
	r.users[u.ID] = &cp
	return nil
}

func (r *fakeUserRepo) UpdatePassword(_ context.Context, userID uuid.UUID, passwordHash string) error {
	u, ok := r.users[userID]
	if !ok {
		return apperr.NotFound("user")
	}
	u.PasswordHash = passwordHash
	return nil
}

func (r *fakeUserRepo) SoftDelete(_ context.Context, clinicID, userID uuid.UUID, deletedBy uuid.UUID) error {
	u, ok := r.users[userID]
	if ok && u.ClinicID == clinicID {
		u.IsDeleted = true
		u.UpdatedBy = &deletedBy
	}
	return nil
}

func (r *fakeUserRepo) Restore(_ context.Context, clinicID, userID uuid.UUID, restoredBy uuid.UUID) error {
	u, ok := r.users[userID]
	if ok && u.ClinicID == clinicID {
		u.IsDeleted = false
		u.UpdatedBy = &restoredBy
	}
	return nil
}

type fakeProfileRepo struct {
	byUserID map[uuid.UUID]*models.PatientProfile
	users    *fakeUserRepo
}

// visible mirrors the SQL store's join: a profile is in scope when its
// owning user is.
func (r *fakeProfileRepo) visible(s scope.Scope, p *models.PatientProfile) bool {
	u, ok := r.users.users[p.UserID]
	if !ok {
		return false
	}
	return s.Matches(p.ClinicID, u.IsDeleted)
}

func (r *fakeProfileRepo) GetByUserID(_ context.Context, s scope.Scope, userID uuid.UUID) (*models.PatientProfile, error) {
	p, ok := r.byUserID[userID]
	if !ok || !r.visible(s, p) {
		return nil, nil
	}
	out := *p
	return &out, nil
}

func (r *fakeProfileRepo) List(_ context.Context, s scope.Scope) ([]models.PatientProfile, error) {
	var out []models.PatientProfile
	for _, p := range r.byUserID {
		if r.visible(s, p) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakeProfileRepo) Update(_ context.Context, p *models.PatientProfile) error {
	stored, ok := r.byUserID[p.UserID]
	if !ok {
		return apperr.NotFound("profile")
	}
	cp := *p
	cp.ClinicID = stored.ClinicID
	r.byUserID[p.UserID] = &cp
	return nil
}

type fakeTreatmentRepo struct {
	treatments map[uuid.UUID]*models.Treatment
}

func newFakeTreatmentRepo() *fakeTreatmentRepo {
	return &fakeTreatmentRepo{treatments: make(map[uuid.UUID]*models.Treatment)}
}

func (r *fakeTreatmentRepo) add(t *models.Treatment) *models.Treatment {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	cp := *t
	r.treatments[cp.ID] = &cp
	return &cp
}

func (r *fakeTreatmentRepo) Create(_ context.Context, t *models.Treatment) (*models.Treatment, error) {
	created := r.add(t)
	out := *created
	return &out, nil
}

func (r *fakeTreatmentRepo) GetByID(_ context.Context, s scope.Scope, treatmentID uuid.UUID) (*models.Treatment, error) {
	t, ok := r.treatments[treatmentID]
	if !ok || !s.Matches(t.ClinicID, t.IsDeleted) {
		return nil, nil
	}
	out := *t
	return &out, nil
}

func (r *fakeTreatmentRepo) List(_ context.Context, s scope.Scope, f repository.TreatmentFilter) ([]models.Treatment, error) {
	var out []models.Treatment
	for _, t := range r.treatments {
		if !s.Matches(t.ClinicID, t.IsDeleted) {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.PatientID != uuid.Nil && t.PatientID != f.PatientID {
			continue
		}
		if f.Upcoming && !t.IsUpcoming(f.Now) {
			continue
		}
		if f.Overdue && !t.IsOverdue(f.Now) {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (r *fakeTreatmentRepo) Update(_ context.Context, t *models.Treatment) error {
	stored, ok := r.treatments[t.ID]
	if !ok {
		return apperr.NotFound("treatment")
	}
	cp := *t
	cp.ClinicID = stored.ClinicID
	cp.PatientID = stored.PatientID
	r.treatments[t.ID] = &cp
	return nil
}

func (r *fakeTreatmentRepo) SetStatus(_ context.Context, clinicID, treatmentID uuid.UUID, status models.TreatmentStatus, updatedBy uuid.UUID) (*models.Treatment, error) {
	t, ok := r.treatments[treatmentID]
	if !ok || t.ClinicID != clinicID || t.IsDeleted {
		return nil, nil
	}
	t.Status = status
	t.UpdatedBy = &updatedBy
	out := *t
	return &out, nil
}

func (r *fakeTreatmentRepo) SetImagePath(_ context.Context, clinicID, treatmentID uuid.UUID, path string, updatedBy uuid.UUID) error {
	t, ok := r.treatments[treatmentID]
	if !ok || t.ClinicID != clinicID || t.IsDeleted {
		return apperr.NotFound("treatment")
	}
	t.ImagePath = path
	t.UpdatedBy = &updatedBy
	return nil
}

func (r *fakeTreatmentRepo) SoftDelete(_ context.Context, clinicID, treatmentID uuid.UUID, deletedBy uuid.UUID) error {
	t, ok := r.treatments[treatmentID]
	if ok && t.ClinicID == clinicID {
		t.IsDeleted = true
		t.UpdatedBy = &deletedBy
	}
	return nil
}

func (r *fakeTreatmentRepo) Restore(_ context.Context, clinicID, treatmentID uuid.UUID, restoredBy uuid.UUID) error {
	t, ok := r.treatments[treatmentID]
	if ok && t.ClinicID == clinicID {
		t.IsDeleted = false
		t.UpdatedBy = &restoredBy
	}
	return nil
}

type fakeClinicRepo struct {
	clinics map[uuid.UUID]*models.Clinic
	stats   map[uuid.UUID]*models.ClinicStats
}

func newFakeClinicRepo() *fakeClinicRepo {
	return &fakeClinicRepo{
		clinics: make(map[uuid.UUID]*models.Clinic),
		stats:   make(map[uuid.UUID]*models.ClinicStats),
	}
}

func (r *fakeClinicRepo) add(c *models.Clinic) *models.Clinic {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	cp := *c
	r.clinics[cp.ID] = &cp
	return &cp
}

func (r *fakeClinicRepo) Create(_ context.Context, name, contactNumber, address, description string) (*models.Clinic, error) {
	for _, c := range r.clinics {
		if c.Name == name && !c.IsDeleted {
			return nil, apperr.ValidationField("name", "a clinic with this name already exists")
		}
	}
	created := r.add(&models.Clinic{
		Name:          name,
		ContactNumber: contactNumber,
		Address:       address,
		Description:   description,
		IsActive:      true,
	})
	out := *created
	return &out, nil
}

func (r *fakeClinicRepo) CreateWithAdmin(ctx context.Context, name, contactNumber, address, description string, admin *models.User) (*models.Clinic, *models.User, error) {
	clinic, err := r.Create(ctx, name, contactNumber, address, description)
	if err != nil {
		return nil, nil, err
	}
	a := *admin
	a.ID = uuid.New()
	a.ClinicID = clinic.ID
	a.Role = models.RoleAdmin
	a.IsActive = true
	return clinic, &a, nil
}

func (r *fakeClinicRepo) GetByID(_ context.Context, view scope.View, clinicID uuid.UUID) (*models.Clinic, error) {
	c, ok := r.clinics[clinicID]
	if !ok || !view.Matches(c.IsDeleted) {
		return nil, nil
	}
	out := *c
	return &out, nil
}

func (r *fakeClinicRepo) Update(_ context.Context, c *models.Clinic) error {
	if _, ok := r.clinics[c.ID]; !ok {
		return apperr.NotFound("clinic")
	}
	cp := *c
	r.clinics[c.ID] = &cp
	return nil
}

func (r *fakeClinicRepo) SoftDelete(_ context.Context, clinicID uuid.UUID) error {
	if c, ok := r.clinics[clinicID]; ok {
		c.IsDeleted = true
	}
	return nil
}

func (r *fakeClinicRepo) Restore(_ context.Context, clinicID uuid.UUID) error {
	if c, ok := r.clinics[clinicID]; ok {
		c.IsDeleted = false
	}
	return nil
}

func (r *fakeClinicRepo) Stats(_ context.Context, clinicID uuid.UUID, _ time.Time) (*models.ClinicStats, error) {
	if s, ok := r.stats[clinicID]; ok {
		out := *s
		return &out, nil
	}
	return &models.ClinicStats{}, nil
}

type fakeStatsCache struct {
	entries map[uuid.UUID]*models.ClinicStats
	hits    int
	sets    int
}

func newFakeStatsCache() *fakeStatsCache {
	return &fakeStatsCache{entries: make(map[uuid.UUID]*models.ClinicStats)}
}

func (c *fakeStatsCache) GetClinicStats(_ context.Context, clinicID uuid.UUID) *models.ClinicStats {
	if s, ok := c.entries[clinicID]; ok {
		c.hits++
		out := *s
		return &out
	}
	return nil
}

func (c *fakeStatsCache) SetClinicStats(_ context.Context, clinicID uuid.UUID, stats *models.ClinicStats, _ time.Duration) {
	cp := *stats
	c.entries[clinicID] = &cp
	c.sets++
}
