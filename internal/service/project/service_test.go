package project

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"devmatch/internal/errs"
	"devmatch/internal/model"
	"devmatch/internal/repository"
)

type fakeRepo struct {
	projects map[int]*model.Project
	nextID   int
	failCAS  bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{projects: map[int]*model.Project{}, nextID: 1}
}

func (f *fakeRepo) Insert(_ context.Context, p *model.Project) (int, error) {
	p.ID = f.nextID
	f.nextID++
	cp := *p
	f.projects[p.ID] = &cp
	return p.ID, nil
}

func (f *fakeRepo) FindByID(_ context.Context, id int) (*model.Project, error) {
	p, ok := f.projects[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (f *fakeRepo) IncrementViews(_ context.Context, id int) error {
	if p, ok := f.projects[id]; ok {
		p.Views++
	}
	return nil
}

func (f *fakeRepo) List(_ context.Context, _ model.ProjectFilters, _, _ string, skip, limit int) ([]model.Project, error) {
	var out []model.Project
	for _, p := range f.projects {
		out = append(out, *p)
	}
	if skip >= len(out) {
		return nil, nil
	}
	out = out[skip:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRepo) Count(_ context.Context, _ model.ProjectFilters) (int, error) {
	return len(f.projects), nil
}

func (f *fakeRepo) Update(_ context.Context, p *model.Project) error {
	stored, ok := f.projects[p.ID]
	if !ok || f.failCAS || stored.Version != p.Version {
		return repository.ErrNoRowsAffected
	}
	cp := *p
	cp.Version++
	f.projects[p.ID] = &cp
	p.Version++
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, id int) error {
	if _, ok := f.projects[id]; !ok {
		return repository.ErrNoRowsAffected
	}
	delete(f.projects, id)
	return nil
}

type fakeNotifier struct {
	completed []int
}

func (f *fakeNotifier) ProjectCompleted(_ context.Context, p *model.Project) error {
	f.completed = append(f.completed, p.ID)
	return nil
}

func newTestService() (*Service, *fakeRepo, *fakeNotifier) {
	repo := newFakeRepo()
	notifier := &fakeNotifier{}
	return NewService(repo, nil, notifier, zap.NewNop()), repo, notifier
}

func validCreateInput() CreateInput {
	return CreateInput{
		Title:       "Build a booking platform",
		Description: "A web application for booking appointments with providers.",
		Budget:      5000,
		Timeline:    "2 months",
		Skills:      []string{"go", "postgres"},
		Location:    "Remote",
	}
}

func TestCreateAppliesDefaults(t *testing.T) {
	svc, _, _ := newTestService()

	p, err := svc.Create(context.Background(), 7, validCreateInput())
	require.NoError(t, err)

	assert.Equal(t, 7, p.OwnerID)
	assert.Equal(t, model.ProjectStatusOpen, p.Status)
	assert.Equal(t, model.PriorityMedium, p.Priority)
	assert.Equal(t, "other", p.Category)
	assert.True(t, p.IsPublic)
	assert.Equal(t, model.PaymentStatusPending, p.PaymentStatus)
	assert.Equal(t, 1, p.Version)
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := newTestService()

	in := validCreateInput()
	in.Title = "abc"
	in.Skills = nil

	_, err := svc.Create(context.Background(), 7, in)
	ve, ok := errs.AsValidation(err)
	require.True(t, ok)

	fields := make([]string, 0, len(ve.Fields))
	for _, f := range ve.Fields {
		fields = append(fields, f.Field)
	}
	assert.Contains(t, fields, "title")
	assert.Contains(t, fields, "skills")
}

func TestGetBumpsViews(t *testing.T) {
	svc, _, _ := newTestService()
	created, err := svc.Create(context.Background(), 7, validCreateInput())
	require.NoError(t, err)

	p, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Views)

	_, err = svc.Get(context.Background(), 999)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestUpdateOwnerOnly(t *testing.T) {
	svc, _, _ := newTestService()
	created, err := svc.Create(context.Background(), 7, validCreateInput())
	require.NoError(t, err)

	title := "A different but still valid title"
	_, err = svc.Update(context.Background(), created.ID, 8, UpdateInput{Title: &title})
	assert.ErrorIs(t, err, errs.ErrForbidden)
}

func TestUpdateRejectsDirectCompletion(t *testing.T) {
	svc, repo, _ := newTestService()
	created, err := svc.Create(context.Background(), 7, validCreateInput())
	require.NoError(t, err)
	repo.projects[created.ID].Status = model.ProjectStatusInProgress

	status := model.ProjectStatusCompleted
	_, err = svc.Update(context.Background(), created.ID, 7, UpdateInput{Status: &status})
	_, ok := errs.AsValidation(err)
	assert.True(t, ok)
}

func TestUpdateConflictOnLostRace(t *testing.T) {
	svc, repo, _ := newTestService()
	created, err := svc.Create(context.Background(), 7, validCreateInput())
	require.NoError(t, err)

	repo.failCAS = true
	title := "A different but still valid title"
	_, err = svc.Update(context.Background(), created.ID, 7, UpdateInput{Title: &title})
	assert.ErrorIs(t, err, errs.ErrConflict)
}

func TestUpdateProgressClamps(t *testing.T) {
	svc, repo, _ := newTestService()
	created, err := svc.Create(context.Background(), 7, validCreateInput())
	require.NoError(t, err)
	repo.projects[created.ID].Status = model.ProjectStatusInProgress

	p, err := svc.UpdateProgress(context.Background(), created.ID, 7, -10)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Progress)
}

func TestUpdateProgressCompletesAtHundred(t *testing.T) {
	svc, repo, notifier := newTestService()
	created, err := svc.Create(context.Background(), 7, validCreateInput())
	require.NoError(t, err)

	dev := 42
	repo.projects[created.ID].Status = model.ProjectStatusInProgress
	repo.projects[created.ID].AssignedDeveloperID = &dev

	p, err := svc.UpdateProgress(context.Background(), created.ID, 7, 150)
	require.NoError(t, err)

	assert.Equal(t, 100, p.Progress)
	assert.Equal(t, model.ProjectStatusCompleted, p.Status)
	require.NotNil(t, p.EndDate)
	assert.Equal(t, []int{created.ID}, notifier.completed)
}

func TestUpdateProgressCompletesFromAnyActiveStatus(t *testing.T) {
	for _, status := range []string{
		model.ProjectStatusOpen,
		model.ProjectStatusInProgress,
		model.ProjectStatusOnHold,
	} {
		svc, repo, _ := newTestService()
		created, err := svc.Create(context.Background(), 7, validCreateInput())
		require.NoError(t, err)
		repo.projects[created.ID].Status = status

		p, err := svc.UpdateProgress(context.Background(), created.ID, 7, 100)
		require.NoError(t, err, "from %s", status)
		assert.Equal(t, model.ProjectStatusCompleted, p.Status, "from %s", status)
		assert.NotNil(t, p.EndDate, "from %s", status)
	}
}

func TestUpdateProgressRejectedOnTerminalStatus(t *testing.T) {
	for _, status := range []string{
		model.ProjectStatusCompleted,
		model.ProjectStatusCancelled,
	} {
		svc, repo, _ := newTestService()
		created, err := svc.Create(context.Background(), 7, validCreateInput())
		require.NoError(t, err)
		repo.projects[created.ID].Status = status
		repo.projects[created.ID].Progress = 100

		_, err = svc.UpdateProgress(context.Background(), created.ID, 7, 50)
		_, ok := errs.AsValidation(err)
		assert.True(t, ok, "status %s", status)

		// stored progress untouched, so completed still implies 100
		assert.Equal(t, 100, repo.projects[created.ID].Progress)
		assert.Equal(t, status, repo.projects[created.ID].Status)
	}
}

func TestDeleteOwnerOnly(t *testing.T) {
	svc, _, _ := newTestService()
	created, err := svc.Create(context.Background(), 7, validCreateInput())
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(context.Background(), created.ID, 8), errs.ErrForbidden)
	assert.NoError(t, svc.Delete(context.Background(), created.ID, 7))
	assert.ErrorIs(t, svc.Delete(context.Background(), created.ID, 7), errs.ErrNotFound)
}
