package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"devmatch/internal/model"
)

type fakeProjects struct {
	owned    []model.Project
	assigned []model.Project
}

func (f *fakeProjects) ListByOwner(_ context.Context, _, limit int) ([]model.Project, error) {
	if len(f.owned) > limit {
		return f.owned[:limit], nil
	}
	return f.owned, nil
}

func (f *fakeProjects) ListByAssignedDeveloper(_ context.Context, _, limit int) ([]model.Project, error) {
	if len(f.assigned) > limit {
		return f.assigned[:limit], nil
	}
	return f.assigned, nil
}

func (f *fakeProjects) CountByOwnerAndStatus(_ context.Context, _ int, statuses []string) (int, error) {
	return f.countByStatus(f.owned, statuses), nil
}

func (f *fakeProjects) CountByDeveloperAndStatus(_ context.Context, _ int, statuses []string) (int, error) {
	return f.countByStatus(f.assigned, statuses), nil
}

func (f *fakeProjects) countByStatus(projects []model.Project, statuses []string) int {
	count := 0
	for _, p := range projects {
		for _, s := range statuses {
			if p.Status == s {
				count++
			}
		}
	}
	return count
}

func (f *fakeProjects) SumCompletedBudgetByOwner(_ context.Context, _ int) (float64, error) {
	return f.sumCompleted(f.owned), nil
}

func (f *fakeProjects) SumCompletedBudgetByDeveloper(_ context.Context, _ int) (float64, error) {
	return f.sumCompleted(f.assigned), nil
}

func (f *fakeProjects) sumCompleted(projects []model.Project) float64 {
	var sum float64
	for _, p := range projects {
		if p.Status == model.ProjectStatusCompleted {
			sum += p.Budget
		}
	}
	return sum
}

type fakeApplications struct {
	pending   int
	summaries []model.ApplicationSummary
}

func (f *fakeApplications) CountPendingByDeveloper(_ context.Context, _ int) (int, error) {
	return f.pending, nil
}

func (f *fakeApplications) CountPendingForOwnerOpenProjects(_ context.Context, _ int) (int, error) {
	return f.pending, nil
}

func (f *fakeApplications) ListByDeveloperWithProject(_ context.Context, _, _ int) ([]model.ApplicationSummary, error) {
	return f.summaries, nil
}

func (f *fakeApplications) ListByOwnerWithDeveloper(_ context.Context, _, _ int) ([]model.ApplicationSummary, error) {
	return f.summaries, nil
}

type fakeMessages struct {
	unread int
}

func (f *fakeMessages) UnreadCount(_ context.Context, _ int) (int, error) {
	return f.unread, nil
}

type fakeUsers struct {
	users map[int]*model.User
}

func (f *fakeUsers) FindByID(_ context.Context, id int) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return u, nil
}

func ts(minutesAgo int) time.Time {
	return time.Now().Add(-time.Duration(minutesAgo) * time.Minute)
}

func newTestService(projects *fakeProjects, apps *fakeApplications, messages *fakeMessages, users *fakeUsers) *Service {
	if users == nil {
		users = &fakeUsers{users: map[int]*model.User{}}
	}
	return NewService(projects, apps, messages, users, zap.NewNop())
}

func TestDeveloperStats(t *testing.T) {
	projects := &fakeProjects{assigned: []model.Project{
		{Status: model.ProjectStatusInProgress, Budget: 1000},
		{Status: model.ProjectStatusOnHold, Budget: 700},
		{Status: model.ProjectStatusCompleted, Budget: 2500},
		{Status: model.ProjectStatusCompleted, Budget: 1500},
	}}
	svc := newTestService(projects, &fakeApplications{pending: 3}, &fakeMessages{unread: 2}, nil)

	out, err := svc.Stats(context.Background(), 1, model.RoleDeveloper)
	require.NoError(t, err)
	stats, ok := out.(*model.DeveloperStats)
	require.True(t, ok)

	assert.Equal(t, 2, stats.ActiveProjects)
	assert.Equal(t, 2, stats.CompletedProjects)
	assert.Equal(t, 3, stats.PendingApplications)
	assert.Equal(t, 4000.0, stats.TotalEarnings)
	assert.Equal(t, 2, stats.UnreadMessages)
}

func TestClientStats(t *testing.T) {
	projects := &fakeProjects{owned: []model.Project{
		{Status: model.ProjectStatusOpen, Budget: 800},
		{Status: model.ProjectStatusInProgress, Budget: 1200},
		{Status: model.ProjectStatusCompleted, Budget: 3000},
	}}
	svc := newTestService(projects, &fakeApplications{pending: 5}, &fakeMessages{unread: 1}, nil)

	out, err := svc.Stats(context.Background(), 1, model.RoleClient)
	require.NoError(t, err)
	stats, ok := out.(*model.ClientStats)
	require.True(t, ok)

	assert.Equal(t, 2, stats.ActiveProjects)
	assert.Equal(t, 1, stats.CompletedProjects)
	assert.Equal(t, 3000.0, stats.TotalSpent)
	assert.Equal(t, 5, stats.PendingApplications)
	assert.Equal(t, 1, stats.UnreadMessages)
}

func TestRecentActivityMergesAndCaps(t *testing.T) {
	var assigned []model.Project
	for i := 0; i < 9; i++ {
		assigned = append(assigned, model.Project{
			Title:     "Project",
			Status:    model.ProjectStatusInProgress,
			UpdatedAt: ts(i * 10),
		})
	}
	summaries := []model.ApplicationSummary{
		{Application: model.Application{Status: model.ApplicationStatusPending, AppliedAt: ts(5)},
			Project: model.ProjectBrief{Title: "Fresh application"}},
		{Application: model.Application{Status: model.ApplicationStatusPending, AppliedAt: ts(500)},
			Project: model.ProjectBrief{Title: "Stale application"}},
	}
	svc := newTestService(&fakeProjects{assigned: assigned}, &fakeApplications{summaries: summaries}, &fakeMessages{}, nil)

	activities, err := svc.RecentActivity(context.Background(), 1, model.RoleDeveloper)
	require.NoError(t, err)

	require.Len(t, activities, 10)
	for i := 1; i < len(activities); i++ {
		assert.False(t, activities[i].Timestamp.After(activities[i-1].Timestamp))
	}

	// the newest application made the cut, the stale one did not
	titles := make(map[string]bool)
	for _, a := range activities {
		titles[a.Title] = true
	}
	assert.True(t, titles["Fresh application"])
	assert.False(t, titles["Stale application"])
}

func TestRecentActivityActions(t *testing.T) {
	owned := []model.Project{
		{Title: "Done", Status: model.ProjectStatusCompleted, UpdatedAt: ts(1)},
		{Title: "Running", Status: model.ProjectStatusInProgress, UpdatedAt: ts(2)},
		{Title: "Waiting", Status: model.ProjectStatusOpen, UpdatedAt: ts(3)},
	}
	svc := newTestService(&fakeProjects{owned: owned}, &fakeApplications{}, &fakeMessages{}, nil)

	activities, err := svc.RecentActivity(context.Background(), 1, model.RoleClient)
	require.NoError(t, err)
	require.Len(t, activities, 3)

	assert.Equal(t, "completed", activities[0].Action)
	assert.Equal(t, "started", activities[1].Action)
	assert.Equal(t, "updated", activities[2].Action)
}

func TestMyProjectsAttachesCounterpart(t *testing.T) {
	dev := 20
	projects := &fakeProjects{owned: []model.Project{
		{ID: 1, OwnerID: 10, AssignedDeveloperID: &dev, Status: model.ProjectStatusInProgress},
		{ID: 2, OwnerID: 10, Status: model.ProjectStatusOpen},
	}}
	users := &fakeUsers{users: map[int]*model.User{
		20: {ID: 20, Name: "Dana", Role: model.RoleDeveloper},
	}}
	svc := newTestService(projects, &fakeApplications{}, &fakeMessages{}, users)

	summaries, err := svc.MyProjects(context.Background(), 10, model.RoleClient)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	require.NotNil(t, summaries[0].Counterpart)
	assert.Equal(t, "Dana", summaries[0].Counterpart.Name)
	assert.Nil(t, summaries[1].Counterpart)
}

func TestMyProjectsForDeveloperUsesOwner(t *testing.T) {
	projects := &fakeProjects{assigned: []model.Project{
		{ID: 1, OwnerID: 10, Status: model.ProjectStatusInProgress},
	}}
	users := &fakeUsers{users: map[int]*model.User{
		10: {ID: 10, Name: "Casey", Role: model.RoleClient},
	}}
	svc := newTestService(projects, &fakeApplications{}, &fakeMessages{}, users)

	summaries, err := svc.MyProjects(context.Background(), 20, model.RoleDeveloper)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	require.NotNil(t, summaries[0].Counterpart)
	assert.Equal(t, "Casey", summaries[0].Counterpart.Name)
}
