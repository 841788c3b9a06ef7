// Package dashboard aggregates a user's projects, applications, and message
// counters into the read-only views behind the dashboard endpoints.
package dashboard

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"devmatch/internal/errs"
	"devmatch/internal/model"
)

type ProjectRepository interface {
	ListByOwner(ctx context.Context, ownerID, limit int) ([]model.Project, error)
	ListByAssignedDeveloper(ctx context.Context, developerID, limit int) ([]model.Project, error)
	CountByOwnerAndStatus(ctx context.Context, ownerID int, statuses []string) (int, error)
	CountByDeveloperAndStatus(ctx context.Context, developerID int, statuses []string) (int, error)
	SumCompletedBudgetByOwner(ctx context.Context, ownerID int) (float64, error)
	SumCompletedBudgetByDeveloper(ctx context.Context, developerID int) (float64, error)
}

type ApplicationRepository interface {
	CountPendingByDeveloper(ctx context.Context, developerID int) (int, error)
	CountPendingForOwnerOpenProjects(ctx context.Context, ownerID int) (int, error)
	ListByDeveloperWithProject(ctx context.Context, developerID, limit int) ([]model.ApplicationSummary, error)
	ListByOwnerWithDeveloper(ctx context.Context, ownerID, limit int) ([]model.ApplicationSummary, error)
}

type MessageRepository interface {
	UnreadCount(ctx context.Context, userID int) (int, error)
}

type UserRepository interface {
	FindByID(ctx context.Context, id int) (*model.User, error)
}

type Service struct {
	projects     ProjectRepository
	applications ApplicationRepository
	messages     MessageRepository
	users        UserRepository
	logger       *zap.Logger
}

func NewService(projects ProjectRepository, applications ApplicationRepository, messages MessageRepository, users UserRepository, logger *zap.Logger) *Service {
	return &Service{
		projects:     projects,
		applications: applications,
		messages:     messages,
		users:        users,
		logger:       logger,
	}
}

const (
	activityLimit    = 10
	summaryLimit     = 100
	activityScanSize = 20
)

// Stats returns the role-appropriate counters for the user.
func (s *Service) Stats(ctx context.Context, userID int, role string) (any, error) {
	unread, err := s.messages.UnreadCount(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}

	if role == model.RoleDeveloper {
		return s.developerStats(ctx, userID, unread)
	}
	return s.clientStats(ctx, userID, unread)
}

func (s *Service) developerStats(ctx context.Context, userID, unread int) (*model.DeveloperStats, error) {
	active, err := s.projects.CountByDeveloperAndStatus(ctx, userID, []string{model.ProjectStatusInProgress, model.ProjectStatusOnHold})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}
	completed, err := s.projects.CountByDeveloperAndStatus(ctx, userID, []string{model.ProjectStatusCompleted})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}
	pending, err := s.applications.CountPendingByDeveloper(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}
	earnings, err := s.projects.SumCompletedBudgetByDeveloper(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}

	return &model.DeveloperStats{
		ActiveProjects:      active,
		CompletedProjects:   completed,
		PendingApplications: pending,
		TotalEarnings:       earnings,
		UnreadMessages:      unread,
	}, nil
}

func (s *Service) clientStats(ctx context.Context, userID, unread int) (*model.ClientStats, error) {
	active, err := s.projects.CountByOwnerAndStatus(ctx, userID, []string{model.ProjectStatusOpen, model.ProjectStatusInProgress, model.ProjectStatusOnHold})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}
	completed, err := s.projects.CountByOwnerAndStatus(ctx, userID, []string{model.ProjectStatusCompleted})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}
	spent, err := s.projects.SumCompletedBudgetByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}
	pending, err := s.applications.CountPendingForOwnerOpenProjects(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}

	return &model.ClientStats{
		ActiveProjects:      active,
		CompletedProjects:   completed,
		TotalSpent:          spent,
		PendingApplications: pending,
		UnreadMessages:      unread,
	}, nil
}

// RecentActivity merges the user's latest project and application events into
// a single feed, newest first, capped at ten entries.
func (s *Service) RecentActivity(ctx context.Context, userID int, role string) ([]model.Activity, error) {
	var activities []model.Activity

	if role == model.RoleDeveloper {
		projects, err := s.projects.ListByAssignedDeveloper(ctx, userID, activityScanSize)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
		}
		for _, p := range projects {
			activities = append(activities, model.Activity{
				Type:      "project",
				Action:    projectAction(p.Status),
				Title:     p.Title,
				Status:    p.Status,
				Timestamp: p.UpdatedAt,
			})
		}

		apps, err := s.applications.ListByDeveloperWithProject(ctx, userID, activityScanSize)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
		}
		for _, a := range apps {
			activities = append(activities, model.Activity{
				Type:      "application",
				Action:    "applied",
				Title:     a.Project.Title,
				Status:    a.Application.Status,
				Timestamp: a.Application.AppliedAt,
			})
		}
	} else {
		projects, err := s.projects.ListByOwner(ctx, userID, activityScanSize)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
		}
		for _, p := range projects {
			activities = append(activities, model.Activity{
				Type:      "project",
				Action:    projectAction(p.Status),
				Title:     p.Title,
				Status:    p.Status,
				Timestamp: p.UpdatedAt,
			})
		}
	}

	sort.Slice(activities, func(i, j int) bool {
		return activities[i].Timestamp.After(activities[j].Timestamp)
	})
	if len(activities) > activityLimit {
		activities = activities[:activityLimit]
	}
	return activities, nil
}

func projectAction(status string) string {
	switch status {
	case model.ProjectStatusCompleted:
		return "completed"
	case model.ProjectStatusInProgress:
		return "started"
	default:
		return "updated"
	}
}

// MyProjects returns the user's projects with the counterpart attached: the
// assigned developer for clients, the owner for developers.
func (s *Service) MyProjects(ctx context.Context, userID int, role string) ([]model.ProjectSummary, error) {
	var (
		projects []model.Project
		err      error
	)
	if role == model.RoleDeveloper {
		projects, err = s.projects.ListByAssignedDeveloper(ctx, userID, summaryLimit)
	} else {
		projects, err = s.projects.ListByOwner(ctx, userID, summaryLimit)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}

	summaries := make([]model.ProjectSummary, 0, len(projects))
	for _, p := range projects {
		summary := model.ProjectSummary{Project: p}

		counterpartID := p.OwnerID
		if role != model.RoleDeveloper {
			if p.AssignedDeveloperID == nil {
				summaries = append(summaries, summary)
				continue
			}
			counterpartID = *p.AssignedDeveloperID
		}

		u, err := s.users.FindByID(ctx, counterpartID)
		if err != nil {
			if err != pgx.ErrNoRows {
				s.logger.Warn("Failed to load counterpart user",
					zap.Int("user_id", counterpartID),
					zap.Error(err),
				)
			}
			summaries = append(summaries, summary)
			continue
		}
		pub := u.Public()
		summary.Counterpart = &pub
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// MyApplications returns applications relevant to the user: their own for
// developers, those received on their projects for clients.
func (s *Service) MyApplications(ctx context.Context, userID int, role string) ([]model.ApplicationSummary, error) {
	var (
		apps []model.ApplicationSummary
		err  error
	)
	if role == model.RoleDeveloper {
		apps, err = s.applications.ListByDeveloperWithProject(ctx, userID, summaryLimit)
	} else {
		apps, err = s.applications.ListByOwnerWithDeveloper(ctx, userID, summaryLimit)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}
	return apps, nil
}
