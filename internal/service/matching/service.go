// Package matching manages the applications attached to a project and the
// accept/reject decisions that drive developer assignment.
package matching

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"devmatch/internal/errs"
	"devmatch/internal/model"
	"devmatch/internal/repository"
	"devmatch/internal/service/project"
	"devmatch/pkg/metrics"
	"devmatch/pkg/mq"
)

type ProjectRepository interface {
	FindByID(ctx context.Context, id int) (*model.Project, error)
	Update(ctx context.Context, p *model.Project) error
}

type ApplicationRepository interface {
	Insert(ctx context.Context, a *model.Application) (int, error)
	FindByID(ctx context.Context, id int) (*model.Application, error)
	ListByProject(ctx context.Context, projectID int) ([]model.Application, error)
	UpdateStatus(ctx context.Context, id int, status string) error
}

type Publisher interface {
	Publish(routingKey string, payload any) error
}

// Notifier lets the engine emit the project-assigned system message after a
// successful accept. Always an explicit call (the messaging engine never
// decides on its own).
type Notifier interface {
	ProjectAssigned(ctx context.Context, p *model.Project, a *model.Application) error
}

type Service struct {
	projects     ProjectRepository
	applications ApplicationRepository
	publisher    Publisher
	notifier     Notifier
	logger       *zap.Logger
}

func NewService(projects ProjectRepository, applications ApplicationRepository, publisher Publisher, notifier Notifier, logger *zap.Logger) *Service {
	return &Service{
		projects:     projects,
		applications: applications,
		publisher:    publisher,
		notifier:     notifier,
		logger:       logger,
	}
}

type ApplyInput struct {
	Proposal         string  `json:"proposal"`
	ProposedBudget   float64 `json:"proposed_budget"`
	ProposedTimeline string  `json:"proposed_timeline"`
}

// Apply submits a developer's application to a project. One application per
// (project, developer) pair, ever; the project's own status is untouched.
func (s *Service) Apply(ctx context.Context, projectID, callerID int, callerRole string, in ApplyInput) (*model.Application, error) {
	if callerRole != model.RoleDeveloper {
		return nil, errs.ErrForbidden
	}

	var fields []errs.FieldError
	if len(in.Proposal) < 50 || len(in.Proposal) > 1000 {
		fields = append(fields, errs.Field("proposal", "must be between 50 and 1000 characters"))
	}
	if in.ProposedBudget < 0 {
		fields = append(fields, errs.Field("proposed_budget", "must be non-negative"))
	}
	if len(fields) > 0 {
		return nil, errs.Validation(fields...)
	}

	p, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}

	a := &model.Application{
		ProjectID:        projectID,
		DeveloperID:      callerID,
		Proposal:         in.Proposal,
		ProposedBudget:   in.ProposedBudget,
		ProposedTimeline: in.ProposedTimeline,
		Status:           model.ApplicationStatusPending,
	}

	if _, err := s.applications.Insert(ctx, a); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, errs.ErrDuplicateApplication
		}
		return nil, fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}

	metrics.ApplicationsSubmittedCount.Inc()
	s.logger.Info("Application submitted",
		zap.Int("application_id", a.ID),
		zap.Int("project_id", projectID),
		zap.Int("developer_id", callerID),
	)

	s.publish(mq.RoutingKeyApplicationSubmitted, mq.ApplicationSubmittedPayload{
		ProjectID:     projectID,
		ApplicationID: a.ID,
		DeveloperID:   callerID,
		OwnerID:       p.OwnerID,
		AppliedAt:     a.AppliedAt,
	})

	return a, nil
}

// ListApplications returns a project's applications. Only the owning client
// may call.
func (s *Service) ListApplications(ctx context.Context, projectID, callerID int) ([]model.Application, error) {
	p, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}
	if p.OwnerID != callerID {
		return nil, errs.ErrForbidden
	}

	apps, err := s.applications.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}
	return apps, nil
}

// Decide moves a pending application to accepted or rejected. Accepting
// assigns the developer and moves the project to in-progress behind the
// version check; a lost race surfaces as Conflict.
//
// Accepting does NOT auto-reject the other pending applications: the client
// reviews and rejects them separately.
func (s *Service) Decide(ctx context.Context, projectID, applicationID, callerID int, newStatus string) error {
	if newStatus != model.ApplicationStatusAccepted && newStatus != model.ApplicationStatusRejected {
		return errs.Validation(errs.Field("status", "must be accepted or rejected"))
	}

	p, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errs.ErrNotFound
		}
		return fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}
	if p.OwnerID != callerID {
		return errs.ErrForbidden
	}

	a, err := s.applications.FindByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errs.ErrNotFound
		}
		return fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}
	if a.ProjectID != projectID {
		return errs.ErrNotFound
	}
	if a.Status != model.ApplicationStatusPending {
		return errs.ErrConflict
	}

	if newStatus == model.ApplicationStatusRejected {
		if err := s.applications.UpdateStatus(ctx, applicationID, newStatus); err != nil {
			if errors.Is(err, repository.ErrNoRowsAffected) {
				return errs.ErrConflict
			}
			return fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
		}

		metrics.IncrementApplicationsDecided(newStatus)
		s.publish(mq.RoutingKeyApplicationRejected, mq.ApplicationDecidedPayload{
			ProjectID:     projectID,
			ApplicationID: applicationID,
			DeveloperID:   a.DeveloperID,
			OwnerID:       p.OwnerID,
			Status:        newStatus,
		})
		return nil
	}

	return s.accept(ctx, p, a)
}

func (s *Service) accept(ctx context.Context, p *model.Project, a *model.Application) error {
	if !project.CanTransition(p.Status, model.ProjectStatusInProgress) {
		return errs.ErrConflict
	}

	now := time.Now()
	p.AssignedDeveloperID = &a.DeveloperID
	p.Status = model.ProjectStatusInProgress
	if p.StartDate == nil {
		p.StartDate = &now
	}

	// Version check first: losing the race here leaves the application
	// untouched for a clean retry.
	if err := s.projects.Update(ctx, p); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return errs.ErrConflict
		}
		return fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}

	if err := s.applications.UpdateStatus(ctx, a.ID, model.ApplicationStatusAccepted); err != nil {
		s.logger.Error("Project assigned but application status update failed",
			zap.Int("project_id", p.ID),
			zap.Int("application_id", a.ID),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}
	a.Status = model.ApplicationStatusAccepted

	metrics.IncrementApplicationsDecided(model.ApplicationStatusAccepted)
	s.logger.Info("Application accepted",
		zap.Int("project_id", p.ID),
		zap.Int("application_id", a.ID),
		zap.Int("developer_id", a.DeveloperID),
	)

	s.publish(mq.RoutingKeyApplicationAccepted, mq.ApplicationDecidedPayload{
		ProjectID:     p.ID,
		ApplicationID: a.ID,
		DeveloperID:   a.DeveloperID,
		OwnerID:       p.OwnerID,
		Status:        model.ApplicationStatusAccepted,
	})

	if s.notifier != nil {
		if err := s.notifier.ProjectAssigned(ctx, p, a); err != nil {
			s.logger.Error("Failed to send project-assigned system message", zap.Error(err))
		}
	}

	return nil
}

func (s *Service) publish(routingKey string, payload any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(routingKey, payload); err != nil {
		s.logger.Error("Failed to publish event",
			zap.String("routing_key", routingKey),
			zap.Error(err),
		)
		metrics.IncrementEventsPublished(routingKey, "failed")
		return
	}
	metrics.IncrementEventsPublished(routingKey, "success")
}
