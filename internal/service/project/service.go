package project

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
	"devmatch/pkg/metrics"
	"devmatch/pkg/mq"
)

// Repository is the slice of the project store the registry needs.
type Repository interface {
	Insert(ctx context.Context, p *model.Project) (int, error)
	FindByID(ctx context.Context, id int) (*model.Project, error)
	IncrementViews(ctx context.Context, id int) error
	List(ctx context.Context, f model.ProjectFilters, sortBy, sortOrder string, skip, limit int) ([]model.Project, error)
	Count(ctx context.Context, f model.ProjectFilters) (int, error)
	Update(ctx context.Context, p *model.Project) error
	Delete(ctx context.Context, id int) error
}

// Publisher emits fire-and-forget domain events for the notification
// pipeline.
type Publisher interface {
	Publish(routingKey string, payload any) error
}

// Notifier lets the lifecycle engine emit the completion system message.
// Emission is always an explicit call, never an implicit store side effect.
type Notifier interface {
	ProjectCompleted(ctx context.Context, p *model.Project) error
}

type Service struct {
	repo      Repository
	publisher Publisher
	notifier  Notifier
	logger    *zap.Logger
}

func NewService(repo Repository, publisher Publisher, notifier Notifier, logger *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		notifier:  notifier,
		logger:    logger,
	}
}

// CreateInput carries the client-supplied fields for a new project.
type CreateInput struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Budget       float64  `json:"budget"`
	Timeline     string   `json:"timeline"`
	Skills       []string `json:"skills"`
	Location     string   `json:"location"`
	Priority     string   `json:"priority"`
	Category     string   `json:"category"`
	Requirements string   `json:"requirements"`
	IsPublic     *bool    `json:"is_public"`
}

// UpdateInput is a partial patch; nil fields are left untouched.
type UpdateInput struct {
	Title         *string   `json:"title"`
	Description   *string   `json:"description"`
	Budget        *float64  `json:"budget"`
	Timeline      *string   `json:"timeline"`
	Skills        *[]string `json:"skills"`
	Location      *string   `json:"location"`
	Status        *string   `json:"status"`
	Priority      *string   `json:"priority"`
	Category      *string   `json:"category"`
	Requirements  *string   `json:"requirements"`
	IsPublic      *bool     `json:"is_public"`
	PaymentStatus *string   `json:"payment_status"`
}

var validPriorities = map[string]bool{
	model.PriorityLow: true, model.PriorityMedium: true,
	model.PriorityHigh: true, model.PriorityUrgent: true,
}

var validPaymentStatuses = map[string]bool{
	model.PaymentStatusPending: true, model.PaymentStatusPartial: true,
	model.PaymentStatusCompleted: true, model.PaymentStatusRefunded: true,
}

func validCategory(category string) bool {
	for _, c := range model.ProjectCategories {
		if c == category {
			return true
		}
	}
	return false
}

func validateCreate(in CreateInput) error {
	var fields []errs.FieldError
	if len(in.Title) < 5 || len(in.Title) > 200 {
		fields = append(fields, errs.Field("title", "must be between 5 and 200 characters"))
	}
	if len(in.Description) < 20 || len(in.Description) > 2000 {
		fields = append(fields, errs.Field("description", "must be between 20 and 2000 characters"))
	}
	if in.Budget < 0 {
		fields = append(fields, errs.Field("budget", "must be non-negative"))
	}
	if in.Timeline == "" {
		fields = append(fields, errs.Field("timeline", "is required"))
	}
	if len(in.Skills) == 0 {
		fields = append(fields, errs.Field("skills", "at least one skill is required"))
	}
	if len(in.Location) < 2 {
		fields = append(fields, errs.Field("location", "is required"))
	}
	if in.Priority != "" && !validPriorities[in.Priority] {
		fields = append(fields, errs.Field("priority", "invalid priority"))
	}
	if in.Category != "" && !validCategory(in.Category) {
		fields = append(fields, errs.Field("category", "invalid category"))
	}
	if len(fields) > 0 {
		return errs.Validation(fields...)
	}
	return nil
}

// List returns a filtered, sorted page of projects with the pagination
// envelope.
func (s *Service) List(ctx context.Context, f model.ProjectFilters, page, limit int, sortBy, sortOrder string) ([]model.Project, model.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	skip := (page - 1) * limit

	projects, err := s.repo.List(ctx, f, sortBy, sortOrder, skip, limit)
	if err != nil {
		return nil, model.Pagination{}, fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}

	total, err := s.repo.Count(ctx, f)
	if err != nil {
		return nil, model.Pagination{}, fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}

	return projects, model.NewPagination(page, limit, total, len(projects)), nil
}

// Get fetches one project and bumps its view counter. The increment is
// best-effort: a lost update under contention is acceptable.
func (s *Service) Get(ctx context.Context, id int) (*model.Project, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}

	if err := s.repo.IncrementViews(ctx, id); err != nil {
		s.logger.Warn("Failed to increment project views",
			zap.Int("project_id", id),
			zap.Error(err),
		)
	} else {
		p.Views++
	}

	return p, nil
}

// Create stores a new project for the owner. Initial status is always open.
func (s *Service) Create(ctx context.Context, ownerID int, in CreateInput) (*model.Project, error) {
	if err := validateCreate(in); err != nil {
		return nil, err
	}

	p := &model.Project{
		OwnerID:       ownerID,
		Title:         in.Title,
		Description:   in.Description,
		Budget:        in.Budget,
		Timeline:      in.Timeline,
		Skills:        in.Skills,
		Location:      in.Location,
		Status:        model.ProjectStatusOpen,
		Priority:      model.PriorityMedium,
		Category:      "other",
		Requirements:  in.Requirements,
		IsPublic:      true,
		PaymentStatus: model.PaymentStatusPending,
		Version:       1,
	}
	if in.Priority != "" {
		p.Priority = in.Priority
	}
	if in.Category != "" {
		p.Category = in.Category
	}
	if in.IsPublic != nil {
		p.IsPublic = *in.IsPublic
	}

	if _, err := s.repo.Insert(ctx, p); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}

	metrics.ProjectsCreatedCount.Inc()
	s.logger.Info("Project created",
		zap.Int("project_id", p.ID),
		zap.Int("owner_id", ownerID),
	)
	return p, nil
}

// Update applies a partial patch. Only the owner may call; status writes are
// checked against the lifecycle graph.
func (s *Service) Update(ctx context.Context, id, callerID int, in UpdateInput) (*model.Project, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}
	if p.OwnerID != callerID {
		return nil, errs.ErrForbidden
	}

	var fields []errs.FieldError
	if in.Title != nil {
		if len(*in.Title) < 5 || len(*in.Title) > 200 {
			fields = append(fields, errs.Field("title", "must be between 5 and 200 characters"))
		} else {
			p.Title = *in.Title
		}
	}
	if in.Description != nil {
		if len(*in.Description) < 20 || len(*in.Description) > 2000 {
			fields = append(fields, errs.Field("description", "must be between 20 and 2000 characters"))
		} else {
			p.Description = *in.Description
		}
	}
	if in.Budget != nil {
		if *in.Budget < 0 {
			fields = append(fields, errs.Field("budget", "must be non-negative"))
		} else {
			p.Budget = *in.Budget
		}
	}
	if in.Timeline != nil {
		if *in.Timeline == "" {
			fields = append(fields, errs.Field("timeline", "is required"))
		} else {
			p.Timeline = *in.Timeline
		}
	}
	if in.Skills != nil {
		if len(*in.Skills) == 0 {
			fields = append(fields, errs.Field("skills", "at least one skill is required"))
		} else {
			p.Skills = *in.Skills
		}
	}
	if in.Location != nil {
		if len(*in.Location) < 2 {
			fields = append(fields, errs.Field("location", "is required"))
		} else {
			p.Location = *in.Location
		}
	}
	if in.Status != nil {
		if !CanTransitionDirect(p.Status, *in.Status) {
			fields = append(fields, errs.Field("status",
				fmt.Sprintf("cannot transition from %s to %s", p.Status, *in.Status)))
		} else {
			p.Status = *in.Status
		}
	}
	if in.Priority != nil {
		if !validPriorities[*in.Priority] {
			fields = append(fields, errs.Field("priority", "invalid priority"))
		} else {
			p.Priority = *in.Priority
		}
	}
	if in.Category != nil {
		if !validCategory(*in.Category) {
			fields = append(fields, errs.Field("category", "invalid category"))
		} else {
			p.Category = *in.Category
		}
	}
	if in.PaymentStatus != nil {
		if !validPaymentStatuses[*in.PaymentStatus] {
			fields = append(fields, errs.Field("payment_status", "invalid payment status"))
		} else {
			p.PaymentStatus = *in.PaymentStatus
		}
	}
	if in.Requirements != nil {
		p.Requirements = *in.Requirements
	}
	if in.IsPublic != nil {
		p.IsPublic = *in.IsPublic
	}
	if len(fields) > 0 {
		return nil, errs.Validation(fields...)
	}

	if err := s.repo.Update(ctx, p); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return nil, errs.ErrConflict
		}
		return nil, fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}

	return p, nil
}

// Delete removes a project. Owner-only and unconditional.
func (s *Service) Delete(ctx context.Context, id, callerID int) error {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errs.ErrNotFound
		}
		return fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}
	if p.OwnerID != callerID {
		return errs.ErrForbidden
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return errs.ErrNotFound
		}
		return fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}
	return nil
}

// UpdateProgress clamps value into [0,100] and stores it. Reaching 100 is
// the completion transition from any active state: status and end date move
// in the same guarded write. Terminal projects reject further progress
// writes so completed always means progress 100. Owner-only.
func (s *Service) UpdateProgress(ctx context.Context, id, callerID, value int) (*model.Project, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}
	if p.OwnerID != callerID {
		return nil, errs.ErrForbidden
	}

	if p.Status == model.ProjectStatusCompleted || p.Status == model.ProjectStatusCancelled {
		return nil, errs.Validation(errs.Field("progress",
			fmt.Sprintf("cannot update progress of a %s project", p.Status)))
	}

	p.Progress = ClampProgress(value)

	completing := false
	if p.Progress == 100 {
		now := time.Now()
		p.Status = model.ProjectStatusCompleted
		p.EndDate = &now
		completing = true
	}

	if err := s.repo.Update(ctx, p); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return nil, errs.ErrConflict
		}
		return nil, fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}

	if completing {
		s.logger.Info("Project completed",
			zap.Int("project_id", p.ID),
			zap.Int("owner_id", p.OwnerID),
		)

		if s.publisher != nil {
			developerID := 0
			if p.AssignedDeveloperID != nil {
				developerID = *p.AssignedDeveloperID
			}
			payload := mq.ProjectCompletedPayload{
				ProjectID:   p.ID,
				OwnerID:     p.OwnerID,
				DeveloperID: developerID,
				CompletedAt: *p.EndDate,
			}
			if err := s.publisher.Publish(mq.RoutingKeyProjectCompleted, payload); err != nil {
				s.logger.Error("Failed to publish project.completed", zap.Error(err))
				metrics.IncrementEventsPublished(mq.RoutingKeyProjectCompleted, "failed")
			} else {
				metrics.IncrementEventsPublished(mq.RoutingKeyProjectCompleted, "success")
			}
		}

		if s.notifier != nil && p.AssignedDeveloperID != nil {
			if err := s.notifier.ProjectCompleted(ctx, p); err != nil {
				s.logger.Error("Failed to send project-completed system message", zap.Error(err))
			}
		}
	}

	return p, nil
}
