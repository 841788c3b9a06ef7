package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"devmatch/internal/model"
)

const applicationColumns = `
    id, project_id, developer_id, proposal, proposed_budget,
    proposed_timeline, status, applied_at`

type ApplicationRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewApplicationRepository(db *pgxpool.Pool, logger *zap.Logger) *ApplicationRepository {
	return &ApplicationRepository{
		db:     db,
		logger: logger,
	}
}

// Insert adds an application. The UNIQUE (project_id, developer_id)
// constraint enforces one application per developer per project, ever;
// callers detect the violation with IsUniqueViolation.
func (r *ApplicationRepository) Insert(ctx context.Context, a *model.Application) (int, error) {
	defer observe("insert", "applications", time.Now())

	r.logger.Debug("Inserting application",
		zap.Int("project_id", a.ProjectID),
		zap.Int("developer_id", a.DeveloperID),
	)

	query := `
        INSERT INTO applications (project_id, developer_id, proposal,
                                  proposed_budget, proposed_timeline, status)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, applied_at
    `
	err := r.db.QueryRow(ctx, query,
		a.ProjectID,
		a.DeveloperID,
		a.Proposal,
		a.ProposedBudget,
		a.ProposedTimeline,
		a.Status,
	).Scan(&a.ID, &a.AppliedAt)

	if err != nil {
		if !IsUniqueViolation(err) {
			r.logger.Error("Failed to insert application", zap.Error(err))
		}
		return 0, err
	}

	r.logger.Info("Application inserted successfully",
		zap.Int("id", a.ID),
		zap.Int("project_id", a.ProjectID),
		zap.Int("developer_id", a.DeveloperID),
	)
	return a.ID, nil
}

func (r *ApplicationRepository) FindByID(ctx context.Context, id int) (*model.Application, error) {
	defer observe("select", "applications", time.Now())

	query := `SELECT` + applicationColumns + ` FROM applications WHERE id = $1`

	var a model.Application
	err := r.db.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.ProjectID, &a.DeveloperID, &a.Proposal, &a.ProposedBudget,
		&a.ProposedTimeline, &a.Status, &a.AppliedAt,
	)
	if err != nil {
		if err != pgx.ErrNoRows {
			r.logger.Error("Failed to find application", zap.Int("id", id), zap.Error(err))
		}
		return nil, err
	}

	return &a, nil
}

func (r *ApplicationRepository) ListByProject(ctx context.Context, projectID int) ([]model.Application, error) {
	defer observe("select", "applications", time.Now())

	query := `SELECT` + applicationColumns + `
        FROM applications
        WHERE project_id = $1
        ORDER BY applied_at ASC`

	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		r.logger.Error("Failed to list applications", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	return scanApplications(rows)
}

// UpdateStatus moves a pending application to accepted or rejected. The
// status guard in the WHERE clause makes decided applications immutable.
func (r *ApplicationRepository) UpdateStatus(ctx context.Context, id int, status string) error {
	defer observe("update", "applications", time.Now())

	tag, err := r.db.Exec(ctx,
		`UPDATE applications SET status = $1 WHERE id = $2 AND status = 'pending'`,
		status, id,
	)
	if err != nil {
		r.logger.Error("Failed to update application status",
			zap.Int("id", id),
			zap.String("status", status),
			zap.Error(err),
		)
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRowsAffected
	}

	r.logger.Info("Application status updated",
		zap.Int("id", id),
		zap.String("status", status),
	)
	return nil
}

func (r *ApplicationRepository) CountPendingByDeveloper(ctx context.Context, developerID int) (int, error) {
	defer observe("select", "applications", time.Now())

	var total int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM applications WHERE developer_id = $1 AND status = 'pending'`,
		developerID,
	).Scan(&total)
	return total, err
}

// CountPendingForOwnerOpenProjects counts pending applications across the
// owner's projects that are still open.
func (r *ApplicationRepository) CountPendingForOwnerOpenProjects(ctx context.Context, ownerID int) (int, error) {
	defer observe("select", "applications", time.Now())

	var total int
	err := r.db.QueryRow(ctx, `
        SELECT COUNT(*)
        FROM applications a
        JOIN projects p ON p.id = a.project_id
        WHERE p.owner_id = $1 AND p.status = 'open' AND a.status = 'pending'`,
		ownerID,
	).Scan(&total)
	return total, err
}

// ListByDeveloperWithProject returns a developer's applications joined with
// the project brief and the owning client's public fields, newest first.
func (r *ApplicationRepository) ListByDeveloperWithProject(ctx context.Context, developerID, limit int) ([]model.ApplicationSummary, error) {
	defer observe("select", "applications", time.Now())

	query := `
        SELECT a.id, a.project_id, a.developer_id, a.proposal, a.proposed_budget,
               a.proposed_timeline, a.status, a.applied_at,
               p.id, p.title, p.budget, p.timeline, p.status,
               u.id, u.name, u.role, u.rating, u.completed_projects
        FROM applications a
        JOIN projects p ON p.id = a.project_id
        JOIN users u ON u.id = p.owner_id
        WHERE a.developer_id = $1
        ORDER BY a.applied_at DESC
        LIMIT $2`

	rows, err := r.db.Query(ctx, query, developerID, limit)
	if err != nil {
		r.logger.Error("Failed to list developer applications", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	return scanApplicationSummaries(rows)
}

// ListByOwnerWithDeveloper returns every application across the owner's
// projects joined with the applying developer's public fields.
func (r *ApplicationRepository) ListByOwnerWithDeveloper(ctx context.Context, ownerID, limit int) ([]model.ApplicationSummary, error) {
	defer observe("select", "applications", time.Now())

	query := `
        SELECT a.id, a.project_id, a.developer_id, a.proposal, a.proposed_budget,
               a.proposed_timeline, a.status, a.applied_at,
               p.id, p.title, p.budget, p.timeline, p.status,
               u.id, u.name, u.role, u.rating, u.completed_projects
        FROM applications a
        JOIN projects p ON p.id = a.project_id
        JOIN users u ON u.id = a.developer_id
        WHERE p.owner_id = $1
        ORDER BY p.updated_at DESC, a.applied_at DESC
        LIMIT $2`

	rows, err := r.db.Query(ctx, query, ownerID, limit)
	if err != nil {
		r.logger.Error("Failed to list owner applications", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	return scanApplicationSummaries(rows)
}

func scanApplications(rows pgx.Rows) ([]model.Application, error) {
	var applications []model.Application
	for rows.Next() {
		var a model.Application
		if err := rows.Scan(
			&a.ID, &a.ProjectID, &a.DeveloperID, &a.Proposal, &a.ProposedBudget,
			&a.ProposedTimeline, &a.Status, &a.AppliedAt,
		); err != nil {
			return nil, err
		}
		applications = append(applications, a)
	}
	return applications, rows.Err()
}

func scanApplicationSummaries(rows pgx.Rows) ([]model.ApplicationSummary, error) {
	var summaries []model.ApplicationSummary
	for rows.Next() {
		var s model.ApplicationSummary
		if err := rows.Scan(
			&s.Application.ID, &s.Application.ProjectID, &s.Application.DeveloperID,
			&s.Application.Proposal, &s.Application.ProposedBudget,
			&s.Application.ProposedTimeline, &s.Application.Status, &s.Application.AppliedAt,
			&s.Project.ID, &s.Project.Title, &s.Project.Budget,
			&s.Project.Timeline, &s.Project.Status,
			&s.Counterpart.ID, &s.Counterpart.Name, &s.Counterpart.Role,
			&s.Counterpart.Rating, &s.Counterpart.CompletedProjects,
		); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}
