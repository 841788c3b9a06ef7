package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"devmatch/internal/model"
)

const projectColumns = `
    id, owner_id, title, description, budget, timeline, skills, location,
    status, priority, category, requirements, progress, assigned_developer_id,
    start_date, end_date, is_public, views, payment_status, version,
    created_at, updated_at`

// Columns a listing may be sorted by. Anything else falls back to created_at.
var projectSortColumns = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"budget":     true,
	"title":      true,
	"views":      true,
	"progress":   true,
	"priority":   true,
	"status":     true,
}

type ProjectRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewProjectRepository(db *pgxpool.Pool, logger *zap.Logger) *ProjectRepository {
	return &ProjectRepository{
		db:     db,
		logger: logger,
	}
}

func (r *ProjectRepository) Insert(ctx context.Context, p *model.Project) (int, error) {
	defer observe("insert", "projects", time.Now())

	r.logger.Debug("Inserting project",
		zap.Int("owner_id", p.OwnerID),
		zap.String("title", p.Title),
	)

	query := `
        INSERT INTO projects (owner_id, title, description, budget, timeline,
                              skills, location, status, priority, category,
                              requirements, is_public, payment_status)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
        RETURNING id, created_at, updated_at
    `
	err := r.db.QueryRow(ctx, query,
		p.OwnerID,
		p.Title,
		p.Description,
		p.Budget,
		p.Timeline,
		p.Skills,
		p.Location,
		p.Status,
		p.Priority,
		p.Category,
		p.Requirements,
		p.IsPublic,
		p.PaymentStatus,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)

	if err != nil {
		r.logger.Error("Failed to insert project", zap.Error(err))
		return 0, err
	}

	r.logger.Info("Project inserted successfully",
		zap.Int("id", p.ID),
		zap.Int("owner_id", p.OwnerID),
	)
	return p.ID, nil
}

func (r *ProjectRepository) FindByID(ctx context.Context, id int) (*model.Project, error) {
	defer observe("select", "projects", time.Now())

	query := `SELECT` + projectColumns + ` FROM projects WHERE id = $1`

	var p model.Project
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.OwnerID, &p.Title, &p.Description, &p.Budget, &p.Timeline,
		&p.Skills, &p.Location, &p.Status, &p.Priority, &p.Category,
		&p.Requirements, &p.Progress, &p.AssignedDeveloperID,
		&p.StartDate, &p.EndDate, &p.IsPublic, &p.Views, &p.PaymentStatus,
		&p.Version, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if err != pgx.ErrNoRows {
			r.logger.Error("Failed to find project", zap.Int("id", id), zap.Error(err))
		}
		return nil, err
	}

	return &p, nil
}

// IncrementViews bumps the view counter. Best-effort: concurrent fetches may
// interleave and the caller ignores failures.
func (r *ProjectRepository) IncrementViews(ctx context.Context, id int) error {
	defer observe("update", "projects", time.Now())

	_, err := r.db.Exec(ctx, `UPDATE projects SET views = views + 1 WHERE id = $1`, id)
	return err
}

func buildProjectFilter(f model.ProjectFilters) (string, []any) {
	clauses := []string{}
	args := []any{}

	if f.OnlyPublic {
		clauses = append(clauses, "is_public = TRUE")
	}
	if len(f.Skills) > 0 {
		args = append(args, f.Skills)
		clauses = append(clauses, fmt.Sprintf("skills && $%d", len(args)))
	}
	if f.Location != "" {
		args = append(args, "%"+f.Location+"%")
		clauses = append(clauses, fmt.Sprintf("location ILIKE $%d", len(args)))
	}
	if f.MaxBudget != nil {
		args = append(args, *f.MaxBudget)
		clauses = append(clauses, fmt.Sprintf("budget <= $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		clauses = append(clauses, fmt.Sprintf("category = $%d", len(args)))
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (r *ProjectRepository) List(ctx context.Context, f model.ProjectFilters, sortBy, sortOrder string, skip, limit int) ([]model.Project, error) {
	defer observe("select", "projects", time.Now())

	where, args := buildProjectFilter(f)

	if !projectSortColumns[sortBy] {
		sortBy = "created_at"
	}
	order := "DESC"
	if strings.EqualFold(sortOrder, "asc") {
		order = "ASC"
	}

	args = append(args, limit, skip)
	query := fmt.Sprintf(
		`SELECT %s FROM projects%s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		projectColumns, where, sortBy, order, len(args)-1, len(args),
	)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list projects", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	return scanProjects(rows)
}

func (r *ProjectRepository) Count(ctx context.Context, f model.ProjectFilters) (int, error) {
	defer observe("select", "projects", time.Now())

	where, args := buildProjectFilter(f)

	var total int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM projects`+where, args...).Scan(&total)
	if err != nil {
		r.logger.Error("Failed to count projects", zap.Error(err))
		return 0, err
	}
	return total, nil
}

// Update writes every mutable field guarded by the version check. Returns
// ErrNoRowsAffected when the row is missing or the version moved.
func (r *ProjectRepository) Update(ctx context.Context, p *model.Project) error {
	defer observe("update", "projects", time.Now())

	query := `
        UPDATE projects
        SET title = $1, description = $2, budget = $3, timeline = $4,
            skills = $5, location = $6, status = $7, priority = $8,
            category = $9, requirements = $10, progress = $11,
            assigned_developer_id = $12, start_date = $13, end_date = $14,
            is_public = $15, payment_status = $16,
            version = version + 1, updated_at = now()
        WHERE id = $17 AND version = $18
    `
	tag, err := r.db.Exec(ctx, query,
		p.Title, p.Description, p.Budget, p.Timeline,
		p.Skills, p.Location, p.Status, p.Priority,
		p.Category, p.Requirements, p.Progress,
		p.AssignedDeveloperID, p.StartDate, p.EndDate,
		p.IsPublic, p.PaymentStatus,
		p.ID, p.Version,
	)
	if err != nil {
		r.logger.Error("Failed to update project", zap.Int("id", p.ID), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRowsAffected
	}

	p.Version++
	return nil
}

func (r *ProjectRepository) Delete(ctx context.Context, id int) error {
	defer observe("delete", "projects", time.Now())

	tag, err := r.db.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete project", zap.Int("id", id), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRowsAffected
	}

	r.logger.Info("Project deleted", zap.Int("id", id))
	return nil
}

func (r *ProjectRepository) ListByOwner(ctx context.Context, ownerID, limit int) ([]model.Project, error) {
	defer observe("select", "projects", time.Now())

	query := `SELECT` + projectColumns + `
        FROM projects
        WHERE owner_id = $1
        ORDER BY updated_at DESC
        LIMIT $2`

	rows, err := r.db.Query(ctx, query, ownerID, limit)
	if err != nil {
		r.logger.Error("Failed to list projects by owner", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	return scanProjects(rows)
}

func (r *ProjectRepository) ListByAssignedDeveloper(ctx context.Context, developerID, limit int) ([]model.Project, error) {
	defer observe("select", "projects", time.Now())

	query := `SELECT` + projectColumns + `
        FROM projects
        WHERE assigned_developer_id = $1
        ORDER BY updated_at DESC
        LIMIT $2`

	rows, err := r.db.Query(ctx, query, developerID, limit)
	if err != nil {
		r.logger.Error("Failed to list projects by developer", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	return scanProjects(rows)
}

func (r *ProjectRepository) CountByOwnerAndStatus(ctx context.Context, ownerID int, statuses []string) (int, error) {
	defer observe("select", "projects", time.Now())

	var total int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM projects WHERE owner_id = $1 AND status = ANY($2)`,
		ownerID, statuses,
	).Scan(&total)
	return total, err
}

func (r *ProjectRepository) CountByDeveloperAndStatus(ctx context.Context, developerID int, statuses []string) (int, error) {
	defer observe("select", "projects", time.Now())

	var total int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM projects WHERE assigned_developer_id = $1 AND status = ANY($2)`,
		developerID, statuses,
	).Scan(&total)
	return total, err
}

func (r *ProjectRepository) SumCompletedBudgetByOwner(ctx context.Context, ownerID int) (float64, error) {
	defer observe("select", "projects", time.Now())

	var total float64
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(budget), 0) FROM projects WHERE owner_id = $1 AND status = 'completed'`,
		ownerID,
	).Scan(&total)
	return total, err
}

func (r *ProjectRepository) SumCompletedBudgetByDeveloper(ctx context.Context, developerID int) (float64, error) {
	defer observe("select", "projects", time.Now())

	var total float64
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(budget), 0) FROM projects WHERE assigned_developer_id = $1 AND status = 'completed'`,
		developerID,
	).Scan(&total)
	return total, err
}

func scanProjects(rows pgx.Rows) ([]model.Project, error) {
	var projects []model.Project
	for rows.Next() {
		var p model.Project
		if err := rows.Scan(
			&p.ID, &p.OwnerID, &p.Title, &p.Description, &p.Budget, &p.Timeline,
			&p.Skills, &p.Location, &p.Status, &p.Priority, &p.Category,
			&p.Requirements, &p.Progress, &p.AssignedDeveloperID,
			&p.StartDate, &p.EndDate, &p.IsPublic, &p.Views, &p.PaymentStatus,
			&p.Version, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}
