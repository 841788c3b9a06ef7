package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"devmatch/internal/model"
)

type UserRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewUserRepository(db *pgxpool.Pool, logger *zap.Logger) *UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

func (r *UserRepository) CreateUser(ctx context.Context, u *model.User) error {
	defer observe("insert", "users", time.Now())

	query := `
        INSERT INTO users (email, password_hash, name, role)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at
    `
	err := r.db.QueryRow(ctx, query,
		u.Email,
		u.PasswordHash,
		u.Name,
		u.Role,
	).Scan(&u.ID, &u.CreatedAt)

	if err != nil {
		if !IsUniqueViolation(err) {
			r.logger.Error("Failed to create user", zap.Error(err))
		}
		return err
	}

	r.logger.Info("User created", zap.Int("id", u.ID), zap.String("role", u.Role))
	return nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	defer observe("select", "users", time.Now())

	query := `
        SELECT id, email, password_hash, name, role, rating, completed_projects, created_at
        FROM users
        WHERE email = $1
    `
	var u model.User
	err := r.db.QueryRow(ctx, query, email).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role,
		&u.Rating, &u.CompletedProjects, &u.CreatedAt,
	)
	if err != nil {
		if err != pgx.ErrNoRows {
			r.logger.Error("Failed to find user by email", zap.Error(err))
		}
		return nil, err
	}

	return &u, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id int) (*model.User, error) {
	defer observe("select", "users", time.Now())

	query := `
        SELECT id, email, password_hash, name, role, rating, completed_projects, created_at
        FROM users
        WHERE id = $1
    `
	var u model.User
	err := r.db.QueryRow(ctx, query, id).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role,
		&u.Rating, &u.CompletedProjects, &u.CreatedAt,
	)
	if err != nil {
		if err != pgx.ErrNoRows {
			r.logger.Error("Failed to find user", zap.Int("id", id), zap.Error(err))
		}
		return nil, err
	}

	return &u, nil
}
