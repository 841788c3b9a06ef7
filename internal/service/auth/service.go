// Package auth handles registration, login, and token revocation.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"devmatch/internal/errs"
	"devmatch/internal/model"
	"devmatch/internal/repository"
	"devmatch/pkg/util"
)

type UserRepository interface {
	CreateUser(ctx context.Context, u *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id int) (*model.User, error)
}

type TokenDenylist interface {
	Revoke(ctx context.Context, token string, expiry time.Time) error
	IsRevoked(ctx context.Context, token string) bool
}

var ErrInvalidCredentials = errors.New("invalid email or password")

type Service struct {
	users    UserRepository
	denylist TokenDenylist
	secret   string
	logger   *zap.Logger
}

func NewService(users UserRepository, denylist TokenDenylist, secret string, logger *zap.Logger) *Service {
	return &Service{
		users:    users,
		denylist: denylist,
		secret:   secret,
		logger:   logger,
	}
}

type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func validateRegister(in RegisterInput) []errs.FieldError {
	var fields []errs.FieldError
	if !strings.Contains(in.Email, "@") {
		fields = append(fields, errs.Field("email", "must be a valid email address"))
	}
	if len(in.Password) < 6 {
		fields = append(fields, errs.Field("password", "must be at least 6 characters"))
	}
	if len(in.Name) < 2 {
		fields = append(fields, errs.Field("name", "must be at least 2 characters"))
	}
	if in.Role != model.RoleDeveloper && in.Role != model.RoleClient {
		fields = append(fields, errs.Field("role", "must be developer or client"))
	}
	return fields
}

// Register creates a user account and returns it with a fresh token.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*model.User, string, error) {
	if fields := validateRegister(in); len(fields) > 0 {
		return nil, "", errs.Validation(fields...)
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, "", errs.Validation(errs.Field("email", "is already registered"))
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, "", fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}

	hash, err := util.HashPassword(in.Password)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}

	u := &model.User{
		Email:        email,
		PasswordHash: hash,
		Name:         in.Name,
		Role:         in.Role,
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, "", errs.Validation(errs.Field("email", "is already registered"))
		}
		return nil, "", fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}

	token, err := util.GenerateJWT(u.ID, u.Role, s.secret)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}

	s.logger.Info("User registered", zap.Int("user_id", u.ID), zap.String("role", u.Role))
	return u, token, nil
}

// Login checks credentials and returns the user with a fresh token.
func (s *Service) Login(ctx context.Context, in LoginInput) (*model.User, string, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}

	if !util.CheckPassword(in.Password, u.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := util.GenerateJWT(u.ID, u.Role, s.secret)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}

	s.logger.Info("User logged in", zap.Int("user_id", u.ID))
	return u, token, nil
}

// Logout revokes the presented token for the rest of its lifetime.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := util.ParseJWT(token, s.secret)
	if err != nil {
		return nil
	}
	if err := s.denylist.Revoke(ctx, token, claims.Expiry); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}
	s.logger.Info("Token revoked", zap.Int("user_id", claims.UserID))
	return nil
}

// Me loads the authenticated user's record.
func (s *Service) Me(ctx context.Context, userID int) (*model.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}
	return u, nil
}
