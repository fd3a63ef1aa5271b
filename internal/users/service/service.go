package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ms-checkin/internal/access"
	"ms-checkin/internal/clock"
	"ms-checkin/internal/logger"
	"ms-checkin/internal/models"
)

type DBLayer interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

// TokenIssuer signs a session token for a user. Nil when tokens come from an external provider.
type TokenIssuer interface {
	Issue(user *models.User) (string, time.Time, error)
}

type UserService struct {
	DB     DBLayer
	Tokens TokenIssuer
	Clock  clock.Clock
	Logger *logger.Logger
}

func NewUserService(db DBLayer, tokens TokenIssuer, clk clock.Clock, log *logger.Logger) *UserService {
	return &UserService{DB: db, Tokens: tokens, Clock: clk, Logger: log}
}

// Login resolves the account for email. There is no credential check: callers are
// expected to sit behind an identity provider in production.
func (s *UserService) Login(ctx context.Context, email string) (*models.LoginResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", models.ErrValidation)
	}

	user, err := s.DB.GetByEmail(ctx, email)
	if errors.Is(err, models.ErrUserNotFound) {
		s.Logger.LogSecurity("LOGIN_FAILED", email)
		return nil, fmt.Errorf("%w: invalid credentials", models.ErrUnauthenticated)
	}
	if err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	if err := s.DB.TouchLastLogin(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.LastLoginAt = now
	access.Resolve(user)

	resp := &models.LoginResponse{User: user}
	if s.Tokens != nil {
		token, exp, err := s.Tokens.Issue(user)
		if err != nil {
			return nil, err
		}
		resp.Token = token
		resp.ExpiresAt = exp
	}
	s.Logger.Info("AUTH", fmt.Sprintf("User %s logged in as %s", user.ID, user.Role))
	return resp, nil
}

func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.DB.GetByID(ctx, id)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.DB.GetByEmail(ctx, email)
}
