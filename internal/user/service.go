package user

import (
	"context"
	"errors"
	"strings"

	"nightbite-be/internal/auth"
	"nightbite-be/internal/logger"

	"go.uber.org/zap"
)

type Service interface {
	Register(ctx context.Context, in RegisterInput) (string, *User, error)
	Login(ctx context.Context, email, password string) (string, *User, error)
	GetByID(ctx context.Context, id uint) (*User, error)
}

type service struct {
	repo      Repository
	jwtSecret []byte
}

func NewService(repo Repository, jwtSecret []byte) Service {
	return &service{repo: repo, jwtSecret: jwtSecret}
}

// selfService lists the roles a user may pick at sign-up. Admins are
// provisioned out of band.
func selfService(r auth.Role) bool {
	switch r {
	case auth.RoleCustomer, auth.RoleRestaurant, auth.RoleDeliveryPartner:
		return true
	}
	return false
}

func (s *service) Register(ctx context.Context, in RegisterInput) (string, *User, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Register"),
	)

	if !selfService(in.Role) {
		return "", nil, ErrInvalidRole
	}

	hashed, err := HashPassword(in.Password)
	if err != nil {
		log.Error("failed to hash password", zap.Error(err))
		return "", nil, err
	}

	u := &User{
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		Name:         in.Name,
		PasswordHash: hashed,
		Role:         in.Role,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if !errors.Is(err, ErrEmailExists) {
			log.Error("failed to create user", zap.Error(err))
		}
		return "", nil, err
	}

	token, err := auth.GenerateJWT(s.jwtSecret, u.ID, u.Email, u.Role)
	if err != nil {
		log.Error("failed to generate jwt", zap.Uint("user_id", u.ID), zap.Error(err))
		return "", nil, err
	}

	log.Info("user registered",
		zap.Uint("user_id", u.ID),
		zap.String("role", string(u.Role)),
	)
	return token, u, nil
}

func (s *service) Login(ctx context.Context, email, password string) (string, *User, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Login"),
	)

	u, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			log.Info("login with unknown email")
			return "", nil, ErrInvalidCredentials
		}
		log.Error("failed to load user", zap.Error(err))
		return "", nil, err
	}

	if !CheckPasswordHash(password, u.PasswordHash) {
		log.Info("password mismatch", zap.Uint("user_id", u.ID))
		return "", nil, ErrInvalidCredentials
	}

	token, err := auth.GenerateJWT(s.jwtSecret, u.ID, u.Email, u.Role)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

func (s *service) GetByID(ctx context.Context, id uint) (*User, error) {
	return s.repo.FindByID(ctx, id)
}
