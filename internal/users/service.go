package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/sfv-tech/sfv-ops/internal/platform/httpx"
	"github.com/sfv-tech/sfv-ops/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns a single user.
func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		if err == ErrNotFound {
			return nil, fmt.Errorf("%w: user %d", httpx.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// ResolveActor loads the actor view for an authenticated user id. Inactive
// accounts do not resolve.
func (s *Service) ResolveActor(ctx context.Context, id int64) (shared.Actor, error) {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		if err == ErrNotFound {
			return shared.Actor{}, fmt.Errorf("%w: unknown user", httpx.ErrUnauthorized)
		}
		return shared.Actor{}, fmt.Errorf("resolve actor: %w", err)
	}
	if !user.IsActive {
		return shared.Actor{}, fmt.Errorf("%w: account disabled", httpx.ErrUnauthorized)
	}
	return user.Actor(), nil
}

func (s *Service) List(ctx context.Context, actor shared.Actor, filters ListFilters) ([]User, int, error) {
	if !shared.CanManageUsers(actor) {
		return nil, 0, fmt.Errorf("%w: user administration requires admin", httpx.ErrForbidden)
	}
	return s.repo.List(ctx, filters)
}

type CreateUserRequest struct {
	FullName string  `json:"full_name" validate:"required"`
	Email    string  `json:"email" validate:"required,email"`
	Phone    *string `json:"phone,omitempty"`
	Role     string  `json:"role" validate:"required"`
}

func (s *Service) Create(ctx context.Context, actor shared.Actor, req CreateUserRequest) (*User, error) {
	if !shared.CanManageUsers(actor) {
		return nil, fmt.Errorf("%w: user administration requires admin", httpx.ErrForbidden)
	}
	role, err := shared.ParseRole(req.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	user := User{
		FullName: strings.TrimSpace(req.FullName),
		Email:    strings.TrimSpace(req.Email),
		Phone:    req.Phone,
		Role:     role,
		IsActive: true,
	}
	id, err := s.repo.Create(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return s.repo.Get(ctx, id)
}

type UpdateUserRequest struct {
	FullName *string `json:"full_name,omitempty"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone    *string `json:"phone,omitempty"`
	Role     *string `json:"role,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

func (s *Service) Update(ctx context.Context, actor shared.Actor, id int64, req UpdateUserRequest) (*User, error) {
	if !shared.CanManageUsers(actor) {
		return nil, fmt.Errorf("%w: user administration requires admin", httpx.ErrForbidden)
	}
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		if err == ErrNotFound {
			return nil, fmt.Errorf("%w: user %d", httpx.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if req.FullName != nil {
		existing.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Email != nil {
		existing.Email = strings.TrimSpace(*req.Email)
	}
	if req.Phone != nil {
		existing.Phone = req.Phone
	}
	if req.Role != nil {
		role, err := shared.ParseRole(*req.Role)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
		}
		existing.Role = role
	}
	if req.IsActive != nil {
		existing.IsActive = *req.IsActive
	}
	if err := s.repo.Update(ctx, id, *existing); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return s.repo.Get(ctx, id)
}
