package materials

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

func (s *Service) List(ctx context.Context, filters ListFilters) ([]Material, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (*Material, error) {
	material, err := s.repo.Get(ctx, id)
	if err != nil {
		if err == ErrNotFound {
			return nil, fmt.Errorf("%w: material %d", httpx.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get material: %w", err)
	}
	return material, nil
}

type CreateMaterialRequest struct {
	Name      string  `json:"name" validate:"required"`
	Category  string  `json:"category" validate:"required"`
	Unit      string  `json:"unit" validate:"required,max=20"`
	UnitPrice float64 `json:"unit_price" validate:"gte=0"`
}

func (s *Service) Create(ctx context.Context, actor shared.Actor, req CreateMaterialRequest) (*Material, error) {
	if !shared.CanManageMaterials(actor) {
		return nil, fmt.Errorf("%w: catalog changes require storekeeper or admin", httpx.ErrForbidden)
	}
	material := Material{
		Name:      strings.TrimSpace(req.Name),
		Category:  strings.TrimSpace(req.Category),
		Unit:      strings.TrimSpace(req.Unit),
		UnitPrice: req.UnitPrice,
		IsActive:  true,
	}
	id, err := s.repo.Create(ctx, material)
	if err != nil {
		return nil, fmt.Errorf("create material: %w", err)
	}
	return s.repo.Get(ctx, id)
}

type UpdateMaterialRequest struct {
	Name      *string  `json:"name,omitempty"`
	Category  *string  `json:"category,omitempty"`
	Unit      *string  `json:"unit,omitempty" validate:"omitempty,max=20"`
	UnitPrice *float64 `json:"unit_price,omitempty" validate:"omitempty,gte=0"`
	IsActive  *bool    `json:"is_active,omitempty"`
}

func (s *Service) Update(ctx context.Context, actor shared.Actor, id int64, req UpdateMaterialRequest) (*Material, error) {
	if !shared.CanManageMaterials(actor) {
		return nil, fmt.Errorf("%w: catalog changes require storekeeper or admin", httpx.ErrForbidden)
	}
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		if err == ErrNotFound {
			return nil, fmt.Errorf("%w: material %d", httpx.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get material: %w", err)
	}
	if req.Name != nil {
		existing.Name = strings.TrimSpace(*req.Name)
	}
	if req.Category != nil {
		existing.Category = strings.TrimSpace(*req.Category)
	}
	if req.Unit != nil {
		existing.Unit = strings.TrimSpace(*req.Unit)
	}
	if req.UnitPrice != nil {
		existing.UnitPrice = *req.UnitPrice
	}
	if req.IsActive != nil {
		existing.IsActive = *req.IsActive
	}
	if err := s.repo.Update(ctx, id, *existing); err != nil {
		return nil, fmt.Errorf("update material: %w", err)
	}
	return s.repo.Get(ctx, id)
}
