package services

import (
	"context"
	"errors"

	"github.com/table-order/api/internal/domain"
	"github.com/table-order/api/internal/repositories"
)

// CatalogServiceDeps lists the collaborators of the catalog service.
type CatalogServiceDeps struct {
	Menu repositories.MenuRepository
}

type catalogService struct {
	menu repositories.MenuRepository
}

// NewCatalogService wires a CatalogService from its dependencies.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Menu == nil {
		return nil, errors.New("catalog service: menu repository is required")
	}
	return &catalogService{menu: deps.Menu}, nil
}

func (s *catalogService) Categories(ctx context.Context) ([]domain.MenuCategory, error) {
	categories, err := s.menu.ListCategories(ctx)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	return categories, nil
}

func (s *catalogService) Items(ctx context.Context) ([]domain.MenuItem, error) {
	items, err := s.menu.ListAvailableItems(ctx)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	return items, nil
}

func (s *catalogService) ItemsByCategory(ctx context.Context, categoryID int64) ([]domain.MenuItem, error) {
	items, err := s.menu.ListItemsByCategory(ctx, categoryID)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	return items, nil
}
