package services

import (
	"context"

	"voucher-market/internal/models"
	"voucher-market/internal/repository"
)

// CategoryService exposes the voucher categories
type CategoryService struct {
	repo *repository.Repository
}

func NewCategoryService(repo *repository.Repository) *CategoryService {
	return &CategoryService{repo: repo}
}

// List returns all categories ordered by name
func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	return s.repo.ListCategories(ctx)
}
