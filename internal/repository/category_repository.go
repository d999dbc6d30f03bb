package repository

import (
	"context"

	"github.com/google/uuid"

	"voucher-market/internal/models"
)

// ListCategories returns all categories ordered by name
func (r *Repository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// GetCategoryByID retrieves a category by ID
func (r *Repository) GetCategoryByID(ctx context.Context, categoryID uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).Where("id = ?", categoryID).First(&category).Error; err != nil {
		return nil, translate(err)
	}
	return &category, nil
}
