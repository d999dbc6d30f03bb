package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"voucher-market/internal/models"
)

type categorySeed struct {
	name, slug, icon, description string
}

var defaultCategories = []categorySeed{
	{"Restaurants", "restaurants", "🍽️", "Restaurants, cafés and takeaways"},
	{"Shopping", "shopping", "🛍️", "Fashion, electronics and retail"},
	{"Freizeit", "freizeit", "🎡", "Leisure activities and outings"},
	{"Wellness", "wellness", "💆", "Spa, massage and relaxation"},
	{"Sport", "sport", "⚽", "Gyms, clubs and sports gear"},
	{"Kinder", "kinder", "🧸", "Toys, activities and care for children"},
	{"Bildung", "bildung", "📚", "Courses, books and learning"},
	{"Mobilität", "mobilitaet", "🚲", "Transport and mobility"},
	{"Gesundheit", "gesundheit", "🩺", "Pharmacies and health services"},
	{"Dienstleistungen", "dienstleistungen", "🧰", "Household and other services"},
}

// SeedCategories inserts the default categories, skipping slugs that already exist
func SeedCategories(ctx context.Context, db *gorm.DB) (int64, error) {
	rows := make([]models.Category, 0, len(defaultCategories))
	for _, c := range defaultCategories {
		icon, description := c.icon, c.description
		rows = append(rows, models.Category{
			Name:        c.name,
			Slug:        c.slug,
			Icon:        &icon,
			Description: &description,
		})
	}

	result := db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "slug"}}, DoNothing: true}).
		Create(&rows)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to seed categories: %w", result.Error)
	}
	return result.RowsAffected, nil
}
