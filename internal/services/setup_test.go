package services

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"voucher-market/internal/database"
	"voucher-market/internal/models"
	"voucher-market/internal/repository"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// a named in-memory database per test, shared by every connection of this handle
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), database.Config())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// SQLite has no row locks; a single connection serialises transactions instead
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db, nil))
	return db
}

func setupRepo(t *testing.T) (*gorm.DB, *repository.Repository) {
	db := setupTestDB(t)
	return db, repository.NewRepository(db)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(start time.Time) *testClock {
	return &testClock{now: start}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type world struct {
	owner    *models.User
	partner  *models.Partner
	category *models.Category
}

func seedWorld(t *testing.T, db *gorm.DB) world {
	t.Helper()

	owner := createUser(t, db, "owner@cafe.ch", models.UserRolePartner)
	partner := &models.Partner{UserID: owner.ID, BusinessName: "Café Central", IsApproved: true}
	require.NoError(t, db.Create(partner).Error)
	category := &models.Category{Name: "Restaurants", Slug: "restaurants"}
	require.NoError(t, db.Create(category).Error)

	return world{owner: owner, partner: partner, category: category}
}

func createUser(t *testing.T, db *gorm.DB, email string, role models.UserRole) *models.User {
	t.Helper()
	user := &models.User{Email: email, Role: role, AuthMethod: models.AuthMethodOTP}
	require.NoError(t, db.Create(user).Error)
	return user
}

type voucherOpt func(v *models.Voucher)

func createVoucher(t *testing.T, db *gorm.DB, w world, now time.Time, opts ...voucherOpt) *models.Voucher {
	t.Helper()
	v := &models.Voucher{
		PartnerID:   w.partner.ID,
		CategoryID:  w.category.ID,
		Title:       "Free coffee",
		Description: "One coffee of your choice",
		IsActive:    true,
		ValidFrom:   now.Add(-24 * time.Hour),
		Code:        "BABSY-TEST-" + uuid.NewString(),
	}
	for _, opt := range opts {
		opt(v)
	}
	require.NoError(t, db.Create(v).Error)
	return v
}

func withMax(n int) voucherOpt {
	return func(v *models.Voucher) { v.MaxRedemptions = &n }
}

func withUntil(t time.Time) voucherOpt {
	return func(v *models.Voucher) { v.ValidUntil = &t }
}

func withFrom(t time.Time) voucherOpt {
	return func(v *models.Voucher) { v.ValidFrom = t }
}

func inactive() voucherOpt {
	return func(v *models.Voucher) { v.IsActive = false }
}

func intPtr(n int) *int { return &n }

func strPtr(s string) *string { return &s }
