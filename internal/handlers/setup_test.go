package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"voucher-market/internal/auth"
	"voucher-market/internal/babsy"
	"voucher-market/internal/config"
	"voucher-market/internal/database"
	"voucher-market/internal/mail/mailtest"
	"voucher-market/internal/models"
	"voucher-market/internal/repository"
	"voucher-market/internal/services"
	"voucher-market/internal/utils"
)

type testServer struct {
	t       *testing.T
	db      *gorm.DB
	router  *gin.Engine
	tokens  *auth.TokenManager
	mailbox *mailtest.RecordingSender
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithBabsy(t, babsy.NewClient("", "", time.Second))
}

func newTestServerWithBabsy(t *testing.T, babsyClient *babsy.Client) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), database.Config())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(db, nil))

	repo := repository.NewRepository(db)
	mailbox := &mailtest.RecordingSender{}
	tokens, err := auth.NewTokenManager("handler-test-secret", time.Hour)
	require.NoError(t, err)

	otpService := services.NewOTPService(repo, mailbox, services.OTPConfig{
		Expiry:          10 * time.Minute,
		ResendInterval:  time.Minute,
		DeliveryTimeout: time.Second,
		BlockedDomains:  config.DefaultBlockedDomains,
	}, nil, nil)

	routes := &Routes{
		Auth: NewAuthHandler(
			otpService,
			services.NewAuthService(repo, babsyClient, nil),
			services.NewUserService(repo),
			tokens,
			false,
			nil,
		),
		Vouchers:   NewVoucherHandler(services.NewVoucherService(repo, "https://vouchers.test", nil), services.NewRedemptionService(repo, nil, nil), nil),
		Partners:   NewPartnerHandler(services.NewPartnerService(repo, mailbox, "https://vouchers.test", nil), nil),
		Categories: NewCategoryHandler(services.NewCategoryService(repo), nil),
		Admin:      NewAdminHandler(services.NewPartnerService(repo, mailbox, "https://vouchers.test", nil), nil),
		Tokens:     tokens,
	}

	router := gin.New()
	routes.Register(router)

	return &testServer{t: t, db: db, router: router, tokens: tokens, mailbox: mailbox}
}

// do sends a JSON request; token may be empty
func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) user(email string, role models.UserRole) (*models.User, string) {
	s.t.Helper()
	u := &models.User{Email: email, Role: role, AuthMethod: models.AuthMethodOTP}
	require.NoError(s.t, s.db.Create(u).Error)
	token, _, err := s.tokens.GenerateToken(u)
	require.NoError(s.t, err)
	return u, token
}

func (s *testServer) partner(owner *models.User, approved bool) *models.Partner {
	s.t.Helper()
	p := &models.Partner{UserID: owner.ID, BusinessName: "Café Central", IsApproved: approved}
	require.NoError(s.t, s.db.Omit("User", "Vouchers").Create(p).Error)
	return p
}

func (s *testServer) category() *models.Category {
	s.t.Helper()
	c := &models.Category{Name: "Restaurants", Slug: "restaurants-" + uuid.NewString()[:8]}
	require.NoError(s.t, s.db.Create(c).Error)
	return c
}

func (s *testServer) voucher(p *models.Partner, c *models.Category, maxRedemptions *int, validUntil *time.Time) *models.Voucher {
	s.t.Helper()
	code, err := utils.GenerateVoucherCode(time.Now())
	require.NoError(s.t, err)
	v := &models.Voucher{
		PartnerID:      p.ID,
		CategoryID:     c.ID,
		Title:          "10% off",
		Description:    "On everything",
		IsActive:       true,
		ValidFrom:      time.Now().UTC().Add(-time.Hour),
		ValidUntil:     validUntil,
		MaxRedemptions: maxRedemptions,
		Code:           code,
	}
	require.NoError(s.t, s.db.Omit("Partner", "Category").Create(v).Error)
	return v
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func intPtr(i int) *int {
	return &i
}
