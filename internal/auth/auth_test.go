package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voucher-market/internal/models"
)

func newManager(t *testing.T) *TokenManager {
	t.Helper()
	m, err := NewTokenManager("test-secret", time.Hour)
	require.NoError(t, err)
	return m
}

func testUser(role models.UserRole) *models.User {
	return &models.User{ID: uuid.New(), Email: "anna@company.ch", Role: role}
}

func TestNewTokenManagerRequiresSecret(t *testing.T) {
	_, err := NewTokenManager("", time.Hour)
	assert.Error(t, err)

	m, err := NewTokenManager("s", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultSessionTTL, m.TTL())
}

func TestGenerateAndValidateToken(t *testing.T) {
	m := newManager(t)
	user := testUser(models.UserRolePartner)

	token, expiresAt, err := m.GenerateToken(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, models.UserRolePartner, claims.Role)

	other, err := NewTokenManager("other-secret", time.Hour)
	require.NoError(t, err)
	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExpiredToken(t *testing.T) {
	m := newManager(t)
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := m.GenerateToken(testUser(models.UserRoleUser))
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func newRouter(m *TokenManager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	whoami := func(c *gin.Context) {
		id, ok := GetUserID(c)
		if !ok {
			c.JSON(http.StatusOK, gin.H{"user": nil})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": id})
	}
	r.GET("/required", m.Middleware(), whoami)
	r.GET("/optional", m.OptionalMiddleware(), whoami)
	r.GET("/admin", m.Middleware(), RequireRole(models.UserRoleAdmin), whoami)
	return r
}

func TestMiddleware(t *testing.T) {
	m := newManager(t)
	router := newRouter(m)
	user := testUser(models.UserRoleUser)
	token, _, err := m.GenerateToken(user)
	require.NoError(t, err)

	do := func(path string, setup func(r *http.Request)) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if setup != nil {
			setup(req)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusUnauthorized, do("/required", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do("/required", func(r *http.Request) {
		r.Header.Set("Authorization", "Token abc")
	}).Code)
	assert.Equal(t, http.StatusUnauthorized, do("/required", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer garbage")
	}).Code)

	w := do("/required", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) })
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), user.ID.String())

	w = do("/required", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: SessionCookie, Value: token}) })
	assert.Equal(t, http.StatusOK, w.Code)

	w = do("/optional", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":null}`, w.Body.String())

	w = do("/optional", func(r *http.Request) { r.Header.Set("Authorization", "Bearer garbage") })
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":null}`, w.Body.String())

	assert.Equal(t, http.StatusForbidden, do("/admin", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}).Code)

	adminToken, _, err := m.GenerateToken(testUser(models.UserRoleAdmin))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, do("/admin", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+adminToken)
	}).Code)
}
