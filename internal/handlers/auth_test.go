package handlers

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voucher-market/internal/auth"
	"voucher-market/internal/babsy"
	"voucher-market/internal/models"
)

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

func TestOTPLoginFlow(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/auth/otp/request", "", map[string]string{"email": "anna@gmail.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "disallowed_domain", decode(t, w)["reason"])

	w = s.do(http.MethodPost, "/api/auth/otp/request", "", map[string]string{"email": " Anna@Company.ch "})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "anna@company.ch", body["email"])

	w = s.do(http.MethodPost, "/api/auth/otp/request", "", map[string]string{"email": "anna@company.ch"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "rate_limited", decode(t, w)["reason"])

	msg, ok := s.mailbox.Last()
	require.True(t, ok)
	code := codePattern.FindString(msg.Text)
	require.NotEmpty(t, code)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	w = s.do(http.MethodPost, "/api/auth/otp/verify", "", map[string]string{"email": "anna@company.ch", "code": wrong})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/auth/otp/verify", "", map[string]string{"email": "anna@company.ch", "code": code})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body = decode(t, w)
	assert.Equal(t, "/vouchers", body["redirectTo"])
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "anna@company.ch", user["email"])
	assert.Equal(t, false, user["isPartner"])

	var sessionCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.SessionCookie {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie)
	assert.True(t, sessionCookie.HttpOnly)

	// codes are single use
	w = s.do(http.MethodPost, "/api/auth/otp/verify", "", map[string]string{"email": "anna@company.ch", "code": code})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, "/api/auth/me", body["token"].(string), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "anna@company.ch", decode(t, w)["user"].(map[string]interface{})["email"])
}

func TestOTPRequestValidation(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/auth/otp/request", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	details := decode(t, w)["details"].([]interface{})
	require.Len(t, details, 1)
	assert.Equal(t, "email", details[0].(map[string]interface{})["field"])

	w = s.do(http.MethodPost, "/api/auth/otp/request", "", map[string]string{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOTPRequestDeliveryFailure(t *testing.T) {
	s := newTestServer(t)
	s.mailbox.Fail = true

	w := s.do(http.MethodPost, "/api/auth/otp/request", "", map[string]string{"email": "ben@company.ch"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var count int64
	require.NoError(t, s.db.Model(&models.User{}).Where("email = ?", "ben@company.ch").Count(&count).Error)
	assert.Zero(t, count)
}

func TestBabsyVerifyRejectedWhenNotConfigured(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/auth/babsy/verify", "", map[string]string{"token": "abc"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/auth/babsy/verify", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMeAndLogout(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/auth/me", "", nil).Code)

	w := s.do(http.MethodPost, "/api/auth/logout", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, auth.SessionCookie, cookies[0].Name)
	assert.True(t, cookies[0].MaxAge < 0)
}

func TestMeRefreshesBabsyProfile(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/b-7" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"b-7","email":"lea@babsy.ch","name":"Lea Meier","type":"sitter","verified":true}`))
	}))
	defer api.Close()

	s := newTestServerWithBabsy(t, babsy.NewClient(api.URL, "key", time.Second))
	user, token := s.user("lea@babsy.ch", models.UserRoleUser)
	require.NoError(t, s.db.Model(user).Update("babsy_user_id", "b-7").Error)

	w := s.do(http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Lea Meier", decode(t, w)["user"].(map[string]interface{})["name"])

	var stored models.User
	require.NoError(t, s.db.First(&stored, "id = ?", user.ID).Error)
	require.NotNil(t, stored.Name)
	assert.Equal(t, "Lea Meier", *stored.Name)
	assert.NotNil(t, stored.EmailVerified)
}
