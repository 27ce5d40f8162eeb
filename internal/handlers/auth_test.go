package handlers_test

import (
	"net/http"
	"pharmacist/internal/auth"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	h := newHarness(t, false)

	register := map[string]string{
		"phone_number": "+989121234567",
		"password":     "secret-pass1",
		"password2":    "secret-pass1",
	}
	w := h.do(http.MethodPost, "/api/auth/register/", "", register)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[map[string]any](t, w)
	assert.Equal(t, "09121234567", created["phone_number"])
	assert.NotContains(t, created, "password")

	w = h.do(http.MethodPost, "/api/auth/register/", "", register)
	assert.Equal(t, http.StatusConflict, w.Code)

	mismatch := map[string]string{"phone_number": "09120000009", "password": "secret-pass1", "password2": "other-pass3"}
	w = h.do(http.MethodPost, "/api/auth/register/", "", mismatch)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "password2", decode[map[string]any](t, w)["field"])

	w = h.do(http.MethodPost, "/api/auth/token/", "", map[string]string{"phone_number": "09121234567", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(http.MethodPost, "/api/auth/token/", "", map[string]string{"phone_number": "09121234567", "password": "secret-pass1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	pair := decode[auth.TokenPair](t, w)
	require.NotEmpty(t, pair.Access)
	require.NotEmpty(t, pair.Refresh)

	var logins int64
	require.NoError(t, h.db.Table("login_log").Count(&logins).Error)
	assert.Equal(t, int64(1), logins)

	w = h.do(http.MethodGet, "/api/auth/me/", pair.Access, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "09121234567", decode[map[string]any](t, w)["phone_number"])

	// a refresh token cannot be used as a bearer token
	w = h.do(http.MethodGet, "/api/auth/me/", pair.Refresh, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(http.MethodPost, "/api/auth/token/refresh/", "", map[string]string{"refresh": pair.Refresh})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode[map[string]any](t, w)["access"])
}

func TestLogoutRevokesTokens(t *testing.T) {
	h := newHarness(t, false)
	_, token := h.user("09120000001")

	w := h.do(http.MethodPost, "/api/auth/logout/", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = h.do(http.MethodGet, "/api/auth/me/", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdateProfileAndChangePassword(t *testing.T) {
	h := newHarness(t, false)
	_, token := h.user("09120000001")
	other, _ := h.user("09120000002")
	taken := "taken@example.com"
	require.NoError(t, h.db.Model(other).Update("email", taken).Error)

	w := h.do(http.MethodPatch, "/api/auth/me/", token, map[string]string{"first_name": "Sara", "email": "sara@example.com"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode[map[string]any](t, w)
	assert.Equal(t, "Sara", body["first_name"])
	assert.Equal(t, "sara@example.com", body["email"])

	w = h.do(http.MethodPatch, "/api/auth/me/", token, map[string]string{"email": taken})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = h.do(http.MethodPost, "/api/auth/change-password/", token, map[string]string{"old_password": "wrong", "new_password": "another-pass2"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodPost, "/api/auth/change-password/", token, map[string]string{"old_password": "secret-pass1", "new_password": "another-pass2"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	fresh := decode[auth.TokenPair](t, w)

	// the old token is revoked, the new pair works
	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/api/auth/me/", token, nil).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/auth/me/", fresh.Access, nil).Code)
}

func TestGoogleLoginDisabled(t *testing.T) {
	h := newHarness(t, false)
	w := h.do(http.MethodGet, "/api/auth/google/login/", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
