package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iurnickita/orderwatch/internal/auth/config"
)

func newTestAuth() Auth {
	return NewAuth(config.Config{Secret: "secret", TokenTTL: time.Hour})
}

func operatorEcho(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(r.Header.Get(HeaderOperatorKey)))
}

func TestMiddlewareBearer(t *testing.T) {
	a := newTestAuth()
	tokenString, err := a.IssueToken("hoa")
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/api/admin/notifications", nil)
	r.Header.Set("Authorization", "Bearer "+tokenString)
	// подмену оператора заголовком не принимаем
	r.Header.Set(HeaderOperatorKey, "mallory")
	w := httptest.NewRecorder()
	a.Middleware(operatorEcho)(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hoa", w.Body.String())
}

func TestMiddlewareRejects(t *testing.T) {
	a := newTestAuth()
	foreign, err := NewAuth(config.Config{Secret: "other", TokenTTL: time.Hour}).IssueToken("hoa")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{name: "no token", header: ""},
		{name: "not bearer", header: "Basic aG9hOnB3"},
		{name: "foreign secret", header: "Bearer " + foreign},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/admin/notifications", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			a.Middleware(operatorEcho)(w, r)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestLoginSetsCookie(t *testing.T) {
	a := newTestAuth()
	tokenString, err := a.IssueToken("hoa")
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodPost, "/api/admin/login", nil)
	r.Header.Set("Authorization", "Bearer "+tokenString)
	w := httptest.NewRecorder()
	a.Login(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].HttpOnly)

	r = httptest.NewRequest(http.MethodGet, "/api/admin/notifications", nil)
	r.AddCookie(cookies[0])
	w = httptest.NewRecorder()
	a.Middleware(operatorEcho)(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hoa", w.Body.String())
}
