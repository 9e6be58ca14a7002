package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-dashboard/internal/auth"
	"retail-dashboard/internal/config"
)

type fakeAuthenticator struct {
	signInErr error
	signedOut []string
	lastEmail string
}

func (f *fakeAuthenticator) SignIn(_ context.Context, email, _ string) (*auth.Session, error) {
	f.lastEmail = email
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	return &auth.Session{
		ID:           "sid-1",
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(time.Hour),
		User:         auth.User{ID: "u-1", Email: email},
	}, nil
}

func (f *fakeAuthenticator) SignOut(_ context.Context, token string) error {
	f.signedOut = append(f.signedOut, token)
	return nil
}

var testCodec = auth.NewCookieCodec(config.AuthConfig{CookieName: "retail_session"})

func newTestPages(t *testing.T, authRequired bool) (*PageHandlers, *fakeAuthenticator) {
	t.Helper()
	f := newFixture(t)
	fake := &fakeAuthenticator{}
	return NewPageHandlers(fake, testCodec, authRequired, f.reports, f.exporter, discardLogger), fake
}

func loginRequest(email, password string) *http.Request {
	form := url.Values{"email": {email}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestPageHandlers_Login(t *testing.T) {
	tests := []struct {
		name       string
		email      string
		signInErr  error
		wantStatus int
		wantBody   string
	}{
		{"success", "owner@shop.test", nil, http.StatusSeeOther, ""},
		{"invalid credentials", "owner@shop.test", auth.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid email or password."},
		{"backend down", "owner@shop.test", errors.New("dial tcp: refused"), http.StatusBadGateway, "Failed to sign in. Try again."},
		{"malformed email", "not-an-email", nil, http.StatusBadRequest, "Enter a valid email and password."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handlers, fake := newTestPages(t, true)
			fake.signInErr = tt.signInErr

			w := httptest.NewRecorder()
			handlers.HandleLogin(w, loginRequest(tt.email, "secret"))

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != "" {
				assert.Contains(t, w.Body.String(), tt.wantBody)
				assert.Empty(t, w.Result().Cookies())
				return
			}

			assert.Equal(t, "/", w.Header().Get("Location"))
			cookies := w.Result().Cookies()
			require.Len(t, cookies, 1)
			assert.Equal(t, "retail_session", cookies[0].Name)
			assert.True(t, cookies[0].HttpOnly)

			s, err := auth.DecodeSession(cookies[0].Value)
			require.NoError(t, err)
			assert.Equal(t, "sid-1", s.ID)
			assert.Equal(t, tt.email, s.User.Email)
		})
	}
}

func TestPageHandlers_Logout(t *testing.T) {
	handlers, fake := newTestPages(t, true)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req = req.WithContext(auth.WithSession(req.Context(), &auth.Session{ID: "sid-1", AccessToken: "access"}))
	w := httptest.NewRecorder()
	handlers.HandleLogout(w, req)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
	assert.Equal(t, []string{"access"}, fake.signedOut)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestPageHandlers_AuthNotRequired(t *testing.T) {
	handlers, fake := newTestPages(t, false)

	w := httptest.NewRecorder()
	handlers.HandleLoginPage(w, httptest.NewRequest(http.MethodGet, "/login", nil))
	assert.Equal(t, http.StatusSeeOther, w.Code)

	w = httptest.NewRecorder()
	handlers.HandleLogin(w, loginRequest("owner@shop.test", "secret"))
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Empty(t, fake.lastEmail)
}

func TestPageHandlers_Pages(t *testing.T) {
	handlers, _ := newTestPages(t, true)

	t.Run("login", func(t *testing.T) {
		w := httptest.NewRecorder()
		handlers.HandleLoginPage(w, httptest.NewRequest(http.MethodGet, "/login", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Body.String(), `name="password"`)
	})

	t.Run("dashboard shows the user", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(auth.WithSession(req.Context(), &auth.Session{User: auth.User{Email: "owner@shop.test"}}))
		w := httptest.NewRecorder()
		handlers.HandleDashboard(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "owner@shop.test")
		assert.Contains(t, w.Body.String(), "/sse/dashboard")
	})

	t.Run("report keeps the requested range", func(t *testing.T) {
		from := daysAgo(14)
		w := httptest.NewRecorder()
		handlers.HandleReport(w, httptest.NewRequest(http.MethodGet, "/reports?from="+from+"&notice="+noticeExportFailed, nil))
		assert.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, from)
		assert.Contains(t, body, "Export failed. Try again.")
	})

	t.Run("report ignores an invalid range", func(t *testing.T) {
		w := httptest.NewRecorder()
		handlers.HandleReport(w, httptest.NewRequest(http.MethodGet, "/reports?from=yesterday", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), "yesterday")
	})

	t.Run("bills", func(t *testing.T) {
		w := httptest.NewRecorder()
		handlers.HandleBills(w, httptest.NewRequest(http.MethodGet, "/bills", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "/sse/bills")
	})
}
