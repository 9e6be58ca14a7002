package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-dashboard/internal/config"
)

type fakeBackend struct {
	calls   int
	session *Session
	err     error

	userCalls int
	userErr   error
}

func (f *fakeBackend) Refresh(context.Context, string) (*Session, error) {
	f.calls++
	return f.session, f.err
}

func (f *fakeBackend) User(context.Context, string) (*User, error) {
	f.userCalls++
	if f.userErr != nil {
		return nil, f.userErr
	}
	return &User{ID: "u-1"}, nil
}

func signToken(t *testing.T, secret string, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-1",
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Email: "clerk@shop.test",
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func newTestManager(secret string, r authBackend, now time.Time) *SessionManager {
	m := NewSessionManager(nil, config.AuthConfig{JWTSecret: secret, RefreshMargin: time.Minute}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	m.client = r
	m.now = func() time.Time { return now }
	return m
}

func TestSessionManager_Ensure(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	t.Run("valid token is kept", func(t *testing.T) {
		r := &fakeBackend{}
		m := newTestManager("", r, now)
		s := &Session{ID: "sid", AccessToken: signToken(t, "any", now.Add(time.Hour)), RefreshToken: "rt"}

		got, refreshed, err := m.Ensure(context.Background(), s)
		require.NoError(t, err)
		assert.False(t, refreshed)
		assert.Same(t, s, got)
		assert.Zero(t, r.calls)
	})

	t.Run("expiring token is refreshed", func(t *testing.T) {
		r := &fakeBackend{session: &Session{AccessToken: "new", RefreshToken: "rt-2"}}
		m := newTestManager("", r, now)
		s := &Session{ID: "sid", AccessToken: signToken(t, "any", now.Add(30*time.Second)), RefreshToken: "rt", User: User{ID: "u-1"}}

		got, refreshed, err := m.Ensure(context.Background(), s)
		require.NoError(t, err)
		assert.True(t, refreshed)
		assert.Equal(t, "new", got.AccessToken)
		assert.Equal(t, "sid", got.ID)
		assert.Equal(t, "u-1", got.User.ID)
	})

	t.Run("refresh failure expires the session", func(t *testing.T) {
		r := &fakeBackend{err: &Error{Status: 400, Message: "Invalid Refresh Token"}}
		m := newTestManager("", r, now)
		s := &Session{AccessToken: signToken(t, "any", now.Add(-time.Hour)), RefreshToken: "rt"}

		_, _, err := m.Ensure(context.Background(), s)
		assert.ErrorIs(t, err, ErrSessionExpired)
	})

	t.Run("no refresh token", func(t *testing.T) {
		m := newTestManager("", &fakeBackend{}, now)
		s := &Session{AccessToken: signToken(t, "any", now.Add(-time.Hour))}

		_, _, err := m.Ensure(context.Background(), s)
		assert.ErrorIs(t, err, ErrSessionExpired)
	})

	t.Run("missing session", func(t *testing.T) {
		m := newTestManager("", &fakeBackend{}, now)
		_, _, err := m.Ensure(context.Background(), nil)
		assert.ErrorIs(t, err, ErrNoSession)
	})

	t.Run("signature checked when secret set", func(t *testing.T) {
		m := newTestManager("right", &fakeBackend{}, now)

		_, _, err := m.Ensure(context.Background(), &Session{AccessToken: signToken(t, "wrong", now.Add(time.Hour))})
		assert.ErrorIs(t, err, ErrInvalidSession)

		_, refreshed, err := m.Ensure(context.Background(), &Session{AccessToken: signToken(t, "right", now.Add(time.Hour))})
		assert.NoError(t, err)
		assert.False(t, refreshed)
	})

	t.Run("expired but correctly signed is refreshed", func(t *testing.T) {
		r := &fakeBackend{session: &Session{AccessToken: "new"}}
		m := newTestManager("right", r, now)

		_, refreshed, err := m.Ensure(context.Background(), &Session{AccessToken: signToken(t, "right", now.Add(-time.Hour)), RefreshToken: "rt"})
		require.NoError(t, err)
		assert.True(t, refreshed)
	})
}

func TestSessionManager_ConfirmsUnsignedTokens(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	t.Run("forged token rejected by backend", func(t *testing.T) {
		b := &fakeBackend{userErr: &Error{Status: 401, Message: "invalid JWT"}}
		m := newTestManager("", b, now)
		s := &Session{AccessToken: signToken(t, "attacker-key", now.Add(time.Hour))}

		_, _, err := m.Ensure(context.Background(), s)
		assert.ErrorIs(t, err, ErrInvalidSession)

		// A rejection is not remembered.
		_, _, err = m.Ensure(context.Background(), s)
		assert.ErrorIs(t, err, ErrInvalidSession)
		assert.Equal(t, 2, b.userCalls)
	})

	t.Run("backend token confirmed once", func(t *testing.T) {
		b := &fakeBackend{}
		m := newTestManager("", b, now)
		s := &Session{AccessToken: signToken(t, "backend-key", now.Add(time.Hour))}

		for range 3 {
			_, refreshed, err := m.Ensure(context.Background(), s)
			require.NoError(t, err)
			assert.False(t, refreshed)
		}
		assert.Equal(t, 1, b.userCalls)
	})

	t.Run("refreshed token needs no confirmation", func(t *testing.T) {
		b := &fakeBackend{session: &Session{
			AccessToken: signToken(t, "backend-key", now.Add(time.Hour)),
			ExpiresAt:   now.Add(time.Hour),
		}}
		m := newTestManager("", b, now)

		fresh, refreshed, err := m.Ensure(context.Background(), &Session{AccessToken: signToken(t, "backend-key", now.Add(-time.Minute)), RefreshToken: "rt"})
		require.NoError(t, err)
		require.True(t, refreshed)

		_, _, err = m.Ensure(context.Background(), fresh)
		require.NoError(t, err)
		assert.Zero(t, b.userCalls)
	})

	t.Run("local secret skips the backend", func(t *testing.T) {
		b := &fakeBackend{userErr: errors.New("unreachable")}
		m := newTestManager("right", b, now)

		_, _, err := m.Ensure(context.Background(), &Session{AccessToken: signToken(t, "right", now.Add(time.Hour))})
		require.NoError(t, err)
		assert.Zero(t, b.userCalls)
	})
}

func TestCookieCodec(t *testing.T) {
	codec := NewCookieCodec(config.AuthConfig{CookieName: "retail_session"})
	in := &Session{ID: "sid", AccessToken: "at", RefreshToken: "rt", ExpiresAt: time.Unix(1710511200, 0).UTC(), User: User{Email: "clerk@shop.test"}}

	rec := httptest.NewRecorder()
	require.NoError(t, codec.Write(rec, in))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		assert.True(t, c.HttpOnly)
		req.AddCookie(c)
	}

	out, err := codec.Read(req)
	require.NoError(t, err)
	assert.Equal(t, in.AccessToken, out.AccessToken)
	assert.Equal(t, in.ID, out.ID)
	assert.True(t, in.ExpiresAt.Equal(out.ExpiresAt))

	_, err = codec.Read(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = DecodeSession("%%%")
	assert.True(t, errors.Is(err, ErrInvalidSession))

	rec = httptest.NewRecorder()
	codec.Clear(rec)
	assert.Equal(t, -1, rec.Result().Cookies()[0].MaxAge)
}

func TestSessionContext(t *testing.T) {
	_, ok := SessionFrom(context.Background())
	assert.False(t, ok)

	s := &Session{ID: "sid-1", User: User{Email: "clerk@shop.test"}}
	got, ok := SessionFrom(WithSession(context.Background(), s))
	require.True(t, ok)
	assert.Same(t, s, got)
}
