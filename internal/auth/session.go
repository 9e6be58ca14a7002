package auth

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"retail-dashboard/internal/config"
)

var (
	ErrNoSession      = errors.New("no session")
	ErrInvalidSession = errors.New("invalid session token")
	ErrSessionExpired = errors.New("session expired")
)

// Claims are the parts of the backend's access token this service reads.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

type authBackend interface {
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
	User(ctx context.Context, accessToken string) (*User, error)
}

// maxConfirmed bounds the confirmed-token set between sweeps.
const maxConfirmed = 4096

// SessionManager checks a session's access token and refreshes it shortly
// before it expires. Signatures are verified locally when a JWT secret is
// configured. Without one, the backend is asked once per token whether it
// issued it, and the answer is remembered until the token expires.
type SessionManager struct {
	client authBackend
	secret []byte
	margin time.Duration
	now    func() time.Time
	logger *slog.Logger

	mu        sync.Mutex
	confirmed map[string]time.Time
}

func NewSessionManager(client *Client, cfg config.AuthConfig, logger *slog.Logger) *SessionManager {
	return &SessionManager{
		client:    client,
		secret:    []byte(cfg.JWTSecret),
		margin:    cfg.RefreshMargin,
		now:       time.Now,
		logger:    logger,
		confirmed: make(map[string]time.Time),
	}
}

func (m *SessionManager) ParseClaims(token string) (*Claims, error) {
	claims := &Claims{}

	if len(m.secret) == 0 {
		if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
		}
		return claims, nil
	}

	// Expiry is handled by Ensure so an expired token can still be refreshed.
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	return claims, nil
}

// Ensure returns a session that is valid for at least the refresh margin,
// refreshing s if needed. The boolean reports whether a refresh happened, in
// which case the caller must store the new session.
func (m *SessionManager) Ensure(ctx context.Context, s *Session) (*Session, bool, error) {
	if s == nil || s.AccessToken == "" {
		return nil, false, ErrNoSession
	}

	claims, err := m.ParseClaims(s.AccessToken)
	if err != nil {
		return nil, false, err
	}

	expiresAt := s.ExpiresAt
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if expiresAt.IsZero() || m.now().Add(m.margin).Before(expiresAt) {
		if err := m.confirm(ctx, s.AccessToken, expiresAt); err != nil {
			return nil, false, err
		}
		return s, false, nil
	}

	if s.RefreshToken == "" {
		return nil, false, ErrSessionExpired
	}
	fresh, err := m.client.Refresh(ctx, s.RefreshToken)
	if err != nil {
		m.logger.Info("session refresh failed", "session_id", s.ID, "error", err)
		return nil, false, fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}
	fresh.ID = s.ID
	if fresh.User.ID == "" {
		fresh.User = s.User
	}
	m.remember(fresh.AccessToken, fresh.ExpiresAt)
	return fresh, true, nil
}

// confirm asks the backend whether it issued token. It is a no-op when
// signatures are checked locally.
func (m *SessionManager) confirm(ctx context.Context, token string, expiresAt time.Time) error {
	if len(m.secret) > 0 {
		return nil
	}

	key := tokenKey(token)
	m.mu.Lock()
	until, ok := m.confirmed[key]
	m.mu.Unlock()
	if ok && m.now().Before(until) {
		return nil
	}

	if _, err := m.client.User(ctx, token); err != nil {
		m.logger.Info("access token rejected by backend", "error", err)
		return fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	m.remember(token, expiresAt)
	return nil
}

// remember records token as issued by the backend until expiresAt. Tokens
// without an expiry are confirmed on every request.
func (m *SessionManager) remember(token string, expiresAt time.Time) {
	if len(m.secret) > 0 || token == "" || expiresAt.IsZero() {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.confirmed) >= maxConfirmed {
		now := m.now()
		for k, until := range m.confirmed {
			if !now.Before(until) {
				delete(m.confirmed, k)
			}
		}
		if len(m.confirmed) >= maxConfirmed {
			clear(m.confirmed)
		}
	}
	m.confirmed[tokenKey(token)] = expiresAt
}

func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// CookieCodec stores sessions in a single HttpOnly cookie.
type CookieCodec struct {
	name   string
	secure bool
}

func NewCookieCodec(cfg config.AuthConfig) CookieCodec {
	return CookieCodec{name: cfg.CookieName, secure: cfg.CookieSecure}
}

func (c CookieCodec) Name() string {
	return c.name
}

func (c CookieCodec) Read(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(c.name)
	if err != nil {
		return nil, ErrNoSession
	}
	return DecodeSession(cookie.Value)
}

func (c CookieCodec) Write(w http.ResponseWriter, s *Session) error {
	value, err := EncodeSession(s)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (c CookieCodec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func EncodeSession(s *Session) (string, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func DecodeSession(value string) (*Session, error) {
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if s.AccessToken == "" {
		return nil, ErrNoSession
	}
	return &s, nil
}

type sessionKey struct{}

// WithSession stores the request's session for handlers further down.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

func SessionFrom(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*Session)
	return s, ok && s != nil
}
