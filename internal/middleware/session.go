package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"retail-dashboard/internal/auth"
	"retail-dashboard/internal/errors"
	"retail-dashboard/internal/gateway"
	"retail-dashboard/internal/observability"
)

// SessionEnsurer validates a session and refreshes it when close to expiry.
type SessionEnsurer interface {
	Ensure(ctx context.Context, s *auth.Session) (*auth.Session, bool, error)
}

const anonymousUser = "guest"

// RequireSession puts the caller's session, its access token and its session
// ID into the request context. Without a valid session pages redirect to
// /login while /api and /sse routes answer 401. With required off, visitors
// get an anonymous session kept in a separate cookie.
func RequireSession(manager SessionEnsurer, codec auth.CookieCodec, required bool, logger *slog.Logger) Middleware {
	anonCookie := codec.Name() + "_anon"

	return func(next http.Handler) http.Handler {
		if !required {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var id string
				if c, err := r.Cookie(anonCookie); err == nil && uuid.Validate(c.Value) == nil {
					id = c.Value
				} else {
					id = uuid.NewString()
					http.SetCookie(w, &http.Cookie{
						Name:     anonCookie,
						Value:    id,
						Path:     "/",
						HttpOnly: true,
						SameSite: http.SameSiteLaxMode,
					})
				}
				s := &auth.Session{ID: id, User: auth.User{Email: anonymousUser}}
				next.ServeHTTP(w, r.WithContext(withSession(r.Context(), s)))
			})
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := observability.GetRequestID(r.Context())

			s, err := codec.Read(r)
			if err == nil {
				var refreshed bool
				s, refreshed, err = manager.Ensure(r.Context(), s)
				if err == nil && refreshed {
					if werr := codec.Write(w, s); werr != nil {
						logger.Error("write refreshed session", "error", werr, "request_id", requestID)
					}
					logger.Debug("session refreshed", "session_id", s.ID, "request_id", requestID)
				}
			}
			if err != nil {
				logger.Debug("no valid session", "path", r.URL.Path, "error", err, "request_id", requestID)
				codec.Clear(w)
				if isMachineRoute(r.URL.Path) {
					errors.WriteError(w, logger, errors.Unauthorized("Sign in required"), requestID)
					return
				}
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r.WithContext(withSession(r.Context(), s)))
		})
	}
}

func withSession(ctx context.Context, s *auth.Session) context.Context {
	ctx = auth.WithSession(ctx, s)
	ctx = observability.WithSessionID(ctx, s.ID)
	if s.AccessToken != "" {
		ctx = gateway.WithAccessToken(ctx, s.AccessToken)
	}
	return ctx
}

func isMachineRoute(path string) bool {
	return strings.HasPrefix(path, "/api/") || strings.HasPrefix(path, "/sse/")
}
