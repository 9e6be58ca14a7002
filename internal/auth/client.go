// Package auth wraps the backend's hosted auth endpoint: password sign-in,
// token refresh, user lookup and sign-out. Sessions live in a cookie on the
// browser; nothing is stored server side.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"retail-dashboard/internal/config"
)

const authPath = "/auth/v1"

var ErrInvalidCredentials = errors.New("invalid email or password")

// Error is a non-2xx answer from the auth endpoint.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("auth request failed (%d): %s", e.Status, e.Message)
}

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// Session is a signed-in user's token pair. ID is ours and survives token
// refreshes; it keys per-session state such as the open report.
type Session struct {
	ID           string    `json:"sid"`
	AccessToken  string    `json:"at"`
	RefreshToken string    `json:"rt"`
	ExpiresAt    time.Time `json:"exp"`
	User         User      `json:"user"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	now     func() time.Time
}

func NewClient(cfg config.BackendConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/") + authPath,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.RequestTimeout},
		now:     time.Now,
	}
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	var tr tokenResponse
	err := c.do(ctx, http.MethodPost, "/token?grant_type=password", "", map[string]string{
		"email":    email,
		"password": password,
	}, &tr)
	if err != nil {
		var ae *Error
		if errors.As(err, &ae) && (ae.Status == http.StatusBadRequest || ae.Status == http.StatusUnauthorized) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidCredentials, ae.Message)
		}
		return nil, err
	}
	return c.session(uuid.NewString(), tr), nil
}

// Refresh trades a refresh token for a new pair. The caller keeps its
// session ID.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	var tr tokenResponse
	err := c.do(ctx, http.MethodPost, "/token?grant_type=refresh_token", "", map[string]string{
		"refresh_token": refreshToken,
	}, &tr)
	if err != nil {
		return nil, err
	}
	return c.session("", tr), nil
}

func (c *Client) User(ctx context.Context, accessToken string) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/user", accessToken, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/logout", accessToken, nil, nil)
}

func (c *Client) session(id string, tr tokenResponse) *Session {
	s := &Session{
		ID:           id,
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		User:         tr.User,
	}
	switch {
	case tr.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(tr.ExpiresAt, 0)
	case tr.ExpiresIn > 0:
		s.ExpiresAt = c.now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	return s
}

func (c *Client) do(ctx context.Context, method, path, token string, body, dest any) error {
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode auth request: %w", err)
		}
		rdr = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("build auth request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("auth request %s: %w", redact(req.URL), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return decodeError(resp)
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode auth response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 16<<10))

	var body struct {
		Error            string `json:"error"`
		ErrorCode        string `json:"error_code"`
		ErrorDescription string `json:"error_description"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
	}
	ae := &Error{Status: resp.StatusCode}
	if json.Unmarshal(raw, &body) == nil {
		ae.Code = body.ErrorCode
		if ae.Code == "" {
			ae.Code = body.Error
		}
		for _, m := range []string{body.ErrorDescription, body.Msg, body.Message, body.Error} {
			if m != "" {
				ae.Message = m
				break
			}
		}
	}
	if ae.Message == "" {
		ae.Message = http.StatusText(resp.StatusCode)
	}
	return ae
}

func redact(u *url.URL) string {
	return u.Scheme + "://" + u.Host + u.Path
}
