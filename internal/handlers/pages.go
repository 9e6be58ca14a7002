package handlers

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/go-playground/validator/v10"

	"retail-dashboard/internal/auth"
	"retail-dashboard/internal/errors"
	"retail-dashboard/internal/export"
	"retail-dashboard/internal/observability"
	"retail-dashboard/internal/services"
	"retail-dashboard/internal/ui/templates"
)

const renderTimeout = 10 * time.Second

var notices = map[string]string{
	noticeExportFailed: "Export failed. Try again.",
	noticeFetchFailed:  errors.FetchFailedMessage,
}

// Authenticator is the part of the auth client the login flow uses.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (*auth.Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

type loginForm struct {
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"required,max=256"`
}

type PageHandlers struct {
	auth         Authenticator
	codec        auth.CookieCodec
	authRequired bool
	reports      *services.ReportService
	exporter     *export.Exporter
	validate     *validator.Validate
	logger       *slog.Logger
}

func NewPageHandlers(authenticator Authenticator, codec auth.CookieCodec, authRequired bool, reports *services.ReportService, exporter *export.Exporter, logger *slog.Logger) *PageHandlers {
	return &PageHandlers{
		auth:         authenticator,
		codec:        codec,
		authRequired: authRequired,
		reports:      reports,
		exporter:     exporter,
		validate:     newValidator(),
		logger:       logger,
	}
}

func (h *PageHandlers) render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	html, err := templates.Render(ctx, c)
	if err != nil {
		observability.LoggerFrom(r.Context(), h.logger).Error("render page", "path", r.URL.Path, "error", err)
		http.Error(w, "render error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	w.Write([]byte(html))
}

func page(r *http.Request) templates.Page {
	p := templates.Page{Notice: notices[r.URL.Query().Get("notice")]}
	if s, ok := auth.SessionFrom(r.Context()); ok {
		p.User = s.User.Email
	}
	return p
}

func (h *PageHandlers) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	if !h.authRequired {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, templates.Login(templates.LoginData{}))
}

func (h *PageHandlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.authRequired {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	logger := observability.LoggerFrom(r.Context(), h.logger)

	form := loginForm{Email: r.PostFormValue("email"), Password: r.PostFormValue("password")}
	if err := h.validate.Struct(form); err != nil {
		h.render(w, r, http.StatusBadRequest, templates.Login(templates.LoginData{
			Email: form.Email,
			Error: "Enter a valid email and password.",
		}))
		return
	}

	session, err := h.auth.SignIn(r.Context(), form.Email, form.Password)
	if err != nil {
		status, message := http.StatusBadGateway, "Failed to sign in. Try again."
		if stderrors.Is(err, auth.ErrInvalidCredentials) {
			status, message = http.StatusUnauthorized, "Invalid email or password."
		}
		logger.Warn("sign in failed", "email", form.Email, "error", err)
		h.render(w, r, status, templates.Login(templates.LoginData{Email: form.Email, Error: message}))
		return
	}

	if err := h.codec.Write(w, session); err != nil {
		logger.Error("write session cookie", "error", err)
		h.render(w, r, http.StatusInternalServerError, templates.Login(templates.LoginData{
			Email: form.Email,
			Error: "Failed to sign in. Try again.",
		}))
		return
	}
	logger.Info("signed in", "user_id", session.User.ID, "session_id", session.ID)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *PageHandlers) HandleLogout(w http.ResponseWriter, r *http.Request) {
	s, ok := auth.SessionFrom(r.Context())
	if !ok {
		s, _ = h.codec.Read(r)
	}
	if s != nil && s.AccessToken != "" {
		// The cookie is cleared either way.
		if err := h.auth.SignOut(r.Context(), s.AccessToken); err != nil {
			observability.LoggerFrom(r.Context(), h.logger).Warn("sign out failed", "error", err)
		}
	}
	h.codec.Clear(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *PageHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, templates.Dashboard(templates.DashboardData{Page: page(r)}))
}

func (h *PageHandlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	q := queryFromURL(r.URL.Query())
	rng, err := q.check(h.validate, h.reports.Location(), h.reports.DefaultRange())
	if err != nil {
		q, rng = reportQuery{Desc: true}, h.reports.DefaultRange()
	}
	h.render(w, r, http.StatusOK, templates.Report(templates.ReportData{
		Page:      page(r),
		Signals:   q.signals(rng),
		DocFormat: string(h.exporter.DocumentFormat()),
	}))
}

func (h *PageHandlers) HandleBills(w http.ResponseWriter, r *http.Request) {
	q := queryFromURL(r.URL.Query())
	rng, err := q.check(h.validate, h.reports.Location(), h.reports.DefaultRange())
	if err != nil {
		rng = h.reports.DefaultRange()
	}
	h.render(w, r, http.StatusOK, templates.Bills(templates.BillsPageData{
		Page: page(r),
		From: rng.From.Format(time.DateOnly),
		To:   rng.To.Format(time.DateOnly),
	}))
}
