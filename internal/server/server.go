package server

import (
	"log/slog"
	"net/http"

	"retail-dashboard/internal/handlers"
	"retail-dashboard/internal/middleware"
)

type Server struct {
	mux    *http.ServeMux
	logger *slog.Logger
}

// Handlers are the route groups the server mounts.
type Handlers struct {
	API     *handlers.APIHandlers
	SSE     *handlers.SSEHandlers
	Export  *handlers.ExportHandlers
	Pages   *handlers.PageHandlers
	Metrics http.Handler
}

// NewServer mounts every route. protect wraps the routes that need a session.
func NewServer(h Handlers, protect middleware.Middleware, logger *slog.Logger) *Server {
	s := &Server{
		mux:    http.NewServeMux(),
		logger: logger,
	}
	s.setupRoutes(h, protect)
	return s
}

func (s *Server) setupRoutes(h Handlers, protect middleware.Middleware) {
	private := func(pattern string, fn http.HandlerFunc) {
		s.mux.Handle(pattern, protect(fn))
	}

	// Public
	s.mux.HandleFunc("GET /login", h.Pages.HandleLoginPage)
	s.mux.HandleFunc("POST /login", h.Pages.HandleLogin)
	s.mux.HandleFunc("POST /logout", h.Pages.HandleLogout)
	s.mux.HandleFunc("GET /health", h.API.HandleHealth)
	if h.Metrics != nil {
		s.mux.Handle("GET /metrics", h.Metrics)
	}

	// Pages
	private("GET /{$}", h.Pages.HandleDashboard)
	private("GET /reports", h.Pages.HandleReport)
	private("GET /reports/export", h.Export.HandleExport)
	private("GET /bills", h.Pages.HandleBills)
	private("GET /admin/stats", h.API.HandleStats)

	// REST API endpoints
	private("GET /api/dashboard", h.API.HandleDashboard)
	private("GET /api/report", h.API.HandleReport)
	private("GET /api/report/products", h.API.HandleReportProducts)
	private("GET /api/bills", h.API.HandleBills)
	private("DELETE /api/bills/{id}", h.API.HandleDeleteBill)

	// Datastar SSE endpoints
	private("GET /sse/dashboard", h.SSE.HandleDashboard)
	private("GET /sse/report", h.SSE.HandleReport)
	private("GET /sse/report/products", h.SSE.HandleReportProducts)
	private("GET /sse/bills", h.SSE.HandleBills)
	private("DELETE /sse/bills/{id}", h.SSE.HandleDeleteBill)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
