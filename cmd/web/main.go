package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"retail-dashboard/internal/auth"
	"retail-dashboard/internal/cache"
	"retail-dashboard/internal/config"
	"retail-dashboard/internal/export"
	"retail-dashboard/internal/gateway"
	"retail-dashboard/internal/handlers"
	"retail-dashboard/internal/middleware"
	"retail-dashboard/internal/observability"
	"retail-dashboard/internal/server"
	"retail-dashboard/internal/services"
)

const version = "1.0.0"

// app is the wired HTTP handler plus everything that must be released on
// shutdown, in registration order.
type app struct {
	handler http.Handler
	closers []closer
}

type closer struct {
	name string
	fn   func() error
}

func (a *app) onClose(name string, fn func() error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// newApp wires the services around gw. gw is wrapped in the query cache and
// handed to the closers if it holds resources.
func newApp(cfg *config.Config, gw gateway.Gateway, metrics *observability.Metrics, logger *slog.Logger) (*app, error) {
	a := &app{}
	if c, ok := gw.(io.Closer); ok {
		a.onClose("gateway", c.Close)
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("report timezone: %w", err)
	}

	store, err := cache.NewStore(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("query cache: %w", err)
	}
	a.onClose("cache", store.Close)
	cached := gateway.NewCachedGateway(gw, store, cfg.Cache.TTL, gateway.TablesFrom(cfg.Backend), metrics, logger)

	reports := services.NewReportService(cached, loc, cfg.Report.TopProducts, metrics, logger)
	views := services.NewReportViews(reports, cfg.Report.ViewIdleTimeout)
	a.onClose("report views", views.Close)
	dashboard := services.NewDashboard(cached, loc, cfg.Report.LowStockThreshold, logger)

	var pdf export.PDFRenderer
	if cfg.Export.PDFEnabled {
		renderer := export.NewChromeRenderer(cfg.Export, logger)
		a.onClose("pdf renderer", renderer.Close)
		pdf = renderer
	}
	exporter := export.NewExporter(pdf, metrics, logger)

	authClient := auth.NewClient(cfg.Backend)
	codec := auth.NewCookieCodec(cfg.Auth)
	sessions := auth.NewSessionManager(authClient, cfg.Auth, logger)

	srv := server.NewServer(server.Handlers{
		API:     handlers.NewAPIHandlers(reports, dashboard, views, cached, logger),
		SSE:     handlers.NewSSEHandlers(reports, views, dashboard, cached, logger),
		Export:  handlers.NewExportHandlers(reports, views, exporter, logger),
		Pages:   handlers.NewPageHandlers(authClient, codec, cfg.Auth.Required, reports, exporter, logger),
		Metrics: metrics.Handler(),
	}, middleware.RequireSession(sessions, codec, cfg.Auth.Required, logger), logger)

	chain := []middleware.Middleware{
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.CSRF(cfg.Security, logger),
	}
	if cfg.Security.EnableRateLimit {
		chain = append(chain, middleware.RateLimit(middleware.NewRateLimiter(cfg.Security), logger))
	}
	a.handler = middleware.Chain(chain...)(srv)

	return a, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", version,
		"backend", cfg.Backend.Mode,
		"cache", cfg.Cache.Backend,
		"auth_required", cfg.Auth.Required,
		"pdf_enabled", cfg.Export.PDFEnabled,
	)

	metrics := observability.NewMetrics()

	gw, err := gateway.New(cfg.Backend, metrics, logger)
	if err != nil {
		logger.Error("failed to create backend gateway", "error", err)
		os.Exit(1)
	}

	a, err := newApp(cfg, gw, metrics, logger)
	if err != nil {
		logger.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      a.handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)
	for _, c := range a.closers {
		gracefulServer.RegisterShutdownHook(c.name, func(context.Context) error {
			return c.fn()
		})
	}

	logger.Info("starting graceful server", "addr", cfg.Address())
	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
