package handlers

import (
	stderrors "errors"
	"log/slog"
	"net/http"
	"runtime"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"

	"retail-dashboard/internal/errors"
	"retail-dashboard/internal/gateway"
	"retail-dashboard/internal/models"
	"retail-dashboard/internal/observability"
	"retail-dashboard/internal/services"
)

const (
	version       = "1.0.0"
	privateMaxAge = "private, max-age=60"
)

type APIHandlers struct {
	reports   *services.ReportService
	dashboard *services.Dashboard
	views     *services.ReportViews
	gw        gateway.Gateway
	validate  *validator.Validate
	started   time.Time
	logger    *slog.Logger
}

func NewAPIHandlers(reports *services.ReportService, dashboard *services.Dashboard, views *services.ReportViews, gw gateway.Gateway, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		reports:   reports,
		dashboard: dashboard,
		views:     views,
		gw:        gw,
		validate:  newValidator(),
		started:   time.Now(),
		logger:    logger,
	}
}

func (h *APIHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	errors.WriteError(w, observability.LoggerFrom(r.Context(), h.logger), err, observability.GetRequestID(r.Context()))
}

// build loads the report for the request's range.
func (h *APIHandlers) build(r *http.Request) (*models.ReportViewModel, reportQuery, error) {
	q := queryFromURL(r.URL.Query())
	rng, err := q.check(h.validate, h.reports.Location(), h.reports.DefaultRange())
	if err != nil {
		return nil, q, err
	}
	vm, err := h.reports.Build(r.Context(), rng)
	if err != nil {
		return nil, q, errors.UpstreamWrap(err)
	}
	return vm, q, nil
}

func (h *APIHandlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	vm, _, err := h.build(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccessWithHeaders(w, vm, map[string]string{"Cache-Control": privateMaxAge})
}

func (h *APIHandlers) HandleReportProducts(w http.ResponseWriter, r *http.Request) {
	vm, q, err := h.build(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	table := productTable(vm, q)
	errors.WriteSuccessWithHeaders(w, map[string]any{
		"range":      vm.Range,
		"products":   table.Products,
		"total":      table.Total,
		"categories": table.Categories,
		"brands":     table.Brands,
	}, map[string]string{"Cache-Control": privateMaxAge})
}

func (h *APIHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.dashboard.Load(r.Context())
	if err != nil {
		h.fail(w, r, errors.UpstreamWrap(err))
		return
	}
	errors.WriteSuccessWithHeaders(w, stats, map[string]string{"Cache-Control": privateMaxAge})
}

func (h *APIHandlers) HandleBills(w http.ResponseWriter, r *http.Request) {
	q := queryFromURL(r.URL.Query())
	rng, err := q.check(h.validate, h.reports.Location(), h.reports.DefaultRange())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	bills, err := listBills(r, h.gw, rng)
	if err != nil {
		h.fail(w, r, errors.UpstreamWrap(err))
		return
	}
	errors.WriteSuccess(w, bills)
}

func (h *APIHandlers) HandleDeleteBill(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := deleteBill(r, h.gw, id, h.logger); err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccess(w, map[string]string{"deleted": id})
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   version,
	}

	w.Header().Set("Cache-Control", "no-store")
	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	errors.WriteSuccess(w, map[string]any{
		"uptime":       time.Since(h.started).Round(time.Second).String(),
		"report_views": h.views.Len(),
		"goroutines":   runtime.NumGoroutine(),
		"heap_alloc":   mem.HeapAlloc,
		"version":      version,
	})
}

func listBills(r *http.Request, gw gateway.Gateway, rng models.DateRange) ([]models.Transaction, error) {
	bills, err := gw.FetchTransactions(r.Context(), gateway.TransactionQuery{
		From:      rng.Start(),
		To:        rng.End(),
		WithItems: true,
	})
	if err != nil {
		return nil, err
	}
	// newest first
	slices.Reverse(bills)
	return bills, nil
}

func deleteBill(r *http.Request, gw gateway.Gateway, id string, logger *slog.Logger) error {
	if id == "" {
		return errors.BadRequest("missing bill id")
	}
	err := gw.DeleteTransaction(r.Context(), id)
	switch {
	case err == nil:
		observability.LoggerFrom(r.Context(), logger).Info("bill deleted", "bill_id", id)
		return nil
	case stderrors.Is(err, gateway.ErrNotFound):
		return errors.NotFound("bill not found")
	default:
		return errors.UpstreamWrap(err)
	}
}
