package handlers

import (
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/go-playground/validator/v10"
	"github.com/starfederation/datastar-go/datastar"

	"retail-dashboard/internal/errors"
	"retail-dashboard/internal/gateway"
	"retail-dashboard/internal/models"
	"retail-dashboard/internal/observability"
	"retail-dashboard/internal/services"
	"retail-dashboard/internal/ui/templates"
)

const anonymousView = "anonymous"

type SSEHandlers struct {
	reports   *services.ReportService
	views     *services.ReportViews
	dashboard *services.Dashboard
	gw        gateway.Gateway
	validate  *validator.Validate
	logger    *slog.Logger
}

func NewSSEHandlers(reports *services.ReportService, views *services.ReportViews, dashboard *services.Dashboard, gw gateway.Gateway, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		reports:   reports,
		views:     views,
		dashboard: dashboard,
		gw:        gw,
		validate:  newValidator(),
		logger:    logger,
	}
}

// stream wraps one Datastar response.
type stream struct {
	sse    *datastar.ServerSentEventGenerator
	w      http.ResponseWriter
	r      *http.Request
	logger *slog.Logger
}

func (h *SSEHandlers) open(w http.ResponseWriter, r *http.Request) *stream {
	return &stream{
		sse:    datastar.NewSSE(w, r),
		w:      w,
		r:      r,
		logger: observability.LoggerFrom(r.Context(), h.logger),
	}
}

func (s *stream) patch(c templ.Component) {
	html, err := templates.Render(s.r.Context(), c)
	if err != nil {
		s.logger.Error("render fragment", "error", err)
		return
	}
	if err := s.sse.PatchElements(html); err != nil {
		s.logger.Debug("patch elements", "error", err)
	}
}

func (s *stream) signals(v any) {
	jsonData, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("marshal signals", "error", err)
		return
	}
	if err := s.sse.PatchSignals(jsonData); err != nil {
		s.logger.Debug("patch signals", "error", err)
	}
}

// fetchFailed swaps the target for the reload panel. Backend errors are not
// retried.
func (s *stream) fetchFailed(target string, err error) {
	s.logger.Error("fetch failed", "target", target, "error", err)
	s.patch(templates.ErrorPanel(target, errors.FetchFailedMessage))
}

func (s *stream) notify(message string) {
	s.patch(templates.Notification(message))
}

func (s *stream) flush() {
	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}
}

func viewKey(r *http.Request) string {
	if id := observability.GetSessionID(r.Context()); id != "" {
		return id
	}
	return anonymousView
}

func (h *SSEHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	s := h.open(w, r)
	defer s.flush()

	stats, err := h.dashboard.Load(r.Context())
	if err != nil {
		s.fetchFailed(templates.DashboardStatsID, err)
		return
	}
	s.patch(templates.DashboardStats(stats))
}

// HandleReport refreshes the session's report for the signalled range. Only
// the newest refresh of a session patches the page.
func (h *SSEHandlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	q, rng, err := h.readReport(r)
	s := h.open(w, r)
	defer s.flush()
	if err != nil {
		s.notify(errors.AsAppError(err).Message)
		return
	}
	h.refresh(s, h.views.Get(viewKey(r)), q, rng)
}

// HandleReportProducts re-renders the product table from the session's
// current report without going back to the backend. A range that differs
// from the loaded report's triggers a full refresh instead.
func (h *SSEHandlers) HandleReportProducts(w http.ResponseWriter, r *http.Request) {
	q, rng, err := h.readReport(r)
	s := h.open(w, r)
	defer s.flush()
	if err != nil {
		s.notify(errors.AsAppError(err).Message)
		return
	}

	view := h.views.Get(viewKey(r))
	vm := view.Current()
	if vm == nil || !sameDay(vm.Range.From, rng.From) || !sameDay(vm.Range.To, rng.To) {
		h.refresh(s, view, q, rng)
		return
	}
	s.patch(templates.ReportProducts(productTable(vm, q)))
}

func (h *SSEHandlers) readReport(r *http.Request) (reportQuery, models.DateRange, error) {
	q, err := queryFromSignals(r)
	if err != nil {
		return q, models.DateRange{}, err
	}
	rng, err := q.check(h.validate, h.reports.Location(), h.reports.DefaultRange())
	return q, rng, err
}

func (h *SSEHandlers) refresh(s *stream, view *services.ReportView, q reportQuery, rng models.DateRange) {
	vm, err := view.Refresh(s.r.Context(), rng)
	switch {
	case stderrors.Is(err, services.ErrSuperseded):
		s.logger.Debug("report refresh superseded", "generation", view.Generation())
		return
	case err != nil:
		s.fetchFailed(templates.ReportContentID, err)
		return
	}

	s.patch(templates.ReportContent(templates.ReportContentData{
		Model:    vm,
		Products: productTable(vm, q),
	}))
	s.signals(map[string]any{
		"from":        vm.Range.From.Format(time.DateOnly),
		"to":          vm.Range.To.Format(time.DateOnly),
		"generatedAt": vm.GeneratedAt.Format(time.RFC3339),
	})
}

func (h *SSEHandlers) HandleBills(w http.ResponseWriter, r *http.Request) {
	_, rng, err := h.readReport(r)
	s := h.open(w, r)
	defer s.flush()
	if err != nil {
		s.notify(errors.AsAppError(err).Message)
		return
	}
	h.patchBills(s, rng)
}

// HandleDeleteBill deletes one bill and re-renders the bill list.
func (h *SSEHandlers) HandleDeleteBill(w http.ResponseWriter, r *http.Request) {
	_, rng, err := h.readReport(r)
	s := h.open(w, r)
	defer s.flush()
	if err != nil {
		s.notify(errors.AsAppError(err).Message)
		return
	}

	if err := deleteBill(r, h.gw, r.PathValue("id"), h.logger); err != nil {
		appErr := errors.AsAppError(err)
		s.logger.Warn("delete bill failed", "bill_id", r.PathValue("id"), "error", err)
		if appErr.Code == errors.CodeUpstream {
			s.notify("Failed to delete the bill. Try again.")
		} else {
			s.notify(appErr.Message)
		}
		return
	}
	s.notify("Bill deleted.")
	h.patchBills(s, rng)
}

func (h *SSEHandlers) patchBills(s *stream, rng models.DateRange) {
	bills, err := listBills(s.r, h.gw, rng)
	if err != nil {
		s.fetchFailed(templates.BillsTableID, err)
		return
	}
	s.patch(templates.BillsTable(templates.BillsData{Bills: bills, Range: rng}))
}
