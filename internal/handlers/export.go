package handlers

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"retail-dashboard/internal/errors"
	"retail-dashboard/internal/export"
	"retail-dashboard/internal/models"
	"retail-dashboard/internal/observability"
	"retail-dashboard/internal/services"
)

// Notice codes the report page turns into a dismissible banner.
const (
	noticeExportFailed = "export_failed"
	noticeFetchFailed  = "fetch_failed"
)

type ExportHandlers struct {
	reports  *services.ReportService
	views    *services.ReportViews
	exporter *export.Exporter
	validate *validator.Validate
	logger   *slog.Logger
}

func NewExportHandlers(reports *services.ReportService, views *services.ReportViews, exporter *export.Exporter, logger *slog.Logger) *ExportHandlers {
	return &ExportHandlers{
		reports:  reports,
		views:    views,
		exporter: exporter,
		validate: newValidator(),
		logger:   logger,
	}
}

// HandleExport downloads one tab of the report. The artifact is built in
// memory first so a failure never leaves a partial file.
func (h *ExportHandlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	logger := observability.LoggerFrom(r.Context(), h.logger)

	q := queryFromURL(r.URL.Query())
	if q.Format == "" {
		q.Format = string(export.FormatXLSX)
	}
	rng, err := q.check(h.validate, h.reports.Location(), h.reports.DefaultRange())
	if err != nil {
		errors.WriteError(w, logger, err, observability.GetRequestID(r.Context()))
		return
	}
	tab, err := export.ParseTab(q.Tab)
	if err != nil {
		errors.WriteError(w, logger, errors.ValidationWrap(err, "invalid tab"), observability.GetRequestID(r.Context()))
		return
	}

	vm, err := h.model(r, rng)
	if err != nil {
		h.failed(w, r, q, noticeFetchFailed, errors.UpstreamWrap(err))
		return
	}

	req := export.Request{Tab: tab, Format: export.Format(q.Format), Model: vm}
	if tab == export.TabProducts {
		req.Products = productTable(vm, q).Products
	}

	artifact, err := h.exporter.Export(r.Context(), req)
	if err != nil {
		if stderrors.Is(err, export.ErrPDFDisabled) {
			h.failed(w, r, q, noticeExportFailed, errors.BadRequest("PDF export is not enabled"))
			return
		}
		h.failed(w, r, q, noticeExportFailed, errors.ExportWrap(err, "Export failed"))
		return
	}

	logger.Info("report exported",
		"tab", tab,
		"format", q.Format,
		"bytes", len(artifact.Data),
	)

	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(artifact.Data)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(artifact.Data)
}

// model reuses the session's current report when it covers the same range.
func (h *ExportHandlers) model(r *http.Request, rng models.DateRange) (*models.ReportViewModel, error) {
	if vm := h.views.Get(viewKey(r)).Current(); vm != nil && sameDay(vm.Range.From, rng.From) && sameDay(vm.Range.To, rng.To) {
		return vm, nil
	}
	return h.reports.Build(r.Context(), rng)
}

// failed answers API clients with the error and sends browsers back to the
// report with a notice.
func (h *ExportHandlers) failed(w http.ResponseWriter, r *http.Request, q reportQuery, notice string, err *errors.AppError) {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		errors.WriteError(w, observability.LoggerFrom(r.Context(), h.logger), err, observability.GetRequestID(r.Context()))
		return
	}

	observability.LoggerFrom(r.Context(), h.logger).Error("export failed",
		"tab", q.Tab,
		"format", q.Format,
		"error", err,
	)
	v := url.Values{"notice": {notice}}
	if q.From != "" {
		v.Set("from", q.From)
	}
	if q.To != "" {
		v.Set("to", q.To)
	}
	http.Redirect(w, r, "/reports?"+v.Encode(), http.StatusSeeOther)
}

func sameDay(a, b time.Time) bool {
	return a.Format(time.DateOnly) == b.Format(time.DateOnly)
}
