package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-dashboard/internal/export"
)

type failingPDF struct{}

func (failingPDF) RenderPDF(context.Context, []byte) ([]byte, error) {
	return nil, errors.New("browser crashed")
}

func newTestExport(t *testing.T) (*ExportHandlers, *fixture) {
	t.Helper()
	f := newFixture(t)
	return NewExportHandlers(f.reports, f.views, f.exporter, discardLogger), f
}

func TestExportHandlers_CSV(t *testing.T) {
	handlers, _ := newTestExport(t)

	req := httptest.NewRequest(http.MethodGet, "/reports/export?format=csv&tab=products&brand=acme", nil)
	w := httptest.NewRecorder()
	handlers.HandleExport(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	disposition := w.Header().Get("Content-Disposition")
	assert.True(t, strings.HasPrefix(disposition, `attachment; filename="sales-report-products-`), disposition)
	assert.True(t, strings.HasSuffix(disposition, `.csv"`), disposition)

	body := w.Body.String()
	assert.True(t, strings.HasPrefix(body, "Product,Category,Brand,Quantity,Revenue,Profit,Last sold"))
	assert.Contains(t, body, "Phone")
	assert.NotContains(t, body, "Cable")
}

func TestExportHandlers_DefaultsToSpreadsheet(t *testing.T) {
	handlers, _ := newTestExport(t)

	w := httptest.NewRecorder()
	handlers.HandleExport(w, httptest.NewRequest(http.MethodGet, "/reports/export", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "sales-report-daily-")
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")
	assert.NotEmpty(t, w.Body.Bytes())
}

func TestExportHandlers_ReusesSessionReport(t *testing.T) {
	handlers, f := newTestExport(t)

	rng := f.reports.DefaultRange()
	_, err := f.views.Get(anonymousView).Refresh(context.Background(), rng)
	require.NoError(t, err)

	// A failing backend does not matter when the session already holds the range.
	f.gw.SetFailure("bills", errors.New("down"))
	w := httptest.NewRecorder()
	handlers.HandleExport(w, httptest.NewRequest(http.MethodGet, "/reports/export?format=html&tab=weekly", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Weekly sales, last 12 weeks")
}

func TestExportHandlers_Failures(t *testing.T) {
	t.Run("pdf disabled answers json clients", func(t *testing.T) {
		handlers, _ := newTestExport(t)
		req := httptest.NewRequest(http.MethodGet, "/reports/export?format=pdf", nil)
		req.Header.Set("Accept", "application/json")
		w := httptest.NewRecorder()
		handlers.HandleExport(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "PDF export is not enabled")
	})

	t.Run("renderer failure redirects browsers", func(t *testing.T) {
		handlers, _ := newTestExport(t)
		handlers.exporter = export.NewExporter(failingPDF{}, nil, discardLogger)
		from := daysAgo(5)
		w := httptest.NewRecorder()
		handlers.HandleExport(w, httptest.NewRequest(http.MethodGet, "/reports/export?format=pdf&from="+from, nil))

		require.Equal(t, http.StatusSeeOther, w.Code)
		loc, err := url.Parse(w.Header().Get("Location"))
		require.NoError(t, err)
		assert.Equal(t, "/reports", loc.Path)
		assert.Equal(t, noticeExportFailed, loc.Query().Get("notice"))
		assert.Equal(t, from, loc.Query().Get("from"))
		assert.Empty(t, w.Header().Get("Content-Disposition"))
	})

	t.Run("backend failure", func(t *testing.T) {
		handlers, f := newTestExport(t)
		f.gw.SetFailure("bills", errors.New("down"))
		w := httptest.NewRecorder()
		handlers.HandleExport(w, httptest.NewRequest(http.MethodGet, "/reports/export?format=csv", nil))

		require.Equal(t, http.StatusSeeOther, w.Code)
		assert.Contains(t, w.Header().Get("Location"), "notice="+noticeFetchFailed)
	})

	t.Run("invalid format", func(t *testing.T) {
		handlers, _ := newTestExport(t)
		w := httptest.NewRecorder()
		handlers.HandleExport(w, httptest.NewRequest(http.MethodGet, "/reports/export?format=docx", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
