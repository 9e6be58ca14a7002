// Package export turns the report's active tab into a downloadable file. The
// whole artifact is built in memory first; a failure never leaves a partial
// download behind.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"retail-dashboard/internal/models"
	"retail-dashboard/internal/observability"
)

type Tab string

const (
	TabDaily    Tab = "daily"
	TabWeekly   Tab = "weekly"
	TabMonthly  Tab = "monthly"
	TabYearly   Tab = "yearly"
	TabProducts Tab = "products"
)

func ParseTab(s string) (Tab, error) {
	switch t := Tab(s); t {
	case TabDaily, TabWeekly, TabMonthly, TabYearly, TabProducts:
		return t, nil
	case "":
		return TabDaily, nil
	default:
		return "", fmt.Errorf("unknown report tab %q", s)
	}
}

type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
	FormatPDF  Format = "pdf"
	FormatHTML Format = "html"
)

var contentTypes = map[Format]string{
	FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	FormatCSV:  "text/csv; charset=utf-8",
	FormatPDF:  "application/pdf",
	FormatHTML: "text/html; charset=utf-8",
}

var ErrPDFDisabled = errors.New("pdf export is not enabled")

type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Request describes one export. Products, when set, replaces the view-model's
// product list so the file matches a filtered table.
type Request struct {
	Tab      Tab
	Format   Format
	Model    *models.ReportViewModel
	Products []models.ProductSalesSummary
}

// PDFRenderer prints an HTML document to PDF.
type PDFRenderer interface {
	RenderPDF(ctx context.Context, html []byte) ([]byte, error)
}

type Exporter struct {
	pdf     PDFRenderer
	now     func() time.Time
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewExporter builds an exporter. A nil pdf renderer disables FormatPDF.
func NewExporter(pdf PDFRenderer, metrics *observability.Metrics, logger *slog.Logger) *Exporter {
	return &Exporter{
		pdf:     pdf,
		now:     time.Now,
		metrics: metrics,
		logger:  logger,
	}
}

// PDFEnabled reports whether FormatPDF can be served.
func (e *Exporter) PDFEnabled() bool {
	return e.pdf != nil
}

// DocumentFormat is the document export this exporter produces: PDF when a
// renderer is configured, otherwise standalone HTML.
func (e *Exporter) DocumentFormat() Format {
	if e.PDFEnabled() {
		return FormatPDF
	}
	return FormatHTML
}

func (e *Exporter) Export(ctx context.Context, req Request) (_ *Artifact, err error) {
	ctx, span := observability.StartSpan(ctx, "export."+string(req.Format))
	defer func() {
		e.metrics.Export(string(req.Format), err)
		observability.EndSpan(span, err)
	}()

	if req.Model == nil {
		return nil, errors.New("no report loaded to export")
	}
	table, err := buildTable(req)
	if err != nil {
		return nil, err
	}

	var data []byte
	switch req.Format {
	case FormatXLSX:
		data, err = writeXLSX(table)
	case FormatCSV:
		data, err = writeCSV(table)
	case FormatHTML:
		data, err = e.renderDocument(ctx, table, req.Model)
	case FormatPDF:
		if e.pdf == nil {
			return nil, ErrPDFDisabled
		}
		var doc []byte
		if doc, err = e.renderDocument(ctx, table, req.Model); err == nil {
			data, err = e.pdf.RenderPDF(ctx, doc)
		}
	default:
		return nil, fmt.Errorf("unknown export format %q", req.Format)
	}
	if err != nil {
		return nil, fmt.Errorf("export %s %s: %w", req.Tab, req.Format, err)
	}

	return &Artifact{
		Filename:    Filename(req.Tab, req.Format, e.now()),
		ContentType: contentTypes[req.Format],
		Data:        data,
	}, nil
}

func (e *Exporter) renderDocument(ctx context.Context, t Table, vm *models.ReportViewModel) ([]byte, error) {
	var buf bytes.Buffer
	if err := Document(t, vm, e.now()).Render(ctx, &buf); err != nil {
		return nil, fmt.Errorf("render document: %w", err)
	}
	return buf.Bytes(), nil
}

// Filename is sales-report-<tab>-<YYYY-MM-DD>.<ext>.
func Filename(tab Tab, format Format, at time.Time) string {
	return fmt.Sprintf("sales-report-%s-%s.%s", tab, at.Format(time.DateOnly), format)
}
