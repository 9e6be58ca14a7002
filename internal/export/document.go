package export

import (
	"context"
	"html/template"
	"io"
	"time"

	"github.com/a-h/templ"
	"github.com/shopspring/decimal"

	"retail-dashboard/internal/models"
)

var documentTemplate = template.Must(template.New("document").Funcs(template.FuncMap{
	"cell":  formatCell,
	"date":  func(t time.Time) string { return t.Format(time.DateOnly) },
	"ts":    func(t time.Time) string { return t.Format("2006-01-02 15:04 MST") },
	"isNum": isNumeric,
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>{{.Table.Title}}</title>
<style>
body { font-family: -apple-system, "Segoe UI", Helvetica, Arial, sans-serif; font-size: 12px; color: #1f2937; margin: 24px; }
h1 { font-size: 18px; margin: 0 0 4px; }
p.meta { color: #6b7280; margin: 0 0 16px; }
table { width: 100%; border-collapse: collapse; }
th, td { padding: 6px 8px; border-bottom: 1px solid #e5e7eb; text-align: left; }
th { background: #f3f4f6; }
td.num { text-align: right; font-variant-numeric: tabular-nums; }
tfoot td { font-weight: 600; border-top: 2px solid #9ca3af; }
dl { display: grid; grid-template-columns: max-content auto; gap: 2px 12px; margin: 0 0 16px; }
dt { color: #6b7280; }
</style>
</head>
<body>
<h1>{{.Table.Title}}</h1>
<p class="meta">Range {{date .Model.Range.From}} to {{date .Model.Range.To}} &middot; generated {{ts .GeneratedAt}}</p>
<dl>
<dt>Transactions</dt><dd>{{.Model.Totals.Transactions}}</dd>
<dt>Items sold</dt><dd>{{.Model.Totals.Quantity}}</dd>
<dt>Revenue</dt><dd>{{cell .Model.Totals.Revenue}}</dd>
<dt>Profit</dt><dd>{{cell .Model.Totals.Profit}}</dd>
</dl>
<table>
<thead><tr>{{range .Table.Headers}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{range .Table.Rows}}<tr>{{range .}}<td{{if isNum .}} class="num"{{end}}>{{cell .}}</td>{{end}}</tr>
{{else}}<tr><td colspan="{{len .Table.Headers}}">No sales in this period.</td></tr>
{{end}}</tbody>
<tfoot><tr>{{range .Table.Footer}}<td{{if isNum .}} class="num"{{end}}>{{cell .}}</td>{{end}}</tr></tfoot>
</table>
</body>
</html>
`))

func isNumeric(v any) bool {
	switch v.(type) {
	case int, decimal.Decimal:
		return true
	}
	return false
}

type documentData struct {
	Table       Table
	Model       *models.ReportViewModel
	GeneratedAt time.Time
}

// Document is the printable rendering of one tab, used as the HTML export and
// as the PDF source.
func Document(t Table, vm *models.ReportViewModel, generatedAt time.Time) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return documentTemplate.Execute(w, documentData{Table: t, Model: vm, GeneratedAt: generatedAt})
	})
}
