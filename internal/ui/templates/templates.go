package templates

import (
	"context"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/shopspring/decimal"

	"retail-dashboard/internal/models"
)

const datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.6/bundles/datastar.js"

var funcs = template.FuncMap{
	"money":    money,
	"date":     func(t time.Time) string { return t.Format(time.DateOnly) },
	"datetime": func(t time.Time) string { return t.Format("2006-01-02 15:04") },
	"bars":     Bars,
	"script":   func() string { return datastarScript },
}

var base = template.Must(template.New("base").Funcs(funcs).Parse(layoutHTML + fragmentsHTML))

// page clones the shared layout and fragments and adds one page's content.
func page(content string) *template.Template {
	return template.Must(template.Must(base.Clone()).Parse(content))
}

func component(t *template.Template, name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return t.ExecuteTemplate(w, name, data)
	})
}

// Render writes c to a string, for SSE patches.
func Render(ctx context.Context, c templ.Component) (string, error) {
	var sb strings.Builder
	if err := c.Render(ctx, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// money formats with two decimals and thousands separators.
func money(d decimal.Decimal) string {
	s := d.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	whole, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String() + "." + frac
	if neg {
		return "-" + out
	}
	return out
}

// Bar is one bucket of a bar chart, with its height relative to the largest.
type Bar struct {
	Label   string
	Amount  decimal.Decimal
	Percent int64
}

func Bars(buckets []models.TimeBucket) []Bar {
	peak := decimal.Zero
	for _, b := range buckets {
		if b.Amount.GreaterThan(peak) {
			peak = b.Amount
		}
	}

	out := make([]Bar, len(buckets))
	for i, b := range buckets {
		out[i] = Bar{Label: b.Label, Amount: b.Amount}
		if peak.IsPositive() && b.Amount.IsPositive() {
			out[i].Percent = b.Amount.Mul(decimal.NewFromInt(100)).Div(peak).Round(0).IntPart()
		}
	}
	return out
}

const layoutHTML = `{{define "layout"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}} | Retail Dashboard</title>
<script type="module" src="{{script}}"></script>
<style>
body { font-family: -apple-system, "Segoe UI", Helvetica, Arial, sans-serif; margin: 0; background: #f8fafc; color: #0f172a; }
header { display: flex; align-items: center; gap: 24px; padding: 12px 24px; background: #0f172a; color: #f8fafc; }
header a { color: #cbd5e1; text-decoration: none; }
header a.active { color: #fff; font-weight: 600; }
header form { margin-left: auto; }
main { padding: 24px; max-width: 1200px; margin: 0 auto; }
.cards { display: grid; grid-template-columns: repeat(auto-fit, minmax(180px, 1fr)); gap: 16px; margin-bottom: 24px; }
.card { background: #fff; border-radius: 8px; padding: 16px; box-shadow: 0 1px 2px rgba(0,0,0,.08); }
.card .label { color: #64748b; font-size: 13px; }
.card .value { font-size: 22px; font-weight: 600; margin-top: 4px; }
.toolbar { display: flex; flex-wrap: wrap; gap: 8px; align-items: end; margin-bottom: 16px; }
.tabs button.active { background: #0f172a; color: #fff; }
.chart { display: flex; align-items: flex-end; gap: 4px; height: 220px; background: #fff; padding: 12px; border-radius: 8px; overflow-x: auto; }
.chart .bar { flex: 1 0 24px; display: flex; flex-direction: column; justify-content: flex-end; align-items: center; height: 100%; font-size: 11px; }
.chart .fill { width: 100%; background: #3b82f6; border-radius: 3px 3px 0 0; }
.modern-table { width: 100%; border-collapse: collapse; background: #fff; }
.modern-table th, .modern-table td { padding: 8px; border-bottom: 1px solid #e2e8f0; text-align: left; }
.modern-table td.num { text-align: right; font-variant-numeric: tabular-nums; }
.category-badge { background: #e0e7ff; border-radius: 4px; padding: 2px 6px; font-size: 12px; }
.panel.error { background: #fef2f2; border: 1px solid #fecaca; color: #991b1b; padding: 16px; border-radius: 8px; }
.notice { background: #fffbeb; border: 1px solid #fde68a; padding: 12px 16px; border-radius: 8px; margin-bottom: 16px; display: flex; justify-content: space-between; }
.login { max-width: 360px; margin: 80px auto; background: #fff; padding: 24px; border-radius: 8px; }
.login label { display: block; margin-bottom: 12px; }
.login input { width: 100%; }
.loading { color: #64748b; }
</style>
</head>
<body>
{{if .User}}<header>
<strong>Retail Dashboard</strong>
<a href="/"{{if eq .Active "dashboard"}} class="active"{{end}}>Dashboard</a>
<a href="/reports"{{if eq .Active "reports"}} class="active"{{end}}>Sales report</a>
<a href="/bills"{{if eq .Active "bills"}} class="active"{{end}}>Bills</a>
<form method="post" action="/logout"><span>{{.User}}</span> <button type="submit">Sign out</button></form>
</header>{{end}}
<main>
{{if .Notice}}{{template "notification" .Notice}}{{else}}<div id="notification"></div>{{end}}
{{template "content" .}}
</main>
</body>
</html>
{{end}}`
