package templates

import (
	"github.com/a-h/templ"

	"retail-dashboard/internal/models"
)

// Element IDs targeted by SSE patches.
const (
	DashboardStatsID = "dashboard-stats"
	ReportContentID  = "report-content"
	ReportProductsID = "report-products"
	BillsTableID     = "bills-table"
	NotificationID   = "notification"
)

type ErrorData struct {
	ID      string
	Message string
}

// ProductsData is the product table of the report, after filtering and sorting.
type ProductsData struct {
	Products   []models.ProductSalesSummary
	Categories []string
	Brands     []string
	Total      int
}

type ReportContentData struct {
	Model    *models.ReportViewModel
	Products ProductsData
}

type BillsData struct {
	Bills []models.Transaction
	Range models.DateRange
}

func DashboardStats(stats *models.DashboardStats) templ.Component {
	return component(base, "dashboard-stats", stats)
}

func ReportContent(data ReportContentData) templ.Component {
	return component(base, "report-content", data)
}

func ReportProducts(data ProductsData) templ.Component {
	return component(base, "report-products", data)
}

func BillsTable(data BillsData) templ.Component {
	return component(base, "bills-table", data)
}

// ErrorPanel replaces the element with the given id by an error message and
// a reload button.
func ErrorPanel(id, message string) templ.Component {
	return component(base, "error-panel", ErrorData{ID: id, Message: message})
}

// Notification is a dismissible banner.
func Notification(message string) templ.Component {
	return component(base, "notification", message)
}

const fragmentsHTML = `
{{define "notification"}}<div id="notification" class="notice" role="status"><span>{{.}}</span><button type="button" onclick="this.parentElement.remove()" aria-label="Dismiss">&times;</button></div>{{end}}

{{define "error-panel"}}<div id="{{.ID}}" class="panel error" role="alert">
<p>{{.Message}}</p>
<button type="button" onclick="window.location.reload()">Reload</button>
</div>{{end}}

{{define "dashboard-stats"}}<div id="dashboard-stats">
<div class="cards">
<div class="card"><div class="label">Total sales</div><div class="value">{{money .TotalSales}}</div></div>
<div class="card"><div class="label">Today's sales</div><div class="value">{{money .TodaySales}}</div></div>
<div class="card"><div class="label">Transactions today</div><div class="value">{{.TransactionsToday}}</div></div>
<div class="card"><div class="label">Products</div><div class="value">{{.ProductCount}}</div></div>
<div class="card"><div class="label">Low stock</div><div class="value">{{.LowStockCount}}</div></div>
<div class="card"><div class="label">Out of stock</div><div class="value">{{.OutOfStockCount}}</div></div>
</div>
<h2>Top sellers</h2>
<table class="modern-table">
<thead><tr><th>Product</th><th>Quantity</th></tr></thead>
<tbody>
{{range .TopSold}}<tr><td>{{.ProductName}}</td><td class="num">{{.Quantity}}</td></tr>
{{else}}<tr><td colspan="2">No sales yet.</td></tr>
{{end}}</tbody>
</table>
<p class="loading">Updated {{datetime .GeneratedAt}}</p>
</div>{{end}}

{{define "chart"}}<div class="chart">
{{range bars .}}<div class="bar" title="{{.Label}}: {{money .Amount}}"><div class="fill" style="height: {{.Percent}}%"></div><span>{{.Label}}</span></div>
{{end}}</div>{{end}}

{{define "report-content"}}<div id="report-content">
<div class="cards">
<div class="card"><div class="label">Transactions</div><div class="value">{{.Model.Totals.Transactions}}</div></div>
<div class="card"><div class="label">Items sold</div><div class="value">{{.Model.Totals.Quantity}}</div></div>
<div class="card"><div class="label">Revenue</div><div class="value">{{money .Model.Totals.Revenue}}</div></div>
<div class="card"><div class="label">Profit</div><div class="value">{{money .Model.Totals.Profit}}</div></div>
<div class="card"><div class="label">Most sold</div><div class="value">{{with .Model.TopByQuantity}}{{.ProductName}} ({{.Quantity}}){{else}}None{{end}}</div></div>
<div class="card"><div class="label">Most profitable</div><div class="value">{{with .Model.TopByProfit}}{{.ProductName}} ({{money .Profit}}){{else}}None{{end}}</div></div>
</div>
<section data-show="$tab == 'daily'"><h2>Daily sales, last 30 days</h2>{{template "chart" .Model.Daily}}</section>
<section data-show="$tab == 'weekly'"><h2>Weekly sales, last 12 weeks</h2>{{template "chart" .Model.Weekly}}</section>
<section data-show="$tab == 'monthly'"><h2>Monthly sales, last 12 months</h2>{{template "chart" .Model.Monthly}}</section>
<section data-show="$tab == 'yearly'"><h2>Yearly sales, last 5 years</h2>{{template "chart" .Model.Yearly}}</section>
<section data-show="$tab == 'products'">
<h2>Product sales {{date .Model.Range.From}} to {{date .Model.Range.To}}</h2>
<div class="toolbar">
<label>Category <select data-bind:category data-on:change="@get('/sse/report/products')"><option value="">All</option>{{range .Products.Categories}}<option value="{{.}}">{{.}}</option>{{end}}</select></label>
<label>Brand <select data-bind:brand data-on:change="@get('/sse/report/products')"><option value="">All</option>{{range .Products.Brands}}<option value="{{.}}">{{.}}</option>{{end}}</select></label>
<label>Search <input type="search" data-bind:search data-on:input__debounce.300ms="@get('/sse/report/products')"></label>
<label>Sort <select data-bind:sort data-on:change="@get('/sse/report/products')"><option value="revenue">Revenue</option><option value="quantity">Quantity</option><option value="profit">Profit</option><option value="name">Name</option><option value="last_sold">Last sold</option></select></label>
<label><input type="checkbox" data-bind:desc data-on:change="@get('/sse/report/products')"> Descending</label>
</div>
{{template "report-products" .Products}}
<h3>Revenue by category</h3>
<table class="modern-table">
<thead><tr><th>Category</th><th>Quantity</th><th>Revenue</th></tr></thead>
<tbody>{{range .Model.Categories}}<tr><td><span class="category-badge">{{.Category}}</span></td><td class="num">{{.Quantity}}</td><td class="num">{{money .Revenue}}</td></tr>
{{end}}</tbody>
</table>
</section>
<p class="loading">Generated {{datetime .Model.GeneratedAt}}</p>
</div>{{end}}

{{define "report-products"}}<div id="report-products">
<p>{{len .Products}} of {{.Total}} products</p>
<table class="modern-table">
<thead><tr><th>Product</th><th>Category</th><th>Brand</th><th>Quantity</th><th>Revenue</th><th>Profit</th><th>Last sold</th></tr></thead>
<tbody>
{{range .Products}}<tr>
<td>{{.ProductName}}</td>
<td>{{if .Category}}<span class="category-badge">{{.Category}}</span>{{end}}</td>
<td>{{.Brand}}</td>
<td class="num">{{.Quantity}}</td>
<td class="num">{{money .Revenue}}</td>
<td class="num">{{money .Profit}}</td>
<td>{{datetime .LastSoldAt}}</td>
</tr>
{{else}}<tr><td colspan="7">No sales in this period.</td></tr>
{{end}}</tbody>
</table>
</div>{{end}}

{{define "bills-table"}}<div id="bills-table">
<p>{{len .Bills}} bills from {{date .Range.From}} to {{date .Range.To}}</p>
<table class="modern-table">
<thead><tr><th>Bill</th><th>Date</th><th>Customer</th><th>Status</th><th>Items</th><th>Total</th><th></th></tr></thead>
<tbody>
{{range .Bills}}<tr>
<td>{{.ID}}</td>
<td>{{datetime .CreatedAt}}</td>
<td>{{.CustomerName}}</td>
<td>{{.Status}}</td>
<td class="num">{{len .Items}}</td>
<td class="num">{{money .TotalAmount}}</td>
<td><button type="button" data-on:click="confirm('Delete this bill?') && @delete('/sse/bills/{{.ID}}')">Delete</button></td>
</tr>
{{else}}<tr><td colspan="7">No bills in this period.</td></tr>
{{end}}</tbody>
</table>
</div>{{end}}
`
