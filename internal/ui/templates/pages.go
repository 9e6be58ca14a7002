package templates

import (
	"encoding/json"

	"github.com/a-h/templ"
)

// Page is what the layout needs from every page.
type Page struct {
	Title  string
	User   string
	Active string
	Notice string
}

type LoginData struct {
	Page
	Email string
	Error string
}

type DashboardData struct {
	Page
}

// ReportSignals are the client-side state of the report page. The SSE
// handlers read the same fields back.
type ReportSignals struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Tab      string `json:"tab"`
	Category string `json:"category"`
	Brand    string `json:"brand"`
	Search   string `json:"search"`
	Sort     string `json:"sort"`
	Desc     bool   `json:"desc"`
}

type ReportData struct {
	Page
	Signals   ReportSignals
	DocFormat string
}

func (d ReportData) SignalsJSON() string {
	raw, _ := json.Marshal(d.Signals)
	return string(raw)
}

type BillsPageData struct {
	Page
	From string
	To   string
}

func (d BillsPageData) SignalsJSON() string {
	raw, _ := json.Marshal(map[string]string{"from": d.From, "to": d.To})
	return string(raw)
}

var (
	loginPage = page(`{{define "content"}}<form class="login" method="post" action="/login">
<h1>Sign in</h1>
{{if .Error}}<p class="panel error">{{.Error}}</p>{{end}}
<label>Email <input type="email" name="email" value="{{.Email}}" required autofocus></label>
<label>Password <input type="password" name="password" required></label>
<button type="submit">Sign in</button>
</form>{{end}}`)

	dashboardPage = page(`{{define "content"}}<h1>Dashboard</h1>
<div class="toolbar"><button type="button" data-on:click="@get('/sse/dashboard')">Refresh</button></div>
<div id="dashboard-stats" data-init="@get('/sse/dashboard')"><p class="loading">Loading statistics...</p></div>
{{end}}`)

	reportPage = page(`{{define "content"}}<div data-signals="{{.SignalsJSON}}" data-init="@get('/sse/report')">
<h1>Sales report</h1>
<div class="toolbar">
<label>From <input type="date" data-bind:from></label>
<label>To <input type="date" data-bind:to></label>
<button type="button" data-on:click="@get('/sse/report')">Apply</button>
<span class="tabs">
<button type="button" data-on:click="$tab = 'daily'" data-class:active="$tab == 'daily'">Daily</button>
<button type="button" data-on:click="$tab = 'weekly'" data-class:active="$tab == 'weekly'">Weekly</button>
<button type="button" data-on:click="$tab = 'monthly'" data-class:active="$tab == 'monthly'">Monthly</button>
<button type="button" data-on:click="$tab = 'yearly'" data-class:active="$tab == 'yearly'">Yearly</button>
<button type="button" data-on:click="$tab = 'products'" data-class:active="$tab == 'products'">Products</button>
</span>
<a data-attr:href="'/reports/export?format=xlsx&tab=' + $tab + '&from=' + $from + '&to=' + $to + '&category=' + encodeURIComponent($category) + '&brand=' + encodeURIComponent($brand) + '&search=' + encodeURIComponent($search) + '&sort=' + $sort + '&desc=' + $desc">Excel</a>
<a data-attr:href="'/reports/export?format=csv&tab=' + $tab + '&from=' + $from + '&to=' + $to + '&category=' + encodeURIComponent($category) + '&brand=' + encodeURIComponent($brand) + '&search=' + encodeURIComponent($search) + '&sort=' + $sort + '&desc=' + $desc">CSV</a>
<a data-attr:href="'/reports/export?format={{.DocFormat}}&tab=' + $tab + '&from=' + $from + '&to=' + $to + '&category=' + encodeURIComponent($category) + '&brand=' + encodeURIComponent($brand) + '&search=' + encodeURIComponent($search) + '&sort=' + $sort + '&desc=' + $desc">{{if eq .DocFormat "pdf"}}PDF{{else}}Printable{{end}}</a>
</div>
<div id="report-content"><p class="loading">Loading report...</p></div>
</div>
{{end}}`)

	billsPage = page(`{{define "content"}}<div data-signals="{{.SignalsJSON}}" data-init="@get('/sse/bills')">
<h1>Bills</h1>
<div class="toolbar">
<label>From <input type="date" data-bind:from></label>
<label>To <input type="date" data-bind:to></label>
<button type="button" data-on:click="@get('/sse/bills')">Apply</button>
</div>
<div id="bills-table"><p class="loading">Loading bills...</p></div>
</div>
{{end}}`)
)

func Login(data LoginData) templ.Component {
	if data.Title == "" {
		data.Title = "Sign in"
	}
	return component(loginPage, "layout", data)
}

func Dashboard(data DashboardData) templ.Component {
	data.Title, data.Active = "Dashboard", "dashboard"
	return component(dashboardPage, "layout", data)
}

func Report(data ReportData) templ.Component {
	data.Title, data.Active = "Sales report", "reports"
	return component(reportPage, "layout", data)
}

func Bills(data BillsPageData) templ.Component {
	data.Title, data.Active = "Bills", "bills"
	return component(billsPage, "layout", data)
}
