package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/url"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"retail-dashboard/internal/export"
	"retail-dashboard/internal/gateway"
	"retail-dashboard/internal/models"
	"retail-dashboard/internal/services"
)

var (
	testTables    = gateway.Tables{Transactions: "bills", LineItems: "bill_items", Inventory: "products"}
	discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))
)

func lineItem(productID, name, category, brand string, qty int, price, cost int64) models.LineItem {
	return models.LineItem{
		ProductID:   productID,
		ProductName: name,
		Category:    category,
		Brand:       brand,
		Quantity:    qty,
		Price:       decimal.NewFromInt(price),
		BuyingPrice: decimal.NewFromInt(cost),
	}
}

func testBill(id string, at time.Time, status string, items ...models.LineItem) models.Transaction {
	total := decimal.Zero
	for i := range items {
		items[i].TransactionID = id
		items[i].CreatedAt = at
		total = total.Add(items[i].Revenue())
	}
	return models.Transaction{ID: id, CreatedAt: at, TotalAmount: total, Status: status, Items: items}
}

type fixture struct {
	gw        *gateway.MemoryGateway
	reports   *services.ReportService
	views     *services.ReportViews
	dashboard *services.Dashboard
	exporter  *export.Exporter
}

// newFixture serves two completed bills and one pending bill from the last
// few days.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	now := time.Now().UTC()

	gw := gateway.NewMemoryGateway(testTables,
		[]models.Transaction{
			testBill("b-1", now.Add(-time.Hour), models.StatusCompleted, lineItem("p1", "Phone", "Electronics", "Acme", 1, 500, 350)),
			testBill("b-2", now.AddDate(0, 0, -3), models.StatusCompleted, lineItem("p2", "Cable", "Accessories", "Zed", 4, 10, 3)),
			testBill("b-3", now.AddDate(0, 0, -2), models.StatusPending, lineItem("p3", "Charger", "Accessories", "Zed", 1, 30, 20)),
		},
		[]models.InventoryItem{
			{ID: "p1", Name: "Phone", Quantity: 3},
			{ID: "p2", Name: "Cable", Quantity: 0},
		},
	)

	reports := services.NewReportService(gw, time.UTC, 5, nil, discardLogger)
	views := services.NewReportViews(reports, 0)
	t.Cleanup(func() { views.Close() })

	return &fixture{
		gw:        gw,
		reports:   reports,
		views:     views,
		dashboard: services.NewDashboard(gw, time.UTC, 5, discardLogger),
		exporter:  export.NewExporter(nil, nil, discardLogger),
	}
}

func today() string {
	return time.Now().UTC().Format(time.DateOnly)
}

func daysAgo(n int) string {
	return time.Now().UTC().AddDate(0, 0, -n).Format(time.DateOnly)
}

// signalsQuery encodes signals the way Datastar sends them on GET requests.
func signalsQuery(t *testing.T, signals map[string]any) string {
	t.Helper()
	return "datastar=" + url.QueryEscape(signalsJSON(t, signals))
}

func signalsJSON(t *testing.T, signals map[string]any) string {
	t.Helper()
	raw, err := json.Marshal(signals)
	if err != nil {
		t.Fatalf("marshal signals: %v", err)
	}
	return string(raw)
}

func decodeData(t *testing.T, body io.Reader) map[string]any {
	t.Helper()
	var response map[string]any
	if err := json.NewDecoder(body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}
	if success, ok := response["success"].(bool); !ok || !success {
		t.Fatalf("expected success=true in response, got %v", response)
	}
	data, _ := response["data"].(map[string]any)
	return data
}
