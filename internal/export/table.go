package export

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"retail-dashboard/internal/models"
)

// Table is a tab flattened to rows. Cells hold string, int, decimal.Decimal
// or time.Time values; each writer formats them its own way.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]any
	Footer  []any
}

func buildTable(req Request) (Table, error) {
	vm := req.Model
	switch req.Tab {
	case TabDaily:
		return bucketTable("Daily sales, last 30 days", vm.Daily), nil
	case TabWeekly:
		return bucketTable("Weekly sales, last 12 weeks", vm.Weekly), nil
	case TabMonthly:
		return bucketTable("Monthly sales, last 12 months", vm.Monthly), nil
	case TabYearly:
		return bucketTable("Yearly sales, last 5 years", vm.Yearly), nil
	case TabProducts:
		products := req.Products
		if products == nil {
			products = vm.Products
		}
		return productTable(vm.Range, products), nil
	default:
		return Table{}, fmt.Errorf("unknown report tab %q", req.Tab)
	}
}

func bucketTable(title string, buckets []models.TimeBucket) Table {
	t := Table{Title: title, Headers: []string{"Period", "Sales"}}
	total := decimal.Zero
	for _, b := range buckets {
		t.Rows = append(t.Rows, []any{b.Label, b.Amount})
		total = total.Add(b.Amount)
	}
	t.Footer = []any{"Total", total}
	return t
}

func productTable(r models.DateRange, products []models.ProductSalesSummary) Table {
	t := Table{
		Title:   fmt.Sprintf("Product sales, %s to %s", r.From.Format(time.DateOnly), r.To.Format(time.DateOnly)),
		Headers: []string{"Product", "Category", "Brand", "Quantity", "Revenue", "Profit", "Last sold"},
	}

	var (
		qty     int
		revenue = decimal.Zero
		profit  = decimal.Zero
	)
	for _, p := range products {
		t.Rows = append(t.Rows, []any{p.ProductName, p.Category, p.Brand, p.Quantity, p.Revenue, p.Profit, p.LastSoldAt})
		qty += p.Quantity
		revenue = revenue.Add(p.Revenue)
		profit = profit.Add(p.Profit)
	}
	t.Footer = []any{"Total", "", "", qty, revenue, profit, ""}
	return t
}

// formatCell renders a cell as text for CSV and HTML.
func formatCell(v any) string {
	switch c := v.(type) {
	case string:
		return c
	case int:
		return fmt.Sprint(c)
	case decimal.Decimal:
		return c.StringFixed(2)
	case time.Time:
		if c.IsZero() {
			return ""
		}
		return c.Format("2006-01-02 15:04")
	case nil:
		return ""
	default:
		return fmt.Sprint(c)
	}
}
