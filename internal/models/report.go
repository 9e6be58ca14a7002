package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TimeBucket struct {
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

type ProductSalesSummary struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Category    string          `json:"category,omitempty"`
	Brand       string          `json:"brand,omitempty"`
	Quantity    int             `json:"quantity"`
	Revenue     decimal.Decimal `json:"revenue"`
	Profit      decimal.Decimal `json:"profit"`
	LastSoldAt  time.Time       `json:"last_sold_at"`
}

type CategoryShare struct {
	Category string          `json:"category"`
	Revenue  decimal.Decimal `json:"revenue"`
	Quantity int             `json:"quantity"`
}

type ReportTotals struct {
	Transactions int             `json:"transactions"`
	Quantity     int             `json:"quantity"`
	Revenue      decimal.Decimal `json:"revenue"`
	Profit       decimal.Decimal `json:"profit"`
}

// ReportViewModel is everything the sales report renders for one date range.
type ReportViewModel struct {
	Range         DateRange             `json:"range"`
	Daily         []TimeBucket          `json:"daily"`
	Weekly        []TimeBucket          `json:"weekly"`
	Monthly       []TimeBucket          `json:"monthly"`
	Yearly        []TimeBucket          `json:"yearly"`
	Products      []ProductSalesSummary `json:"products"`
	TopByQuantity *ProductSalesSummary  `json:"top_by_quantity"`
	TopByProfit   *ProductSalesSummary  `json:"top_by_profit"`
	Categories    []CategoryShare       `json:"categories"`
	TopProducts   []ProductSalesSummary `json:"top_products"`
	Totals        ReportTotals          `json:"totals"`
	GeneratedAt   time.Time             `json:"generated_at"`
}

type ProductQuantity struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
}

type DashboardStats struct {
	TotalSales        decimal.Decimal   `json:"total_sales"`
	TodaySales        decimal.Decimal   `json:"today_sales"`
	TransactionsToday int               `json:"transactions_today"`
	ProductCount      int               `json:"product_count"`
	LowStockCount     int               `json:"low_stock_count"`
	OutOfStockCount   int               `json:"out_of_stock_count"`
	TopSold           []ProductQuantity `json:"top_sold"`
	GeneratedAt       time.Time         `json:"generated_at"`
}
