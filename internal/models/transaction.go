package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusCompleted = "completed"
	StatusPending   = "pending"
	StatusVoided    = "voided"
)

type Transaction struct {
	ID           string          `json:"id"`
	CustomerName string          `json:"customer_name,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Status       string          `json:"status"`
	Items        []LineItem      `json:"items,omitempty"`
}

// LineItem carries the product's buying price, category and brand as they were
// at sale time, so later catalog edits do not rewrite history.
type LineItem struct {
	ID            string          `json:"id,omitempty"`
	TransactionID string          `json:"bill_id,omitempty"`
	ProductID     string          `json:"product_id"`
	ProductName   string          `json:"product_name"`
	Quantity      int             `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	BuyingPrice   decimal.Decimal `json:"buying_price"`
	Category      string          `json:"category,omitempty"`
	Brand         string          `json:"brand,omitempty"`
	CreatedAt     time.Time       `json:"created_at,omitempty"`
}

func (li LineItem) Revenue() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

func (li LineItem) Profit() decimal.Decimal {
	return li.Price.Sub(li.BuyingPrice).Mul(decimal.NewFromInt(int64(li.Quantity)))
}

type InventoryItem struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Category     string          `json:"category,omitempty"`
	Brand        string          `json:"brand,omitempty"`
	Quantity     int             `json:"quantity"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	BuyingPrice  decimal.Decimal `json:"buying_price"`
}

// DateRange is inclusive on both ends at day granularity.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func (r DateRange) Start() time.Time {
	return StartOfDay(r.From)
}

func (r DateRange) End() time.Time {
	return StartOfDay(r.To).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start()) && !t.After(r.End())
}

func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
