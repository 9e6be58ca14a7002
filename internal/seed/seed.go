// Package seed generates a plausible shop history: a product catalog and a
// run of daily bills against it. The output is deterministic for a given
// seed and clock.
package seed

import (
	"slices"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"

	"retail-dashboard/internal/models"
)

type Options struct {
	Seed        uint64
	Days        int
	Products    int
	BillsPerDay int
	Now         time.Time
}

type Dataset struct {
	Transactions []models.Transaction
	Inventory    []models.InventoryItem
}

var categories = []string{"Electronics", "Accessories", "Groceries", "Household", "Stationery", "Beverages"}

func (o Options) withDefaults() Options {
	if o.Days <= 0 {
		o.Days = 90
	}
	if o.Products <= 0 {
		o.Products = 40
	}
	if o.BillsPerDay <= 0 {
		o.BillsPerDay = 12
	}
	if o.Now.IsZero() {
		o.Now = time.Now()
	}
	return o
}

func Generate(opts Options) Dataset {
	opts = opts.withDefaults()
	f := gofakeit.New(opts.Seed)

	brands := make([]string, 8)
	for i := range brands {
		brands[i] = f.Company()
	}

	inventory := make([]models.InventoryItem, opts.Products)
	for i := range inventory {
		selling := money(f.Float64Range(2, 900))
		inventory[i] = models.InventoryItem{
			ID:           f.UUID(),
			Name:         f.ProductName(),
			Category:     categories[f.IntRange(0, len(categories)-1)],
			Brand:        brands[f.IntRange(0, len(brands)-1)],
			Quantity:     f.IntRange(0, 80),
			SellingPrice: selling,
			BuyingPrice:  selling.Mul(decimal.NewFromFloat(f.Float64Range(0.55, 0.85))).Round(2),
		}
	}

	var txs []models.Transaction
	today := models.StartOfDay(opts.Now)
	for d := opts.Days - 1; d >= 0; d-- {
		day := today.AddDate(0, 0, -d)
		bills := f.IntRange(1, opts.BillsPerDay)
		for b := 0; b < bills; b++ {
			at := day.Add(time.Duration(f.IntRange(8*3600, 21*3600)) * time.Second)
			if at.After(opts.Now) {
				continue
			}
			txs = append(txs, bill(f, at, inventory))
		}
	}

	slices.SortStableFunc(txs, func(a, b models.Transaction) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return Dataset{Transactions: txs, Inventory: inventory}
}

func bill(f *gofakeit.Faker, at time.Time, inventory []models.InventoryItem) models.Transaction {
	t := models.Transaction{
		ID:        f.UUID(),
		CreatedAt: at,
		Status:    status(f),
	}
	if f.Bool() {
		t.CustomerName = f.Name()
	}

	lines := f.IntRange(1, 4)
	for i := 0; i < lines; i++ {
		p := inventory[f.IntRange(0, len(inventory)-1)]
		li := models.LineItem{
			ID:            f.UUID(),
			TransactionID: t.ID,
			ProductID:     p.ID,
			ProductName:   p.Name,
			Quantity:      f.IntRange(1, 5),
			Price:         p.SellingPrice,
			BuyingPrice:   p.BuyingPrice,
			Category:      p.Category,
			Brand:         p.Brand,
			CreatedAt:     at,
		}
		t.Items = append(t.Items, li)
		t.TotalAmount = t.TotalAmount.Add(li.Revenue())
	}
	return t
}

func status(f *gofakeit.Faker) string {
	switch n := f.IntRange(1, 100); {
	case n <= 90:
		return models.StatusCompleted
	case n <= 97:
		return models.StatusPending
	default:
		return models.StatusVoided
	}
}

func money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}
