package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-dashboard/internal/models"
)

func item(productID, name string, qty int, price, cost int64) models.LineItem {
	return models.LineItem{
		ProductID:   productID,
		ProductName: name,
		Quantity:    qty,
		Price:       decimal.NewFromInt(price),
		BuyingPrice: decimal.NewFromInt(cost),
	}
}

func bill(at time.Time, items ...models.LineItem) models.Transaction {
	total := decimal.Zero
	for _, li := range items {
		total = total.Add(li.Revenue())
	}
	return models.Transaction{ID: at.String(), CreatedAt: at, TotalAmount: total, Status: models.StatusCompleted, Items: items}
}

var march = models.DateRange{
	From: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	To:   time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
}

func TestSummarizeProducts_Additive(t *testing.T) {
	d1 := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 3, 9, 16, 0, 0, 0, time.UTC)
	txs := []models.Transaction{
		bill(d1, item("P1", "Phone", 3, 50, 30)),
		bill(d2, item("P1", "Phone", 2, 50, 30)),
	}

	res := SummarizeProducts(txs, march)

	require.Len(t, res.Products, 1)
	p := res.Products[0]
	assert.Equal(t, 5, p.Quantity)
	assert.True(t, p.Revenue.Equal(decimal.NewFromInt(250)), "revenue %s", p.Revenue)
	assert.True(t, p.Profit.Equal(decimal.NewFromInt(100)), "profit %s", p.Profit)
	assert.Equal(t, d2, p.LastSoldAt)
	assert.Equal(t, 2, res.Transactions)
}

func TestSummarizeProducts_SkipsMissingProduct(t *testing.T) {
	txs := []models.Transaction{
		bill(time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC),
			item("", "Gift wrap", 1, 5, 0),
			item("P2", "Cable", 4, 10, 4),
		),
	}

	res := SummarizeProducts(txs, march)

	require.Len(t, res.Products, 1)
	assert.Equal(t, "P2", res.Products[0].ProductID)
}

func TestSummarizeProducts_RangeIsInclusiveByDay(t *testing.T) {
	txs := []models.Transaction{
		bill(time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC), item("P1", "Phone", 1, 50, 30)),
		bill(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), item("P1", "Phone", 1, 50, 30)),
		bill(time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC), item("P1", "Phone", 1, 50, 30)),
		bill(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), item("P1", "Phone", 1, 50, 30)),
	}

	res := SummarizeProducts(txs, march)

	require.Len(t, res.Products, 1)
	assert.Equal(t, 2, res.Products[0].Quantity)
}

func TestSummarizeProducts_Argmax(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		res := SummarizeProducts(nil, march)
		assert.Nil(t, res.TopByQuantity)
		assert.Nil(t, res.TopByProfit)
		assert.Empty(t, res.TopProducts(5))
	})

	t.Run("max members", func(t *testing.T) {
		at := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
		txs := []models.Transaction{bill(at,
			item("A", "Charger", 10, 5, 4),   // qty 10, profit 10
			item("B", "Laptop", 1, 900, 600), // qty 1, profit 300
			item("C", "Case", 4, 20, 10),     // qty 4, profit 40
		)}

		res := SummarizeProducts(txs, march)

		require.NotNil(t, res.TopByQuantity)
		require.NotNil(t, res.TopByProfit)
		assert.Equal(t, "A", res.TopByQuantity.ProductID)
		assert.Equal(t, "B", res.TopByProfit.ProductID)
		for _, p := range res.Products {
			assert.LessOrEqual(t, p.Quantity, res.TopByQuantity.Quantity)
			assert.True(t, p.Profit.LessThanOrEqual(res.TopByProfit.Profit))
		}
	})

	t.Run("ties go to first seen", func(t *testing.T) {
		at := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
		txs := []models.Transaction{
			bill(at, item("X", "Mug", 2, 10, 5)),
			bill(at.Add(time.Hour), item("Y", "Cup", 2, 10, 5)),
		}

		res := SummarizeProducts(txs, march)

		assert.Equal(t, "X", res.TopByQuantity.ProductID)
		assert.Equal(t, "X", res.TopByProfit.ProductID)
	})
}

func TestProductSalesResult_Distributions(t *testing.T) {
	at := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	phone := item("P1", "Phone", 2, 300, 200)
	phone.Category = "Electronics"
	cable := item("P2", "Cable", 10, 5, 2)
	cable.Category = "Electronics"
	bread := item("P3", "Bread", 3, 2, 1)
	bread.Category = "Groceries"
	loose := item("P4", "Bag", 1, 1, 0)

	res := SummarizeProducts([]models.Transaction{bill(at, phone, cable, bread, loose)}, march)

	top := res.TopProducts(2)
	require.Len(t, top, 2)
	assert.Equal(t, "P1", top[0].ProductID)
	assert.Equal(t, "P2", top[1].ProductID)

	cats := res.CategoryDistribution()
	require.Len(t, cats, 3)
	assert.Equal(t, "Electronics", cats[0].Category)
	assert.True(t, cats[0].Revenue.Equal(decimal.NewFromInt(650)))
	assert.Equal(t, 12, cats[0].Quantity)
	assert.Equal(t, "Uncategorized", cats[2].Category)

	totals := res.Totals()
	assert.Equal(t, 1, totals.Transactions)
	assert.Equal(t, 16, totals.Quantity)
	assert.True(t, totals.Revenue.Equal(decimal.NewFromInt(657)))
	assert.True(t, totals.Profit.Equal(decimal.NewFromInt(234)))
}

func TestFilterProducts(t *testing.T) {
	products := []models.ProductSalesSummary{
		{ProductID: "1", ProductName: "Smartphone X", Category: "Electronics", Brand: "TechBrand"},
		{ProductID: "2", ProductName: "Phone Case", Category: "Accessories", Brand: "TechBrand"},
		{ProductID: "3", ProductName: "Headphones", Category: "Electronics", Brand: "SoundCo"},
		{ProductID: "4", ProductName: "Laptop", Category: "Electronics", Brand: "TechBrand"},
	}

	tests := []struct {
		name   string
		filter ProductFilter
		want   []string
	}{
		{"no filter", ProductFilter{}, []string{"1", "2", "3", "4"}},
		{"category", ProductFilter{Category: "Electronics"}, []string{"1", "3", "4"}},
		{"brand", ProductFilter{Brand: "techbrand"}, []string{"1", "2", "4"}},
		{"search", ProductFilter{Search: "PHONE"}, []string{"1", "2", "3"}},
		{"all three", ProductFilter{Category: "Electronics", Brand: "TechBrand", Search: "phone"}, []string{"1"}},
		{"nothing matches", ProductFilter{Category: "Groceries"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ids []string
			for _, p := range FilterProducts(products, tt.filter) {
				ids = append(ids, p.ProductID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestSortProducts(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	products := []models.ProductSalesSummary{
		{ProductID: "b", ProductName: "banana", Quantity: 5, Revenue: decimal.NewFromInt(10), Profit: decimal.NewFromInt(1), LastSoldAt: base},
		{ProductID: "a", ProductName: "Apple", Quantity: 5, Revenue: decimal.NewFromInt(30), Profit: decimal.NewFromInt(9), LastSoldAt: base.Add(time.Hour)},
		{ProductID: "c", ProductName: "cherry", Quantity: 1, Revenue: decimal.NewFromInt(20), Profit: decimal.NewFromInt(4), LastSoldAt: base.Add(-time.Hour)},
	}

	tests := []struct {
		field SortField
		desc  bool
		want  []string
	}{
		{SortByName, false, []string{"a", "b", "c"}},
		{SortByQuantity, true, []string{"b", "a", "c"}},
		{SortByRevenue, true, []string{"a", "c", "b"}},
		{SortByProfit, false, []string{"b", "c", "a"}},
		{SortByLastSold, true, []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.field), func(t *testing.T) {
			sorted := append([]models.ProductSalesSummary(nil), products...)
			SortProducts(sorted, tt.field, tt.desc)

			var ids []string
			for _, p := range sorted {
				ids = append(ids, p.ProductID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestFacets(t *testing.T) {
	cats, brands := Facets([]models.ProductSalesSummary{
		{Category: "Electronics", Brand: "TechBrand"},
		{Category: "Accessories", Brand: "TechBrand"},
		{Category: "Electronics"},
	})
	assert.Equal(t, []string{"Accessories", "Electronics"}, cats)
	assert.Equal(t, []string{"TechBrand"}, brands)
}
