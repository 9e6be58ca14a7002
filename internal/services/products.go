package services

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"retail-dashboard/internal/models"
)

// ProductSalesResult is the per-product fold of one date range. Products keeps
// first-seen order.
type ProductSalesResult struct {
	Products      []models.ProductSalesSummary
	TopByQuantity *models.ProductSalesSummary
	TopByProfit   *models.ProductSalesSummary
	Transactions  int
}

// SummarizeProducts folds the line items of every transaction inside r into
// per-product totals. Items without a product reference are skipped.
func SummarizeProducts(txs []models.Transaction, r models.DateRange) ProductSalesResult {
	var (
		res   ProductSalesResult
		index = make(map[string]int)
	)

	for _, tx := range txs {
		if !r.Contains(tx.CreatedAt) {
			continue
		}
		res.Transactions++

		for _, item := range tx.Items {
			if item.ProductID == "" {
				continue
			}

			i, seen := index[item.ProductID]
			if !seen {
				i = len(res.Products)
				index[item.ProductID] = i
				res.Products = append(res.Products, models.ProductSalesSummary{
					ProductID:   item.ProductID,
					ProductName: item.ProductName,
					Category:    item.Category,
					Brand:       item.Brand,
					Revenue:     decimal.Zero,
					Profit:      decimal.Zero,
				})
			}

			p := &res.Products[i]
			p.Quantity += item.Quantity
			p.Revenue = p.Revenue.Add(item.Revenue())
			p.Profit = p.Profit.Add(item.Profit())
			if tx.CreatedAt.After(p.LastSoldAt) {
				p.LastSoldAt = tx.CreatedAt
			}
		}
	}

	res.TopByQuantity = argmax(res.Products, func(a, b models.ProductSalesSummary) int {
		return cmp.Compare(a.Quantity, b.Quantity)
	})
	res.TopByProfit = argmax(res.Products, func(a, b models.ProductSalesSummary) int {
		return a.Profit.Cmp(b.Profit)
	})
	return res
}

// argmax sorts a copy descending with a stable sort and takes the head, so
// ties go to the first-seen product. Nil on empty input.
func argmax(products []models.ProductSalesSummary, compare func(a, b models.ProductSalesSummary) int) *models.ProductSalesSummary {
	if len(products) == 0 {
		return nil
	}
	sorted := slices.Clone(products)
	slices.SortStableFunc(sorted, func(a, b models.ProductSalesSummary) int {
		return compare(b, a)
	})
	top := sorted[0]
	return &top
}

// TopProducts returns up to n products by revenue.
func (r ProductSalesResult) TopProducts(n int) []models.ProductSalesSummary {
	sorted := slices.Clone(r.Products)
	slices.SortStableFunc(sorted, func(a, b models.ProductSalesSummary) int {
		return b.Revenue.Cmp(a.Revenue)
	})
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	if sorted == nil {
		return []models.ProductSalesSummary{}
	}
	return sorted
}

// CategoryDistribution sums revenue and quantity per category, largest
// revenue first. Products without a category are grouped under
// "Uncategorized".
func (r ProductSalesResult) CategoryDistribution() []models.CategoryShare {
	shares := []models.CategoryShare{}
	index := make(map[string]int)
	for _, p := range r.Products {
		name := p.Category
		if name == "" {
			name = "Uncategorized"
		}
		i, ok := index[name]
		if !ok {
			i = len(shares)
			index[name] = i
			shares = append(shares, models.CategoryShare{Category: name, Revenue: decimal.Zero})
		}
		shares[i].Revenue = shares[i].Revenue.Add(p.Revenue)
		shares[i].Quantity += p.Quantity
	}
	slices.SortStableFunc(shares, func(a, b models.CategoryShare) int {
		return b.Revenue.Cmp(a.Revenue)
	})
	return shares
}

func (r ProductSalesResult) Totals() models.ReportTotals {
	t := models.ReportTotals{
		Transactions: r.Transactions,
		Revenue:      decimal.Zero,
		Profit:       decimal.Zero,
	}
	for _, p := range r.Products {
		t.Quantity += p.Quantity
		t.Revenue = t.Revenue.Add(p.Revenue)
		t.Profit = t.Profit.Add(p.Profit)
	}
	return t
}
