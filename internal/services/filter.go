package services

import (
	"cmp"
	"slices"
	"strings"

	"retail-dashboard/internal/models"
)

// ProductFilter narrows the product table. Empty fields match everything;
// set fields are combined with AND.
type ProductFilter struct {
	Category string `json:"category" validate:"omitempty,max=100"`
	Brand    string `json:"brand" validate:"omitempty,max=100"`
	Search   string `json:"search" validate:"omitempty,max=200"`
}

func (f ProductFilter) matches(p models.ProductSalesSummary) bool {
	if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
		return false
	}
	if f.Brand != "" && !strings.EqualFold(p.Brand, f.Brand) {
		return false
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		if !strings.Contains(strings.ToLower(p.ProductName), strings.ToLower(q)) {
			return false
		}
	}
	return true
}

func FilterProducts(products []models.ProductSalesSummary, f ProductFilter) []models.ProductSalesSummary {
	out := make([]models.ProductSalesSummary, 0, len(products))
	for _, p := range products {
		if f.matches(p) {
			out = append(out, p)
		}
	}
	return out
}

type SortField string

const (
	SortByName     SortField = "name"
	SortByQuantity SortField = "quantity"
	SortByRevenue  SortField = "revenue"
	SortByProfit   SortField = "profit"
	SortByLastSold SortField = "last_sold"
)

// SortProducts sorts in place. Equal keys keep their current order.
func SortProducts(products []models.ProductSalesSummary, field SortField, desc bool) {
	compare := func(a, b models.ProductSalesSummary) int {
		switch field {
		case SortByQuantity:
			return cmp.Compare(a.Quantity, b.Quantity)
		case SortByRevenue:
			return a.Revenue.Cmp(b.Revenue)
		case SortByProfit:
			return a.Profit.Cmp(b.Profit)
		case SortByLastSold:
			return a.LastSoldAt.Compare(b.LastSoldAt)
		default:
			return cmp.Compare(strings.ToLower(a.ProductName), strings.ToLower(b.ProductName))
		}
	}
	slices.SortStableFunc(products, func(a, b models.ProductSalesSummary) int {
		if desc {
			return compare(b, a)
		}
		return compare(a, b)
	})
}

// Facets lists the distinct categories and brands present, sorted, for the
// filter dropdowns.
func Facets(products []models.ProductSalesSummary) (categories, brands []string) {
	for _, p := range products {
		if p.Category != "" && !slices.Contains(categories, p.Category) {
			categories = append(categories, p.Category)
		}
		if p.Brand != "" && !slices.Contains(brands, p.Brand) {
			brands = append(brands, p.Brand)
		}
	}
	slices.Sort(categories)
	slices.Sort(brands)
	return categories, brands
}
