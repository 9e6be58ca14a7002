package services

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"retail-dashboard/internal/gateway"
	"retail-dashboard/internal/models"
	"retail-dashboard/internal/observability"
)

const topSoldCount = 5

// ComputeDashboardStats reduces the three collections into the store-wide
// figures on the landing page. Today is the calendar day of now in now's
// location.
func ComputeDashboardStats(txs []models.Transaction, inventory []models.InventoryItem, items []models.LineItem, now time.Time, lowStockThreshold int) models.DashboardStats {
	stats := models.DashboardStats{
		TotalSales:   decimal.Zero,
		TodaySales:   decimal.Zero,
		ProductCount: len(inventory),
		TopSold:      []models.ProductQuantity{},
		GeneratedAt:  now,
	}

	today := models.StartOfDay(now)
	for _, tx := range txs {
		stats.TotalSales = stats.TotalSales.Add(tx.TotalAmount)
		if !tx.CreatedAt.Before(today) {
			stats.TodaySales = stats.TodaySales.Add(tx.TotalAmount)
			stats.TransactionsToday++
		}
	}

	for _, it := range inventory {
		switch {
		case it.Quantity <= 0:
			stats.OutOfStockCount++
		case it.Quantity <= lowStockThreshold:
			stats.LowStockCount++
		}
	}

	index := make(map[string]int)
	for _, li := range items {
		if li.ProductID == "" {
			continue
		}
		i, ok := index[li.ProductID]
		if !ok {
			i = len(stats.TopSold)
			index[li.ProductID] = i
			stats.TopSold = append(stats.TopSold, models.ProductQuantity{ProductID: li.ProductID, ProductName: li.ProductName})
		}
		stats.TopSold[i].Quantity += li.Quantity
	}
	slices.SortStableFunc(stats.TopSold, func(a, b models.ProductQuantity) int {
		return cmp.Compare(b.Quantity, a.Quantity)
	})
	if len(stats.TopSold) > topSoldCount {
		stats.TopSold = stats.TopSold[:topSoldCount]
	}
	return stats
}

type Dashboard struct {
	gw                gateway.Gateway
	loc               *time.Location
	lowStockThreshold int
	now               func() time.Time
	logger            *slog.Logger
}

func NewDashboard(gw gateway.Gateway, loc *time.Location, lowStockThreshold int, logger *slog.Logger) *Dashboard {
	return &Dashboard{
		gw:                gw,
		loc:               loc,
		lowStockThreshold: lowStockThreshold,
		now:               time.Now,
		logger:            logger,
	}
}

// Load fetches completed transactions, inventory and line items concurrently.
// Only line items on the completed transactions count towards the top sellers.
// The first failure cancels the others and is returned as is.
func (d *Dashboard) Load(ctx context.Context) (_ *models.DashboardStats, err error) {
	ctx, span := observability.StartSpan(ctx, "dashboard.load")
	defer func() { observability.EndSpan(span, err) }()

	var (
		txs       []models.Transaction
		inventory []models.InventoryItem
		items     []models.LineItem
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		txs, err = d.gw.FetchTransactions(gctx, gateway.TransactionQuery{
			Status:  models.StatusCompleted,
			Columns: []string{"id", "created_at", "total_amount", "status"},
		})
		return err
	})
	g.Go(func() error {
		var err error
		inventory, err = d.gw.FetchInventory(gctx, gateway.InventoryQuery{
			Columns: []string{"id", "name", "quantity"},
		})
		return err
	})
	g.Go(func() error {
		var err error
		items, err = d.gw.FetchLineItems(gctx, gateway.LineItemQuery{
			Columns: []string{"bill_id", "product_id", "product_name", "quantity"},
		})
		return err
	})

	if err := g.Wait(); err != nil {
		observability.LoggerFrom(ctx, d.logger).Error("dashboard fetch failed", "error", err)
		return nil, fmt.Errorf("load dashboard: %w", err)
	}

	stats := ComputeDashboardStats(txs, inventory, soldItems(txs, items), d.now().In(d.loc), d.lowStockThreshold)
	return &stats, nil
}

// soldItems keeps the line items that belong to one of txs. Items on pending
// or voided bills, or with no bill at all, were never sold.
func soldItems(txs []models.Transaction, items []models.LineItem) []models.LineItem {
	ids := make(map[string]struct{}, len(txs))
	for _, tx := range txs {
		ids[tx.ID] = struct{}{}
	}
	return slices.DeleteFunc(items, func(li models.LineItem) bool {
		_, ok := ids[li.TransactionID]
		return !ok
	})
}
