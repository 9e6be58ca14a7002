package gateway

import (
	"cmp"
	"context"
	"net/http"
	"slices"
	"sync"
	"time"

	"retail-dashboard/internal/models"
)

// MemoryGateway serves the collections from process memory. It backs the
// demo mode and the tests of everything built on Gateway.
type MemoryGateway struct {
	mu           sync.RWMutex
	tables       Tables
	transactions []models.Transaction
	inventory    []models.InventoryItem
	fail         map[string]error
}

func NewMemoryGateway(tables Tables, txs []models.Transaction, inventory []models.InventoryItem) *MemoryGateway {
	return &MemoryGateway{
		tables:       tables,
		transactions: txs,
		inventory:    inventory,
		fail:         make(map[string]error),
	}
}

func (g *MemoryGateway) FetchTransactions(ctx context.Context, q TransactionQuery) ([]models.Transaction, error) {
	if err := g.check(ctx, g.tables.Transactions); err != nil {
		return nil, err
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []models.Transaction
	for _, t := range g.transactions {
		if q.Status != "" && !compare(t.Status, q.StatusOp, q.Status) {
			continue
		}
		if !inRange(t.CreatedAt, q.From, q.To) {
			continue
		}
		if !q.WithItems {
			t.Items = nil
		} else {
			t.Items = slices.Clone(t.Items)
		}
		out = append(out, t)
	}
	slices.SortStableFunc(out, func(a, b models.Transaction) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}

func (g *MemoryGateway) FetchInventory(ctx context.Context, q InventoryQuery) ([]models.InventoryItem, error) {
	if err := g.check(ctx, g.tables.Inventory); err != nil {
		return nil, err
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []models.InventoryItem
	for _, it := range g.inventory {
		if q.MaxQuantity != nil && it.Quantity > *q.MaxQuantity {
			continue
		}
		out = append(out, it)
	}
	slices.SortStableFunc(out, func(a, b models.InventoryItem) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return out, nil
}

func (g *MemoryGateway) FetchLineItems(ctx context.Context, q LineItemQuery) ([]models.LineItem, error) {
	if err := g.check(ctx, g.tables.LineItems); err != nil {
		return nil, err
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []models.LineItem
	for _, t := range g.transactions {
		for _, li := range t.Items {
			at := li.CreatedAt
			if at.IsZero() {
				at = t.CreatedAt
			}
			if !inRange(at, q.From, q.To) {
				continue
			}
			li.TransactionID = t.ID
			li.CreatedAt = at
			out = append(out, li)
		}
	}
	return out, nil
}

func (g *MemoryGateway) DeleteTransaction(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	i := slices.IndexFunc(g.transactions, func(t models.Transaction) bool { return t.ID == id })
	if i < 0 {
		return &QueryError{Collection: g.tables.Transactions, Status: http.StatusNotFound, Message: "no bill with id " + id, Err: ErrNotFound}
	}
	g.transactions = slices.Delete(g.transactions, i, i+1)
	return nil
}

func (g *MemoryGateway) check(ctx context.Context, collection string) error {
	if err := ctx.Err(); err != nil {
		return &QueryError{Collection: collection, Message: err.Error(), Err: err}
	}
	g.mu.RLock()
	err := g.fail[collection]
	g.mu.RUnlock()
	if err != nil {
		return &QueryError{Collection: collection, Message: err.Error(), Err: err}
	}
	return nil
}

// SetFailure makes reads of collection fail with err; nil clears it.
func (g *MemoryGateway) SetFailure(collection string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err == nil {
		delete(g.fail, collection)
		return
	}
	g.fail[collection] = err
}

func compare(value string, op Op, target string) bool {
	c := cmp.Compare(value, target)
	switch op {
	case OpGt:
		return c > 0
	case OpGte:
		return c >= 0
	case OpLt:
		return c < 0
	case OpLte:
		return c <= 0
	default:
		return c == 0
	}
}

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && t.After(to) {
		return false
	}
	return true
}

var _ Gateway = (*MemoryGateway)(nil)
