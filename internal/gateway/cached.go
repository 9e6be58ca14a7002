package gateway

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"retail-dashboard/internal/cache"
	"retail-dashboard/internal/models"
	"retail-dashboard/internal/observability"
)

// CachedGateway keeps read results in a cache.Store keyed by collection,
// caller and query parameters. Entries go stale after ttl; writes made
// through it invalidate the affected collections.
type CachedGateway struct {
	next    Gateway
	store   cache.Store
	ttl     time.Duration
	tables  Tables
	metrics *observability.Metrics
	logger  *slog.Logger
}

func NewCachedGateway(next Gateway, store cache.Store, ttl time.Duration, tables Tables, metrics *observability.Metrics, logger *slog.Logger) *CachedGateway {
	return &CachedGateway{
		next:    next,
		store:   store,
		ttl:     ttl,
		tables:  tables,
		metrics: metrics,
		logger:  logger,
	}
}

func (g *CachedGateway) FetchTransactions(ctx context.Context, q TransactionQuery) ([]models.Transaction, error) {
	return cached(ctx, g, g.tables.Transactions, q, func() ([]models.Transaction, error) {
		return g.next.FetchTransactions(ctx, q)
	})
}

func (g *CachedGateway) FetchInventory(ctx context.Context, q InventoryQuery) ([]models.InventoryItem, error) {
	return cached(ctx, g, g.tables.Inventory, q, func() ([]models.InventoryItem, error) {
		return g.next.FetchInventory(ctx, q)
	})
}

func (g *CachedGateway) FetchLineItems(ctx context.Context, q LineItemQuery) ([]models.LineItem, error) {
	return cached(ctx, g, g.tables.LineItems, q, func() ([]models.LineItem, error) {
		return g.next.FetchLineItems(ctx, q)
	})
}

func (g *CachedGateway) DeleteTransaction(ctx context.Context, id string) error {
	if err := g.next.DeleteTransaction(ctx, id); err != nil {
		return err
	}
	return g.Invalidate(ctx, g.tables.Transactions, g.tables.LineItems)
}

// Invalidate drops every cached query for the given collections.
func (g *CachedGateway) Invalidate(ctx context.Context, collections ...string) error {
	var errs []error
	for _, c := range collections {
		if err := g.store.DeletePrefix(ctx, c+":"); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func cached[T any](ctx context.Context, g *CachedGateway, collection string, query any, fetch func() ([]T, error)) ([]T, error) {
	key, err := cacheKey(collection, accessToken(ctx), query)
	if err != nil {
		return fetch()
	}

	var rows []T
	hit, err := g.store.Get(ctx, key, &rows)
	if err != nil {
		g.logger.Warn("query cache read failed", "key", key, "error", err)
	}
	g.metrics.CacheLookup(hit)
	if hit {
		return rows, nil
	}

	rows, err = fetch()
	if err != nil {
		return nil, err
	}

	if err := g.store.Set(ctx, key, rows, g.ttl); err != nil {
		g.logger.Warn("query cache write failed", "key", key, "error", err)
	}
	return rows, nil
}

// cacheKey is <collection>:<caller>:<query>. The backend scopes rows by the
// caller's token, so one caller's results are never served to another.
// Public-key reads share the "public" segment.
func cacheKey(collection, token string, query any) (string, error) {
	raw, err := json.Marshal(query)
	if err != nil {
		return "", err
	}
	caller := "public"
	if token != "" {
		sum := sha256.Sum256([]byte(token))
		caller = hex.EncodeToString(sum[:12])
	}
	sum := sha256.Sum256(raw)
	return collection + ":" + caller + ":" + hex.EncodeToString(sum[:12]), nil
}

var _ Gateway = (*CachedGateway)(nil)
