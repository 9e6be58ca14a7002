// Package gateway reads the three backend collections the reports are built
// from: transactions, their line items and inventory. It performs no retries;
// every failure reaches the caller as a *QueryError.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"retail-dashboard/internal/config"
	"retail-dashboard/internal/models"
	"retail-dashboard/internal/observability"
	"retail-dashboard/internal/seed"
)

var ErrNotFound = errors.New("record not found")

type Op string

const (
	OpEq  Op = "eq"
	OpGt  Op = "gt"
	OpGte Op = "gte"
	OpLt  Op = "lt"
	OpLte Op = "lte"
)

func (o Op) sql() string {
	switch o {
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	default:
		return "="
	}
}

// TransactionQuery selects transactions. Zero From/To leave that side of the
// created_at range open; an empty Status matches every status.
type TransactionQuery struct {
	Status    string    `json:"status,omitempty"`
	StatusOp  Op        `json:"status_op,omitempty"`
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
	WithItems bool      `json:"with_items,omitempty"`
	Columns   []string  `json:"columns,omitempty"`
}

type InventoryQuery struct {
	// MaxQuantity, when set, keeps items with quantity <= *MaxQuantity.
	MaxQuantity *int     `json:"max_quantity,omitempty"`
	Columns     []string `json:"columns,omitempty"`
}

type LineItemQuery struct {
	From    time.Time `json:"from"`
	To      time.Time `json:"to"`
	Columns []string  `json:"columns,omitempty"`
}

type Gateway interface {
	FetchTransactions(ctx context.Context, q TransactionQuery) ([]models.Transaction, error)
	FetchInventory(ctx context.Context, q InventoryQuery) ([]models.InventoryItem, error)
	FetchLineItems(ctx context.Context, q LineItemQuery) ([]models.LineItem, error)
	// DeleteTransaction removes a bill through the backend. It is the only
	// write this service performs.
	DeleteTransaction(ctx context.Context, id string) error
}

// QueryError carries the backend's message verbatim.
type QueryError struct {
	Collection string
	Status     int
	Code       string
	Message    string
	Err        error
}

func (e *QueryError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("query %s failed (%d %s): %s", e.Collection, e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("query %s failed: %s", e.Collection, e.Message)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

type Tables struct {
	Transactions string
	LineItems    string
	Inventory    string
}

func TablesFrom(cfg config.BackendConfig) Tables {
	return Tables{
		Transactions: cfg.TransactionsTable,
		LineItems:    cfg.LineItemsTable,
		Inventory:    cfg.InventoryTable,
	}
}

// New builds the gateway for cfg.Mode. The SQL gateway owns a connection pool
// and implements io.Closer.
func New(cfg config.BackendConfig, metrics *observability.Metrics, logger *slog.Logger) (Gateway, error) {
	switch cfg.Mode {
	case "rest":
		return NewRESTGateway(cfg, metrics, logger), nil
	case "sql":
		db, err := OpenDB(cfg)
		if err != nil {
			return nil, err
		}
		return NewSQLGateway(db, TablesFrom(cfg), metrics, logger), nil
	case "demo":
		ds := seed.Generate(seed.Options{Seed: uint64(cfg.DemoSeed), Days: cfg.DemoDays})
		logger.Info("serving generated demo data",
			"transactions", len(ds.Transactions),
			"products", len(ds.Inventory),
		)
		return NewMemoryGateway(TablesFrom(cfg), ds.Transactions, ds.Inventory), nil
	default:
		return nil, fmt.Errorf("unknown backend mode %q", cfg.Mode)
	}
}

type tokenKey struct{}

// WithAccessToken makes backend reads run as the signed-in user instead of
// with the public key.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func accessToken(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}
