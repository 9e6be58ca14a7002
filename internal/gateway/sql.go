package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"retail-dashboard/internal/config"
	"retail-dashboard/internal/models"
	"retail-dashboard/internal/observability"
)

type billRow struct {
	ID           string          `gorm:"primaryKey;size:64"`
	CustomerName *string         `gorm:"size:200"`
	CreatedAt    time.Time       `gorm:"index;not null"`
	TotalAmount  decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0"`
	Status       string          `gorm:"index;size:32;not null"`
}

type billItemRow struct {
	ID          string          `gorm:"primaryKey;size:64"`
	BillID      string          `gorm:"index;size:64;not null"`
	ProductID   *string         `gorm:"index;size:64"`
	ProductName string          `gorm:"size:200"`
	Quantity    int             `gorm:"not null"`
	Price       decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0"`
	BuyingPrice decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0"`
	Category    string          `gorm:"size:100"`
	Brand       string          `gorm:"size:100"`
	CreatedAt   time.Time       `gorm:"index;not null"`
}

type productRow struct {
	ID           string          `gorm:"primaryKey;size:64"`
	Name         string          `gorm:"size:200;not null"`
	Category     string          `gorm:"size:100"`
	Brand        string          `gorm:"size:100"`
	Quantity     int             `gorm:"not null;default:0"`
	SellingPrice decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0"`
	BuyingPrice  decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0"`
}

// OpenDB opens the configured SQL store.
func OpenDB(cfg config.BackendConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}
	return db, nil
}

// SQLGateway reads the same collections straight from the database, for
// deployments that can reach it.
type SQLGateway struct {
	db      *gorm.DB
	tables  Tables
	metrics *observability.Metrics
	logger  *slog.Logger
}

func NewSQLGateway(db *gorm.DB, tables Tables, metrics *observability.Metrics, logger *slog.Logger) *SQLGateway {
	return &SQLGateway{
		db:      db,
		tables:  tables,
		metrics: metrics,
		logger:  logger,
	}
}

func (g *SQLGateway) FetchTransactions(ctx context.Context, q TransactionQuery) (txs []models.Transaction, err error) {
	collection := g.tables.Transactions
	ctx, done := g.track(ctx, collection)
	defer func() { done(err) }()

	tx := g.db.WithContext(ctx).Table(collection)
	if len(q.Columns) > 0 {
		tx = tx.Select(q.Columns)
	}
	if q.Status != "" {
		tx = tx.Where(fmt.Sprintf("status %s ?", q.StatusOp.sql()), q.Status)
	}
	tx = whereTimeRange(tx, "created_at", q.From, q.To)

	var rows []billRow
	if err := tx.Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, sqlError(collection, err)
	}

	txs = make([]models.Transaction, len(rows))
	byID := make(map[string]int, len(rows))
	ids := make([]string, len(rows))
	for i, r := range rows {
		txs[i] = r.toModel()
		byID[r.ID] = i
		ids[i] = r.ID
	}

	if !q.WithItems || len(ids) == 0 {
		return txs, nil
	}

	var items []billItemRow
	if err := g.db.WithContext(ctx).Table(g.tables.LineItems).Where("bill_id IN ?", ids).Find(&items).Error; err != nil {
		return nil, sqlError(g.tables.LineItems, err)
	}
	for _, it := range items {
		if i, ok := byID[it.BillID]; ok {
			txs[i].Items = append(txs[i].Items, it.toModel())
		}
	}
	return txs, nil
}

func (g *SQLGateway) FetchInventory(ctx context.Context, q InventoryQuery) (items []models.InventoryItem, err error) {
	collection := g.tables.Inventory
	ctx, done := g.track(ctx, collection)
	defer func() { done(err) }()

	tx := g.db.WithContext(ctx).Table(collection)
	if len(q.Columns) > 0 {
		tx = tx.Select(q.Columns)
	}
	if q.MaxQuantity != nil {
		tx = tx.Where("quantity <= ?", *q.MaxQuantity)
	}

	var rows []productRow
	if err := tx.Order("name ASC").Find(&rows).Error; err != nil {
		return nil, sqlError(collection, err)
	}

	items = make([]models.InventoryItem, len(rows))
	for i, r := range rows {
		items[i] = r.toModel()
	}
	return items, nil
}

func (g *SQLGateway) FetchLineItems(ctx context.Context, q LineItemQuery) (items []models.LineItem, err error) {
	collection := g.tables.LineItems
	ctx, done := g.track(ctx, collection)
	defer func() { done(err) }()

	tx := g.db.WithContext(ctx).Table(collection)
	if len(q.Columns) > 0 {
		tx = tx.Select(q.Columns)
	}
	tx = whereTimeRange(tx, "created_at", q.From, q.To)

	var rows []billItemRow
	if err := tx.Find(&rows).Error; err != nil {
		return nil, sqlError(collection, err)
	}

	items = make([]models.LineItem, len(rows))
	for i, r := range rows {
		items[i] = r.toModel()
	}
	return items, nil
}

func (g *SQLGateway) DeleteTransaction(ctx context.Context, id string) error {
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Table(g.tables.LineItems).Where("bill_id = ?", id).Delete(&billItemRow{}).Error; err != nil {
			return sqlError(g.tables.LineItems, err)
		}
		res := tx.Table(g.tables.Transactions).Where("id = ?", id).Delete(&billRow{})
		if res.Error != nil {
			return sqlError(g.tables.Transactions, res.Error)
		}
		if res.RowsAffected == 0 {
			return &QueryError{Collection: g.tables.Transactions, Message: "no bill with id " + id, Err: ErrNotFound}
		}
		return nil
	})
	return err
}

// Migrate creates the three tables. Used by the seeder and local setups.
func (g *SQLGateway) Migrate(ctx context.Context) error {
	db := g.db.WithContext(ctx)
	if err := db.Table(g.tables.Transactions).AutoMigrate(&billRow{}); err != nil {
		return fmt.Errorf("migrate %s: %w", g.tables.Transactions, err)
	}
	if err := db.Table(g.tables.LineItems).AutoMigrate(&billItemRow{}); err != nil {
		return fmt.Errorf("migrate %s: %w", g.tables.LineItems, err)
	}
	if err := db.Table(g.tables.Inventory).AutoMigrate(&productRow{}); err != nil {
		return fmt.Errorf("migrate %s: %w", g.tables.Inventory, err)
	}
	return nil
}

// Seed inserts transactions (with their items) and inventory in one database
// transaction.
func (g *SQLGateway) Seed(ctx context.Context, txs []models.Transaction, inventory []models.InventoryItem) error {
	bills := make([]billRow, 0, len(txs))
	var items []billItemRow
	for _, t := range txs {
		bills = append(bills, billRowFrom(t))
		for _, li := range t.Items {
			li.TransactionID = t.ID
			if li.CreatedAt.IsZero() {
				li.CreatedAt = t.CreatedAt
			}
			items = append(items, billItemRowFrom(li))
		}
	}
	products := make([]productRow, 0, len(inventory))
	for _, p := range inventory {
		products = append(products, productRowFrom(p))
	}

	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(products) > 0 {
			if err := tx.Table(g.tables.Inventory).CreateInBatches(products, 200).Error; err != nil {
				return fmt.Errorf("insert %s: %w", g.tables.Inventory, err)
			}
		}
		if len(bills) > 0 {
			if err := tx.Table(g.tables.Transactions).CreateInBatches(bills, 200).Error; err != nil {
				return fmt.Errorf("insert %s: %w", g.tables.Transactions, err)
			}
		}
		if len(items) > 0 {
			if err := tx.Table(g.tables.LineItems).CreateInBatches(items, 200).Error; err != nil {
				return fmt.Errorf("insert %s: %w", g.tables.LineItems, err)
			}
		}
		return nil
	})
}

func (g *SQLGateway) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (g *SQLGateway) track(ctx context.Context, collection string) (context.Context, func(error)) {
	ctx, span := observability.StartSpan(ctx, "gateway.select", attribute.String("collection", collection))
	start := time.Now()
	return ctx, func(err error) {
		g.metrics.ObserveQuery(collection, time.Since(start), err)
		if err != nil {
			g.logger.Warn("backend query failed", "collection", collection, "error", err)
		}
		observability.EndSpan(span, err)
	}
}

// whereTimeRange bounds column to [from, to]. Bounds are sent in UTC, the zone
// rows are written in, since sqlite compares timestamps as text.
func whereTimeRange(tx *gorm.DB, column string, from, to time.Time) *gorm.DB {
	if !from.IsZero() {
		tx = tx.Where(column+" >= ?", from.UTC())
	}
	if !to.IsZero() {
		tx = tx.Where(column+" <= ?", to.UTC())
	}
	return tx
}

func sqlError(collection string, err error) error {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &QueryError{Collection: collection, Message: err.Error(), Err: ErrNotFound}
	}
	return &QueryError{Collection: collection, Message: err.Error(), Err: err}
}

func (r billRow) toModel() models.Transaction {
	t := models.Transaction{
		ID:          r.ID,
		CreatedAt:   r.CreatedAt,
		TotalAmount: r.TotalAmount,
		Status:      r.Status,
	}
	if r.CustomerName != nil {
		t.CustomerName = *r.CustomerName
	}
	return t
}

func billRowFrom(t models.Transaction) billRow {
	r := billRow{
		ID:          t.ID,
		CreatedAt:   t.CreatedAt.UTC(),
		TotalAmount: t.TotalAmount,
		Status:      t.Status,
	}
	if t.CustomerName != "" {
		name := t.CustomerName
		r.CustomerName = &name
	}
	return r
}

func (r billItemRow) toModel() models.LineItem {
	li := models.LineItem{
		ID:            r.ID,
		TransactionID: r.BillID,
		ProductName:   r.ProductName,
		Quantity:      r.Quantity,
		Price:         r.Price,
		BuyingPrice:   r.BuyingPrice,
		Category:      r.Category,
		Brand:         r.Brand,
		CreatedAt:     r.CreatedAt,
	}
	if r.ProductID != nil {
		li.ProductID = *r.ProductID
	}
	return li
}

func billItemRowFrom(li models.LineItem) billItemRow {
	r := billItemRow{
		ID:          li.ID,
		BillID:      li.TransactionID,
		ProductName: li.ProductName,
		Quantity:    li.Quantity,
		Price:       li.Price,
		BuyingPrice: li.BuyingPrice,
		Category:    li.Category,
		Brand:       li.Brand,
		CreatedAt:   li.CreatedAt.UTC(),
	}
	if li.ProductID != "" {
		id := li.ProductID
		r.ProductID = &id
	}
	return r
}

func (r productRow) toModel() models.InventoryItem {
	return models.InventoryItem{
		ID:           r.ID,
		Name:         r.Name,
		Category:     r.Category,
		Brand:        r.Brand,
		Quantity:     r.Quantity,
		SellingPrice: r.SellingPrice,
		BuyingPrice:  r.BuyingPrice,
	}
}

func productRowFrom(p models.InventoryItem) productRow {
	return productRow{
		ID:           p.ID,
		Name:         p.Name,
		Category:     p.Category,
		Brand:        p.Brand,
		Quantity:     p.Quantity,
		SellingPrice: p.SellingPrice,
		BuyingPrice:  p.BuyingPrice,
	}
}

var _ Gateway = (*SQLGateway)(nil)
