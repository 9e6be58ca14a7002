// Command seed fills a SQL backend with a generated shop history so the
// dashboard has something to report on.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"retail-dashboard/internal/config"
	"retail-dashboard/internal/gateway"
	"retail-dashboard/internal/observability"
	"retail-dashboard/internal/seed"
)

func main() {
	var (
		driver      string
		dsn         string
		days        int
		products    int
		billsPerDay int
		seedValue   uint64
		migrateOnly bool
	)

	flag.StringVar(&driver, "driver", "", "Database driver, postgres or sqlite (default: BACKEND_DB_DRIVER)")
	flag.StringVar(&dsn, "dsn", "", "Database DSN (default: BACKEND_DB_DSN)")
	flag.IntVar(&days, "days", 90, "Days of history to generate")
	flag.IntVar(&products, "products", 40, "Catalog size")
	flag.IntVar(&billsPerDay, "bills-per-day", 12, "Average bills per day")
	flag.Uint64Var(&seedValue, "seed", 42, "Random seed")
	flag.BoolVar(&migrateOnly, "migrate-only", false, "Create the tables and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg.Logger)

	if driver != "" {
		cfg.Backend.Driver = driver
	}
	if dsn != "" {
		cfg.Backend.DSN = dsn
	}

	opts := seed.Options{
		Seed:        seedValue,
		Days:        days,
		Products:    products,
		BillsPerDay: billsPerDay,
	}
	if err := run(context.Background(), cfg.Backend, opts, migrateOnly, logger); err != nil {
		logger.Error("seed failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.BackendConfig, opts seed.Options, migrateOnly bool, logger *slog.Logger) error {
	if cfg.DSN == "" {
		return fmt.Errorf("no database DSN; set BACKEND_DB_DSN or pass -dsn")
	}

	db, err := gateway.OpenDB(cfg)
	if err != nil {
		return err
	}
	gw := gateway.NewSQLGateway(db, gateway.TablesFrom(cfg), nil, logger)
	defer gw.Close()

	if err := gw.Migrate(ctx); err != nil {
		return err
	}
	logger.Info("tables ready",
		"transactions", cfg.TransactionsTable,
		"line_items", cfg.LineItemsTable,
		"inventory", cfg.InventoryTable,
	)
	if migrateOnly {
		return nil
	}

	start := time.Now()
	ds := seed.Generate(opts)
	if err := gw.Seed(ctx, ds.Transactions, ds.Inventory); err != nil {
		return err
	}

	logger.Info("seeded backend",
		"transactions", len(ds.Transactions),
		"products", len(ds.Inventory),
		"duration", time.Since(start),
	)
	return nil
}
