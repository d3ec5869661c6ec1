package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/oolio-fulfillment/internal/domain/catalog"
	"github.com/xenking/oolio-fulfillment/internal/storage/postgres"
)

func main() {
	var (
		databaseURL  string
		productsFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "", "path to a products JSON file; the built-in catalog when empty")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile string) error {
	products := catalog.DefaultProducts()
	if productsFile != "" {
		var err error
		if products, err = readProducts(productsFile); err != nil {
			return err
		}
	}

	slog.Info("connecting to database")
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return err
	}

	slog.Info("upserting products", slog.Int("count", len(products)))
	return postgres.NewProductRepository(pool).SeedProducts(ctx, products)
}

// productJSON is the on-disk product format. Decimals may be JSON strings
// or numbers.
type productJSON struct {
	SKU      string          `json:"sku"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	WeightKg decimal.Decimal `json:"weight_kg"`
	Category string          `json:"category"`
	Fragile  bool            `json:"fragile"`
}

func readProducts(path string) ([]catalog.Product, error) {
	slog.Info("reading products file", slog.String("path", path))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read products file")
	}

	var items []productJSON
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, errors.Wrap(err, "parse products JSON")
	}

	products := make([]catalog.Product, 0, len(items))
	for _, it := range items {
		if it.SKU == "" {
			return nil, errors.New("product without sku")
		}
		products = append(products, catalog.Product{
			SKU:      it.SKU,
			Name:     it.Name,
			Price:    it.Price,
			WeightKg: it.WeightKg,
			Category: it.Category,
			Fragile:  it.Fragile,
		})
	}
	return products, nil
}
