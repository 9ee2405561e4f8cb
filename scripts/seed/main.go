package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/odyssey-erp/odyssey-pos/internal/app"
	"github.com/odyssey-erp/odyssey-pos/internal/catalog"
	"github.com/odyssey-erp/odyssey-pos/internal/platform/db"
	"github.com/odyssey-erp/odyssey-pos/internal/pos"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

const seedActor = "seed"

func main() {
	ctx := context.Background()
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: 2})
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	services, err := app.NewServices(cfg, pool, nil, nil, logger)
	if err != nil {
		log.Fatalf("wire services: %v", err)
	}

	fmt.Println("→ Seeding catalog...")
	ids, err := seedCatalog(ctx, services.Catalog)
	if err != nil {
		log.Fatalf("seed catalog: %v", err)
	}

	fmt.Println("→ Seeding sales...")
	if err := seedSales(ctx, services.POS, ids); err != nil {
		log.Fatalf("seed sales: %v", err)
	}

	fmt.Println("✓ Seed complete at", time.Now().Format(time.RFC3339))
}

// seedCatalog creates the demo products with opening stock and returns their ids by name.
// Products that already exist are looked up instead, so the seed can be re-run.
func seedCatalog(ctx context.Context, svc *catalog.Service) (map[string]int64, error) {
	products := []catalog.ProductInput{
		{Name: "Kopi Susu", Category: "Minuman", SupplierName: "CV Kopi Nusantara", Unit: "cup", Price: 1800000, MinStock: 10, InitialStock: 60},
		{Name: "Teh Botol", Category: "Minuman", SupplierName: "PT Sinar Sosro", Unit: "botol", Price: 500000, MinStock: 24, InitialStock: 120},
		{Name: "Air Mineral 600ml", Category: "Minuman", SupplierName: "PT Aqua Golden", Unit: "botol", Price: 400000, MinStock: 24, InitialStock: 18},
		{Name: "Roti Coklat", Category: "Makanan", SupplierName: "PT Nippon Indosari", Unit: "pcs", Price: 1200000, MinStock: 12, InitialStock: 40},
		{Name: "Keripik Singkong", Category: "Makanan", SupplierName: "UD Maicih", Unit: "pack", Price: 1500000, MinStock: 8, InitialStock: 0},
		{Name: "Sabun Mandi", Category: "Kebutuhan Rumah", SupplierName: "PT Unilever", Unit: "pcs", Price: 450000, MinStock: 6, InitialStock: 30},
	}

	ids := make(map[string]int64, len(products))
	for _, in := range products {
		p, err := svc.Create(ctx, seedActor, in)
		if errors.Is(err, catalog.ErrDuplicateProduct) {
			p, err = findProduct(ctx, svc, in.Name)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", in.Name, err)
		}
		ids[p.Name] = p.ID
	}
	return ids, nil
}

func findProduct(ctx context.Context, svc *catalog.Service, name string) (catalog.Product, error) {
	list, err := svc.List(ctx, catalog.ProductFilter{Search: name})
	if err != nil {
		return catalog.Product{}, err
	}
	for _, p := range list {
		if p.Name == name {
			return p, nil
		}
	}
	return catalog.Product{}, catalog.ErrProductNotFound
}

func seedSales(ctx context.Context, svc *pos.Service, ids map[string]int64) error {
	line := func(name string, qty int64, price shared.Money) pos.CartLine {
		return pos.CartLine{ProductID: ids[name], Quantity: qty, UnitPrice: price}
	}
	sales := []pos.CheckoutRequest{
		{
			Reference: "SEED-0001",
			Lines:     []pos.CartLine{line("Kopi Susu", 2, 1800000), line("Roti Coklat", 1, 1200000)},
			Tendered:  5000000,
		},
		{
			Reference: "SEED-0002",
			Lines:     []pos.CartLine{line("Teh Botol", 6, 500000)},
			Discount:  &pos.Discount{Type: pos.DiscountPercent, Value: "10"},
			Tendered:  3000000,
		},
		{
			Reference: "SEED-0003",
			Lines:     []pos.CartLine{line("Air Mineral 600ml", 12, 400000), line("Sabun Mandi", 2, 450000)},
			Discount:  &pos.Discount{Type: pos.DiscountFixed, Value: "2000"},
			Tendered:  6000000,
			Note:      "pelanggan tetap",
		},
	}

	for _, req := range sales {
		req.Cashier = seedActor
		res, err := svc.Checkout(ctx, req)
		if errors.Is(err, pos.ErrDuplicateReference) {
			continue
		}
		if err != nil {
			return fmt.Errorf("%s: %w", req.Reference, err)
		}
		fmt.Printf("  %s total=%s change=%s\n", res.Reference, res.Total, res.Change)
	}
	return nil
}
