package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"classifieds-marketplace/internal/config"
	"classifieds-marketplace/internal/domain/model"
	"classifieds-marketplace/internal/domain/ports/repository"
	pg "classifieds-marketplace/internal/infra/db/postgres"
)

// Seeds the package catalog for local development and the payment-flow demo.
func main() {
	_ = godotenv.Load()

	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	pkgRepo := pg.NewPackageRepo(pool)

	existing, err := pkgRepo.ListActive(ctx, repository.NoTX)
	if err != nil {
		log.Fatalf("list packages: %v", err)
	}
	if len(existing) > 0 {
		fmt.Printf("%d packages already present. No changes.\n", len(existing))
		for _, p := range existing {
			fmt.Printf("  - %s (days=%d, max_ads=%d, price=%d KES)\n", p.Name, p.DurationDays, p.MaxAds, p.Price)
		}
		return
	}

	seed := []struct {
		Name     string
		Price    int64
		Days     int
		MaxAds   int
		Priority int
	}{
		{"Starter", 0, 30, 3, 0},
		{"Bronze", 500, 30, 10, 1},
		{"Silver", 1_500, 30, 40, 2},
		{"Gold", 5_000, 30, 150, 3},
	}

	for _, s := range seed {
		pkg, err := model.NewSubscriptionPackage(uuid.NewString(), s.Name, s.Price, s.Days, s.MaxAds)
		if err != nil {
			log.Fatalf("build package %q: %v", s.Name, err)
		}
		pkg.DisplayPriority = s.Priority
		if err := pkgRepo.Save(ctx, repository.NoTX, pkg); err != nil {
			log.Fatalf("save package %q: %v", s.Name, err)
		}
		fmt.Printf("seeded: %s (id=%s, days=%d, max_ads=%d, price=%d KES)\n", pkg.Name, pkg.ID, pkg.DurationDays, pkg.MaxAds, pkg.Price)
	}

	fmt.Println("Seeding complete.")
}
