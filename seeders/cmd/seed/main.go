package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"tax-portal/internal/repositories"
	"tax-portal/pkg/config"
	"tax-portal/pkg/database/postgresql"
	applogger "tax-portal/pkg/logger"
	"tax-portal/seeders"
)

func main() {
	runPricing := flag.Bool("pricing", false, "insert the bundled price list")
	runAdmin := flag.Bool("admin", false, "create the admin account from SEED_ADMIN_EMAIL / SEED_ADMIN_PASSWORD")
	runMigrate := flag.Bool("migrate", false, "apply migrations first")
	runAll := flag.Bool("all", false, "equivalent to -migrate -pricing -admin")
	flag.Parse()

	if !*runPricing && !*runAdmin && !*runMigrate && !*runAll {
		fmt.Fprintln(os.Stderr, "no seeder selected")
		flag.PrintDefaults()
		fmt.Fprintln(os.Stderr, "\nexample: go run ./seeders/cmd/seed -all")
		os.Exit(2)
	}

	cfg := config.New()
	logger := applogger.NewLogger(cfg.Log)
	defer logger.Sync()

	ctx := context.Background()
	pool, err := postgresql.ConnectDB(ctx, cfg.Postgres.DSN)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer pool.Close()

	if *runAll || *runMigrate {
		if err := postgresql.Migrate(ctx, pool); err != nil {
			logger.Fatal("migrations failed", zap.Error(err))
		}
	}
	if *runAll || *runPricing {
		if err := seeders.SeedPricing(ctx, repositories.NewPricingRepository(pool, logger), logger); err != nil {
			logger.Fatal("pricing seeder failed", zap.Error(err))
		}
	}
	if *runAll || *runAdmin {
		if err := seeders.SeedAdmin(ctx, repositories.NewUserRepository(pool, logger), cfg.Seeder, logger); err != nil {
			logger.Fatal("admin seeder failed", zap.Error(err))
		}
	}

	logger.Info("seeding finished")
}
