// Command seed loads a YAML catalog into the postgres product store. Products
// that already exist are left untouched, so it is safe to run repeatedly.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/migrations"
	"github.com/utafrali/storefront/internal/repository/memory"
	"github.com/utafrali/storefront/internal/repository/postgres"
	pkgconfig "github.com/utafrali/storefront/pkg/config"
	"github.com/utafrali/storefront/pkg/database"
	"github.com/utafrali/storefront/pkg/logger"
)

type seedConfig struct {
	// CatalogFile overrides the embedded seed catalog.
	CatalogFile string `env:"SEED_CATALOG_FILE"`
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	var sc seedConfig
	if err := pkgconfig.Load(&sc); err != nil {
		slog.Error("failed to load seed config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New("storefront-seed", cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, sc, log); err != nil {
		log.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, sc seedConfig, log *slog.Logger) error {
	products, err := readCatalog(sc.CatalogFile)
	if err != nil {
		return err
	}

	pool, err := database.NewPostgresPool(ctx, database.PostgresConfig{
		URL:      cfg.DatabaseURL,
		MaxConns: 4,
	}, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		return err
	}

	repo := postgres.NewProductRepository(pool, database.NewQueryTracer(log, cfg.SlowQueryThreshold()))
	res, err := seedProducts(ctx, repo, products, time.Now().UTC())
	if err != nil {
		return err
	}

	log.Info("catalog seeded",
		slog.Int("created", res.Created),
		slog.Int("skipped", res.Skipped),
	)
	return nil
}

func readCatalog(path string) ([]domain.Product, error) {
	if path == "" {
		return memory.SeedCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return memory.ParseCatalog(data)
}
