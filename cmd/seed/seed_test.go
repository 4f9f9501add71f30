package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository/memory"
)

func TestSeedProducts_SkipsExisting(t *testing.T) {
	ctx := context.Background()
	products, err := memory.SeedCatalog()
	require.NoError(t, err)

	repo := memory.NewProductRepository(products[0])
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

	res, err := seedProducts(ctx, repo, products, now)
	require.NoError(t, err)
	assert.Equal(t, len(products)-1, res.Created)
	assert.Equal(t, 1, res.Skipped)

	p, err := repo.GetByID(ctx, products[1].ID)
	require.NoError(t, err)
	assert.Equal(t, now, p.UpdatedAt)

	res, err = seedProducts(ctx, repo, products, now)
	require.NoError(t, err)
	assert.Zero(t, res.Created)
	assert.Equal(t, len(products), res.Skipped)
}

type failingRepo struct {
	*memory.ProductRepository
}

func (failingRepo) Create(context.Context, *domain.Product) error {
	return errors.New("connection reset")
}

func TestSeedProducts_StopsOnError(t *testing.T) {
	products, err := memory.SeedCatalog()
	require.NoError(t, err)

	_, err = seedProducts(context.Background(), failingRepo{memory.NewProductRepository()}, products, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seed product 1")
}

func TestReadCatalog(t *testing.T) {
	seed, err := readCatalog("")
	require.NoError(t, err)
	assert.Len(t, seed, 6)

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`products:
  - id: "x1"
    name: Patch Cap
    price: "19.50"
    category: tees
    sizes: [OS]
    colors: [Black]
    in_stock: true
`), 0o600))

	custom, err := readCatalog(path)
	require.NoError(t, err)
	require.Len(t, custom, 1)
	assert.Equal(t, "19.50", custom[0].Price.StringFixed(2))

	_, err = readCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
