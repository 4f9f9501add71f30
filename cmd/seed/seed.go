package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

type seedResult struct {
	Created int
	Skipped int
}

// seedProducts inserts every product, counting ids that already exist as
// skipped rather than failing.
func seedProducts(ctx context.Context, repo repository.ProductRepository, products []domain.Product, now time.Time) (seedResult, error) {
	var res seedResult
	for i := range products {
		p := products[i]
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		p.UpdatedAt = now

		err := repo.Create(ctx, &p)
		switch {
		case err == nil:
			res.Created++
		case errors.Is(err, apperrors.ErrAlreadyExists):
			res.Skipped++
		default:
			return res, fmt.Errorf("seed product %s: %w", p.ID, err)
		}
	}
	return res, nil
}
