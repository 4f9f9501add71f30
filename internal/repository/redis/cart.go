package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

const keyPrefix = "cart:"

// CartRepository implements repository.CartRepository using Redis. Carts are
// stored as JSON under cart:<session id> and expire after ttl of inactivity.
type CartRepository struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewCartRepository creates a new Redis-backed cart repository.
func NewCartRepository(client *redis.Client, ttl time.Duration) *CartRepository {
	return &CartRepository{
		client: client,
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func cartKey(sessionID string) string {
	return keyPrefix + sessionID
}

// Get retrieves a cart by session ID from Redis.
func (r *CartRepository) Get(ctx context.Context, sessionID string) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, cartKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("cart", sessionID)
		}
		return nil, fmt.Errorf("redis get cart: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart: %w", err)
	}
	if cart.Items == nil {
		cart.Items = []domain.LineItem{}
	}

	return &cart, nil
}

// SaveIfVersion writes the cart under WATCH so that a concurrent writer
// between the version check and the write aborts this transaction.
func (r *CartRepository) SaveIfVersion(ctx context.Context, cart *domain.Cart, expected int64) error {
	key := cartKey(cart.SessionID)
	now := r.now()

	next := *cart
	next.Version = expected + 1
	next.UpdatedAt = now
	next.ExpiresAt = now.Add(r.ttl)
	if next.CreatedAt.IsZero() {
		next.CreatedAt = now
	}

	data, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}

	txf := func(tx *redis.Tx) error {
		current, err := storedVersion(ctx, tx, key)
		if err != nil {
			return err
		}
		if current != expected {
			return apperrors.Conflict(fmt.Sprintf("cart for session %s was modified concurrently", cart.SessionID))
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, r.ttl)
			return nil
		})
		return err
	}

	if err := r.client.Watch(ctx, txf, key); err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return apperrors.Conflict(fmt.Sprintf("cart for session %s was modified concurrently", cart.SessionID))
		}
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return err
		}
		return fmt.Errorf("redis save cart: %w", err)
	}

	cart.Version = next.Version
	cart.CreatedAt = next.CreatedAt
	cart.UpdatedAt = next.UpdatedAt
	cart.ExpiresAt = next.ExpiresAt
	return nil
}

// storedVersion returns the version of the cart at key, or 0 if none exists.
func storedVersion(ctx context.Context, tx *redis.Tx, key string) (int64, error) {
	data, err := tx.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis get cart version: %w", err)
	}

	var head struct {
		Version int64 `json:"version"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return 0, fmt.Errorf("unmarshal cart version: %w", err)
	}
	return head.Version, nil
}

// DeleteIfVersion removes the cart only while its stored version is still
// expected. A missing cart counts as version 0.
func (r *CartRepository) DeleteIfVersion(ctx context.Context, sessionID string, expected int64) error {
	key := cartKey(sessionID)

	txf := func(tx *redis.Tx) error {
		current, err := storedVersion(ctx, tx, key)
		if err != nil {
			return err
		}
		if current != expected {
			return apperrors.Conflict(fmt.Sprintf("cart for session %s was modified concurrently", sessionID))
		}
		if current == 0 {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		return err
	}

	if err := r.client.Watch(ctx, txf, key); err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return apperrors.Conflict(fmt.Sprintf("cart for session %s was modified concurrently", sessionID))
		}
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return err
		}
		return fmt.Errorf("redis del cart: %w", err)
	}
	return nil
}
