// Package catalog resolves storefront line items to live provider variants,
// with a Redis read-through cache so submission bursts do not hammer the
// provider's catalog API.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/develoddy/fulfillment/pkg/common/logger"
	"github.com/develoddy/fulfillment/pkg/orders"
	"github.com/develoddy/fulfillment/pkg/provider"
)

// ProviderAPI is the slice of the provider client the catalog needs.
type ProviderAPI interface {
	GetVariant(ctx context.Context, variantID int64) (*provider.Variant, error)
}

type Catalog struct {
	provider ProviderAPI
	redis    *redis.Client
	ttl      time.Duration
}

func New(providerAPI ProviderAPI, redisClient *redis.Client, ttl time.Duration) *Catalog {
	return &Catalog{provider: providerAPI, redis: redisClient, ttl: ttl}
}

func cacheKey(variantID int64) string {
	return fmt.Sprintf("catalog:variant:%d", variantID)
}

// Resolve checks that the item points at a live, orderable provider variant
// and returns its id. Items without a provider variant id at all fail
// immediately; that is a data problem, not a provider problem.
func (c *Catalog) Resolve(ctx context.Context, item *orders.OrderItem) (int64, error) {
	if item.ProviderVariantID == 0 {
		return 0, fmt.Errorf("item %q has no provider variant id", item.SKU)
	}

	variant, err := c.lookup(ctx, item.ProviderVariantID)
	if err != nil {
		return 0, err
	}

	switch variant.Availability {
	case "discontinued":
		return 0, fmt.Errorf("variant %d is discontinued", variant.ID)
	case "out_of_stock":
		return 0, fmt.Errorf("variant %d is out of stock", variant.ID)
	}
	return variant.ID, nil
}

func (c *Catalog) lookup(ctx context.Context, variantID int64) (*provider.Variant, error) {
	key := cacheKey(variantID)

	if c.redis != nil {
		raw, err := c.redis.Get(ctx, key).Result()
		if err == nil {
			var cached provider.Variant
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				return &cached, nil
			}
			// Corrupt entry, fall through to the provider.
			c.redis.Del(ctx, key)
		} else if err != redis.Nil {
			logger.WithField("variant_id", variantID).WithError(err).Warn("catalog cache read failed")
		}
	}

	variant, err := c.provider.GetVariant(ctx, variantID)
	if err != nil {
		return nil, fmt.Errorf("fetching variant %d: %w", variantID, err)
	}

	if c.redis != nil {
		if raw, err := json.Marshal(variant); err == nil {
			if err := c.redis.Set(ctx, key, raw, c.ttl).Err(); err != nil {
				logger.WithField("variant_id", variantID).WithError(err).Warn("catalog cache write failed")
			}
		}
	}
	return variant, nil
}
