// Package catalogcache decorates a CatalogService with a short-lived redis
// cache, so repeated direct-link product fetches do not hammer the backend.
package catalogcache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/evercart/storefront/internal/pkg/cache"
	"github.com/evercart/storefront/internal/storefront/core/domain/entity"
	"github.com/evercart/storefront/internal/storefront/core/ports"
)

const operation = "product"

var _ ports.CatalogService = (*CachedCatalog)(nil)

// CachedCatalog is a read-through cache in front of another CatalogService.
// Cache failures never fail a fetch; they degrade to the backend call.
type CachedCatalog struct {
	next  ports.CatalogService
	cache cache.Cache
	ttl   time.Duration
}

func New(next ports.CatalogService, c cache.Cache, ttl time.Duration) *CachedCatalog {
	return &CachedCatalog{next: next, cache: c, ttl: ttl}
}

func (cc *CachedCatalog) Product(ctx context.Context, productID string) (*entity.Product, error) {
	key := cc.cache.GenerateKey(operation, productID)

	if raw, err := cc.cache.Get(ctx, key); err != nil {
		slog.WarnContext(ctx, "product cache read failed", "product_id", productID, "error", err)
	} else if raw != "" {
		var p entity.Product
		if err := json.Unmarshal([]byte(raw), &p); err == nil {
			return &p, nil
		}
		// A corrupt entry falls through to a fresh fetch and gets rewritten.
	}

	p, err := cc.next.Product(ctx, productID)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(p); err == nil {
		if err := cc.cache.Set(ctx, key, string(raw), cc.ttl); err != nil {
			slog.WarnContext(ctx, "product cache write failed", "product_id", productID, "error", err)
		}
	}
	return p, nil
}
