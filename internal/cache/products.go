// Package cache fronts catalog reads with an in-process LRU. Entries are
// dropped explicitly whenever stock changes; there is no time-based expiry.
package cache

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/kiwari-pos/ordercore/internal/database"
)

// ProductLoader reads a product from the system of record.
type ProductLoader func(ctx context.Context, id uuid.UUID) (database.Product, error)

type ProductCache struct {
	entries *lru.Cache[uuid.UUID, database.Product]
	// generation advances on every invalidation; a load that raced with one
	// is returned to its caller but not stored.
	generation atomic.Uint64
}

func NewProductCache(size int) (*ProductCache, error) {
	entries, err := lru.New[uuid.UUID, database.Product](size)
	if err != nil {
		return nil, fmt.Errorf("create product cache: %w", err)
	}
	return &ProductCache{entries: entries}, nil
}

// Get returns the cached product or loads and caches it.
func (c *ProductCache) Get(ctx context.Context, id uuid.UUID, load ProductLoader) (database.Product, error) {
	if p, ok := c.entries.Get(id); ok {
		return p, nil
	}

	gen := c.generation.Load()
	p, err := load(ctx, id)
	if err != nil {
		return database.Product{}, err
	}
	if c.generation.Load() == gen {
		c.entries.Add(id, p)
	}
	return p, nil
}

// Invalidate drops the given products.
func (c *ProductCache) Invalidate(ids ...uuid.UUID) {
	c.generation.Add(1)
	for _, id := range ids {
		c.entries.Remove(id)
	}
}

func (c *ProductCache) Len() int {
	return c.entries.Len()
}
