// internal/findata/cached.go
package findata

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"finlife-navigator/internal/models"
)

// CachedProvider memoizes present answers from the wrapped provider. Absent
// answers are never cached. Tokens appear in keys only as a hash prefix.
type CachedProvider struct {
	next  Provider
	cache *LayeredCache
}

func NewCachedProvider(next Provider, cache *LayeredCache) *CachedProvider {
	return &CachedProvider{next: next, cache: cache}
}

func (c *CachedProvider) Name() string { return c.next.Name() }

func (c *CachedProvider) GetBalance(ctx context.Context, token string) (float64, bool) {
	key := cacheKey("balance", token)

	var balance float64
	if c.cache.Get(ctx, key, &balance) {
		return balance, true
	}

	balance, ok := c.next.GetBalance(ctx, token)
	if ok {
		c.cache.Set(ctx, key, balance)
	}
	return balance, ok
}

func (c *CachedProvider) GetHoldings(ctx context.Context, token string) ([]models.Holding, bool) {
	key := cacheKey("holdings", token)

	var holdings []models.Holding
	if c.cache.Get(ctx, key, &holdings) {
		return holdings, true
	}

	holdings, ok := c.next.GetHoldings(ctx, token)
	if ok {
		c.cache.Set(ctx, key, holdings)
	}
	return holdings, ok
}

func (c *CachedProvider) GetTransactions(ctx context.Context, token string, from, to time.Time) ([]models.Transaction, bool) {
	key := cacheKey("transactions", token, from.Format(DateLayout), to.Format(DateLayout))

	var txns []models.Transaction
	if c.cache.Get(ctx, key, &txns) {
		return txns, true
	}

	txns, ok := c.next.GetTransactions(ctx, token, from, to)
	if ok {
		c.cache.Set(ctx, key, txns)
	}
	return txns, ok
}

func cacheKey(kind, token string, parts ...string) string {
	sum := sha256.Sum256([]byte(token))
	key := fmt.Sprintf("findata:%s:%s", kind, hex.EncodeToString(sum[:8]))
	for _, p := range parts {
		key += ":" + p
	}
	return key
}
