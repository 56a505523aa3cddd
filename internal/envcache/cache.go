// File: internal/envcache/cache.go

// Package envcache persists scraped environment records per account and
// decides when a cached record is stale. Records survive across runs; the
// live fields never do, they are re-fetched on every load.
package envcache

import (
	"context"
	"errors"
	"fmt"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/birdclip/internal/scrape"
	"github.com/xkilldash9x/birdclip/internal/store"
)

// EnvironmentBuilder is the slice of the scraper the cache needs.
// *scrape.Scraper satisfies it; tests substitute a mock.
type EnvironmentBuilder interface {
	Build(ctx context.Context) (scrape.Environment, error)
	Reconstitute(ctx context.Context, rec scrape.Record) (scrape.Environment, error)
	LocateBundleURL(ctx context.Context) (string, error)
	AccountIdentity(ctx context.Context) (string, error)
}

// Cache coordinates the store and the scraper.
type Cache struct {
	kv      store.KeyValueStore
	scraper EnvironmentBuilder
	logger  *zap.Logger
}

// New builds a cache over the given store and scraper.
func New(kv store.KeyValueStore, scraper EnvironmentBuilder, logger *zap.Logger) *Cache {
	return &Cache{kv: kv, scraper: scraper, logger: logger.Named("envcache")}
}

func recordKey(account string) string {
	return "env/" + account
}

// Load reads the persisted record for an account. An absent record is an
// expected state, reported through the bool, never through the error.
func (c *Cache) Load(ctx context.Context, account string) (scrape.Record, bool, error) {
	raw, err := c.kv.Get(ctx, recordKey(account))
	if errors.Is(err, store.ErrNotFound) {
		return scrape.Record{}, false, nil
	}
	if err != nil {
		return scrape.Record{}, false, fmt.Errorf("loading environment record: %w", err)
	}

	var rec scrape.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		// A corrupt record is treated as absent; the next build overwrites it.
		c.logger.Warn("Discarding undecodable environment record.",
			zap.String("account", account), zap.Error(err))
		return scrape.Record{}, false, nil
	}
	return rec, true, nil
}

// Persist writes the record for an account, overwriting any previous one.
// Persisting the same record twice is a no-op in effect.
func (c *Cache) Persist(ctx context.Context, account string, rec scrape.Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding environment record: %w", err)
	}
	if err := c.kv.Set(ctx, recordKey(account), raw); err != nil {
		return fmt.Errorf("persisting environment record: %w", err)
	}
	return nil
}

// IsStale reports whether the record's bundle no longer matches what the
// live page serves. The bundle URL embeds the build id, so a plain string
// comparison is the whole staleness check.
func (c *Cache) IsStale(ctx context.Context, rec scrape.Record) (bool, error) {
	liveURL, err := c.scraper.LocateBundleURL(ctx)
	if err != nil {
		return false, err
	}
	return liveURL != rec.BundleURL, nil
}

// EnsureFresh returns a usable Environment for the logged-in account,
// building and persisting a record only when none exists or the cached one
// is stale. A fresh record is reused with re-fetched live fields.
func (c *Cache) EnsureFresh(ctx context.Context) (scrape.Environment, error) {
	account, err := c.scraper.AccountIdentity(ctx)
	if err != nil {
		return scrape.Environment{}, err
	}

	rec, ok, err := c.Load(ctx, account)
	if err != nil {
		return scrape.Environment{}, err
	}
	if ok {
		stale, err := c.IsStale(ctx, rec)
		if err != nil {
			return scrape.Environment{}, err
		}
		if !stale {
			c.logger.Debug("Reusing cached environment record.", zap.String("account", account))
			return c.scraper.Reconstitute(ctx, rec)
		}
		c.logger.Info("Cached environment record is stale; rebuilding.",
			zap.String("account", account), zap.String("cached_bundle_url", rec.BundleURL))
	}

	env, err := c.scraper.Build(ctx)
	if err != nil {
		return scrape.Environment{}, err
	}
	if err := c.Persist(ctx, account, env.Record); err != nil {
		return scrape.Environment{}, err
	}
	return env, nil
}
