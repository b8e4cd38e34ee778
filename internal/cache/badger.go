// Package cache persists computed digests keyed by resolved repository state.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/quantmind-br/gitingest-go/internal/domain"
	"github.com/quantmind-br/gitingest-go/internal/utils"
)

// Options configures a BadgerCache.
type Options struct {
	Directory string
	InMemory  bool
	Logger    *utils.Logger
}

// BadgerCache is a digest cache backed by BadgerDB.
type BadgerCache struct {
	db     *badger.DB
	logger *utils.Logger
}

// NewBadgerCache opens (or creates) a BadgerDB cache.
func NewBadgerCache(opts Options) (*BadgerCache, error) {
	var badgerOpts badger.Options

	if opts.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := utils.EnsureDir(opts.Directory); err != nil {
			return nil, err
		}
		badgerOpts = badger.DefaultOptions(opts.Directory)
	}
	badgerOpts = badgerOpts.WithLogger(nil)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, err
	}

	// Background value-log garbage collection.
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			_ = db.RunValueLogGC(0.5)
		}
	}()

	return &BadgerCache{
		db:     db,
		logger: opts.Logger.WithComponent("cache"),
	}, nil
}

// Get retrieves a stored digest, or domain.ErrCacheMiss.
func (c *BadgerCache) Get(ctx context.Context, key string) (*domain.IngestionResult, error) {
	var raw []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return domain.ErrCacheMiss
			}
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	var result domain.IngestionResult
	if err := json.Unmarshal(raw, &result); err != nil {
		// A corrupt entry behaves like a miss; the fresh digest overwrites it.
		c.logger.Warn().Err(err).Str("key", key).Msg("Dropping unreadable cache entry")
		return nil, domain.ErrCacheMiss
	}
	return &result, nil
}

// Set stores a digest with a TTL.
func (c *BadgerCache) Set(ctx context.Context, key string, result *domain.IngestionResult, ttl time.Duration) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}

	return c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), raw)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
}

// Delete removes a key.
func (c *BadgerCache) Delete(ctx context.Context, key string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Clear removes every entry.
func (c *BadgerCache) Clear() error {
	return c.db.DropAll()
}

// Close releases cache resources.
func (c *BadgerCache) Close() error {
	return c.db.Close()
}
