package cache

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"reelkeeper/internal/config"
	"reelkeeper/internal/services"
)

// Type partitions the key space and selects the TTL.
type Type string

const (
	TypeSearch  Type = "search"
	TypeDetails Type = "details"
)

// Store is a TTL-bounded byte cache. Get reports a miss with ok=false and a
// nil error; expired entries are misses.
type Store interface {
	Get(ctx context.Context, key string, typ Type) ([]byte, bool, error)
	Set(ctx context.Context, key string, typ Type, value []byte) error
	Delete(ctx context.Context, key string, typ Type) error
	Close() error
}

// TTLPolicy maps cache types to lifetimes. A zero lifetime never expires.
type TTLPolicy struct {
	Search  time.Duration
	Details time.Duration
}

// For returns the lifetime for typ. Unknown types use the search lifetime.
func (p TTLPolicy) For(typ Type) time.Duration {
	if typ == TypeDetails {
		return p.Details
	}
	return p.Search
}

// PolicyFromConfig converts configured hours to a TTLPolicy.
func PolicyFromConfig(cfg config.Cache) TTLPolicy {
	return TTLPolicy{
		Search:  time.Duration(cfg.SearchTTLHours) * time.Hour,
		Details: time.Duration(cfg.DetailsTTLHours) * time.Hour,
	}
}

// Open constructs the configured backend under the cache directory, wrapped in
// Safe.
func Open(cfg *config.Config, logger *slog.Logger) (Store, error) {
	policy := PolicyFromConfig(cfg.Cache)
	var (
		store Store
		err   error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Cache.Backend)) {
	case "memory":
		store = NewMemory(policy)
	case "sqlite", "":
		store, err = OpenSQLite(filepath.Join(cfg.Paths.CacheDir, "cache.db"), policy)
	case "badger":
		store, err = OpenBadger(filepath.Join(cfg.Paths.CacheDir, "badger"), policy)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "cache", "open",
			fmt.Sprintf("unknown backend %q", cfg.Cache.Backend), nil)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrInfrastructure, "cache", "open", cfg.Cache.Backend, err)
	}
	return NewSafe(store, logger), nil
}

func compositeKey(typ Type, key string) string {
	return string(typ) + "|" + key
}
