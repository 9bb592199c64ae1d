package cache

import (
	"context"
	"log/slog"

	"reelkeeper/internal/logging"
)

// Safe degrades backend failures: Get errors become misses, Set and Delete
// errors are logged and swallowed.
type Safe struct {
	inner  Store
	logger *slog.Logger
}

func NewSafe(inner Store, logger *slog.Logger) *Safe {
	return &Safe{inner: inner, logger: logging.NewComponentLogger(logger, "cache")}
}

func (s *Safe) Get(ctx context.Context, key string, typ Type) ([]byte, bool, error) {
	if s == nil || s.inner == nil {
		return nil, false, nil
	}
	value, ok, err := s.inner.Get(ctx, key, typ)
	if err != nil {
		s.warn(ctx, "cache get failed", "cache_get_failed", key, typ, err, "treated as a miss")
		return nil, false, nil
	}
	return value, ok, nil
}

func (s *Safe) Set(ctx context.Context, key string, typ Type, value []byte) error {
	if s == nil || s.inner == nil {
		return nil
	}
	if err := s.inner.Set(ctx, key, typ, value); err != nil {
		s.warn(ctx, "cache set failed", "cache_set_failed", key, typ, err, "result not cached")
	}
	return nil
}

func (s *Safe) Delete(ctx context.Context, key string, typ Type) error {
	if s == nil || s.inner == nil {
		return nil
	}
	if err := s.inner.Delete(ctx, key, typ); err != nil {
		s.warn(ctx, "cache delete failed", "cache_delete_failed", key, typ, err, "stale entry may be served until expiry")
	}
	return nil
}

func (s *Safe) Close() error {
	if s == nil || s.inner == nil {
		return nil
	}
	return s.inner.Close()
}

func (s *Safe) warn(ctx context.Context, msg, event, key string, typ Type, err error, impact string) {
	logging.WarnWithContext(logging.WithContext(ctx, s.logger), msg, event,
		logging.String("cache_key", key),
		logging.String("cache_type", string(typ)),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check cache directory permissions or switch cache.backend"),
		logging.String(logging.FieldImpact, impact),
	)
}
