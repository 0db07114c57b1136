package cache

import (
	"context"
	"time"
)

// BytesCache — best-effort кэш; ошибки кэша не должны ломать основной путь.
type BytesCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetIfAbsent пишет значение, только если ключа нет; false — ключ уже был.
	SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}
