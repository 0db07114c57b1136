package provider

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimited ограничивает частоту обращений к провайдеру (общий счётчик в Redis
// на все инстансы). При превышении лимита запрос притормаживается, но не отклоняется.
type RateLimited struct {
	next      Client
	rl        RateLimiter
	name      string
	perMinute int64
	pause     time.Duration
	now       func() time.Time
}

func NewRateLimited(next Client, rl RateLimiter, name string, perMinute int64) *RateLimited {
	return &RateLimited{
		next:      next,
		rl:        rl,
		name:      name,
		perMinute: perMinute,
		pause:     500 * time.Millisecond,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (r *RateLimited) FetchOne(ctx context.Context, trackingNumber string) Result {
	r.throttle(ctx)
	return r.next.FetchOne(ctx, trackingNumber)
}

func (r *RateLimited) FetchBulk(ctx context.Context, trackingNumbers []string) ([]Result, error) {
	r.throttle(ctx)
	return r.next.FetchBulk(ctx, trackingNumbers)
}

func (r *RateLimited) throttle(ctx context.Context) {
	if r.rl == nil || r.perMinute <= 0 {
		return
	}
	key := fmt.Sprintf("rl:provider:%s:%s", r.name, r.now().Format("200601021504"))
	allowed, n, err := r.rl.Allow(ctx, key, r.perMinute, 70*time.Second)
	if err != nil {
		// Лимитер недоступен — не блокируем запросы.
		slog.Warn("provider rate limiter", "provider", r.name, "error", err.Error())
		return
	}
	if allowed {
		return
	}
	slog.Warn("provider rate limit exceeded", "provider", r.name, "count", n)
	t := time.NewTimer(r.pause)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
