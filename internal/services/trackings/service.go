package trackings

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/BearBump/TrackSync/internal/cache"
	"github.com/BearBump/TrackSync/internal/integrations/provider"
	"github.com/BearBump/TrackSync/internal/metrics"
	"github.com/BearBump/TrackSync/internal/models"
	"github.com/pkg/errors"
)

const (
	DefaultFreshnessWindow = 15 * time.Minute
	DefaultBulkMaxNumbers  = 10
	DefaultBulkConcurrency = 10
	DefaultSyncedTopic     = "tracking.synced"
)

type Options struct {
	FreshnessWindow time.Duration
	BulkMaxNumbers  int
	BulkConcurrency int
	// CacheTTL — время жизни снимка в Redis; 0 — равен FreshnessWindow.
	CacheTTL    time.Duration
	SyncedTopic string
	Now         func() time.Time
}

type Service struct {
	store     Store
	provider  provider.Client
	cache     cache.BytesCache
	publisher Publisher
	opts      Options
}

// New: cache и publisher могут быть nil.
func New(store Store, p provider.Client, c cache.BytesCache, pub Publisher, opts Options) *Service {
	if opts.FreshnessWindow <= 0 {
		opts.FreshnessWindow = DefaultFreshnessWindow
	}
	if opts.BulkMaxNumbers <= 0 {
		opts.BulkMaxNumbers = DefaultBulkMaxNumbers
	}
	if opts.BulkConcurrency <= 0 {
		opts.BulkConcurrency = DefaultBulkConcurrency
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = opts.FreshnessWindow
	}
	if opts.SyncedTopic == "" {
		opts.SyncedTopic = DefaultSyncedTopic
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{store: store, provider: p, cache: c, publisher: pub, opts: opts}
}

func (s *Service) BulkMaxNumbers() int { return s.opts.BulkMaxNumbers }

type LookupResult struct {
	Record *models.TrackingRecord
	// Cached — ответ отдан без обращения к провайдеру.
	Cached bool
	// Persisted — false, если данные получены, но запись в БД не удалась.
	Persisted bool
}

// Track возвращает состояние отправления. При fresh=false сначала смотрит
// Redis и БД и ходит к провайдеру только если запись старше окна свежести.
func (s *Service) Track(ctx context.Context, trackingNumber string, fresh bool) (*LookupResult, error) {
	number := models.NormalizeTrackingNumber(trackingNumber)
	if number == "" {
		return nil, &ValidationError{Msg: "tracking number is required"}
	}

	if !fresh {
		if rec := s.cachedRecord(ctx, number); rec != nil {
			metrics.LookupsTotal.WithLabelValues(metrics.ResultCached).Inc()
			return &LookupResult{Record: rec, Cached: true, Persisted: true}, nil
		}
	}

	res := s.provider.FetchOne(ctx, number)
	if !res.Success || res.Payload == nil {
		metrics.ProviderFetchesTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		metrics.LookupsTotal.WithLabelValues(metrics.ResultFailed).Inc()
		err := providerErr(number, res)
		slog.Warn("provider fetch failed", "tracking_number", number, "error", err.Error())
		return nil, err
	}
	metrics.ProviderFetchesTotal.WithLabelValues(metrics.OutcomeOK).Inc()

	rec, persisted, err := s.syncOrFallback(ctx, number, res.Payload)
	if err != nil {
		metrics.LookupsTotal.WithLabelValues(metrics.ResultFailed).Inc()
		return nil, err
	}
	metrics.LookupsTotal.WithLabelValues(metrics.ResultFetched).Inc()
	return &LookupResult{Record: rec, Persisted: persisted}, nil
}

// cachedRecord ищет свежий снимок: Redis, затем БД. nil — надо идти к провайдеру.
func (s *Service) cachedRecord(ctx context.Context, number string) *models.TrackingRecord {
	now := s.opts.Now()
	if s.cache != nil {
		b, ok, err := s.cache.Get(ctx, currentKey(number))
		if err != nil {
			slog.Warn("cache get failed", "tracking_number", number, "error", err.Error())
		}
		if ok {
			var rec models.TrackingRecord
			if json.Unmarshal(b, &rec) == nil && DecideFreshness(&rec, now, s.opts.FreshnessWindow) == Fresh {
				return &rec
			}
		}
	}

	rec, err := s.store.GetRecord(ctx, number)
	if err != nil {
		// БД недоступна — пробуем провайдера.
		slog.Warn("store get record failed", "tracking_number", number, "error", err.Error())
		return nil
	}
	if DecideFreshness(rec, now, s.opts.FreshnessWindow) != Fresh {
		return nil
	}
	s.fillCache(ctx, rec)
	return rec
}

// syncOrFallback пишет данные провайдера; если БД подвела, отдаёт
// незаписанную запись, собранную из ответа.
func (s *Service) syncOrFallback(ctx context.Context, number string, p *models.ProviderPayload) (*models.TrackingRecord, bool, error) {
	rec, err := s.Sync(ctx, number, p)
	if err == nil {
		return rec, true, nil
	}
	var perr *PersistenceError
	if !errors.As(err, &perr) {
		return nil, false, err
	}
	metrics.PersistenceFailuresTotal.Inc()
	slog.Error("persist tracking failed", "tracking_number", number, "error", perr.Error())
	return s.unpersistedRecord(number, p), false, nil
}

func (s *Service) unpersistedRecord(number string, p *models.ProviderPayload) *models.TrackingRecord {
	now := s.opts.Now()
	rec := recordFromPayload(number, p, now)
	rec.CreatedAt = now
	rec.Events = DedupeEvents(p.Events)
	models.SortEventsNewestFirst(rec.Events)
	return rec
}

func (s *Service) setCache(ctx context.Context, rec *models.TrackingRecord) {
	if s.cache == nil || rec == nil {
		return
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, currentKey(rec.TrackingNumber), b, s.opts.CacheTTL); err != nil {
		slog.Warn("cache set failed", "tracking_number", rec.TrackingNumber, "error", err.Error())
	}
}

// fillCache кладёт прочитанную из БД запись, не перетирая снимок,
// который успел записать синк.
func (s *Service) fillCache(ctx context.Context, rec *models.TrackingRecord) {
	if s.cache == nil || rec == nil {
		return
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if _, err := s.cache.SetIfAbsent(ctx, currentKey(rec.TrackingNumber), b, s.opts.CacheTTL); err != nil {
		slog.Warn("cache fill failed", "tracking_number", rec.TrackingNumber, "error", err.Error())
	}
}

func (s *Service) dropCache(ctx context.Context, number string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(context.WithoutCancel(ctx), currentKey(number)); err != nil {
		slog.Warn("cache delete failed", "tracking_number", number, "error", err.Error())
	}
}

func currentKey(number string) string {
	return "tracking:" + number + ":current"
}
