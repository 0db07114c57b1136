package trackings

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BearBump/TrackSync/internal/integrations/provider"
	"github.com/BearBump/TrackSync/internal/metrics"
	"github.com/BearBump/TrackSync/internal/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

type BulkItem struct {
	TrackingNumber string
	Success        bool
	Record         *models.TrackingRecord
	Persisted      bool
	Error          string
}

type BulkResult struct {
	SessionID  string
	Total      int
	Successful int
	Failed     int
	Items      []BulkItem
}

// NormalizeBatch нормализует номера, выкидывает пустые и повторы; порядок первого появления.
func NormalizeBatch(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		n := models.NormalizeTrackingNumber(r)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// ValidateBatch нормализует пакет и проверяет лимит.
func (s *Service) ValidateBatch(raw []string) ([]string, error) {
	numbers := NormalizeBatch(raw)
	if len(numbers) == 0 {
		return nil, &ValidationError{Msg: "at least one tracking number is required"}
	}
	if len(numbers) > s.opts.BulkMaxNumbers {
		return nil, &ValidationError{Msg: fmt.Sprintf("at most %d tracking numbers per request", s.opts.BulkMaxNumbers)}
	}
	return numbers, nil
}

// TrackBulk всегда ходит к провайдеру. Ошибка одного номера не влияет на остальные;
// по итогам пишется ровно одна запись аудита.
func (s *Service) TrackBulk(ctx context.Context, raw []string) (*BulkResult, error) {
	numbers, err := s.ValidateBatch(raw)
	if err != nil {
		return nil, err
	}

	results, err := s.provider.FetchBulk(ctx, numbers)
	if err != nil {
		slog.Warn("provider bulk fetch failed, fetching one by one", "count", len(numbers), "error", err.Error())
		results = provider.FetchEach(ctx, s.provider, numbers)
	}
	byNumber := make(map[string]provider.Result, len(results))
	for _, r := range results {
		n := models.NormalizeTrackingNumber(r.TrackingNumber)
		if _, ok := byNumber[n]; !ok {
			byNumber[n] = r
		}
	}

	items := make([]BulkItem, len(numbers))
	var g errgroup.Group
	g.SetLimit(s.opts.BulkConcurrency)
	for i, n := range numbers {
		i, n := i, n
		res, ok := byNumber[n]
		g.Go(func() error {
			items[i] = s.bulkItem(ctx, n, res, ok)
			return nil
		})
	}
	_ = g.Wait()

	out := &BulkResult{
		SessionID: uuid.NewString(),
		Total:     len(items),
		Items:     items,
	}
	for _, it := range items {
		if it.Success {
			out.Successful++
		} else {
			out.Failed++
		}
	}

	session := models.BulkSession{
		ID:              out.SessionID,
		TrackingNumbers: numbers,
		Total:           out.Total,
		Successful:      out.Successful,
		Failed:          out.Failed,
		CreatedAt:       s.opts.Now(),
	}
	if err := s.store.AppendBulkSession(ctx, session); err != nil {
		slog.Error("append bulk session failed", "session_id", session.ID, "error", err.Error())
	}
	metrics.BulkBatchesTotal.Inc()
	return out, nil
}

func (s *Service) bulkItem(ctx context.Context, number string, res provider.Result, found bool) BulkItem {
	item := BulkItem{TrackingNumber: number}
	if !found {
		res = provider.Failed(number, errors.New("provider returned no result"))
	}
	if !res.Success || res.Payload == nil {
		metrics.ProviderFetchesTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		metrics.BulkItemsTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		err := providerErr(number, res)
		slog.Warn("provider fetch failed", "tracking_number", number, "error", err.Error())
		item.Error = errMessage(err)
		return item
	}
	metrics.ProviderFetchesTotal.WithLabelValues(metrics.OutcomeOK).Inc()

	rec, persisted, err := s.syncOrFallback(ctx, number, res.Payload)
	if err != nil {
		metrics.BulkItemsTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		slog.Error("bulk item failed", "tracking_number", number, "error", err.Error())
		item.Error = err.Error()
		return item
	}
	if persisted {
		metrics.BulkItemsTotal.WithLabelValues(metrics.OutcomeOK).Inc()
	} else {
		metrics.BulkItemsTotal.WithLabelValues(metrics.OutcomeUnpersisted).Inc()
	}
	item.Success = true
	item.Record = rec
	item.Persisted = persisted
	return item
}

func providerErr(number string, res provider.Result) *ProviderError {
	err := res.Err
	if err == nil {
		err = errors.New("provider returned no data")
	}
	return &ProviderError{TrackingNumber: number, Err: err}
}

// errMessage — текст ошибки провайдера без префикса с номером.
func errMessage(err *ProviderError) string {
	return err.Err.Error()
}
