package trackings

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/BearBump/TrackSync/internal/broker/messages"
	"github.com/BearBump/TrackSync/internal/flight"
	"github.com/BearBump/TrackSync/internal/metrics"
	"github.com/BearBump/TrackSync/internal/models"
	"github.com/pkg/errors"
)

// Sync атомарно заменяет запись и её события данными провайдера.
// Любая ошибка хранилища откатывает транзакцию и возвращается как *PersistenceError.
func (s *Service) Sync(ctx context.Context, trackingNumber string, p *models.ProviderPayload) (*models.TrackingRecord, error) {
	number := models.NormalizeTrackingNumber(trackingNumber)
	if number == "" {
		return nil, &ValidationError{Msg: "tracking number is required"}
	}
	if p == nil {
		return nil, errors.New("nil provider payload")
	}

	start := time.Now()
	defer func() { metrics.SyncDuration.Observe(time.Since(start).Seconds()) }()

	rec, err := s.syncTx(ctx, number, p)
	if err != nil {
		return nil, &PersistenceError{TrackingNumber: number, Err: err}
	}

	s.publishSynced(ctx, rec)
	return rec, nil
}

func (s *Service) syncTx(ctx context.Context, number string, p *models.ProviderPayload) (_ *models.TrackingRecord, err error) {
	uow, err := s.store.BeginSync(ctx, number)
	if err != nil {
		return nil, errors.Wrap(err, "begin sync")
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := uow.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			slog.Error("sync rollback failed", "tracking_number", number, "error", rbErr.Error())
		}
	}()

	existing, err := uow.Lookup(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "lookup")
	}

	now := s.opts.Now()
	rec := recordFromPayload(number, p, now)
	rec.CreatedAt = now
	if existing != nil {
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
		if err = uow.DeleteEvents(ctx, existing.ID); err != nil {
			return nil, errors.Wrap(err, "delete events")
		}
	}

	id, err := uow.UpsertRecord(ctx, rec)
	if err != nil {
		return nil, errors.Wrap(err, "upsert record")
	}
	if err = uow.InsertEvents(ctx, id, DedupeEvents(p.Events)); err != nil {
		return nil, errors.Wrap(err, "insert events")
	}

	out, err := uow.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load")
	}
	if out == nil {
		err = errors.New("record vanished inside transaction")
		return nil, err
	}
	// Снимок пишется, пока номер заблокирован: записи в кэш идут в том же порядке, что и синки.
	s.setCache(ctx, out)
	if err = uow.Commit(ctx); err != nil {
		s.dropCache(ctx, number)
		return nil, errors.Wrap(err, "commit")
	}
	return out, nil
}

func (s *Service) publishSynced(ctx context.Context, rec *models.TrackingRecord) {
	if s.publisher == nil {
		return
	}
	msg := messages.TrackingSynced{
		TrackingNumber: rec.TrackingNumber,
		Status:         rec.Status,
		StatusCode:     rec.StatusCode,
		EventCount:     len(rec.Events),
		FlightCount:    flight.Summarize(rec.Events).FlightCount,
		SyncedAt:       rec.UpdatedAt,
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := s.publisher.Publish(ctx, s.opts.SyncedTopic, []byte(rec.TrackingNumber), b); err != nil {
		slog.Error("publish tracking synced failed", "tracking_number", rec.TrackingNumber, "error", err.Error())
	}
}

// recordFromPayload собирает скаляры записи; события не заполняются.
func recordFromPayload(number string, p *models.ProviderPayload, now time.Time) *models.TrackingRecord {
	return &models.TrackingRecord{
		TrackingNumber: number,
		Status:         p.Status,
		StatusCode:     models.NormalizeStatus(p.Status),
		Origin:         p.Origin,
		Destination:    p.Destination,
		BookedOn:       p.BookedOn,
		DeliveredOn:    p.DeliveredOn,
		ArticleType:    p.ArticleType,
		RawPayload:     p.Raw,
		UpdatedAt:      now,
	}
}
