package pgtracking

import (
	"context"

	"github.com/BearBump/TrackSync/internal/models"
	"github.com/BearBump/TrackSync/internal/services/trackings"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

// BeginSync открывает транзакцию и берёт advisory-lock на номер до её конца.
// Синхронизации разных номеров друг друга не ждут.
func (s *Storage) BeginSync(ctx context.Context, trackingNumber string) (trackings.UnitOfWork, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, trackingNumber); err != nil {
		_ = tx.Rollback(ctx)
		return nil, errors.Wrap(err, "advisory lock")
	}
	return &syncTx{tx: tx, number: trackingNumber}, nil
}

type syncTx struct {
	tx     pgx.Tx
	number string
}

func (t *syncTx) Lookup(ctx context.Context) (*models.TrackingRecord, error) {
	return selectRecord(ctx, t.tx, t.number, true)
}

func (t *syncTx) DeleteEvents(ctx context.Context, recordID uint64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM tracking_events WHERE record_id = $1`, recordID)
	return errors.Wrap(err, "delete events")
}

func (t *syncTx) UpsertRecord(ctx context.Context, rec *models.TrackingRecord) (uint64, error) {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = rec.UpdatedAt
	}

	var id uint64
	err := t.tx.QueryRow(ctx, `
INSERT INTO tracking_records (
  tracking_number, status, status_code,
  origin, destination, booked_on, delivered_on, article_type,
  raw_payload, created_at, updated_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (tracking_number)
DO UPDATE SET
  status = EXCLUDED.status,
  status_code = EXCLUDED.status_code,
  origin = EXCLUDED.origin,
  destination = EXCLUDED.destination,
  booked_on = EXCLUDED.booked_on,
  delivered_on = EXCLUDED.delivered_on,
  article_type = EXCLUDED.article_type,
  raw_payload = EXCLUDED.raw_payload,
  updated_at = EXCLUDED.updated_at
RETURNING id
`, t.number, rec.Status, rec.StatusCode,
		rec.Origin, rec.Destination, rec.BookedOn, rec.DeliveredOn, rec.ArticleType,
		rawJSON(rec.RawPayload), createdAt.UTC(), rec.UpdatedAt.UTC()).Scan(&id)
	if err != nil {
		return 0, errors.Wrap(err, "upsert record")
	}
	return id, nil
}

func (t *syncTx) InsertEvents(ctx context.Context, recordID uint64, events []models.TrackingEvent) error {
	for _, e := range events {
		_, err := t.tx.Exec(ctx, `
INSERT INTO tracking_events (record_id, date, time, office, event, location)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT DO NOTHING
`, recordID, e.Date, e.Time, e.Office, e.Event, e.Location)
		if err != nil {
			return errors.Wrap(err, "insert tracking event")
		}
	}
	return nil
}

func (t *syncTx) Load(ctx context.Context) (*models.TrackingRecord, error) {
	return loadRecord(ctx, t.tx, t.number, false)
}

func (t *syncTx) Commit(ctx context.Context) error {
	return errors.Wrap(t.tx.Commit(ctx), "commit tx")
}

func (t *syncTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return errors.Wrap(err, "rollback tx")
}

// rawJSON: пустой payload пишем как NULL.
func rawJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
