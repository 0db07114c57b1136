package pgtracking

import (
	"context"

	"github.com/BearBump/TrackSync/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const recordColumns = `
  id, tracking_number, status, status_code,
  origin, destination, booked_on, delivered_on, article_type,
  raw_payload, created_at, updated_at`

// querier — общее у пула и транзакции.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (s *Storage) GetRecord(ctx context.Context, trackingNumber string) (*models.TrackingRecord, error) {
	return loadRecord(ctx, s.db, trackingNumber, false)
}

func (s *Storage) AppendBulkSession(ctx context.Context, bs models.BulkSession) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO bulk_sessions (id, tracking_numbers, total, successful, failed, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
`, bs.ID, bs.TrackingNumbers, bs.Total, bs.Successful, bs.Failed, bs.CreatedAt.UTC())
	return errors.Wrap(err, "insert bulk session")
}

// loadRecord читает запись и её события; nil, nil если записи нет.
func loadRecord(ctx context.Context, q querier, trackingNumber string, forUpdate bool) (*models.TrackingRecord, error) {
	rec, err := selectRecord(ctx, q, trackingNumber, forUpdate)
	if err != nil || rec == nil {
		return nil, err
	}

	rows, err := q.Query(ctx, `
SELECT id, date, time, office, event, location
FROM tracking_events
WHERE record_id = $1
ORDER BY id
`, rec.ID)
	if err != nil {
		return nil, errors.Wrap(err, "select events")
	}
	defer rows.Close()

	rec.Events = make([]models.TrackingEvent, 0)
	for rows.Next() {
		var e models.TrackingEvent
		if err := rows.Scan(&e.ID, &e.Date, &e.Time, &e.Office, &e.Event, &e.Location); err != nil {
			return nil, errors.Wrap(err, "scan event")
		}
		rec.Events = append(rec.Events, e)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}

	// Даты приходят строками в разных форматах, поэтому сортируем здесь, а не в SQL.
	models.SortEventsNewestFirst(rec.Events)
	return rec, nil
}

func selectRecord(ctx context.Context, q querier, trackingNumber string, forUpdate bool) (*models.TrackingRecord, error) {
	sql := `SELECT` + recordColumns + `
FROM tracking_records
WHERE tracking_number = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}

	var rec models.TrackingRecord
	var raw []byte
	err := q.QueryRow(ctx, sql, trackingNumber).Scan(
		&rec.ID, &rec.TrackingNumber, &rec.Status, &rec.StatusCode,
		&rec.Origin, &rec.Destination, &rec.BookedOn, &rec.DeliveredOn, &rec.ArticleType,
		&raw, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "select record")
	}
	rec.RawPayload = raw
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return &rec, nil
}
