package pgtracking

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS tracking_records (
  id BIGSERIAL PRIMARY KEY,
  tracking_number TEXT NOT NULL UNIQUE,
  status TEXT NOT NULL DEFAULT '',
  status_code TEXT NOT NULL DEFAULT 'unknown',
  origin TEXT NULL,
  destination TEXT NULL,
  booked_on TEXT NULL,
  delivered_on TEXT NULL,
  article_type TEXT NULL,
  raw_payload JSONB NULL,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
)`,
		`
CREATE TABLE IF NOT EXISTS tracking_events (
  id BIGSERIAL PRIMARY KEY,
  record_id BIGINT NOT NULL REFERENCES tracking_records(id) ON DELETE CASCADE,
  date TEXT NOT NULL,
  time TEXT NULL,
  office TEXT NULL,
  event TEXT NOT NULL,
  location TEXT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		`CREATE INDEX IF NOT EXISTS idx_tracking_events_record_id ON tracking_events(record_id)`,
		`
CREATE TABLE IF NOT EXISTS bulk_sessions (
  id TEXT PRIMARY KEY,
  tracking_numbers TEXT[] NOT NULL,
  total INT NOT NULL,
  successful INT NOT NULL,
  failed INT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  CHECK (successful + failed = total)
)`,
		// Старые базы могли накопить дубли до появления уникального индекса.
		`
WITH ranked AS (
  SELECT id,
         ROW_NUMBER() OVER (
           PARTITION BY record_id, date, COALESCE(time, ''), event, COALESCE(office, '')
           ORDER BY id
         ) AS rn
  FROM tracking_events
)
DELETE FROM tracking_events
WHERE id IN (SELECT id FROM ranked WHERE rn > 1)
`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_tracking_events_dedup ON tracking_events(record_id, date, COALESCE(time, ''), event, COALESCE(office, ''))`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
