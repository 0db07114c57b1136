package trackings

import (
	"context"

	"github.com/BearBump/TrackSync/internal/models"
)

type Store interface {
	// GetRecord возвращает nil, nil если записи нет.
	GetRecord(ctx context.Context, trackingNumber string) (*models.TrackingRecord, error)
	// BeginSync открывает транзакцию и берёт блокировку на номер.
	BeginSync(ctx context.Context, trackingNumber string) (UnitOfWork, error)
	AppendBulkSession(ctx context.Context, s models.BulkSession) error
}

// UnitOfWork — одна транзакция синхронизации по одному номеру.
// После Commit или Rollback объект не используется.
type UnitOfWork interface {
	Lookup(ctx context.Context) (*models.TrackingRecord, error)
	DeleteEvents(ctx context.Context, recordID uint64) error
	// UpsertRecord пишет скаляры записи и возвращает её id.
	UpsertRecord(ctx context.Context, rec *models.TrackingRecord) (uint64, error)
	InsertEvents(ctx context.Context, recordID uint64, events []models.TrackingEvent) error
	// Load перечитывает запись с событиями, новые первыми.
	Load(ctx context.Context) (*models.TrackingRecord, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}
