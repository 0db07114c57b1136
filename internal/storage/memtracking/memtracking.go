// Package memtracking — хранилище в памяти процесса для локального запуска и тестов.
package memtracking

import (
	"context"
	"sync"

	"github.com/BearBump/TrackSync/internal/models"
	"github.com/BearBump/TrackSync/internal/services/trackings"
	"github.com/pkg/errors"
)

type Store struct {
	mu          sync.Mutex
	records     map[string]*models.TrackingRecord
	sessions    []models.BulkSession
	keyLocks    map[string]*keyLock
	nextRecord  uint64
	nextEventID uint64
}

func New() *Store {
	return &Store{
		records:  make(map[string]*models.TrackingRecord),
		keyLocks: make(map[string]*keyLock),
	}
}

func (s *Store) GetRecord(ctx context.Context, trackingNumber string) (*models.TrackingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[trackingNumber]
	if !ok {
		return nil, nil
	}
	out := cloneRecord(rec)
	models.SortEventsNewestFirst(out.Events)
	return out, nil
}

func (s *Store) AppendBulkSession(ctx context.Context, bs models.BulkSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bs.TrackingNumbers = append([]string(nil), bs.TrackingNumbers...)
	s.sessions = append(s.sessions, bs)
	return nil
}

// BulkSessions возвращает копию журнала пакетных запросов.
func (s *Store) BulkSessions() []models.BulkSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.BulkSession(nil), s.sessions...)
}

// BeginSync ждёт блокировку номера; другие номера не блокируются.
func (s *Store) BeginSync(ctx context.Context, trackingNumber string) (trackings.UnitOfWork, error) {
	lock := s.acquireKeyLock(trackingNumber)
	select {
	case lock.ch <- struct{}{}:
	case <-ctx.Done():
		s.releaseKeyLock(trackingNumber, lock)
		return nil, errors.Wrap(ctx.Err(), "wait tracking lock")
	}

	s.mu.Lock()
	var work *models.TrackingRecord
	if rec, ok := s.records[trackingNumber]; ok {
		work = cloneRecord(rec)
	}
	s.mu.Unlock()

	return &tx{s: s, number: trackingNumber, lock: lock, work: work}, nil
}

// keyLock живёт в карте, пока на номер есть хотя бы один ожидающий или владелец.
type keyLock struct {
	ch   chan struct{}
	refs int
}

func (s *Store) acquireKeyLock(number string) *keyLock {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.keyLocks[number]
	if !ok {
		l = &keyLock{ch: make(chan struct{}, 1)}
		s.keyLocks[number] = l
	}
	l.refs++
	return l
}

func (s *Store) releaseKeyLock(number string, l *keyLock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(s.keyLocks, number)
	}
}

type tx struct {
	s      *Store
	number string
	lock   *keyLock
	// work — рабочая копия записи, видна только внутри транзакции.
	work *models.TrackingRecord
	done bool
}

var errTxDone = errors.New("transaction already finished")

func (t *tx) Lookup(ctx context.Context) (*models.TrackingRecord, error) {
	if t.done {
		return nil, errTxDone
	}
	if t.work == nil {
		return nil, nil
	}
	return cloneRecord(t.work), nil
}

func (t *tx) DeleteEvents(ctx context.Context, recordID uint64) error {
	if t.done {
		return errTxDone
	}
	if t.work != nil && t.work.ID == recordID {
		t.work.Events = nil
	}
	return nil
}

func (t *tx) UpsertRecord(ctx context.Context, rec *models.TrackingRecord) (uint64, error) {
	if t.done {
		return 0, errTxDone
	}
	if rec == nil {
		return 0, errors.New("nil record")
	}
	if t.work == nil {
		t.s.mu.Lock()
		t.s.nextRecord++
		id := t.s.nextRecord
		t.s.mu.Unlock()

		t.work = cloneRecord(rec)
		t.work.ID = id
		t.work.TrackingNumber = t.number
		t.work.Events = nil
		if t.work.CreatedAt.IsZero() {
			t.work.CreatedAt = rec.UpdatedAt
		}
		return id, nil
	}

	events := t.work.Events
	id, createdAt := t.work.ID, t.work.CreatedAt
	t.work = cloneRecord(rec)
	t.work.ID = id
	t.work.TrackingNumber = t.number
	t.work.CreatedAt = createdAt
	t.work.Events = events
	return id, nil
}

// InsertEvents пропускает повтор ключа (date, time, event, office), как ON CONFLICT DO NOTHING в Postgres.
func (t *tx) InsertEvents(ctx context.Context, recordID uint64, events []models.TrackingEvent) error {
	if t.done {
		return errTxDone
	}
	if t.work == nil || t.work.ID != recordID {
		return errors.Errorf("record %d not found", recordID)
	}
	seen := make(map[string]struct{}, len(t.work.Events)+len(events))
	for _, e := range t.work.Events {
		seen[e.DedupKey()] = struct{}{}
	}
	staged := make([]models.TrackingEvent, 0, len(events))
	for _, e := range events {
		k := e.DedupKey()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		staged = append(staged, e)
	}

	t.s.mu.Lock()
	for i := range staged {
		t.s.nextEventID++
		staged[i].ID = t.s.nextEventID
	}
	t.s.mu.Unlock()

	t.work.Events = append(t.work.Events, staged...)
	return nil
}

func (t *tx) Load(ctx context.Context) (*models.TrackingRecord, error) {
	if t.done {
		return nil, errTxDone
	}
	if t.work == nil {
		return nil, nil
	}
	out := cloneRecord(t.work)
	models.SortEventsNewestFirst(out.Events)
	return out, nil
}

func (t *tx) Commit(ctx context.Context) error {
	if t.done {
		return errTxDone
	}
	t.s.mu.Lock()
	if t.work != nil {
		t.s.records[t.number] = cloneRecord(t.work)
	}
	t.s.mu.Unlock()
	t.finish()
	return nil
}

func (t *tx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.finish()
	return nil
}

func (t *tx) finish() {
	t.done = true
	t.work = nil
	<-t.lock.ch
	t.s.releaseKeyLock(t.number, t.lock)
}

func cloneRecord(r *models.TrackingRecord) *models.TrackingRecord {
	c := *r
	if r.RawPayload != nil {
		c.RawPayload = append([]byte(nil), r.RawPayload...)
	}
	if r.Events != nil {
		c.Events = append([]models.TrackingEvent(nil), r.Events...)
	}
	return &c
}
