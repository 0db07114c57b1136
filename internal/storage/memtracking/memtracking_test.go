package memtracking

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/BearBump/TrackSync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(number, status string) *models.TrackingRecord {
	return &models.TrackingRecord{TrackingNumber: number, Status: status, UpdatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func TestStore_CommitMakesRecordVisible(t *testing.T) {
	ctx := context.Background()
	s := New()

	uow, err := s.BeginSync(ctx, "EE1")
	require.NoError(t, err)
	got, err := uow.Lookup(ctx)
	require.NoError(t, err)
	require.Nil(t, got)

	id, err := uow.UpsertRecord(ctx, rec("EE1", "Booked"))
	require.NoError(t, err)
	require.NoError(t, uow.InsertEvents(ctx, id, []models.TrackingEvent{
		{Date: "01-01-2025", Event: "Booked"},
		{Date: "02-01-2025", Event: "Dispatched"},
	}))

	// до коммита снаружи ничего не видно
	outside, err := s.GetRecord(ctx, "EE1")
	require.NoError(t, err)
	require.Nil(t, outside)

	loaded, err := uow.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "Dispatched", loaded.Events[0].Event)
	require.NoError(t, uow.Commit(ctx))

	outside, err = s.GetRecord(ctx, "EE1")
	require.NoError(t, err)
	require.Equal(t, id, outside.ID)
	require.Len(t, outside.Events, 2)
	require.Equal(t, rec("EE1", "").UpdatedAt, outside.CreatedAt)
}

func TestStore_RollbackDiscards(t *testing.T) {
	ctx := context.Background()
	s := New()

	uow, err := s.BeginSync(ctx, "EE1")
	require.NoError(t, err)
	_, err = uow.UpsertRecord(ctx, rec("EE1", "Booked"))
	require.NoError(t, err)
	require.NoError(t, uow.Rollback(ctx))
	require.NoError(t, uow.Rollback(ctx))

	got, err := s.GetRecord(ctx, "EE1")
	require.NoError(t, err)
	require.Nil(t, got)

	_, err = uow.Lookup(ctx)
	require.ErrorIs(t, err, errTxDone)
}

func TestStore_UpdateKeepsIDAndCreatedAt(t *testing.T) {
	ctx := context.Background()
	s := New()

	uow, _ := s.BeginSync(ctx, "EE1")
	first := rec("EE1", "Booked")
	first.CreatedAt = first.UpdatedAt
	id, err := uow.UpsertRecord(ctx, first)
	require.NoError(t, err)
	require.NoError(t, uow.Commit(ctx))

	uow, _ = s.BeginSync(ctx, "EE1")
	second := rec("EE1", "Delivered")
	second.UpdatedAt = second.UpdatedAt.Add(time.Hour)
	id2, err := uow.UpsertRecord(ctx, second)
	require.NoError(t, err)
	require.Equal(t, id, id2)
	require.NoError(t, uow.Commit(ctx))

	got, _ := s.GetRecord(ctx, "EE1")
	require.Equal(t, "Delivered", got.Status)
	require.Equal(t, first.CreatedAt, got.CreatedAt)
	require.Equal(t, second.UpdatedAt, got.UpdatedAt)
}

func TestStore_InsertSkipsDuplicateKey(t *testing.T) {
	ctx := context.Background()
	s := New()
	uow, _ := s.BeginSync(ctx, "EE1")
	id, _ := uow.UpsertRecord(ctx, rec("EE1", "Booked"))

	require.NoError(t, uow.InsertEvents(ctx, id, []models.TrackingEvent{
		{Date: "01-01-2025", Event: "Booked"},
		{Date: "01-01-2025", Event: "Booked", Office: models.StrPtr("")},
	}))
	require.NoError(t, uow.InsertEvents(ctx, id, []models.TrackingEvent{{Date: "01-01-2025", Event: "Booked"}}))

	got, err := uow.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got.Events, 1)
	require.NoError(t, uow.Rollback(ctx))

	_, err = uow.Load(ctx)
	require.ErrorIs(t, err, errTxDone)
}

func TestStore_BeginSyncWaitsForSameKey(t *testing.T) {
	ctx := context.Background()
	s := New()

	first, err := s.BeginSync(ctx, "EE1")
	require.NoError(t, err)

	// другой номер не ждёт
	other, err := s.BeginSync(ctx, "EE2")
	require.NoError(t, err)
	require.NoError(t, other.Rollback(ctx))

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = s.BeginSync(waitCtx, "EE1")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, first.Rollback(ctx))
	again, err := s.BeginSync(ctx, "EE1")
	require.NoError(t, err)
	require.NoError(t, again.Rollback(ctx))
	require.Empty(t, s.keyLocks)
}

func TestStore_ConcurrentWritersSerialized(t *testing.T) {
	ctx := context.Background()
	s := New()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			uow, err := s.BeginSync(ctx, "EE1")
			if !assert.NoError(t, err) {
				return
			}
			existing, _ := uow.Lookup(ctx)
			if existing != nil {
				assert.NoError(t, uow.DeleteEvents(ctx, existing.ID))
			}
			id, err := uow.UpsertRecord(ctx, rec("EE1", "Booked"))
			if !assert.NoError(t, err) {
				_ = uow.Rollback(ctx)
				return
			}
			assert.NoError(t, uow.InsertEvents(ctx, id, []models.TrackingEvent{{Date: "01-01-2025", Event: "Booked"}}))
			assert.NoError(t, uow.Commit(ctx))
		}()
	}
	wg.Wait()

	got, err := s.GetRecord(ctx, "EE1")
	require.NoError(t, err)
	require.Len(t, got.Events, 1)
	require.Empty(t, s.keyLocks)
}

func TestStore_KeyLocksReleasedAfterManyNumbers(t *testing.T) {
	ctx := context.Background()
	s := New()

	for i := 0; i < 100; i++ {
		number := fmt.Sprintf("EE%d", i)
		uow, err := s.BeginSync(ctx, number)
		require.NoError(t, err)
		_, err = uow.UpsertRecord(ctx, rec(number, "Booked"))
		require.NoError(t, err)
		if i%2 == 0 {
			require.NoError(t, uow.Commit(ctx))
		} else {
			require.NoError(t, uow.Rollback(ctx))
		}
	}

	require.Empty(t, s.keyLocks)
	got, err := s.GetRecord(ctx, "EE0")
	require.NoError(t, err)
	require.NotNil(t, got)
}

func TestStore_BulkSessionsAppendOnly(t *testing.T) {
	ctx := context.Background()
	s := New()
	nums := []string{"A", "B"}
	require.NoError(t, s.AppendBulkSession(ctx, models.BulkSession{ID: "1", TrackingNumbers: nums, Total: 2, Successful: 1, Failed: 1}))
	nums[0] = "X"

	got := s.BulkSessions()
	require.Len(t, got, 1)
	require.Equal(t, []string{"A", "B"}, got[0].TrackingNumbers)
}
