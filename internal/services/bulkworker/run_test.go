package bulkworker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BearBump/TrackSync/internal/services/trackings"
	"github.com/stretchr/testify/require"
)

// fakeSource отдаёт одно сообщение за вызов Consume и затем падает.
type fakeSource struct {
	calls atomic.Int32
	value []byte
}

func (s *fakeSource) Consume(ctx context.Context, handler func(key, value []byte) error) error {
	s.calls.Add(1)
	if err := handler([]byte("k"), s.value); err != nil {
		return err
	}
	return errors.New("broker unavailable")
}

func TestWorker_Run_RetriesUntilContextCancel(t *testing.T) {
	src := &fakeSource{value: []byte(`{"request_id":"r1","tracking_numbers":["EE1"]}`)}
	ft := &fakeTracker{res: &trackings.BulkResult{Total: 1, Successful: 1}}
	w := New(ft, src).WithRetryDelay(5 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := w.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.GreaterOrEqual(t, src.calls.Load(), int32(2))
	require.Equal(t, "broker unavailable", w.Stats().LastError)
}

// onceSource отдаёт одно сообщение и ждёт отмены ctx.
type onceSource struct {
	calls   atomic.Int32
	value   []byte
	handled chan error
}

func (s *onceSource) Consume(ctx context.Context, handler func(key, value []byte) error) error {
	s.calls.Add(1)
	if s.calls.Load() == 1 {
		s.handled <- handler([]byte("k"), s.value)
	}
	<-ctx.Done()
	return ctx.Err()
}

// flakyTracker падает failures раз, затем отвечает res.
type flakyTracker struct {
	failures int
	got      [][]string
	res      *trackings.BulkResult
}

func (t *flakyTracker) TrackBulk(ctx context.Context, raw []string) (*trackings.BulkResult, error) {
	t.got = append(t.got, raw)
	if len(t.got) <= t.failures {
		return nil, errors.New("provider unavailable")
	}
	return t.res, nil
}

func TestWorker_Run_RetriesFailedMessageInPlace(t *testing.T) {
	src := &onceSource{
		value:   []byte(`{"request_id":"r1","tracking_numbers":["EE1","EE2"]}`),
		handled: make(chan error, 1),
	}
	ft := &flakyTracker{failures: 2, res: &trackings.BulkResult{Total: 2, Successful: 2}}
	w := New(ft, src).WithRetryDelay(time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case err := <-src.handled:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("message was not handled")
	}
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	require.Equal(t, [][]string{{"EE1", "EE2"}, {"EE1", "EE2"}, {"EE1", "EE2"}}, ft.got)
	require.Equal(t, int32(1), src.calls.Load())
	st := w.Stats()
	require.Equal(t, int64(1), st.TotalRequests)
	require.Equal(t, int64(2), st.TotalSucceeded)
	require.Contains(t, st.LastError, "provider unavailable")
}

func TestWorker_Run_CancelDuringRetryLeavesMessageUncommitted(t *testing.T) {
	src := &onceSource{
		value:   []byte(`{"request_id":"r1","tracking_numbers":["EE1"]}`),
		handled: make(chan error, 1),
	}
	ft := &flakyTracker{failures: 1 << 30}
	w := New(ft, src).WithRetryDelay(5 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := w.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.ErrorIs(t, <-src.handled, context.DeadlineExceeded)
	require.GreaterOrEqual(t, len(ft.got), 2)
	require.Zero(t, w.Stats().TotalRequests)
}
