package provider

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BearBump/TrackSync/internal/models"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	calls atomic.Int32
	bulk  atomic.Int32
}

func (s *stubClient) FetchOne(ctx context.Context, n string) Result {
	s.calls.Add(1)
	if n == "BAD" {
		return Failed(n, errors.New("boom"))
	}
	return Succeeded(&models.ProviderPayload{TrackingNumber: n})
}

func (s *stubClient) FetchBulk(ctx context.Context, ns []string) ([]Result, error) {
	s.bulk.Add(1)
	return FetchEach(ctx, s, ns), nil
}

func TestFetchEach_PreservesOrder(t *testing.T) {
	c := &stubClient{}
	out := FetchEach(context.Background(), c, []string{"A", "BAD", "C"})
	require.Len(t, out, 3)
	require.Equal(t, "A", out[0].TrackingNumber)
	require.True(t, out[0].Success)
	require.Equal(t, "BAD", out[1].TrackingNumber)
	require.False(t, out[1].Success)
	require.EqualError(t, out[1].Err, "boom")
	require.Equal(t, "C", out[2].TrackingNumber)
	require.Equal(t, int32(3), c.calls.Load())
}

type fakeRL struct {
	allowed bool
	err     error
	keys    []string
}

func (r *fakeRL) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error) {
	r.keys = append(r.keys, key)
	return r.allowed, 1, r.err
}

func TestRateLimited_KeysPerMinuteAndDelegates(t *testing.T) {
	c := &stubClient{}
	rl := &fakeRL{allowed: true}
	r := NewRateLimited(c, rl, "indiapost", 10)
	r.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }

	res := r.FetchOne(context.Background(), "A")
	require.True(t, res.Success)
	_, err := r.FetchBulk(context.Background(), []string{"A", "B"})
	require.NoError(t, err)
	require.Equal(t, []string{"rl:provider:indiapost:202501020304", "rl:provider:indiapost:202501020304"}, rl.keys)
	require.Equal(t, int32(1), c.bulk.Load())
}

func TestRateLimited_LimiterErrorDoesNotBlock(t *testing.T) {
	c := &stubClient{}
	r := NewRateLimited(c, &fakeRL{err: errors.New("redis down")}, "p", 10)
	require.True(t, r.FetchOne(context.Background(), "A").Success)
}

func TestRateLimited_ExceededPausesThenProceeds(t *testing.T) {
	c := &stubClient{}
	r := NewRateLimited(c, &fakeRL{allowed: false}, "p", 1)
	r.pause = 10 * time.Millisecond
	start := time.Now()
	require.True(t, r.FetchOne(context.Background(), "A").Success)
	require.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestRateLimited_Disabled(t *testing.T) {
	c := &stubClient{}
	r := NewRateLimited(c, nil, "p", 0)
	require.True(t, r.FetchOne(context.Background(), "A").Success)
}
