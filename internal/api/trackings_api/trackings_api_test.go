package trackings_api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BearBump/TrackSync/internal/broker/messages"
	"github.com/BearBump/TrackSync/internal/flight"
	"github.com/BearBump/TrackSync/internal/integrations/provider/fake"
	"github.com/BearBump/TrackSync/internal/models"
	"github.com/BearBump/TrackSync/internal/services/trackings"
	"github.com/BearBump/TrackSync/internal/storage/memtracking"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	topic string
	key   string
	msg   any
	err   error
}

func (p *fakePublisher) PublishJSON(ctx context.Context, topic, key string, v any) error {
	p.topic, p.key, p.msg = topic, key, v
	return p.err
}

func newTestServer(t *testing.T, pub Publisher) (*httptest.Server, *memtracking.Store) {
	t.Helper()
	store := memtracking.New()
	svc := trackings.New(store, fake.New(), nil, nil, trackings.Options{BulkMaxNumbers: 3})

	api := New(svc, pub, "tracking.bulk.requested")
	r := chi.NewRouter()
	api.Mount(r, 0)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, store
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func postJSON(t *testing.T, url, body string, out any) int {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

type trackBody struct {
	TrackingNumber string                 `json:"trackingNumber"`
	StatusCode     string                 `json:"statusCode"`
	Events         []models.TrackingEvent `json:"events"`
	Cached         bool                   `json:"cached"`
	Persisted      bool                   `json:"persisted"`
	FlightSummary  flight.Summary         `json:"flightSummary"`
	Error          string                 `json:"error"`
}

func TestTrack_FetchThenCached(t *testing.T) {
	srv, store := newTestServer(t, nil)

	var first trackBody
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/track?id=ee123456789in", &first))
	require.Equal(t, "EE123456789IN", first.TrackingNumber)
	require.False(t, first.Cached)
	require.True(t, first.Persisted)
	require.NotEmpty(t, first.Events)
	require.NotNil(t, first.FlightSummary.Flights)

	rec, err := store.GetRecord(context.Background(), "EE123456789IN")
	require.NoError(t, err)
	require.NotNil(t, rec)

	var second trackBody
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/track?id=EE123456789IN", &second))
	require.True(t, second.Cached)
	require.Equal(t, first.Events, second.Events)

	var forced trackBody
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/track?id=EE123456789IN&fresh=true", &forced))
	require.False(t, forced.Cached)
}

func TestTrack_Errors(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	var body trackBody
	require.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/track", &body))
	require.Equal(t, "tracking number is required", body.Error)

	body = trackBody{}
	require.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/api/track?id=FAIL1", &body))
	require.NotEmpty(t, body.Error)
}

type bulkBody struct {
	SessionID  string `json:"sessionId"`
	Total      int    `json:"total"`
	Successful int    `json:"successful"`
	Failed     int    `json:"failed"`
	Results    []struct {
		TrackingNumber string                 `json:"trackingNumber"`
		Success        bool                   `json:"success"`
		Persisted      bool                   `json:"persisted"`
		Error          string                 `json:"error"`
		Events         []models.TrackingEvent `json:"events"`
		FlightSummary  *flight.Summary        `json:"flightSummary"`
	} `json:"results"`
	Error string `json:"error"`
}

func TestTrackBulk_PartialFailure(t *testing.T) {
	srv, store := newTestServer(t, nil)

	var body bulkBody
	code := postJSON(t, srv.URL+"/api/track-bulk", `{"trackingNumbers":["ee1"," EE1 ","FAIL2"]}`, &body)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, 2, body.Total)
	require.Equal(t, 1, body.Successful)
	require.Equal(t, 1, body.Failed)
	require.NotEmpty(t, body.SessionID)

	require.Equal(t, "EE1", body.Results[0].TrackingNumber)
	require.True(t, body.Results[0].Success)
	require.NotEmpty(t, body.Results[0].Events)
	require.NotNil(t, body.Results[0].FlightSummary)

	require.Equal(t, "FAIL2", body.Results[1].TrackingNumber)
	require.False(t, body.Results[1].Success)
	require.NotEmpty(t, body.Results[1].Error)
	require.Nil(t, body.Results[1].FlightSummary)

	require.Len(t, store.BulkSessions(), 1)
}

func TestTrackBulk_FlightOnly(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	var body bulkBody
	code := postJSON(t, srv.URL+"/api/track-bulk", `{"trackingNumbers":["A1","A2","A3"],"flightOnly":true}`, &body)
	require.Equal(t, http.StatusOK, code)
	for _, r := range body.Results {
		require.True(t, r.Success)
		require.Len(t, r.Events, r.FlightSummary.FlightCount)
		for _, e := range r.Events {
			require.True(t, flight.IsFlightEvent(e))
		}
	}
}

func TestTrackBulk_Validation(t *testing.T) {
	srv, store := newTestServer(t, nil)

	cases := []string{
		`{"trackingNumbers":[]}`,
		`{}`,
		`not json`,
		`{"trackingNumbers":[" ",""]}`,
		`{"trackingNumbers":["A1","A2","A3","A4"]}`,
	}
	for _, c := range cases {
		var body bulkBody
		require.Equal(t, http.StatusBadRequest, postJSON(t, srv.URL+"/api/track-bulk", c, &body), c)
		require.NotEmpty(t, body.Error, c)
	}
	require.Empty(t, store.BulkSessions())
}

func TestTrackBulkAsync(t *testing.T) {
	pub := &fakePublisher{}
	srv, store := newTestServer(t, pub)

	var body asyncResponse
	code := postJSON(t, srv.URL+"/api/track-bulk/async", `{"trackingNumbers":["a1","A1","b2"]}`, &body)
	require.Equal(t, http.StatusAccepted, code)
	require.Equal(t, 2, body.Total)
	require.NotEmpty(t, body.RequestID)

	require.Equal(t, "tracking.bulk.requested", pub.topic)
	require.Equal(t, body.RequestID, pub.key)
	msg, ok := pub.msg.(messages.BulkTrackRequested)
	require.True(t, ok)
	require.Equal(t, []string{"A1", "B2"}, msg.TrackingNumbers)
	require.WithinDuration(t, time.Now(), msg.RequestedAt, time.Minute)

	// синхронно ничего не пишется
	require.Empty(t, store.BulkSessions())

	var over errorResponse
	code = postJSON(t, srv.URL+"/api/track-bulk/async", `{"trackingNumbers":["A1","A2","A3","A4"]}`, &over)
	require.Equal(t, http.StatusBadRequest, code)
}

func TestTrackBulkAsync_PublishFailure(t *testing.T) {
	srv, _ := newTestServer(t, &fakePublisher{err: errors.New("kafka down")})

	var body errorResponse
	code := postJSON(t, srv.URL+"/api/track-bulk/async", `{"trackingNumbers":["A1"]}`, &body)
	require.Equal(t, http.StatusInternalServerError, code)
	require.Equal(t, "internal server error", body.Error)
}

func TestTrackBulkAsync_NotConfigured(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	var body errorResponse
	code := postJSON(t, srv.URL+"/api/track-bulk/async", `{"trackingNumbers":["A1"]}`, &body)
	require.Equal(t, http.StatusServiceUnavailable, code)
}
