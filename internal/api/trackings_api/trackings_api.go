package trackings_api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/BearBump/TrackSync/internal/broker/messages"
	"github.com/BearBump/TrackSync/internal/flight"
	"github.com/BearBump/TrackSync/internal/models"
	"github.com/BearBump/TrackSync/internal/services/trackings"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Tracker interface {
	Track(ctx context.Context, trackingNumber string, fresh bool) (*trackings.LookupResult, error)
	TrackBulk(ctx context.Context, raw []string) (*trackings.BulkResult, error)
	ValidateBatch(raw []string) ([]string, error)
}

type Publisher interface {
	PublishJSON(ctx context.Context, topic, key string, v any) error
}

type TrackingsAPI struct {
	svc       Tracker
	pub       Publisher
	bulkTopic string
	validate  *validator.Validate
	now       func() time.Time
}

// New: pub может быть nil, тогда асинхронный пакетный endpoint отвечает 503.
func New(svc Tracker, pub Publisher, bulkTopic string) *TrackingsAPI {
	return &TrackingsAPI{
		svc:       svc,
		pub:       pub,
		bulkTopic: bulkTopic,
		validate:  validator.New(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Mount вешает маршруты /api/*. bulkPerMinute ограничивает пакетные запросы с одного IP; 0 — без лимита.
func (a *TrackingsAPI) Mount(r chi.Router, bulkPerMinute int) {
	r.Get("/api/track", a.Track)
	r.Group(func(r chi.Router) {
		if bulkPerMinute > 0 {
			r.Use(httprate.LimitByIP(bulkPerMinute, time.Minute))
		}
		r.Post("/api/track-bulk", a.TrackBulk)
		r.Post("/api/track-bulk/async", a.TrackBulkAsync)
	})
}

type bulkRequest struct {
	TrackingNumbers []string `json:"trackingNumbers" validate:"required,min=1,dive,max=64"`
	FlightOnly      bool     `json:"flightOnly"`
}

type recordResponse struct {
	*models.TrackingRecord
	FlightSummary flight.Summary `json:"flightSummary"`
}

type trackResponse struct {
	recordResponse
	Cached    bool `json:"cached"`
	Persisted bool `json:"persisted"`
}

type bulkItemResponse struct {
	TrackingNumber string `json:"trackingNumber"`
	Success        bool   `json:"success"`
	Persisted      bool   `json:"persisted"`
	Error          string `json:"error,omitempty"`
	*recordResponse
}

type bulkResponse struct {
	SessionID  string             `json:"sessionId"`
	Total      int                `json:"total"`
	Successful int                `json:"successful"`
	Failed     int                `json:"failed"`
	Results    []bulkItemResponse `json:"results"`
}

type asyncResponse struct {
	RequestID string `json:"requestId"`
	Total     int    `json:"total"`
}

func (a *TrackingsAPI) Track(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if err := a.validate.Var(strings.TrimSpace(id), "required,max=64"); err != nil {
		fail(w, r, http.StatusBadRequest, "tracking number is required")
		return
	}
	fresh, _ := strconv.ParseBool(r.URL.Query().Get("fresh"))

	res, err := a.svc.Track(r.Context(), id, fresh)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	render.JSON(w, r, trackResponse{
		recordResponse: toRecordResponse(res.Record, false),
		Cached:         res.Cached,
		Persisted:      res.Persisted,
	})
}

func (a *TrackingsAPI) TrackBulk(w http.ResponseWriter, r *http.Request) {
	req, ok := a.decodeBulk(w, r)
	if !ok {
		return
	}

	res, err := a.svc.TrackBulk(r.Context(), req.TrackingNumbers)
	if err != nil {
		handleErr(w, r, err)
		return
	}

	out := bulkResponse{
		SessionID:  res.SessionID,
		Total:      res.Total,
		Successful: res.Successful,
		Failed:     res.Failed,
		Results:    make([]bulkItemResponse, 0, len(res.Items)),
	}
	for _, it := range res.Items {
		item := bulkItemResponse{
			TrackingNumber: it.TrackingNumber,
			Success:        it.Success,
			Persisted:      it.Persisted,
			Error:          it.Error,
		}
		if it.Record != nil {
			rr := toRecordResponse(it.Record, req.FlightOnly)
			item.recordResponse = &rr
		}
		out.Results = append(out.Results, item)
	}
	render.JSON(w, r, out)
}

// TrackBulkAsync кладёт пакет в Kafka; обработает его track-worker.
func (a *TrackingsAPI) TrackBulkAsync(w http.ResponseWriter, r *http.Request) {
	if a.pub == nil {
		fail(w, r, http.StatusServiceUnavailable, "async processing is not configured")
		return
	}
	req, ok := a.decodeBulk(w, r)
	if !ok {
		return
	}
	numbers, err := a.svc.ValidateBatch(req.TrackingNumbers)
	if err != nil {
		handleErr(w, r, err)
		return
	}

	msg := messages.BulkTrackRequested{
		RequestID:       uuid.NewString(),
		TrackingNumbers: numbers,
		RequestedAt:     a.now(),
	}
	if err := a.pub.PublishJSON(r.Context(), a.bulkTopic, msg.RequestID, msg); err != nil {
		handleErr(w, r, err)
		return
	}
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, asyncResponse{RequestID: msg.RequestID, Total: len(numbers)})
}

func (a *TrackingsAPI) decodeBulk(w http.ResponseWriter, r *http.Request) (bulkRequest, bool) {
	var req bulkRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		fail(w, r, http.StatusBadRequest, "invalid body")
		return req, false
	}
	if err := a.validate.Struct(req); err != nil {
		fail(w, r, http.StatusBadRequest, "trackingNumbers array is required")
		return req, false
	}
	return req, true
}

func toRecordResponse(rec *models.TrackingRecord, flightOnly bool) recordResponse {
	summary := flight.Summarize(rec.Events)
	if flightOnly {
		c := *rec
		c.Events = flight.FilterFlightEvents(rec.Events)
		rec = &c
	}
	return recordResponse{TrackingRecord: rec, FlightSummary: summary}
}
