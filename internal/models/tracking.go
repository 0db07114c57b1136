package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Нормализованные статусы отправления.
const (
	StatusCodeUnknown        = "unknown"
	StatusCodeBooked         = "booked"
	StatusCodePickedUp       = "picked_up"
	StatusCodeInTransit      = "in_transit"
	StatusCodeOutForDelivery = "out_for_delivery"
	StatusCodeDelivered      = "delivered"
	StatusCodeFailed         = "failed"
	StatusCodeReturned       = "returned"
)

type TrackingRecord struct {
	ID             uint64          `json:"-"`
	TrackingNumber string          `json:"trackingNumber"`
	Status         string          `json:"status"`
	StatusCode     string          `json:"statusCode"`
	Origin         *string         `json:"origin,omitempty"`
	Destination    *string         `json:"destination,omitempty"`
	BookedOn       *string         `json:"bookedOn,omitempty"`
	DeliveredOn    *string         `json:"deliveredOn,omitempty"`
	ArticleType    *string         `json:"articleType,omitempty"`
	RawPayload     json.RawMessage `json:"-"`
	Events         []TrackingEvent `json:"events"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

type TrackingEvent struct {
	ID       uint64  `json:"id,omitempty"`
	Date     string  `json:"date"`
	Time     *string `json:"time,omitempty"`
	Office   *string `json:"office,omitempty"`
	Event    string  `json:"event"`
	Location *string `json:"location,omitempty"`
}

// ProviderPayload — нормализованный ответ провайдера по одному треку.
type ProviderPayload struct {
	TrackingNumber string
	Status         string
	Origin         *string
	Destination    *string
	BookedOn       *string
	DeliveredOn    *string
	ArticleType    *string
	Events         []TrackingEvent
	Raw            json.RawMessage
}

// BulkSession — аудит одного пакетного запроса. Только добавляется.
type BulkSession struct {
	ID              string
	TrackingNumbers []string
	Total           int
	Successful      int
	Failed          int
	CreatedAt       time.Time
}

// DedupKey — составной ключ события (date, time, event, office); отсутствующее поле = "".
func (e TrackingEvent) DedupKey() string {
	return e.Date + "\x00" + Deref(e.Time) + "\x00" + e.Event + "\x00" + Deref(e.Office)
}

// NormalizeTrackingNumber обрезает пробелы и приводит номер к верхнему регистру.
func NormalizeTrackingNumber(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// NormalizeStatus сводит текст статуса провайдера к одному из StatusCode*.
func NormalizeStatus(status string) string {
	if status == "" {
		return StatusCodeUnknown
	}
	low := strings.ToLower(status)
	switch {
	case strings.Contains(low, "undelivered"):
		return StatusCodeFailed
	case strings.Contains(low, "delivered"):
		return StatusCodeDelivered
	case strings.Contains(low, "out for delivery"):
		return StatusCodeOutForDelivery
	case strings.Contains(low, "transit"), strings.Contains(low, "dispatched"):
		return StatusCodeInTransit
	case strings.Contains(low, "picked"), strings.Contains(low, "received"):
		return StatusCodePickedUp
	case strings.Contains(low, "booked"), strings.Contains(low, "posted"):
		return StatusCodeBooked
	case strings.Contains(low, "returned"), strings.Contains(low, "rto"):
		return StatusCodeReturned
	case strings.Contains(low, "failed"):
		return StatusCodeFailed
	}
	return StatusCodeInTransit
}

func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// StrPtr возвращает nil для пустой строки.
func StrPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
