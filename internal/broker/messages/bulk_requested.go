package messages

import "time"

// BulkTrackRequested — асинхронный пакетный запрос, его обрабатывает track-worker.
type BulkTrackRequested struct {
	RequestID       string    `json:"request_id"`
	TrackingNumbers []string  `json:"tracking_numbers"`
	RequestedAt     time.Time `json:"requested_at"`
}
