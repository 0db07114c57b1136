package messages

import "time"

// TrackingSynced публикуется после каждой успешно записанной синхронизации.
type TrackingSynced struct {
	TrackingNumber string    `json:"tracking_number"`
	Status         string    `json:"status"`
	StatusCode     string    `json:"status_code"`
	EventCount     int       `json:"event_count"`
	FlightCount    int       `json:"flight_count"`
	SyncedAt       time.Time `json:"synced_at"`
}
