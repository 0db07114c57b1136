package trackings

import (
	"time"

	"github.com/BearBump/TrackSync/internal/models"
)

type Freshness int

const (
	Stale Freshness = iota
	Fresh
)

func (f Freshness) String() string {
	if f == Fresh {
		return "fresh"
	}
	return "stale"
}

// DecideFreshness: запись свежая, если обновлялась строго меньше window назад.
func DecideFreshness(rec *models.TrackingRecord, now time.Time, window time.Duration) Freshness {
	if rec == nil {
		return Stale
	}
	if now.Sub(rec.UpdatedAt) < window {
		return Fresh
	}
	return Stale
}
