package trackings

import "github.com/BearBump/TrackSync/internal/models"

// DedupeEvents оставляет первое вхождение каждого ключа (date, time, event, office),
// порядок сохраняется.
func DedupeEvents(events []models.TrackingEvent) []models.TrackingEvent {
	out := make([]models.TrackingEvent, 0, len(events))
	seen := make(map[string]struct{}, len(events))
	for _, e := range events {
		k := e.DedupKey()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, e)
	}
	return out
}
