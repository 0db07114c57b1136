package models

import (
	"sort"
	"strings"
	"time"
)

// Форматы дат, которые встречаются у провайдера.
var eventDateLayouts = []string{
	"02-01-2006",
	"2006-01-02",
	"02/01/2006",
	"02.01.2006",
	"02 Jan 2006",
	"02-Jan-2006",
	"Jan 02, 2006",
}

var eventTimeLayouts = []string{
	"15:04:05",
	"15:04",
	"03:04 PM",
	"03:04:05 PM",
}

// EventAt разбирает дату и (необязательное) время события.
// ok=false, если дату разобрать не удалось.
func (e TrackingEvent) EventAt() (time.Time, bool) {
	date := strings.TrimSpace(e.Date)
	if date == "" {
		return time.Time{}, false
	}
	var day time.Time
	parsed := false
	for _, l := range eventDateLayouts {
		if t, err := time.ParseInLocation(l, date, time.UTC); err == nil {
			day, parsed = t, true
			break
		}
	}
	if !parsed {
		return time.Time{}, false
	}
	clock := strings.TrimSpace(Deref(e.Time))
	if clock == "" {
		return day, true
	}
	for _, l := range eventTimeLayouts {
		if t, err := time.Parse(l, strings.ToUpper(clock)); err == nil {
			return day.Add(time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second), true
		}
	}
	return day, true
}

// SortEventsNewestFirst сортирует события по дате (новые сверху).
// Неразобранные даты уходят в конец, при равенстве сохраняется исходный порядок.
func SortEventsNewestFirst(events []TrackingEvent) {
	type keyed struct {
		ev TrackingEvent
		at time.Time
		ok bool
	}
	ks := make([]keyed, len(events))
	for i, e := range events {
		at, ok := e.EventAt()
		ks[i] = keyed{ev: e, at: at, ok: ok}
	}
	sort.SliceStable(ks, func(a, b int) bool {
		if ks[a].ok != ks[b].ok {
			return ks[a].ok
		}
		return ks[a].at.After(ks[b].at)
	})
	for i := range ks {
		events[i] = ks[i].ev
	}
}
