// Package flight распознаёт авиа-перевозку в истории отправления.
package flight

import (
	"regexp"
	"strings"

	"github.com/BearBump/TrackSync/internal/models"
)

// События, которые однозначно означают авиаперевозку.
var definitivePhrases = []string{
	"aircraft take off",
	"handed over to airport facility",
	"transport leg completed",
}

// Экспортные/таможенные события международного авиамаршрута.
var exportPhrases = []string{
	"sent to export customs",
	"out from export customs",
	"received receptacle from abroad",
	"assigned to load plan",
}

var locationKeywords = []string{"flight", "airport", "aircraft"}

var (
	flightNumberRe = regexp.MustCompile(`(?i)Flight\s*-\s*[A-Z]{2}\d{3,4}`)
	// "Flight - AI0187 (DEL to YYZ)"
	flightInfoRe = regexp.MustCompile(`(?i)Flight\s*-\s*([A-Z]{2})(\d{3,4})\s*\(([A-Z]+)\s*to\s*([A-Z]+)\)`)
)

type Info struct {
	FlightNumber string `json:"flightNumber"`
	Airline      string `json:"airline"`
	Origin       string `json:"origin"`
	Destination  string `json:"destination"`
}

// Flight — рейс в сводке с датой/временем первого упоминания.
type Flight struct {
	Info
	Date string  `json:"date,omitempty"`
	Time *string `json:"time,omitempty"`
}

type Summary struct {
	HasFlightEvents bool     `json:"hasFlightEvents"`
	FlightCount     int      `json:"flightCount"`
	Flights         []Flight `json:"flights"`
}

// IsFlightEvent проверяет сигналы по порядку: точные фразы события, номер рейса
// в локации, экспортные фразы, ключевые слова в локации.
func IsFlightEvent(ev models.TrackingEvent) bool {
	text := strings.ToLower(strings.TrimSpace(ev.Event))
	location := models.Deref(ev.Location)

	if containsAny(text, definitivePhrases) {
		return true
	}
	if location != "" && flightNumberRe.MatchString(location) {
		return true
	}
	if containsAny(text, exportPhrases) {
		return true
	}
	return containsAny(strings.ToLower(strings.TrimSpace(location)), locationKeywords)
}

// ExtractFlightInfo разбирает "Flight - <AA><NNNN> (<ORIG> to <DEST>)".
func ExtractFlightInfo(location string) (Info, bool) {
	if location == "" {
		return Info{}, false
	}
	m := flightInfoRe.FindStringSubmatch(location)
	if m == nil {
		return Info{}, false
	}
	return Info{
		FlightNumber: m[1] + m[2],
		Airline:      m[1],
		Origin:       m[3],
		Destination:  m[4],
	}, true
}

func FilterFlightEvents(events []models.TrackingEvent) []models.TrackingEvent {
	out := make([]models.TrackingEvent, 0, len(events))
	for _, e := range events {
		if IsFlightEvent(e) {
			out = append(out, e)
		}
	}
	return out
}

// Summarize считает все авиа-события, но рейс попадает в Flights один раз.
func Summarize(events []models.TrackingEvent) Summary {
	flightEvents := FilterFlightEvents(events)
	flights := make([]Flight, 0)
	seen := make(map[string]struct{})
	for _, e := range flightEvents {
		info, ok := ExtractFlightInfo(models.Deref(e.Location))
		if !ok {
			continue
		}
		if _, dup := seen[info.FlightNumber]; dup {
			continue
		}
		seen[info.FlightNumber] = struct{}{}
		flights = append(flights, Flight{Info: info, Date: e.Date, Time: e.Time})
	}
	return Summary{
		HasFlightEvents: len(flightEvents) > 0,
		FlightCount:     len(flightEvents),
		Flights:         flights,
	}
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
