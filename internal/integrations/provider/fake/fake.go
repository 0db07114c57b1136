package fake

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/BearBump/TrackSync/internal/integrations/provider"
	"github.com/BearBump/TrackSync/internal/models"
	"github.com/pkg/errors"
)

// FakeClient — локальная заглушка провайдера для запуска без внешнего API.
// Ответ детерминирован по номеру; номера с префиксом "FAIL" всегда отдают ошибку.
type FakeClient struct {
	now func() time.Time
}

func New() *FakeClient {
	return &FakeClient{now: func() time.Time { return time.Now().UTC() }}
}

func (f *FakeClient) FetchOne(ctx context.Context, trackingNumber string) provider.Result {
	if strings.HasPrefix(trackingNumber, "FAIL") {
		return provider.Failed(trackingNumber, errors.New("fake provider: tracking number not found"))
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(trackingNumber))
	v := h.Sum32()

	day := f.now().Truncate(24 * time.Hour)
	date := func(daysAgo int) string { return day.AddDate(0, 0, -daysAgo).Format("02-01-2006") }

	events := []models.TrackingEvent{
		{Date: date(3), Time: ptr("09:15:00"), Office: ptr("Delhi GPO"), Event: "Item Booked", Location: ptr("Delhi")},
		{Date: date(2), Time: ptr("18:40:00"), Office: ptr("Delhi NSH"), Event: "Item Dispatched", Location: ptr("Delhi")},
	}
	status := "Item Dispatched"
	// Каждый третий трек — международный, с рейсом.
	if v%3 == 0 {
		flightNo := fmt.Sprintf("AI%04d", v%10000)
		events = append(events,
			models.TrackingEvent{Date: date(1), Time: ptr("02:10:00"), Office: ptr("Delhi FPO"), Event: "Item sent to export customs", Location: ptr("Delhi FPO")},
			models.TrackingEvent{Date: date(1), Time: ptr("06:30:00"), Office: ptr("Delhi FPO"), Event: "Aircraft take off", Location: ptr("Flight - " + flightNo + " (DEL to YYZ)")},
		)
	}
	if v%5 == 0 {
		events = append(events, models.TrackingEvent{Date: date(0), Time: ptr("11:05:00"), Office: ptr("Destination PO"), Event: "Item Delivered"})
		status = "Item Delivered"
	}

	p := &models.ProviderPayload{
		TrackingNumber: trackingNumber,
		Status:         status,
		Origin:         ptr("Delhi"),
		Destination:    ptr("Toronto"),
		BookedOn:       ptr(date(3)),
		ArticleType:    ptr("Speed Post"),
		Events:         events,
	}
	raw, _ := json.Marshal(map[string]any{
		"trackingNumber": p.TrackingNumber,
		"status":         p.Status,
		"events":         p.Events,
	})
	p.Raw = raw
	return provider.Succeeded(p)
}

func (f *FakeClient) FetchBulk(ctx context.Context, trackingNumbers []string) ([]provider.Result, error) {
	out := make([]provider.Result, 0, len(trackingNumbers))
	for _, n := range trackingNumbers {
		out = append(out, f.FetchOne(ctx, n))
	}
	return out, nil
}

func ptr(s string) *string { return &s }
