package provider

import (
	"context"

	"github.com/BearBump/TrackSync/internal/models"
	"golang.org/x/sync/errgroup"
)

// Result — исход запроса по одному номеру.
type Result struct {
	TrackingNumber string
	Success        bool
	Payload        *models.ProviderPayload
	Err            error
}

type Client interface {
	FetchOne(ctx context.Context, trackingNumber string) Result
	// FetchBulk возвращает ошибку только если упал сам пакетный запрос.
	FetchBulk(ctx context.Context, trackingNumbers []string) ([]Result, error)
}

// FetchEach запрашивает номера по одному, параллельно. Порядок результатов
// совпадает с порядком входа.
func FetchEach(ctx context.Context, c Client, trackingNumbers []string) []Result {
	out := make([]Result, len(trackingNumbers))
	var g errgroup.Group
	for i, n := range trackingNumbers {
		i, n := i, n
		g.Go(func() error {
			out[i] = c.FetchOne(ctx, n)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func Failed(trackingNumber string, err error) Result {
	return Result{TrackingNumber: trackingNumber, Err: err}
}

func Succeeded(p *models.ProviderPayload) Result {
	return Result{TrackingNumber: p.TrackingNumber, Success: true, Payload: p}
}
