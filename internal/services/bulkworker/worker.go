// Package bulkworker обрабатывает асинхронные пакетные запросы из Kafka.
package bulkworker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BearBump/TrackSync/internal/broker/messages"
	"github.com/BearBump/TrackSync/internal/services/trackings"
	"github.com/pkg/errors"
)

type BulkTracker interface {
	TrackBulk(ctx context.Context, raw []string) (*trackings.BulkResult, error)
}

type MessageSource interface {
	Consume(ctx context.Context, handler func(key, value []byte) error) error
}

type Worker struct {
	tracker BulkTracker
	source  MessageSource

	retryDelay time.Duration

	startedAtUnixNano   int64
	lastMessageUnixNano atomic.Int64
	totalRequests       atomic.Int64
	totalNumbers        atomic.Int64
	totalSucceeded      atomic.Int64
	totalFailed         atomic.Int64
	totalDropped        atomic.Int64
	inFlight            atomic.Int64
	lastErrorMu         sync.Mutex
	lastError           string
}

func New(tracker BulkTracker, source MessageSource) *Worker {
	return &Worker{
		tracker:           tracker,
		source:            source,
		retryDelay:        2 * time.Second,
		startedAtUnixNano: time.Now().UTC().UnixNano(),
	}
}

func (w *Worker) WithRetryDelay(d time.Duration) *Worker {
	if d > 0 {
		w.retryDelay = d
	}
	return w
}

type Stats struct {
	StartedAt      time.Time  `json:"startedAt"`
	LastMessageAt  *time.Time `json:"lastMessageAt,omitempty"`
	TotalRequests  int64      `json:"totalRequests"`
	TotalNumbers   int64      `json:"totalNumbers"`
	TotalSucceeded int64      `json:"totalSucceeded"`
	TotalFailed    int64      `json:"totalFailed"`
	TotalDropped   int64      `json:"totalDropped"`
	InFlight       int64      `json:"inFlight"`
	LastError      string     `json:"lastError,omitempty"`
}

func (w *Worker) Stats() Stats {
	st := Stats{
		StartedAt:      time.Unix(0, w.startedAtUnixNano).UTC(),
		TotalRequests:  w.totalRequests.Load(),
		TotalNumbers:   w.totalNumbers.Load(),
		TotalSucceeded: w.totalSucceeded.Load(),
		TotalFailed:    w.totalFailed.Load(),
		TotalDropped:   w.totalDropped.Load(),
		InFlight:       w.inFlight.Load(),
	}
	if n := w.lastMessageUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastMessageAt = &t
	}
	w.lastErrorMu.Lock()
	st.LastError = w.lastError
	w.lastErrorMu.Unlock()
	return st
}

// Run читает топик до отмены ctx. Упавшее сообщение обрабатывается повторно на
// месте, смещение сдвигается только после успеха. Ошибки источника пережидаются
// паузой и переподключением.
func (w *Worker) Run(ctx context.Context) error {
	for {
		err := w.source.Consume(ctx, func(key, value []byte) error {
			return w.handleUntilDone(ctx, value)
		})
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			w.setLastError(err)
			slog.Error("consume bulk requests", "error", err.Error())
		}

		if !w.wait(ctx) {
			return ctx.Err()
		}
	}
}

// handleUntilDone повторяет обработку того же сообщения, пока она не пройдёт.
// Ошибку наружу отдаём только при отмене ctx: читатель не перечитывает
// сообщение после ошибки обработчика, а без коммита оно придёт заново
// только после перезапуска с последнего закоммиченного смещения.
func (w *Worker) handleUntilDone(ctx context.Context, value []byte) error {
	for {
		err := w.handle(ctx, value)
		if err == nil {
			return nil
		}
		w.setLastError(err)
		slog.Error("bulk request failed, retrying", "error", err.Error())
		if !w.wait(ctx) {
			return errors.Wrap(ctx.Err(), "retry bulk request")
		}
	}
}

func (w *Worker) wait(ctx context.Context) bool {
	t := time.NewTimer(w.retryDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (w *Worker) handle(ctx context.Context, value []byte) error {
	w.lastMessageUnixNano.Store(time.Now().UTC().UnixNano())
	w.inFlight.Add(1)
	defer w.inFlight.Add(-1)

	var msg messages.BulkTrackRequested
	if err := json.Unmarshal(value, &msg); err != nil {
		w.drop(errors.Wrap(err, "decode bulk request"), "")
		return nil
	}

	res, err := w.tracker.TrackBulk(ctx, msg.TrackingNumbers)
	if err != nil {
		var verr *trackings.ValidationError
		if errors.As(err, &verr) {
			// Такое сообщение не станет валидным при повторе.
			w.drop(err, msg.RequestID)
			return nil
		}
		return errors.Wrap(err, "track bulk")
	}

	w.totalRequests.Add(1)
	w.totalNumbers.Add(int64(res.Total))
	w.totalSucceeded.Add(int64(res.Successful))
	w.totalFailed.Add(int64(res.Failed))
	slog.Info("bulk request processed",
		"request_id", msg.RequestID,
		"session_id", res.SessionID,
		"total", res.Total,
		"successful", res.Successful,
		"failed", res.Failed,
	)
	return nil
}

func (w *Worker) drop(err error, requestID string) {
	w.totalDropped.Add(1)
	w.setLastError(err)
	slog.Warn("bulk request dropped", "request_id", requestID, "error", err.Error())
}

func (w *Worker) setLastError(err error) {
	w.lastErrorMu.Lock()
	w.lastError = err.Error()
	w.lastErrorMu.Unlock()
}
