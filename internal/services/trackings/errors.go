package trackings

import "fmt"

// ValidationError — запрос отклонён до обращения к провайдеру и к БД.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// ProviderError — провайдер не отдал данные по номеру.
type ProviderError struct {
	TrackingNumber string
	Err            error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.TrackingNumber, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// PersistenceError — транзакция синхронизации откатилась.
type PersistenceError struct {
	TrackingNumber string
	Err            error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.TrackingNumber, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
