package mocks

import (
	context "context"

	models "github.com/BearBump/TrackSync/internal/models"
	trackings "github.com/BearBump/TrackSync/internal/services/trackings"
	mock "github.com/stretchr/testify/mock"
)

// MockStore is a mock type for the Store type
type MockStore struct {
	mock.Mock
}

// GetRecord provides a mock function with given fields: ctx, trackingNumber
func (_m *MockStore) GetRecord(ctx context.Context, trackingNumber string) (*models.TrackingRecord, error) {
	ret := _m.Called(ctx, trackingNumber)

	var r0 *models.TrackingRecord
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.TrackingRecord)
	}
	return r0, ret.Error(1)
}

// BeginSync provides a mock function with given fields: ctx, trackingNumber
func (_m *MockStore) BeginSync(ctx context.Context, trackingNumber string) (trackings.UnitOfWork, error) {
	ret := _m.Called(ctx, trackingNumber)

	var r0 trackings.UnitOfWork
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(trackings.UnitOfWork)
	}
	return r0, ret.Error(1)
}

// AppendBulkSession provides a mock function with given fields: ctx, s
func (_m *MockStore) AppendBulkSession(ctx context.Context, s models.BulkSession) error {
	ret := _m.Called(ctx, s)
	return ret.Error(0)
}
