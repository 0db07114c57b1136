package mocks

import (
	context "context"

	models "github.com/BearBump/TrackSync/internal/models"
	mock "github.com/stretchr/testify/mock"
)

// MockUnitOfWork is a mock type for the UnitOfWork type
type MockUnitOfWork struct {
	mock.Mock
}

func (_m *MockUnitOfWork) Lookup(ctx context.Context) (*models.TrackingRecord, error) {
	ret := _m.Called(ctx)

	var r0 *models.TrackingRecord
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.TrackingRecord)
	}
	return r0, ret.Error(1)
}

func (_m *MockUnitOfWork) DeleteEvents(ctx context.Context, recordID uint64) error {
	ret := _m.Called(ctx, recordID)
	return ret.Error(0)
}

func (_m *MockUnitOfWork) UpsertRecord(ctx context.Context, rec *models.TrackingRecord) (uint64, error) {
	ret := _m.Called(ctx, rec)

	var r0 uint64
	if rf, ok := ret.Get(0).(func(context.Context, *models.TrackingRecord) uint64); ok {
		r0 = rf(ctx, rec)
	} else {
		r0 = ret.Get(0).(uint64)
	}
	return r0, ret.Error(1)
}

func (_m *MockUnitOfWork) InsertEvents(ctx context.Context, recordID uint64, events []models.TrackingEvent) error {
	ret := _m.Called(ctx, recordID, events)
	return ret.Error(0)
}

func (_m *MockUnitOfWork) Load(ctx context.Context) (*models.TrackingRecord, error) {
	ret := _m.Called(ctx)

	var r0 *models.TrackingRecord
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.TrackingRecord)
	}
	return r0, ret.Error(1)
}

func (_m *MockUnitOfWork) Commit(ctx context.Context) error {
	ret := _m.Called(ctx)
	return ret.Error(0)
}

func (_m *MockUnitOfWork) Rollback(ctx context.Context) error {
	ret := _m.Called(ctx)
	return ret.Error(0)
}
