package mocks

import (
	context "context"

	provider "github.com/BearBump/TrackSync/internal/integrations/provider"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client type
type MockClient struct {
	mock.Mock
}

// FetchOne provides a mock function with given fields: ctx, trackingNumber
func (_m *MockClient) FetchOne(ctx context.Context, trackingNumber string) provider.Result {
	ret := _m.Called(ctx, trackingNumber)

	if rf, ok := ret.Get(0).(func(context.Context, string) provider.Result); ok {
		return rf(ctx, trackingNumber)
	}
	return ret.Get(0).(provider.Result)
}

// FetchBulk provides a mock function with given fields: ctx, trackingNumbers
func (_m *MockClient) FetchBulk(ctx context.Context, trackingNumbers []string) ([]provider.Result, error) {
	ret := _m.Called(ctx, trackingNumbers)

	var r0 []provider.Result
	if rf, ok := ret.Get(0).(func(context.Context, []string) []provider.Result); ok {
		r0 = rf(ctx, trackingNumbers)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).([]provider.Result)
	}

	return r0, ret.Error(1)
}
