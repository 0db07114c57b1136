package mocks

import (
	context "context"

	mock "github.com/stretchr/testify/mock"
)

// MockPublisher is a mock type for the Publisher type
type MockPublisher struct {
	mock.Mock
}

// Publish provides a mock function with given fields: ctx, topic, key, value
func (_m *MockPublisher) Publish(ctx context.Context, topic string, key []byte, value []byte) error {
	ret := _m.Called(ctx, topic, key, value)
	return ret.Error(0)
}
