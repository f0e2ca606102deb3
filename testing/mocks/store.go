package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockStore provides a testify-based mock implementation of tokenstore.Store.
//
// Example usage:
//
//	store := &mocks.MockStore{}
//	store.ExpectGet("accessToken", "tok", true, nil)
//	store.On("Delete", mock.Anything, "accessToken").Return(errors.New("offline"))
type MockStore struct {
	mock.Mock
}

// Get implements tokenstore.Store
func (m *MockStore) Get(ctx context.Context, key string) (value string, ok bool, err error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

// Set implements tokenstore.Store
func (m *MockStore) Set(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

// Delete implements tokenstore.Store
func (m *MockStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// Helper methods for testing scenarios

// ExpectGet sets up a Get expectation for key with any context
func (m *MockStore) ExpectGet(key, value string, ok bool, err error) *mock.Call {
	return m.On("Get", mock.Anything, key).Return(value, ok, err)
}

// ExpectSet sets up a Set expectation for key and value with any context
func (m *MockStore) ExpectSet(key, value string, err error) *mock.Call {
	return m.On("Set", mock.Anything, key, value).Return(err)
}

// ExpectDelete sets up a Delete expectation for key with any context
func (m *MockStore) ExpectDelete(key string, err error) *mock.Call {
	return m.On("Delete", mock.Anything, key).Return(err)
}
