package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// Medium is a mock for storage.Medium.
type Medium struct {
	mock.Mock
}

func (m *Medium) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if data, ok := args.Get(0).([]byte); ok {
		return data, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Medium) Set(ctx context.Context, key string, value []byte) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *Medium) Watch(key string, fn func()) func() {
	args := m.Called(key, fn)
	if cancel, ok := args.Get(0).(func()); ok {
		return cancel
	}
	return func() {}
}

func (m *Medium) Close() error {
	args := m.Called()
	return args.Error(0)
}
