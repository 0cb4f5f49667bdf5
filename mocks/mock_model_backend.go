package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockModelBackend is a mock implementation of port.ModelBackend.
type MockModelBackend struct {
	mock.Mock
	ProviderName string
}

func (m *MockModelBackend) Complete(ctx context.Context, model string, image []byte, mimeType, instruction string) (string, error) {
	args := m.Called(ctx, model, image, mimeType, instruction)
	return args.String(0), args.Error(1)
}

func (m *MockModelBackend) Name() string {
	return m.ProviderName
}
