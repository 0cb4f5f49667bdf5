package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"formscan/internal/classifier"
	"formscan/internal/domain"
	"formscan/internal/service"
)

// MockScanService is a mock implementation of service.ScanService.
type MockScanService struct {
	mock.Mock
}

func (m *MockScanService) Process(ctx context.Context, input service.ScanInput) *domain.ExtractionResult {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*domain.ExtractionResult)
}

func (m *MockScanService) Classify(ctx context.Context, input service.ScanInput) (*classifier.Classification, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*classifier.Classification), args.Error(1)
}

func (m *MockScanService) Scan(ctx context.Context, input service.ScanInput) (*domain.ScanRecord, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ScanRecord), args.Error(1)
}
