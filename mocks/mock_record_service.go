package mocks

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"formscan/internal/domain"
)

// MockRecordService is a mock implementation of service.RecordService.
type MockRecordService struct {
	mock.Mock
}

func (m *MockRecordService) List(ctx context.Context) ([]domain.ScanRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ScanRecord), args.Error(1)
}

func (m *MockRecordService) Get(ctx context.Context, id uuid.UUID) (*domain.ScanRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ScanRecord), args.Error(1)
}

func (m *MockRecordService) DeleteMany(ctx context.Context, ids []uuid.UUID) (int, error) {
	args := m.Called(ctx, ids)
	return args.Int(0), args.Error(1)
}

// Export writes the string given as the first Return value to w.
func (m *MockRecordService) Export(ctx context.Context, format domain.ExportFormat, w io.Writer) error {
	args := m.Called(ctx, format, w)
	if body, ok := args.Get(0).(string); ok {
		_, _ = io.WriteString(w, body)
		return args.Error(1)
	}
	return args.Error(1)
}

func (m *MockRecordService) ImageURL(ctx context.Context, rec *domain.ScanRecord) (string, error) {
	args := m.Called(ctx, rec)
	return args.String(0), args.Error(1)
}
