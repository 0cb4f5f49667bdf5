package port

import (
	"context"

	"github.com/google/uuid"

	"formscan/internal/domain"
)

// RecordRepository is the persistence collaborator for finished scans.
type RecordRepository interface {
	Save(ctx context.Context, rec *domain.ScanRecord) error
	List(ctx context.Context) ([]domain.ScanRecord, error)
	DeleteMany(ctx context.Context, ids []uuid.UUID) (int, error)
}

// Pinger is implemented by repositories that can report readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}
