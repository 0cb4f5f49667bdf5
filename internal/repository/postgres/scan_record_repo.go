package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"formscan/internal/domain"
	"formscan/internal/port"
)

type scanRecordRepo struct {
	db *sqlx.DB
}

// NewScanRecordRepo creates a new PostgreSQL-backed RecordRepository. The
// extraction result is stored as JSONB. The returned value also implements
// port.Pinger.
func NewScanRecordRepo(db *sqlx.DB) port.RecordRepository {
	return &scanRecordRepo{db: db}
}

func (r *scanRecordRepo) Save(ctx context.Context, rec *domain.ScanRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO scan_records
		(id, form_type, file_name, image_key, model_used, overall_confidence, result, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			form_type = EXCLUDED.form_type,
			file_name = EXCLUDED.file_name,
			image_key = EXCLUDED.image_key,
			model_used = EXCLUDED.model_used,
			overall_confidence = EXCLUDED.overall_confidence,
			result = EXCLUDED.result`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.FormType, rec.FileName, rec.ImageKey, rec.ModelUsed,
		rec.OverallConfidence, []byte(rec.Result), rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("scanRecordRepo.Save: %w", err)
	}
	return nil
}

func (r *scanRecordRepo) List(ctx context.Context) ([]domain.ScanRecord, error) {
	var recs []domain.ScanRecord
	err := r.db.SelectContext(ctx, &recs,
		`SELECT id, form_type, file_name, image_key, model_used, overall_confidence, result, created_at
		 FROM scan_records ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("scanRecordRepo.List: %w", err)
	}
	return recs, nil
}

func (r *scanRecordRepo) DeleteMany(ctx context.Context, ids []uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In("DELETE FROM scan_records WHERE id IN (?)", ids)
	if err != nil {
		return 0, fmt.Errorf("scanRecordRepo.DeleteMany build: %w", err)
	}
	result, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("scanRecordRepo.DeleteMany: %w", err)
	}
	n, _ := result.RowsAffected()
	return int(n), nil
}

func (r *scanRecordRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
