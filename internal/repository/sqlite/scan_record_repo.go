package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"formscan/internal/domain"
	"formscan/internal/port"
)

// recordRow mirrors domain.ScanRecord with the result as TEXT, which the
// driver returns as a string.
type recordRow struct {
	ID                uuid.UUID       `db:"id"`
	FormType          domain.FormType `db:"form_type"`
	FileName          string          `db:"file_name"`
	ImageKey          string          `db:"image_key"`
	ModelUsed         string          `db:"model_used"`
	OverallConfidence int             `db:"overall_confidence"`
	Result            string          `db:"result"`
	CreatedAt         time.Time       `db:"created_at"`
}

func (r *recordRow) record() domain.ScanRecord {
	return domain.ScanRecord{
		ID:                r.ID,
		FormType:          r.FormType,
		FileName:          r.FileName,
		ImageKey:          r.ImageKey,
		ModelUsed:         r.ModelUsed,
		OverallConfidence: r.OverallConfidence,
		Result:            json.RawMessage(r.Result),
		CreatedAt:         r.CreatedAt,
	}
}

const upsertRecord = `INSERT INTO scan_records
	(id, form_type, file_name, image_key, model_used, overall_confidence, result, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		form_type = excluded.form_type,
		file_name = excluded.file_name,
		image_key = excluded.image_key,
		model_used = excluded.model_used,
		overall_confidence = excluded.overall_confidence,
		result = excluded.result`

func insertRecord(ctx context.Context, ex sqlx.ExecerContext, rec *domain.ScanRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := ex.ExecContext(ctx, upsertRecord,
		rec.ID, rec.FormType, rec.FileName, rec.ImageKey, rec.ModelUsed,
		rec.OverallConfidence, string(rec.Result), rec.CreatedAt.UTC())
	return err
}

type scanRecordRepo struct {
	db *sqlx.DB
}

// NewScanRecordRepo creates a new SQLite-backed RecordRepository. The
// returned value also implements port.Pinger.
func NewScanRecordRepo(db *sqlx.DB) port.RecordRepository {
	return &scanRecordRepo{db: db}
}

func (r *scanRecordRepo) Save(ctx context.Context, rec *domain.ScanRecord) error {
	if err := insertRecord(ctx, r.db, rec); err != nil {
		return fmt.Errorf("scanRecordRepo.Save: %w", err)
	}
	return nil
}

func (r *scanRecordRepo) List(ctx context.Context) ([]domain.ScanRecord, error) {
	var rows []recordRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT id, form_type, file_name, image_key, model_used, overall_confidence, result, created_at
		 FROM scan_records ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("scanRecordRepo.List: %w", err)
	}
	recs := make([]domain.ScanRecord, len(rows))
	for i := range rows {
		recs[i] = rows[i].record()
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
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("scanRecordRepo.DeleteMany: %w", err)
	}
	n, _ := result.RowsAffected()
	return int(n), nil
}

func (r *scanRecordRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
