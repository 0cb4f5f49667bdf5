package service

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/google/uuid"

	"formscan/internal/domain"
	"formscan/internal/export"
	"formscan/internal/port"
)

// RecordService defines the saved-scan management contract.
type RecordService interface {
	List(ctx context.Context) ([]domain.ScanRecord, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.ScanRecord, error)
	DeleteMany(ctx context.Context, ids []uuid.UUID) (int, error)
	Export(ctx context.Context, format domain.ExportFormat, w io.Writer) error
	ImageURL(ctx context.Context, rec *domain.ScanRecord) (string, error)
}

type recordService struct {
	records       port.RecordRepository
	storage       port.ImageStorage
	presignExpiry int64
}

// NewRecordService creates a new RecordService implementation. storage may
// be nil when images are not kept.
func NewRecordService(records port.RecordRepository, storage port.ImageStorage, presignExpiry int64) RecordService {
	return &recordService{records: records, storage: storage, presignExpiry: presignExpiry}
}

func (s *recordService) List(ctx context.Context) ([]domain.ScanRecord, error) {
	if s.records == nil {
		return nil, domain.ErrStorageNotConfigured
	}
	recs, err := s.records.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	if recs == nil {
		recs = []domain.ScanRecord{}
	}
	return recs, nil
}

func (s *recordService) Get(ctx context.Context, id uuid.UUID) (*domain.ScanRecord, error) {
	recs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range recs {
		if recs[i].ID == id {
			return &recs[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

// DeleteMany removes the records and, best effort, their source images.
func (s *recordService) DeleteMany(ctx context.Context, ids []uuid.UUID) (int, error) {
	if s.records == nil {
		return 0, domain.ErrStorageNotConfigured
	}
	if len(ids) == 0 {
		return 0, domain.ErrNoRecordIDs
	}

	var keys []string
	if s.storage != nil {
		keys = s.imageKeys(ctx, ids)
	}

	n, err := s.records.DeleteMany(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("deleting records: %w", err)
	}
	log.Printf("recordService.DeleteMany: deleted %d of %d records", n, len(ids))

	for _, key := range keys {
		if err := s.storage.Delete(ctx, key); err != nil {
			log.Printf("recordService.DeleteMany: failed to delete image %s: %v", key, err)
		}
	}
	return n, nil
}

func (s *recordService) imageKeys(ctx context.Context, ids []uuid.UUID) []string {
	recs, err := s.records.List(ctx)
	if err != nil {
		log.Printf("recordService.DeleteMany: could not look up image keys: %v", err)
		return nil
	}
	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var keys []string
	for i := range recs {
		if want[recs[i].ID] && recs[i].ImageKey != "" {
			keys = append(keys, recs[i].ImageKey)
		}
	}
	return keys
}

func (s *recordService) Export(ctx context.Context, format domain.ExportFormat, w io.Writer) error {
	recs, err := s.List(ctx)
	if err != nil {
		return err
	}
	if err := export.Write(w, format, recs); err != nil {
		return fmt.Errorf("exporting %d records as %s: %w", len(recs), format, err)
	}
	return nil
}

func (s *recordService) ImageURL(ctx context.Context, rec *domain.ScanRecord) (string, error) {
	if s.storage == nil || rec.ImageKey == "" {
		return "", domain.ErrNotFound
	}
	url, err := s.storage.GetPresignedURL(ctx, rec.ImageKey, s.presignExpiry)
	if err != nil {
		return "", fmt.Errorf("presigning image for %s: %w", rec.ID, err)
	}
	return url, nil
}
