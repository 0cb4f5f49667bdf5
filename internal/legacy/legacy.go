// Package legacy converts scans saved in the old flat storage format into
// current scan records. Old records carry a single line item and no form
// type, so every conversion yields a Generic form.
package legacy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"formscan/internal/confidence"
	"formscan/internal/domain"
	"formscan/internal/normalizer"
	"formscan/internal/port"
	"formscan/internal/validator"
)

// ModelUsed marks records produced by conversion instead of inference.
const ModelUsed = "legacy-import"

// namespace derives stable record IDs from legacy IDs that are not UUIDs,
// so repeated imports address the same records.
var namespace = uuid.MustParse("6f1c4f0e-3d0b-4b8e-9b4a-2f6b1f7c9a10")

// FlatScan is one record in the old flat storage format.
type FlatScan struct {
	ID          string    `db:"id" json:"id"`
	NSN         string    `db:"nsn" json:"nsn"`
	Description string    `db:"description" json:"description"`
	Quantity    int       `db:"quantity" json:"quantity"`
	ImageURI    string    `db:"image_uri" json:"imageUri"`
	ScannedAt   time.Time `db:"scanned_at" json:"scannedAt"`
}

// RecordID returns the ID the converted record is stored under.
func (f *FlatScan) RecordID() uuid.UUID {
	id := strings.TrimSpace(f.ID)
	if parsed, err := uuid.Parse(id); err == nil {
		return parsed
	}
	return uuid.NewSHA1(namespace, []byte(id))
}

// ToResult builds the Generic extraction result for f, validated and scored
// like any freshly extracted form.
func ToResult(f *FlatScan) *domain.ExtractionResult {
	item := domain.GenericItem{
		StockNumber: normalizer.CanonicalStockNumber(f.NSN),
		Description: strings.TrimSpace(f.Description),
		Quantity:    f.Quantity,
		Issues:      []domain.ValidationIssue{},
	}
	if item.Quantity < 0 {
		item.Issues = append(item.Issues, domain.ValidationIssue(fmt.Sprintf("negative item quantity %d replaced with 0", item.Quantity)))
		item.Quantity = 0
	}

	form := &domain.GenericForm{
		Header: domain.GenericHeader{Issues: []domain.ValidationIssue{}},
		Items:  []domain.GenericItem{item},
	}
	res := domain.NewExtractionResult(form)
	res.ModelUsed = ModelUsed
	validator.Apply(res)
	confidence.Apply(res)
	return res
}

// ToRecord converts f into a scan record. The record keeps the legacy scan
// time and image location.
func ToRecord(f *FlatScan) (*domain.ScanRecord, error) {
	rec, err := domain.NewScanRecord(ToResult(f), "", strings.TrimSpace(f.ImageURI))
	if err != nil {
		return nil, fmt.Errorf("converting legacy scan %q: %w", f.ID, err)
	}
	rec.ID = f.RecordID()
	if !f.ScannedAt.IsZero() {
		rec.CreatedAt = f.ScannedAt.UTC()
	}
	return rec, nil
}

// Decode reads a JSON array of legacy scans, as exported by the old app.
func Decode(r io.Reader) ([]FlatScan, error) {
	var scans []FlatScan
	if err := json.NewDecoder(r).Decode(&scans); err != nil {
		return nil, fmt.Errorf("%w: decoding legacy scans: %v", domain.ErrLegacyMigrationFailed, err)
	}
	return scans, nil
}

// Import converts scans and saves them through repo. Saving is keyed by
// RecordID, so importing the same file twice does not duplicate records.
// It stops at the first save failure and reports how many were saved.
func Import(ctx context.Context, repo port.RecordRepository, scans []FlatScan) (int, error) {
	saved := 0
	for i := range scans {
		rec, err := ToRecord(&scans[i])
		if err != nil {
			return saved, fmt.Errorf("%w: %v", domain.ErrLegacyMigrationFailed, err)
		}
		if err := repo.Save(ctx, rec); err != nil {
			return saved, fmt.Errorf("%w: saving %s: %v", domain.ErrLegacyMigrationFailed, rec.ID, err)
		}
		saved++
	}
	log.Printf("legacy.Import: imported %d legacy scans", saved)
	return saved, nil
}
