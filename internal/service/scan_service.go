package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"formscan/internal/classifier"
	"formscan/internal/confidence"
	"formscan/internal/domain"
	"formscan/internal/extractor"
	"formscan/internal/inference"
	"formscan/internal/metrics"
	"formscan/internal/normalizer"
	"formscan/internal/parser"
	"formscan/internal/port"
	"formscan/internal/validator"
)

// ScanInput is the DTO for one image to process.
type ScanInput struct {
	Image    []byte
	MimeType string
	FileName string
	// FormType skips classification when set to a known form type.
	FormType domain.FormType
}

// ScanService defines the scan pipeline contract.
type ScanService interface {
	// Process runs classify, extract, normalize, validate and score. It never
	// fails: on total failure it returns an empty Generic result with zero
	// confidence.
	Process(ctx context.Context, input ScanInput) *domain.ExtractionResult
	// Classify runs only the classification stage.
	Classify(ctx context.Context, input ScanInput) (*classifier.Classification, error)
	// Scan validates the input, processes it, uploads the image and saves the
	// record. Storage failures are logged, not returned.
	Scan(ctx context.Context, input ScanInput) (*domain.ScanRecord, error)
}

// ScanServiceDeps groups the collaborators of the scan service. Storage and
// Records may be nil.
type ScanServiceDeps struct {
	Classifier *classifier.Classifier
	Extractor  *extractor.Extractor
	Normalizer *normalizer.Normalizer
	Validator  *validator.Validator
	Storage    port.ImageStorage
	Records    port.RecordRepository
	KeyPrefix  string
	// MaxImageBytes rejects larger images when positive.
	MaxImageBytes int64
}

type scanService struct {
	classifier *classifier.Classifier
	extractor  *extractor.Extractor
	normalizer *normalizer.Normalizer
	validator  *validator.Validator
	storage    port.ImageStorage
	records    port.RecordRepository
	keyPrefix  string
	maxBytes   int64
}

// NewScanService creates a new ScanService implementation.
func NewScanService(deps ScanServiceDeps) ScanService {
	n := deps.Normalizer
	if n == nil {
		n = normalizer.New()
	}
	v := deps.Validator
	if v == nil {
		v = validator.New()
	}
	return &scanService{
		classifier: deps.Classifier,
		extractor:  deps.Extractor,
		normalizer: n,
		validator:  v,
		storage:    deps.Storage,
		records:    deps.Records,
		keyPrefix:  strings.Trim(deps.KeyPrefix, "/"),
		maxBytes:   deps.MaxImageBytes,
	}
}

func (s *scanService) Process(ctx context.Context, input ScanInput) *domain.ExtractionResult {
	start := time.Now()
	defer func() { metrics.ScanDuration.Observe(time.Since(start).Seconds()) }()

	mimeType := normalizeMimeType(input.MimeType, input.Image)

	var cls *classifier.Classification
	ft := input.FormType
	if !ft.Valid() {
		cls = s.classifier.ClassifyDetailed(ctx, input.Image, mimeType)
		ft = cls.FormType
	}
	log.Printf("scanService.Process: %q classified as %s", input.FileName, ft)

	obj, model, err := s.extract(ctx, input.Image, mimeType, ft, cls)
	fallback := false
	if err != nil && ft != domain.FormTypeGeneric && isRecoverable(err) {
		log.Printf("scanService.Process: %s extraction failed, retrying as %s: %v", ft, domain.FormTypeGeneric, err)
		ft = domain.FormTypeGeneric
		fallback = true
		obj, model, err = s.extract(ctx, input.Image, mimeType, ft, cls)
	}
	if err != nil {
		log.Printf("scanService.Process: no extraction for %q, returning empty result: %v", input.FileName, err)
		res := s.normalizer.Normalize(map[string]any{}, domain.FormTypeGeneric)
		res.Fallback = true
		res.Confidence = domain.ZeroConfidence()
		res.Issues = append(res.Issues, "no extraction could be obtained; the record is empty")
		metrics.ScansTotal.WithLabelValues(string(res.FormType), "empty").Inc()
		metrics.ConfidenceOverall.WithLabelValues(string(res.FormType)).Observe(0)
		return res
	}

	res := s.normalizer.Normalize(obj, ft)
	res.ModelUsed = model
	res.Fallback = fallback
	res.Issues = append(res.Issues, s.validator.CheckShape(obj, ft)...)
	s.validator.Apply(res)
	confidence.Apply(res)

	outcome := "extracted"
	if fallback {
		outcome = "generic_fallback"
	}
	metrics.ScansTotal.WithLabelValues(string(ft), outcome).Inc()
	metrics.ConfidenceOverall.WithLabelValues(string(ft)).Observe(float64(res.Confidence.Overall))
	metrics.ValidationIssuesTotal.WithLabelValues(string(ft)).Add(float64(validator.CountIssues(res)))

	log.Printf("scanService.Process: %q extracted as %s by %s (%d items, confidence %d)",
		input.FileName, ft, model, res.Form.ItemCount(), res.Confidence.Overall)
	return res
}

// extract reuses the generic object a keyword classification already
// obtained instead of calling the model twice.
func (s *scanService) extract(ctx context.Context, image []byte, mimeType string, ft domain.FormType, cls *classifier.Classification) (map[string]any, string, error) {
	if ft == domain.FormTypeGeneric && cls != nil && cls.Generic != nil {
		return cls.Generic, cls.Model, nil
	}
	obj, raw, err := s.extractor.ExtractObject(ctx, image, mimeType, ft)
	if err != nil {
		return nil, "", err
	}
	return obj, raw.Model, nil
}

// isRecoverable reports whether a failed dedicated extraction is worth
// retrying on the generic path.
func isRecoverable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var infErr *inference.InferenceError
	var parseErr *parser.ParseError
	return errors.As(err, &infErr) || errors.As(err, &parseErr)
}

func (s *scanService) Classify(ctx context.Context, input ScanInput) (*classifier.Classification, error) {
	if err := s.validateInput(&input); err != nil {
		return nil, err
	}
	return s.classifier.ClassifyDetailed(ctx, input.Image, input.MimeType), nil
}

func (s *scanService) Scan(ctx context.Context, input ScanInput) (*domain.ScanRecord, error) {
	if err := s.validateInput(&input); err != nil {
		return nil, err
	}
	metrics.UploadSizeBytes.Observe(float64(len(input.Image)))

	result := s.Process(ctx, input)

	rec, err := domain.NewScanRecord(result, input.FileName, "")
	if err != nil {
		return nil, fmt.Errorf("building scan record: %w", err)
	}

	if s.storage != nil {
		key := s.imageKey(rec, input.MimeType)
		_, err := s.storage.Upload(ctx, port.UploadInput{
			Key:         key,
			Body:        bytes.NewReader(input.Image),
			ContentType: input.MimeType,
			Size:        int64(len(input.Image)),
		})
		if err != nil {
			log.Printf("scanService.Scan: image upload failed for record %s: %v", rec.ID, err)
		} else {
			rec.ImageKey = key
		}
	}

	if s.records != nil {
		if err := s.records.Save(ctx, rec); err != nil {
			log.Printf("scanService.Scan: failed to save record %s: %v", rec.ID, err)
		}
	}

	return rec, nil
}

func (s *scanService) validateInput(input *ScanInput) error {
	if len(input.Image) == 0 {
		return domain.ErrEmptyImage
	}
	if s.maxBytes > 0 && int64(len(input.Image)) > s.maxBytes {
		return domain.ErrImageTooLarge
	}
	input.MimeType = normalizeMimeType(input.MimeType, input.Image)
	if !domain.AllowedMimeTypes[input.MimeType] {
		return fmt.Errorf("%w: %s", domain.ErrUnsupportedMimeType, input.MimeType)
	}
	return nil
}

func (s *scanService) imageKey(rec *domain.ScanRecord, mimeType string) string {
	ext := ".img"
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		ext = exts[0]
	}
	if mimeType == "image/jpeg" {
		ext = ".jpg"
	}
	return path.Join(s.keyPrefix, rec.CreatedAt.Format("2006/01/02"), rec.ID.String()+ext)
}

// normalizeMimeType strips parameters and falls back to content sniffing when
// the caller gave no usable type.
func normalizeMimeType(declared string, image []byte) string {
	mt := strings.ToLower(strings.TrimSpace(declared))
	if parsed, _, err := mime.ParseMediaType(mt); err == nil {
		mt = parsed
	}
	if mt == "image/jpg" {
		mt = "image/jpeg"
	}
	if (mt == "" || mt == "application/octet-stream") && len(image) > 0 {
		mt, _, _ = strings.Cut(http.DetectContentType(image), ";")
	}
	return mt
}
