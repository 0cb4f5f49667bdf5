package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ConfidenceScore is a heuristic completeness proxy, each value in [0,100].
// It is derived from the normalized record and never stored authoritatively.
type ConfidenceScore struct {
	Overall int            `json:"overall"`
	Header  int            `json:"header"`
	Items   int            `json:"items"`
	Fields  map[string]int `json:"fields"`
}

// ZeroConfidence returns the score used when extraction produced nothing.
func ZeroConfidence() ConfidenceScore {
	return ConfidenceScore{Fields: map[string]int{}}
}

// ExtractionResult is the tagged union produced by one pipeline run.
// FormType always equals Form.FormType().
type ExtractionResult struct {
	FormType   FormType          `json:"formType"`
	Form       Form              `json:"form"`
	Confidence ConfidenceScore   `json:"confidence"`
	Issues     []ValidationIssue `json:"issues"`
	ModelUsed  string            `json:"modelUsed"`
	Fallback   bool              `json:"fallback"`
}

// NewExtractionResult wraps form in a result with zero confidence.
func NewExtractionResult(form Form) *ExtractionResult {
	return &ExtractionResult{
		FormType:   form.FormType(),
		Form:       form,
		Confidence: ZeroConfidence(),
		Issues:     []ValidationIssue{},
	}
}

type extractionResultJSON struct {
	FormType   FormType          `json:"formType"`
	Form       json.RawMessage   `json:"form"`
	Confidence ConfidenceScore   `json:"confidence"`
	Issues     []ValidationIssue `json:"issues"`
	ModelUsed  string            `json:"modelUsed"`
	Fallback   bool              `json:"fallback"`
}

// UnmarshalJSON decodes the form payload according to formType.
func (r *ExtractionResult) UnmarshalJSON(data []byte) error {
	var aux extractionResultJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if !aux.FormType.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownFormType, aux.FormType)
	}
	form := NewForm(aux.FormType)
	if len(aux.Form) > 0 && string(aux.Form) != "null" {
		if err := json.Unmarshal(aux.Form, form); err != nil {
			return fmt.Errorf("decoding %s form: %w", aux.FormType, err)
		}
	}
	if aux.Confidence.Fields == nil {
		aux.Confidence.Fields = map[string]int{}
	}
	*r = ExtractionResult{
		FormType:   aux.FormType,
		Form:       form,
		Confidence: aux.Confidence,
		Issues:     aux.Issues,
		ModelUsed:  aux.ModelUsed,
		Fallback:   aux.Fallback,
	}
	return nil
}

// Clone returns a deep copy for callers that want to edit a result.
func (r *ExtractionResult) Clone() (*ExtractionResult, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	var out ExtractionResult
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ScanRecord is what the persistence collaborator stores for one scan.
type ScanRecord struct {
	ID                uuid.UUID       `db:"id" json:"id"`
	FormType          FormType        `db:"form_type" json:"form_type"`
	FileName          string          `db:"file_name" json:"file_name"`
	ImageKey          string          `db:"image_key" json:"image_key"`
	ModelUsed         string          `db:"model_used" json:"model_used"`
	OverallConfidence int             `db:"overall_confidence" json:"overall_confidence"`
	Result            json.RawMessage `db:"result" json:"result"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
}

// NewScanRecord builds a record for result. The result is serialized
// immediately so later edits to it do not leak into storage.
func NewScanRecord(result *ExtractionResult, fileName, imageKey string) (*ScanRecord, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encoding extraction result: %w", err)
	}
	return &ScanRecord{
		ID:                uuid.New(),
		FormType:          result.FormType,
		FileName:          fileName,
		ImageKey:          imageKey,
		ModelUsed:         result.ModelUsed,
		OverallConfidence: result.Confidence.Overall,
		Result:            data,
		CreatedAt:         time.Now().UTC(),
	}, nil
}

// Extraction decodes the stored result.
func (s *ScanRecord) Extraction() (*ExtractionResult, error) {
	var r ExtractionResult
	if err := json.Unmarshal(s.Result, &r); err != nil {
		return nil, fmt.Errorf("decoding record %s: %w", s.ID, err)
	}
	return &r, nil
}
