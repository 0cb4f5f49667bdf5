package mongo

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"formscan/internal/domain"
)

func TestRecordDocument_RoundTrip(t *testing.T) {
	res := domain.NewExtractionResult(&domain.EquipmentRecord{
		Header: domain.EquipmentHeader{Name: "DOE, JOHN", Issues: []domain.ValidationIssue{}},
		Items: []domain.EquipmentItem{{
			ID: "item-1", LIN: "A12345", Nomenclature: "Parka",
			Quantities: domain.EquipmentQuantities{Authorized: 1, OnHand: 3},
			Issues:     []domain.ValidationIssue{"on-hand quantity 3 exceeds authorized quantity 1"},
		}},
	})
	res.Confidence = domain.ConfidenceScore{Overall: 73, Header: 60, Items: 85, Fields: map[string]int{"items[0]": 85}}
	rec, err := domain.NewScanRecord(res, "ocie.jpg", "scans/ocie.jpg")
	require.NoError(t, err)
	rec.CreatedAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	doc, err := toDocument(rec)
	require.NoError(t, err)
	assert.Equal(t, rec.ID.String(), doc.ID)
	assert.Equal(t, "EQUIPMENT_RECORD", doc.Result["formType"])

	// Through the BSON codec, as the driver would store and load it.
	raw, err := bson.Marshal(doc)
	require.NoError(t, err)
	var loaded recordDocument
	require.NoError(t, bson.Unmarshal(raw, &loaded))

	back, err := loaded.record()
	require.NoError(t, err)
	assert.Equal(t, rec.ID, back.ID)
	assert.Equal(t, rec.FormType, back.FormType)
	assert.Equal(t, rec.CreatedAt, back.CreatedAt)
	assert.Equal(t, 73, back.OverallConfidence)

	decoded, err := back.Extraction()
	require.NoError(t, err)
	eq := decoded.Form.(*domain.EquipmentRecord)
	require.Len(t, eq.Items, 1)
	assert.Equal(t, 3, eq.Items[0].Quantities.OnHand)
	assert.Equal(t, res.Issues, decoded.Issues)
	assert.Equal(t, 85, decoded.Confidence.Fields["items[0]"])

	var original, restored map[string]any
	require.NoError(t, json.Unmarshal(rec.Result, &original))
	require.NoError(t, json.Unmarshal(back.Result, &restored))
	assert.Equal(t, original, restored)
}

func TestRecordDocument_BadID(t *testing.T) {
	_, err := (&recordDocument{ID: "not-a-uuid"}).record()
	assert.Error(t, err)
}

func TestToDocument_InvalidResult(t *testing.T) {
	rec := &domain.ScanRecord{Result: json.RawMessage(`not json`)}
	_, err := toDocument(rec)
	assert.Error(t, err)
}
