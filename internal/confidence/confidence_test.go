package confidence_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formscan/internal/confidence"
	"formscan/internal/domain"
	"formscan/internal/normalizer"
)

func TestItemBreakdown_EquipmentMismatchCostsOnlyBonus(t *testing.T) {
	mismatch := domain.EquipmentItem{Quantities: domain.EquipmentQuantities{Authorized: 1, OnHand: 3, DueOut: 0}}
	consistent := domain.EquipmentItem{Quantities: domain.EquipmentQuantities{Authorized: 3, OnHand: 3, DueOut: 0}}

	bad := confidence.ItemBreakdown(mismatch)
	good := confidence.ItemBreakdown(consistent)

	assert.Equal(t, good.Critical, bad.Critical)
	assert.Equal(t, 25, bad.Critical)
	assert.Less(t, bad.Bonus, good.Bonus)
	assert.Equal(t, good.Total, bad.Total)
	assert.Less(t, bad.Score(), good.Score())
}

func TestScoreItem_Equipment(t *testing.T) {
	full := &domain.EquipmentItem{
		LIN:          "A12345",
		Size:         "M-R",
		Nomenclature: "Parka, Wet Weather",
		StockNumber:  "8415-01-228-1306",
		Quantities:   domain.EquipmentQuantities{Authorized: 1, OnHand: 1},
	}
	assert.Equal(t, 100, confidence.ScoreItem(full))

	// empty item: only the consistency bonus (0 <= 0) is earned
	assert.Equal(t, 10, confidence.ScoreItem(domain.EquipmentItem{}))
}

func TestScoreItem_CriticalFieldNeedsMinimalLength(t *testing.T) {
	short := domain.HandReceiptItem{StockNumber: "10", ItemDescription: "ok"}
	long := domain.HandReceiptItem{StockNumber: "1005-01-231-0001", ItemDescription: "Rifle"}

	assert.Equal(t, 0, confidence.ScoreItem(short))
	assert.Equal(t, 70, confidence.ScoreItem(long))
}

func TestScoreItem_OtherForms(t *testing.T) {
	rt := domain.RequestTurnInItem{
		StockNumber:   "5855-01-234-5678",
		Nomenclature:  "Night vision goggle",
		Quantity:      2,
		UnitOfIssue:   "EA",
		ConditionCode: "A",
		SupplyAction:  "Turn-in",
		UnitPrice:     3100.5,
	}
	assert.Equal(t, 100, confidence.ScoreItem(rt))

	gen := domain.GenericItem{Description: "Canteen", Quantity: 3}
	assert.Equal(t, 80, confidence.ScoreItem(gen))

	assert.Equal(t, 0, confidence.ScoreItem("not an item"))
	assert.Equal(t, 0, confidence.ScoreItem((*domain.GenericItem)(nil)))
}

func TestScoreHeader(t *testing.T) {
	form := &domain.EquipmentRecord{Header: domain.EquipmentHeader{Name: "DOE, JOHN", Rank: "SPC"}}

	score, fields := confidence.ScoreHeader(form)

	assert.Equal(t, 40, score)
	assert.Equal(t, map[string]int{
		"header.name":         100,
		"header.rank":         100,
		"header.unit":         0,
		"header.installation": 0,
		"header.date":         0,
	}, fields)

	score, fields = confidence.ScoreHeader(nil)
	assert.Equal(t, 0, score)
	assert.NotNil(t, fields)
}

func TestScore_EmptyResultsAreZero(t *testing.T) {
	for _, ft := range domain.FormTypes() {
		res := normalizer.Normalize(map[string]any{}, ft)
		c := confidence.Score(res)

		assert.Equal(t, 0, c.Header, ft)
		assert.Equal(t, 0, c.Items, ft)
		assert.Equal(t, 0, c.Overall, ft)
		assert.NotNil(t, c.Fields)
	}

	assert.Equal(t, domain.ZeroConfidence(), confidence.Score(nil))
}

func TestScore_OverallIsRoundedMeanOfSections(t *testing.T) {
	form := &domain.EquipmentRecord{
		Header: domain.EquipmentHeader{Name: "DOE, JOHN", Rank: "SPC", Unit: "A Co"},
		Items: []domain.EquipmentItem{
			{LIN: "A12345", Nomenclature: "Parka", Quantities: domain.EquipmentQuantities{Authorized: 1, OnHand: 1}},
			{Nomenclature: "Helmet", Quantities: domain.EquipmentQuantities{Authorized: 1, OnHand: 3}},
		},
	}
	res := domain.NewExtractionResult(form)

	confidence.Apply(res)
	c := res.Confidence

	assert.Equal(t, 60, c.Header)
	assert.Equal(t, 90, c.Fields["items[0]"])
	assert.Equal(t, 55, c.Fields["items[1]"])
	assert.Equal(t, 73, c.Items)
	assert.Equal(t, 67, c.Overall)
	assert.Equal(t, int(math.Round(float64(c.Header+c.Items)/2)), c.Overall)
}

func TestScore_Bounds(t *testing.T) {
	objs := []map[string]any{
		{},
		{"to": "SGT Smith", "items": []any{map[string]any{"stockNumber": "1005-01-231-0001", "quantities": map[string]any{"A": "2"}}}},
		{"header": map[string]any{"name": "x", "rank": "y", "unit": "z", "installation": "w", "date": "2024-01-01"},
			"items": []any{map[string]any{"lin": "A12345", "nomenclature": "Parka", "size": "M", "nsn": "8415012281306", "authorized": 1, "onHand": 1}}},
	}
	for _, obj := range objs {
		for _, ft := range domain.FormTypes() {
			c := confidence.Score(normalizer.Normalize(obj, ft))
			require.GreaterOrEqual(t, c.Overall, 0)
			require.LessOrEqual(t, c.Overall, 100)
			require.Equal(t, confidence.Overall(c.Header, c.Items), c.Overall)
			for k, v := range c.Fields {
				assert.GreaterOrEqual(t, v, 0, k)
				assert.LessOrEqual(t, v, 100, k)
			}
		}
	}
}

func TestOverall(t *testing.T) {
	assert.Equal(t, 0, confidence.Overall(0, 0))
	assert.Equal(t, 50, confidence.Overall(100, 0))
	assert.Equal(t, 51, confidence.Overall(51, 50))
	assert.Equal(t, 100, confidence.Overall(100, 100))
}
