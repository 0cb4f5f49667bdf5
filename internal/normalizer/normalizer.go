// Package normalizer turns loosely typed model output into the strict
// per-form records. It never fails: every field is coerced independently and
// falls back to its zero value.
package normalizer

import (
	"github.com/google/uuid"

	"formscan/internal/domain"
)

// Normalizer converts parsed objects into extraction results.
type Normalizer struct {
	newID func() string
}

// New creates a Normalizer that assigns random UUIDs to equipment items.
func New() *Normalizer {
	return &Normalizer{newID: uuid.NewString}
}

// NewWithIDFunc creates a Normalizer with a custom item ID source (for testing).
func NewWithIDFunc(newID func() string) *Normalizer {
	return &Normalizer{newID: newID}
}

// Normalize maps obj onto the record for ft. A nil obj is treated as empty.
// The returned result has zero confidence and no document-level issues.
func (n *Normalizer) Normalize(obj map[string]any, ft domain.FormType) *domain.ExtractionResult {
	if obj == nil {
		obj = map[string]any{}
	}

	var form domain.Form
	switch ft {
	case domain.FormTypeHandReceipt:
		form = n.handReceipt(obj)
	case domain.FormTypeRequestTurnIn:
		form = n.requestTurnIn(obj)
	case domain.FormTypeEquipmentRecord:
		form = n.equipmentRecord(obj)
	default:
		form = n.generic(obj)
	}
	return domain.NewExtractionResult(form)
}

// Normalize uses a default Normalizer.
func Normalize(obj map[string]any, ft domain.FormType) *domain.ExtractionResult {
	return New().Normalize(obj, ft)
}

// headerSource returns the nested header section, if any. It is consulted
// before the top-level object so sectioned output wins over flat fields.
func headerSource(obj map[string]any) map[string]any {
	if v, ok := lookup(obj, headerKeys); ok {
		return AsObject(v)
	}
	return map[string]any{}
}

func itemsOf(obj map[string]any) any {
	v, _ := lookup(obj, itemsKeys)
	return v
}

func (n *Normalizer) handReceipt(obj map[string]any) *domain.HandReceipt {
	f := &domain.HandReceipt{}
	f.Header.Issues = []domain.ValidationIssue{}
	fill(&f.Header, handReceiptHeaderFields, headerSource(obj), obj)

	f.Items = AsList(itemsOf(obj), func(o map[string]any) domain.HandReceiptItem {
		item := domain.HandReceiptItem{Issues: []domain.ValidationIssue{}}
		fill(&item, handReceiptItemFields, o)
		qv, _ := lookup(o, []string{"quantities", "qty"})
		fill(&item.Quantities, handReceiptQuantityFields, AsObject(qv))

		clampQuantity(&item.Issues, "authorized", &item.QuantityAuth)
		for _, col := range []struct {
			name string
			q    *int
		}{
			{"column A", &item.Quantities.A}, {"column B", &item.Quantities.B}, {"column C", &item.Quantities.C},
			{"column D", &item.Quantities.D}, {"column E", &item.Quantities.E}, {"column F", &item.Quantities.F},
		} {
			clampQuantity(&item.Issues, col.name, col.q)
		}
		return item
	})
	return f
}

func (n *Normalizer) requestTurnIn(obj map[string]any) *domain.RequestTurnIn {
	f := &domain.RequestTurnIn{}
	f.Header.Issues = []domain.ValidationIssue{}
	fill(&f.Header, requestTurnInHeaderFields, headerSource(obj), obj)

	f.Items = AsList(itemsOf(obj), func(o map[string]any) domain.RequestTurnInItem {
		item := domain.RequestTurnInItem{Issues: []domain.ValidationIssue{}}
		fill(&item, requestTurnInItemFields, o)
		clampQuantity(&item.Issues, "requested", &item.Quantity)
		return item
	})
	return f
}

func (n *Normalizer) equipmentRecord(obj map[string]any) *domain.EquipmentRecord {
	f := &domain.EquipmentRecord{}
	f.Header.Issues = []domain.ValidationIssue{}
	fill(&f.Header, equipmentHeaderFields, headerSource(obj), obj)

	f.Items = AsList(itemsOf(obj), func(o map[string]any) domain.EquipmentItem {
		item := domain.EquipmentItem{ID: n.newID(), Issues: []domain.ValidationIssue{}}
		fill(&item, equipmentItemFields, o)
		qv, _ := lookup(o, []string{"quantities", "qty"})
		fill(&item.Quantities, equipmentQuantityFields, AsObject(qv), o)

		clampQuantity(&item.Issues, "authorized", &item.Quantities.Authorized)
		clampQuantity(&item.Issues, "on-hand", &item.Quantities.OnHand)
		clampQuantity(&item.Issues, "due-out", &item.Quantities.DueOut)
		return item
	})
	return f
}

func (n *Normalizer) generic(obj map[string]any) *domain.GenericForm {
	f := &domain.GenericForm{}
	f.Header.Issues = []domain.ValidationIssue{}
	fill(&f.Header, genericHeaderFields, headerSource(obj), obj)

	f.Items = AsList(itemsOf(obj), func(o map[string]any) domain.GenericItem {
		item := domain.GenericItem{Issues: []domain.ValidationIssue{}}
		fill(&item, genericItemFields, o)
		clampQuantity(&item.Issues, "item", &item.Quantity)
		return item
	})

	if v, ok := lookup(obj, []string{"rawText", "raw_text", "text"}); ok {
		f.RawText = AsString(v)
	}
	return f
}
