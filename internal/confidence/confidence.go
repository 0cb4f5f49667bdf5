// Package confidence computes heuristic completeness scores for normalized
// forms. A score says how much of the expected structure was filled in with
// plausible values. It is not a statistical accuracy estimate and must not be
// treated as ground truth.
package confidence

import (
	"fmt"
	"math"
	"strings"

	"formscan/internal/domain"
)

// criterion is one weighted field check. Critical criteria carry most of the
// weight; bonus criteria add a small amount when satisfied.
type criterion[T any] struct {
	name     string
	weight   int
	critical bool
	ok       func(*T) bool
}

func critical[T any](name string, weight int, ok func(*T) bool) criterion[T] {
	return criterion[T]{name: name, weight: weight, critical: true, ok: ok}
}

func bonus[T any](name string, weight int, ok func(*T) bool) criterion[T] {
	return criterion[T]{name: name, weight: weight, ok: ok}
}

func minLen(s string, n int) bool {
	return len(strings.TrimSpace(s)) >= n
}

func nonEmpty(s string) bool {
	return strings.TrimSpace(s) != ""
}

var handReceiptCriteria = []criterion[domain.HandReceiptItem]{
	critical("stockNumber", 35, func(i *domain.HandReceiptItem) bool { return minLen(i.StockNumber, 4) }),
	critical("itemDescription", 35, func(i *domain.HandReceiptItem) bool { return minLen(i.ItemDescription, 3) }),
	critical("quantity", 20, func(i *domain.HandReceiptItem) bool { return i.QuantityAuth > 0 || i.Quantities.Any() }),
	bonus("unitOfIssue", 5, func(i *domain.HandReceiptItem) bool { return nonEmpty(i.UnitOfIssue) }),
	bonus("codeIdentifier", 5, func(i *domain.HandReceiptItem) bool { return nonEmpty(i.CodeIdentifier) }),
}

var requestTurnInCriteria = []criterion[domain.RequestTurnInItem]{
	critical("stockNumber", 30, func(i *domain.RequestTurnInItem) bool { return minLen(i.StockNumber, 4) }),
	critical("nomenclature", 30, func(i *domain.RequestTurnInItem) bool { return minLen(i.Nomenclature, 3) }),
	critical("quantity", 20, func(i *domain.RequestTurnInItem) bool { return i.Quantity > 0 }),
	bonus("unitOfIssue", 5, func(i *domain.RequestTurnInItem) bool { return nonEmpty(i.UnitOfIssue) }),
	bonus("conditionCode", 5, func(i *domain.RequestTurnInItem) bool { return nonEmpty(i.ConditionCode) }),
	bonus("supplyAction", 5, func(i *domain.RequestTurnInItem) bool { return nonEmpty(i.SupplyAction) }),
	bonus("unitPrice", 5, func(i *domain.RequestTurnInItem) bool { return i.UnitPrice > 0 }),
}

// The quantity consistency bonus is the only place an on-hand over
// authorized mismatch costs confidence. The quantity criterion only asks
// whether numbers are present.
var equipmentCriteria = []criterion[domain.EquipmentItem]{
	critical("lin", 25, func(i *domain.EquipmentItem) bool { return minLen(i.LIN, 4) }),
	critical("nomenclature", 30, func(i *domain.EquipmentItem) bool { return minLen(i.Nomenclature, 3) }),
	critical("quantity", 25, func(i *domain.EquipmentItem) bool {
		return i.Quantities.Authorized > 0 || i.Quantities.OnHand > 0
	}),
	bonus("size", 5, func(i *domain.EquipmentItem) bool { return nonEmpty(i.Size) }),
	bonus("stockNumber", 5, func(i *domain.EquipmentItem) bool {
		return nonEmpty(i.StockNumber) || nonEmpty(i.PartialStockNumber)
	}),
	bonus("quantityConsistency", 10, func(i *domain.EquipmentItem) bool {
		return i.Quantities.OnHand <= i.Quantities.Authorized
	}),
}

var genericCriteria = []criterion[domain.GenericItem]{
	critical("description", 40, func(i *domain.GenericItem) bool { return minLen(i.Description, 3) }),
	critical("quantity", 20, func(i *domain.GenericItem) bool { return i.Quantity > 0 }),
	bonus("stockNumber", 10, func(i *domain.GenericItem) bool { return nonEmpty(i.StockNumber) }),
	bonus("notes", 5, func(i *domain.GenericItem) bool { return nonEmpty(i.Notes) }),
}

// Breakdown splits an item score into its critical and bonus parts, both
// expressed in points out of the total weight.
type Breakdown struct {
	Critical int
	Bonus    int
	Total    int
}

// Score returns the breakdown as a 0-100 score.
func (b Breakdown) Score() int {
	if b.Total <= 0 {
		return 0
	}
	s := int(math.Round(float64(b.Critical+b.Bonus) / float64(b.Total) * 100))
	if s > 100 {
		return 100
	}
	return s
}

func evaluate[T any](item *T, criteria []criterion[T]) Breakdown {
	var b Breakdown
	for _, c := range criteria {
		b.Total += c.weight
		if !c.ok(item) {
			continue
		}
		if c.critical {
			b.Critical += c.weight
		} else {
			b.Bonus += c.weight
		}
	}
	return b
}

// ItemBreakdown scores one line item of any form type. Values and pointers
// are both accepted; anything else scores zero.
func ItemBreakdown(item any) Breakdown {
	switch i := item.(type) {
	case domain.HandReceiptItem:
		return evaluate(&i, handReceiptCriteria)
	case *domain.HandReceiptItem:
		if i != nil {
			return evaluate(i, handReceiptCriteria)
		}
	case domain.RequestTurnInItem:
		return evaluate(&i, requestTurnInCriteria)
	case *domain.RequestTurnInItem:
		if i != nil {
			return evaluate(i, requestTurnInCriteria)
		}
	case domain.EquipmentItem:
		return evaluate(&i, equipmentCriteria)
	case *domain.EquipmentItem:
		if i != nil {
			return evaluate(i, equipmentCriteria)
		}
	case domain.GenericItem:
		return evaluate(&i, genericCriteria)
	case *domain.GenericItem:
		if i != nil {
			return evaluate(i, genericCriteria)
		}
	}
	return Breakdown{}
}

// ScoreItem returns the 0-100 score of one line item.
func ScoreItem(item any) int {
	return ItemBreakdown(item).Score()
}

type headerField struct {
	name  string
	value string
}

func headerFields(form domain.Form) []headerField {
	switch f := form.(type) {
	case *domain.HandReceipt:
		h := f.Header
		return []headerField{
			{"from", h.From}, {"to", h.To}, {"handReceiptNumber", h.HandReceiptNumber},
			{"endItemStockNumber", h.EndItemStockNumber}, {"endItemDescription", h.EndItemDescription},
			{"publicationNumber", h.PublicationNumber}, {"publicationDate", h.PublicationDate},
			{"page", h.Page}, {"totalPages", h.TotalPages},
		}
	case *domain.RequestTurnIn:
		h := f.Header
		return []headerField{
			{"from", h.From}, {"to", h.To}, {"documentNumber", h.DocumentNumber},
			{"requestType", h.RequestType}, {"date", h.Date}, {"priority", h.Priority},
		}
	case *domain.EquipmentRecord:
		h := f.Header
		return []headerField{
			{"name", h.Name}, {"rank", h.Rank}, {"unit", h.Unit},
			{"installation", h.Installation}, {"date", h.Date},
		}
	case *domain.GenericForm:
		h := f.Header
		return []headerField{
			{"title", h.Title}, {"formNumber", h.FormNumber}, {"date", h.Date},
			{"from", h.From}, {"to", h.To},
		}
	}
	return nil
}

// ScoreHeader returns the share of non-empty header fields scaled to 0-100
// and a per-field map keyed "header.<field>" holding 100 or 0.
func ScoreHeader(form domain.Form) (int, map[string]int) {
	fields := map[string]int{}
	hf := headerFields(form)
	if len(hf) == 0 {
		return 0, fields
	}
	filled := 0
	for _, f := range hf {
		v := 0
		if nonEmpty(f.value) {
			v = 100
			filled++
		}
		fields["header."+f.name] = v
	}
	return int(math.Round(float64(filled) / float64(len(hf)) * 100)), fields
}

func itemScores(form domain.Form) []int {
	var out []int
	switch f := form.(type) {
	case *domain.HandReceipt:
		for i := range f.Items {
			out = append(out, ScoreItem(&f.Items[i]))
		}
	case *domain.RequestTurnIn:
		for i := range f.Items {
			out = append(out, ScoreItem(&f.Items[i]))
		}
	case *domain.EquipmentRecord:
		for i := range f.Items {
			out = append(out, ScoreItem(&f.Items[i]))
		}
	case *domain.GenericForm:
		for i := range f.Items {
			out = append(out, ScoreItem(&f.Items[i]))
		}
	}
	return out
}

// Score computes the full confidence for result. A nil result or form
// yields the zero score.
func Score(result *domain.ExtractionResult) domain.ConfidenceScore {
	if result == nil || result.Form == nil {
		return domain.ZeroConfidence()
	}

	header, fields := ScoreHeader(result.Form)

	items := 0
	scores := itemScores(result.Form)
	if len(scores) > 0 {
		sum := 0
		for i, s := range scores {
			sum += s
			fields[fmt.Sprintf("items[%d]", i)] = s
		}
		items = int(math.Round(float64(sum) / float64(len(scores))))
	}

	return domain.ConfidenceScore{
		Overall: Overall(header, items),
		Header:  header,
		Items:   items,
		Fields:  fields,
	}
}

// Overall combines section scores: round((header + items) / 2).
func Overall(header, items int) int {
	return int(math.Round(float64(header+items) / 2))
}

// Apply recomputes and stores the confidence on result.
func Apply(result *domain.ExtractionResult) {
	if result == nil {
		return
	}
	result.Confidence = Score(result)
}
