package normalizer

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"formscan/internal/domain"
)

// field maps one logical field to the keys it may appear under and the
// coercion that stores it.
type field[T any] struct {
	keys []string
	set  func(dst *T, v any)
}

func text[T any](set func(*T, string), keys ...string) field[T] {
	return field[T]{keys: keys, set: func(dst *T, v any) { set(dst, AsString(v)) }}
}

// code is text normalized to upper case (unit of issue, condition codes).
func code[T any](set func(*T, string), keys ...string) field[T] {
	return field[T]{keys: keys, set: func(dst *T, v any) { set(dst, strings.ToUpper(AsString(v))) }}
}

func stockNumber[T any](set func(*T, string), keys ...string) field[T] {
	return field[T]{keys: keys, set: func(dst *T, v any) { set(dst, CanonicalStockNumber(AsString(v))) }}
}

func integer[T any](set func(*T, int), keys ...string) field[T] {
	return field[T]{keys: keys, set: func(dst *T, v any) { set(dst, AsInt(v)) }}
}

func decimal[T any](set func(*T, float64), keys ...string) field[T] {
	return field[T]{keys: keys, set: func(dst *T, v any) { set(dst, AsFloat(v)) }}
}

func flag[T any](set func(*T, bool), keys ...string) field[T] {
	return field[T]{keys: keys, set: func(dst *T, v any) { set(dst, AsBool(v)) }}
}

// fill sets every field of dst from the first source that carries one of
// its keys. Earlier sources win.
func fill[T any](dst *T, fields []field[T], sources ...map[string]any) {
	for _, f := range fields {
		for _, src := range sources {
			if v, ok := lookup(src, f.keys); ok {
				f.set(dst, v)
				break
			}
		}
	}
}

// lookup returns the first non-null value under keys, trying exact matches
// before case-insensitive ones. Case-insensitive candidates are tried in
// sorted key order so the same object always yields the same value.
func lookup(obj map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := obj[k]; ok && v != nil {
			return v, true
		}
	}
	var sorted []string
	for _, k := range keys {
		if sorted == nil {
			sorted = make([]string, 0, len(obj))
			for key := range obj {
				sorted = append(sorted, key)
			}
			sort.Strings(sorted)
		}
		for _, key := range sorted {
			if v := obj[key]; v != nil && strings.EqualFold(key, k) {
				return v, true
			}
		}
	}
	return nil, false
}

var bareStockNumber = regexp.MustCompile(`^\d{13}$`)

// CanonicalStockNumber rewrites a 13-digit stock number written without
// hyphens into the 4-2-3-4 form. Anything else is returned unchanged.
func CanonicalStockNumber(s string) string {
	compact := strings.ReplaceAll(s, " ", "")
	if !bareStockNumber.MatchString(compact) {
		return s
	}
	return compact[0:4] + "-" + compact[4:6] + "-" + compact[6:9] + "-" + compact[9:13]
}

// MaxQuantity bounds a plausible quantity on a supply form.
const MaxQuantity = 1_000_000_000

// clampQuantity replaces a negative or implausibly large quantity with 0 and
// records why.
func clampQuantity(issues *[]domain.ValidationIssue, name string, q *int) {
	switch {
	case *q > MaxQuantity || *q < -MaxQuantity:
		*issues = append(*issues, domain.ValidationIssue(fmt.Sprintf("%s quantity out of range (limit %d) replaced with 0", name, MaxQuantity)))
		*q = 0
	case *q < 0:
		*issues = append(*issues, domain.ValidationIssue(fmt.Sprintf("negative %s quantity %d replaced with 0", name, *q)))
		*q = 0
	}
}

var (
	itemsKeys  = []string{"items", "lineItems", "line_items"}
	headerKeys = []string{"header", "headerInfo", "header_info"}
)

var handReceiptHeaderFields = []field[domain.HandReceiptHeader]{
	text(func(h *domain.HandReceiptHeader, s string) { h.From = s }, "from"),
	text(func(h *domain.HandReceiptHeader, s string) { h.To = s }, "to"),
	text(func(h *domain.HandReceiptHeader, s string) { h.HandReceiptNumber = s }, "handReceiptNumber", "hand_receipt_number", "hrNumber", "receiptNumber"),
	stockNumber(func(h *domain.HandReceiptHeader, s string) { h.EndItemStockNumber = s }, "endItemStockNumber", "end_item_stock_number", "endItemNsn"),
	text(func(h *domain.HandReceiptHeader, s string) { h.EndItemDescription = s }, "endItemDescription", "end_item_description"),
	text(func(h *domain.HandReceiptHeader, s string) { h.PublicationNumber = s }, "publicationNumber", "publication_number", "pubNumber"),
	text(func(h *domain.HandReceiptHeader, s string) { h.PublicationDate = s }, "publicationDate", "publication_date", "pubDate"),
	text(func(h *domain.HandReceiptHeader, s string) { h.Page = s }, "page"),
	text(func(h *domain.HandReceiptHeader, s string) { h.TotalPages = s }, "totalPages", "total_pages", "numberOfPages"),
}

var handReceiptItemFields = []field[domain.HandReceiptItem]{
	stockNumber(func(i *domain.HandReceiptItem, s string) { i.StockNumber = s }, "stockNumber", "stock_number", "nsn"),
	text(func(i *domain.HandReceiptItem, s string) { i.ItemDescription = s }, "itemDescription", "item_description", "description", "nomenclature"),
	code(func(i *domain.HandReceiptItem, s string) { i.CodeIdentifier = s }, "codeIdentifier", "code_identifier", "cic"),
	code(func(i *domain.HandReceiptItem, s string) { i.UnitOfIssue = s }, "unitOfIssue", "unit_of_issue", "ui"),
	integer(func(i *domain.HandReceiptItem, n int) { i.QuantityAuth = n }, "quantityAuth", "quantity_auth", "qtyAuth"),
}

var handReceiptQuantityFields = []field[domain.HandReceiptQuantities]{
	integer(func(q *domain.HandReceiptQuantities, n int) { q.A = n }, "A"),
	integer(func(q *domain.HandReceiptQuantities, n int) { q.B = n }, "B"),
	integer(func(q *domain.HandReceiptQuantities, n int) { q.C = n }, "C"),
	integer(func(q *domain.HandReceiptQuantities, n int) { q.D = n }, "D"),
	integer(func(q *domain.HandReceiptQuantities, n int) { q.E = n }, "E"),
	integer(func(q *domain.HandReceiptQuantities, n int) { q.F = n }, "F"),
}

var requestTurnInHeaderFields = []field[domain.RequestTurnInHeader]{
	text(func(h *domain.RequestTurnInHeader, s string) { h.From = s }, "from"),
	text(func(h *domain.RequestTurnInHeader, s string) { h.To = s }, "to"),
	code(func(h *domain.RequestTurnInHeader, s string) { h.DocumentNumber = s }, "documentNumber", "document_number", "docNumber"),
	text(func(h *domain.RequestTurnInHeader, s string) { h.RequestType = s }, "requestType", "request_type"),
	text(func(h *domain.RequestTurnInHeader, s string) { h.Date = s }, "date"),
	text(func(h *domain.RequestTurnInHeader, s string) { h.Priority = s }, "priority"),
}

var requestTurnInItemFields = []field[domain.RequestTurnInItem]{
	stockNumber(func(i *domain.RequestTurnInItem, s string) { i.StockNumber = s }, "stockNumber", "stock_number", "nsn"),
	text(func(i *domain.RequestTurnInItem, s string) { i.Nomenclature = s }, "nomenclature", "description", "itemDescription"),
	code(func(i *domain.RequestTurnInItem, s string) { i.UnitOfIssue = s }, "unitOfIssue", "unit_of_issue", "ui"),
	integer(func(i *domain.RequestTurnInItem, n int) { i.Quantity = n }, "quantity", "qty"),
	code(func(i *domain.RequestTurnInItem, s string) { i.ConditionCode = s }, "conditionCode", "condition_code", "condition"),
	text(func(i *domain.RequestTurnInItem, s string) { i.SupplyAction = s }, "supplyAction", "supply_action", "action"),
	decimal(func(i *domain.RequestTurnInItem, f float64) { i.UnitPrice = f }, "unitPrice", "unit_price"),
	decimal(func(i *domain.RequestTurnInItem, f float64) { i.TotalPrice = f }, "totalPrice", "total_price"),
}

var equipmentHeaderFields = []field[domain.EquipmentHeader]{
	text(func(h *domain.EquipmentHeader, s string) { h.Name = s }, "name", "soldierName"),
	text(func(h *domain.EquipmentHeader, s string) { h.Rank = s }, "rank", "grade"),
	text(func(h *domain.EquipmentHeader, s string) { h.Unit = s }, "unit", "organization"),
	text(func(h *domain.EquipmentHeader, s string) { h.Installation = s }, "installation"),
	text(func(h *domain.EquipmentHeader, s string) { h.Date = s }, "date"),
}

var equipmentItemFields = []field[domain.EquipmentItem]{
	code(func(i *domain.EquipmentItem, s string) { i.LIN = s }, "lin"),
	text(func(i *domain.EquipmentItem, s string) { i.Size = s }, "size"),
	text(func(i *domain.EquipmentItem, s string) { i.Nomenclature = s }, "nomenclature", "description", "itemDescription"),
	stockNumber(func(i *domain.EquipmentItem, s string) { i.StockNumber = s }, "stockNumber", "stock_number", "nsn"),
	text(func(i *domain.EquipmentItem, s string) { i.PartialStockNumber = s }, "partialStockNumber", "partial_stock_number", "partialNsn"),
	flag(func(i *domain.EquipmentItem, b bool) { i.TransferIn = b }, "transferIn", "transfer_in"),
	flag(func(i *domain.EquipmentItem, b bool) { i.TransferOut = b }, "transferOut", "transfer_out"),
}

var equipmentQuantityFields = []field[domain.EquipmentQuantities]{
	integer(func(q *domain.EquipmentQuantities, n int) { q.Authorized = n }, "authorized", "auth", "quantityAuthorized"),
	integer(func(q *domain.EquipmentQuantities, n int) { q.OnHand = n }, "onHand", "on_hand"),
	integer(func(q *domain.EquipmentQuantities, n int) { q.DueOut = n }, "dueOut", "due_out"),
}

var genericHeaderFields = []field[domain.GenericHeader]{
	text(func(h *domain.GenericHeader, s string) { h.Title = s }, "title"),
	text(func(h *domain.GenericHeader, s string) { h.FormNumber = s }, "formNumber", "form_number"),
	text(func(h *domain.GenericHeader, s string) { h.Date = s }, "date"),
	text(func(h *domain.GenericHeader, s string) { h.From = s }, "from"),
	text(func(h *domain.GenericHeader, s string) { h.To = s }, "to"),
}

var genericItemFields = []field[domain.GenericItem]{
	stockNumber(func(i *domain.GenericItem, s string) { i.StockNumber = s }, "stockNumber", "stock_number", "nsn"),
	text(func(i *domain.GenericItem, s string) { i.Description = s }, "description", "nomenclature", "itemDescription"),
	integer(func(i *domain.GenericItem, n int) { i.Quantity = n }, "quantity", "qty"),
	text(func(i *domain.GenericItem, s string) { i.Notes = s }, "notes", "remarks"),
}
