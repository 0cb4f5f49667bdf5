// Package export flattens finished scan records into rows for CSV and
// XLSX downloads.
package export

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"formscan/internal/domain"
)

// Columns is the header row shared by every export format.
var Columns = []string{
	"Record ID",
	"Scanned At",
	"Form Type",
	"File Name",
	"Model",
	"Overall Confidence",
	"Header Confidence",
	"Items Confidence",
	"Reference",
	"Line",
	"Stock Number",
	"Identifier",
	"Description",
	"Size",
	"Unit of Issue",
	"Quantity",
	"Quantity Detail",
	"Condition Code",
	"Unit Price",
	"Total Price",
	"Issues",
}

const (
	colLine = iota + 9
	colStockNumber
	colIdentifier
	colDescription
	colSize
	colUnitOfIssue
	colQuantity
	colQuantityDetail
	colConditionCode
	colUnitPrice
	colTotalPrice
	colIssues
)

// Flatten converts records to rows, one per line item. A record with no
// items, or whose stored result cannot be decoded, yields a single row with
// only the record columns filled.
func Flatten(records []domain.ScanRecord) [][]string {
	var rows [][]string
	for i := range records {
		rows = append(rows, recordRows(&records[i])...)
	}
	return rows
}

func recordRows(rec *domain.ScanRecord) [][]string {
	base := make([]string, len(Columns))
	base[0] = rec.ID.String()
	base[1] = rec.CreatedAt.Format(time.RFC3339)
	base[2] = string(rec.FormType)
	base[3] = rec.FileName
	base[4] = rec.ModelUsed
	base[5] = strconv.Itoa(rec.OverallConfidence)

	res, err := rec.Extraction()
	if err != nil || res.Form == nil {
		return [][]string{base}
	}
	base[6] = strconv.Itoa(res.Confidence.Header)
	base[7] = strconv.Itoa(res.Confidence.Items)
	base[8] = reference(res.Form)

	items := itemCells(res.Form)
	if len(items) == 0 {
		base[colIssues] = joinIssues(res.Issues)
		return [][]string{base}
	}
	rows := make([][]string, 0, len(items))
	for n, cells := range items {
		row := append([]string(nil), base...)
		row[colLine] = strconv.Itoa(n + 1)
		for col, v := range cells {
			row[col] = v
		}
		if n == 0 {
			// document-level issues lead the first row
			row[colIssues] = strings.Join(nonEmpty(joinIssues(res.Issues), row[colIssues]), "; ")
		}
		rows = append(rows, row)
	}
	return rows
}

// reference picks the header value that best identifies the document.
func reference(form domain.Form) string {
	switch f := form.(type) {
	case *domain.HandReceipt:
		return firstNonEmpty(f.Header.HandReceiptNumber, f.Header.To)
	case *domain.RequestTurnIn:
		return firstNonEmpty(f.Header.DocumentNumber, f.Header.From)
	case *domain.EquipmentRecord:
		return strings.TrimSpace(strings.Join(nonEmpty(f.Header.Rank, f.Header.Name), " "))
	case *domain.GenericForm:
		return firstNonEmpty(f.Header.FormNumber, f.Header.Title)
	}
	return ""
}

func itemCells(form domain.Form) []map[int]string {
	var out []map[int]string
	switch f := form.(type) {
	case *domain.HandReceipt:
		for _, it := range f.Items {
			out = append(out, map[int]string{
				colStockNumber:    it.StockNumber,
				colIdentifier:     it.CodeIdentifier,
				colDescription:    it.ItemDescription,
				colUnitOfIssue:    it.UnitOfIssue,
				colQuantity:       strconv.Itoa(it.QuantityAuth),
				colQuantityDetail: handReceiptDetail(it.Quantities),
				colIssues:         joinIssues(it.Issues),
			})
		}
	case *domain.RequestTurnIn:
		for _, it := range f.Items {
			out = append(out, map[int]string{
				colStockNumber:    it.StockNumber,
				colDescription:    it.Nomenclature,
				colUnitOfIssue:    it.UnitOfIssue,
				colQuantity:       strconv.Itoa(it.Quantity),
				colQuantityDetail: it.SupplyAction,
				colConditionCode:  it.ConditionCode,
				colUnitPrice:      formatMoney(it.UnitPrice),
				colTotalPrice:     formatMoney(it.TotalPrice),
				colIssues:         joinIssues(it.Issues),
			})
		}
	case *domain.EquipmentRecord:
		for _, it := range f.Items {
			out = append(out, map[int]string{
				colStockNumber:    firstNonEmpty(it.StockNumber, it.PartialStockNumber),
				colIdentifier:     it.LIN,
				colDescription:    it.Nomenclature,
				colSize:           it.Size,
				colQuantity:       strconv.Itoa(it.Quantities.OnHand),
				colQuantityDetail: equipmentDetail(it),
				colIssues:         joinIssues(it.Issues),
			})
		}
	case *domain.GenericForm:
		for _, it := range f.Items {
			out = append(out, map[int]string{
				colStockNumber:    it.StockNumber,
				colDescription:    it.Description,
				colQuantity:       strconv.Itoa(it.Quantity),
				colQuantityDetail: it.Notes,
				colIssues:         joinIssues(it.Issues),
			})
		}
	}
	return out
}

func handReceiptDetail(q domain.HandReceiptQuantities) string {
	var parts []string
	cols := q.Columns()
	for _, c := range []string{"A", "B", "C", "D", "E", "F"} {
		if cols[c] != 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", c, cols[c]))
		}
	}
	return strings.Join(parts, " ")
}

func equipmentDetail(it domain.EquipmentItem) string {
	s := fmt.Sprintf("auth=%d onHand=%d dueOut=%d", it.Quantities.Authorized, it.Quantities.OnHand, it.Quantities.DueOut)
	switch {
	case it.TransferIn && it.TransferOut:
		s += " transfer=in/out"
	case it.TransferIn:
		s += " transfer=in"
	case it.TransferOut:
		s += " transfer=out"
	}
	return s
}

func joinIssues(issues []domain.ValidationIssue) string {
	parts := make([]string, 0, len(issues))
	for _, is := range issues {
		parts = append(parts, string(is))
	}
	return strings.Join(parts, "; ")
}

func formatMoney(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func nonEmpty(vals ...string) []string {
	var out []string
	for _, v := range vals {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename replaces anything but alphanumerics, hyphens and
// underscores with "_" and truncates to 100 characters.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// BuildFilename returns the download name for an export: {prefix}_{YYYY-MM-DD}.{ext}.
func BuildFilename(prefix string, format domain.ExportFormat, now time.Time) string {
	return fmt.Sprintf("%s_%s.%s", SanitizeFilename(prefix), now.Format("2006-01-02"), format)
}
