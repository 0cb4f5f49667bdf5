package validator

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"formscan/internal/domain"
)

var (
	stockNumberPattern    = regexp.MustCompile(`^\d{4}-\d{2}-\d{3}-\d{4}$`)
	partialStockPattern   = regexp.MustCompile(`^\d{4}$`)
	linPattern            = regexp.MustCompile(`^[A-Z0-9]{6}$`)
	unitOfIssuePattern    = regexp.MustCompile(`^[A-Z]{2}$`)
	documentNumberPattern = regexp.MustCompile(`^[A-Z0-9]{6}-?\d{4}-?[A-Z0-9]{4}$`)
	priorityPattern       = regexp.MustCompile(`^(0[1-9]|1[0-5])$`)

	sizeWord       = `(XXS|XS|S|M|L|XL|XXL|XXXL|2XL|3XL|4XL|X-?SMALL|SMALL|MED|MEDIUM|LARGE|X-?LARGE|XX-?LARGE|XXX-?LARGE)`
	sizeLength     = `(XS|S|R|L|XL|XX-?SHORT|X-?SHORT|SHORT|REG|REGULAR|LONG|X-?LONG|XX-?LONG)`
	// M-R, MED/REG and the compact MR, XLR printed on OCIE records
	sizeVocabulary = regexp.MustCompile(`^` + sizeWord + `([-/ ]?` + sizeLength + `)?$|^(ONE SIZE|OS|N/A|NA)$`)
	// 9, 10.5, 10 1/2, 9W, 7 3/8, 32X30
	sizeNumeric = regexp.MustCompile(`^\d{1,3}(\.\d+)?(\s+\d/\d{1,2}|-\d/\d{1,2})?\s*(N|R|W|XW|XN)?$|^\d{1,3}X\d{1,3}$`)
)

// Supply condition codes used on turn-in documents.
var conditionCodes = map[string]bool{
	"A": true, "B": true, "C": true, "D": true, "E": true, "F": true, "G": true,
	"H": true, "J": true, "K": true, "L": true, "M": true, "N": true, "P": true,
	"Q": true, "R": true, "S": true, "T": true, "V": true, "X": true, "Z": true,
}

func issue(format string, args ...any) domain.ValidationIssue {
	return domain.ValidationIssue(fmt.Sprintf(format, args...))
}

// regexCheck skips empty values; absence is scored, not flagged.
func regexCheck(label, value, expected string, re *regexp.Regexp) []domain.ValidationIssue {
	if value == "" || re.MatchString(value) {
		return nil
	}
	return []domain.ValidationIssue{issue("invalid %s format: %q (expected %s)", label, value, expected)}
}

func stockNumberCheck(label, value string) []domain.ValidationIssue {
	return regexCheck(label, value, "NNNN-NN-NNN-NNNN", stockNumberPattern)
}

func negativeCheck(label string, q int) []domain.ValidationIssue {
	if q >= 0 {
		return nil
	}
	return []domain.ValidationIssue{issue("negative %s quantity: %d", label, q)}
}

func sizeCheck(value string) []domain.ValidationIssue {
	v := strings.ToUpper(strings.TrimSpace(value))
	if v == "" || sizeVocabulary.MatchString(v) || sizeNumeric.MatchString(v) {
		return nil
	}
	return []domain.ValidationIssue{issue("unusual size value: %q", value)}
}

func dateCheck(label, value string) []domain.ValidationIssue {
	if value == "" {
		return nil
	}
	if _, err := parseDate(value); err != nil {
		return []domain.ValidationIssue{issue("unrecognized %s: %q", label, value)}
	}
	return nil
}

// parseDate tries the date styles seen on supply forms.
func parseDate(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02",
		"20060102",
		"01/02/2006",
		"1/2/2006",
		"01/02/06",
		"02 Jan 2006",
		"2 Jan 2006",
		"02 January 2006",
		"02Jan2006",
		"02Jan06",
		"Jan 02, 2006",
		"January 2, 2006",
		"2006/01/02",
	}
	v := strings.TrimSpace(s)
	for _, f := range formats {
		if t, err := time.Parse(f, v); err == nil {
			return t, nil
		}
		// military style dates are often written fully upper case
		if t, err := time.Parse(f, titleMonth(v)); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date: %s", s)
}

var monthToken = regexp.MustCompile(`[A-Za-z]{3,}`)

func titleMonth(s string) string {
	return monthToken.ReplaceAllStringFunc(s, func(m string) string {
		return strings.ToUpper(m[:1]) + strings.ToLower(m[1:])
	})
}

// BuiltinRules returns every built-in rule for every form type.
func BuiltinRules() []*Rule {
	var all []*Rule
	all = append(all, equipmentRules()...)
	all = append(all, handReceiptRules()...)
	all = append(all, requestTurnInRules()...)
	all = append(all, genericRules()...)
	return all
}

func equipmentRules() []*Rule {
	ft := domain.FormTypeEquipmentRecord
	return []*Rule{
		itemRule(ft, "eqp.item.stock_number", "Format: Stock Number", func(i *domain.EquipmentItem) []domain.ValidationIssue {
			return stockNumberCheck("stock number", i.StockNumber)
		}),
		itemRule(ft, "eqp.item.partial_stock_number", "Format: Partial Stock Number", func(i *domain.EquipmentItem) []domain.ValidationIssue {
			return regexCheck("partial stock number", i.PartialStockNumber, "4 digits", partialStockPattern)
		}),
		itemRule(ft, "eqp.item.lin", "Format: LIN", func(i *domain.EquipmentItem) []domain.ValidationIssue {
			return regexCheck("LIN", i.LIN, "6 alphanumeric characters", linPattern)
		}),
		itemRule(ft, "eqp.item.non_negative", "Logical: Non-Negative Quantities", func(i *domain.EquipmentItem) []domain.ValidationIssue {
			var out []domain.ValidationIssue
			out = append(out, negativeCheck("authorized", i.Quantities.Authorized)...)
			out = append(out, negativeCheck("on-hand", i.Quantities.OnHand)...)
			out = append(out, negativeCheck("due-out", i.Quantities.DueOut)...)
			return out
		}),
		itemRule(ft, "eqp.item.on_hand_vs_authorized", "Logical: On-Hand Within Authorized", func(i *domain.EquipmentItem) []domain.ValidationIssue {
			if i.Quantities.OnHand > i.Quantities.Authorized {
				return []domain.ValidationIssue{issue("on-hand quantity %d exceeds authorized quantity %d", i.Quantities.OnHand, i.Quantities.Authorized)}
			}
			return nil
		}),
		itemRule(ft, "eqp.item.size", "Format: Size", func(i *domain.EquipmentItem) []domain.ValidationIssue {
			return sizeCheck(i.Size)
		}),
		itemRule(ft, "eqp.item.transfer", "Logical: Single Transfer Direction", func(i *domain.EquipmentItem) []domain.ValidationIssue {
			if i.TransferIn && i.TransferOut {
				return []domain.ValidationIssue{"item is marked as both transfer in and transfer out"}
			}
			return nil
		}),
		headerRule(ft, "eqp.header.date", "Format: Record Date", func(h *domain.EquipmentHeader) []domain.ValidationIssue {
			return dateCheck("record date", h.Date)
		}),
	}
}

func handReceiptRules() []*Rule {
	ft := domain.FormTypeHandReceipt
	return []*Rule{
		itemRule(ft, "hr.item.stock_number", "Format: Stock Number", func(i *domain.HandReceiptItem) []domain.ValidationIssue {
			return stockNumberCheck("stock number", i.StockNumber)
		}),
		itemRule(ft, "hr.item.unit_of_issue", "Format: Unit of Issue", func(i *domain.HandReceiptItem) []domain.ValidationIssue {
			return regexCheck("unit of issue", i.UnitOfIssue, "2 letters", unitOfIssuePattern)
		}),
		itemRule(ft, "hr.item.non_negative", "Logical: Non-Negative Quantities", func(i *domain.HandReceiptItem) []domain.ValidationIssue {
			out := negativeCheck("authorized", i.QuantityAuth)
			for _, col := range []string{"A", "B", "C", "D", "E", "F"} {
				out = append(out, negativeCheck("column "+col, i.Quantities.Columns()[col])...)
			}
			return out
		}),
		itemRule(ft, "hr.item.column_vs_authorized", "Logical: Column Within Authorized", func(i *domain.HandReceiptItem) []domain.ValidationIssue {
			if i.QuantityAuth <= 0 {
				return nil
			}
			var out []domain.ValidationIssue
			cols := i.Quantities.Columns()
			for _, col := range []string{"A", "B", "C", "D", "E", "F"} {
				if cols[col] > i.QuantityAuth {
					out = append(out, issue("column %s quantity %d exceeds authorized quantity %d", col, cols[col], i.QuantityAuth))
				}
			}
			return out
		}),
		headerRule(ft, "hr.header.end_item_stock_number", "Format: End Item Stock Number", func(h *domain.HandReceiptHeader) []domain.ValidationIssue {
			return stockNumberCheck("end item stock number", h.EndItemStockNumber)
		}),
		headerRule(ft, "hr.header.publication_date", "Format: Publication Date", func(h *domain.HandReceiptHeader) []domain.ValidationIssue {
			return dateCheck("publication date", h.PublicationDate)
		}),
	}
}

func requestTurnInRules() []*Rule {
	ft := domain.FormTypeRequestTurnIn
	return []*Rule{
		itemRule(ft, "rti.item.stock_number", "Format: Stock Number", func(i *domain.RequestTurnInItem) []domain.ValidationIssue {
			return stockNumberCheck("stock number", i.StockNumber)
		}),
		itemRule(ft, "rti.item.unit_of_issue", "Format: Unit of Issue", func(i *domain.RequestTurnInItem) []domain.ValidationIssue {
			return regexCheck("unit of issue", i.UnitOfIssue, "2 letters", unitOfIssuePattern)
		}),
		itemRule(ft, "rti.item.condition_code", "Format: Condition Code", func(i *domain.RequestTurnInItem) []domain.ValidationIssue {
			if i.ConditionCode == "" || conditionCodes[i.ConditionCode] {
				return nil
			}
			return []domain.ValidationIssue{issue("unknown condition code: %q", i.ConditionCode)}
		}),
		itemRule(ft, "rti.item.non_negative", "Logical: Non-Negative Amounts", func(i *domain.RequestTurnInItem) []domain.ValidationIssue {
			out := negativeCheck("requested", i.Quantity)
			if i.UnitPrice < 0 {
				out = append(out, issue("negative unit price: %.2f", i.UnitPrice))
			}
			if i.TotalPrice < 0 {
				out = append(out, issue("negative total price: %.2f", i.TotalPrice))
			}
			return out
		}),
		itemRule(ft, "rti.item.total_price", "Math: Total Price", func(i *domain.RequestTurnInItem) []domain.ValidationIssue {
			if i.Quantity <= 0 || i.UnitPrice <= 0 || i.TotalPrice <= 0 {
				return nil
			}
			expected := float64(i.Quantity) * i.UnitPrice
			if math.Abs(expected-i.TotalPrice) > 0.01 {
				return []domain.ValidationIssue{issue("total price %.2f does not equal quantity %d x unit price %.2f", i.TotalPrice, i.Quantity, i.UnitPrice)}
			}
			return nil
		}),
		headerRule(ft, "rti.header.document_number", "Format: Document Number", func(h *domain.RequestTurnInHeader) []domain.ValidationIssue {
			return regexCheck("document number", h.DocumentNumber, "DoDAAC + julian date + serial", documentNumberPattern)
		}),
		headerRule(ft, "rti.header.priority", "Format: Priority", func(h *domain.RequestTurnInHeader) []domain.ValidationIssue {
			return regexCheck("priority designator", h.Priority, "01-15", priorityPattern)
		}),
		headerRule(ft, "rti.header.date", "Format: Date", func(h *domain.RequestTurnInHeader) []domain.ValidationIssue {
			return dateCheck("date", h.Date)
		}),
	}
}

func genericRules() []*Rule {
	ft := domain.FormTypeGeneric
	return []*Rule{
		itemRule(ft, "gen.item.stock_number", "Format: Stock Number", func(i *domain.GenericItem) []domain.ValidationIssue {
			return stockNumberCheck("stock number", i.StockNumber)
		}),
		itemRule(ft, "gen.item.non_negative", "Logical: Non-Negative Quantity", func(i *domain.GenericItem) []domain.ValidationIssue {
			return negativeCheck("item", i.Quantity)
		}),
		headerRule(ft, "gen.header.date", "Format: Date", func(h *domain.GenericHeader) []domain.ValidationIssue {
			return dateCheck("date", h.Date)
		}),
	}
}
