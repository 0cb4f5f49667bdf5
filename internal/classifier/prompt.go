package classifier

import (
	"strings"

	"formscan/internal/domain"
)

// BuildClassificationPrompt returns the instruction used in prompt mode.
func BuildClassificationPrompt() string {
	return `You are classifying a photograph of a U.S. Army supply form. Decide which layout it is using the printed landmarks below.

HAND_RECEIPT: DA Form 2062 "HAND RECEIPT/ANNEX NUMBER". Header blocks FROM, TO, HAND RECEIPT NUMBER, END ITEM STOCK NUMBER,
  PUBLICATION NUMBER. Columns STOCK NUMBER, ITEM DESCRIPTION, CODE, UNIT OF ISSUE, QTY AUTH and quantity columns A through F.
REQUEST_TURN_IN: DA Form 2765-1 "REQUEST FOR ISSUE OR TURN-IN". Blocks DOCUMENT NUMBER, PRIORITY, FROM, TO, columns
  STOCK NUMBER, NOMENCLATURE, UNIT OF ISSUE, QUANTITY, CONDITION CODE, SUPPLY ACTION, UNIT PRICE, TOTAL PRICE.
EQUIPMENT_RECORD: DA Form 3645 "ORGANIZATIONAL CLOTHING AND INDIVIDUAL EQUIPMENT RECORD" (OCIE). Soldier NAME, RANK, UNIT,
  columns LIN, SIZE, NOMENCLATURE, AUTH, ON HAND, DUE OUT and transfer in/out markings.
GENERIC: any other form or document.

Answer with exactly one of these labels and nothing else: HAND_RECEIPT, REQUEST_TURN_IN, EQUIPMENT_RECORD, GENERIC`
}

type synonym struct {
	token    string
	formType domain.FormType
}

// Labels are checked before synonyms so an exact label always wins.
var labelSynonyms = []synonym{
	{string(domain.FormTypeHandReceipt), domain.FormTypeHandReceipt},
	{string(domain.FormTypeRequestTurnIn), domain.FormTypeRequestTurnIn},
	{string(domain.FormTypeEquipmentRecord), domain.FormTypeEquipmentRecord},
	{string(domain.FormTypeGeneric), domain.FormTypeGeneric},
	{"2062", domain.FormTypeHandReceipt},
	{"HAND RECEIPT", domain.FormTypeHandReceipt},
	{"2765", domain.FormTypeRequestTurnIn},
	{"TURN-IN", domain.FormTypeRequestTurnIn},
	{"TURN IN", domain.FormTypeRequestTurnIn},
	{"3645", domain.FormTypeEquipmentRecord},
	{"OCIE", domain.FormTypeEquipmentRecord},
	{"CLOTHING", domain.FormTypeEquipmentRecord},
}

// MatchLabel maps a prompt-mode answer to a form type. The answer is trimmed
// and upper-cased, then matched by substring against the labels and their
// synonyms. Anything unmatched is Generic.
func MatchLabel(answer string) domain.FormType {
	clean := strings.ToUpper(strings.TrimSpace(answer))
	if clean == "" {
		return domain.FormTypeGeneric
	}
	for _, s := range labelSynonyms {
		if strings.Contains(clean, s.token) {
			return s.formType
		}
	}
	return domain.FormTypeGeneric
}
