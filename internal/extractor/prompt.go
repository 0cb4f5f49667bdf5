package extractor

import "formscan/internal/domain"

const jsonOnlyRules = `
Return ONLY valid JSON with no markdown formatting, no code fences, no explanation, just the raw JSON object.
If a field is not present or cannot be read, use an empty string for text, 0 for numbers, and false for booleans.
Never invent values. Extract EVERY line item on the page, including partially filled rows.`

// BuildHandReceiptPrompt returns the extraction prompt for DA Form 2062.
func BuildHandReceiptPrompt() string {
	return `You are a military supply document extraction assistant. The image is a DA Form 2062 (Hand Receipt/Annex Number).
Extract the header block and every line item into the following JSON structure:
{
  "header": {
    "from": "",                  // hand receipt FROM block, e.g. "1SG Jones, A Co"
    "to": "",                    // hand receipt TO block, e.g. "SGT Smith"
    "handReceiptNumber": "",     // e.g. "A-123"
    "endItemStockNumber": "",    // NSN of the end item, e.g. "1005-01-231-0001"
    "endItemDescription": "",    // e.g. "RIFLE, 5.56MM, M4"
    "publicationNumber": "",     // e.g. "TM 9-1005-319-10"
    "publicationDate": "",       // e.g. "01 Oct 2020"
    "page": "",
    "totalPages": ""
  },
  "items": [
    {
      "stockNumber": "",         // 13 digit NSN written 4-2-3-4, e.g. "1005-01-231-0001"
      "itemDescription": "",     // e.g. "BAYONET-KNIFE"
      "codeIdentifier": "",      // security/accounting code column, e.g. "Q"
      "unitOfIssue": "",         // two letters, e.g. "EA", "PR", "SE"
      "quantityAuth": 0,         // QTY AUTH column
      "quantities": {"A": 0, "B": 0, "C": 0, "D": 0, "E": 0, "F": 0}
    }
  ]
}

DOMAIN NOTES:
- Columns A through F are quantity columns, each initialled on a different inventory date. Copy the number written in each column, or 0 when blank.
- NSNs are federal supply stock numbers: 4 digit supply class, 2 digit country code, 3+4 digit item number. Keep the hyphens.
- Common units of issue: EA (each), PR (pair), SE (set), BX (box), KT (kit), RO (roll).
- Comment lines without a stock number (for example component listings) are still items; leave stockNumber empty.` + jsonOnlyRules
}

// BuildRequestTurnInPrompt returns the extraction prompt for DA Form 2765-1.
func BuildRequestTurnInPrompt() string {
	return `You are a military supply document extraction assistant. The image is a DA Form 2765-1 (Request for Issue or Turn-In).
Extract the routing header and every requested or returned line into the following JSON structure:
{
  "header": {
    "from": "",                  // block 1 FROM
    "to": "",                    // block 2 TO
    "documentNumber": "",        // DoDAAC + julian date + serial, e.g. "W81XYZ-5123-0001"
    "requestType": "",           // "Request", "Turn-in" or "Issue"
    "date": "",                  // e.g. "12 Mar 2024"
    "priority": ""               // priority designator, two digits 01-15
  },
  "items": [
    {
      "stockNumber": "",         // NSN written 4-2-3-4, e.g. "5855-01-234-5678"
      "nomenclature": "",        // item name, e.g. "NIGHT VISION GOGGLE"
      "unitOfIssue": "",         // two letters, e.g. "EA"
      "quantity": 0,
      "conditionCode": "",       // supply condition code, one letter
      "supplyAction": "",        // what was done with the line, e.g. "Turn-in", "Issued"
      "unitPrice": 0,
      "totalPrice": 0
    }
  ]
}

DOMAIN NOTES:
- Condition codes: A serviceable (issuable without qualification), B serviceable with qualification, C serviceable priority issue,
  D serviceable test/modification, E unserviceable limited restoration, F unserviceable reparable, G unserviceable incomplete,
  H unserviceable condemned, S unserviceable scrap.
- The document number is 14 characters: 6 character DoDAAC, 4 digit julian date, 4 character serial number.
- totalPrice should equal quantity times unitPrice; copy what is written even if it does not.
- Prices are US dollars; drop the "$" sign and thousands separators.` + jsonOnlyRules
}

// BuildEquipmentRecordPrompt returns the extraction prompt for DA Form 3645.
func BuildEquipmentRecordPrompt() string {
	return `You are a military supply document extraction assistant. The image is a DA Form 3645 (Organizational Clothing and Individual Equipment Record, OCIE).
Extract the soldier header and every equipment line into the following JSON structure:
{
  "header": {
    "name": "",                  // "LAST, FIRST MI", e.g. "DOE, JOHN A"
    "rank": "",                  // e.g. "SPC"
    "unit": "",                  // e.g. "A Co 1-22 IN"
    "installation": "",          // e.g. "Fort Carson"
    "date": ""
  },
  "items": [
    {
      "lin": "",                 // line item number, 6 alphanumeric characters, e.g. "A12345"
      "size": "",                // e.g. "M-R", "L", "10 1/2", "32X30"
      "nomenclature": "",        // e.g. "PARKA, WET WEATHER"
      "stockNumber": "",         // full NSN written 4-2-3-4 if present
      "partialStockNumber": "",  // last 4 digits of the NSN when only those are written
      "quantities": {
        "authorized": 0,         // AUTH column
        "onHand": 0,             // O/H column
        "dueOut": 0              // DUE OUT column
      },
      "transferIn": false,       // true when the transfer in column is marked
      "transferOut": false       // true when the transfer out column is marked
    }
  ]
}

DOMAIN NOTES:
- The LIN identifies the equipment line type and is distinct from the stock number.
- Sizes use clothing conventions: XS to XXXL optionally followed by a length (XS, S, R, L, XL), or numeric sizes with fractions and width letters (N, R, W).
- Quantities are whole numbers. A blank column is 0; a dash is 0.
- On-hand may exceed authorized on real records; copy what is written.` + jsonOnlyRules
}

// BuildGenericPrompt returns the extraction prompt for unrecognized forms.
func BuildGenericPrompt() string {
	return `You are a military supply document extraction assistant. The image is a supply or accountability form whose exact layout is not known.
Extract what you can into the following JSON structure:
{
  "header": {
    "title": "",                 // printed title of the form
    "formNumber": "",            // e.g. "DA FORM 2062", "DA FORM 3161"
    "date": "",
    "from": "",
    "to": ""
  },
  "items": [
    {
      "stockNumber": "",         // NSN written 4-2-3-4 if present
      "description": "",
      "quantity": 0,
      "notes": ""
    }
  ],
  "rawText": ""                  // all legible printed and handwritten text, top to bottom, one line per row
}

DOMAIN NOTES:
- rawText must include the printed form title and column headings exactly as written; they are used to recognize the form.
- NSNs are 13 digits written 4-2-3-4, e.g. "8415-01-228-1306".` + jsonOnlyRules
}

// Instruction returns the extraction instruction for ft. Unknown types use
// the generic instruction.
func Instruction(ft domain.FormType) string {
	switch ft {
	case domain.FormTypeHandReceipt:
		return BuildHandReceiptPrompt()
	case domain.FormTypeRequestTurnIn:
		return BuildRequestTurnInPrompt()
	case domain.FormTypeEquipmentRecord:
		return BuildEquipmentRecordPrompt()
	default:
		return BuildGenericPrompt()
	}
}
