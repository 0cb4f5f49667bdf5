package domain

// FormType is the layout classification assigned to a scanned document.
type FormType string

const (
	FormTypeHandReceipt     FormType = "HAND_RECEIPT"
	FormTypeRequestTurnIn   FormType = "REQUEST_TURN_IN"
	FormTypeEquipmentRecord FormType = "EQUIPMENT_RECORD"
	FormTypeGeneric         FormType = "GENERIC"
)

// FormTypes returns every form type in classification priority order.
// Generic is always last.
func FormTypes() []FormType {
	return []FormType{
		FormTypeHandReceipt,
		FormTypeRequestTurnIn,
		FormTypeEquipmentRecord,
		FormTypeGeneric,
	}
}

// Valid reports whether t is one of the known form types.
func (t FormType) Valid() bool {
	switch t {
	case FormTypeHandReceipt, FormTypeRequestTurnIn, FormTypeEquipmentRecord, FormTypeGeneric:
		return true
	}
	return false
}

// DisplayName returns the form number and title used in exports and prompts.
func (t FormType) DisplayName() string {
	switch t {
	case FormTypeHandReceipt:
		return "DA Form 2062 (Hand Receipt)"
	case FormTypeRequestTurnIn:
		return "DA Form 2765-1 (Request for Issue or Turn-In)"
	case FormTypeEquipmentRecord:
		return "DA Form 3645 (Organizational Clothing and Individual Equipment Record)"
	default:
		return "Generic Form"
	}
}

// AllowedMimeTypes lists the image content types accepted for scanning.
var AllowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/heic": true,
}

// ExportFormat is a tabular export target.
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatXLSX ExportFormat = "xlsx"
)
