package domain

// ValidationIssue is a non-fatal, human-readable diagnostic attached to an
// item, a header, or the whole document.
type ValidationIssue string

// Form is the closed set of per-form-type extraction payloads. Only the four
// variants in this file implement it.
type Form interface {
	FormType() FormType
	ItemCount() int
	isForm()
}

// NewForm returns an empty payload for t. Unknown types get a GenericForm.
func NewForm(t FormType) Form {
	switch t {
	case FormTypeHandReceipt:
		return &HandReceipt{Items: []HandReceiptItem{}}
	case FormTypeRequestTurnIn:
		return &RequestTurnIn{Items: []RequestTurnInItem{}}
	case FormTypeEquipmentRecord:
		return &EquipmentRecord{Items: []EquipmentItem{}}
	default:
		return &GenericForm{Items: []GenericItem{}}
	}
}

// HandReceipt is DA Form 2062.
type HandReceipt struct {
	Header HandReceiptHeader `json:"header"`
	Items  []HandReceiptItem `json:"items"`
}

// HandReceiptHeader holds the hand receipt block at the top of the form.
type HandReceiptHeader struct {
	From               string            `json:"from"`
	To                 string            `json:"to"`
	HandReceiptNumber  string            `json:"handReceiptNumber"`
	EndItemStockNumber string            `json:"endItemStockNumber"`
	EndItemDescription string            `json:"endItemDescription"`
	PublicationNumber  string            `json:"publicationNumber"`
	PublicationDate    string            `json:"publicationDate"`
	Page               string            `json:"page"`
	TotalPages         string            `json:"totalPages"`
	Issues             []ValidationIssue `json:"issues"`
}

// HandReceiptQuantities are the A-F quantity columns of a 2062 line.
type HandReceiptQuantities struct {
	A int `json:"A"`
	B int `json:"B"`
	C int `json:"C"`
	D int `json:"D"`
	E int `json:"E"`
	F int `json:"F"`
}

// Columns returns the quantity columns keyed by letter.
func (q HandReceiptQuantities) Columns() map[string]int {
	return map[string]int{"A": q.A, "B": q.B, "C": q.C, "D": q.D, "E": q.E, "F": q.F}
}

// Any reports whether any column holds a non-zero quantity.
func (q HandReceiptQuantities) Any() bool {
	return q.A != 0 || q.B != 0 || q.C != 0 || q.D != 0 || q.E != 0 || q.F != 0
}

// HandReceiptItem is a single 2062 line.
type HandReceiptItem struct {
	StockNumber     string                `json:"stockNumber"`
	ItemDescription string                `json:"itemDescription"`
	CodeIdentifier  string                `json:"codeIdentifier"`
	UnitOfIssue     string                `json:"unitOfIssue"`
	QuantityAuth    int                   `json:"quantityAuth"`
	Quantities      HandReceiptQuantities `json:"quantities"`
	Issues          []ValidationIssue     `json:"issues"`
}

func (*HandReceipt) FormType() FormType { return FormTypeHandReceipt }
func (f *HandReceipt) ItemCount() int   { return len(f.Items) }
func (*HandReceipt) isForm()            {}

// RequestTurnIn is DA Form 2765-1.
type RequestTurnIn struct {
	Header RequestTurnInHeader `json:"header"`
	Items  []RequestTurnInItem `json:"items"`
}

// RequestTurnInHeader holds the routing and document identification blocks.
type RequestTurnInHeader struct {
	From           string            `json:"from"`
	To             string            `json:"to"`
	DocumentNumber string            `json:"documentNumber"`
	RequestType    string            `json:"requestType"`
	Date           string            `json:"date"`
	Priority       string            `json:"priority"`
	Issues         []ValidationIssue `json:"issues"`
}

// RequestTurnInItem is a single request or turn-in line.
type RequestTurnInItem struct {
	StockNumber   string            `json:"stockNumber"`
	Nomenclature  string            `json:"nomenclature"`
	UnitOfIssue   string            `json:"unitOfIssue"`
	Quantity      int               `json:"quantity"`
	ConditionCode string            `json:"conditionCode"`
	SupplyAction  string            `json:"supplyAction"`
	UnitPrice     float64           `json:"unitPrice"`
	TotalPrice    float64           `json:"totalPrice"`
	Issues        []ValidationIssue `json:"issues"`
}

func (*RequestTurnIn) FormType() FormType { return FormTypeRequestTurnIn }
func (f *RequestTurnIn) ItemCount() int   { return len(f.Items) }
func (*RequestTurnIn) isForm()            {}

// EquipmentRecord is DA Form 3645 (OCIE record).
type EquipmentRecord struct {
	Header EquipmentHeader `json:"header"`
	Items  []EquipmentItem `json:"items"`
}

// EquipmentHeader identifies the soldier and unit the record belongs to.
type EquipmentHeader struct {
	Name         string            `json:"name"`
	Rank         string            `json:"rank"`
	Unit         string            `json:"unit"`
	Installation string            `json:"installation"`
	Date         string            `json:"date"`
	Issues       []ValidationIssue `json:"issues"`
}

// EquipmentQuantities are the authorized / on-hand / due-out columns.
type EquipmentQuantities struct {
	Authorized int `json:"authorized"`
	OnHand     int `json:"onHand"`
	DueOut     int `json:"dueOut"`
}

// EquipmentItem is one OCIE line. ID is synthetic and assigned at
// normalization so downstream editors can address the row.
type EquipmentItem struct {
	ID                 string              `json:"id"`
	LIN                string              `json:"lin"`
	Size               string              `json:"size"`
	Nomenclature       string              `json:"nomenclature"`
	StockNumber        string              `json:"stockNumber"`
	PartialStockNumber string              `json:"partialStockNumber"`
	Quantities         EquipmentQuantities `json:"quantities"`
	TransferIn         bool                `json:"transferIn"`
	TransferOut        bool                `json:"transferOut"`
	Issues             []ValidationIssue   `json:"issues"`
}

func (*EquipmentRecord) FormType() FormType { return FormTypeEquipmentRecord }
func (f *EquipmentRecord) ItemCount() int   { return len(f.Items) }
func (*EquipmentRecord) isForm()            {}

// GenericForm is the fallback shape for unrecognized layouts.
type GenericForm struct {
	Header  GenericHeader `json:"header"`
	Items   []GenericItem `json:"items"`
	RawText string        `json:"rawText"`
}

// GenericHeader holds the fields most forms share.
type GenericHeader struct {
	Title      string            `json:"title"`
	FormNumber string            `json:"formNumber"`
	Date       string            `json:"date"`
	From       string            `json:"from"`
	To         string            `json:"to"`
	Issues     []ValidationIssue `json:"issues"`
}

// GenericItem is a loosely structured line.
type GenericItem struct {
	StockNumber string            `json:"stockNumber"`
	Description string            `json:"description"`
	Quantity    int               `json:"quantity"`
	Notes       string            `json:"notes"`
	Issues      []ValidationIssue `json:"issues"`
}

func (*GenericForm) FormType() FormType { return FormTypeGeneric }
func (f *GenericForm) ItemCount() int   { return len(f.Items) }
func (*GenericForm) isForm()            {}
