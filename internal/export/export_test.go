package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"formscan/internal/domain"
)

func record(t *testing.T, form domain.Form, issues ...domain.ValidationIssue) domain.ScanRecord {
	t.Helper()
	res := domain.NewExtractionResult(form)
	res.Issues = append(res.Issues, issues...)
	res.ModelUsed = "gemini/gemini-2.0-flash"
	res.Confidence = domain.ConfidenceScore{Overall: 55, Header: 40, Items: 70, Fields: map[string]int{}}
	rec, err := domain.NewScanRecord(res, "scan.jpg", "scans/x.jpg")
	require.NoError(t, err)
	rec.CreatedAt = time.Date(2024, 3, 12, 9, 30, 0, 0, time.UTC)
	return *rec
}

func TestFlatten_OneRowPerItem(t *testing.T) {
	rec := record(t, &domain.EquipmentRecord{
		Header: domain.EquipmentHeader{Name: "DOE, JOHN", Rank: "SPC"},
		Items: []domain.EquipmentItem{
			{LIN: "A12345", Size: "M-R", Nomenclature: "Parka", StockNumber: "8415-01-228-1306",
				Quantities: domain.EquipmentQuantities{Authorized: 1, OnHand: 3}, TransferIn: true,
				Issues: []domain.ValidationIssue{"on-hand quantity 3 exceeds authorized quantity 1"}},
			{LIN: "B00001", Nomenclature: "Helmet", PartialStockNumber: "1306",
				Quantities: domain.EquipmentQuantities{Authorized: 1, OnHand: 1}},
		},
	}, "unexpected shape at /header/date: expected string")

	rows := Flatten([]domain.ScanRecord{rec})

	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Len(t, row, len(Columns))
		assert.Equal(t, rec.ID.String(), row[0])
		assert.Equal(t, "2024-03-12T09:30:00Z", row[1])
		assert.Equal(t, "EQUIPMENT_RECORD", row[2])
		assert.Equal(t, "SPC DOE, JOHN", row[8])
	}

	first := rows[0]
	assert.Equal(t, "1", first[colLine])
	assert.Equal(t, "A12345", first[colIdentifier])
	assert.Equal(t, "3", first[colQuantity])
	assert.Equal(t, "auth=1 onHand=3 dueOut=0 transfer=in", first[colQuantityDetail])
	assert.Equal(t, "unexpected shape at /header/date: expected string; on-hand quantity 3 exceeds authorized quantity 1", first[colIssues])

	second := rows[1]
	assert.Equal(t, "2", second[colLine])
	assert.Equal(t, "1306", second[colStockNumber])
	assert.Equal(t, "", second[colIssues])
}

func TestFlatten_RecordWithoutItems(t *testing.T) {
	rec := record(t, &domain.GenericForm{Header: domain.GenericHeader{Title: "Memo"}, Items: []domain.GenericItem{}})

	rows := Flatten([]domain.ScanRecord{rec})

	require.Len(t, rows, 1)
	assert.Equal(t, "Memo", rows[0][8])
	assert.Equal(t, "", rows[0][colLine])
}

func TestFlatten_UndecodableResult(t *testing.T) {
	rec := domain.ScanRecord{
		ID:       uuid.New(),
		FormType: domain.FormTypeHandReceipt,
		Result:   json.RawMessage(`{"formType":"NOPE"}`),
	}

	rows := Flatten([]domain.ScanRecord{rec})

	require.Len(t, rows, 1)
	assert.Equal(t, "HAND_RECEIPT", rows[0][2])
	assert.Equal(t, "", rows[0][6])
}

func TestFlatten_EveryFormType(t *testing.T) {
	forms := []domain.Form{
		&domain.HandReceipt{Header: domain.HandReceiptHeader{HandReceiptNumber: "A-1"},
			Items: []domain.HandReceiptItem{{StockNumber: "1005-01-231-0001", QuantityAuth: 2, Quantities: domain.HandReceiptQuantities{A: 2, C: 1}}}},
		&domain.RequestTurnIn{Header: domain.RequestTurnInHeader{DocumentNumber: "W81XYZ-5123-0001"},
			Items: []domain.RequestTurnInItem{{ConditionCode: "A", Quantity: 2, UnitPrice: 10, TotalPrice: 20}}},
		&domain.EquipmentRecord{},
		&domain.GenericForm{Items: []domain.GenericItem{{Description: "Canteen", Quantity: 3}}},
	}
	var recs []domain.ScanRecord
	for _, f := range forms {
		recs = append(recs, record(t, f))
	}

	rows := Flatten(recs)

	require.Len(t, rows, 4)
	assert.Equal(t, "A=2 C=1", rows[0][colQuantityDetail])
	assert.Equal(t, "A-1", rows[0][8])
	assert.Equal(t, "10.00", rows[1][colUnitPrice])
	assert.Equal(t, "20.00", rows[1][colTotalPrice])
	assert.Equal(t, "A", rows[1][colConditionCode])
	assert.Equal(t, "", rows[2][colLine])
	assert.Equal(t, "Canteen", rows[3][colDescription])
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	rec := record(t, &domain.GenericForm{Items: []domain.GenericItem{{Description: "Canteen, 1qt", Quantity: 3}}})

	require.NoError(t, WriteCSV(&buf, []domain.ScanRecord{rec}))

	data := buf.Bytes()
	require.True(t, bytes.HasPrefix(data, BOM))

	r := csv.NewReader(bytes.NewReader(data[len(BOM):]))
	all, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, Columns, all[0])
	assert.Equal(t, "Canteen, 1qt", all[1][colDescription])
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	rec := record(t, &domain.GenericForm{Items: []domain.GenericItem{{Description: "Canteen", Quantity: 3}}})

	require.NoError(t, WriteXLSX(&buf, []domain.ScanRecord{rec}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Record ID", rows[0][0])
	assert.Equal(t, rec.ID.String(), rows[1][0])
	assert.Equal(t, "Canteen", rows[1][colDescription])
}

func TestWrite_UnknownFormat(t *testing.T) {
	err := Write(&bytes.Buffer{}, "pdf", nil)
	assert.ErrorIs(t, err, domain.ErrUnknownExportFormat)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("xlsx")
	require.NoError(t, err)
	assert.Equal(t, domain.ExportFormatXLSX, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, domain.ExportFormatCSV, f)

	_, err = ParseFormat("pdf")
	assert.ErrorIs(t, err, domain.ErrUnknownExportFormat)
}

func TestBuildFilename(t *testing.T) {
	now := time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "formscan_scans_2024-03-12.csv", BuildFilename("formscan scans", domain.ExportFormatCSV, now))
	assert.Equal(t, "a_b_2024-03-12.xlsx", BuildFilename("a//b", domain.ExportFormatXLSX, now))
	assert.Equal(t, "Hello_World", SanitizeFilename("Hello, World!"))
}
