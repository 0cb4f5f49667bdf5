package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"formscan/internal/domain"
)

// BOM is the UTF-8 byte order mark Excel on Windows needs to detect UTF-8.
var BOM = []byte{0xEF, 0xBB, 0xBF}

const sheetName = "Scans"

// ContentType returns the HTTP content type for format.
func ContentType(format domain.ExportFormat) string {
	switch format {
	case domain.ExportFormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv; charset=utf-8"
	}
}

// ParseFormat validates a user-supplied export format.
func ParseFormat(s string) (domain.ExportFormat, error) {
	switch f := domain.ExportFormat(s); f {
	case domain.ExportFormatCSV, domain.ExportFormatXLSX:
		return f, nil
	case "":
		return domain.ExportFormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownExportFormat, s)
	}
}

// Write flattens records and writes them to w in format.
func Write(w io.Writer, format domain.ExportFormat, records []domain.ScanRecord) error {
	switch format {
	case domain.ExportFormatCSV:
		return WriteCSV(w, records)
	case domain.ExportFormatXLSX:
		return WriteXLSX(w, records)
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnknownExportFormat, format)
	}
}

// WriteCSV writes a BOM, the header row, then one row per item.
func WriteCSV(w io.Writer, records []domain.ScanRecord) error {
	if _, err := w.Write(BOM); err != nil {
		return fmt.Errorf("writing BOM: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if err := cw.WriteAll(Flatten(records)); err != nil {
		return fmt.Errorf("writing rows: %w", err)
	}
	return nil
}

// WriteXLSX writes a single-sheet workbook with a bold, frozen header row.
func WriteXLSX(w io.Writer, records []domain.ScanRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	for i, h := range Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, h)
	}
	for r, row := range Flatten(records) {
		for c, v := range row {
			if v == "" {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			_ = f.SetCellValue(sheetName, cell, v)
		}
	}

	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(Columns), 1)
		_ = f.SetCellStyle(sheetName, "A1", last, style)
	}
	_ = f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
	_ = f.SetColWidth(sheetName, "A", "A", 38)
	_ = f.SetColWidth(sheetName, "M", "M", 36)
	_ = f.SetColWidth(sheetName, "U", "U", 60)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}
