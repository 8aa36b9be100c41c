// =============================================================================
// EPC QR Code Generator - XLSX Parser Module
// =============================================================================
//
// This module reads payment rows from XLSX workbooks into a types.Table, the
// same shape the CSV parser produces, so the batch converter does not care
// which kind of file a row came from.
//
// WORKBOOK LAYOUT (defaults):
//
//   |   | A        | B                      | C      | D            |
//   |---|----------|------------------------|--------|--------------|
//   | 1 | Name     | IBAN                   | Amount | Text         |
//   | 2 | Jane Doe | DE02120300000000202051 | 12.5   | Invoice 4711 |
//
// Cells are read as raw values, so a numeric amount cell yields "12.5"
// regardless of the number format applied in the sheet.
//
// =============================================================================

package xlsxparser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/epc-qr-code-generator/internal/config"
	"github.com/ginjaninja78/epc-qr-code-generator/internal/types"
)

// ErrNoSheets is returned for a workbook without sheets.
var ErrNoSheets = errors.New("workbook has no sheets")

// Parse reads the configured sheet of an XLSX workbook.
//
// PARAMETERS:
//   - filePath: The path to the XLSX file.
//   - settings: The XLSX settings from the source configuration. An empty
//     SheetName selects the first sheet.
//
// RETURNS:
//   - The parsed table with 1-based sheet row numbers.
//   - An error if the workbook or sheet cannot be read.
func Parse(filePath string, settings config.XLSXSettings) (table *types.Table, err error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close workbook: %w", cerr)
		}
	}()

	table, err = ParseFile(f, settings)
	if err != nil {
		return nil, err
	}
	table.SourceFile = filePath
	return table, nil
}

// ParseFile reads the configured sheet of an open workbook.
func ParseFile(f *excelize.File, settings config.XLSXSettings) (*types.Table, error) {
	sheetName, err := resolveSheet(f, settings.SheetName)
	if err != nil {
		return nil, err
	}

	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of sheet %q: %w", sheetName, err)
	}

	headerRow := settings.HeaderRow
	if headerRow < 1 {
		headerRow = 1
	}
	if len(rows) < headerRow {
		return nil, fmt.Errorf("sheet %q has no header row %d", sheetName, headerRow)
	}

	headers := cleanHeaders(rows[headerRow-1])
	table := &types.Table{Headers: headers}

	start := settings.DataStartRow
	if start <= headerRow {
		start = headerRow + 1
	}
	for i := start - 1; i < len(rows); i++ {
		if isRowEmpty(rows[i]) {
			continue
		}
		table.Rows = append(table.Rows, types.NewRow(i+1, headers, rows[i]))
	}

	return table, nil
}

// SheetNames lists the sheets of a workbook, for diagnostics.
func SheetNames(filePath string) ([]string, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()
	return f.GetSheetList(), nil
}

func resolveSheet(f *excelize.File, name string) (string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", ErrNoSheets
	}
	if name == "" {
		return sheets[0], nil
	}
	for _, sheet := range sheets {
		if strings.EqualFold(sheet, name) {
			return sheet, nil
		}
	}
	return "", fmt.Errorf("sheet %q not found (available: %s)", name, strings.Join(sheets, ", "))
}

func cleanHeaders(row []string) []string {
	headers := make([]string, len(row))
	for i, cell := range row {
		header := strings.TrimSpace(cell)
		if header == "" {
			header = fmt.Sprintf("Column_%d", i+1)
		}
		headers[i] = header
	}
	return headers
}

func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
