// =============================================================================
// EPC QR Code Generator - CSV Parser Module
// =============================================================================
//
// This module parses CSV batch input files into a types.Table. It handles:
//   - Different delimiters (comma, semicolon, pipe, tab)
//   - Multi-line headers
//   - Custom data start rows
//   - Legacy single-byte encodings (ISO-8859-1, ISO-8859-15, Windows-1252)
//   - A leading UTF-8 byte order mark
//
// Row numbers in the returned table are the line numbers of the records in
// the source file, so error reports point at the right line even when quoted
// fields span lines.
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/ginjaninja78/epc-qr-code-generator/internal/config"
	"github.com/ginjaninja78/epc-qr-code-generator/internal/types"
)

// ErrEmptyFile is returned for a file without any records.
var ErrEmptyFile = errors.New("CSV file is empty")

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a CSV file and returns the parsed table.
//
// PARAMETERS:
//   - filePath: The path to the CSV file.
//   - settings: The CSV settings from the source configuration.
//
// PARSING PROCESS:
//  1. Decode the file from the configured encoding to UTF-8
//  2. Configure the CSV reader with the configured delimiter
//  3. Read and merge header rows
//  4. Read data rows starting from the configured data start row
func Parse(filePath string, settings config.CSVSettings) (*types.Table, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	table, err := ParseReader(file, settings)
	if err != nil {
		return nil, err
	}
	table.SourceFile = filePath
	return table, nil
}

// ParseReader parses CSV data from r.
func ParseReader(r io.Reader, settings config.CSVSettings) (*types.Table, error) {
	enc, err := Encoding(settings.Encoding)
	if err != nil {
		return nil, err
	}

	csvReader := csv.NewReader(transform.NewReader(bufio.NewReader(r), enc.NewDecoder()))
	if err := configureReader(csvReader, settings); err != nil {
		return nil, err
	}

	var records [][]string
	var lines []int
	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}
		line, _ := csvReader.FieldPos(0)
		records = append(records, record)
		lines = append(lines, line)
	}

	if len(records) == 0 {
		return nil, ErrEmptyFile
	}

	headers, err := extractHeaders(records, settings.HeaderRows)
	if err != nil {
		return nil, fmt.Errorf("failed to extract headers: %w", err)
	}

	table := &types.Table{Headers: headers}

	start := settings.DataStartRow - 1
	if start < settings.HeaderRows {
		start = settings.HeaderRows
	}
	for i := start; i < len(records); i++ {
		if isRowEmpty(records[i]) {
			continue
		}
		cells := records[i]
		if settings.TrimSpace {
			for j := range cells {
				cells[j] = strings.TrimSpace(cells[j])
			}
		}
		table.Rows = append(table.Rows, types.NewRow(lines[i], headers, cells))
	}

	return table, nil
}

// Encoding maps an encoding name from the source configuration to a decoder.
// UTF-8 input has a leading byte order mark removed.
func Encoding(name string) (encoding.Encoding, error) {
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), "_", "-")) {
	case "", "UTF-8", "UTF8":
		return unicode.UTF8BOM, nil
	case "ISO-8859-1", "LATIN1", "LATIN-1":
		return charmap.ISO8859_1, nil
	case "ISO-8859-15", "LATIN9", "LATIN-9":
		return charmap.ISO8859_15, nil
	case "WINDOWS-1252", "CP1252":
		return charmap.Windows1252, nil
	default:
		return nil, fmt.Errorf("unsupported CSV encoding %q", name)
	}
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) error {
	switch settings.Delimiter {
	case "\\t", "\t", "tab", "TAB":
		reader.Comma = '\t'
	case "pipe", "PIPE":
		reader.Comma = '|'
	case "semicolon":
		reader.Comma = ';'
	case "":
		reader.Comma = ','
	default:
		runes := []rune(settings.Delimiter)
		if len(runes) != 1 {
			return fmt.Errorf("delimiter must be a single character, got %q", settings.Delimiter)
		}
		reader.Comma = runes[0]
	}

	// Rows may be shorter than the header; missing cells read as "".
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	return nil
}

// extractHeaders merges the header rows column by column.
//
//	Row 1: "Beneficiary", "",       "Remittance"
//	Row 2: "Name",        "IBAN",   "Text"
//	Result: "Beneficiary Name", "IBAN", "Remittance Text"
func extractHeaders(records [][]string, headerRows int) ([]string, error) {
	if headerRows <= 0 {
		return nil, fmt.Errorf("header_rows must be at least 1")
	}
	if len(records) < headerRows {
		return nil, fmt.Errorf("file has %d rows, fewer than header_rows %d", len(records), headerRows)
	}

	maxCols := 0
	for _, row := range records[:headerRows] {
		if len(row) > maxCols {
			maxCols = len(row)
		}
	}

	headers := make([]string, maxCols)
	for col := 0; col < maxCols; col++ {
		var parts []string
		for _, row := range records[:headerRows] {
			if col < len(row) {
				if value := strings.TrimSpace(row[col]); value != "" {
					parts = append(parts, value)
				}
			}
		}
		header := strings.Join(parts, " ")
		if header == "" {
			header = fmt.Sprintf("Column_%d", col+1)
		}
		headers[col] = header
	}

	return headers, nil
}

func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
