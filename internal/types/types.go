// =============================================================================
// EPC QR Code Generator - Shared Types
// =============================================================================
//
// This package contains the tabular input types shared by the parsers and the
// batch converter. Types defined here are used by:
//   - csvparser
//   - xlsxparser
//   - converter
//
// =============================================================================

package types

// =============================================================================
// TABLE TYPES
// =============================================================================

// Table is one parsed input file.
type Table struct {
	// SourceFile is the path of the file the table was read from.
	SourceFile string

	// Headers are the column names in file order.
	Headers []string

	// Rows are the non-empty data rows.
	Rows []Row
}

// Row is a single data row.
type Row struct {
	// Number is the 1-based row number in the source file, used in error
	// reports and for {row} in file names.
	Number int

	// Values maps column header to cell value. Columns missing from a short
	// row map to "".
	Values map[string]string
}

// Get returns the value of column, or "" if the column does not exist.
func (r Row) Get(column string) string {
	return r.Values[column]
}

// HasColumn reports whether the table has a column with the given header.
func (t *Table) HasColumn(header string) bool {
	for _, h := range t.Headers {
		if h == header {
			return true
		}
	}
	return false
}

// NewRow builds a row from a header list and the cells of one record.
func NewRow(number int, headers, cells []string) Row {
	values := make(map[string]string, len(headers))
	for i, header := range headers {
		if i < len(cells) {
			values[header] = cells[i]
		} else {
			values[header] = ""
		}
	}
	return Row{Number: number, Values: values}
}
