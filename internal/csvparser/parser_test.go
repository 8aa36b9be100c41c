package csvparser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/epc-qr-code-generator/internal/config"
)

func settings() config.CSVSettings {
	return config.CSVSettings{Delimiter: ",", HeaderRows: 1, DataStartRow: 2, Encoding: "UTF-8"}
}

func TestParse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "donations_march.csv")
	content := "Name,IBAN,Amount\n" +
		"Jane Doe,DE02120300000000202051,12.50\n" +
		"\n" +
		"\"Doe, John\",DE02 1203 0000 0000 2020 51\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	table, err := Parse(path, settings())
	require.NoError(t, err)

	assert.Equal(t, path, table.SourceFile)
	assert.Equal(t, []string{"Name", "IBAN", "Amount"}, table.Headers)
	require.Len(t, table.Rows, 2)

	assert.Equal(t, 2, table.Rows[0].Number)
	assert.Equal(t, "Jane Doe", table.Rows[0].Get("Name"))
	assert.Equal(t, "12.50", table.Rows[0].Get("Amount"))

	assert.Equal(t, 4, table.Rows[1].Number)
	assert.Equal(t, "Doe, John", table.Rows[1].Get("Name"))
	assert.Equal(t, "", table.Rows[1].Get("Amount"))
}

func TestParseReader_Latin1(t *testing.T) {
	s := settings()
	s.Delimiter = ";"
	s.Encoding = "ISO-8859-1"

	table, err := ParseReader(strings.NewReader("Name;IBAN\nM\xfcller;AT611904300234573201\n"), s)
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "Müller", table.Rows[0].Get("Name"))
}

func TestParseReader_Windows1252Euro(t *testing.T) {
	s := settings()
	s.Encoding = "cp1252"

	table, err := ParseReader(strings.NewReader("Info\n\x80 10\n"), s)
	require.NoError(t, err)
	assert.Equal(t, "€ 10", table.Rows[0].Get("Info"))
}

func TestParseReader_StripsBOM(t *testing.T) {
	table, err := ParseReader(strings.NewReader("\ufeffName,IBAN\nJane,DE02\n"), settings())
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "IBAN"}, table.Headers)
	assert.True(t, table.HasColumn("Name"))
}

func TestParseReader_MultiLineHeaders(t *testing.T) {
	s := settings()
	s.HeaderRows = 2
	s.DataStartRow = 4
	s.Delimiter = "tab"
	s.TrimSpace = true

	content := "Beneficiary\t\tRemittance\n" +
		"Name\tIBAN\tText\n" +
		"exported 2026-10-01\n" +
		" Jane Doe \tDE02\tInvoice 4711\n"

	table, err := ParseReader(strings.NewReader(content), s)
	require.NoError(t, err)

	assert.Equal(t, []string{"Beneficiary Name", "IBAN", "Remittance Text"}, table.Headers)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, 4, table.Rows[0].Number)
	assert.Equal(t, "Jane Doe", table.Rows[0].Get("Beneficiary Name"))
}

func TestParseReader_EmptyHeaderGetsPlaceholder(t *testing.T) {
	table, err := ParseReader(strings.NewReader("Name,,IBAN\n"), settings())
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "Column_2", "IBAN"}, table.Headers)
	assert.Empty(t, table.Rows)
}

func TestParseReader_Errors(t *testing.T) {
	_, err := ParseReader(strings.NewReader(""), settings())
	assert.ErrorIs(t, err, ErrEmptyFile)

	s := settings()
	s.Encoding = "EBCDIC"
	_, err = ParseReader(strings.NewReader("a\n"), s)
	assert.Error(t, err)

	s = settings()
	s.Delimiter = ";;"
	_, err = ParseReader(strings.NewReader("a\n"), s)
	assert.Error(t, err)

	s = settings()
	s.HeaderRows = 3
	_, err = ParseReader(strings.NewReader("a\nb\n"), s)
	assert.Error(t, err)

	_, err = Parse(filepath.Join(t.TempDir(), "missing.csv"), settings())
	assert.Error(t, err)
}
